package corpus

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// supportedExtensions are the source file types the loader understands.
// Anything else in the document directory is skipped with a warning.
var supportedExtensions = map[string]bool{
	".txt": true,
	".md":  true,
	".csv": true,
}

// LoadDir reads every supported file directly under dir into a Document.
// A missing directory, unreadable file, or unsupported extension is
// logged and skipped rather than failing the whole load, so a partially
// broken corpus still produces an index.
func LoadDir(dir string, logger *slog.Logger) []Document {
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn("document directory unavailable", "dir", dir, "error", err)
		return nil
	}

	var docs []Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !supportedExtensions[ext] {
			logger.Warn("skipping unsupported file", "file", name, "ext", ext)
			continue
		}

		path := filepath.Join(dir, name)
		doc, err := loadFile(path, ext)
		if err != nil {
			logger.Warn("skipping unreadable file", "file", name, "error", err)
			continue
		}
		if strings.TrimSpace(doc.Content) == "" {
			logger.Warn("skipping empty file", "file", name)
			continue
		}

		docs = append(docs, doc)
		logger.Debug("loaded document", "file", name, "bytes", len(doc.Content))
	}

	return docs
}

func loadFile(path, ext string) (Document, error) {
	source := filepath.Base(path)

	if ext == ".csv" {
		content, err := loadCSV(path)
		if err != nil {
			return Document{}, err
		}
		return Document{Content: content, Source: source, Page: 1}, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	return Document{Content: string(raw), Source: source, Page: 1}, nil
}

// loadCSV flattens a CSV file into one line of text per record.
func loadCSV(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = f.Close()
	}()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // tolerate ragged rows

	records, err := reader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("parsing csv: %w", err)
	}

	var b strings.Builder
	for _, record := range records {
		b.WriteString(strings.Join(record, ", "))
		b.WriteString("\n")
	}
	return b.String(), nil
}
