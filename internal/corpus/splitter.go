package corpus

import "strings"

// splitSeparators are tried in order; the first one present in the text
// wins, and oversized fragments recurse on the remaining separators.
// The empty separator is the terminal case: a hard character cut.
var splitSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter breaks text into chunks of at most ChunkSize characters with
// ChunkOverlap characters carried over between adjacent chunks.
//
// Splitting is recursive: paragraphs first, then lines, sentences, words,
// and finally raw character windows for pathological inputs.
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
}

// NewSplitter returns a Splitter, substituting defaults for non-positive values.
func NewSplitter(chunkSize, chunkOverlap int) Splitter {
	if chunkSize <= 0 {
		chunkSize = 1500
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 200
		if chunkOverlap >= chunkSize {
			chunkOverlap = chunkSize / 4
		}
	}
	return Splitter{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap}
}

// Split breaks text into chunks. Whitespace-only fragments are dropped.
func (s Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.split(text, splitSeparators)
}

func (s Splitter) split(text string, separators []string) []string {
	if len(text) <= s.ChunkSize {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return []string{trimmed}
		}
		return nil
	}

	// Pick the first separator that occurs in the text
	sep := ""
	rest := []string{}
	for i, candidate := range separators {
		if candidate == "" {
			break
		}
		if strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}

	if sep == "" {
		return s.hardCut(text)
	}

	// SplitAfter keeps the separator attached, so piece lengths add up to
	// the original text length.
	pieces := strings.SplitAfter(text, sep)

	var (
		chunks  []string
		pending []string
		total   int
	)

	flush := func() {
		if total == 0 {
			return
		}
		joined := strings.TrimSpace(strings.Join(pending, ""))
		if joined != "" {
			chunks = append(chunks, joined)
		}
		// Retain a tail of pieces as overlap for the next chunk
		for total > s.ChunkOverlap && len(pending) > 1 {
			total -= len(pending[0])
			pending = pending[1:]
		}
		if total > s.ChunkOverlap {
			pending = nil
			total = 0
		}
	}

	for _, piece := range pieces {
		if len(piece) > s.ChunkSize {
			flush()
			pending = nil
			total = 0
			chunks = append(chunks, s.split(piece, rest)...)
			continue
		}
		if total+len(piece) > s.ChunkSize && total > 0 {
			flush()
		}
		pending = append(pending, piece)
		total += len(piece)
	}
	if total > 0 {
		joined := strings.TrimSpace(strings.Join(pending, ""))
		if joined != "" {
			chunks = append(chunks, joined)
		}
	}

	return chunks
}

// hardCut slices text into fixed-size windows when no separator applies.
// Windows are measured in runes so multi-byte text is never cut mid-rune,
// which would produce chunks Postgres rejects as invalid UTF-8.
func (s Splitter) hardCut(text string) []string {
	step := s.ChunkSize - s.ChunkOverlap
	if step <= 0 {
		step = s.ChunkSize
	}

	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := min(start+s.ChunkSize, len(runes))
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}
