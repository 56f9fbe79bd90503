// Package corpus builds and stores the document index that grounds the
// assistant's answers.
//
// Source files are loaded from a directory, split into overlapping chunks,
// embedded, and upserted into the pgvector-backed documents table. When no
// source files are available, a built-in sample corpus keeps the service
// operational.
package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// VectorDimension is the embedding dimensionality of the documents table.
// gemini-embedding-001 supports truncation to 768 dimensions, which is
// what the vector(768) column expects.
const VectorDimension = 768

// Document is one source document before chunking.
type Document struct {
	Content string
	Source  string // file name or logical source, e.g. "eligibility_guidelines.pdf"
	Page    int
}

// Candidate is one chunk returned by a nearest-neighbor search, with its
// embedding retained for downstream re-ranking.
type Candidate struct {
	ID         string
	Content    string
	Source     string
	Page       int
	Embedding  []float32
	Similarity float64 // cosine similarity to the query, in [-1, 1]
}

// chunkID derives a stable document-chunk identifier.
func chunkID(source string, index int) string {
	hash := sha256.Sum256(fmt.Appendf(nil, "%s#%d", source, index))
	return "chunk_" + hex.EncodeToString(hash[:16])
}
