package domain

import (
	"path/filepath"
	"strings"
)

// Document is a single uploaded file awaiting ingestion.
type Document struct {
	ID   string
	Path string
	Ext  string
}

// NewDocument derives the lower-cased extension from the path.
func NewDocument(id, path string) Document {
	return Document{
		ID:   id,
		Path: path,
		Ext:  strings.ToLower(filepath.Ext(path)),
	}
}

// Chunk is a contiguous slice of a document's normalized text.
// Start is a rune offset into that text.
type Chunk struct {
	ID       string
	DocID    string
	Index    int
	Start    int
	Text     string
	Metadata map[string]string
}

// End returns the rune offset one past the chunk's last character.
func (c Chunk) End() int {
	return c.Start + len([]rune(c.Text))
}

// IndexEntry is one row of a vector collection.
type IndexEntry struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]string
}

type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// IngestResult summarizes one successful pipeline run.
type IngestResult struct {
	IngestID   string `json:"ingest_id"`
	Collection string `json:"collection"`
	Source     string `json:"source"`
	Characters int    `json:"characters"`
	Chunks     int    `json:"chunks"`
	Dimension  int    `json:"dimension"`
}

// Metadata keys stored next to each chunk.
const (
	MetaSource     = "source"
	MetaChunkIndex = "chunk_index"
	MetaIngestID   = "ingest_id"
)
