package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"docrag/internal/domain"
)

// separators in order of preference. A chunk ends right after the
// separator it was cut at.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", "; ", ", "}

// RecursiveChunker cuts text into windows of at most size characters.
// Consecutive chunks share exactly overlap characters.
type RecursiveChunker struct {
	size    int
	overlap int
}

func NewRecursiveChunker(size, overlap int) (*RecursiveChunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &RecursiveChunker{size: size, overlap: overlap}, nil
}

// Chunk splits content. Empty or whitespace-only content yields no chunks.
func (c *RecursiveChunker) Chunk(doc domain.Document, content string) ([]domain.Chunk, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	runes := []rune(content)
	n := len(runes)

	var chunks []domain.Chunk
	start := 0
	for {
		end := n
		if n-start > c.size {
			end = c.cut(runes, start)
		}

		chunks = append(chunks, c.newChunk(doc, len(chunks), start, string(runes[start:end])))

		if end == n {
			break
		}
		start = end - c.overlap
	}

	return chunks, nil
}

// cut picks the end of the chunk starting at start. The end must leave the
// next chunk room to advance past start, and preferred separators are only
// used in the upper half of the window so chunks stay reasonably full.
func (c *RecursiveChunker) cut(runes []rune, start int) int {
	limit := start + c.size
	lo := start + c.overlap + 1
	if half := start + c.size/2; half > lo {
		lo = half
	}

	for _, sep := range separators {
		if end := lastSeparator(runes, []rune(sep), lo, limit); end > 0 {
			return end
		}
	}

	// any whitespace
	for end := limit; end >= lo; end-- {
		if unicode.IsSpace(runes[end-1]) {
			return end
		}
	}

	return limit
}

// lastSeparator returns the largest end in [lo, hi] such that runes[:end]
// ends with sep, or 0.
func lastSeparator(runes, sep []rune, lo, hi int) int {
	for end := hi; end >= lo; end-- {
		if end < len(sep) {
			break
		}
		if hasSuffixAt(runes, sep, end) {
			return end
		}
	}
	return 0
}

func hasSuffixAt(runes, sep []rune, end int) bool {
	off := end - len(sep)
	for i, r := range sep {
		if runes[off+i] != r {
			return false
		}
	}
	return true
}

func (c *RecursiveChunker) newChunk(doc domain.Document, index, start int, text string) domain.Chunk {
	return domain.Chunk{
		ID:    generateChunkID(doc.ID, index, start),
		DocID: doc.ID,
		Index: index,
		Start: start,
		Text:  text,
		Metadata: map[string]string{
			domain.MetaSource:     doc.Path,
			domain.MetaChunkIndex: strconv.Itoa(index),
		},
	}
}

func generateChunkID(docID string, index, start int) string {
	data := fmt.Sprintf("%s:%d@%d", docID, index, start)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}
