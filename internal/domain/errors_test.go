package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineError_Wrapping(t *testing.T) {
	cause := errors.New("connection refused")
	pe := WrapError(StageStore, KindIndexConnection, cause, "could not connect to index %q", "vector_index")

	assert.Equal(t, `could not connect to index "vector_index": connection refused`, pe.Error())
	assert.ErrorIs(t, pe, cause)

	wrapped := fmt.Errorf("outer: %w", pe)
	got, ok := AsPipelineError(wrapped)
	require.True(t, ok)
	assert.Equal(t, StageStore, got.Stage)
	assert.Equal(t, KindIndexConnection, KindOf(wrapped))
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("boom")))
	assert.Equal(t, ErrorKind(""), KindOf(nil))
}

func TestNewDocument_LowercasesExtension(t *testing.T) {
	doc := NewDocument("d1", "/tmp/Report.PDF")
	assert.Equal(t, ".pdf", doc.Ext)
}

func TestChunk_End(t *testing.T) {
	c := Chunk{Start: 10, Text: "héllo"}
	assert.Equal(t, 15, c.End())
}
