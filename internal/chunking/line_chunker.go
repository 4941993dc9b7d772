package chunking

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"ragcorpus/internal/models"
)

// Chunk is one line-bounded window of a document, before it is embedded or
// persisted. Index is the 0-based position in emission order; Size is the
// content length in characters.
type Chunk struct {
	Index   int
	Content string
	Size    int
}

// LineChunker splits a document into overlapping line-based windows.
// Chunk k covers lines [k*(size-overlap), k*(size-overlap)+size), clamped to
// the document. A window exists for every starting offset below the line
// count, so a document with no lines past the first offset yields exactly
// one chunk, and a tail that only reaches into the previous window's overlap
// still gets its own chunk.
//
// Chunking is deterministic: identical content and parameters always produce
// a byte-identical chunk sequence. Fingerprint dedup depends on that.
type LineChunker struct {
	chunkSize int
	overlap   int
}

// NewLineChunker validates the window parameters up front.
// overlap must satisfy 0 <= overlap < chunkSize; anything else is a
// configuration error, not something to clamp silently.
func NewLineChunker(chunkSize, overlap int) (*LineChunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", models.ErrValidation, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap must be in [0, %d), got %d", models.ErrValidation, chunkSize, overlap)
	}
	return &LineChunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// ChunkSize returns the configured window size in lines.
func (c *LineChunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the configured overlap in lines.
func (c *LineChunker) Overlap() int { return c.overlap }

// Chunk splits content into the ordered chunk sequence. Lines are the split
// unit - content is never cut mid-line, and original line terminators are
// retained inside each chunk. Empty content yields no chunks.
func (c *LineChunker) Chunk(content string) []Chunk {
	lines := splitLines(content)
	if len(lines) == 0 {
		return nil
	}

	step := c.chunkSize - c.overlap
	var chunks []Chunk
	for start := 0; start < len(lines); start += step {
		end := start + c.chunkSize
		if end > len(lines) {
			end = len(lines)
		}
		text := strings.Join(lines[start:end], "")
		chunks = append(chunks, Chunk{
			Index:   len(chunks),
			Content: text,
			Size:    utf8.RuneCountInString(text),
		})
	}
	return chunks
}

// splitLines splits content on line terminators, keeping the terminator
// attached to its line. A trailing terminator does not produce a phantom
// empty line.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.SplitAfter(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
