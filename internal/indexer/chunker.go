package indexer

import (
	"fmt"
	"strings"
	"unicode"
)

// Chunker splits document text into overlapping windows. Consecutive
// chunks share exactly overlap runes, so the original document can be
// reconstructed from the chunk sequence.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker. Size must be positive and overlap must
// be smaller than size, otherwise the window cannot advance.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, size), got %d with size %d", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split divides text into chunks of at most size runes with the
// configured overlap between consecutive chunks. A cut prefers the last
// whitespace inside the window when one exists past the overlap region;
// otherwise it falls back to a hard cut, which guarantees forward
// progress even on a single run-on token longer than the window.
// Empty or whitespace-only text yields zero chunks.
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	n := len(runes)
	var chunks []string

	i := 0
	for i < n {
		j := i + c.size
		if j >= n {
			chunks = append(chunks, string(runes[i:]))
			break
		}

		// Prefer a whitespace boundary, but only past the overlap
		// region so the next window still starts after this one.
		if w := lastSpace(runes[i:j]); w >= 0 && i+w+1 > i+c.overlap {
			j = i + w + 1
		}

		chunks = append(chunks, string(runes[i:j]))
		i = j - c.overlap
	}
	return chunks
}

// lastSpace returns the index of the last whitespace rune, or -1.
func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return -1
}
