// Package chunk splits document text into overlapping fixed-size windows.
//
// Chunks are the unit of embedding and retrieval: each chunk is embedded
// independently and carries enough surrounding text (the overlap) to stay
// meaningful when retrieved on its own.
package chunk

import (
	"fmt"
	"strings"
)

// Split slices text into windows of at most size bytes, each window starting
// overlap bytes before the end of the previous one. The windows fully cover
// the input with no gaps. Empty input yields no chunks.
//
// overlap must be smaller than size; otherwise the window start would never
// advance. Split returns an error instead of looping.
func Split(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be in [0, %d)", overlap, size)
	}
	if text == "" {
		return nil, nil
	}

	step := size - overlap
	chunks := make([]string, 0, (len(text)+step-1)/step)
	for start := 0; ; start += step {
		end := start + size
		if end >= len(text) {
			// The final window reaches the end of the text; a further
			// window would only repeat bytes already covered.
			chunks = append(chunks, text[start:])
			break
		}
		chunks = append(chunks, text[start:end])
	}
	return chunks, nil
}

// IsBlank reports whether a chunk contains only whitespace. Blank chunks
// carry no retrievable content and are skipped before embedding.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
