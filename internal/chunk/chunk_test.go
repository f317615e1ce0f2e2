package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		size    int
		overlap int
		want    []string
	}{
		{
			name:    "empty text",
			text:    "",
			size:    5,
			overlap: 2,
			want:    nil,
		},
		{
			name:    "shorter than window",
			text:    "abc",
			size:    5,
			overlap: 2,
			want:    []string{"abc"},
		},
		{
			name:    "exactly one window",
			text:    "abcde",
			size:    5,
			overlap: 2,
			want:    []string{"abcde"},
		},
		{
			name:    "overlapping windows",
			text:    "abcdefghij",
			size:    5,
			overlap: 2,
			want:    []string{"abcde", "defgh", "ghij"},
		},
		{
			name:    "no overlap",
			text:    "abcdef",
			size:    3,
			overlap: 0,
			want:    []string{"abc", "def"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Split(tt.text, tt.size, tt.overlap)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{name: "overlap equals size", size: 5, overlap: 5},
		{name: "overlap exceeds size", size: 5, overlap: 7},
		{name: "negative overlap", size: 5, overlap: -1},
		{name: "zero size", size: 0, overlap: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Split("some text", tt.size, tt.overlap)
			assert.Error(t, err)
		})
	}
}

// TestSplitCoverage verifies every byte of the input appears in at least one
// chunk at its expected offset, each chunk is at most the window size, and
// the chunk count matches ceil(max(L-O, 1) / (W-O)).
func TestSplitCoverage(t *testing.T) {
	const size, overlap = 7, 3
	step := size - overlap

	for length := 1; length <= 60; length++ {
		text := strings.Repeat("x", length)
		chunks, err := Split(text, size, overlap)
		require.NoError(t, err)

		covered := 0
		for i, c := range chunks {
			assert.LessOrEqual(t, len(c), size, "length=%d chunk=%d", length, i)
			start := i * step
			end := start + len(c)
			assert.LessOrEqual(t, start, covered, "gap before chunk %d at length %d", i, length)
			if end > covered {
				covered = end
			}
		}
		assert.Equal(t, length, covered, "length=%d not fully covered", length)

		wantCount := (max(length-overlap, 1) + step - 1) / step
		assert.Len(t, chunks, wantCount, "length=%d", length)
	}
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(""))
	assert.True(t, IsBlank("  \n\t "))
	assert.False(t, IsBlank(" x "))
}
