package loader

import (
	"strings"
)

// Fragment is one chunk produced by splitting extracted text.
type Fragment struct {
	Index int
	Start int
	End   int
	Text  string
}

// FragmentText splits text into chunks of size characters with overlap
// characters shared between consecutive chunks. The overlap keeps a
// concept that straddles a chunk boundary fully present in at least one
// chunk. Chunks that are empty after trimming whitespace are dropped;
// indexes stay contiguous over the kept chunks.
func FragmentText(text string, size, overlap int) []Fragment {
	if size <= 0 || len(text) == 0 {
		return nil
	}
	step := size - overlap
	if step <= 0 {
		step = size
	}

	var fragments []Fragment
	for i := 0; i < len(text); i += step {
		end := i + size
		if end > len(text) {
			end = len(text)
		}
		chunk := text[i:end]
		if strings.TrimSpace(chunk) != "" {
			fragments = append(fragments, Fragment{
				Index: len(fragments),
				Start: i,
				End:   end,
				Text:  chunk,
			})
		}
		if end == len(text) {
			break
		}
	}
	return fragments
}
