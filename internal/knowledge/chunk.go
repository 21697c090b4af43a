package knowledge

import "strings"

// SplitText splits text into overlapping chunks for ingestion.
// size is the maximum chunk length in bytes; overlap is how many bytes of
// the previous chunk are repeated at the start of the next one, preserving
// context across chunk boundaries.
//
// Where possible the split point is pulled back to the last sentence or
// whitespace boundary within the chunk so that sentences are not cut in
// half mid-word. Whitespace-only chunks are dropped.
func SplitText(text string, size, overlap int) []string {
	if size <= 0 {
		return nil
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var chunks []string
	start := 0

	for start < len(text) {
		end := start + size
		if end >= len(text) {
			if chunk := strings.TrimSpace(text[start:]); chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		// Prefer breaking at a sentence end, then any whitespace. Only
		// accept break points in the second half of the chunk so a stray
		// early newline cannot degenerate chunking.
		cut := end
		if idx := lastBreak(text[start:end]); idx > size/2 {
			cut = start + idx
		}

		if chunk := strings.TrimSpace(text[start:cut]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := cut - overlap
		if next <= start {
			// overlap >= chunk advance; fall back to a full step so the
			// loop always makes progress
			next = start + (size - overlap)
		}
		start = next
	}

	return chunks
}

// lastBreak returns the index just past the last sentence terminator in s,
// or the index of the last whitespace if no terminator is found, or -1.
func lastBreak(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		switch s[i] {
		case '.', '!', '?', '\n':
			return i + 1
		}
	}
	return strings.LastIndexAny(s, " \t")
}
