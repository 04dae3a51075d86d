package rag

import "strings"

const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// SplitText splits extracted document text into overlapping chunks sized for
// embedding. Windows prefer to break at a sentence end, line end or word
// boundary (whichever sits closest to the window's right edge), but a break
// point is only accepted when it keeps more than half the window; otherwise
// the hard cutoff stands so a stray early space cannot produce a tiny chunk.
//
// overlap >= chunkSize is legal: the one-character progress floor still
// guarantees termination, just with heavily overlapping chunks.
func SplitText(text string, chunkSize, overlap int) []string {
	if chunkSize < 1 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if len(text) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + chunkSize
		atEnd := false
		if end >= len(text) {
			end = len(text)
			atEnd = true
		} else {
			if cut := findBreak(text, start, end); cut > 0 {
				end = cut
			}
		}

		chunk := strings.TrimSpace(text[start:end])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if atEnd {
			break
		}

		next := end - overlap
		if next <= start {
			// progress floor: one character forward no matter the overlap
			next = start + 1
		}
		start = next
	}
	return chunks
}

// findBreak scans backward from the window's right edge for the closest
// period, newline or space, and returns the cut position just after it.
// Returns 0 when no acceptable break exists within the back half of the
// window.
func findBreak(text string, start, end int) int {
	for i := end; i > start; i-- {
		switch text[i-1] {
		case '.', '\n', ' ':
			// only accept a break that keeps more than half the window
			if float64(i-start) > float64(end-start)*0.5 {
				return i
			}
			return 0
		}
	}
	return 0
}
