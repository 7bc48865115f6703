// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieve

// windows splits text into overlapping fixed-size windows so that every
// chunk fits within the embedding context bound. Sizes are in runes, not
// bytes, so multi-byte characters never split.
func windows(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= size {
		return []string{text}
	}

	step := size - overlap
	if step <= 0 {
		step = size
	}

	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}
