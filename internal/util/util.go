// internal/util/util.go
package util

import (
	"strings"
	"unicode/utf8"
)

// TruncateRunes truncates a string to a maximum number of runes,
// appending an ellipsis if truncated.
func TruncateRunes(text string, maxRunes int) string {
	if maxRunes < 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxRunes]) + "…"
}

// ChunkRunes splits text into consecutive pieces of at most size runes.
// A size below one returns the whole text as a single piece.
func ChunkRunes(text string, size int) []string {
	if text == "" {
		return nil
	}
	if size < 1 {
		return []string{text}
	}
	runes := []rune(text)
	chunks := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// ChunkRunesAt splits text into pieces of about size runes, starting a new
// piece at every occurrence of marker and never cutting through one. A size
// below one cuts only at markers.
func ChunkRunesAt(text string, size int, marker string) []string {
	if text == "" {
		return nil
	}
	var chunks []string
	for start := 0; start < len(text); {
		end := len(text)
		if size >= 1 {
			end = start
			for n := 0; n < size && end < len(text); n++ {
				_, w := utf8.DecodeRuneInString(text[end:])
				end += w
			}
		}
		if marker != "" {
			if strings.HasPrefix(text[start:], marker) {
				end = max(end, start+len(marker))
			}
			if i := strings.Index(text[start+1:], marker); i != -1 && start+1+i < end {
				end = start + 1 + i
			}
		}
		chunks = append(chunks, text[start:end])
		start = end
	}
	return chunks
}

// WrapToWidth wraps the given text to a specified width, breaking long words.
func WrapToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		words := strings.Fields(line)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		var cur strings.Builder
		count := 0
		for _, w := range words {
			wLen := utf8.RuneCountInString(w)
			if count > 0 && count+1+wLen <= width {
				cur.WriteByte(' ')
				cur.WriteString(w)
				count += 1 + wLen
				continue
			}
			if count > 0 {
				out = append(out, cur.String())
				cur.Reset()
				count = 0
			}
			if wLen <= width {
				cur.WriteString(w)
				count = wLen
				continue
			}
			pieces := ChunkRunes(w, width)
			out = append(out, pieces[:len(pieces)-1]...)
			last := pieces[len(pieces)-1]
			cur.WriteString(last)
			count = utf8.RuneCountInString(last)
		}
		if count > 0 {
			out = append(out, cur.String())
		}
	}
	return strings.Join(out, "\n")
}
