package messaging

import (
	"strings"
	"unicode/utf8"
)

// Per-provider body limits in characters.
const (
	WhatsAppMaxMessageLength = 4096
	TwilioMaxMessageLength   = 1600
)

// SplitMessage breaks body into parts of at most limit characters. It prefers to cut
// after a paragraph break, then a line break, then a space, and only cuts inside a
// word when a part has none of those.
func SplitMessage(body string, limit int) []string {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil
	}
	if limit <= 0 {
		return []string{body}
	}

	var parts []string
	for utf8.RuneCountInString(body) > limit {
		window := body[:byteIndexOfRune(body, limit)]
		cut := -1
		for _, sep := range []string{"\n\n", "\n", " "} {
			if i := strings.LastIndex(window, sep); i > 0 {
				cut = i
				break
			}
		}
		if cut < 0 {
			cut = len(window)
		}
		if part := strings.TrimSpace(body[:cut]); part != "" {
			parts = append(parts, part)
		}
		body = strings.TrimSpace(body[cut:])
	}
	if body != "" {
		parts = append(parts, body)
	}
	return parts
}

// byteIndexOfRune returns the byte offset where the n-th rune of s begins.
func byteIndexOfRune(s string, n int) int {
	count := 0
	for i := range s {
		if count == n {
			return i
		}
		count++
	}
	return len(s)
}
