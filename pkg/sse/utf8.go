package sse

import "unicode/utf8"

// CompleteRunes returns the length of the longest prefix of b that does not
// end in a truncated multi-byte UTF-8 sequence. Readers that cut a byte stream
// at arbitrary offsets use it to hold back the head of a split character
// until the rest has arrived.
func CompleteRunes(b []byte) int {
	n := len(b)
	for i := n - 1; i >= 0 && i >= n-(utf8.UTFMax-1); i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if utf8.FullRune(b[i:]) {
			return n
		}
		return i
	}
	return n
}
