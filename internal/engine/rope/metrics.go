package rope

// Summary aggregates the size of a span of text in every coordinate space
// the editor cares about.
type Summary struct {
	// Bytes is the UTF-8 encoded length.
	Bytes int

	// Chars is the number of Unicode scalar values.
	Chars int

	// UTF16 is the number of UTF-16 code units.
	UTF16 int

	// Newlines is the number of '\n' bytes.
	Newlines int
}

// add combines two summaries.
func (s Summary) add(other Summary) Summary {
	return Summary{
		Bytes:    s.Bytes + other.Bytes,
		Chars:    s.Chars + other.Chars,
		UTF16:    s.UTF16 + other.UTF16,
		Newlines: s.Newlines + other.Newlines,
	}
}

// summarize computes the summary of a string in a single pass.
func summarize(s string) Summary {
	var sum Summary
	sum.Bytes = len(s)
	for _, r := range s {
		sum.Chars++
		if r >= 0x10000 {
			sum.UTF16 += 2 // surrogate pair
		} else {
			sum.UTF16++
		}
		if r == '\n' {
			sum.Newlines++
		}
	}
	return sum
}

// charIndexToByte returns the byte index of the char-th scalar value in s.
// charIndex must be in [0, chars(s)].
func charIndexToByte(s string, charIndex int) int {
	if charIndex <= 0 {
		return 0
	}
	n := 0
	for i := range s {
		if n == charIndex {
			return i
		}
		n++
	}
	return len(s)
}
