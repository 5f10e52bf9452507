package rope

import (
	"strings"
	"unicode/utf8"
)

// Rope is an immutable balanced rope. The zero value is an empty rope.
type Rope struct {
	root *node
}

// New creates an empty rope.
func New() Rope {
	return Rope{}
}

// FromString creates a rope from a string.
func FromString(s string) Rope {
	if len(s) == 0 {
		return Rope{}
	}
	return Rope{root: buildFromString(s)}
}

// buildFromString splits s into leaf chunks at rune boundaries and builds
// a balanced tree bottom-up.
func buildFromString(s string) *node {
	var leaves []*node
	for len(s) > 0 {
		end := len(s)
		if end > MaxLeafBytes {
			end = MaxLeafBytes
			// Back up to a rune boundary.
			for end > 0 && !utf8.RuneStart(s[end]) {
				end--
			}
			if end == 0 {
				end = len(s)
			}
		}
		leaves = append(leaves, newLeaf(s[:end]))
		s = s[end:]
	}

	nodes := leaves
	for len(nodes) > 1 {
		var parents []*node
		for i := 0; i < len(nodes); i += 2 {
			if i+1 < len(nodes) {
				parents = append(parents, newInternal(nodes[i], nodes[i+1]))
			} else {
				parents = append(parents, nodes[i])
			}
		}
		nodes = parents
	}
	return nodes[0]
}

// Summary returns the aggregated metrics for the entire rope.
func (r Rope) Summary() Summary {
	if r.root == nil {
		return Summary{}
	}
	return r.root.sum
}

// LenBytes returns the UTF-8 byte length.
func (r Rope) LenBytes() int { return r.Summary().Bytes }

// LenChars returns the number of Unicode scalar values.
func (r Rope) LenChars() int { return r.Summary().Chars }

// LenUTF16 returns the number of UTF-16 code units.
func (r Rope) LenUTF16() int { return r.Summary().UTF16 }

// IsEmpty returns true if the rope contains no text.
func (r Rope) IsEmpty() bool { return r.root == nil || r.root.sum.Bytes == 0 }

// String returns the full text. Use sparingly for large ropes.
func (r Rope) String() string {
	if r.root == nil {
		return ""
	}
	var sb strings.Builder
	sb.Grow(r.root.sum.Bytes)
	r.root.appendTo(&sb)
	return sb.String()
}

// SliceChars returns the text in the char range [start, end).
// Offsets are clamped to the valid range.
func (r Rope) SliceChars(start, end int) string {
	if r.root == nil {
		return ""
	}
	start, end = clampRange(start, end, r.root.sum.Chars)
	if start >= end {
		return ""
	}
	var sb strings.Builder
	r.root.sliceChars(start, end, &sb)
	return sb.String()
}

// InsertChars inserts text at the given char offset.
// Returns a new rope; the original is unchanged.
func (r Rope) InsertChars(offset int, text string) Rope {
	if len(text) == 0 {
		return r
	}
	if r.root == nil {
		return FromString(text)
	}
	offset = clamp(offset, 0, r.root.sum.Chars)
	left, right := splitChars(r.root, offset)
	return Rope{root: join(join(left, buildFromString(text)), right)}
}

// DeleteChars removes the char range [start, end).
// Returns a new rope; the original is unchanged.
func (r Rope) DeleteChars(start, end int) Rope {
	if r.root == nil {
		return r
	}
	start, end = clampRange(start, end, r.root.sum.Chars)
	if start >= end {
		return r
	}
	left, rest := splitChars(r.root, start)
	_, right := splitChars(rest, end-start)
	return Rope{root: join(left, right)}
}

// SplitChars splits the rope at the given char offset.
func (r Rope) SplitChars(offset int) (Rope, Rope) {
	if r.root == nil {
		return Rope{}, Rope{}
	}
	offset = clamp(offset, 0, r.root.sum.Chars)
	l, rt := splitChars(r.root, offset)
	return Rope{root: l}, Rope{root: rt}
}

// Concat concatenates two ropes.
func (r Rope) Concat(other Rope) Rope {
	return Rope{root: join(r.root, other.root)}
}

// CharToByte converts a char offset to a byte offset.
func (r Rope) CharToByte(chars int) int {
	if r.root == nil {
		return 0
	}
	return r.root.charToByte(clamp(chars, 0, r.root.sum.Chars))
}

// ByteToChar converts a byte offset to a char offset. Offsets inside a
// multi-byte sequence floor to the start of that scalar value.
func (r Rope) ByteToChar(bytes int) int {
	if r.root == nil {
		return 0
	}
	return r.root.byteToChar(clamp(bytes, 0, r.root.sum.Bytes))
}

// CharToUTF16 converts a char offset to a UTF-16 code unit offset.
func (r Rope) CharToUTF16(chars int) int {
	if r.root == nil {
		return 0
	}
	return r.root.charToUTF16(clamp(chars, 0, r.root.sum.Chars))
}

// UTF16ToChar converts a UTF-16 code unit offset to a char offset. Offsets
// inside a surrogate pair floor to the pair start.
func (r Rope) UTF16ToChar(u int) int {
	if r.root == nil {
		return 0
	}
	return r.root.utf16ToChar(clamp(u, 0, r.root.sum.UTF16))
}

// Height returns the height of the rope tree. Useful for testing balance.
func (r Rope) Height() int {
	return height(r.root)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampRange(start, end, max int) (int, int) {
	start = clamp(start, 0, max)
	end = clamp(end, 0, max)
	if end < start {
		end = start
	}
	return start, end
}
