package rope

import (
	"strings"
	"unicode/utf8"
)

const (
	// MaxLeafBytes is the target maximum size of a leaf chunk.
	MaxLeafBytes = 1024

	// mergeLeafBytes is the threshold below which adjacent leaves are
	// merged during concatenation.
	mergeLeafBytes = MaxLeafBytes / 2
)

// node is either a leaf carrying text or an internal node carrying exactly
// two children. Nodes are immutable once constructed.
type node struct {
	left, right *node
	text        string
	sum         Summary
	height      int
}

func newLeaf(s string) *node {
	return &node{text: s, sum: summarize(s), height: 1}
}

func newInternal(l, r *node) *node {
	h := height(l)
	if rh := height(r); rh > h {
		h = rh
	}
	return &node{left: l, right: r, sum: l.sum.add(r.sum), height: h + 1}
}

func (n *node) isLeaf() bool { return n.left == nil }

func height(n *node) int {
	if n == nil {
		return 0
	}
	return n.height
}

// join concatenates two subtrees keeping the result height-balanced.
// Either side may be nil.
func join(l, r *node) *node {
	if l == nil {
		return r
	}
	if r == nil {
		return l
	}

	// Coalesce small adjacent leaves to keep the tree shallow.
	if l.isLeaf() && r.isLeaf() && l.sum.Bytes+r.sum.Bytes <= mergeLeafBytes {
		return newLeaf(l.text + r.text)
	}

	switch {
	case height(l) > height(r)+1:
		return balance(newInternal(l.left, join(l.right, r)))
	case height(r) > height(l)+1:
		return balance(newInternal(join(l, r.left), r.right))
	default:
		return newInternal(l, r)
	}
}

// balance applies a single or double rotation when the children differ in
// height by more than one. join only ever grows a side by one level per
// unwind, so one rotation is always sufficient.
func balance(n *node) *node {
	bf := height(n.left) - height(n.right)
	switch {
	case bf > 1:
		l := n.left
		if height(l.left) < height(l.right) {
			l = rotateLeft(l)
		}
		return rotateRight(newInternal(l, n.right))
	case bf < -1:
		r := n.right
		if height(r.right) < height(r.left) {
			r = rotateRight(r)
		}
		return rotateLeft(newInternal(n.left, r))
	default:
		return n
	}
}

func rotateRight(n *node) *node {
	l := n.left
	return newInternal(l.left, newInternal(l.right, n.right))
}

func rotateLeft(n *node) *node {
	r := n.right
	return newInternal(newInternal(n.left, r.left), r.right)
}

// splitChars splits the subtree at the given char offset.
// The offset must already be clamped to [0, chars].
func splitChars(n *node, chars int) (*node, *node) {
	if n == nil {
		return nil, nil
	}
	if n.isLeaf() {
		i := charIndexToByte(n.text, chars)
		var l, r *node
		if i > 0 {
			l = newLeaf(n.text[:i])
		}
		if i < len(n.text) {
			r = newLeaf(n.text[i:])
		}
		return l, r
	}
	if chars <= n.left.sum.Chars {
		ll, lr := splitChars(n.left, chars)
		return ll, join(lr, n.right)
	}
	rl, rr := splitChars(n.right, chars-n.left.sum.Chars)
	return join(n.left, rl), rr
}

func (n *node) appendTo(sb *strings.Builder) {
	if n == nil {
		return
	}
	if n.isLeaf() {
		sb.WriteString(n.text)
		return
	}
	n.left.appendTo(sb)
	n.right.appendTo(sb)
}

// sliceChars appends the text in the char range [start, end) to sb.
func (n *node) sliceChars(start, end int, sb *strings.Builder) {
	if n == nil || start >= end {
		return
	}
	if n.isLeaf() {
		i := charIndexToByte(n.text, start)
		j := charIndexToByte(n.text, end)
		sb.WriteString(n.text[i:j])
		return
	}
	leftChars := n.left.sum.Chars
	if start < leftChars {
		hi := end
		if hi > leftChars {
			hi = leftChars
		}
		n.left.sliceChars(start, hi, sb)
	}
	if end > leftChars {
		lo := start - leftChars
		if lo < 0 {
			lo = 0
		}
		n.right.sliceChars(lo, end-leftChars, sb)
	}
}

// charToByte returns the byte offset of the given char offset.
func (n *node) charToByte(chars int) int {
	if n.isLeaf() {
		return charIndexToByte(n.text, chars)
	}
	if chars < n.left.sum.Chars {
		return n.left.charToByte(chars)
	}
	return n.left.sum.Bytes + n.right.charToByte(chars-n.left.sum.Chars)
}

// byteToChar returns the char offset of the scalar value containing the
// given byte offset (offsets inside a multi-byte sequence floor to the
// sequence start).
func (n *node) byteToChar(b int) int {
	if n.isLeaf() {
		c := 0
		for i := 0; i < len(n.text); c++ {
			_, size := utf8.DecodeRuneInString(n.text[i:])
			if b < i+size {
				return c
			}
			i += size
		}
		return c
	}
	if b < n.left.sum.Bytes {
		return n.left.byteToChar(b)
	}
	return n.left.sum.Chars + n.right.byteToChar(b-n.left.sum.Bytes)
}

// charToUTF16 returns the UTF-16 code unit offset of the given char offset.
func (n *node) charToUTF16(chars int) int {
	if n.isLeaf() {
		u, c := 0, 0
		for _, r := range n.text {
			if c >= chars {
				return u
			}
			if r >= 0x10000 {
				u += 2
			} else {
				u++
			}
			c++
		}
		return u
	}
	if chars < n.left.sum.Chars {
		return n.left.charToUTF16(chars)
	}
	return n.left.sum.UTF16 + n.right.charToUTF16(chars-n.left.sum.Chars)
}

// utf16ToChar returns the char offset of the scalar value containing the
// given UTF-16 code unit offset (offsets inside a surrogate pair floor to
// the pair start).
func (n *node) utf16ToChar(u int) int {
	if n.isLeaf() {
		acc, c := 0, 0
		for _, r := range n.text {
			w := 1
			if r >= 0x10000 {
				w = 2
			}
			if u < acc+w {
				return c
			}
			acc += w
			c++
		}
		return c
	}
	if u < n.left.sum.UTF16 {
		return n.left.utf16ToChar(u)
	}
	return n.left.sum.Chars + n.right.utf16ToChar(u-n.left.sum.UTF16)
}
