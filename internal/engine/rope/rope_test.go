package rope

import (
	"math/rand"
	"strings"
	"testing"
)

func TestEmptyRope(t *testing.T) {
	r := New()
	if !r.IsEmpty() {
		t.Error("new rope should be empty")
	}
	if r.LenBytes() != 0 || r.LenChars() != 0 || r.LenUTF16() != 0 {
		t.Error("empty rope should have zero lengths")
	}
	if r.String() != "" {
		t.Error("empty rope should stringify to empty")
	}
}

func TestFromString(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		chars int
		bytes int
		utf16 int
	}{
		{"ascii", "hello", 5, 5, 5},
		{"empty", "", 0, 0, 0},
		{"multibyte", "héllo", 5, 6, 5},
		{"emoji", "a🎉b", 3, 6, 4},
		{"polar bear", "Hello 🐻‍❄️ World", 16, 25, 17},
		{"newlines", "a\nb\nc", 5, 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := FromString(tt.text)
			if got := r.String(); got != tt.text {
				t.Errorf("String() = %q, want %q", got, tt.text)
			}
			if got := r.LenChars(); got != tt.chars {
				t.Errorf("LenChars() = %d, want %d", got, tt.chars)
			}
			if got := r.LenBytes(); got != tt.bytes {
				t.Errorf("LenBytes() = %d, want %d", got, tt.bytes)
			}
			if got := r.LenUTF16(); got != tt.utf16 {
				t.Errorf("LenUTF16() = %d, want %d", got, tt.utf16)
			}
		})
	}
}

func TestInsertChars(t *testing.T) {
	tests := []struct {
		name   string
		base   string
		offset int
		text   string
		want   string
	}{
		{"into empty", "", 0, "cat", "cat"},
		{"at start", "world", 0, "hello ", "hello world"},
		{"at end", "hello", 5, " world", "hello world"},
		{"middle", "held", 3, "lo wor", "hello word"},
		{"after emoji", "a🎉b", 2, "X", "a🎉Xb"},
		{"offset clamped", "ab", 99, "c", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := FromString(tt.base).InsertChars(tt.offset, tt.text)
			if got := r.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeleteChars(t *testing.T) {
	tests := []struct {
		name       string
		base       string
		start, end int
		want       string
	}{
		{"prefix", "hello world", 0, 6, "world"},
		{"suffix", "hello world", 5, 11, "hello"},
		{"middle", "hello world", 2, 9, "herld"},
		{"all", "hello", 0, 5, ""},
		{"empty range", "hello", 3, 3, "hello"},
		{"emoji", "a🎉b", 1, 2, "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := FromString(tt.base).DeleteChars(tt.start, tt.end)
			if got := r.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSliceChars(t *testing.T) {
	r := FromString("Hello 🐻‍❄️ World")
	tests := []struct {
		start, end int
		want       string
	}{
		{0, 5, "Hello"},
		{6, 10, "🐻‍❄️"},
		{11, 16, "World"},
		{0, 0, ""},
		{-5, 2, "He"},
	}
	for _, tt := range tests {
		if got := r.SliceChars(tt.start, tt.end); got != tt.want {
			t.Errorf("SliceChars(%d, %d) = %q, want %q", tt.start, tt.end, got, tt.want)
		}
	}
}

func TestCharByteRoundTrip(t *testing.T) {
	text := "Hello 🐻‍❄️ World"
	r := FromString(text)

	if got := r.CharToByte(6); got != 6 {
		t.Errorf("CharToByte(6) = %d, want 6", got)
	}
	if got := r.CharToByte(10); got != 19 {
		t.Errorf("CharToByte(10) = %d, want 19", got)
	}

	// Round trip must hold for every valid char offset.
	for c := 0; c <= r.LenChars(); c++ {
		b := r.CharToByte(c)
		if back := r.ByteToChar(b); back != c {
			t.Errorf("ByteToChar(CharToByte(%d)) = %d", c, back)
		}
	}
}

// Hosts can hand back offsets inside a multi-byte sequence or a
// surrogate pair; both must floor to the containing char, never past it.
func TestMidSequenceOffsetsFloor(t *testing.T) {
	r := FromString("🐻x")

	for b := 0; b < 4; b++ {
		if got := r.ByteToChar(b); got != 0 {
			t.Errorf("ByteToChar(%d) = %d, want 0", b, got)
		}
	}
	if got := r.ByteToChar(4); got != 1 {
		t.Errorf("ByteToChar(4) = %d, want 1", got)
	}
	if got := r.ByteToChar(5); got != 2 {
		t.Errorf("ByteToChar(5) = %d, want 2", got)
	}

	for u := 0; u < 2; u++ {
		if got := r.UTF16ToChar(u); got != 0 {
			t.Errorf("UTF16ToChar(%d) = %d, want 0", u, got)
		}
	}
	if got := r.UTF16ToChar(2); got != 1 {
		t.Errorf("UTF16ToChar(2) = %d, want 1", got)
	}
	if got := r.UTF16ToChar(3); got != 2 {
		t.Errorf("UTF16ToChar(3) = %d, want 2", got)
	}
}

func TestCharUTF16RoundTrip(t *testing.T) {
	r := FromString("a🎉b🐻c")
	for c := 0; c <= r.LenChars(); c++ {
		u := r.CharToUTF16(c)
		if back := r.UTF16ToChar(u); back != c {
			t.Errorf("UTF16ToChar(CharToUTF16(%d)) = %d", c, back)
		}
	}
	// Mid-surrogate offsets floor to the pair start.
	if got := r.UTF16ToChar(2); got != 1 {
		t.Errorf("UTF16ToChar(2) = %d, want 1", got)
	}
}

func TestLargeTextBalance(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 5000; i++ {
		sb.WriteString("the quick brown fox jumps over the lazy dog\n")
	}
	text := sb.String()

	r := FromString(text)
	if r.String() != text {
		t.Fatal("round trip failed for large text")
	}

	// Repeated edits must not degenerate the tree.
	for i := 0; i < 200; i++ {
		r = r.InsertChars(r.LenChars()/2, "x")
	}
	if h := r.Height(); h > 40 {
		t.Errorf("tree height %d suggests unbalanced rope", h)
	}
}

func TestRandomizedEditsMatchString(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ref := ""
	r := New()

	runes := []rune("abcdeé🎉\n")
	for i := 0; i < 500; i++ {
		if rng.Intn(3) > 0 || len(ref) == 0 {
			pos := rng.Intn(len([]rune(ref)) + 1)
			text := string(runes[rng.Intn(len(runes))])
			rr := []rune(ref)
			ref = string(rr[:pos]) + text + string(rr[pos:])
			r = r.InsertChars(pos, text)
		} else {
			rr := []rune(ref)
			start := rng.Intn(len(rr) + 1)
			end := start + rng.Intn(len(rr)-start+1)
			ref = string(rr[:start]) + string(rr[end:])
			r = r.DeleteChars(start, end)
		}
	}

	if got := r.String(); got != ref {
		t.Errorf("rope diverged from reference: got %q want %q", got, ref)
	}
	if got := r.LenChars(); got != len([]rune(ref)) {
		t.Errorf("LenChars() = %d, want %d", got, len([]rune(ref)))
	}
}

func TestConcatAndSplit(t *testing.T) {
	a := FromString("hello ")
	b := FromString("world")
	c := a.Concat(b)
	if c.String() != "hello world" {
		t.Errorf("Concat = %q", c.String())
	}

	l, r := c.SplitChars(5)
	if l.String() != "hello" || r.String() != " world" {
		t.Errorf("SplitChars(5) = %q, %q", l.String(), r.String())
	}
}
