package render

import (
	"reflect"
	"strings"
	"testing"

	"github.com/dshills/inkwell/internal/engine/buffer"
)

func TestSplitParagraphs(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []string
	}{
		{"empty", "", nil},
		{"single", "hello world", []string{"hello world"}},
		{"two", "one\n\ntwo", []string{"one", "two"}},
		{"multi line paragraph", "a\nb\n\nc", []string{"a\nb", "c"}},
		{"whitespace blank line", "one\n  \ntwo", []string{"one", "two"}},
		{"leading and trailing blanks", "\n\none\n\n", []string{"one"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, p := range splitParagraphs(tt.source) {
				got = append(got, p.text)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitParagraphRanges(t *testing.T) {
	source := "héllo\n\nworld"
	paras := splitParagraphs(source)
	if len(paras) != 2 {
		t.Fatalf("got %d paragraphs", len(paras))
	}

	p := paras[1]
	if p.charStart != 7 {
		t.Errorf("charStart = %d, want 7", p.charStart)
	}
	if p.byteStart != 8 {
		t.Errorf("byteStart = %d, want 8", p.byteStart)
	}
	if p.text != "world" {
		t.Errorf("text = %q", p.text)
	}
}

func TestRenderPlainParagraph(t *testing.T) {
	c := NewCache()
	out := c.Render("hello world")
	if len(out) != 1 {
		t.Fatalf("got %d paragraphs", len(out))
	}

	p := out[0]
	if p.HTML != "<p>hello world</p>" {
		t.Errorf("HTML = %q", p.HTML)
	}
	if len(p.OffsetMap) != 1 {
		t.Fatalf("OffsetMap has %d entries", len(p.OffsetMap))
	}
	m := p.OffsetMap[0]
	if m.CharRange != (buffer.Range{Start: 0, End: 11}) {
		t.Errorf("CharRange = %v", m.CharRange)
	}
	if m.UTF16Len != 11 {
		t.Errorf("UTF16Len = %d", m.UTF16Len)
	}
	if len(p.SyntaxSpans) != 0 {
		t.Errorf("plain paragraph should have no syntax spans")
	}
}

func TestRenderHeading(t *testing.T) {
	c := NewCache()
	out := c.Render("## Title")
	p := out[0]

	if p.HTML != "<h2>Title</h2>" {
		t.Errorf("HTML = %q", p.HTML)
	}
	if len(p.SyntaxSpans) != 1 {
		t.Fatalf("got %d spans", len(p.SyntaxSpans))
	}
	s := p.SyntaxSpans[0]
	if s.Type != SyntaxBlock {
		t.Errorf("Type = %v, want block", s.Type)
	}
	if s.CharRange != (buffer.Range{Start: 0, End: 3}) {
		t.Errorf("marker range = %v, want [0, 3)", s.CharRange)
	}
	if s.FormattedRange != nil {
		t.Error("heading marker should have no formatted range")
	}
}

func TestRenderBold(t *testing.T) {
	c := NewCache()
	out := c.Render("say **bold** now")
	p := out[0]

	if p.HTML != "<p>say <strong>bold</strong> now</p>" {
		t.Errorf("HTML = %q", p.HTML)
	}
	if len(p.SyntaxSpans) != 2 {
		t.Fatalf("got %d spans, want open and close", len(p.SyntaxSpans))
	}

	open, close := p.SyntaxSpans[0], p.SyntaxSpans[1]
	if open.CharRange != (buffer.Range{Start: 4, End: 6}) {
		t.Errorf("open marker = %v", open.CharRange)
	}
	if close.CharRange != (buffer.Range{Start: 10, End: 12}) {
		t.Errorf("close marker = %v", close.CharRange)
	}
	want := buffer.Range{Start: 4, End: 12}
	if open.FormattedRange == nil || *open.FormattedRange != want {
		t.Errorf("open formatted range = %v, want %v", open.FormattedRange, want)
	}
	if close.FormattedRange == nil || *close.FormattedRange != want {
		t.Errorf("close formatted range = %v, want %v", close.FormattedRange, want)
	}

	// Three leaves: "say ", "bold", " now". Marker chars have no mapping.
	if len(p.OffsetMap) != 3 {
		t.Fatalf("OffsetMap has %d entries", len(p.OffsetMap))
	}
	if p.OffsetMap[1].CharRange != (buffer.Range{Start: 6, End: 10}) {
		t.Errorf("bold leaf range = %v", p.OffsetMap[1].CharRange)
	}
}

func TestRenderInlineCode(t *testing.T) {
	c := NewCache()
	p := c.Render("run `go vet` first")[0]
	if p.HTML != "<p>run <code>go vet</code> first</p>" {
		t.Errorf("HTML = %q", p.HTML)
	}
}

func TestUnpairedMarkerStaysLiteral(t *testing.T) {
	c := NewCache()
	p := c.Render("2 * 3 = 6")[0]
	if strings.Contains(p.HTML, "<em>") {
		t.Errorf("unpaired * must stay literal: %q", p.HTML)
	}
	if len(p.SyntaxSpans) != 0 {
		t.Errorf("got %d spans, want 0", len(p.SyntaxSpans))
	}
}

func TestHTMLEscaping(t *testing.T) {
	c := NewCache()
	p := c.Render("a <b> & c")[0]
	if p.HTML != "<p>a &lt;b&gt; &amp; c</p>" {
		t.Errorf("HTML = %q", p.HTML)
	}
}

func TestCacheReuseOutsideEdit(t *testing.T) {
	source := "first paragraph\n\nsecond paragraph"
	c := NewCache()
	before := c.Render(source)

	// Append text to the second paragraph; the first must be reused
	// byte-identical.
	edited := "first paragraph\n\nsecond paragraph!!"
	after := c.Update(edited, Edit{Start: 33, OldEnd: 33, NewEnd: 35})

	if len(after) != 2 {
		t.Fatalf("got %d paragraphs", len(after))
	}
	if !reflect.DeepEqual(before[0], after[0]) {
		t.Errorf("untouched paragraph was not reused:\nbefore %+v\nafter  %+v", before[0], after[0])
	}
	if reflect.DeepEqual(before[1], after[1]) {
		t.Error("edited paragraph should have been re-rendered")
	}
}

func TestCacheShiftsTrailingParagraphs(t *testing.T) {
	source := "first\n\nsecond"
	c := NewCache()
	before := c.Render(source)

	// Insert "xx" into the first paragraph.
	edited := "fixxrst\n\nsecond"
	after := c.Update(edited, Edit{Start: 2, OldEnd: 2, NewEnd: 4})

	if len(after) != 2 {
		t.Fatalf("got %d paragraphs", len(after))
	}

	// The trailing paragraph keeps its identity and HTML, shifted by 2.
	if after[1].ID != before[1].ID {
		t.Error("shifted paragraph should keep its ID")
	}
	if after[1].HTML != before[1].HTML {
		t.Error("shifted paragraph should not re-render HTML")
	}
	wantRange := before[1].CharRange.Shift(2)
	if after[1].CharRange != wantRange {
		t.Errorf("CharRange = %v, want %v", after[1].CharRange, wantRange)
	}
	if after[1].ByteRange != before[1].ByteRange.Shift(2) {
		t.Errorf("ByteRange = %v", after[1].ByteRange)
	}
}

func TestBlankLineInsertSplitsParagraph(t *testing.T) {
	source := "one two"
	c := NewCache()
	c.Render(source)

	// Replace the space with a blank line: the paragraph splits in two.
	edited := "one\n\ntwo"
	after := c.Update(edited, Edit{Start: 3, OldEnd: 4, NewEnd: 5})

	if len(after) != 2 {
		t.Fatalf("got %d paragraphs, want split into 2", len(after))
	}
	if after[0].HTML != "<p>one</p>" || after[1].HTML != "<p>two</p>" {
		t.Errorf("split render = %q, %q", after[0].HTML, after[1].HTML)
	}
}

func TestBlankLineDeleteMergesParagraphs(t *testing.T) {
	source := "one\n\ntwo"
	c := NewCache()
	c.Render(source)

	edited := "one two"
	after := c.Update(edited, Edit{Start: 3, OldEnd: 5, NewEnd: 4})

	if len(after) != 1 {
		t.Fatalf("got %d paragraphs, want merged into 1", len(after))
	}
	if after[0].HTML != "<p>one two</p>" {
		t.Errorf("merged render = %q", after[0].HTML)
	}
}

func TestParagraphAt(t *testing.T) {
	c := NewCache()
	c.Render("one\n\ntwo")

	p, ok := c.ParagraphAt(6)
	if !ok {
		t.Fatal("ParagraphAt(6) found nothing")
	}
	if p.HTML != "<p>two</p>" {
		t.Errorf("ParagraphAt(6) = %q", p.HTML)
	}
}

func TestSourceHashStable(t *testing.T) {
	if hashSource("abc") != hashSource("abc") {
		t.Error("hash must be deterministic")
	}
	if hashSource("abc") == hashSource("abd") {
		t.Error("different content should hash differently")
	}
}
