package markdown

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func render(md string, sources int) string {
	var buf bytes.Buffer
	Render(&buf, md, sources)
	return buf.String()
}

func TestInlineEmphasis(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"**bold**", "<strong>bold</strong>"},
		{"*italic*", "<em>italic</em>"},
		{"the **Court** held", "the <strong>Court</strong> held"},
		{"**bold *italic* text**", "<strong>bold <em>italic</em> text</strong>"},
		{"<script>", "&lt;script&gt;"},
	}
	for _, tt := range tests {
		if got := Inline(tt.input, 0); got != tt.expected {
			t.Errorf("Inline(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestInlineLinks(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{
			"[ruling](https://kenyalaw.org/case_view/2017_petition_1)",
			`<a href="https://kenyalaw.org/case_view/2017_petition_1" rel="nofollow">ruling</a>`,
		},
		{
			"see [ICC](https://icc-cpi.int)^ docket",
			`see <a href="https://icc-cpi.int" target="_blank" rel="nofollow noopener noreferrer">ICC</a> docket`,
		},
		{"[bad](javascript:alert(1))", "bad)"},
		{"[rel](/blog/x/)", `<a href="/blog/x/" rel="nofollow">rel</a>`},
	}
	for _, tt := range tests {
		if got := Inline(tt.input, 0); got != tt.expected {
			t.Errorf("Inline(%q)\n  got:  %q\n  want: %q", tt.input, got, tt.expected)
		}
	}
}

func TestInlineCitations(t *testing.T) {
	got := Inline("as reported[^2] and[^3]", 2)
	want := `as reported<sup class="citation"><a href="#source-2">[2]</a></sup> and[^3]`
	if got != want {
		t.Errorf("Inline = %q, want %q", got, want)
	}
	if got := Inline("[^0]", 5); got != "[^0]" {
		t.Errorf("zero citation = %q", got)
	}
}

func TestRenderBlocks(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"paragraph joins lines", "one\ntwo", "<p>one two</p>"},
		{"paragraphs split on blank", "one\n\ntwo", "<p>one</p><p>two</p>"},
		{"headings shift down", "# A\n## B\n### C", "<h2>A</h2><h3>B</h3><h4>C</h4>"},
		{"bullets", "- a\n* b", "<ul><li>a</li><li>b</li></ul>"},
		{"numbers", "1. a\n2) b", "<ol><li>a</li><li>b</li></ol>"},
		{"quote", "> The petition\n> is allowed.", "<blockquote>The petition is allowed.</blockquote>"},
		{"list then paragraph", "- a\ntext", "<ul><li>a</li></ul><p>text</p>"},
		{"rule", "a\n---\nb", "<p>a</p><hr/><p>b</p>"},
		{"crlf", "a\r\nb\r\n", "<p>a b</p>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := render(tt.input, 0); got != tt.expected {
				t.Errorf("Render(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestMarkdownComponent(t *testing.T) {
	var buf bytes.Buffer
	if err := Markdown("Held[^1].", 1).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), `href="#source-1"`) {
		t.Errorf("component output = %q", buf.String())
	}
}
