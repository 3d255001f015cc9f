// Package markdown renders the prose sections of a case writeup as HTML.
// It understands paragraphs, headings, bulleted and numbered lists, block
// quotes for court excerpts, links, emphasis and numbered citation markers
// such as [^2] that point at the writeup's sources.
package markdown

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

var (
	reBold     = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reItalic   = regexp.MustCompile(`\*([^*]+)\*`)
	reLink     = regexp.MustCompile(`\[([^\]^]*?)\]\((.*?)\)(\^)?`)
	reCitation = regexp.MustCompile(`\[\^(\d+)\]`)
	reNumbered = regexp.MustCompile(`^\d+[.)]\s`)
)

// SourceAnchor is the fragment id of the n-th (1-based) listed source.
func SourceAnchor(n int) string {
	return "source-" + strconv.Itoa(n)
}

// Markdown returns a component rendering md. Citation markers numbered
// 1..sources become links to the source list; any other marker is left as
// text.
func Markdown(md string, sources int) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		Render(&buf, md, sources)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

type block int

const (
	noBlock block = iota
	paraBlock
	bulletBlock
	numberBlock
	quoteBlock
)

var blockTags = map[block][2]string{
	paraBlock:   {"<p>", "</p>"},
	bulletBlock: {"<ul>", "</ul>"},
	numberBlock: {"<ol>", "</ol>"},
	quoteBlock:  {"<blockquote>", "</blockquote>"},
}

type renderer struct {
	buf     *bytes.Buffer
	open    block
	sources int
}

// enter opens b unless it is already open and reports whether it did.
func (r *renderer) enter(b block) bool {
	if r.open == b {
		return false
	}
	r.close()
	r.buf.WriteString(blockTags[b][0])
	r.open = b
	return true
}

func (r *renderer) close() {
	if r.open != noBlock {
		r.buf.WriteString(blockTags[r.open][1])
		r.open = noBlock
	}
}

func (r *renderer) inline(s string) {
	r.buf.WriteString(Inline(strings.TrimSpace(s), r.sources))
}

// Render writes the HTML for md to buf.
func Render(buf *bytes.Buffer, md string, sources int) {
	r := &renderer{buf: buf, sources: sources}
	for _, raw := range strings.Split(md, "\n") {
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			r.close()
		case strings.HasPrefix(line, "---"):
			r.close()
			buf.WriteString("<hr/>")
		case strings.HasPrefix(line, "### "):
			r.heading("h4", line[4:])
		case strings.HasPrefix(line, "## "):
			r.heading("h3", line[3:])
		case strings.HasPrefix(line, "# "):
			r.heading("h2", line[2:])
		case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "):
			r.enter(bulletBlock)
			r.item(line[2:])
		case reNumbered.MatchString(line):
			r.enter(numberBlock)
			r.item(reNumbered.ReplaceAllString(line, ""))
		case strings.HasPrefix(line, ">"):
			if !r.enter(quoteBlock) {
				buf.WriteString(" ")
			}
			r.inline(strings.TrimPrefix(line, ">"))
		default:
			if !r.enter(paraBlock) {
				buf.WriteString(" ")
			}
			r.inline(line)
		}
	}
	r.close()
}

func (r *renderer) heading(tag, text string) {
	r.close()
	r.buf.WriteString("<" + tag + ">")
	r.inline(text)
	r.buf.WriteString("</" + tag + ">")
}

func (r *renderer) item(text string) {
	r.buf.WriteString("<li>")
	r.inline(text)
	r.buf.WriteString("</li>")
}

// Inline escapes s and applies links, citations and emphasis.
func Inline(s string, sources int) string {
	escaped := html.EscapeString(s)
	escaped = reLink.ReplaceAllStringFunc(escaped, func(m string) string {
		match := reLink.FindStringSubmatch(m)
		href := SafeURL(match[2])
		if href == "" {
			return match[1]
		}
		attrs := `rel="nofollow"`
		if match[3] == "^" {
			attrs = `target="_blank" rel="nofollow noopener noreferrer"`
		}
		return `<a href="` + href + `" ` + attrs + `>` + match[1] + `</a>`
	})
	escaped = reCitation.ReplaceAllStringFunc(escaped, func(m string) string {
		n, err := strconv.Atoi(reCitation.FindStringSubmatch(m)[1])
		if err != nil || n < 1 || n > sources {
			return m
		}
		return `<sup class="citation"><a href="#` + SourceAnchor(n) + `">[` + strconv.Itoa(n) + `]</a></sup>`
	})
	return ApplyOutsideTags(escaped, func(seg string) string {
		seg = reBold.ReplaceAllString(seg, "<strong>$1</strong>")
		return reItalic.ReplaceAllString(seg, "<em>$1</em>")
	})
}

// ApplyOutsideTags applies fn only to text outside HTML tags, so emphasis
// never touches attribute values.
func ApplyOutsideTags(s string, fn func(string) string) string {
	var buf strings.Builder
	for len(s) > 0 {
		lt := strings.Index(s, "<")
		if lt < 0 {
			buf.WriteString(fn(s))
			break
		}
		if lt > 0 {
			buf.WriteString(fn(s[:lt]))
		}
		gt := strings.Index(s[lt:], ">")
		if gt < 0 {
			buf.WriteString(s[lt:])
			break
		}
		buf.WriteString(s[lt : lt+gt+1])
		s = s[lt+gt+1:]
	}
	return buf.String()
}

// SafeURL returns raw escaped for an href when it is relative or uses an
// allowed scheme, and "" otherwise.
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto":
		return html.EscapeString(val)
	default:
		return ""
	}
}
