package post

import (
	"bytes"
	"html"
	"strings"
	"unicode/utf8"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/microcosm-cc/bluemonday"
	"github.com/niklasfasching/go-org/org"
)

// Content formats accepted by the editor.
const (
	FormatHTML = "html"
	FormatOrg  = "org"
)

var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "b", "i", "u", "strong", "em", "h2", "h3", "h4",
		"ul", "ol", "li", "blockquote", "a", "img", "div", "iframe", "span",
		"pre", "code")
	p.AllowAttrs("href", "target").OnElements("a")
	p.AllowAttrs("src", "alt", "width", "height").OnElements("img")
	p.AllowAttrs("src", "width", "height", "frameborder", "allowfullscreen",
		"allow", "scrolling").OnElements("iframe")
	p.AllowAttrs("class").Globally()
	p.AllowStandardURLs()
	p.AllowRelativeURLs(true)
	p.RequireNoFollowOnLinks(false)
	return p
}

// Sanitize strips everything outside the editor's allow-list from html.
func Sanitize(html string) string {
	return policy.Sanitize(html)
}

var textOnly = newTextPolicy()

func newTextPolicy() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}

// Excerpt returns the plain text of content cut to at most n characters.
func Excerpt(content string, n int) string {
	text := html.UnescapeString(textOnly.Sanitize(content))
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:n])) + "…"
}

// RenderOrg converts org-mode source to HTML, highlighting code blocks.
func RenderOrg(source string) (string, error) {
	doc := org.New().Parse(strings.NewReader(source), "")
	return doc.Write(newHTMLWriter())
}

// Prepare turns editor input in the given format into sanitized HTML ready
// to store.
func Prepare(content, format string) (string, error) {
	if format == FormatOrg {
		html, err := RenderOrg(content)
		if err != nil {
			return "", err
		}
		content = html
	}
	return Sanitize(content), nil
}

func newHTMLWriter() *org.HTMLWriter {
	w := org.NewHTMLWriter()
	w.HighlightCodeBlock = func(source, lang string, inline bool, params map[string]string) string {
		var buf bytes.Buffer
		lexer := lexers.Get(lang)
		if lexer == nil {
			lexer = lexers.Fallback
		}
		iterator, err := lexer.Tokenise(nil, source)
		if err != nil {
			return source
		}
		formatter := chromahtml.New(chromahtml.WithClasses(true))
		if err := formatter.Format(&buf, styles.Get("friendly"), iterator); err != nil {
			return source
		}
		return buf.String()
	}
	return w
}
