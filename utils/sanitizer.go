package utils

import (
	"bytes"
	"html"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	// StrictPolicy removes all markup
	StrictPolicy *bluemonday.Policy
	// PreviewPolicy allows the formatting a drafted email can reasonably contain
	PreviewPolicy *bluemonday.Policy

	markdown = goldmark.New()
)

func init() {
	StrictPolicy = bluemonday.StrictPolicy()

	PreviewPolicy = bluemonday.NewPolicy()
	PreviewPolicy.AllowElements("p", "br", "strong", "em", "u", "s", "code", "pre")
	PreviewPolicy.AllowElements("ul", "ol", "li", "blockquote", "hr")
	PreviewPolicy.AllowElements("h1", "h2", "h3", "h4", "h5", "h6")
	PreviewPolicy.AllowAttrs("href").OnElements("a")
	PreviewPolicy.AllowURLSchemes("http", "https", "mailto")
	PreviewPolicy.RequireParseableURLs(true)
	PreviewPolicy.RequireNoFollowOnLinks(true)
}

// StripHTML removes all HTML tags from content and returns plain text, with
// entities decoded so a template can escape it once.
func StripHTML(content string) string {
	return html.UnescapeString(StrictPolicy.Sanitize(content))
}

// RenderPreview turns a generated draft (plain text, possibly with light
// markdown) into sanitized HTML for display.
func RenderPreview(text string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		Log.Warn("Preview render failed, falling back to escaped text: %v", err)
		return template.HTML("<pre>" + template.HTMLEscapeString(text) + "</pre>")
	}
	return template.HTML(PreviewPolicy.Sanitize(buf.String()))
}
