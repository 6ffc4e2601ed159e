package converters

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"gitlab.com/golang-commonmark/markdown"
)

var (
	outerFenceRe = regexp.MustCompile("(?s)^```[A-Za-z]*[ \t]*\n(.*?)\n?```$")
	htmlTagRe    = regexp.MustCompile(`(?i)<(html|body|table|div|p|h[1-6]|ul|ol)[\s>]`)
)

// HTMLConverter turns generated document text into sanitized HTML.
// Markdown is rendered first; input that is already HTML is only sanitized.
type HTMLConverter struct {
	md     *markdown.Markdown
	policy *bluemonday.Policy
}

func NewHTMLConverter() *HTMLConverter {
	return &HTMLConverter{
		md: markdown.New(
			markdown.HTML(true),
			markdown.Tables(true),
			markdown.Linkify(false),
			markdown.Typographer(false),
			markdown.XHTMLOutput(true),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// Convert returns sanitized HTML for src.
func (c *HTMLConverter) Convert(src string) string {
	src = StripFence(src)
	if strings.TrimSpace(src) == "" {
		return ""
	}
	if !IsHTML(src) {
		src = c.md.RenderToString([]byte(src))
	}
	return strings.TrimSpace(c.policy.Sanitize(src))
}

// StripFence removes a code fence wrapping the whole text.
func StripFence(s string) string {
	s = strings.TrimSpace(s)
	if m := outerFenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

// IsHTML reports whether s already contains block-level HTML markup.
func IsHTML(s string) bool {
	return htmlTagRe.MatchString(s)
}
