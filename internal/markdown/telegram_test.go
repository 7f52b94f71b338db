// ABOUTME: Tests for the Telegram HTML renderer
// ABOUTME: Verifies only the supported tag subset is emitted and raw HTML is escaped

package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToTelegramHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "hello world", "hello world"},
		{"empty", "", ""},
		{"bold", "some **bold** text", "some <b>bold</b> text"},
		{"italic", "some *italic* text", "some <i>italic</i> text"},
		{"inline code", "run `go build` now", "run <code>go build</code> now"},
		{"heading becomes bold", "# Title\n\nbody", "<b>Title</b>\n\nbody"},
		{"link", "[docs](https://example.com)", `<a href="https://example.com">docs</a>`},
		{"html in text is escaped", "a < b && c > d", "a &lt; b &amp;&amp; c &gt; d"},
		{"raw html literal", "<script>alert(1)</script>", "&lt;script&gt;alert(1)&lt;/script&gt;"},
		{"unordered list", "- one\n- two", "• one\n• two"},
		{"ordered list", "1. first\n2. second", "1. first\n2. second"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToTelegramHTML(tt.in))
		})
	}
}

func TestToTelegramHTML_CodeBlock(t *testing.T) {
	got := ToTelegramHTML("```\nfmt.Println(\"hi\")\n```")
	assert.Equal(t, "<pre>fmt.Println(\"hi\")\n</pre>", got)
}

func TestToTelegramHTML_CodeBlockEscapesContents(t *testing.T) {
	got := ToTelegramHTML("```\n<tag> & friends\n```")
	assert.Equal(t, "<pre>&lt;tag&gt; &amp; friends\n</pre>", got)
}

func TestToTelegramHTML_OnlyAllowedTags(t *testing.T) {
	// A kitchen-sink document must never emit tags Telegram rejects.
	in := "# Head\n\npara with **b** and *i* and `c`\n\n> quoted\n\n- item\n\n[link](https://x.test)\n\n---\n\n```\ncode\n```"
	got := ToTelegramHTML(in)

	for _, forbidden := range []string{"<p>", "<h1>", "<ul>", "<li>", "<blockquote>", "<hr", "<em>", "<strong>"} {
		assert.NotContains(t, got, forbidden)
	}
	assert.Contains(t, got, "<b>")
	assert.Contains(t, got, "<i>")
	assert.Contains(t, got, "<code>")
	assert.Contains(t, got, "<pre>")
	assert.Contains(t, got, `<a href="https://x.test">`)
}

func TestToTelegramHTML_SoftBreakPreserved(t *testing.T) {
	got := ToTelegramHTML("line one\nline two")
	assert.Equal(t, "line one\nline two", got)
}

func TestToTelegramHTML_LinkDestinationEscaped(t *testing.T) {
	got := ToTelegramHTML(`[x](https://example.com/?a=1&b=2)`)
	assert.True(t, strings.HasPrefix(got, `<a href="https://example.com/?a=1&amp;b=2">`), got)
}
