// ABOUTME: Renders model-reply markdown into Telegram's supported HTML subset
// ABOUTME: Walks the goldmark AST and emits only b/i/code/pre/a tags, escaping everything else

package markdown

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// ToTelegramHTML converts markdown to HTML limited to the tags Telegram's
// sendMessage accepts. Unsupported markdown constructs degrade to plain
// text rather than being dropped, so the reply never loses content.
func ToTelegramHTML(md string) string {
	src := []byte(md)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	r := &renderer{src: src}
	r.renderChildren(doc)
	return strings.TrimSpace(r.b.String())
}

type renderer struct {
	src []byte
	b   strings.Builder
}

func (r *renderer) renderChildren(n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		r.renderNode(c)
	}
}

func (r *renderer) renderNode(n ast.Node) {
	switch n := n.(type) {
	case *ast.Heading:
		// Telegram has no heading tags; bold is the closest rendering.
		r.b.WriteString("<b>")
		r.renderChildren(n)
		r.b.WriteString("</b>\n\n")

	case *ast.Paragraph:
		r.renderChildren(n)
		r.b.WriteString("\n\n")

	case *ast.TextBlock:
		r.renderChildren(n)
		r.b.WriteString("\n")

	case *ast.Blockquote:
		r.renderChildren(n)

	case *ast.List:
		r.renderList(n)

	case *ast.FencedCodeBlock:
		r.renderCodeBlock(n.BaseBlock)

	case *ast.CodeBlock:
		r.renderCodeBlock(n.BaseBlock)

	case *ast.HTMLBlock:
		// Raw HTML from the model is shown literally, not interpreted.
		r.renderRawLines(n.BaseBlock)
		r.b.WriteString("\n")

	case *ast.ThematicBreak:
		r.b.WriteString("\n")

	case *ast.Emphasis:
		tag := "i"
		if n.Level == 2 {
			tag = "b"
		}
		r.b.WriteString("<" + tag + ">")
		r.renderChildren(n)
		r.b.WriteString("</" + tag + ">")

	case *ast.CodeSpan:
		r.b.WriteString("<code>")
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				r.b.WriteString(htmlEscaper.Replace(string(t.Segment.Value(r.src))))
			}
		}
		r.b.WriteString("</code>")

	case *ast.Link:
		fmt.Fprintf(&r.b, `<a href="%s">`, attrEscaper.Replace(string(n.Destination)))
		r.renderChildren(n)
		r.b.WriteString("</a>")

	case *ast.AutoLink:
		url := string(n.URL(r.src))
		fmt.Fprintf(&r.b, `<a href="%s">%s</a>`, attrEscaper.Replace(url), htmlEscaper.Replace(url))

	case *ast.Image:
		// No image support over sendMessage; keep the alt text.
		r.renderChildren(n)

	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			r.b.WriteString(htmlEscaper.Replace(string(seg.Value(r.src))))
		}

	case *ast.Text:
		r.b.WriteString(htmlEscaper.Replace(string(n.Segment.Value(r.src))))
		if n.HardLineBreak() || n.SoftLineBreak() {
			r.b.WriteString("\n")
		}

	case *ast.String:
		r.b.WriteString(htmlEscaper.Replace(string(n.Value)))

	default:
		r.renderChildren(n)
	}
}

func (r *renderer) renderList(list *ast.List) {
	index := list.Start
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		if list.IsOrdered() {
			fmt.Fprintf(&r.b, "%d. ", index)
			index++
		} else {
			r.b.WriteString("• ")
		}
		r.renderChildren(item)
	}
	r.b.WriteString("\n")
}

func (r *renderer) renderCodeBlock(n ast.BaseBlock) {
	r.b.WriteString("<pre>")
	r.renderRawLines(n)
	r.b.WriteString("</pre>\n\n")
}

func (r *renderer) renderRawLines(n ast.BaseBlock) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		r.b.WriteString(htmlEscaper.Replace(string(seg.Value(r.src))))
	}
}
