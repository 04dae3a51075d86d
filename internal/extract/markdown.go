package extract

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// markdownExtractor strips markup so headings, prose, list items and code
// blocks all land as plain text paragraphs. Embedding the raw markdown would
// waste tokens on syntax and skew similarity toward documents heavy in
// formatting characters.
type markdownExtractor struct{}

func (markdownExtractor) Extract(data []byte) (string, error) {
	md := goldmark.New()
	reader := text.NewReader(data)
	doc := md.Parser().Parse(reader)

	var parts []string
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if part := renderBlock(node, data); part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func renderBlock(node ast.Node, source []byte) string {
	switch node.(type) {
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		return blockLines(node, source)
	case *ast.List:
		var items []string
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			var itemParts []string
			for child := item.FirstChild(); child != nil; child = child.NextSibling() {
				if part := renderBlock(child, source); part != "" {
					itemParts = append(itemParts, part)
				}
			}
			if len(itemParts) > 0 {
				items = append(items, "- "+strings.Join(itemParts, " "))
			}
		}
		return strings.Join(items, "\n")
	case *ast.Blockquote:
		var parts []string
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			if part := renderBlock(child, source); part != "" {
				parts = append(parts, part)
			}
		}
		return strings.Join(parts, "\n")
	default:
		return inlineText(node, source)
	}
}

// blockLines concatenates the raw source lines of a code block.
func blockLines(node ast.Node, source []byte) string {
	var sb strings.Builder
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		sb.Write(line.Value(source))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// inlineText walks a block's inline children and collects their text,
// dropping link targets, emphasis markers and image syntax.
func inlineText(node ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte('\n')
			}
		case *ast.CodeSpan:
			for child := t.FirstChild(); child != nil; child = child.NextSibling() {
				if txt, ok := child.(*ast.Text); ok {
					sb.Write(txt.Segment.Value(source))
				}
			}
			return ast.WalkSkipChildren, nil
		case *ast.Image:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

func init() {
	register("text/markdown", markdownExtractor{})
	register("text/x-markdown", markdownExtractor{})
}
