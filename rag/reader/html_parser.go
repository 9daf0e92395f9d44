package reader

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aqua777/docquery/schema"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLParser extracts the visible text of an HTML document. The <title> goes
// into metadata.
type HTMLParser struct {
	// TagsToRemove are elements dropped with their whole subtree.
	TagsToRemove map[atom.Atom]bool
}

// NewHTMLParser creates an HTMLParser that skips script, style, noscript and
// template content.
func NewHTMLParser() *HTMLParser {
	return &HTMLParser{
		TagsToRemove: map[atom.Atom]bool{
			atom.Script:   true,
			atom.Style:    true,
			atom.Noscript: true,
			atom.Template: true,
		},
	}
}

var htmlBlockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true, atom.Tr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Article: true, atom.Section: true, atom.Header: true, atom.Footer: true,
	atom.Pre: true, atom.Blockquote: true, atom.Table: true, atom.Ul: true, atom.Ol: true,
	atom.Title: true, atom.Td: true, atom.Th: true, atom.Hr: true,
}

func (p *HTMLParser) Parse(ctx context.Context, blob Blob) ([]schema.Node, error) {
	doc, err := html.Parse(bytes.NewReader(blob.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var (
		sb    strings.Builder
		title string
	)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if p.TagsToRemove[n.DataAtom] {
				return
			}
			if n.DataAtom == atom.Title && title == "" && n.FirstChild != nil {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && htmlBlockElements[n.DataAtom] {
			sb.WriteByte('\n')
		}
	}
	walk(doc)

	var metadata map[string]interface{}
	if title != "" {
		metadata = map[string]interface{}{schema.MetadataTitle: title}
	}
	return []schema.Node{newDocumentNode(normalizeLines(sb.String()), metadata)}, nil
}

// normalizeLines collapses runs of whitespace inside each line and drops
// blank lines.
func normalizeLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

var _ Parser = (*HTMLParser)(nil)
