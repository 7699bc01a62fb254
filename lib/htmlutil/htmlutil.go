package htmlutil

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// elements whose text content is never visible on the page
var invisible = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
}

func collectStrings(node *html.Node, out *[]string) {
	if node == nil {
		return
	}
	switch node.Type {
	case html.TextNode:
		text := strings.TrimSpace(node.Data)
		if text != "" {
			*out = append(*out, text)
		}
		return
	case html.ElementNode:
		if invisible[node.DataAtom] {
			return
		}
	case html.CommentNode, html.DoctypeNode:
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectStrings(child, out)
	}
}

// PageText reduces a document to its visible text: every text node is trimmed,
// empty ones are dropped and the rest are joined with single spaces.
func PageText(doc *goquery.Document) string {
	var parts []string
	for _, n := range doc.Nodes {
		collectStrings(n, &parts)
	}
	return strings.Join(parts, " ")
}
