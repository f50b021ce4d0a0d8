package dom

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Tree wraps one parsed HTML document. Parsing always synthesizes the
// html/head/body scaffolding, so every tree is rooted at /html.
type Tree struct {
	doc *html.Node
}

// Parse builds a tree from an HTML stream.
func Parse(r io.Reader) (*Tree, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Tree{doc: doc}, nil
}

// ParseString builds a tree from an HTML string.
func ParseString(s string) (*Tree, error) {
	return Parse(strings.NewReader(s))
}

// Doc returns the document node.
func (t *Tree) Doc() *html.Node { return t.doc }

// Root returns the root element (html), or nil for an empty document.
func (t *Tree) Root() *html.Node {
	for c := t.doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

// Find locates the element addressed by a canonical absolute path, as
// produced by CanonicalPath. Returns nil when no element matches.
func (t *Tree) Find(absPath string) *html.Node {
	steps, err := parseSteps(absPath)
	if err != nil {
		return nil
	}
	return findFirst([]*html.Node{t.doc}, steps)
}

// WalkElements visits every element in document order. Returning false from
// the visitor stops descent into that element's subtree.
func (t *Tree) WalkElements(visit func(*html.Node) bool) {
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && !visit(n) {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(t.doc)
}

// TextContent returns the concatenation of every text node under n, in
// document order, with no separators added.
func TextContent(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}
