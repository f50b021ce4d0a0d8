package dom

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/irgroup/labelstudio-to-fonduer/internal/model"
	"golang.org/x/net/html"
)

var tbodyRe = regexp.MustCompile(`tbody(\[\d+\])?/`)

// Resolver absolutizes annotation-tool paths against a document tree.
//
// The tool reports paths relative to its rendering root, pointing at the
// text node a selection started in. The downstream store keys sentences by
// the canonical absolute path of the element whose flow owns that text.
// Resolve bridges the two path languages.
type Resolver struct {
	wrappers map[string]bool
}

// NewResolver builds a resolver. wrappers lists the inline tags whose text
// the downstream parser folds into the enclosing container; resolved paths
// never end at one of them.
func NewResolver(wrappers []string) *Resolver {
	m := make(map[string]bool, len(wrappers))
	for _, w := range wrappers {
		m[strings.ToLower(w)] = true
	}
	return &Resolver{wrappers: m}
}

// Resolve turns a relative path into the canonical absolute path of the
// container element holding the addressed text. The relative path is
// evaluated as a descendant search from the document root; the first match
// in document order wins. When nothing matches, the path is retried once
// with table-body segments removed: the annotation tool's renderer
// synthesizes tbody wrappers that the raw document never had.
func (r *Resolver) Resolve(t *Tree, relPath string) (string, error) {
	node := r.locate(t, relPath)
	if node == nil {
		if stripped := tbodyRe.ReplaceAllString(relPath, ""); stripped != relPath {
			node = r.locate(t, stripped)
		}
	}
	if node == nil {
		return "", fmt.Errorf("%q: %w", relPath, model.ErrPathUnresolved)
	}

	el := r.container(node)
	for el.Parent != nil && el.Parent.Type == html.ElementNode && r.wrappers[el.Data] {
		el = el.Parent
	}
	return CanonicalPath(el), nil
}

func (r *Resolver) locate(t *Tree, relPath string) *html.Node {
	steps, err := parseSteps(relPath)
	if err != nil {
		return nil
	}
	contexts := []*html.Node{t.doc}
	t.WalkElements(func(n *html.Node) bool {
		contexts = append(contexts, n)
		return true
	})
	return findFirst(contexts, steps)
}

// container maps the located node to the element whose flow owns its text.
func (r *Resolver) container(n *html.Node) *html.Node {
	if n.Type != html.TextNode {
		return n
	}
	if prev := n.PrevSibling; prev != nil && prev.Type != html.TextNode {
		// trailing text of an inline child belongs to the enclosing flow
		return n.Parent
	}
	p := n.Parent
	if p != nil && p.Parent != nil && p.Parent.Type == html.ElementNode && hasTail(p) {
		// the element's own flow continues past it, so the selection landed
		// inside an inline child of the real container
		return p.Parent
	}
	return p
}

// hasTail reports whether meaningful text follows the element among its
// siblings. Whitespace-only runs are formatting, not flow.
func hasTail(e *html.Node) bool {
	for s := e.NextSibling; s != nil && s.Type == html.TextNode; s = s.NextSibling {
		if strings.TrimSpace(s.Data) != "" {
			return true
		}
	}
	return false
}
