package dom

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Paths use the downstream store's canonical language: tag steps separated
// by /, a 1-based positional qualifier only when the element has same-tag
// siblings, the root element never qualified. Annotation-tool paths use the
// same segment syntax plus a final text()[k] step addressing the k-th direct
// text node.

var (
	elemSegRe = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9_.-]*)(?:\[(\d+)\])?$`)
	textSegRe = regexp.MustCompile(`^text\(\)(?:\[(\d+)\])?$`)
)

type step struct {
	tag  string // element tag, empty for a text() step
	text bool
	pos  int // 1-based qualifier, 0 when unqualified
}

func (st step) matches(n *html.Node) bool {
	if st.text {
		return n.Type == html.TextNode
	}
	return n.Type == html.ElementNode && n.Data == st.tag
}

// parseSteps splits a path expression into steps. Empty segments (leading
// slash, doubled slashes) are ignored; descent semantics is the caller's
// concern.
func parseSteps(path string) ([]step, error) {
	var steps []step
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		if m := textSegRe.FindStringSubmatch(seg); m != nil {
			st := step{text: true}
			if m[1] != "" {
				st.pos, _ = strconv.Atoi(m[1])
			}
			steps = append(steps, st)
			continue
		}
		m := elemSegRe.FindStringSubmatch(seg)
		if m == nil {
			return nil, fmt.Errorf("bad path segment %q", seg)
		}
		st := step{tag: strings.ToLower(m[1])}
		if m[2] != "" {
			st.pos, _ = strconv.Atoi(m[2])
		}
		steps = append(steps, st)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("empty path")
	}
	return steps, nil
}

// evalSteps walks the child axis level by level and returns every terminal
// match. Contexts may nest; their child sets are disjoint, so no result
// appears twice.
func evalSteps(contexts []*html.Node, steps []step) []*html.Node {
	cur := contexts
	for _, st := range steps {
		var next []*html.Node
		for _, ctx := range cur {
			n := 0
			for c := ctx.FirstChild; c != nil; c = c.NextSibling {
				if !st.matches(c) {
					continue
				}
				n++
				if st.pos == 0 || n == st.pos {
					next = append(next, c)
				}
				if st.pos != 0 && n >= st.pos {
					break
				}
			}
		}
		if len(next) == 0 {
			return nil
		}
		cur = next
	}
	return cur
}

// findFirst evaluates steps against the contexts and picks the match that
// comes first in document order.
func findFirst(contexts []*html.Node, steps []step) *html.Node {
	matches := evalSteps(contexts, steps)
	switch len(matches) {
	case 0:
		return nil
	case 1:
		return matches[0]
	}
	if len(contexts) == 0 {
		return nil
	}
	return firstInDocOrder(docOf(contexts[0]), matches)
}

// CanonicalPath returns the canonical absolute path of an element. For a
// text node, the path of its parent element is returned.
func CanonicalPath(n *html.Node) string {
	if n != nil && n.Type != html.ElementNode {
		n = n.Parent
	}
	var segs []string
	for e := n; e != nil && e.Type == html.ElementNode; e = e.Parent {
		seg := e.Data
		if e.Parent != nil && e.Parent.Type == html.ElementNode {
			if idx, many := tagIndex(e); many {
				seg = fmt.Sprintf("%s[%d]", seg, idx)
			}
		}
		segs = append(segs, seg)
	}
	if len(segs) == 0 {
		return ""
	}
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return "/" + strings.Join(segs, "/")
}

// tagIndex reports the element's 1-based position among same-tag siblings
// and whether any same-tag sibling exists at all.
func tagIndex(e *html.Node) (idx int, many bool) {
	idx = 1
	for s := e.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode && s.Data == e.Data {
			idx++
		}
	}
	if idx > 1 {
		return idx, true
	}
	for s := e.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode && s.Data == e.Data {
			return idx, true
		}
	}
	return idx, false
}

func docOf(n *html.Node) *html.Node {
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}

func firstInDocOrder(doc *html.Node, nodes []*html.Node) *html.Node {
	want := make(map[*html.Node]bool, len(nodes))
	for _, n := range nodes {
		want[n] = true
	}
	var found *html.Node
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if want[n] {
			found = n
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)
	return found
}
