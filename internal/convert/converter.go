// Package convert normalizes raw HTML so the annotation tool and the
// downstream parser ingest byte-identical documents. Annotation offsets are
// measured against the browser's rendering, which collapses whitespace; the
// normalizer applies the same collapse once, up front, so neither side ever
// sees the whitespace the other dropped.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/net/html"

	"github.com/irgroup/labelstudio-to-fonduer/internal/model"
)

var (
	wsRun     = regexp.MustCompile(`\s+`)
	dupSuffix = regexp.MustCompile(`\s*\(\d+\)$`)
)

// rawTextTags keep their whitespace untouched.
var rawTextTags = map[string]bool{
	"script":   true,
	"style":    true,
	"pre":      true,
	"textarea": true,
}

// Converter rewrites HTML into the canonical form both sides ingest.
type Converter struct {
	flatten []string
	log     *slog.Logger
}

// NewConverter builds a converter. cfg.Flatten lists tags spliced away
// entirely, children hoisted into their place.
func NewConverter(cfg model.ConvertConfig, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{flatten: cfg.Flatten, log: logger}
}

// Normalize parses content and renders it back with flattened tags spliced
// out, comments dropped and whitespace runs collapsed to single spaces.
// Normalizing already normalized content is the identity.
func (c *Converter) Normalize(content string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	for _, tag := range c.flatten {
		doc.Find(tag).Each(func(_ int, sel *goquery.Selection) {
			splice(sel.Nodes[0])
		})
	}

	root := doc.Get(0)
	dropComments(root)
	mergeTextNodes(root)
	collapseWhitespace(root)

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}

// CleanName strips the copy suffix browsers append to repeated downloads,
// returning the filename the document is known by on both sides.
func CleanName(filename string) string {
	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	return dupSuffix.ReplaceAllString(name, "") + ext
}

// Result reports one converted file.
type Result struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Dir normalizes every file under in matching the doublestar pattern and
// writes the results flat into out under their cleaned names.
func (c *Converter) Dir(ctx context.Context, in, out, pattern string) ([]Result, error) {
	matches, err := doublestar.Glob(os.DirFS(in), pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	sort.Strings(matches)
	if err := os.MkdirAll(out, 0o755); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		source := filepath.Join(in, m)
		data, err := os.ReadFile(source)
		if err != nil {
			return results, fmt.Errorf("read %s: %w", source, err)
		}
		normalized, err := c.Normalize(string(data))
		if err != nil {
			return results, fmt.Errorf("normalize %s: %w", source, err)
		}
		target := filepath.Join(out, CleanName(filepath.Base(m)))
		if err := os.WriteFile(target, []byte(normalized), 0o644); err != nil {
			return results, fmt.Errorf("write %s: %w", target, err)
		}
		c.log.Info("document converted", "source", source, "target", target)
		results = append(results, Result{Source: source, Target: target})
	}
	return results, nil
}

// splice replaces n with its children.
func splice(n *html.Node) {
	parent := n.Parent
	if parent == nil {
		return
	}
	for child := n.FirstChild; child != nil; {
		next := child.NextSibling
		n.RemoveChild(child)
		parent.InsertBefore(child, n)
		child = next
	}
	parent.RemoveChild(n)
}

func dropComments(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.CommentNode {
			n.RemoveChild(c)
		} else {
			dropComments(c)
		}
		c = next
	}
}

// mergeTextNodes joins adjacent text siblings left behind by splicing, so
// whitespace collapse sees runs that straddled a removed tag.
func mergeTextNodes(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			for c.NextSibling != nil && c.NextSibling.Type == html.TextNode {
				c.Data += c.NextSibling.Data
				n.RemoveChild(c.NextSibling)
			}
			continue
		}
		mergeTextNodes(c)
	}
}

func collapseWhitespace(n *html.Node) {
	if n.Type == html.ElementNode && rawTextTags[n.Data] {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			c.Data = wsRun.ReplaceAllString(c.Data, " ")
			continue
		}
		collapseWhitespace(c)
	}
}
