// Package ingest segments normalized HTML documents into sentence rows the
// aligner can query: one row per sentence, carrying the canonical path of
// the element whose text flow produced it.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/jdkato/prose/v2"
	"golang.org/x/net/html"

	"github.com/irgroup/labelstudio-to-fonduer/internal/dom"
	"github.com/irgroup/labelstudio-to-fonduer/internal/store"
)

// skipTags hold no prose; their subtrees are never segmented.
var skipTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// DocumentWriter is the write side of the store the ingester needs.
type DocumentWriter interface {
	SaveDocument(ctx context.Context, doc store.Document, sentences []store.Sentence) (int64, error)
}

// Ingester writes documents and their sentences into the store.
type Ingester struct {
	store    DocumentWriter
	wrappers map[string]bool
	log      *slog.Logger
}

// NewIngester builds an ingester. wrappers must match the set the aligner
// resolves with, or paths recorded here will never be queried.
func NewIngester(st DocumentWriter, wrappers []string, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = slog.Default()
	}
	w := make(map[string]bool, len(wrappers))
	for _, t := range wrappers {
		w[strings.ToLower(t)] = true
	}
	return &Ingester{store: st, wrappers: w, log: logger}
}

// Result reports one ingested document.
type Result struct {
	DocumentID int64  `json:"document_id"`
	Name       string `json:"name"`
	Sentences  int    `json:"sentences"`
}

// File ingests a single document, replacing any previous version.
func (i *Ingester) File(ctx context.Context, path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read document: %w", err)
	}
	tree, err := dom.ParseString(string(data))
	if err != nil {
		return Result{}, fmt.Errorf("parse %s: %w", path, err)
	}

	rows, err := i.segment(tree)
	if err != nil {
		return Result{}, fmt.Errorf("segment %s: %w", path, err)
	}

	base := filepath.Base(path)
	doc := store.Document{
		Name:     strings.TrimSuffix(base, filepath.Ext(base)),
		Filename: base,
		Text:     string(data),
	}
	id, err := i.store.SaveDocument(ctx, doc, rows)
	if err != nil {
		return Result{}, fmt.Errorf("save %s: %w", doc.Name, err)
	}

	i.log.Info("document ingested", "name", doc.Name, "sentences", len(rows))
	return Result{DocumentID: id, Name: doc.Name, Sentences: len(rows)}, nil
}

// Dir ingests every file under root matching the doublestar pattern, in
// lexical order.
func (i *Ingester) Dir(ctx context.Context, root, pattern string) ([]Result, error) {
	matches, err := doublestar.Glob(os.DirFS(root), pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	sort.Strings(matches)

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := i.File(ctx, filepath.Join(root, m))
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// segment walks the tree and cuts each element's text flow into sentences.
// Wrapper elements never become containers: their text belongs to the
// enclosing element's flow, mirroring how resolved annotation paths never
// end at a wrapper.
func (i *Ingester) segment(tree *dom.Tree) ([]store.Sentence, error) {
	var rows []store.Sentence
	var segErr error
	pos := 0
	tree.WalkElements(func(el *html.Node) bool {
		if segErr != nil || skipTags[el.Data] || i.wrappers[el.Data] {
			return false
		}
		flow := i.flowText(el)
		if strings.TrimSpace(flow) == "" {
			return true
		}
		doc, err := prose.NewDocument(flow)
		if err != nil {
			segErr = fmt.Errorf("element %s: %w", dom.CanonicalPath(el), err)
			return false
		}
		xpath := dom.CanonicalPath(el)
		for _, s := range doc.Sentences() {
			text := strings.TrimSpace(s.Text)
			if text == "" {
				continue
			}
			rows = append(rows, store.Sentence{Position: pos, XPath: xpath, Text: text})
			pos++
		}
		return true
	})
	return rows, segErr
}

// flowText concatenates el's direct text children plus the full text of
// wrapper children, in document order. Non-wrapper child elements are left
// out; they produce their own rows.
func (i *Ingester) flowText(el *html.Node) string {
	var b strings.Builder
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode:
			b.WriteString(c.Data)
		case c.Type == html.ElementNode && i.wrappers[c.Data]:
			b.WriteString(dom.TextContent(c))
		}
	}
	return b.String()
}
