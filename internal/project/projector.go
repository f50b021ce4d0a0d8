// Package project converts downstream relation candidates back into
// annotation-tool tasks, so extractor output can be reviewed and corrected
// in the same interface the gold annotations came from.
package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/irgroup/labelstudio-to-fonduer/internal/align"
	"github.com/irgroup/labelstudio-to-fonduer/internal/cache"
	"github.com/irgroup/labelstudio-to-fonduer/internal/dom"
	"github.com/irgroup/labelstudio-to-fonduer/internal/model"
	"github.com/irgroup/labelstudio-to-fonduer/internal/store"
)

// Annotation-tool labeling config names the projected results bind to.
const (
	fromName = "ner"
	toName   = "text"
	spanType = "hypertextlabels"
)

// ProjectionStore is the read side of the store the projector needs.
type ProjectionStore interface {
	DocumentID(ctx context.Context, name string) (int64, error)
	DocumentText(ctx context.Context, id int64) (string, error)
	SentenceByID(ctx context.Context, id int64) (store.Sentence, error)
}

// Task is one import task in the annotation tool's predictions format.
type Task struct {
	ID          string       `json:"id"`
	Data        TaskData     `json:"data"`
	Annotations []any        `json:"annotations"`
	Predictions []Prediction `json:"predictions"`
}

// TaskData carries the document HTML the tool renders.
type TaskData struct {
	Text string `json:"text"`
}

// Prediction is one model's result set over a task.
type Prediction struct {
	ModelVersion string        `json:"model_version"`
	Score        float64       `json:"score"`
	Result       []ResultEntry `json:"result"`
}

// ResultEntry is one entry of a prediction result: either a relation
// between two span ids or a labeled hypertext span.
type ResultEntry struct {
	ID        string     `json:"id,omitempty"`
	FromID    string     `json:"from_id,omitempty"`
	ToID      string     `json:"to_id,omitempty"`
	Direction string     `json:"direction,omitempty"`
	FromName  string     `json:"from_name,omitempty"`
	ToName    string     `json:"to_name,omitempty"`
	Type      string     `json:"type"`
	Score     float64    `json:"score,omitempty"`
	Value     *SpanValue `json:"value,omitempty"`
}

// SpanValue locates a labeled span inside the rendered document: element
// paths relative to the task root plus rune offsets, end exclusive.
type SpanValue struct {
	Start           string   `json:"start"`
	End             string   `json:"end"`
	StartOffset     int      `json:"startOffset"`
	EndOffset       int      `json:"endOffset"`
	Text            string   `json:"text"`
	HypertextLabels []string `json:"hypertextlabels"`
}

// Projector maps candidate spans from store sentences back onto document
// paths and offsets the annotation tool understands.
type Projector struct {
	store        ProjectionStore
	trees        *cache.Trees // nil disables caching
	log          *slog.Logger
	modelVersion string
}

// NewProjector builds a projector. trees may be nil.
func NewProjector(st ProjectionStore, trees *cache.Trees, modelVersion string, logger *slog.Logger) *Projector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Projector{store: st, trees: trees, log: logger, modelVersion: modelVersion}
}

// Project builds one task per document, documents ordered by first
// appearance in cands. Candidates that cannot be projected are recorded as
// failures; the relation entry is still emitted so partially projected
// pairs remain visible for review.
func (p *Projector) Project(ctx context.Context, cands []model.Candidate) ([]Task, []model.Failure, error) {
	var order []string
	byDoc := make(map[string][]model.Candidate)
	for _, c := range cands {
		if _, ok := byDoc[c.Document]; !ok {
			order = append(order, c.Document)
		}
		byDoc[c.Document] = append(byDoc[c.Document], c)
	}

	var tasks []Task
	var failures []model.Failure
	for _, name := range order {
		task, fails, err := p.projectDocument(ctx, name, byDoc[name])
		if err != nil {
			return nil, nil, err
		}
		failures = append(failures, fails...)
		if task != nil {
			tasks = append(tasks, *task)
		}
	}
	return tasks, failures, nil
}

func (p *Projector) projectDocument(ctx context.Context, name string, cands []model.Candidate) (*Task, []model.Failure, error) {
	docID, err := p.store.DocumentID(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		f := model.Failure{Kind: model.FailureNoCandidate, Document: name, Detail: "document not in store"}
		p.warn(f)
		return nil, []model.Failure{f}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	html, err := p.store.DocumentText(ctx, docID)
	if err != nil {
		return nil, nil, fmt.Errorf("document %s text: %w", name, err)
	}
	tree, err := p.tree(html)
	if err != nil {
		return nil, nil, fmt.Errorf("parse document %s: %w", name, err)
	}

	var result []ResultEntry
	var failures []model.Failure
	var score float64
	for _, c := range cands {
		score += c.Confidence
		ids := [2]string{uuid.NewString(), uuid.NewString()}
		result = append(result, ResultEntry{
			Type:      "relation",
			FromID:    ids[0],
			ToID:      ids[1],
			Direction: "right",
		})
		for i, span := range c.Spans {
			entry, fail := p.projectSpan(ctx, tree, name, ids[i], span, c.Confidence)
			if fail != nil {
				p.warn(*fail)
				failures = append(failures, *fail)
				continue
			}
			result = append(result, *entry)
		}
	}
	if len(cands) > 0 {
		score /= float64(len(cands))
	}

	task := &Task{
		ID:          name,
		Data:        TaskData{Text: html},
		Annotations: []any{},
		Predictions: []Prediction{{
			ModelVersion: p.modelVersion,
			Score:        score,
			Result:       result,
		}},
	}
	return task, failures, nil
}

// projectSpan maps one candidate span onto a path and offsets valid against
// the document HTML. Offsets come back exclusive at the end, matching the
// annotation tool, while candidate offsets arrive end inclusive.
func (p *Projector) projectSpan(ctx context.Context, tree *dom.Tree, docName, id string, span model.CandidateSpan, confidence float64) (*ResultEntry, *model.Failure) {
	sent, err := p.store.SentenceByID(ctx, span.SentenceID)
	if err != nil {
		return nil, &model.Failure{
			Kind:     model.FailureNoCandidate,
			Document: docName,
			Label:    span.Label,
			Text:     span.Text,
			Detail:   fmt.Sprintf("sentence %d not in store", span.SentenceID),
		}
	}

	container := tree.Find(sent.XPath)
	if container == nil {
		return nil, &model.Failure{
			Kind:     model.FailurePathUnresolved,
			Document: docName,
			Label:    span.Label,
			Path:     sent.XPath,
			Text:     span.Text,
		}
	}

	delta, err := align.Reconcile(span.Text, dom.TextContent(container), span.Start)
	if err != nil {
		return nil, &model.Failure{
			Kind:     model.FailureFragmentNotFound,
			Document: docName,
			Label:    span.Label,
			Path:     sent.XPath,
			Text:     span.Text,
			Detail:   err.Error(),
		}
	}

	relPath := strings.TrimPrefix(sent.XPath, "/html/body")
	return &ResultEntry{
		ID:       id,
		FromName: fromName,
		ToName:   toName,
		Type:     spanType,
		Score:    confidence,
		Value: &SpanValue{
			Start:           relPath,
			End:             relPath,
			StartOffset:     span.Start + delta,
			EndOffset:       span.End + delta + 1,
			Text:            span.Text,
			HypertextLabels: []string{titleLabel(span.Label)},
		},
	}, nil
}

// titleLabel uppercases the first rune: the labeling config declares labels
// title-cased, while downstream extractors report them in lowercase.
func titleLabel(label string) string {
	r := []rune(label)
	if len(r) == 0 {
		return label
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func (p *Projector) warn(f model.Failure) {
	p.log.Warn("projection failed",
		"kind", f.Kind,
		"document", f.Document,
		"label", f.Label,
		"detail", f.Detail)
}

func (p *Projector) tree(html string) (*dom.Tree, error) {
	if p.trees != nil {
		if t, ok := p.trees.Get(html); ok {
			return t, nil
		}
	}
	t, err := dom.ParseString(html)
	if err != nil {
		return nil, err
	}
	if p.trees != nil {
		p.trees.Set(html, t)
	}
	return t, nil
}
