package align

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/irgroup/labelstudio-to-fonduer/internal/cache"
	"github.com/irgroup/labelstudio-to-fonduer/internal/dom"
	"github.com/irgroup/labelstudio-to-fonduer/internal/model"
	"github.com/irgroup/labelstudio-to-fonduer/internal/store"
)

// SentenceStore is the read side of the downstream store the engine needs.
type SentenceStore interface {
	DocumentID(ctx context.Context, name string) (int64, error)
	FindSentences(ctx context.Context, docID int64, xpath, needle string) ([]store.Sentence, error)
	SentencesAt(ctx context.Context, docID int64, xpath string) ([]store.Sentence, error)
}

// Engine aligns annotation entities and relations with downstream sentences.
//
// Alignment is conservative: an entity matching zero or several sentences is
// recorded as a failure rather than guessed at, favoring false negatives
// over silent misalignment. Failures never abort a run; store errors do.
type Engine struct {
	store     SentenceStore
	resolver  *dom.Resolver
	trees     *cache.Trees // nil disables caching
	ambiguous string
	log       *slog.Logger
}

// NewEngine builds an engine. trees may be nil.
func NewEngine(st SentenceStore, cfg model.AlignConfig, trees *cache.Trees, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:     st,
		resolver:  dom.NewResolver(cfg.Wrappers),
		trees:     trees,
		ambiguous: cfg.Ambiguous,
		log:       logger,
	}
}

// Result collects everything one alignment run produced. Slices keep input
// order, so the same export against the same store yields identical results.
type Result struct {
	Correspondences []model.Correspondence `json:"correspondences"`
	Pairs           []model.GoldPair       `json:"pairs"`
	Candidates      []model.Correspondence `json:"candidates"` // every sentence considered
	Failures        []model.Failure        `json:"failures"`
}

// AlignExport aligns every document of the export. Per-item failures are
// recorded on the result; only store errors are returned.
func (e *Engine) AlignExport(ctx context.Context, exp *model.Export) (*Result, error) {
	res := &Result{}
	for _, doc := range exp.Documents {
		if err := e.alignDocument(ctx, doc, res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// AlignEntity aligns a single entity against an already parsed tree.
func (e *Engine) AlignEntity(ctx context.Context, tree *dom.Tree, ent *model.Entity) (model.Correspondence, error) {
	corr, _, err := e.alignEntity(ctx, tree, ent)
	return corr, err
}

func (e *Engine) alignDocument(ctx context.Context, doc *model.Document, res *Result) error {
	start := time.Now()
	defer func() { alignDuration.Observe(time.Since(start).Seconds()) }()

	tree, err := e.tree(doc.HTML)
	if err != nil {
		f := model.Failure{Kind: model.FailureMalformedExport, Document: doc.Name, Detail: err.Error()}
		e.recordFailure(res, f)
		return nil
	}

	aligned := make(map[*model.Entity]model.Correspondence, len(doc.Entities))
	for _, ent := range doc.Entities {
		corr, considered, err := e.alignEntity(ctx, tree, ent)
		res.Candidates = append(res.Candidates, considered...)
		if err != nil {
			var f *model.Failure
			if !errors.As(err, &f) {
				return err
			}
			e.recordFailure(res, *f)
			continue
		}
		aligned[ent] = corr
		res.Correspondences = append(res.Correspondences, corr)
		alignedTotal.Inc()
	}

	for _, rel := range doc.Relations {
		from, okFrom := aligned[rel.From]
		to, okTo := aligned[rel.To]
		if !okFrom || !okTo {
			e.log.Warn("relation dropped, endpoint not aligned",
				"document", doc.Name, "from", rel.From.Label, "to", rel.To.Label)
			relationsDropped.Inc()
			continue
		}
		if from.DocumentID != to.DocumentID {
			f := model.Failure{
				Kind:     model.FailureCrossDocumentRelation,
				Document: doc.Name,
				Detail:   fmt.Sprintf("%s vs %s", from.Document, to.Document),
			}
			e.recordFailure(res, f)
			relationsDropped.Inc()
			continue
		}
		res.Pairs = append(res.Pairs, model.GoldPair{From: from, To: to, Direction: rel.Direction})
	}
	return nil
}

// alignEntity resolves the entity's path and matches it against the store.
// The second return value lists every sentence that contained the entity
// text at the resolved path, matched or not.
func (e *Engine) alignEntity(ctx context.Context, tree *dom.Tree, ent *model.Entity) (model.Correspondence, []model.Correspondence, error) {
	absPath, err := e.resolver.Resolve(tree, ent.Path)
	if err != nil {
		return model.Correspondence{}, nil, &model.Failure{
			Kind:     model.FailurePathUnresolved,
			Document: ent.Document,
			Label:    ent.Label,
			Path:     ent.Path,
			Text:     ent.Text,
		}
	}

	docID, err := e.store.DocumentID(ctx, ent.Document)
	if errors.Is(err, store.ErrNotFound) {
		return model.Correspondence{}, nil, &model.Failure{
			Kind:     model.FailureNoCandidate,
			Document: ent.Document,
			Label:    ent.Label,
			Path:     absPath,
			Detail:   "document not in store",
		}
	}
	if err != nil {
		return model.Correspondence{}, nil, err
	}

	needle := NormalizeSpaces(ent.Text)
	sents, err := e.store.FindSentences(ctx, docID, absPath, needle)
	if err != nil {
		return model.Correspondence{}, nil, err
	}

	considered := make([]model.Correspondence, 0, len(sents))
	for _, s := range sents {
		considered = append(considered, e.correspondence(ent, docID, absPath, s))
	}

	switch {
	case len(sents) == 0:
		// say whether the path itself is empty or just misses the text;
		// the two point at different ingestion problems
		at, err := e.store.SentencesAt(ctx, docID, absPath)
		if err != nil {
			return model.Correspondence{}, nil, err
		}
		detail := "no sentences at path"
		if len(at) > 0 {
			detail = fmt.Sprintf("text not found in %d sentence(s) at path", len(at))
		}
		return model.Correspondence{}, nil, &model.Failure{
			Kind:     model.FailureNoCandidate,
			Document: ent.Document,
			Label:    ent.Label,
			Path:     absPath,
			Text:     ent.Text,
			Detail:   detail,
		}
	case len(sents) > 1 && e.ambiguous != model.AmbiguousLowestUnit:
		return model.Correspondence{}, considered, &model.Failure{
			Kind:     model.FailureAmbiguousCandidate,
			Document: ent.Document,
			Label:    ent.Label,
			Path:     absPath,
			Text:     ent.Text,
			Detail:   fmt.Sprintf("%d sentences match", len(sents)),
		}
	}

	// sentences arrive ordered by id, so under the lowest-unit policy the
	// first one is the deterministic pick
	return considered[0], considered, nil
}

func (e *Engine) correspondence(ent *model.Entity, docID int64, absPath string, s store.Sentence) model.Correspondence {
	return model.Correspondence{
		Document:   ent.Document,
		DocumentID: docID,
		Filename:   ent.Filename,
		Label:      ent.Label,
		Text:       NormalizeSpaces(ent.Text),
		Start:      ent.Start,
		End:        ent.End,
		Path:       absPath,
		SentenceID: s.ID,
		Sentence:   s.Text,
	}
}

func (e *Engine) recordFailure(res *Result, f model.Failure) {
	res.Failures = append(res.Failures, f)
	failuresTotal.WithLabelValues(string(f.Kind)).Inc()
	e.log.Warn("alignment failed",
		"kind", f.Kind,
		"document", f.Document,
		"label", f.Label,
		"path", f.Path,
		"detail", f.Detail)
}

func (e *Engine) tree(html string) (*dom.Tree, error) {
	if e.trees != nil {
		if t, ok := e.trees.Get(html); ok {
			return t, nil
		}
	}
	t, err := dom.ParseString(html)
	if err != nil {
		return nil, err
	}
	if e.trees != nil {
		e.trees.Set(html, t)
	}
	return t, nil
}
