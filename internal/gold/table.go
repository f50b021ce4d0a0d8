package gold

import (
	"github.com/irgroup/labelstudio-to-fonduer/internal/align"
	"github.com/irgroup/labelstudio-to-fonduer/internal/model"
)

// EndpointKey identifies one relation endpoint the way the downstream system
// sees it. Offsets are deliberately absent: sentence identity plus the exact
// span text is what survives reconciliation unchanged on both sides.
type EndpointKey struct {
	DocumentID int64
	Label      string
	SentenceID int64
	Text       string
}

// PairKey identifies a labeled relation between two endpoints.
type PairKey struct {
	From EndpointKey
	To   EndpointKey
}

// Table holds the gold pairs produced by an alignment run, keyed for O(1)
// membership checks. It is self-contained: document ids are learned from the
// pairs themselves, so judging candidates needs no store access.
type Table struct {
	pairs     map[PairKey]struct{}
	docIDs    map[string]int64
	rows      []model.GoldPair
	unordered bool
}

// Build indexes the pairs of one alignment run. With unordered set, a
// candidate matches regardless of which endpoint came first.
func Build(pairs []model.GoldPair, unordered bool) *Table {
	t := &Table{
		pairs:     make(map[PairKey]struct{}, len(pairs)),
		docIDs:    make(map[string]int64),
		rows:      pairs,
		unordered: unordered,
	}
	for _, p := range pairs {
		t.docIDs[p.From.Document] = p.From.DocumentID
		t.docIDs[p.To.Document] = p.To.DocumentID
		t.pairs[t.key(endpoint(p.From), endpoint(p.To))] = struct{}{}
	}
	return t
}

// Len reports the number of distinct gold pairs.
func (t *Table) Len() int { return len(t.pairs) }

// Pairs returns the underlying pairs in insertion order.
func (t *Table) Pairs() []model.GoldPair { return t.rows }

// IsGold reports whether the candidate matches a gold pair.
func (t *Table) IsGold(c model.Candidate) bool {
	_, ok := t.pairs[t.candidateKey(c)]
	return ok
}

func (t *Table) candidateKey(c model.Candidate) PairKey {
	docID := t.docIDs[c.Document]
	return t.key(spanKey(docID, c.Spans[0]), spanKey(docID, c.Spans[1]))
}

func (t *Table) key(from, to EndpointKey) PairKey {
	if t.unordered && less(to, from) {
		from, to = to, from
	}
	return PairKey{From: from, To: to}
}

func endpoint(c model.Correspondence) EndpointKey {
	return EndpointKey{
		DocumentID: c.DocumentID,
		Label:      c.Label,
		SentenceID: c.SentenceID,
		Text:       align.NormalizeSpaces(c.Text),
	}
}

func spanKey(docID int64, s model.CandidateSpan) EndpointKey {
	return EndpointKey{
		DocumentID: docID,
		Label:      s.Label,
		SentenceID: s.SentenceID,
		Text:       align.NormalizeSpaces(s.Text),
	}
}

func less(a, b EndpointKey) bool {
	if a.DocumentID != b.DocumentID {
		return a.DocumentID < b.DocumentID
	}
	if a.SentenceID != b.SentenceID {
		return a.SentenceID < b.SentenceID
	}
	if a.Label != b.Label {
		return a.Label < b.Label
	}
	return a.Text < b.Text
}
