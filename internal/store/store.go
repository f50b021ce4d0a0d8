package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Document is one ingested HTML document.
type Document struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`     // Filename without extension; unique
	Filename string `json:"filename"` // Original filename
	Text     string `json:"text"`     // Normalized HTML, exactly as ingested
}

// Sentence is one text unit produced by segmenting a document element.
// Several sentences may share an xpath when one element holds more than one
// sentence; disambiguation is the aligner's job.
type Sentence struct {
	ID         int64  `json:"id"`
	DocumentID int64  `json:"document_id"`
	Position   int    `json:"position"` // Running index within the document
	XPath      string `json:"xpath"`    // Canonical absolute path of the container element
	Text       string `json:"text"`
}

// Store is the downstream sentence store. Alignment, evaluation and
// projection only read; the ingester is the single writer.
type Store interface {
	// DocumentID resolves a document's id by name.
	DocumentID(ctx context.Context, name string) (int64, error)

	// DocumentText returns the stored HTML of a document.
	DocumentText(ctx context.Context, id int64) (string, error)

	// FindSentences returns the sentences of a document at the exact
	// container path whose text contains needle, ordered by id.
	FindSentences(ctx context.Context, docID int64, xpath, needle string) ([]Sentence, error)

	// SentencesAt returns every sentence of a document at the container
	// path, ordered by id.
	SentencesAt(ctx context.Context, docID int64, xpath string) ([]Sentence, error)

	// SentenceByID retrieves one sentence.
	SentenceByID(ctx context.Context, id int64) (Sentence, error)

	// SaveDocument replaces the document (matched by name) and all of its
	// sentences in one transaction, returning the document id.
	SaveDocument(ctx context.Context, doc Document, sentences []Sentence) (int64, error)

	Close() error
}
