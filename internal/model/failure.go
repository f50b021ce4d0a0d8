package model

import "errors"

// Per-item failures are recoverable: the item is dropped, the failure is
// recorded on the result, and the run continues. Callers branch with
// errors.Is against these sentinels, never on message text. Only I/O errors
// (file, database, HTTP) abort a run.
var (
	ErrPathUnresolved        = errors.New("path unresolved")
	ErrAmbiguousCandidate    = errors.New("ambiguous candidate")
	ErrNoCandidate           = errors.New("no candidate")
	ErrFragmentNotFound      = errors.New("fragment not found")
	ErrCrossDocumentRelation = errors.New("cross-document relation")
	ErrMalformedExport       = errors.New("malformed export")
)

// FailureKind names one entry of the closed failure taxonomy
type FailureKind string

const (
	FailurePathUnresolved        FailureKind = "path_unresolved"
	FailureAmbiguousCandidate    FailureKind = "ambiguous_candidate"
	FailureNoCandidate           FailureKind = "no_candidate"
	FailureFragmentNotFound      FailureKind = "fragment_not_found"
	FailureCrossDocumentRelation FailureKind = "cross_document_relation"
	FailureMalformedExport       FailureKind = "malformed_export"
)

// FailureKinds lists the taxonomy in a stable order for summaries and metrics.
var FailureKinds = []FailureKind{
	FailurePathUnresolved,
	FailureAmbiguousCandidate,
	FailureNoCandidate,
	FailureFragmentNotFound,
	FailureCrossDocumentRelation,
	FailureMalformedExport,
}

// Sentinel returns the sentinel error for the kind.
func (k FailureKind) Sentinel() error {
	switch k {
	case FailurePathUnresolved:
		return ErrPathUnresolved
	case FailureAmbiguousCandidate:
		return ErrAmbiguousCandidate
	case FailureNoCandidate:
		return ErrNoCandidate
	case FailureFragmentNotFound:
		return ErrFragmentNotFound
	case FailureCrossDocumentRelation:
		return ErrCrossDocumentRelation
	case FailureMalformedExport:
		return ErrMalformedExport
	}
	return nil
}

// KindOf extracts the taxonomy kind from any error produced by this module,
// or "" when the error is outside the taxonomy.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	for _, k := range FailureKinds {
		if errors.Is(err, k.Sentinel()) {
			return k
		}
	}
	return ""
}

// Failure records why one entity or relation could not be processed
type Failure struct {
	Kind     FailureKind `json:"kind"`
	Document string      `json:"document,omitempty"` // Document name
	Label    string      `json:"label,omitempty"`    // Entity label, when entity-scoped
	Path     string      `json:"path,omitempty"`     // Element path involved, when known
	Text     string      `json:"text,omitempty"`     // Annotated text involved, when known
	Detail   string      `json:"detail,omitempty"`   // Free-form context
}

func (f *Failure) Error() string {
	msg := string(f.Kind)
	if f.Document != "" {
		msg += " in " + f.Document
	}
	if f.Label != "" {
		msg += " [" + f.Label + "]"
	}
	if f.Detail != "" {
		msg += ": " + f.Detail
	}
	return msg
}

// Unwrap ties the failure into the sentinel taxonomy for errors.Is.
func (f *Failure) Unwrap() error { return f.Kind.Sentinel() }
