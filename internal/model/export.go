package model

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// Entity represents a labeled span drawn by an annotator
type Entity struct {
	ID       string `json:"id"`                 // Tool-assigned id, only used to resolve relations
	Document string `json:"document"`           // Document name (filename without extension)
	Filename string `json:"filename,omitempty"` // Original filename with extension
	Label    string `json:"label"`              // Annotation tag
	Text     string `json:"text"`               // Annotated text, whitespace-trimmed
	Start    int    `json:"start"`              // Rune offset reported by the tool, inclusive
	End      int    `json:"end"`                // Rune offset reported by the tool, exclusive
	Path     string `json:"path"`               // Relative element path reported by the tool
}

// Relation is an ordered pair of entities connected by the annotator
type Relation struct {
	From      *Entity `json:"from"`
	To        *Entity `json:"to"`
	Direction string  `json:"direction,omitempty"` // Arrow direction as drawn; empty when inferred
}

// Document is one annotated task: the HTML served to the annotator plus
// everything drawn on top of it. Immutable after parsing.
type Document struct {
	Name      string      `json:"name"`     // Upload prefix and extension stripped
	Filename  string      `json:"filename"` // Original filename with extension
	HTML      string      `json:"-"`        // Task HTML exactly as served
	Entities  []*Entity   `json:"entities"`
	Relations []*Relation `json:"relations"`
}

// Export is a parsed annotation export file
type Export struct {
	Path      string      `json:"path,omitempty"` // Source file, empty when parsed from an API response
	Documents []*Document `json:"documents"`
}

// Entities returns every entity across all documents in export order.
func (e *Export) Entities() []*Entity {
	var out []*Entity
	for _, d := range e.Documents {
		out = append(out, d.Entities...)
	}
	return out
}

// Relations returns every relation across all documents in export order.
func (e *Export) Relations() []*Relation {
	var out []*Relation
	for _, d := range e.Documents {
		out = append(out, d.Relations...)
	}
	return out
}

// Labels returns the distinct entity labels used in the export.
func (e *Export) Labels() mapset.Set[string] {
	s := mapset.NewSet[string]()
	for _, ent := range e.Entities() {
		s.Add(ent.Label)
	}
	return s
}

// TextsFor returns the distinct annotated strings carrying the given label.
func (e *Export) TextsFor(label string) mapset.Set[string] {
	s := mapset.NewSet[string]()
	for _, ent := range e.Entities() {
		if ent.Label == label {
			s.Add(ent.Text)
		}
	}
	return s
}

// NgramSizes reports the smallest and largest whitespace-token count among
// the texts labeled label. Downstream candidate extractors use this to bound
// their n-gram window. Returns (0, 0) when the label never occurs.
func (e *Export) NgramSizes(label string) (min, max int) {
	for _, ent := range e.Entities() {
		if ent.Label != label {
			continue
		}
		n := len(strings.Fields(ent.Text))
		if n == 0 {
			continue
		}
		if min == 0 || n < min {
			min = n
		}
		if n > max {
			max = n
		}
	}
	return min, max
}
