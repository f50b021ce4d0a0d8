package model

// Correspondence is the alignment result for one entity: the single
// downstream sentence that holds the annotated span. At most one sentence is
// matched per entity; ambiguity and absence are recorded failures instead.
type Correspondence struct {
	Document   string `json:"document"`    // Document name shared by both sides
	DocumentID int64  `json:"document_id"` // Downstream store document id
	Filename   string `json:"filename,omitempty"`
	Label      string `json:"label"`
	Text       string `json:"text"`  // Trimmed entity text
	Start      int    `json:"start"` // Offsets as reported by the annotation tool
	End        int    `json:"end"`
	Path       string `json:"path"`        // Resolved absolute element path
	SentenceID int64  `json:"sentence_id"` // Matched downstream sentence
	Sentence   string `json:"sentence"`    // Matched sentence text
}

// GoldPair is one fully aligned relation: both endpoint correspondences,
// in the order the annotator drew them.
type GoldPair struct {
	From      Correspondence `json:"from"`
	To        Correspondence `json:"to"`
	Direction string         `json:"direction,omitempty"`
}
