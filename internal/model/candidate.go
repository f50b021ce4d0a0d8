package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// CandidateSpan is one endpoint of a downstream relation candidate, exactly
// as the downstream system reports it: offsets are rune positions within the
// sentence text, end inclusive.
type CandidateSpan struct {
	Label      string `json:"label"` // Must match the annotation label verbatim
	SentenceID int64  `json:"sentence_id"`
	Text       string `json:"text"`
	Start      int    `json:"start"` // Rune offset in the sentence, inclusive
	End        int    `json:"end"`   // Rune offset in the sentence, inclusive
}

// Candidate is a downstream relation candidate: an ordered span pair inside
// one document. The pair order carries the endpoint roles.
type Candidate struct {
	Document   string           `json:"document"`             // Document name
	Confidence float64          `json:"confidence,omitempty"` // Extractor score, 0..1
	Spans      [2]CandidateSpan `json:"spans"`
}

// LoadCandidates reads a JSON array of candidates from path.
func LoadCandidates(path string) ([]Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read candidates: %w", err)
	}
	var cands []Candidate
	if err := json.Unmarshal(data, &cands); err != nil {
		return nil, fmt.Errorf("parse candidates %s: %w", path, err)
	}
	for i, c := range cands {
		if c.Document == "" {
			return nil, fmt.Errorf("candidate %d: missing document name", i)
		}
	}
	return cands, nil
}
