package gold

import (
	"log/slog"

	"github.com/irgroup/labelstudio-to-fonduer/internal/model"
)

// Oracle labels downstream candidates against a gold table, playing the
// role of a supervision function: 1 for gold, 0 for everything else.
type Oracle struct {
	table *Table
	log   *slog.Logger
}

// NewOracle wraps a built table.
func NewOracle(table *Table, logger *slog.Logger) *Oracle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Oracle{table: table, log: logger}
}

// Judge labels a single candidate.
func (o *Oracle) Judge(c model.Candidate) int {
	if o.table.IsGold(c) {
		return 1
	}
	return 0
}

// Verdict pairs a candidate with its gold label.
type Verdict struct {
	Candidate model.Candidate `json:"candidate"`
	Gold      bool            `json:"gold"`
}

// Stats summarizes one evaluation run.
type Stats struct {
	Candidates int `json:"candidates"`
	Gold       int `json:"gold"`        // Candidates judged gold
	TablePairs int `json:"table_pairs"` // Distinct pairs in the table
	Matched    int `json:"matched"`     // Table pairs hit by at least one candidate
}

// JudgeAll labels every candidate and reports coverage of the table.
func (o *Oracle) JudgeAll(cands []model.Candidate) ([]Verdict, Stats) {
	verdicts := make([]Verdict, 0, len(cands))
	hit := make(map[PairKey]struct{})

	for _, c := range cands {
		gold := o.table.IsGold(c)
		if gold {
			hit[o.table.candidateKey(c)] = struct{}{}
		} else {
			o.log.Debug("candidate not gold",
				"document", c.Document,
				"labels", [2]string{c.Spans[0].Label, c.Spans[1].Label},
				"sentences", [2]int64{c.Spans[0].SentenceID, c.Spans[1].SentenceID})
		}
		verdicts = append(verdicts, Verdict{Candidate: c, Gold: gold})
	}

	stats := Stats{
		Candidates: len(cands),
		TablePairs: o.table.Len(),
		Matched:    len(hit),
	}
	for _, v := range verdicts {
		if v.Gold {
			stats.Gold++
		}
	}
	return verdicts, stats
}
