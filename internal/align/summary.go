package align

import (
	"fmt"
	"strings"

	"github.com/irgroup/labelstudio-to-fonduer/internal/model"
)

// Summary condenses one alignment run into counters.
type Summary struct {
	Documents        int                       `json:"documents"`
	Entities         int                       `json:"entities"`
	Relations        int                       `json:"relations"`
	Aligned          int                       `json:"aligned"`
	GoldPairs        int                       `json:"gold_pairs"`
	DroppedRelations int                       `json:"dropped_relations"`
	Failures         map[model.FailureKind]int `json:"failures,omitempty"`
}

// Summarize computes the counters for an export and its alignment result.
func Summarize(exp *model.Export, res *Result) Summary {
	s := Summary{
		Documents: len(exp.Documents),
		Entities:  len(exp.Entities()),
		Relations: len(exp.Relations()),
		Aligned:   len(res.Correspondences),
		GoldPairs: len(res.Pairs),
	}
	s.DroppedRelations = s.Relations - s.GoldPairs
	if len(res.Failures) > 0 {
		s.Failures = make(map[model.FailureKind]int)
		for _, f := range res.Failures {
			s.Failures[f.Kind]++
		}
	}
	return s
}

// Render formats the summary as a fixed-order text block.
func (s Summary) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Documents:         %d\n", s.Documents)
	fmt.Fprintf(&b, "Entities:          %d\n", s.Entities)
	fmt.Fprintf(&b, "Relations:         %d\n", s.Relations)
	fmt.Fprintf(&b, "Aligned entities:  %d\n", s.Aligned)
	fmt.Fprintf(&b, "Gold pairs:        %d\n", s.GoldPairs)
	fmt.Fprintf(&b, "Dropped relations: %d\n", s.DroppedRelations)
	if len(s.Failures) > 0 {
		b.WriteString("Failures:\n")
		for _, kind := range model.FailureKinds {
			if n := s.Failures[kind]; n > 0 {
				fmt.Fprintf(&b, "  %-25s %d\n", string(kind)+":", n)
			}
		}
	}
	return b.String()
}
