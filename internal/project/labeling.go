package project

import (
	"fmt"
	"html"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/irgroup/labelstudio-to-fonduer/internal/model"
)

// LabelingConfig renders the labeling interface matching projected tasks:
// hypertext spans over the document body, one Label entry per distinct
// candidate label. A freshly created project needs this before imported
// predictions render at all.
func LabelingConfig(cands []model.Candidate) string {
	set := mapset.NewSet[string]()
	for _, c := range cands {
		for _, s := range c.Spans {
			if s.Label != "" {
				set.Add(titleLabel(s.Label))
			}
		}
	}
	labels := set.ToSlice()
	sort.Strings(labels)

	var b strings.Builder
	b.WriteString("<View>\n")
	fmt.Fprintf(&b, "  <HyperTextLabels name=\"%s\" toName=\"%s\">\n", fromName, toName)
	for _, l := range labels {
		fmt.Fprintf(&b, "    <Label value=\"%s\"/>\n", html.EscapeString(l))
	}
	b.WriteString("  </HyperTextLabels>\n")
	fmt.Fprintf(&b, "  <HyperText name=\"%s\" value=\"$text\"/>\n", toName)
	b.WriteString("</View>\n")
	return b.String()
}
