package align

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/irgroup/labelstudio-to-fonduer/internal/model"
)

var doubledWS = regexp.MustCompile(`(\S)\s{2,}(\S)`)

// NormalizeSpaces collapses any run of two or more whitespace characters
// between non-space characters into a single space. The normalizer applies
// the same rule to document text, so fragments that kept doubled whitespace
// still match normalized containers.
func NormalizeSpaces(s string) string {
	return doubledWS.ReplaceAllString(s, "${1} ${2}")
}

// Reconcile locates fragment inside containerText and returns the delta a
// caller adds to its own offsets to obtain positions valid against
// containerText. Offsets count runes.
//
// The downstream system measures offsets against its re-tokenized sentence
// text, the annotation tool against its own rendering; both drift from the
// document text by a few characters of collapsed whitespace. Neither offset
// is trusted: the fragment is re-located in the container, and when it
// occurs more than once the occurrence nearest reportedOffset wins, ties
// toward the earliest. Exact semantic disambiguation is not attempted.
func Reconcile(fragment, containerText string, reportedOffset int) (int, error) {
	frag := NormalizeSpaces(fragment)
	if frag == "" {
		return 0, fmt.Errorf("empty fragment: %w", model.ErrFragmentNotFound)
	}

	occs := occurrences(containerText, frag)
	if len(occs) == 0 {
		return 0, fmt.Errorf("%q not in container: %w", snippet(frag), model.ErrFragmentNotFound)
	}

	best := occs[0]
	for _, o := range occs[1:] {
		if abs(o-reportedOffset) < abs(best-reportedOffset) {
			best = o
		}
	}
	delta := best - reportedOffset
	if reportedOffset+delta < 0 {
		return 0, fmt.Errorf("corrected start %d below zero: %w", reportedOffset+delta, model.ErrFragmentNotFound)
	}
	return delta, nil
}

// occurrences returns the rune index of every occurrence of frag in s,
// overlapping ones included, in ascending order.
func occurrences(s, frag string) []int {
	var out []int
	runeIdx, byteIdx := 0, 0
	for {
		i := strings.Index(s[byteIdx:], frag)
		if i < 0 {
			return out
		}
		runeIdx += utf8.RuneCountInString(s[byteIdx : byteIdx+i])
		out = append(out, runeIdx)
		// advance one rune so overlapping occurrences are still seen
		_, size := utf8.DecodeRuneInString(s[byteIdx+i:])
		byteIdx += i + size
		runeIdx++
	}
}

func snippet(s string) string {
	r := []rune(s)
	if len(r) > 40 {
		return string(r[:40]) + "..."
	}
	return s
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
