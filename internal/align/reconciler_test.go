package align

import (
	"errors"
	"testing"

	"github.com/irgroup/labelstudio-to-fonduer/internal/model"
)

func TestReconcile(t *testing.T) {
	tests := []struct {
		name      string
		fragment  string
		container string
		reported  int
		want      int
	}{
		{
			name:      "single occurrence",
			fragment:  "Lincoln",
			container: "Abraham Lincoln was a president.",
			reported:  5,
			want:      3, // occurrence at 8
		},
		{
			name:      "exact offset needs no correction",
			fragment:  "Lincoln",
			container: "Abraham Lincoln was a president.",
			reported:  8,
			want:      0,
		},
		{
			name:      "nearest of several occurrences wins",
			fragment:  "cat",
			container: "A cat sat. A cat ran.",
			reported:  10,
			want:      3, // occurrences at 2 and 13; 13 is nearest
		},
		{
			name:      "leftmost occurrence when it is nearest",
			fragment:  "cat",
			container: "A cat sat. A cat ran.",
			reported:  3,
			want:      -1,
		},
		{
			name:      "doubled whitespace in fragment is collapsed",
			fragment:  "Abraham  Lincoln",
			container: "Abraham Lincoln was a president.",
			reported:  0,
			want:      0,
		},
		{
			name:      "multibyte text counts runes",
			fragment:  "Müller",
			container: "Frau Müller kam. Herr Müller ging.",
			reported:  20,
			want:      2, // rune offsets 5 and 22; 22 is nearest
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Reconcile(tt.fragment, tt.container, tt.reported)
			if err != nil {
				t.Fatalf("Reconcile: %v", err)
			}
			if got != tt.want {
				t.Errorf("Reconcile(%q, %q, %d) = %d, want %d",
					tt.fragment, tt.container, tt.reported, got, tt.want)
			}
		})
	}
}

func TestReconcileTie(t *testing.T) {
	// occurrences at 0 and 4, reported dead center: earlier one wins
	got, err := Reconcile("ab", "abXXab", 2)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if got != -2 {
		t.Errorf("Reconcile = %d, want -2 (tie toward earliest)", got)
	}
}

func TestReconcileFragmentNotFound(t *testing.T) {
	for _, tt := range []struct {
		fragment  string
		container string
		reported  int
	}{
		{"dog", "A cat sat. A cat ran.", 0},
		{"", "anything", 0},
		{"cat", "", 0},
	} {
		_, err := Reconcile(tt.fragment, tt.container, tt.reported)
		if err == nil {
			t.Fatalf("Reconcile(%q, %q): expected error", tt.fragment, tt.container)
		}
		if !errors.Is(err, model.ErrFragmentNotFound) {
			t.Errorf("Reconcile(%q, %q): error %v, want ErrFragmentNotFound", tt.fragment, tt.container, err)
		}
	}
}

func TestReconcileOverlappingOccurrences(t *testing.T) {
	// "aa" occurs at 0, 1 and 2 in "aaaa"
	got, err := Reconcile("aa", "aaaa", 2)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if got != 0 {
		t.Errorf("Reconcile = %d, want 0", got)
	}
}

func TestNormalizeSpaces(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a  b", "a b"},
		{"a \t\n b", "a b"},
		{"a b", "a b"},
		{"ab", "ab"},
		{" padded ", " padded "},
	}
	for _, tt := range tests {
		if got := NormalizeSpaces(tt.in); got != tt.want {
			t.Errorf("NormalizeSpaces(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
