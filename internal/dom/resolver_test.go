package dom

import (
	"errors"
	"testing"

	"github.com/irgroup/labelstudio-to-fonduer/internal/model"
)

func mustParse(t *testing.T, src string) *Tree {
	t.Helper()
	tree, err := ParseString(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return tree
}

func TestResolve(t *testing.T) {
	r := NewResolver([]string{"span", "em"})

	tests := []struct {
		name string
		html string
		rel  string
		want string
	}{
		{
			name: "sibling paragraph gets positional qualifier",
			html: `<html><head></head><body><div><p>Hello world.</p><p>Bye now.</p></div></body></html>`,
			rel:  "/div[1]/p[1]/text()[1]",
			want: "/html/body/div/p[1]",
		},
		{
			name: "second paragraph",
			html: `<html><head></head><body><div><p>Hello world.</p><p>Bye now.</p></div></body></html>`,
			rel:  "/div[1]/p[2]/text()[1]",
			want: "/html/body/div/p[2]",
		},
		{
			name: "wrapper suffix stripped",
			html: `<html><body><p><span>Alpha beta.</span></p></body></html>`,
			rel:  "/p[1]/span[1]/text()[1]",
			want: "/html/body/p",
		},
		{
			name: "nested wrappers stripped",
			html: `<html><body><p><span><em>Alpha beta.</em></span></p></body></html>`,
			rel:  "/p[1]/span[1]/em[1]/text()[1]",
			want: "/html/body/p",
		},
		{
			name: "inline child with trailing text retargets to flow parent",
			html: `<html><body><p>See <b>this</b> now.</p></body></html>`,
			rel:  "/p[1]/b[1]/text()[1]",
			want: "/html/body/p",
		},
		{
			name: "trailing text node belongs to its flow parent",
			html: `<html><body><p>first <b>bold</b> second</p></body></html>`,
			rel:  "/p[1]/text()[2]",
			want: "/html/body/p",
		},
		{
			name: "table path with synthesized body section",
			html: `<html><body><table><tr><td>Cell one</td></tr></table></body></html>`,
			rel:  "/table[1]/tbody[1]/tr[1]/td[1]/text()[1]",
			want: "/html/body/table/tbody/tr/td",
		},
		{
			name: "synthetic tbody segment stripped on retry",
			html: `<html><body><div><p>Cell one</p></div></body></html>`,
			rel:  "/div[1]/tbody[1]/p[1]/text()[1]",
			want: "/html/body/div/p",
		},
		{
			name: "first match in document order wins",
			html: `<html><body><div><div><p>deep</p></div></div><div><p>shallow</p></div></body></html>`,
			rel:  "/div/p/text()",
			want: "/html/body/div[1]/div/p",
		},
		{
			name: "whitespace-only gap between blocks is not flow text",
			html: "<html><body><div><p>Hello world.</p> <p>Bye now.</p></div></body></html>",
			rel:  "/div[1]/p[1]/text()[1]",
			want: "/html/body/div/p[1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := mustParse(t, tt.html)
			got, err := r.Resolve(tree, tt.rel)
			if err != nil {
				t.Fatalf("Resolve(%q): %v", tt.rel, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.rel, got, tt.want)
			}
		})
	}
}

func TestResolveUnresolvable(t *testing.T) {
	r := NewResolver(nil)
	tree := mustParse(t, `<html><body><p>text</p></body></html>`)

	for _, rel := range []string{
		"/article[1]/p[9]/text()[1]",
		"/p[2]/text()[1]",
		"not a path at all //",
	} {
		_, err := r.Resolve(tree, rel)
		if err == nil {
			t.Fatalf("Resolve(%q): expected error", rel)
		}
		if !errors.Is(err, model.ErrPathUnresolved) {
			t.Errorf("Resolve(%q): error %v, want ErrPathUnresolved", rel, err)
		}
	}
}

func TestResolveElementFinalPath(t *testing.T) {
	// Paths without a text() step address the element itself.
	r := NewResolver(nil)
	tree := mustParse(t, `<html><body><div><p>Hello</p></div></body></html>`)

	got, err := r.Resolve(tree, "/div[1]/p[1]")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if want := "/html/body/div/p"; got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
}
