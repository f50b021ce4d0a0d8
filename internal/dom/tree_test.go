package dom

import (
	"testing"

	"golang.org/x/net/html"
)

func TestFind(t *testing.T) {
	tree := mustParse(t, `<html><head></head><body><div><p>Hello world.</p><p>Bye now.</p></div></body></html>`)

	n := tree.Find("/html/body/div/p[2]")
	if n == nil {
		t.Fatal("Find returned nil")
	}
	if got := TextContent(n); got != "Bye now." {
		t.Errorf("TextContent = %q, want %q", got, "Bye now.")
	}
	if got := CanonicalPath(n); got != "/html/body/div/p[2]" {
		t.Errorf("CanonicalPath = %q, want %q", got, "/html/body/div/p[2]")
	}

	if tree.Find("/html/body/div/p[3]") != nil {
		t.Error("Find matched a missing element")
	}
	if tree.Find("") != nil {
		t.Error("Find matched an empty path")
	}
}

func TestTextContentConcatenatesDescendants(t *testing.T) {
	tree := mustParse(t, `<html><body><p>See <b>this</b> now.</p></body></html>`)

	p := tree.Find("/html/body/p")
	if p == nil {
		t.Fatal("Find returned nil")
	}
	if got, want := TextContent(p), "See this now."; got != want {
		t.Errorf("TextContent = %q, want %q", got, want)
	}
}

func TestCanonicalPathRootNeverQualified(t *testing.T) {
	tree := mustParse(t, `<html><body><p>x</p></body></html>`)

	root := tree.Root()
	if root == nil || root.Data != "html" {
		t.Fatalf("Root = %v, want html element", root)
	}
	if got := CanonicalPath(root); got != "/html" {
		t.Errorf("CanonicalPath(root) = %q, want /html", got)
	}
}

func TestWalkElementsOrder(t *testing.T) {
	tree := mustParse(t, `<html><head></head><body><div><p>a</p></div><p>b</p></body></html>`)

	var tags []string
	tree.WalkElements(func(n *html.Node) bool {
		tags = append(tags, n.Data)
		return true
	})

	want := []string{"html", "head", "body", "div", "p", "p"}
	if len(tags) != len(want) {
		t.Fatalf("visited %v, want %v", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Fatalf("visited %v, want %v", tags, want)
		}
	}
}

func TestWalkElementsSkipSubtree(t *testing.T) {
	tree := mustParse(t, `<html><head></head><body><div><p>a</p></div><p>b</p></body></html>`)

	var tags []string
	tree.WalkElements(func(n *html.Node) bool {
		tags = append(tags, n.Data)
		return n.Data != "div"
	})

	want := []string{"html", "head", "body", "div", "p"}
	if len(tags) != len(want) {
		t.Fatalf("visited %v, want %v", tags, want)
	}
}
