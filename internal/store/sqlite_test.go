package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndQueryDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	docID, err := s.SaveDocument(ctx, Document{
		Name:     "lincoln",
		Filename: "lincoln.html",
		Text:     "<html><body><p>Abraham Lincoln was a president.</p></body></html>",
	}, []Sentence{
		{Position: 0, XPath: "/html/body/p", Text: "Abraham Lincoln was a president."},
		{Position: 1, XPath: "/html/body/p", Text: "He was born in Kentucky."},
	})
	require.NoError(t, err)
	require.NotZero(t, docID)

	id, err := s.DocumentID(ctx, "lincoln")
	require.NoError(t, err)
	assert.Equal(t, docID, id)

	text, err := s.DocumentText(ctx, docID)
	require.NoError(t, err)
	assert.Contains(t, text, "Abraham Lincoln")
}

func TestDocumentNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.DocumentID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFindSentences(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	docID, err := s.SaveDocument(ctx, Document{Name: "doc", Filename: "doc.html", Text: "<html/>"}, []Sentence{
		{Position: 0, XPath: "/html/body/p[1]", Text: "The cat sat."},
		{Position: 1, XPath: "/html/body/p[1]", Text: "The cat ran."},
		{Position: 2, XPath: "/html/body/p[2]", Text: "The cat slept."},
	})
	require.NoError(t, err)

	// substring filter plus exact path
	sents, err := s.FindSentences(ctx, docID, "/html/body/p[1]", "cat")
	require.NoError(t, err)
	require.Len(t, sents, 2)
	assert.Equal(t, "The cat sat.", sents[0].Text)
	assert.Equal(t, "The cat ran.", sents[1].Text)
	assert.Less(t, sents[0].ID, sents[1].ID)

	sents, err = s.FindSentences(ctx, docID, "/html/body/p[1]", "slept")
	require.NoError(t, err)
	assert.Empty(t, sents)

	all, err := s.SentencesAt(ctx, docID, "/html/body/p[1]")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := s.SentenceByID(ctx, sents0ID(t, all))
	require.NoError(t, err)
	assert.Equal(t, "The cat sat.", one.Text)
	assert.Equal(t, docID, one.DocumentID)
}

func sents0ID(t *testing.T, sents []Sentence) int64 {
	t.Helper()
	require.NotEmpty(t, sents)
	return sents[0].ID
}

func TestSaveDocumentReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.SaveDocument(ctx, Document{Name: "doc", Filename: "doc.html", Text: "v1"}, []Sentence{
		{Position: 0, XPath: "/html/body/p", Text: "Old sentence."},
	})
	require.NoError(t, err)

	second, err := s.SaveDocument(ctx, Document{Name: "doc", Filename: "doc.html", Text: "v2"}, []Sentence{
		{Position: 0, XPath: "/html/body/p", Text: "New sentence."},
	})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	id, err := s.DocumentID(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, second, id)

	text, err := s.DocumentText(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "v2", text)

	sents, err := s.SentencesAt(ctx, id, "/html/body/p")
	require.NoError(t, err)
	require.Len(t, sents, 1)
	assert.Equal(t, "New sentence.", sents[0].Text)
}
