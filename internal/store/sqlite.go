package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite implements Store on a single database file.
type SQLite struct {
	db *sql.DB
}

// NewSQLite creates or opens a SQLite sentence store.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLite{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			filename TEXT NOT NULL,
			text TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sentences (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			xpath TEXT NOT NULL,
			text TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sentences_doc_xpath ON sentences(document_id, xpath);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) DocumentID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM documents WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("document %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("query document id: %w", err)
	}
	return id, nil
}

func (s *SQLite) DocumentText(ctx context.Context, id int64) (string, error) {
	var text string
	err := s.db.QueryRowContext(ctx, `SELECT text FROM documents WHERE id = ?`, id).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("document %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("query document text: %w", err)
	}
	return text, nil
}

func (s *SQLite) FindSentences(ctx context.Context, docID int64, xpath, needle string) ([]Sentence, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, position, xpath, text
		FROM sentences
		WHERE document_id = ? AND xpath = ? AND instr(text, ?) > 0
		ORDER BY id`, docID, xpath, needle)
	if err != nil {
		return nil, fmt.Errorf("query sentences: %w", err)
	}
	return scanSentences(rows)
}

func (s *SQLite) SentencesAt(ctx context.Context, docID int64, xpath string) ([]Sentence, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, position, xpath, text
		FROM sentences
		WHERE document_id = ? AND xpath = ?
		ORDER BY id`, docID, xpath)
	if err != nil {
		return nil, fmt.Errorf("query sentences: %w", err)
	}
	return scanSentences(rows)
}

func (s *SQLite) SentenceByID(ctx context.Context, id int64) (Sentence, error) {
	var sent Sentence
	err := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, position, xpath, text
		FROM sentences WHERE id = ?`, id).
		Scan(&sent.ID, &sent.DocumentID, &sent.Position, &sent.XPath, &sent.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return Sentence{}, fmt.Errorf("sentence %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Sentence{}, fmt.Errorf("query sentence: %w", err)
	}
	return sent, nil
}

func (s *SQLite) SaveDocument(ctx context.Context, doc Document, sentences []Sentence) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	// Re-ingesting a document replaces it wholesale.
	var oldID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM documents WHERE name = ?`, doc.Name).Scan(&oldID)
	switch {
	case err == nil:
		if _, err := tx.ExecContext(ctx, `DELETE FROM sentences WHERE document_id = ?`, oldID); err != nil {
			return 0, fmt.Errorf("delete sentences: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, oldID); err != nil {
			return 0, fmt.Errorf("delete document: %w", err)
		}
	case errors.Is(err, sql.ErrNoRows):
		// first ingest
	default:
		return 0, fmt.Errorf("query document: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO documents (name, filename, text) VALUES (?, ?, ?)`,
		doc.Name, doc.Filename, doc.Text)
	if err != nil {
		return 0, fmt.Errorf("insert document: %w", err)
	}
	docID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sentences (document_id, position, xpath, text) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare sentence insert: %w", err)
	}
	defer stmt.Close()

	for _, sent := range sentences {
		if _, err := stmt.ExecContext(ctx, docID, sent.Position, sent.XPath, sent.Text); err != nil {
			return 0, fmt.Errorf("insert sentence: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return docID, nil
}

func scanSentences(rows *sql.Rows) ([]Sentence, error) {
	defer rows.Close()
	var out []Sentence
	for rows.Next() {
		var sent Sentence
		if err := rows.Scan(&sent.ID, &sent.DocumentID, &sent.Position, &sent.XPath, &sent.Text); err != nil {
			return nil, fmt.Errorf("scan sentence: %w", err)
		}
		out = append(out, sent)
	}
	return out, rows.Err()
}
