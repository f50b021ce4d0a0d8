package gold

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/irgroup/labelstudio-to-fonduer/internal/model"
)

// csvHeader matches the layout downstream notebooks already consume.
var csvHeader = []string{
	"Doc_ID", "Filename", "Label", "Offset_start", "Offset_stop",
	"Text", "XPath", "Sentence_ID", "Type",
}

// Row is one endpoint line of the evaluation CSV.
type Row struct {
	DocID      int64
	Filename   string
	Label      string
	Start      int
	End        int
	Text       string
	XPath      string
	SentenceID int64
	Type       string // "Gold" or "Candidate"
}

// Rows flattens the table's pairs and the judged candidates into endpoint
// rows, gold first, preserving insertion order within each group.
func Rows(t *Table, cands []model.Candidate) []Row {
	rows := make([]Row, 0, 2*len(t.rows)+2*len(cands))
	for _, p := range t.rows {
		rows = append(rows, CorrespondenceRow(p.From, "Gold"), CorrespondenceRow(p.To, "Gold"))
	}
	for _, c := range cands {
		docID := t.docIDs[c.Document]
		for _, s := range c.Spans {
			rows = append(rows, Row{
				DocID:      docID,
				Filename:   c.Document,
				Label:      s.Label,
				Start:      s.Start,
				End:        s.End,
				Text:       s.Text,
				SentenceID: s.SentenceID,
				Type:       "Candidate",
			})
		}
	}
	return rows
}

// CorrespondenceRow flattens one correspondence into a row of the given
// type.
func CorrespondenceRow(c model.Correspondence, typ string) Row {
	return Row{
		DocID:      c.DocumentID,
		Filename:   c.Filename,
		Label:      c.Label,
		Start:      c.Start,
		End:        c.End,
		Text:       c.Text,
		XPath:      c.Path,
		SentenceID: c.SentenceID,
		Type:       typ,
	}
}

// WriteCSV writes the rows with the fixed header.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			strconv.FormatInt(r.DocID, 10),
			r.Filename,
			r.Label,
			strconv.Itoa(r.Start),
			strconv.Itoa(r.End),
			r.Text,
			r.XPath,
			strconv.FormatInt(r.SentenceID, 10),
			r.Type,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
