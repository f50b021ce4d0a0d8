// Package labelstudio parses annotation exports and talks to the tool's
// HTTP API.
package labelstudio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/tidwall/gjson"

	"github.com/irgroup/labelstudio-to-fonduer/internal/model"
)

// Result entry types in the export wire format.
const (
	entrySpan     = "hypertextlabels"
	entryRelation = "relation"
)

// uploadPrefix is the random prefix the tool prepends to uploaded filenames.
var uploadPrefix = regexp.MustCompile(`^[0-9a-f]{8}-`)

// Wire types for the export file. Only fields the pipeline reads are
// declared.
type exportTask struct {
	ID          int64              `json:"id"`
	Data        json.RawMessage    `json:"data"`
	FileUpload  string             `json:"file_upload"`
	Annotations []exportAnnotation `json:"annotations"`
}

type exportAnnotation struct {
	ID     int64               `json:"id"`
	Result []exportResultEntry `json:"result"`
}

type exportResultEntry struct {
	ID        string           `json:"id"`
	Type      string           `json:"type"`
	FromID    string           `json:"from_id"`
	ToID      string           `json:"to_id"`
	Direction string           `json:"direction"`
	Value     *exportSpanValue `json:"value"`
}

type exportSpanValue struct {
	Start           string   `json:"start"`
	End             string   `json:"end"`
	StartOffset     int      `json:"startOffset"`
	EndOffset       int      `json:"endOffset"`
	Text            string   `json:"text"`
	HypertextLabels []string `json:"hypertextlabels"`
}

// ParseExport reads and parses an export file. Malformed entries are
// reported as failures, not errors; only unreadable input aborts.
func ParseExport(path string) (*model.Export, []model.Failure, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read export: %w", err)
	}
	exp, failures, err := ParseExportBytes(data)
	if err != nil {
		return nil, nil, fmt.Errorf("export %s: %w", path, err)
	}
	exp.Path = path
	return exp, failures, nil
}

// ParseExportBytes parses export JSON as downloaded from the tool: a list
// of tasks, each carrying the served HTML and the first annotator's result.
func ParseExportBytes(data []byte) (*model.Export, []model.Failure, error) {
	var tasks []exportTask
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, nil, fmt.Errorf("parse export: %w", err)
	}

	exp := &model.Export{}
	var failures []model.Failure
	for _, task := range tasks {
		doc, fails := parseTask(task)
		failures = append(failures, fails...)
		if doc != nil {
			exp.Documents = append(exp.Documents, doc)
		}
	}
	return exp, failures, nil
}

// parseTask converts one task into a document. Returns nil for tasks that
// carry no annotations.
func parseTask(task exportTask) (*model.Document, []model.Failure) {
	name, filename := taskNames(task)

	html := firstDataValue(task.Data)
	if html == "" {
		return nil, []model.Failure{{
			Kind:     model.FailureMalformedExport,
			Document: name,
			Detail:   fmt.Sprintf("task %d has no data", task.ID),
		}}
	}
	if len(task.Annotations) == 0 {
		return nil, nil
	}

	doc := &model.Document{Name: name, Filename: filename, HTML: html}
	var failures []model.Failure

	// first pass: spans; ids are needed before relations can be resolved
	byID := make(map[string]*model.Entity)
	for _, entry := range task.Annotations[0].Result {
		if !strings.EqualFold(entry.Type, entrySpan) {
			continue
		}
		ent, fail := parseSpan(name, filename, entry)
		if fail != nil {
			failures = append(failures, *fail)
			continue
		}
		byID[ent.ID] = ent
		doc.Entities = append(doc.Entities, ent)
	}

	for _, entry := range task.Annotations[0].Result {
		if !strings.EqualFold(entry.Type, entryRelation) {
			continue
		}
		from, to := byID[entry.FromID], byID[entry.ToID]
		if from == nil || to == nil {
			failures = append(failures, model.Failure{
				Kind:     model.FailureMalformedExport,
				Document: name,
				Detail:   fmt.Sprintf("relation %s -> %s references a missing span", entry.FromID, entry.ToID),
			})
			continue
		}
		doc.Relations = append(doc.Relations, &model.Relation{From: from, To: to, Direction: entry.Direction})
	}

	// an annotator connecting exactly two spans rarely bothers drawing the
	// arrow; treat the pair as related
	if len(doc.Relations) == 0 && len(doc.Entities) == 2 {
		doc.Relations = append(doc.Relations, &model.Relation{From: doc.Entities[0], To: doc.Entities[1]})
	}
	return doc, failures
}

func parseSpan(docName, filename string, entry exportResultEntry) (*model.Entity, *model.Failure) {
	fail := func(detail string) *model.Failure {
		return &model.Failure{Kind: model.FailureMalformedExport, Document: docName, Detail: detail}
	}
	v := entry.Value
	switch {
	case v == nil:
		return nil, fail(fmt.Sprintf("span %s has no value", entry.ID))
	case len(v.HypertextLabels) == 0:
		return nil, fail(fmt.Sprintf("span %s has no label", entry.ID))
	case v.Start != v.End:
		return nil, fail(fmt.Sprintf("span %s crosses elements: %s vs %s", entry.ID, v.Start, v.End))
	}

	text, start, end := repairEdges(v.Text, v.StartOffset, v.EndOffset)
	if text == "" {
		return nil, fail(fmt.Sprintf("span %s is empty", entry.ID))
	}
	if end <= start {
		return nil, fail(fmt.Sprintf("span %s offsets inverted: %d..%d", entry.ID, start, end))
	}

	return &model.Entity{
		ID:       entry.ID,
		Document: docName,
		Filename: filename,
		Label:    v.HypertextLabels[0],
		Text:     text,
		Start:    start,
		End:      end,
		Path:     v.Start,
	}, nil
}

// repairEdges trims whitespace the annotator swept into the selection and
// moves the offsets inward to match. Offsets count runes.
func repairEdges(text string, start, end int) (string, int, int) {
	r := []rune(text)
	i := 0
	for i < len(r) && unicode.IsSpace(r[i]) {
		i++
	}
	j := len(r)
	for j > i && unicode.IsSpace(r[j-1]) {
		j--
	}
	return string(r[i:j]), start + i, end - (len(r) - j)
}

// taskNames derives the document name and original filename from the
// task's upload record.
func taskNames(task exportTask) (name, filename string) {
	filename = uploadPrefix.ReplaceAllString(task.FileUpload, "")
	if filename == "" {
		name = fmt.Sprintf("task-%d", task.ID)
		return name, ""
	}
	return strings.TrimSuffix(filename, filepath.Ext(filename)), filename
}

// firstDataValue returns the value of the task's first data key. Projects
// name the HTML field freely; by convention the served document is the
// first entry.
func firstDataValue(raw json.RawMessage) string {
	var html string
	gjson.ParseBytes(raw).ForEach(func(_, value gjson.Result) bool {
		html = value.String()
		return false
	})
	return html
}
