package labelstudio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/irgroup/labelstudio-to-fonduer/internal/model"
)

const sampleExport = `[
  {
    "id": 1,
    "file_upload": "9a8b7c6d-lincoln.html",
    "data": {"html": "<html><head></head><body><p>Abraham Lincoln was a president.</p><p>Mary Todd was married to Lincoln.</p></body></html>"},
    "annotations": [
      {
        "id": 10,
        "result": [
          {
            "id": "a1",
            "type": "hypertextlabels",
            "value": {
              "start": "/p[1]/text()[1]",
              "end": "/p[1]/text()[1]",
              "startOffset": 0,
              "endOffset": 16,
              "text": " Abraham Lincoln",
              "hypertextlabels": ["person"]
            }
          },
          {
            "id": "a2",
            "type": "hypertextlabels",
            "value": {
              "start": "/p[2]/text()[1]",
              "end": "/p[2]/text()[1]",
              "startOffset": 0,
              "endOffset": 9,
              "text": "Mary Todd",
              "hypertextlabels": ["spouse"]
            }
          },
          {
            "type": "relation",
            "from_id": "a1",
            "to_id": "a2",
            "direction": "right"
          }
        ]
      },
      {
        "id": 11,
        "result": [
          {
            "id": "b1",
            "type": "hypertextlabels",
            "value": {
              "start": "/p[1]/text()[1]",
              "end": "/p[1]/text()[1]",
              "startOffset": 16,
              "endOffset": 20,
              "text": " was",
              "hypertextlabels": ["noise"]
            }
          }
        ]
      }
    ]
  }
]`

func TestParseExportBytes(t *testing.T) {
	exp, fails, err := ParseExportBytes([]byte(sampleExport))
	if err != nil {
		t.Fatalf("ParseExportBytes: %v", err)
	}
	if len(fails) != 0 {
		t.Fatalf("unexpected failures: %+v", fails)
	}
	if len(exp.Documents) != 1 {
		t.Fatalf("got %d documents, want 1", len(exp.Documents))
	}

	doc := exp.Documents[0]
	if doc.Name != "lincoln" || doc.Filename != "lincoln.html" {
		t.Errorf("names = %q/%q", doc.Name, doc.Filename)
	}
	if doc.HTML == "" {
		t.Error("document HTML is empty")
	}

	// only the first annotator's result counts
	if len(doc.Entities) != 2 {
		t.Fatalf("got %d entities: %+v", len(doc.Entities), doc.Entities)
	}

	first := doc.Entities[0]
	if first.Text != "Abraham Lincoln" || first.Start != 1 || first.End != 16 {
		t.Errorf("edge repair: text %q, offsets %d..%d", first.Text, first.Start, first.End)
	}
	if first.Label != "person" || first.Path != "/p[1]/text()[1]" || first.Document != "lincoln" {
		t.Errorf("entity = %+v", first)
	}

	if len(doc.Relations) != 1 {
		t.Fatalf("got %d relations", len(doc.Relations))
	}
	rel := doc.Relations[0]
	if rel.From != doc.Entities[0] || rel.To != doc.Entities[1] {
		t.Error("relation endpoints are not the parsed entities")
	}
	if rel.Direction != "right" {
		t.Errorf("direction = %q", rel.Direction)
	}
}

func TestParseExportImplicitRelation(t *testing.T) {
	data := `[{"id": 2, "file_upload": "0badcafe-pair.html",
		"data": {"html": "<html><body><p>ab</p></body></html>"},
		"annotations": [{"id": 1, "result": [
			{"id": "x", "type": "hypertextlabels", "value": {"start": "/p[1]/text()[1]", "end": "/p[1]/text()[1]", "startOffset": 0, "endOffset": 1, "text": "a", "hypertextlabels": ["l1"]}},
			{"id": "y", "type": "hypertextlabels", "value": {"start": "/p[1]/text()[1]", "end": "/p[1]/text()[1]", "startOffset": 1, "endOffset": 2, "text": "b", "hypertextlabels": ["l2"]}}
		]}]}]`

	exp, fails, err := ParseExportBytes([]byte(data))
	if err != nil || len(fails) != 0 {
		t.Fatalf("err = %v, failures = %+v", err, fails)
	}
	doc := exp.Documents[0]
	if len(doc.Relations) != 1 {
		t.Fatalf("got %d relations, want 1 inferred", len(doc.Relations))
	}
	rel := doc.Relations[0]
	if rel.From != doc.Entities[0] || rel.To != doc.Entities[1] || rel.Direction != "" {
		t.Errorf("inferred relation = %+v", rel)
	}
}

func TestParseExportMalformedEntries(t *testing.T) {
	data := `[{"id": 3, "file_upload": "deadbeef-bad.html",
		"data": {"html": "<html><body><p>ok</p></body></html>"},
		"annotations": [{"id": 1, "result": [
			{"id": "good", "type": "hypertextlabels", "value": {"start": "/p[1]/text()[1]", "end": "/p[1]/text()[1]", "startOffset": 0, "endOffset": 2, "text": "ok", "hypertextlabels": ["l"]}},
			{"id": "novalue", "type": "hypertextlabels"},
			{"id": "nolabel", "type": "hypertextlabels", "value": {"start": "/p[1]/text()[1]", "end": "/p[1]/text()[1]", "startOffset": 0, "endOffset": 2, "text": "ok", "hypertextlabels": []}},
			{"id": "crossing", "type": "hypertextlabels", "value": {"start": "/p[1]/text()[1]", "end": "/p[2]/text()[1]", "startOffset": 0, "endOffset": 2, "text": "ok", "hypertextlabels": ["l"]}},
			{"id": "blank", "type": "hypertextlabels", "value": {"start": "/p[1]/text()[1]", "end": "/p[1]/text()[1]", "startOffset": 0, "endOffset": 3, "text": "   ", "hypertextlabels": ["l"]}},
			{"type": "relation", "from_id": "good", "to_id": "novalue"}
		]}]}]`

	exp, fails, err := ParseExportBytes([]byte(data))
	if err != nil {
		t.Fatalf("ParseExportBytes: %v", err)
	}
	if len(fails) != 5 {
		t.Fatalf("got %d failures, want 5: %+v", len(fails), fails)
	}
	for _, f := range fails {
		if f.Kind != model.FailureMalformedExport {
			t.Errorf("failure kind = %s", f.Kind)
		}
	}

	doc := exp.Documents[0]
	if len(doc.Entities) != 1 || doc.Entities[0].ID != "good" {
		t.Errorf("entities = %+v", doc.Entities)
	}
	if len(doc.Relations) != 0 {
		t.Errorf("relations = %+v", doc.Relations)
	}
}

func TestParseExportSkipsUnannotated(t *testing.T) {
	data := `[{"id": 4, "file_upload": "f00dfeed-empty.html",
		"data": {"html": "<html><body></body></html>"}, "annotations": []}]`

	exp, fails, err := ParseExportBytes([]byte(data))
	if err != nil || len(fails) != 0 {
		t.Fatalf("err = %v, failures = %+v", err, fails)
	}
	if len(exp.Documents) != 0 {
		t.Errorf("documents = %+v", exp.Documents)
	}
}

func TestParseExportNoData(t *testing.T) {
	data := `[{"id": 5, "file_upload": "12345678-void.html", "data": {},
		"annotations": [{"id": 1, "result": []}]}]`

	exp, fails, err := ParseExportBytes([]byte(data))
	if err != nil {
		t.Fatalf("ParseExportBytes: %v", err)
	}
	if len(exp.Documents) != 0 {
		t.Errorf("documents = %+v", exp.Documents)
	}
	if len(fails) != 1 || fails[0].Kind != model.FailureMalformedExport {
		t.Fatalf("failures = %+v", fails)
	}
}

func TestParseExportFirstDataKey(t *testing.T) {
	data := `[{"id": 6, "file_upload": "abcdef01-multi.html",
		"data": {"text": "<html><body><p>served</p></body></html>", "source": "crawler"},
		"annotations": [{"id": 1, "result": [
			{"id": "s", "type": "hypertextlabels", "value": {"start": "/p[1]/text()[1]", "end": "/p[1]/text()[1]", "startOffset": 0, "endOffset": 6, "text": "served", "hypertextlabels": ["l"]}}
		]}]}]`

	exp, _, err := ParseExportBytes([]byte(data))
	if err != nil {
		t.Fatalf("ParseExportBytes: %v", err)
	}
	if exp.Documents[0].HTML != "<html><body><p>served</p></body></html>" {
		t.Errorf("HTML = %q", exp.Documents[0].HTML)
	}
}

func TestParseExportTaskWithoutUpload(t *testing.T) {
	data := `[{"id": 9, "data": {"html": "<html><body><p>x</p></body></html>"},
		"annotations": [{"id": 1, "result": [
			{"id": "s", "type": "hypertextlabels", "value": {"start": "/p[1]/text()[1]", "end": "/p[1]/text()[1]", "startOffset": 0, "endOffset": 1, "text": "x", "hypertextlabels": ["l"]}}
		]}]}]`

	exp, _, err := ParseExportBytes([]byte(data))
	if err != nil {
		t.Fatalf("ParseExportBytes: %v", err)
	}
	if exp.Documents[0].Name != "task-9" {
		t.Errorf("name = %q", exp.Documents[0].Name)
	}
}

func TestParseExportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.json")
	if err := os.WriteFile(path, []byte(sampleExport), 0o644); err != nil {
		t.Fatal(err)
	}
	exp, _, err := ParseExport(path)
	if err != nil {
		t.Fatalf("ParseExport: %v", err)
	}
	if exp.Path != path {
		t.Errorf("path = %q", exp.Path)
	}
}

func TestRepairEdges(t *testing.T) {
	cases := []struct {
		text       string
		start, end int
		wantText   string
		wantStart  int
		wantEnd    int
	}{
		{"clean", 3, 8, "clean", 3, 8},
		{"  padded ", 10, 19, "padded", 12, 18},
		{" Müller ", 0, 8, "Müller", 1, 7},
		{"\ttab\n", 5, 10, "tab", 6, 9},
	}
	for _, c := range cases {
		text, start, end := repairEdges(c.text, c.start, c.end)
		if text != c.wantText || start != c.wantStart || end != c.wantEnd {
			t.Errorf("repairEdges(%q, %d, %d) = (%q, %d, %d), want (%q, %d, %d)",
				c.text, c.start, c.end, text, start, end, c.wantText, c.wantStart, c.wantEnd)
		}
	}
}
