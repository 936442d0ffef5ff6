package document

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/solatis/gfb/internal/types"
)

const sampleDocument = `
newsletters:
  data:
    - or-from:
        - news@shop.example
        - digest@mail.example
    - and
    - or-subject: weekly
  actions: [archive, mark-read]
receipts:
  data:
    - or-from: billing@x.example
      and-section-not:
        - or-subject: [refund]
        - or
        - or-to: ~
  actions: never-spam
`

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(sampleDocument))
	if err != nil {
		t.Fatalf("Parse() error = %v, want nil", err)
	}

	want := &types.Document{Filters: []types.FilterSpec{
		{
			Label: "newsletters",
			Data: []types.Section{
				{Clauses: []types.Clause{{
					Key: "or-from", Kind: types.ClauseLeaf,
					Values: []string{"news@shop.example", "digest@mail.example"}, Line: 4,
				}}},
				{Joiner: "and"},
				{Clauses: []types.Clause{{Key: "or-subject", Kind: types.ClauseLeaf, Values: []string{"weekly"}, Line: 8}}},
			},
			Actions: []string{"archive", "mark-read"},
		},
		{
			Label: "receipts",
			Data: []types.Section{
				{Clauses: []types.Clause{
					{Key: "or-from", Kind: types.ClauseLeaf, Values: []string{"billing@x.example"}, Line: 12},
					{Key: "and-section-not", Kind: types.ClauseGroup, Line: 13, Groups: []types.Section{
						{Clauses: []types.Clause{{Key: "or-subject", Kind: types.ClauseLeaf, Values: []string{"refund"}, Line: 14}}},
						{Joiner: "or"},
						{Clauses: []types.Clause{{Key: "or-to", Kind: types.ClauseLeaf, Line: 16}}},
					}},
				}},
			},
			Actions: []string{"never-spam"},
		},
	}}

	if !reflect.DeepEqual(doc, want) {
		t.Errorf("Parse() =\n%+v\nwant\n%+v", doc, want)
	}
}

func TestParse_JSON(t *testing.T) {
	doc, err := Parse([]byte(`{"b": {"data": [{"or-to": ["x@y.z"]}]}, "a": {"data": ["or"]}}`))
	if err != nil {
		t.Fatalf("Parse() error = %v, want nil", err)
	}
	if len(doc.Filters) != 2 || doc.Filters[0].Label != "b" || doc.Filters[1].Label != "a" {
		t.Errorf("Parse() labels out of source order: %+v", doc.Filters)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		line int
	}{
		{"empty", "", 0},
		{"not a mapping", "- a\n- b\n", 1},
		{"filter not a mapping", "label: text\n", 1},
		{"missing data", "label:\n  actions: [archive]\n", 2},
		{"unknown key", "label:\n  data: []\n  labels: [x]\n", 3},
		{"nested value list", "label:\n  data:\n    - or-from:\n        - [a, b]\n", 4},
		{"section is a list", "label:\n  data:\n    - [a, b]\n", 3},
		{"duplicate label", "a:\n  data: []\na:\n  data: []\n", 3},
		{"value is a mapping", "label:\n  data:\n    - or-from: {a: b}\n", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if !errors.Is(err, types.ErrInvalidDocument) {
				t.Fatalf("Parse() error = %v, want ErrInvalidDocument", err)
			}
			var docErr *types.DocumentError
			if !errors.As(err, &docErr) {
				t.Fatalf("Parse() error type = %T, want *DocumentError", err)
			}
			if docErr.Line != tt.line {
				t.Errorf("DocumentError.Line = %d, want %d (%v)", docErr.Line, tt.line, err)
			}
		})
	}
}

func TestParse_Aliases(t *testing.T) {
	doc, err := Parse([]byte(`
first:
  data:
    - or-from: &vendors [a@v.example, b@v.example]
second:
  data:
    - or-cc: *vendors
`))
	if err != nil {
		t.Fatalf("Parse() error = %v, want nil", err)
	}
	got := doc.Filters[1].Data[0].Clauses[0].Values
	if !reflect.DeepEqual(got, []string{"a@v.example", "b@v.example"}) {
		t.Errorf("aliased values = %v, want the anchored list", got)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "filters.yaml")
	if err := os.WriteFile(path, []byte(sampleDocument), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if len(doc.Filters) != 2 {
		t.Errorf("Load() returned %d filters, want 2", len(doc.Filters))
	}
}

func TestCheckPath(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "b.YML", "c.json", "d.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x: 1\n"), 0o600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"yaml", filepath.Join(dir, "a.yaml"), false},
		{"yml any case", filepath.Join(dir, "b.YML"), false},
		{"json", filepath.Join(dir, "c.json"), false},
		{"wrong extension", filepath.Join(dir, "d.txt"), true},
		{"missing", filepath.Join(dir, "missing.yaml"), true},
		{"directory", dir, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckPath(%s) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}

	if got := CleanedPath(filepath.Join(dir, "a.yaml")); got != filepath.Join(dir, CleanedFileName) {
		t.Errorf("CleanedPath() = %s, want %s", got, filepath.Join(dir, CleanedFileName))
	}
}
