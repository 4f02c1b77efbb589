package document

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/drawsync/pkg/errors"
)

const twoPages = `<?xml version="1.0" encoding="UTF-8"?>
<mxfile host="app.diagrams.net">
  <diagram name="Intro" id="p1">A</diagram>
  <diagram name="Detail" id="p2">BB</diagram>
</mxfile>`

func TestParse(t *testing.T) {
	pages, err := Parse(strings.NewReader(twoPages))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}

	want := []struct {
		index   int
		name    string
		id      string
		content string
	}{
		{0, "Intro", "p1", "A"},
		{1, "Detail", "p2", "BB"},
	}
	for i, w := range want {
		p := pages[i]
		if p.Index != w.index || p.Name != w.name || p.ID != w.id || string(p.Content) != w.content {
			t.Errorf("pages[%d] = {%d %q %q %q}, want {%d %q %q %q}",
				i, p.Index, p.Name, p.ID, p.Content, w.index, w.name, w.id, w.content)
		}
	}
}

func TestParseNestedContent(t *testing.T) {
	doc := `<mxfile><diagram name="Flow"><mxGraphModel><root><mxCell id="0"/></root></mxGraphModel></diagram></mxfile>`
	pages, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(pages))
	}
	if got := string(pages[0].Content); got != `<mxGraphModel><root><mxCell id="0"/></root></mxGraphModel>` {
		t.Errorf("Content = %q", got)
	}
}

func TestParseMissingName(t *testing.T) {
	doc := `<mxfile><diagram id="x">A</diagram><diagram>B</diagram></mxfile>`
	pages, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if pages[0].Name != "Page-1" || pages[1].Name != "Page-2" {
		t.Errorf("names = %q, %q; want Page-1, Page-2", pages[0].Name, pages[1].Name)
	}
}

func TestParseNoPages(t *testing.T) {
	pages, err := Parse(strings.NewReader(`<mxfile></mxfile>`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(pages) != 0 {
		t.Errorf("got %d pages, want 0", len(pages))
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"whitespace", "  \n"},
		{"not xml", "hello world"},
		{"unclosed", "<mxfile><diagram name=\"A\">"},
		{"second root", `<mxfile><diagram name="A">x</diagram></mxfile><mxfile></mxfile>`},
		{"broken tail", `<mxfile><diagram name="A">x</diagram></mxfile><diagram name="B"><<<garbage`},
		{"trailing text", `<mxfile><diagram name="A">x</diagram></mxfile> junk`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			if err == nil {
				t.Fatal("Parse() expected error")
			}
			if !errors.Is(err, errors.ErrCodeDocumentParse) {
				t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeDocumentParse)
			}
		})
	}
}

func TestParseTrailingMisc(t *testing.T) {
	doc := "<mxfile><diagram name=\"A\">x</diagram></mxfile>\n<!-- saved -->\n<?app v=1?>\n"
	pages, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(pages) != 1 {
		t.Errorf("got %d pages, want 1", len(pages))
	}
}

func TestParseKeepsUnsafeNames(t *testing.T) {
	doc := `<mxfile><diagram name="Ok">A</diagram><diagram name="Input/Output">B</diagram></mxfile>`
	pages, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(pages) != 2 || pages[1].Name != "Input/Output" {
		t.Errorf("pages = %+v, want Ok and Input/Output", pages)
	}
}

func TestReadPages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arch.drawio")
	if err := os.WriteFile(path, []byte(twoPages), 0644); err != nil {
		t.Fatal(err)
	}

	pages, err := ReadPages(path)
	if err != nil {
		t.Fatalf("ReadPages() error: %v", err)
	}
	if len(pages) != 2 {
		t.Errorf("got %d pages, want 2", len(pages))
	}
}

func TestReadPagesMissing(t *testing.T) {
	_, err := ReadPages(filepath.Join(t.TempDir(), "missing.drawio"))
	if !errors.Is(err, errors.ErrCodeDocumentParse) {
		t.Errorf("ReadPages() error = %v, want DOCUMENT_PARSE", err)
	}
}

func TestReadPagesDeterministic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arch.drawio")
	if err := os.WriteFile(path, []byte(twoPages), 0644); err != nil {
		t.Fatal(err)
	}

	a, _ := ReadPages(path)
	b, _ := ReadPages(path)
	for i := range a {
		if string(a[i].Content) != string(b[i].Content) || a[i].Name != b[i].Name {
			t.Errorf("page %d differs between reads", i)
		}
	}
}
