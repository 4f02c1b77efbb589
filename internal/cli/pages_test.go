package cli

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/drawsync/pkg/document"
	"github.com/matzehuels/drawsync/pkg/manifest"
	"github.com/matzehuels/drawsync/pkg/plan"
)

func TestPageRowsStatus(t *testing.T) {
	doc := filepath.Join(t.TempDir(), "arch.drawio")
	pages := []document.Page{
		{Index: 0, Name: "Intro", Content: []byte("<a/>")},
		{Index: 1, Name: "Detail", Content: []byte("<b/>")},
		{Index: 2, Name: "Appendix", Content: []byte("<c/>")},
	}

	rows, err := pageRows(doc, pages, manifest.New(), "", "png")
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range rows {
		if r.Status != statusNew {
			t.Errorf("page %d status = %s, want %s without a manifest", r.Index, r.Status, statusNew)
		}
	}

	p, err := plan.Build(plan.Input{Document: doc, Pages: pages, Selection: plan.All(), Format: "png"})
	if err != nil {
		t.Fatal(err)
	}
	synced := p.Manifest()

	pages[1].Content = []byte("<b changed='1'/>")
	rows, err = pageRows(doc, pages, synced, "", "png")
	if err != nil {
		t.Fatal(err)
	}

	want := []string{statusSynced, statusChanged, statusSynced}
	for i, r := range rows {
		if r.Status != want[i] {
			t.Errorf("page %d status = %s, want %s", i, r.Status, want[i])
		}
		if len(r.Hash) != 64 {
			t.Errorf("page %d hash = %q", i, r.Hash)
		}
	}
	if rows[2].Path != filepath.Join(filepath.Dir(doc), "Appendix.png") {
		t.Errorf("path = %s", rows[2].Path)
	}

	// A different format changes every output path.
	rows, err = pageRows(doc, pages, synced, "", "svg")
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range rows {
		if r.Status != statusChanged {
			t.Errorf("page %d status = %s after format change", r.Index, r.Status)
		}
	}
}

func TestPageRowsInvalidName(t *testing.T) {
	doc := filepath.Join(t.TempDir(), "arch.drawio")
	pages := []document.Page{
		{Index: 0, Name: "Intro", Content: []byte("<a/>")},
		{Index: 1, Name: "Input/Output", Content: []byte("<b/>")},
		{Index: 2, Name: "Appendix", Content: []byte("<c/>")},
	}

	rows, err := pageRows(doc, pages, manifest.New(), "", "png")
	if err != nil {
		t.Fatalf("pageRows() error: %v", err)
	}
	want := []string{statusNew, statusInvalid, statusNew}
	if len(rows) != len(want) {
		t.Fatalf("got %d rows, want %d", len(rows), len(want))
	}
	for i, r := range rows {
		if r.Index != i || r.Status != want[i] {
			t.Errorf("row %d = {%d %s}, want {%d %s}", i, r.Index, r.Status, i, want[i])
		}
	}
	if rows[1].Path != "" {
		t.Errorf("invalid page path = %q, want empty", rows[1].Path)
	}
}

func TestRenderPageTable(t *testing.T) {
	out := renderPageTable([]pageRow{
		{Index: 0, Name: "Intro", Hash: strings.Repeat("ab", 32), Path: "/docs/Intro.png", Status: statusSynced},
		{Index: 1, Name: "Detail", Hash: strings.Repeat("cd", 32), Path: "/docs/Detail.png", Status: statusNew},
	})

	for _, want := range []string{"Intro", "Detail", "abababababab", "/docs/Detail.png", statusNew} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, strings.Repeat("ab", 7)) {
		t.Error("hash should be shortened")
	}
}

func TestPagesCommand(t *testing.T) {
	c, _ := newTestCLI(t)
	doc := writeTestDoc(t, "Intro", "Detail")

	if _, err := execute(c, "pages", doc); err != nil {
		t.Fatalf("pages: %v", err)
	}
	if _, err := execute(c, "pages", doc+".missing"); err == nil {
		t.Error("expected error for a missing document")
	}
}
