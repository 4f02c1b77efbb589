// Package document reads the page structure of draw.io diagram files.
//
// A draw.io file is an XML document whose root (usually <mxfile>) holds one
// child element per page:
//
//	<mxfile host="...">
//	  <diagram name="Intro" id="a1b2">...</diagram>
//	  <diagram name="Detail" id="c3d4">...</diagram>
//	</mxfile>
//
// Pages are returned in document order and indexed from zero. The content of
// each page is the raw inner XML of its element, which is either a compressed
// base64 payload or an uncompressed <mxGraphModel>. Content is never decoded:
// it is only fingerprinted, so any byte change counts as a change.
package document

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/drawsync/pkg/errors"
)

// Page is one exportable page of a diagram document.
type Page struct {
	Index   int    // 0-based position in document order
	Name    string // value of the name attribute, used as output file stem
	ID      string // value of the id attribute, empty if absent
	Content []byte // raw inner XML of the page element
}

// mxfile captures the root element and all of its direct children.
type mxfile struct {
	XMLName  xml.Name
	Children []element `xml:",any"`
}

type element struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Inner   []byte     `xml:",innerxml"`
}

func (e element) attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// ReadPages opens the document at path and returns its pages.
// Every failure, including a missing file, is a DOCUMENT_PARSE error.
func ReadPages(path string) ([]Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDocumentParse, err, "open document %s", path)
	}
	defer f.Close()

	pages, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pages, nil
}

// Parse decodes a draw.io document from r.
func Parse(r io.Reader) ([]Page, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDocumentParse, err, "read document")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New(errors.ErrCodeDocumentParse, "document is empty")
	}

	root, err := decodeRoot(data)
	if err != nil {
		return nil, err
	}

	pages := make([]Page, 0, len(root.Children))
	for i, child := range root.Children {
		name, ok := child.attr("name")
		if !ok {
			name = fmt.Sprintf("Page-%d", i+1)
		}
		id, _ := child.attr("id")
		pages = append(pages, Page{
			Index:   i,
			Name:    name,
			ID:      id,
			Content: child.Inner,
		})
	}
	return pages, nil
}

// decodeRoot decodes the single root element of data. Only whitespace,
// comments and processing instructions may follow it.
func decodeRoot(data []byte) (*mxfile, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var root mxfile
	if err := dec.Decode(&root); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDocumentParse, err, "malformed document")
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return &root, nil
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDocumentParse, err, "malformed document")
		}
		switch t := tok.(type) {
		case xml.Comment, xml.ProcInst:
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				return nil, errors.New(errors.ErrCodeDocumentParse, "malformed document: text after root element")
			}
		default:
			return nil, errors.New(errors.ErrCodeDocumentParse, "malformed document: content after root element")
		}
	}
}
