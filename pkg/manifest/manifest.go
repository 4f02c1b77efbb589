// Package manifest records which content was last exported for each page of
// a diagram document.
//
// A manifest maps a page index to the last synced [Page] record (name,
// content hash, output path). It is loaded once before a sync run and saved
// once after it, replacing the previous manifest in full.
//
// # Storage
//
// The default [FileStore] keeps the manifest next to the document it
// describes, as a hidden JSON file derived from the document's base name:
//
//	diagrams/architecture.drawio
//	diagrams/.architecture.drawio.sync.json
//
// [RedisStore] and [MongoStore] hold the same JSON-equivalent records in a
// shared backend, keyed by the document's absolute path. [NullStore]
// disables persistence entirely.
//
// Deleting a manifest is always safe: the next run exports every page again.
package manifest

import (
	"encoding/json"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/matzehuels/drawsync/pkg/errors"
)

// FileSuffix is appended to the document base name to form the manifest file name.
const FileSuffix = ".sync.json"

// Page is the synced state of one page.
type Page struct {
	Index int    `json:"-" bson:"-"`
	Name  string `json:"name" bson:"name"`
	Hash  string `json:"hash" bson:"hash"`
	Path  string `json:"path" bson:"path"`
}

// Equal reports whether p and o describe the same export: same name, same
// content hash and same output path.
func (p Page) Equal(o Page) bool {
	return p.Name == o.Name && p.Hash == o.Hash && p.Path == o.Path
}

// Manifest maps page indices to their last synced record.
type Manifest map[int]Page

// New returns an empty manifest.
func New() Manifest {
	return make(Manifest)
}

// FromPages builds a manifest holding exactly the given records.
func FromPages(pages []Page) Manifest {
	m := make(Manifest, len(pages))
	for _, p := range pages {
		m.Put(p)
	}
	return m
}

// Get returns a copy of the record for index, or nil if there is none.
func (m Manifest) Get(index int) *Page {
	p, ok := m[index]
	if !ok {
		return nil
	}
	return &p
}

// Put stores p under its index.
func (m Manifest) Put(p Page) {
	m[p.Index] = p
}

// Delete removes the record for index.
func (m Manifest) Delete(index int) {
	delete(m, index)
}

// Indices returns the page indices in ascending order.
func (m Manifest) Indices() []int {
	out := make([]int, 0, len(m))
	for i := range m {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Pages returns all records ordered by index.
func (m Manifest) Pages() []Page {
	out := make([]Page, 0, len(m))
	for _, i := range m.Indices() {
		out = append(out, m[i])
	}
	return out
}

// Clone returns a shallow copy of m.
func (m Manifest) Clone() Manifest {
	c := make(Manifest, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// Merge returns a copy of m with every record of other applied on top.
func (m Manifest) Merge(other Manifest) Manifest {
	c := m.Clone()
	for k, v := range other {
		c[k] = v
	}
	return c
}

// Equal reports whether m and o hold the same records.
func (m Manifest) Equal(o Manifest) bool {
	if len(m) != len(o) {
		return false
	}
	for k, v := range m {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Marshal encodes m as indented JSON keyed by decimal page index.
// The output is deterministic: the same records always produce the same bytes.
func Marshal(m Manifest) ([]byte, error) {
	if m == nil {
		m = New()
	}
	data, err := json.MarshalIndent(toStringKeys(m), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Unmarshal decodes a manifest produced by [Marshal].
// Anything that is not a JSON object keyed by non-negative integers is a
// MANIFEST_CORRUPT error.
func Unmarshal(data []byte) (Manifest, error) {
	var raw map[string]Page
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeManifestCorrupt, err, "decode manifest")
	}
	return fromStringKeys(raw)
}

// PathFor returns the manifest file path for a document: a hidden file in
// the document's directory named after its base name.
func PathFor(document string) string {
	dir, base := filepath.Split(document)
	return filepath.Join(dir, "."+base+FileSuffix)
}

func toStringKeys(m Manifest) map[string]Page {
	out := make(map[string]Page, len(m))
	for k, v := range m {
		out[strconv.Itoa(k)] = v
	}
	return out
}

func fromStringKeys(raw map[string]Page) (Manifest, error) {
	m := make(Manifest, len(raw))
	for k, v := range raw {
		idx, err := strconv.Atoi(k)
		if err != nil || idx < 0 {
			return nil, errors.New(errors.ErrCodeManifestCorrupt, "invalid page index %q", k)
		}
		v.Index = idx
		m[idx] = v
	}
	return m, nil
}
