package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/matzehuels/drawsync/pkg/errors"
)

// FileStore keeps each manifest in a hidden JSON file next to its document.
// See [PathFor] for the naming convention.
type FileStore struct {
	perm os.FileMode
}

// NewFileStore creates a file-based manifest store.
func NewFileStore() *FileStore {
	return &FileStore{perm: 0644}
}

// Load reads the manifest of document.
// A missing file yields an empty manifest; a file that exists but cannot be
// decoded is a MANIFEST_CORRUPT error and is left untouched on disk.
func (s *FileStore) Load(ctx context.Context, document string) (Manifest, error) {
	return s.LoadFile(PathFor(document))
}

// LoadFile reads a manifest from an explicit path.
func (s *FileStore) LoadFile(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read manifest %s", path)
	}

	m, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Save writes the manifest of document atomically.
func (s *FileStore) Save(ctx context.Context, document string, m Manifest) error {
	return s.SaveFile(PathFor(document), m)
}

// SaveFile writes a manifest to an explicit path atomically. Readers see
// either the previous manifest or the new one, never a partial write.
func (s *FileStore) SaveFile(path string, m Manifest) error {
	data, err := Marshal(m)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode manifest")
	}
	if err := writeFileAtomic(path, data, s.perm); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write manifest %s", path)
	}
	return nil
}

// Delete removes the manifest file of document. A missing file is not an error.
func (s *FileStore) Delete(ctx context.Context, document string) error {
	err := os.Remove(PathFor(document))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.ErrCodeIO, err, "remove manifest")
	}
	return nil
}

// Location returns the manifest file path for document.
func (s *FileStore) Location(document string) string {
	return PathFor(document)
}

// Close does nothing for file store.
func (s *FileStore) Close() error {
	return nil
}

// writeFileAtomic writes data to a temporary file in the target directory,
// syncs it, and renames it over path. The rename is atomic on POSIX
// filesystems; on platforms where it is not, the old file is replaced on a
// best-effort basis.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()

	ok := false
	defer func() {
		if !ok {
			f.Close()
			os.Remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp, perm); err != nil {
		return fmt.Errorf("set permissions: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	ok = true
	return nil
}

// Ensure FileStore implements Store.
var _ Store = (*FileStore)(nil)
