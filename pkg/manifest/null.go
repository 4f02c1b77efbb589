package manifest

import "context"

// NullStore is a no-op store that never persists anything.
// Every run against it sees an empty manifest, so every page is exported.
type NullStore struct{}

// NewNullStore creates a null store.
func NewNullStore() Store {
	return &NullStore{}
}

// Load always returns an empty manifest.
func (s *NullStore) Load(ctx context.Context, document string) (Manifest, error) {
	return New(), nil
}

// Save does nothing.
func (s *NullStore) Save(ctx context.Context, document string, m Manifest) error {
	return nil
}

// Delete does nothing.
func (s *NullStore) Delete(ctx context.Context, document string) error {
	return nil
}

// Location returns "none".
func (s *NullStore) Location(document string) string {
	return BackendNone
}

// Close does nothing.
func (s *NullStore) Close() error {
	return nil
}

// Ensure NullStore implements Store.
var _ Store = (*NullStore)(nil)
