package manifest

import (
	"context"
	"fmt"
	"strings"
)

// Store loads and persists manifests for documents.
//
// Load returns an empty manifest when none has been saved for the document.
// Save replaces the stored manifest in full; it never merges.
type Store interface {
	Load(ctx context.Context, document string) (Manifest, error)
	Save(ctx context.Context, document string, m Manifest) error
	Delete(ctx context.Context, document string) error

	// Location describes where the manifest of document lives (a file path
	// or a backend key), for display purposes.
	Location(document string) string

	Close() error
}

// Backend names accepted by [Open].
const (
	BackendFile  = "file"
	BackendNone  = "none"
	BackendRedis = "redis"
	BackendMongo = "mongodb"
)

// Open returns the store selected by target:
//   - "" or "file": [FileStore], manifests next to their documents
//   - "none": [NullStore], nothing is persisted
//   - "redis://..." or "rediss://...": [RedisStore]
//   - "mongodb://..." or "mongodb+srv://...": [MongoStore]
func Open(ctx context.Context, target string) (Store, error) {
	switch {
	case target == "" || target == BackendFile:
		return NewFileStore(), nil
	case target == BackendNone:
		return NewNullStore(), nil
	case strings.HasPrefix(target, "redis://"), strings.HasPrefix(target, "rediss://"):
		return NewRedisStore(ctx, target)
	case strings.HasPrefix(target, "mongodb://"), strings.HasPrefix(target, "mongodb+srv://"):
		return NewMongoStore(ctx, target)
	default:
		return nil, fmt.Errorf("unknown manifest store %q (want file, none, redis://... or mongodb://...)", target)
	}
}
