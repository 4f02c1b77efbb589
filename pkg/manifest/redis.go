package manifest

import (
	"context"
	goerrors "errors"
	"fmt"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/drawsync/pkg/errors"
)

// redisKeyPrefix namespaces manifest keys in a shared Redis instance.
const redisKeyPrefix = "drawsync:manifest:"

// RedisStore keeps manifests in Redis, one string key per document holding
// the same JSON that [FileStore] writes. SET replaces the value atomically.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to the Redis server at url and verifies the
// connection with a PING.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(errors.ErrCodeIO, err, "connect to redis")
	}
	return NewRedisStoreFromClient(client), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: redisKeyPrefix}
}

// Load fetches the manifest of document. A missing key yields an empty manifest.
func (s *RedisStore) Load(ctx context.Context, document string) (Manifest, error) {
	data, err := s.client.Get(ctx, s.key(document)).Bytes()
	if goerrors.Is(err, redis.Nil) {
		return New(), nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "get manifest")
	}
	m, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.key(document), err)
	}
	return m, nil
}

// Save stores the manifest of document without expiration.
func (s *RedisStore) Save(ctx context.Context, document string, m Manifest) error {
	data, err := Marshal(m)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode manifest")
	}
	err = retry(ctx, func() error {
		err := s.client.Set(ctx, s.key(document), data, 0).Err()
		if redisTransient(err) {
			return transient(err)
		}
		return err
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "set manifest")
	}
	return nil
}

// redisTransient reports connection-level failures. Replies from the server
// implement redis.Error and are returned as is.
func redisTransient(err error) bool {
	if err == nil || goerrors.Is(err, context.Canceled) || goerrors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var reply redis.Error
	return !goerrors.As(err, &reply)
}

// Delete removes the manifest of document.
func (s *RedisStore) Delete(ctx context.Context, document string) error {
	if err := s.client.Del(ctx, s.key(document)).Err(); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "delete manifest")
	}
	return nil
}

// Location returns the Redis key used for document.
func (s *RedisStore) Location(document string) string {
	return s.key(document)
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(document string) string {
	return s.prefix + absPath(document)
}

// absPath makes document absolute so the same file always maps to one key.
func absPath(document string) string {
	if abs, err := filepath.Abs(document); err == nil {
		return abs
	}
	return filepath.Clean(document)
}

// Ensure RedisStore implements Store.
var _ Store = (*RedisStore)(nil)
