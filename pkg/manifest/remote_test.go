package manifest

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/drawsync/pkg/errors"
)

// Nothing listens on port 1, and the clients connect lazily, so these
// stores fail on first use without a server.

func unreachableMongo(t *testing.T) *MongoStore {
	t.Helper()
	opts := options.Client().
		ApplyURI("mongodb://127.0.0.1:1").
		SetServerSelectionTimeout(200 * time.Millisecond)
	client, err := mongo.Connect(context.Background(), opts)
	if err != nil {
		t.Fatalf("mongo.Connect() error: %v", err)
	}
	s := NewMongoStoreFromClient(client, "")
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func unreachableRedis(t *testing.T) *RedisStore {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	s := NewRedisStoreFromClient(client)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRemoteLoadFailuresAreIOErrors(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name  string
		store func(*testing.T) Store
		ctx   context.Context
	}{
		{"mongo cancelled", func(t *testing.T) Store { return unreachableMongo(t) }, cancelled},
		{"mongo unreachable", func(t *testing.T) Store { return unreachableMongo(t) }, context.Background()},
		{"redis cancelled", func(t *testing.T) Store { return unreachableRedis(t) }, cancelled},
		{"redis unreachable", func(t *testing.T) Store { return unreachableRedis(t) }, context.Background()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.store(t).Load(tt.ctx, "/docs/arch.drawio")
			if err == nil {
				t.Fatal("Load() expected error")
			}
			if errors.Is(err, errors.ErrCodeManifestCorrupt) {
				t.Errorf("Load() reported a corrupt manifest: %v", err)
			}
			if !errors.Is(err, errors.ErrCodeIO) {
				t.Errorf("Load() code = %v, want %v", errors.GetCode(err), errors.ErrCodeIO)
			}
		})
	}
}
