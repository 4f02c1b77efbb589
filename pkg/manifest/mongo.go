package manifest

import (
	"context"
	goerrors "errors"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/drawsync/pkg/errors"
)

const (
	defaultMongoDatabase = "drawsync"
	mongoCollection      = "manifests"
	mongoCloseTimeout    = 5 * time.Second
)

// mongoManifest is the stored form of a manifest. BSON keys must be strings,
// so pages are keyed by decimal index as in the JSON form.
type mongoManifest struct {
	ID        string          `bson:"_id"`
	Pages     map[string]Page `bson:"pages"`
	UpdatedAt time.Time       `bson:"updated_at"`
}

// MongoStore keeps manifests in a MongoDB collection, one document per
// source document with the absolute document path as _id.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to the MongoDB deployment at uri. The database is
// taken from the URI path and defaults to "drawsync".
func NewMongoStore(ctx context.Context, uri string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "connect to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeIO, err, "ping mongodb")
	}
	return NewMongoStoreFromClient(client, mongoDatabase(uri)), nil
}

// NewMongoStoreFromClient wraps an existing client.
func NewMongoStoreFromClient(client *mongo.Client, database string) *MongoStore {
	if database == "" {
		database = defaultMongoDatabase
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(mongoCollection),
	}
}

// Load fetches the manifest of document. A missing record yields an empty
// manifest. Only a record that cannot be decoded is MANIFEST_CORRUPT; query
// failures, including cancellation, are IO errors.
func (s *MongoStore) Load(ctx context.Context, document string) (Manifest, error) {
	res := s.coll.FindOne(ctx, bson.M{"_id": absPath(document)})
	if err := res.Err(); err != nil {
		if goerrors.Is(err, mongo.ErrNoDocuments) {
			return New(), nil
		}
		return nil, errors.Wrap(errors.ErrCodeIO, err, "load manifest")
	}

	var doc mongoManifest
	if err := res.Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeManifestCorrupt, err, "decode manifest")
	}
	return fromStringKeys(doc.Pages)
}

// Save upserts the manifest of document, replacing any previous record.
func (s *MongoStore) Save(ctx context.Context, document string, m Manifest) error {
	id := absPath(document)
	doc := mongoManifest{
		ID:        id,
		Pages:     toStringKeys(m),
		UpdatedAt: time.Now().UTC(),
	}
	err := retry(ctx, func() error {
		_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
		if mongoTransient(err) {
			return transient(err)
		}
		return err
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "save manifest")
	}
	return nil
}

// Delete removes the manifest of document.
func (s *MongoStore) Delete(ctx context.Context, document string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": absPath(document)}); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "delete manifest")
	}
	return nil
}

// Location returns the collection and _id used for document.
func (s *MongoStore) Location(document string) string {
	return s.coll.Database().Name() + "." + mongoCollection + "/" + absPath(document)
}

func mongoTransient(err error) bool {
	return err != nil && (mongo.IsNetworkError(err) || mongo.IsTimeout(err))
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoCloseTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// mongoDatabase extracts the database name from a connection URI path.
func mongoDatabase(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return defaultMongoDatabase
	}
	if db := strings.Trim(u.Path, "/"); db != "" {
		return db
	}
	return defaultMongoDatabase
}

// Ensure MongoStore implements Store.
var _ Store = (*MongoStore)(nil)
