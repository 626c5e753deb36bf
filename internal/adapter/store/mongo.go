package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"docrag/internal/domain"
	"docrag/internal/logger"
	"docrag/internal/port"
)

// Field names of a chunk document. The Atlas vector search index must
// declare a "vector" field at embeddingField.
const (
	embeddingField = "embedding"
	textField      = "text"
	sourceField    = "source"
	metadataField  = "metadata"
)

// MongoOptions addresses an Atlas cluster.
type MongoOptions struct {
	URI            string
	Database       string
	IndexName      string
	ConnectTimeout time.Duration
	NumCandidates  int
}

// MongoIndex stores chunks in MongoDB and queries them with $vectorSearch.
type MongoIndex struct {
	client    *mongo.Client
	db        *mongo.Database
	opts      MongoOptions
	dimension int
	logger    *zap.Logger
}

type chunkDocument struct {
	ID        string            `bson:"_id"`
	Embedding []float32         `bson:"embedding"`
	Text      string            `bson:"text"`
	Source    string            `bson:"source,omitempty"`
	Metadata  map[string]string `bson:"metadata,omitempty"`
}

type searchHit struct {
	ID       string            `bson:"_id"`
	Text     string            `bson:"text"`
	Metadata map[string]string `bson:"metadata"`
	Score    float64           `bson:"score"`
}

// searchIndexSpec is the subset of listSearchIndexes output we inspect.
type searchIndexSpec struct {
	Name             string `bson:"name"`
	Type             string `bson:"type"`
	Status           string `bson:"status"`
	LatestDefinition struct {
		Fields []searchIndexField `bson:"fields"`
	} `bson:"latestDefinition"`
}

type searchIndexField struct {
	Type          string `bson:"type"`
	Path          string `bson:"path"`
	NumDimensions int    `bson:"numDimensions"`
	Similarity    string `bson:"similarity"`
}

// OpenMongoIndex connects and pings the cluster.
func OpenMongoIndex(ctx context.Context, opts MongoOptions, dimension int, log *zap.Logger) (*MongoIndex, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.NumCandidates <= 0 {
		opts.NumCandidates = 100
	}

	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &MongoIndex{
		client:    client,
		db:        client.Database(opts.Database),
		opts:      opts,
		dimension: dimension,
		logger:    logger.OrNop(log),
	}, nil
}

// Verify checks that the named search index exists on collection and
// indexes embeddingField with the expected dimension.
func (m *MongoIndex) Verify(ctx context.Context, collection string) error {
	cursor, err := m.db.Collection(collection).SearchIndexes().List(ctx, options.SearchIndexes().SetName(m.opts.IndexName))
	if err != nil {
		return fmt.Errorf("failed to list search indexes: %w", err)
	}
	defer cursor.Close(ctx)

	var specs []searchIndexSpec
	if err := cursor.All(ctx, &specs); err != nil {
		return fmt.Errorf("failed to decode search indexes: %w", err)
	}
	return checkSearchIndex(specs, m.opts.IndexName, m.dimension)
}

func checkSearchIndex(specs []searchIndexSpec, name string, dimension int) error {
	for _, spec := range specs {
		if spec.Name != name {
			continue
		}
		for _, f := range spec.LatestDefinition.Fields {
			if f.Type != "vector" || f.Path != embeddingField {
				continue
			}
			if f.NumDimensions != dimension {
				return fmt.Errorf("search index %q declares %d dimensions, embeddings have %d", name, f.NumDimensions, dimension)
			}
			return nil
		}
		return fmt.Errorf("search index %q has no vector field on %q", name, embeddingField)
	}
	return fmt.Errorf("search index %q not found", name)
}

// Clear deletes every document in collection.
func (m *MongoIndex) Clear(ctx context.Context, collection string) error {
	res, err := m.db.Collection(collection).DeleteMany(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("failed to clear collection %s: %w", collection, err)
	}
	m.logger.Debug("collection cleared", zap.String("collection", collection), zap.Int64("deleted", res.DeletedCount))
	return nil
}

// Upsert inserts all entries with an ordered insert. On failure the
// documents of this call are removed again.
func (m *MongoIndex) Upsert(ctx context.Context, collection string, entries []domain.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := CheckEntries(entries, m.dimension); err != nil {
		return err
	}

	docs := make([]interface{}, len(entries))
	ids := make([]string, len(entries))
	for i, e := range entries {
		docs[i] = toChunkDocument(e)
		ids[i] = e.ID
	}

	coll := m.db.Collection(collection)
	res, err := coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err == nil && len(res.InsertedIDs) == len(docs) {
		return nil
	}
	if err == nil {
		err = fmt.Errorf("inserted %d of %d documents", len(res.InsertedIDs), len(docs))
	}

	if _, cleanupErr := coll.DeleteMany(context.Background(), bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}); cleanupErr != nil {
		err = errors.Join(err, fmt.Errorf("cleanup after failed insert: %w", cleanupErr))
	}
	return fmt.Errorf("failed to insert chunks: %w", err)
}

func toChunkDocument(e domain.IndexEntry) chunkDocument {
	return chunkDocument{
		ID:        e.ID,
		Embedding: e.Vector,
		Text:      e.Text,
		Source:    e.Metadata[domain.MetaSource],
		Metadata:  e.Metadata,
	}
}

// Query runs an approximate nearest neighbour search. Atlas reports cosine
// scores rescaled to [0, 1]; ordering matches raw cosine similarity.
func (m *MongoIndex) Query(ctx context.Context, collection string, vector []float32, k int) ([]port.VectorResult, error) {
	if len(vector) != m.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", m.dimension, len(vector))
	}
	if k <= 0 {
		return nil, nil
	}

	cursor, err := m.db.Collection(collection).Aggregate(ctx, vectorSearchPipeline(m.opts.IndexName, vector, k, m.opts.NumCandidates))
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer cursor.Close(ctx)

	var hits []searchHit
	if err := cursor.All(ctx, &hits); err != nil {
		return nil, fmt.Errorf("failed to decode search results: %w", err)
	}

	results := make([]port.VectorResult, len(hits))
	for i, h := range hits {
		results[i] = port.VectorResult{
			ID:       h.ID,
			Score:    h.Score,
			Text:     h.Text,
			Metadata: h.Metadata,
		}
	}
	return results, nil
}

func vectorSearchPipeline(index string, vector []float32, k, numCandidates int) mongo.Pipeline {
	if numCandidates < k*10 {
		numCandidates = k * 10
	}
	return mongo.Pipeline{
		{{Key: "$vectorSearch", Value: bson.D{
			{Key: "index", Value: index},
			{Key: "path", Value: embeddingField},
			{Key: "queryVector", Value: vector},
			{Key: "numCandidates", Value: numCandidates},
			{Key: "limit", Value: k},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: textField, Value: 1},
			{Key: metadataField, Value: 1},
			{Key: "score", Value: bson.D{{Key: "$meta", Value: "vectorSearchScore"}}},
		}}},
	}
}

func (m *MongoIndex) Dimension() int {
	return m.dimension
}

func (m *MongoIndex) Name() string {
	return m.opts.IndexName
}

func (m *MongoIndex) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
