package vector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// Common errors for Milvus operations
var (
	ErrInvalidDimension = errors.New("invalid vector dimension")
	ErrEmptyRecords     = errors.New("no records provided for insertion")
	ErrConnectionFailed = errors.New("failed to connect to Milvus")
	ErrInsertFailed     = errors.New("failed to insert records")
	ErrSearchFailed     = errors.New("failed to search vectors")
)

// MilvusConfig holds configuration for the Milvus connection and the
// ephemeral clue-vector collection.
type MilvusConfig struct {
	Address        string // Milvus server address (e.g., "localhost:19530")
	CollectionName string
	Dimension      int    // must match the embedding model's dimension
	IndexType      string // default "HNSW"
	MetricType     string // default "COSINE"

	// HNSW index parameters
	M              int
	EfConstruction int
}

// DefaultMilvusConfig returns default configuration from environment variables.
func DefaultMilvusConfig() MilvusConfig {
	address := os.Getenv("MILVUS_ADDRESS")
	if address == "" {
		address = "localhost:19530"
	}

	collection := os.Getenv("MILVUS_COLLECTION")
	if collection == "" {
		collection = "intrigue_clue_vectors"
	}

	return MilvusConfig{
		Address:        address,
		CollectionName: collection,
		Dimension:      3072, // text-embedding-3-large
		IndexType:      "HNSW",
		MetricType:     "COSINE",
		M:              16,
		EfConstruction: 256,
	}
}

// MilvusStore implements SessionStore on Milvus. All rows carry a session_key
// and are removed by that key when the owning match call finishes.
type MilvusStore struct {
	client client.Client
	config MilvusConfig
}

// NewMilvusStore connects to Milvus and ensures the collection exists.
func NewMilvusStore(ctx context.Context, config MilvusConfig) (*MilvusStore, error) {
	if config.Dimension <= 0 {
		return nil, ErrInvalidDimension
	}

	c, err := client.NewGrpcClient(ctx, config.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	store := &MilvusStore{
		client: c,
		config: config,
	}

	if err := store.ensureCollection(ctx); err != nil {
		c.Close()
		return nil, err
	}

	return store, nil
}

// ensureCollection creates the collection with schema if it doesn't exist.
func (m *MilvusStore) ensureCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.config.CollectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if has {
		return nil
	}

	schema := &entity.Schema{
		CollectionName: m.config.CollectionName,
		AutoID:         true,
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeInt64,
				PrimaryKey: true,
				AutoID:     true,
			},
			{
				Name:     "session_key",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "clue_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "npc_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "content",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", m.config.Dimension),
				},
			},
			{
				Name:     "created_at",
				DataType: entity.FieldTypeInt64, // Unix timestamp
			},
		},
	}

	if err := m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexHNSW(entity.COSINE, m.config.M, m.config.EfConstruction)
	if err != nil {
		return fmt.Errorf("failed to create index config: %w", err)
	}
	if err := m.client.CreateIndex(ctx, m.config.CollectionName, "embedding", idx, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	if err := m.client.LoadCollection(ctx, m.config.CollectionName, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	return nil
}

// InsertSession stores clue records under the session key and flushes so they
// are immediately searchable.
func (m *MilvusStore) InsertSession(ctx context.Context, sessionKey string, records []ClueRecord) error {
	if len(records) == 0 {
		return ErrEmptyRecords
	}
	if sessionKey == "" {
		return fmt.Errorf("%w: empty session key", ErrInsertFailed)
	}

	now := time.Now().Unix()
	sessionKeys := make([]string, len(records))
	clueIDs := make([]string, len(records))
	npcIDs := make([]string, len(records))
	contents := make([]string, len(records))
	embeddings := make([][]float32, len(records))
	createdAts := make([]int64, len(records))

	for i, record := range records {
		if len(record.Embedding) != m.config.Dimension {
			return fmt.Errorf("%w: expected %d, got %d for clue %s",
				ErrInvalidDimension, m.config.Dimension, len(record.Embedding), record.ClueID)
		}
		sessionKeys[i] = sessionKey
		clueIDs[i] = record.ClueID
		npcIDs[i] = record.NPCID
		contents[i] = record.Content
		embeddings[i] = record.Embedding
		createdAts[i] = now
	}

	columns := []entity.Column{
		entity.NewColumnVarChar("session_key", sessionKeys),
		entity.NewColumnVarChar("clue_id", clueIDs),
		entity.NewColumnVarChar("npc_id", npcIDs),
		entity.NewColumnVarChar("content", contents),
		entity.NewColumnFloatVector("embedding", m.config.Dimension, embeddings),
		entity.NewColumnInt64("created_at", createdAts),
	}

	if _, err := m.client.Insert(ctx, m.config.CollectionName, "", columns...); err != nil {
		return fmt.Errorf("%w: %v", ErrInsertFailed, err)
	}

	if err := m.client.Flush(ctx, m.config.CollectionName, false); err != nil {
		return fmt.Errorf("failed to flush session rows: %w", err)
	}

	return nil
}

// SearchSession performs top-K cosine similarity search restricted to the
// session's rows.
func (m *MilvusStore) SearchSession(ctx context.Context, sessionKey string, queryVector []float32, topK int) ([]Match, error) {
	if len(queryVector) != m.config.Dimension {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrInvalidDimension, m.config.Dimension, len(queryVector))
	}

	expr := fmt.Sprintf(`session_key == "%s"`, sessionKey)

	sp, err := entity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, fmt.Errorf("failed to create search params: %w", err)
	}

	vectors := []entity.Vector{entity.FloatVector(queryVector)}
	outputFields := []string{"clue_id", "content"}

	results, err := m.client.Search(
		ctx,
		m.config.CollectionName,
		nil, // partition names
		expr,
		outputFields,
		vectors,
		"embedding",
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	if len(results) == 0 {
		return []Match{}, nil
	}

	matches := make([]Match, 0, results[0].ResultCount)
	for i := 0; i < results[0].ResultCount; i++ {
		match := Match{Score: results[0].Scores[i]}
		for _, field := range results[0].Fields {
			switch field.Name() {
			case "clue_id":
				match.ClueID = field.(*entity.ColumnVarChar).Data()[i]
			case "content":
				match.Content = field.(*entity.ColumnVarChar).Data()[i]
			}
		}
		matches = append(matches, match)
	}

	return matches, nil
}

// DeleteSession removes every row stored under the session key.
func (m *MilvusStore) DeleteSession(ctx context.Context, sessionKey string) error {
	if sessionKey == "" {
		return nil
	}

	expr := fmt.Sprintf(`session_key == "%s"`, sessionKey)
	if err := m.client.Delete(ctx, m.config.CollectionName, "", expr); err != nil {
		return fmt.Errorf("failed to delete session rows: %w", err)
	}

	return nil
}

// CountSession reports how many rows remain for the session key.
func (m *MilvusStore) CountSession(ctx context.Context, sessionKey string) (int64, error) {
	expr := fmt.Sprintf(`session_key == "%s"`, sessionKey)

	results, err := m.client.Query(
		ctx,
		m.config.CollectionName,
		nil, // partition names
		expr,
		[]string{"clue_id"},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to query session rows: %w", err)
	}

	for _, column := range results {
		if column.Name() == "clue_id" {
			return int64(column.Len()), nil
		}
	}
	return 0, nil
}

// Close releases resources and closes the Milvus connection.
func (m *MilvusStore) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}
