package store

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/xhad/mediassist/internal/models"
	"github.com/xhad/mediassist/internal/types"
)

type VectorStoreConfig struct {
	ConnString  string
	TableName   string
	VectorDim   int
	BatchSize   int
	SearchLimit int
}

// PGVectorStore keeps the chunk embeddings of the current session in a
// pgvector table. The table is scratch space: every Build truncates it.
type PGVectorStore struct {
	config   VectorStoreConfig
	pool     *pgxpool.Pool
	embedder types.Embedder
}

func NewWithConfig(ctx context.Context, config VectorStoreConfig, embedder types.Embedder) (*PGVectorStore, error) {
	if config.TableName == "" {
		config.TableName = "mediassist_chunks"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}
	if config.SearchLimit == 0 {
		config.SearchLimit = DefaultSearchLimit
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	vs := &PGVectorStore{
		config:   config,
		pool:     pool,
		embedder: embedder,
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *PGVectorStore) initialize(ctx context.Context) error {
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			chunk_index INTEGER PRIMARY KEY,
			content TEXT NOT NULL,
			embedding vector(%d)
		)`, vs.config.TableName, vs.config.VectorDim)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING hnsw (embedding vector_cosine_ops)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	// Nothing survives a restart.
	return vs.truncate(ctx)
}

func (vs *PGVectorStore) truncate(ctx context.Context) error {
	_, err := vs.pool.Exec(ctx, fmt.Sprintf("TRUNCATE %s", vs.config.TableName))
	if err != nil {
		return fmt.Errorf("failed to truncate table: %w", err)
	}
	return nil
}

// Build replaces the table contents with the given chunks.
func (vs *PGVectorStore) Build(ctx context.Context, chunks []string) (types.Index, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("cannot build index: %w", types.ErrNoText)
	}

	clean := make([]string, len(chunks))
	for i, chunk := range chunks {
		clean[i] = sanitizeUTF8(chunk)
	}

	vectors, err := vs.embedder.EmbedDocuments(ctx, clean)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(vectors) != len(clean) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(clean))
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE %s", vs.config.TableName)); err != nil {
		return nil, fmt.Errorf("failed to truncate table: %w", err)
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (chunk_index, content, embedding)
		VALUES ($1, $2, $3)`,
		vs.config.TableName)

	for i := 0; i < len(clean); i += vs.config.BatchSize {
		end := i + vs.config.BatchSize
		if end > len(clean) {
			end = len(clean)
		}

		batch := &pgx.Batch{}
		for j := i; j < end; j++ {
			batch.Queue(stmt, j, clean[j], pgvector.NewVector(vectors[j]))
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return nil, fmt.Errorf("failed to insert chunks: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &PGIndex{store: vs, size: len(clean)}, nil
}

func (vs *PGVectorStore) Close() {
	if vs.pool != nil {
		_ = vs.truncate(context.Background())
		vs.pool.Close()
	}
}

// PGIndex is the handle returned by Build. It stays valid until the next
// Build on the same store.
type PGIndex struct {
	store *PGVectorStore
	size  int
}

func (ix *PGIndex) Len() int {
	if ix == nil {
		return 0
	}
	return ix.size
}

func (ix *PGIndex) Search(ctx context.Context, query string, k int) ([]models.RetrievedChunk, error) {
	if ix.Len() == 0 {
		return nil, types.ErrEmptyIndex
	}
	if k <= 0 {
		k = ix.store.config.SearchLimit
	}

	q, err := ix.store.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to create query embedding: %w", err)
	}

	sql := fmt.Sprintf(`
		SELECT chunk_index, content, 1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1, chunk_index
		LIMIT $2`,
		ix.store.config.TableName)

	rows, err := ix.store.pool.Query(ctx, sql, pgvector.NewVector(q), k)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var results []models.RetrievedChunk
	for rows.Next() {
		var r models.RetrievedChunk
		if err := rows.Scan(&r.Position, &r.Text, &r.Score); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return results, nil
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
