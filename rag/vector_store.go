package rag

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// chunkMetadata is the JSONB payload stored alongside each embedding. Absent
// values are omitted rather than stored as nulls.
type chunkMetadata struct {
	SourceType  string   `json:"source_type"`
	StartTime   *float64 `json:"start_time,omitempty"`
	EndTime     *float64 `json:"end_time,omitempty"`
	IsTechnical *bool    `json:"is_technical,omitempty"`
}

// PostgresVectorIndex stores one index generation in Postgres with pgvector,
// configured for cosine similarity.
type PostgresVectorIndex struct {
	pool *pgxpool.Pool
}

func NewPostgresVectorIndex(pool *pgxpool.Pool) *PostgresVectorIndex {
	return &PostgresVectorIndex{pool: pool}
}

// Replace deletes the prior generation and inserts the new one. The delete
// and the insert are deliberately separate operations, so a concurrent query
// may briefly observe an empty or partial index.
func (s *PostgresVectorIndex) Replace(ctx context.Context, chunks []Chunk, vectors [][]float32) error {
	if s.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if len(chunks) == 0 {
		return fmt.Errorf("refusing to build an index from zero chunks")
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}

	if _, err := s.pool.Exec(ctx, "DELETE FROM transcript_generations"); err != nil {
		return fmt.Errorf("delete prior generation: %w", err)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	generationID := uuid.New()
	if _, err = tx.Exec(ctx, `
		INSERT INTO transcript_generations (id, chunk_count, created_at)
		VALUES ($1, $2, NOW())
	`, generationID, len(chunks)); err != nil {
		return fmt.Errorf("insert generation: %w", err)
	}

	for i, chunk := range chunks {
		meta, marshalErr := json.Marshal(metadataFor(chunk))
		if marshalErr != nil {
			err = fmt.Errorf("marshal metadata for %s: %w", chunk.ID, marshalErr)
			return err
		}
		if _, err = tx.Exec(ctx, `
			INSERT INTO transcript_chunks (id, generation_id, position, content, embedding, metadata, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())
		`, chunk.ID, generationID, i, chunk.Text, pgvector.NewVector(vectors[i]), meta); err != nil {
			return fmt.Errorf("insert chunk %s: %w", chunk.ID, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit generation: %w", err)
	}
	return nil
}

// Nearest returns up to k chunks ordered by ascending cosine distance. k is
// clamped to the stored chunk count.
func (s *PostgresVectorIndex) Nearest(ctx context.Context, vector []float32, k int) ([]Neighbor, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}

	count, err := s.chunkCount(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNotIndexed
	}
	if k <= 0 || k > count {
		k = count
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	probes := k * 10
	if probes < 10 {
		probes = 10
	}
	if _, err := conn.Exec(ctx, fmt.Sprintf("SET ivfflat.probes = %d", probes)); err != nil {
		return nil, fmt.Errorf("set ivfflat probes: %w", err)
	}

	rows, err := conn.Query(ctx, `
        SELECT id, content, metadata, (embedding <=> $1::vector) AS distance
        FROM transcript_chunks
        ORDER BY embedding <=> $1::vector
        LIMIT $2
    `, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("query nearest chunks: %w", err)
	}
	defer rows.Close()

	neighbors := make([]Neighbor, 0, k)
	for rows.Next() {
		var (
			neighbor Neighbor
			meta     []byte
		)
		if err := rows.Scan(&neighbor.Chunk.ID, &neighbor.Chunk.Text, &meta, &neighbor.Distance); err != nil {
			return nil, fmt.Errorf("scan neighbor: %w", err)
		}
		if err := applyMetadata(&neighbor.Chunk, meta); err != nil {
			return nil, err
		}
		neighbors = append(neighbors, neighbor)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return neighbors, nil
}

// All returns every chunk of the current generation in insertion order, for
// full-scan keyword scoring.
func (s *PostgresVectorIndex) All(ctx context.Context) ([]StoredChunk, error) {
	count, err := s.chunkCount(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNotIndexed
	}

	rows, err := s.pool.Query(ctx, `
        SELECT id, content, metadata
        FROM transcript_chunks
        ORDER BY position
    `)
	if err != nil {
		return nil, fmt.Errorf("query all chunks: %w", err)
	}
	defer rows.Close()

	chunks := make([]StoredChunk, 0, count)
	for rows.Next() {
		var (
			chunk StoredChunk
			meta  []byte
		)
		if err := rows.Scan(&chunk.ID, &chunk.Text, &meta); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if err := applyMetadata(&chunk, meta); err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return chunks, nil
}

func (s *PostgresVectorIndex) Stats(ctx context.Context) (IndexStats, error) {
	count, err := s.chunkCount(ctx)
	if err != nil {
		return IndexStats{}, err
	}
	return IndexStats{Indexed: count > 0, ChunkCount: count}, nil
}

// Clear deletes the current generation; chunks cascade away with it.
func (s *PostgresVectorIndex) Clear(ctx context.Context) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM transcript_generations")
	if err != nil {
		return fmt.Errorf("delete generation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotIndexed
	}
	return nil
}

func (s *PostgresVectorIndex) chunkCount(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, "SELECT COALESCE(SUM(chunk_count), 0) FROM transcript_generations").Scan(&count); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return count, nil
}

func metadataFor(chunk Chunk) chunkMetadata {
	meta := chunkMetadata{
		SourceType: chunk.SourceType,
		StartTime:  chunk.StartTime,
		EndTime:    chunk.EndTime,
	}
	if chunk.SourceType == SourceTextChunk {
		technical := chunk.IsTechnical
		meta.IsTechnical = &technical
	}
	return meta
}

func applyMetadata(chunk *StoredChunk, data []byte) error {
	var meta chunkMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("decode metadata for %s: %w", chunk.ID, err)
	}
	chunk.SourceType = meta.SourceType
	chunk.StartTime = meta.StartTime
	chunk.EndTime = meta.EndTime
	if meta.IsTechnical != nil {
		chunk.IsTechnical = *meta.IsTechnical
	}
	return nil
}

var _ VectorIndex = (*PostgresVectorIndex)(nil)
