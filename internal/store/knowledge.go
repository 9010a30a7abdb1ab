package store

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/leadline-ai/bot-platform/internal/model"
)

// PostgresKnowledgeRepository implements KnowledgeRepository. Embeddings
// are stored as little-endian float32 BYTEA blobs; brute-force cosine
// search over an in-request slice is exact and fast at per-bot knowledge
// base sizes (thousands of chunks).
type PostgresKnowledgeRepository struct {
	db *DB
}

// NewKnowledgeRepository creates a Postgres-backed knowledge repository.
func NewKnowledgeRepository(db *DB) *PostgresKnowledgeRepository {
	return &PostgresKnowledgeRepository{db: db}
}

// ListByBot returns all chunks for a bot with decoded embeddings,
// ordered by file and chunk index for deterministic downstream ranking.
func (r *PostgresKnowledgeRepository) ListByBot(ctx context.Context, botID string) ([]model.KnowledgeChunk, error) {
	query := `
		SELECT id, file_id, bot_id, content, embedding, chunk_index, created_at
		FROM knowledge_chunks
		WHERE bot_id = $1
		ORDER BY file_id, chunk_index
	`

	rows, err := r.db.Pool.Query(ctx, query, botID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []model.KnowledgeChunk
	for rows.Next() {
		var c model.KnowledgeChunk
		var blob []byte
		if err := rows.Scan(&c.ID, &c.FileID, &c.BotID, &c.Content, &blob, &c.ChunkIndex, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Embedding = DecodeVector(blob)
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// SearchText is the keyword fallback: case-insensitive substring match
// over chunk content, no similarity score.
func (r *PostgresKnowledgeRepository) SearchText(ctx context.Context, botID, query string, limit int) ([]model.KnowledgeChunk, error) {
	sql := `
		SELECT id, file_id, bot_id, content, chunk_index, created_at
		FROM knowledge_chunks
		WHERE bot_id = $1 AND content ILIKE '%' || $2 || '%'
		ORDER BY file_id, chunk_index
		LIMIT $3
	`

	rows, err := r.db.Pool.Query(ctx, sql, botID, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []model.KnowledgeChunk
	for rows.Next() {
		var c model.KnowledgeChunk
		if err := rows.Scan(&c.ID, &c.FileID, &c.BotID, &c.Content, &c.ChunkIndex, &c.CreatedAt); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// EncodeVector packs a float32 vector into a little-endian blob.
func EncodeVector(vec []float32) []byte {
	blob := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// DecodeVector unpacks a little-endian blob into a float32 vector.
func DecodeVector(blob []byte) []float32 {
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec
}
