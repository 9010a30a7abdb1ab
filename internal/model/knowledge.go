package model

import (
	"time"
)

// EmbeddingDimensions is the fixed output size of the embedding provider.
// Stored chunk vectors must match it; the retriever rejects mismatches
// rather than computing a meaningless similarity.
const EmbeddingDimensions = 1536

// KnowledgeChunk is one retrievable unit of a bot's knowledge base,
// produced by the ingestion pipeline and read-only from the turn path.
type KnowledgeChunk struct {
	ID         string    `json:"id"`
	FileID     string    `json:"file_id"`
	BotID      string    `json:"bot_id"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"-"`
	ChunkIndex int       `json:"chunk_index"`
	CreatedAt  time.Time `json:"created_at"`
}
