// Package retrieval implements semantic search over a bot's knowledge
// base with a keyword fallback when embeddings are unavailable.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/leadline-ai/bot-platform/internal/embedding"
	"github.com/leadline-ai/bot-platform/internal/store"
	"github.com/leadline-ai/bot-platform/pkg/logger"
	"github.com/leadline-ai/bot-platform/pkg/metrics"
)

// Method identifies which ranking produced a result set. Callers must
// not treat the two as interchangeable: text results carry no score.
type Method string

const (
	MethodVector Method = "vector"
	MethodText   Method = "text"
)

// Result is one retrieved knowledge chunk.
type Result struct {
	Content     string  `json:"content"`
	SourceLabel string  `json:"source_label"`
	Score       float64 `json:"score"`
}

// Retriever performs top-K retrieval scoped to a single bot.
type Retriever struct {
	embedder  embedding.Client
	knowledge store.KnowledgeRepository
	timeout   time.Duration
	logger    *logger.Logger
}

// New creates a retriever. timeout bounds the embedding call only; it is
// kept much shorter than the LLM budget because the fallback is cheap.
func New(embedder embedding.Client, knowledge store.KnowledgeRepository, timeout time.Duration, log *logger.Logger) *Retriever {
	return &Retriever{
		embedder:  embedder,
		knowledge: knowledge,
		timeout:   timeout,
		logger:    log,
	}
}

// Retrieve returns up to limit chunks relevant to query, tagged with the
// method that ranked them. A bot with no knowledge yields an empty slice
// and no error. Embedding failure triggers the text fallback rather than
// an error; only a store failure on both paths is returned.
func (r *Retriever) Retrieve(ctx context.Context, botID, query string, limit int) ([]Result, Method, error) {
	if limit <= 0 {
		limit = 5
	}

	embedCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	queryVec, err := r.embedder.Embed(embedCtx, query)
	if err != nil {
		r.logger.Warn("embedding failed, falling back to text search",
			zap.String("bot_id", botID),
			zap.Error(err),
		)
		results, terr := r.searchText(ctx, botID, query, limit)
		if terr != nil {
			return nil, MethodText, terr
		}
		metrics.RetrievalsTotal.WithLabelValues(string(MethodText)).Inc()
		return results, MethodText, nil
	}

	chunks, err := r.knowledge.ListByBot(ctx, botID)
	if err != nil {
		// Vector path needs the full chunk set; try the cheaper ILIKE
		// query before giving up.
		results, terr := r.searchText(ctx, botID, query, limit)
		if terr != nil {
			return nil, MethodText, fmt.Errorf("knowledge search unavailable: %w", err)
		}
		metrics.RetrievalsTotal.WithLabelValues(string(MethodText)).Inc()
		return results, MethodText, nil
	}

	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, 0, len(chunks))
	for i, chunk := range chunks {
		if len(chunk.Embedding) != len(queryVec) {
			r.logger.Warn("skipping chunk with mismatched embedding dimensions",
				zap.String("chunk_id", chunk.ID),
				zap.Int("got", len(chunk.Embedding)),
				zap.Int("want", len(queryVec)),
			)
			continue
		}
		ranked = append(ranked, scored{idx: i, score: CosineSimilarity(queryVec, chunk.Embedding)})
	}

	// Descending score, ties broken by ascending chunk index so ranking
	// is deterministic.
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return chunks[ranked[i].idx].ChunkIndex < chunks[ranked[j].idx].ChunkIndex
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	results := make([]Result, len(ranked))
	for i, s := range ranked {
		chunk := chunks[s.idx]
		results[i] = Result{
			Content:     chunk.Content,
			SourceLabel: chunk.FileID,
			Score:       s.score,
		}
	}

	metrics.RetrievalsTotal.WithLabelValues(string(MethodVector)).Inc()
	return results, MethodVector, nil
}

func (r *Retriever) searchText(ctx context.Context, botID, query string, limit int) ([]Result, error) {
	chunks, err := r.knowledge.SearchText(ctx, botID, query, limit)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(chunks))
	for i, chunk := range chunks {
		results[i] = Result{
			Content:     chunk.Content,
			SourceLabel: chunk.FileID,
		}
	}
	return results, nil
}

// CosineSimilarity computes dot(a,b) / (|a| * |b|). The similarity of a
// zero vector is 0 by definition; we never divide by zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
