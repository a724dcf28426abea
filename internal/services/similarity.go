package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"alfredoptarigan/ai-interviewer/internal/models"
)

var ErrSimilarityDisabled = errors.New("similar-candidate search is disabled")

// CandidateIndex embeds scored transcripts so the interviewer view can find
// candidates who answered alike.
type CandidateIndex interface {
	IndexCandidate(ctx context.Context, record *models.CandidateRecord) error
	SimilarCandidates(ctx context.Context, record *models.CandidateRecord, limit int) ([]models.SimilarCandidate, error)
	RemoveCandidate(ctx context.Context, candidateID string) error
}

type candidateIndex struct {
	geminiService GeminiService
	store         TranscriptStore
	chunker       TextChunker
	log           *zap.Logger
}

func NewCandidateIndex(geminiService GeminiService, store TranscriptStore, chunker TextChunker, log *zap.Logger) CandidateIndex {
	if store == nil {
		return disabledIndex{}
	}
	return &candidateIndex{
		geminiService: geminiService,
		store:         store,
		chunker:       chunker,
		log:           log,
	}
}

// IndexCandidate implements CandidateIndex.
func (ci *candidateIndex) IndexCandidate(ctx context.Context, record *models.CandidateRecord) error {
	chunks := ci.chunker.ChunkText(FormatTranscript(record), defaultChunkSize)
	if len(chunks) == 0 {
		return nil
	}

	vectors := make([][]float32, 0, len(chunks))
	for i, chunk := range chunks {
		vec, err := ci.geminiService.GenerateEmbedding(ctx, chunk)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}
		vectors = append(vectors, vec)
	}

	owner := TranscriptOwner{ID: record.ID, Name: record.Name, FinalScore: record.FinalScore}
	if err := ci.store.UpsertChunks(ctx, owner, chunks, vectors); err != nil {
		return err
	}

	ci.log.Info("✅ Candidate transcript indexed",
		zap.String("candidate_id", record.ID),
		zap.Int("chunks", len(chunks)))
	return nil
}

// SimilarCandidates implements CandidateIndex. Hits are per chunk, so each
// other candidate is ranked by its best-matching chunk.
func (ci *candidateIndex) SimilarCandidates(ctx context.Context, record *models.CandidateRecord, limit int) ([]models.SimilarCandidate, error) {
	if limit <= 0 {
		limit = 5
	}

	vec, err := ci.geminiService.GenerateEmbedding(ctx, FormatTranscript(record))
	if err != nil {
		return nil, fmt.Errorf("failed to embed transcript: %w", err)
	}

	hits, err := ci.store.Search(ctx, vec, record.ID, limit*4)
	if err != nil {
		return nil, err
	}

	best := make(map[string]models.SimilarCandidate)
	for _, h := range hits {
		if h.CandidateID == "" || h.CandidateID == record.ID {
			continue
		}
		if cur, ok := best[h.CandidateID]; ok && cur.Similarity >= h.Score {
			continue
		}
		best[h.CandidateID] = models.SimilarCandidate{
			ID:         h.CandidateID,
			Name:       h.Name,
			FinalScore: h.FinalScore,
			Similarity: h.Score,
		}
	}

	out := make([]models.SimilarCandidate, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// RemoveCandidate implements CandidateIndex.
func (ci *candidateIndex) RemoveCandidate(ctx context.Context, candidateID string) error {
	return ci.store.DeleteCandidate(ctx, candidateID)
}

// disabledIndex is used when no vector store is configured.
type disabledIndex struct{}

func (disabledIndex) IndexCandidate(context.Context, *models.CandidateRecord) error { return nil }

func (disabledIndex) SimilarCandidates(context.Context, *models.CandidateRecord, int) ([]models.SimilarCandidate, error) {
	return nil, ErrSimilarityDisabled
}

func (disabledIndex) RemoveCandidate(context.Context, string) error { return nil }
