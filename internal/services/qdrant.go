package services

import (
	"context"
	"encoding/binary"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
)

// TranscriptStore keeps one vector per transcript chunk, tagged with the
// roster record it belongs to.
type TranscriptStore interface {
	InitCollection(ctx context.Context) error
	UpsertChunks(ctx context.Context, candidate TranscriptOwner, chunks []string, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, excludeID string, limit int) ([]TranscriptHit, error)
	DeleteCandidate(ctx context.Context, candidateID string) error
}

type TranscriptOwner struct {
	ID         string
	Name       string
	FinalScore float64
}

type TranscriptHit struct {
	CandidateID string
	Name        string
	FinalScore  float64
	Score       float32
	Text        string
}

type qdrantStore struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
	log            *zap.Logger
}

func NewQdrantStore(urlStr, apiKey, collectionName string, log *zap.Logger) (TranscriptStore, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	// gRPC port unless the URL names one
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   parsed.Hostname(),
		Port:   port,
		APIKey: apiKey,
		UseTLS: parsed.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &qdrantStore{
		client:         client,
		collectionName: collectionName,
		vectorSize:     768, // text-embedding-004
		log:            log,
	}, nil
}

// InitCollection implements TranscriptStore.
func (q *qdrantStore) InitCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		q.log.Info("✅ Qdrant collection already exists", zap.String("collection", q.collectionName))
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	q.log.Info("✅ Qdrant collection created", zap.String("collection", q.collectionName))
	return nil
}

// chunkPointID is stable per (candidate, chunk) so re-indexing overwrites.
func chunkPointID(candidateID string, chunk int) uint64 {
	u := uuid.NewSHA1(uuid.NameSpaceOID, []byte(candidateID+"#"+strconv.Itoa(chunk)))
	return binary.BigEndian.Uint64(u[:8])
}

// UpsertChunks implements TranscriptStore.
func (q *qdrantStore) UpsertChunks(ctx context.Context, owner TranscriptOwner, chunks []string, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for i, text := range chunks {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(chunkPointID(owner.ID, i)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"candidate_id": owner.ID,
				"name":         owner.Name,
				"final_score":  owner.FinalScore,
				"chunk":        int64(i),
				"text":         text,
			}),
		})
	}

	if _, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	return nil
}

// Search implements TranscriptStore.
func (q *qdrantStore) Search(ctx context.Context, vector []float32, excludeID string, limit int) ([]TranscriptHit, error) {
	var filter *qdrant.Filter
	if excludeID != "" {
		filter = &qdrant.Filter{
			MustNot: []*qdrant.Condition{
				qdrant.NewMatch("candidate_id", excludeID),
			},
		}
	}

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(vector...),
		Filter:         filter,
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	hits := make([]TranscriptHit, 0, len(points))
	for _, point := range points {
		payload := point.Payload
		hits = append(hits, TranscriptHit{
			CandidateID: payload["candidate_id"].GetStringValue(),
			Name:        payload["name"].GetStringValue(),
			FinalScore:  payload["final_score"].GetDoubleValue(),
			Text:        payload["text"].GetStringValue(),
			Score:       point.Score,
		})
	}

	return hits, nil
}

// DeleteCandidate implements TranscriptStore.
func (q *qdrantStore) DeleteCandidate(ctx context.Context, candidateID string) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{
						qdrant.NewMatch("candidate_id", candidateID),
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete candidate vectors: %w", err)
	}

	return nil
}
