package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"alfredoptarigan/ai-interviewer/internal/config"
	applog "alfredoptarigan/ai-interviewer/internal/logger"
	"alfredoptarigan/ai-interviewer/internal/repositories"
	"alfredoptarigan/ai-interviewer/internal/services"
)

// Rebuilds the Qdrant transcript index from the candidate roster, e.g. after
// the collection was dropped or the embedding model changed.
func main() {
	cfg := config.Load()

	zl, err := applog.New(cfg.Server.Env)
	if err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer zl.Sync()

	zl.Info("🚀 Starting candidate reindex...")

	db, err := config.InitDatabase(cfg, zl)
	if err != nil {
		zl.Fatal("❌ Failed to initialize database", zap.Error(err))
	}

	geminiService, err := services.NewGeminiService(services.GeminiOptions{
		APIKey:     cfg.Gemini.APIKey,
		Model:      cfg.Gemini.Model,
		EmbedModel: cfg.Gemini.EmbedModel,
		RetryDelay: cfg.Gemini.RetryDelay,
	}, zl)
	if err != nil {
		zl.Fatal("❌ Failed to initialize Gemini", zap.Error(err))
	}

	store, err := services.NewQdrantStore(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, zl)
	if err != nil {
		zl.Fatal("❌ Failed to initialize Qdrant", zap.Error(err))
	}

	ctx := context.Background()
	if err := store.InitCollection(ctx); err != nil {
		zl.Fatal("❌ Failed to initialize collection", zap.Error(err))
	}

	index := services.NewCandidateIndex(geminiService, store, services.NewTextChunker(), zl)

	records, err := repositories.NewCandidateRepository(db).List("")
	if err != nil {
		zl.Fatal("❌ Failed to load roster", zap.Error(err))
	}

	successCount := 0
	failCount := 0
	for i := range records {
		record := &records[i]
		if err := index.IndexCandidate(ctx, record); err != nil {
			zl.Error("❌ Failed to index candidate",
				zap.String("candidate_id", record.ID),
				zap.String("name", record.Name),
				zap.Error(err))
			failCount++
			continue
		}
		successCount++
	}

	zl.Info("📊 Reindex summary",
		zap.Int("success", successCount),
		zap.Int("failed", failCount),
		zap.Int("total", len(records)))

	if failCount > 0 {
		zl.Warn("⚠️ Some candidates failed to index")
	}
}
