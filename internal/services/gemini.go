package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"alfredoptarigan/ai-interviewer/internal/metrics"
)

type GeminiService interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateText(ctx context.Context, prompt string, temperature float32) (string, error)
	GenerateTextWithRetry(ctx context.Context, prompt string, temperature float32, maxAttempts int) (string, error)
}

type GeminiOptions struct {
	APIKey     string
	Model      string
	EmbedModel string
	RetryDelay time.Duration

	// Overrides for tests and proxies.
	BaseURL    string
	HTTPClient *http.Client
}

type geminiService struct {
	client     *genai.Client
	modelName  string
	embedModel string
	retryDelay time.Duration
	log        *zap.Logger
}

func NewGeminiService(opts GeminiOptions, log *zap.Logger) (GeminiService, error) {
	ctx := context.Background()

	cc := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{
			BaseURL:    opts.BaseURL,
			APIVersion: "v1beta",
		}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	if opts.Model == "" {
		opts.Model = "gemini-2.5-flash"
	}
	if opts.EmbedModel == "" {
		opts.EmbedModel = "text-embedding-004"
	}

	return &geminiService{
		client:     client,
		modelName:  opts.Model,
		embedModel: opts.EmbedModel,
		retryDelay: opts.RetryDelay,
		log:        log,
	}, nil
}

// GenerateEmbedding implements GeminiService.
func (g *geminiService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	// Truncate text if too long (max ~10000 tokens for embedding)
	if len(text) > 40000 {
		text = text[:40000]
	}

	result, err := g.client.Models.EmbedContent(ctx, g.embedModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if result == nil || len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}

	return result.Embeddings[0].Values, nil
}

// GenerateText implements GeminiService.
func (g *geminiService) GenerateText(ctx context.Context, prompt string, temperature float32) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: 4096,
	}

	metrics.GatewayAttempts.Inc()
	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if resp == nil {
		return "", fmt.Errorf("no response generated (nil response)")
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("no text content in response")
	}

	return text, nil
}

// GenerateTextWithRetry implements GeminiService. Attempts are spaced by a
// fixed delay; the last error is returned when all of them fail.
func (g *geminiService) GenerateTextWithRetry(ctx context.Context, prompt string, temperature float32, maxAttempts int) (string, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := g.GenerateText(ctx, prompt, temperature)
		if err == nil {
			return result, nil
		}

		lastErr = err

		if attempt == maxAttempts {
			break
		}

		g.log.Warn("⚠️ Gemini attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", g.retryDelay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("context cancelled: %w", ctx.Err())
		case <-time.After(g.retryDelay):
		}
	}

	return "", fmt.Errorf("failed after %d attempts: %w", maxAttempts, lastErr)
}
