package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"alfredoptarigan/ai-interviewer/internal/metrics"
	"alfredoptarigan/ai-interviewer/internal/models"
)

var (
	ErrUnknownTask       = errors.New("unknown task")
	ErrInvalidPayload    = errors.New("invalid payload")
	ErrUnstructuredReply = errors.New("model reply is not valid JSON")
)

type ResultKind string

const (
	// ResultJSON carries the model reply parsed as JSON.
	ResultJSON ResultKind = "json"
	// ResultRaw is the fallback when a structured task got a non-JSON reply.
	ResultRaw ResultKind = "raw"
	// ResultText is plain text.
	ResultText ResultKind = "text"
)

type GatewayResult struct {
	Task string
	Kind ResultKind
	Text string
	JSON json.RawMessage
}

type GatewayService interface {
	Execute(ctx context.Context, req models.GatewayRequest) (*GatewayResult, error)
	ExtractContactInfo(ctx context.Context, resumeText string) (models.CandidateInfo, error)
	GenerateQuestions(ctx context.Context, plan models.QuestionPlan) ([]models.Question, error)
	ScoreAnswers(ctx context.Context, pairs []models.QAPair) (*models.ScoreReport, error)
}

type gatewayService struct {
	geminiService GeminiService
	promptBuilder *PromptBuilder
	maxAttempts   int
	contactCache  *lru.Cache[string, models.CandidateInfo]
	log           *zap.Logger
}

func NewGatewayService(geminiService GeminiService, maxAttempts, cacheSize int, log *zap.Logger) (GatewayService, error) {
	g := &gatewayService{
		geminiService: geminiService,
		promptBuilder: NewPromptBuilder(),
		maxAttempts:   maxAttempts,
		log:           log,
	}

	if cacheSize > 0 {
		cache, err := lru.New[string, models.CandidateInfo](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create contact cache: %w", err)
		}
		g.contactCache = cache
	}

	return g, nil
}

// Execute implements GatewayService.
func (g *gatewayService) Execute(ctx context.Context, req models.GatewayRequest) (*GatewayResult, error) {
	prompt, temperature, err := g.buildPrompt(req)
	if err != nil {
		metrics.GatewayRequests.WithLabelValues(req.Task, "rejected").Inc()
		return nil, err
	}

	text, err := g.geminiService.GenerateTextWithRetry(ctx, prompt, temperature, g.maxAttempts)
	if err != nil {
		metrics.GatewayRequests.WithLabelValues(req.Task, "error").Inc()
		g.log.Error("❌ Gateway model call failed", zap.String("task", req.Task), zap.Error(err))
		return nil, fmt.Errorf("failed to run %s: %w", req.Task, err)
	}

	result := &GatewayResult{Task: req.Task, Text: text}

	cleaned := StripCodeFences(text)
	if json.Valid([]byte(cleaned)) {
		result.Kind = ResultJSON
		result.JSON = json.RawMessage(cleaned)
	} else if req.Task == models.TaskExtractContactInfo {
		result.Kind = ResultText
	} else {
		g.log.Warn("⚠️ Model reply is not JSON, returning raw text",
			zap.String("task", req.Task),
			zap.Int("length", len(text)))
		result.Kind = ResultRaw
	}

	metrics.GatewayRequests.WithLabelValues(req.Task, string(result.Kind)).Inc()
	return result, nil
}

func (g *gatewayService) buildPrompt(req models.GatewayRequest) (string, float32, error) {
	switch req.Task {
	case models.TaskExtractContactInfo:
		if strings.TrimSpace(req.Text) == "" {
			return "", 0, fmt.Errorf("%w: 'text' is required", ErrInvalidPayload)
		}
		return g.promptBuilder.BuildContactInfoPrompt(req.Text), 0.0, nil

	case models.TaskGenerateQuestions:
		if strings.TrimSpace(req.Role) == "" {
			return "", 0, fmt.Errorf("%w: 'role' is required", ErrInvalidPayload)
		}
		if len(req.Difficulty) == 0 {
			return "", 0, fmt.Errorf("%w: 'difficulty' must list at least one level", ErrInvalidPayload)
		}
		if req.CountPerLevel <= 0 {
			return "", 0, fmt.Errorf("%w: 'count_per_level' must be positive", ErrInvalidPayload)
		}
		return g.promptBuilder.BuildQuestionsPrompt(req.Role, req.Difficulty, req.CountPerLevel), 0.7, nil

	case models.TaskScoreAnswer:
		if len(req.Answers) == 0 {
			return "", 0, fmt.Errorf("%w: Provide an array of question-answer pairs in 'answers'", ErrInvalidPayload)
		}
		return g.promptBuilder.BuildScoringPrompt(req.Answers), 0.2, nil

	default:
		return "", 0, fmt.Errorf("%w: %q", ErrUnknownTask, req.Task)
	}
}

// ExtractContactInfo implements GatewayService.
func (g *gatewayService) ExtractContactInfo(ctx context.Context, resumeText string) (models.CandidateInfo, error) {
	key := hashText(resumeText)
	if g.contactCache != nil {
		if info, ok := g.contactCache.Get(key); ok {
			g.log.Debug("Contact info served from cache")
			return info, nil
		}
	}

	result, err := g.Execute(ctx, models.GatewayRequest{
		Task: models.TaskExtractContactInfo,
		Text: resumeText,
	})
	if err != nil {
		return models.CandidateInfo{}, err
	}
	if result.Kind != ResultJSON {
		return models.CandidateInfo{}, ErrUnstructuredReply
	}

	info, err := decodeContactInfo(result.JSON)
	if err != nil {
		return models.CandidateInfo{}, err
	}

	if g.contactCache != nil {
		g.contactCache.Add(key, info)
	}
	return info, nil
}

// GenerateQuestions implements GatewayService.
func (g *gatewayService) GenerateQuestions(ctx context.Context, plan models.QuestionPlan) ([]models.Question, error) {
	result, err := g.Execute(ctx, models.GatewayRequest{
		Task:          models.TaskGenerateQuestions,
		Role:          plan.Role,
		Difficulty:    plan.Difficulties,
		CountPerLevel: plan.CountPerLevel,
	})
	if err != nil {
		return nil, err
	}
	if result.Kind != ResultJSON {
		return nil, ErrUnstructuredReply
	}

	return decodeQuestions(result.JSON)
}

// ScoreAnswers implements GatewayService.
func (g *gatewayService) ScoreAnswers(ctx context.Context, pairs []models.QAPair) (*models.ScoreReport, error) {
	result, err := g.Execute(ctx, models.GatewayRequest{
		Task:    models.TaskScoreAnswer,
		Answers: pairs,
	})
	if err != nil {
		return nil, err
	}
	if result.Kind != ResultJSON {
		return nil, ErrUnstructuredReply
	}

	var report models.ScoreReport
	if err := json.Unmarshal(result.JSON, &report); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnstructuredReply, err)
	}
	if len(report.Results) == 0 {
		return nil, fmt.Errorf("%w: no results in scoring reply", ErrUnstructuredReply)
	}

	for i := range report.Results {
		r := &report.Results[i]
		if i < len(pairs) {
			if r.Question == "" {
				r.Question = pairs[i].Question
			}
			if r.Answer == "" {
				r.Answer = pairs[i].Answer
			}
		}
		r.Score = clampScore(r.Score)
	}

	return &report, nil
}

func decodeContactInfo(raw json.RawMessage) (models.CandidateInfo, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return models.CandidateInfo{}, fmt.Errorf("%w: %v", ErrUnstructuredReply, err)
	}

	normalised := make(map[string]any, len(fields))
	for k, v := range fields {
		normalised[strings.ToLower(strings.TrimSpace(k))] = v
	}

	return models.CandidateInfo{
		Name:  stringField(normalised[models.FieldName]),
		Email: stringField(normalised[models.FieldEmail]),
		Phone: stringField(normalised[models.FieldPhone]),
	}, nil
}

func stringField(v any) *string {
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" || strings.EqualFold(t, "null") {
			return nil
		}
		return models.StringPtr(strings.TrimSpace(t))
	case float64:
		return models.StringPtr(strconv.FormatFloat(t, 'f', -1, 64))
	default:
		return nil
	}
}

func decodeQuestions(raw json.RawMessage) ([]models.Question, error) {
	var questions []models.Question

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		// some replies wrap the array: {"questions": [...]}
		var wrapped struct {
			Questions []models.Question `json:"questions"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnstructuredReply, err)
		}
		questions = wrapped.Questions
	} else if err := json.Unmarshal(trimmed, &questions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnstructuredReply, err)
	}

	out := make([]models.Question, 0, len(questions))
	for _, q := range questions {
		text := strings.TrimSpace(q.Text)
		if text == "" {
			continue
		}
		out = append(out, models.Question{
			Text:       text,
			Difficulty: models.Difficulty(strings.ToLower(strings.TrimSpace(string(q.Difficulty)))),
		})
	}
	return out, nil
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 10 {
		return 10
	}
	return s
}

func hashText(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
