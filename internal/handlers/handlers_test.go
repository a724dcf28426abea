package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"alfredoptarigan/ai-interviewer/internal/config"
	"alfredoptarigan/ai-interviewer/internal/models"
	"alfredoptarigan/ai-interviewer/internal/repositories"
	"alfredoptarigan/ai-interviewer/internal/services"
)

type stubGateway struct {
	result    *services.GatewayResult
	err       error
	contact   models.CandidateInfo
	questions []models.Question
	questErr  error
	report    *models.ScoreReport
}

func (s *stubGateway) Execute(ctx context.Context, req models.GatewayRequest) (*services.GatewayResult, error) {
	if req.Task != models.TaskExtractContactInfo && req.Task != models.TaskGenerateQuestions && req.Task != models.TaskScoreAnswer {
		return nil, fmt.Errorf("%w: %q", services.ErrUnknownTask, req.Task)
	}
	return s.result, s.err
}

func (s *stubGateway) ExtractContactInfo(ctx context.Context, text string) (models.CandidateInfo, error) {
	return s.contact, nil
}

func (s *stubGateway) GenerateQuestions(ctx context.Context, plan models.QuestionPlan) ([]models.Question, error) {
	return s.questions, s.questErr
}

func (s *stubGateway) ScoreAnswers(ctx context.Context, pairs []models.QAPair) (*models.ScoreReport, error) {
	return s.report, nil
}

type stubParser struct{}

func (stubParser) Parse(ctx context.Context, filePath, originalName string) (string, error) {
	return "Ada Lovelace resume", nil
}

type testApp struct {
	app        *fiber.App
	interviews services.InterviewService
	gateway    *stubGateway
}

func setupApp(t *testing.T) *testApp {
	t.Helper()

	dsn := fmt.Sprintf("file:%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	log := zap.NewNop()
	gateway := &stubGateway{
		contact: models.CandidateInfo{Name: models.StringPtr("Ada Lovelace")},
		questions: []models.Question{
			{Text: "What is a goroutine?", Difficulty: models.DifficultyEasy},
			{Text: "Explain the Go scheduler.", Difficulty: models.DifficultyHard},
		},
		report: &models.ScoreReport{
			Results: []models.ScoreResult{
				{Question: "What is a goroutine?", Answer: "A light thread", Score: 8},
				{Question: "Explain the Go scheduler.", Answer: "", Score: 0},
			},
			Summary: "Knows the basics.",
		},
	}

	docRepo := repositories.NewDocumentRepository(db)
	candidateRepo := repositories.NewCandidateRepository(db)
	index := services.NewCandidateIndex(nil, nil, services.NewTextChunker(), log)

	interviews := services.NewInterviewService(services.InterviewDeps{
		Sessions:   repositories.NewMemorySessionRepository(),
		Candidates: candidateRepo,
		Documents:  docRepo,
		Storage:    services.NewStorageService(t.TempDir(), 1<<20),
		Parser:     stubParser{},
		Gateway:    gateway,
		Index:      index,
		Plan:       models.QuestionPlan{Role: "Backend", Difficulties: models.DefaultDifficulties, CountPerLevel: 1},
		TimerGrace: 2 * time.Second,
	}, log)

	app := fiber.New()
	RegisterRoutes(app, Handlers{
		Gateway:   NewGatewayHandler(gateway, log),
		Session:   NewSessionHandler(interviews, docRepo, log),
		Candidate: NewCandidateHandler(candidateRepo, index, log),
	})

	return &testApp{app: app, interviews: interviews, gateway: gateway}
}

func (ta *testApp) do(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func jsonRequest(method, path string, body any) *http.Request {
	var r io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, path, filename string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeSession(t *testing.T, body []byte) models.SessionResponse {
	t.Helper()
	var resp models.SessionResponse
	require.NoError(t, json.Unmarshal(body, &resp), string(body))
	return resp
}

func TestGatewayUnknownTask(t *testing.T) {
	ta := setupApp(t)

	status, body := ta.do(t, jsonRequest(http.MethodPost, "/api/v1/llm", map[string]string{"task": "poem"}))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.JSONEq(t, `{"error":"Unknown task"}`, string(body))
}

func TestGatewayResultVariants(t *testing.T) {
	ta := setupApp(t)
	req := map[string]any{"task": models.TaskExtractContactInfo, "text": "resume"}

	ta.gateway.result = &services.GatewayResult{Kind: services.ResultJSON, JSON: json.RawMessage(`{"name":"Ada","email":null,"phone":null}`)}
	status, body := ta.do(t, jsonRequest(http.MethodPost, "/api/gemini", req))
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"name":"Ada","email":null,"phone":null}`, string(body))

	ta.gateway.result = &services.GatewayResult{Kind: services.ResultRaw, Text: "not json"}
	_, body = ta.do(t, jsonRequest(http.MethodPost, "/api/v1/llm", req))
	assert.JSONEq(t, `{"raw":"not json"}`, string(body))

	ta.gateway.result = &services.GatewayResult{Kind: services.ResultText, Text: "free text"}
	_, body = ta.do(t, jsonRequest(http.MethodPost, "/api/v1/llm", req))
	assert.JSONEq(t, `{"text":"free text"}`, string(body))
}

func TestGatewayMalformedBodyIsServerError(t *testing.T) {
	ta := setupApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/llm", strings.NewReader(`{"task":`))
	req.Header.Set("Content-Type", "application/json")
	status, body := ta.do(t, req)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.JSONEq(t, `{"error":"Something went wrong"}`, string(body))
}

func TestQuestionFailureHidesUpstreamDetail(t *testing.T) {
	ta := setupApp(t)
	ta.gateway.contact = models.CandidateInfo{
		Name:  models.StringPtr("Ada Lovelace"),
		Email: models.StringPtr("ada@example.com"),
		Phone: models.StringPtr("555"),
	}
	ta.gateway.questErr = errors.New("googleapi: Error 429: quota exceeded key=AIza-secret")

	_, body := ta.do(t, jsonRequest(http.MethodPost, "/api/v1/sessions", nil))
	var created models.CreateSessionResponse
	require.NoError(t, json.Unmarshal(body, &created))
	base := "/api/v1/sessions/" + created.ID

	status, body := ta.do(t, uploadRequest(t, base+"/resume", "cv.pdf"))
	require.Equal(t, http.StatusOK, status)
	sess := decodeSession(t, body)
	assert.Equal(t, "generating_questions", sess.Stage)
	require.NotNil(t, sess.Error)
	assert.Equal(t, services.ErrQuestionGeneration.Error(), *sess.Error)

	status, body = ta.do(t, jsonRequest(http.MethodPost, base+"/questions", nil))
	assert.Equal(t, http.StatusBadGateway, status)
	assert.NotContains(t, string(body), "AIza")
	sess = decodeSession(t, body)
	require.NotNil(t, sess.Error)
	assert.Equal(t, services.ErrQuestionGeneration.Error(), *sess.Error)
}

func TestGatewayFailureIsGeneric(t *testing.T) {
	ta := setupApp(t)
	ta.gateway.err = errors.New("upstream exploded with secrets")

	status, body := ta.do(t, jsonRequest(http.MethodPost, "/api/v1/llm", map[string]any{
		"task":    models.TaskScoreAnswer,
		"answers": []models.QAPair{{Question: "q", Answer: "a"}},
	}))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.JSONEq(t, `{"error":"Something went wrong"}`, string(body))
}

func TestInterviewFlow(t *testing.T) {
	ta := setupApp(t)

	status, body := ta.do(t, jsonRequest(http.MethodPost, "/api/v1/sessions", nil))
	require.Equal(t, http.StatusCreated, status)
	var created models.CreateSessionResponse
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "no_resume", created.Stage)
	base := "/api/v1/sessions/" + created.ID

	status, body = ta.do(t, uploadRequest(t, base+"/resume", "cv.pdf"))
	require.Equal(t, http.StatusOK, status, string(body))
	sess := decodeSession(t, body)
	assert.Equal(t, "missing_info", sess.Stage)
	assert.Equal(t, []string{"email", "phone"}, sess.MissingFields)
	require.NotNil(t, sess.Upload)
	assert.Equal(t, "cv.pdf", sess.Upload.OriginalName)

	status, body = ta.do(t, jsonRequest(http.MethodPost, base+"/contact", map[string]string{"email": "ada@example.com"}))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"phone"}, decodeSession(t, body).MissingFields)

	status, body = ta.do(t, jsonRequest(http.MethodPost, base+"/contact", map[string]string{"phone": "555"}))
	require.Equal(t, http.StatusOK, status)
	sess = decodeSession(t, body)
	assert.Equal(t, "in_progress", sess.Stage)
	require.NotNil(t, sess.CurrentQuestion)
	assert.Equal(t, "What is a goroutine?", sess.CurrentQuestion.Text)
	assert.Equal(t, 20, sess.Duration)
	assert.InDelta(t, 20, sess.Timer, 1)
	assert.True(t, sess.WelcomeBack)

	gen := sess.Generation
	status, body = ta.do(t, jsonRequest(http.MethodPost, base+"/answers", models.AnswerRequest{Generation: gen, Answer: "A light thread"}))
	require.Equal(t, http.StatusOK, status)
	sess = decodeSession(t, body)
	assert.Equal(t, 1, sess.CurrentQuestionIndex)
	assert.Equal(t, 120, sess.Duration)

	// the same generation again is rejected
	status, _ = ta.do(t, jsonRequest(http.MethodPost, base+"/answers", models.AnswerRequest{Generation: gen, Answer: "late"}))
	assert.Equal(t, http.StatusConflict, status)

	status, body = ta.do(t, jsonRequest(http.MethodPost, base+"/answers", models.AnswerRequest{Generation: sess.Generation, Answer: ""}))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "scoring", decodeSession(t, body).Stage)

	require.NoError(t, ta.interviews.ScoreSession(context.Background(), created.ID))

	status, body = ta.do(t, httptest.NewRequest(http.MethodGet, base, nil))
	require.Equal(t, http.StatusOK, status)
	sess = decodeSession(t, body)
	assert.Equal(t, "completed", sess.Stage)
	assert.False(t, sess.WelcomeBack)
	require.NotEmpty(t, sess.CandidateID)

	status, body = ta.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/candidates?search=ada", nil))
	require.Equal(t, http.StatusOK, status)
	var list models.CandidateListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Equal(t, 1, list.Total)
	assert.Equal(t, sess.CandidateID, list.Candidates[0].ID)
	assert.Equal(t, 8.0, list.Candidates[0].FinalScore)
	assert.Equal(t, "555", list.Candidates[0].Phone)

	status, _ = ta.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/candidates/"+sess.CandidateID+"/similar", nil))
	assert.Equal(t, http.StatusServiceUnavailable, status)

	status, _ = ta.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/candidates/"+sess.CandidateID, nil))
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = ta.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/candidates/"+sess.CandidateID, nil))
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = ta.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/candidates/"+sess.CandidateID, nil))
	assert.Equal(t, http.StatusNotFound, status)

	status, body = ta.do(t, jsonRequest(http.MethodPost, base+"/reset", nil))
	require.Equal(t, http.StatusOK, status)
	sess = decodeSession(t, body)
	assert.Equal(t, "no_resume", sess.Stage)
	assert.Zero(t, sess.TotalQuestions)
}

func TestUploadRejectsExtension(t *testing.T) {
	ta := setupApp(t)
	_, body := ta.do(t, jsonRequest(http.MethodPost, "/api/v1/sessions", nil))
	var created models.CreateSessionResponse
	require.NoError(t, json.Unmarshal(body, &created))

	status, body := ta.do(t, uploadRequest(t, "/api/v1/sessions/"+created.ID+"/resume", "cv.exe"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.True(t, strings.Contains(string(body), ".pdf"))
}

func TestUnknownSession(t *testing.T) {
	ta := setupApp(t)

	status, body := ta.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/nope", nil))
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"error":"Session not found"}`, string(body))
}

func TestDiscardSession(t *testing.T) {
	ta := setupApp(t)
	_, body := ta.do(t, jsonRequest(http.MethodPost, "/api/v1/sessions", nil))
	var created models.CreateSessionResponse
	require.NoError(t, json.Unmarshal(body, &created))
	path := "/api/v1/sessions/" + created.ID

	status, _ := ta.do(t, httptest.NewRequest(http.MethodDelete, path, nil))
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = ta.do(t, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = ta.do(t, httptest.NewRequest(http.MethodDelete, path, nil))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestWrongStageIsConflict(t *testing.T) {
	ta := setupApp(t)
	_, body := ta.do(t, jsonRequest(http.MethodPost, "/api/v1/sessions", nil))
	var created models.CreateSessionResponse
	require.NoError(t, json.Unmarshal(body, &created))

	status, body := ta.do(t, jsonRequest(http.MethodPost, "/api/v1/sessions/"+created.ID+"/continue", nil))
	assert.Equal(t, http.StatusConflict, status)
	resp := decodeSession(t, body)
	assert.Equal(t, "no_resume", resp.Stage)
	require.NotNil(t, resp.Error)
}

func TestHealthAndMetrics(t *testing.T) {
	ta := setupApp(t)

	status, body := ta.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"status":"healthy"`)

	status, body = ta.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, strings.Contains(string(body), "interviewer_interviews_completed_total"))
}
