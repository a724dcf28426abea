package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"alfredoptarigan/ai-interviewer/internal/models"
)

// fakeGemini replays canned replies in order and records prompts.
type fakeGemini struct {
	replies []string
	err     error
	prompts []string
}

func (f *fakeGemini) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1}, nil
}

func (f *fakeGemini) GenerateText(ctx context.Context, prompt string, temperature float32) (string, error) {
	return f.GenerateTextWithRetry(ctx, prompt, temperature, 1)
}

func (f *fakeGemini) GenerateTextWithRetry(ctx context.Context, prompt string, temperature float32, maxAttempts int) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", errors.New("no reply queued")
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func newTestGateway(t *testing.T, fake *fakeGemini, cacheSize int) GatewayService {
	t.Helper()
	g, err := NewGatewayService(fake, 3, cacheSize, zap.NewNop())
	require.NoError(t, err)
	return g
}

func TestStripCodeFences(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```JSON\n[1]\n```":       `[1]`,
		"```\n{}\n```":            `{}`,
		"  {\"a\":1}  ":           `{"a":1}`,
		"plain words":             "plain words",
	}
	for in, want := range cases {
		assert.Equal(t, want, StripCodeFences(in), "input %q", in)
	}
}

func TestExecuteUnknownTask(t *testing.T) {
	fake := &fakeGemini{}
	g := newTestGateway(t, fake, 0)

	_, err := g.Execute(context.Background(), models.GatewayRequest{Task: "summarise"})
	assert.ErrorIs(t, err, ErrUnknownTask)
	assert.Empty(t, fake.prompts, "model must not be called")
}

func TestExecuteRejectsEmptyAnswers(t *testing.T) {
	fake := &fakeGemini{}
	g := newTestGateway(t, fake, 0)

	_, err := g.Execute(context.Background(), models.GatewayRequest{Task: models.TaskScoreAnswer})
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.Empty(t, fake.prompts)
}

func TestExecuteRejectsBadQuestionPayload(t *testing.T) {
	g := newTestGateway(t, &fakeGemini{}, 0)

	_, err := g.Execute(context.Background(), models.GatewayRequest{
		Task:          models.TaskGenerateQuestions,
		Role:          "Backend",
		CountPerLevel: 2,
	})
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestExecuteParsesFencedJSON(t *testing.T) {
	fake := &fakeGemini{replies: []string{"```json\n{\"name\":\"Ada\"}\n```"}}
	g := newTestGateway(t, fake, 0)

	res, err := g.Execute(context.Background(), models.GatewayRequest{
		Task: models.TaskExtractContactInfo,
		Text: "Ada Lovelace resume",
	})
	require.NoError(t, err)
	assert.Equal(t, ResultJSON, res.Kind)
	assert.JSONEq(t, `{"name":"Ada"}`, string(res.JSON))
	assert.Contains(t, fake.prompts[0], "Ada Lovelace resume")
}

func TestExecuteFallbacks(t *testing.T) {
	fake := &fakeGemini{replies: []string{"not json at all", "sorry, cannot"}}
	g := newTestGateway(t, fake, 0)

	res, err := g.Execute(context.Background(), models.GatewayRequest{
		Task:    models.TaskScoreAnswer,
		Answers: []models.QAPair{{Question: "q", Answer: "a"}},
	})
	require.NoError(t, err)
	assert.Equal(t, ResultRaw, res.Kind)
	assert.Equal(t, "not json at all", res.Text)

	res, err = g.Execute(context.Background(), models.GatewayRequest{
		Task: models.TaskExtractContactInfo,
		Text: "resume",
	})
	require.NoError(t, err)
	assert.Equal(t, ResultText, res.Kind)
	assert.Equal(t, "sorry, cannot", res.Text)
}

func TestExecuteModelFailure(t *testing.T) {
	g := newTestGateway(t, &fakeGemini{err: errors.New("quota exceeded")}, 0)

	_, err := g.Execute(context.Background(), models.GatewayRequest{
		Task: models.TaskExtractContactInfo,
		Text: "resume",
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidPayload)
	assert.NotErrorIs(t, err, ErrUnknownTask)
}

func TestExtractContactInfoCaches(t *testing.T) {
	fake := &fakeGemini{replies: []string{`{"Name":"Ada","email":"ada@example.com","phone":null}`}}
	g := newTestGateway(t, fake, 8)

	info, err := g.ExtractContactInfo(context.Background(), "resume text")
	require.NoError(t, err)
	assert.Equal(t, "Ada", models.Value(info.Name))
	assert.Equal(t, "ada@example.com", models.Value(info.Email))
	assert.Nil(t, info.Phone)

	again, err := g.ExtractContactInfo(context.Background(), "resume text")
	require.NoError(t, err)
	assert.Equal(t, info, again)
	assert.Len(t, fake.prompts, 1)
}

func TestExtractContactInfoNumericPhone(t *testing.T) {
	g := newTestGateway(t, &fakeGemini{replies: []string{`{"name":"Bo","email":"","phone":5551234}`}}, 0)

	info, err := g.ExtractContactInfo(context.Background(), "x")
	require.NoError(t, err)
	assert.Nil(t, info.Email)
	assert.Equal(t, "5551234", models.Value(info.Phone))
}

func TestExtractContactInfoUnstructured(t *testing.T) {
	g := newTestGateway(t, &fakeGemini{replies: []string{"no idea"}}, 0)

	_, err := g.ExtractContactInfo(context.Background(), "x")
	assert.ErrorIs(t, err, ErrUnstructuredReply)
}

func TestGenerateQuestions(t *testing.T) {
	reply := "```json\n[{\"text\":\"What is Go?\",\"difficulty\":\"Easy\"},{\"text\":\"  \",\"difficulty\":\"hard\"},{\"text\":\"Explain channels\",\"difficulty\":\"medium\"}]\n```"
	fake := &fakeGemini{replies: []string{reply}}
	g := newTestGateway(t, fake, 0)

	qs, err := g.GenerateQuestions(context.Background(), models.QuestionPlan{
		Role:          "Full Stack Developer",
		Difficulties:  models.DefaultDifficulties,
		CountPerLevel: 2,
	})
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, models.DifficultyEasy, qs[0].Difficulty)
	assert.Equal(t, "Explain channels", qs[1].Text)
	assert.True(t, strings.Contains(fake.prompts[0], "easy, medium, hard"))
}

func TestGenerateQuestionsWrapped(t *testing.T) {
	g := newTestGateway(t, &fakeGemini{replies: []string{`{"questions":[{"text":"Q","difficulty":"hard"}]}`}}, 0)

	qs, err := g.GenerateQuestions(context.Background(), models.QuestionPlan{
		Role: "r", Difficulties: []models.Difficulty{"hard"}, CountPerLevel: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, []models.Question{{Text: "Q", Difficulty: models.DifficultyHard}}, qs)
}

func TestScoreAnswers(t *testing.T) {
	reply := `{"results":[{"question":"q1","answer":"a1","score":7},{"score":14}],"summary":"solid"}`
	g := newTestGateway(t, &fakeGemini{replies: []string{reply}}, 0)

	pairs := []models.QAPair{{Question: "q1", Answer: "a1"}, {Question: "q2", Answer: ""}}
	report, err := g.ScoreAnswers(context.Background(), pairs)
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	assert.Equal(t, "q2", report.Results[1].Question)
	assert.Equal(t, 10.0, report.Results[1].Score)
	assert.Equal(t, 17.0, report.Total())
	assert.Equal(t, "solid", report.Summary)
}

func TestScoreAnswersRawFallback(t *testing.T) {
	g := newTestGateway(t, &fakeGemini{replies: []string{"I think they did fine"}}, 0)

	_, err := g.ScoreAnswers(context.Background(), []models.QAPair{{Question: "q", Answer: "a"}})
	assert.ErrorIs(t, err, ErrUnstructuredReply)
}
