package interview

import (
	"errors"
	"time"

	"alfredoptarigan/ai-interviewer/internal/models"
)

type Stage string

const (
	StageNoResume            Stage = "no_resume"
	StageUploading           Stage = "uploading"
	StageMissingInfo         Stage = "missing_info"
	StageGeneratingQuestions Stage = "generating_questions"
	StageInProgress          Stage = "in_progress"
	StageScoring             Stage = "scoring"
	StageCompleted           Stage = "completed"
)

var (
	ErrInvalidTransition = errors.New("transition not allowed in current stage")
	ErrStaleGeneration   = errors.New("question already advanced")
	ErrScoringStarted    = errors.New("scoring already started")
	ErrNoQuestions       = errors.New("no questions generated")
	ErrNotExpired        = errors.New("deadline has not passed")
	ErrStaleAttempt      = errors.New("interview was restarted")
)

// Session is one candidate's interview attempt. All mutation goes through the
// transition methods so the invariants below hold after every call:
//
//   - len(Answers) == CurrentQuestionIndex
//   - Deadline is set only while Stage is StageInProgress
//   - Generation changes exactly once per recorded answer
//   - Attempt changes on every Reset, so replies for an earlier interview on
//     the same id are rejected
type Session struct {
	ID                   string               `json:"id"`
	Attempt              uint64               `json:"attempt"`
	Stage                Stage                `json:"stage"`
	CandidateInfo        models.CandidateInfo `json:"candidate_info"`
	MissingFields        []string             `json:"missing_fields,omitempty"`
	Questions            []models.Question    `json:"questions"`
	Answers              []string             `json:"answers"`
	CurrentQuestionIndex int                  `json:"current_question_index"`
	Deadline             *time.Time           `json:"deadline,omitempty"`
	Timer                int                  `json:"timer"`
	InProgress           bool                 `json:"in_progress"`
	Generation           uint64               `json:"generation"`
	ScoringStarted       bool                 `json:"scoring_started"`
	CandidateID          string               `json:"candidate_id,omitempty"`
	ResumeDocumentID     string               `json:"resume_document_id,omitempty"`
	LastError            string               `json:"last_error,omitempty"`
	UpdatedAt            time.Time            `json:"updated_at"`
}

// NewSession returns a session in its initial state.
func NewSession(id string) *Session {
	return &Session{
		ID:        id,
		Stage:     StageNoResume,
		Questions: []models.Question{},
		Answers:   []string{},
	}
}

// DurationFor is the time budget for a question of the given difficulty.
func DurationFor(d models.Difficulty) time.Duration {
	switch d {
	case models.DifficultyEasy:
		return 20 * time.Second
	case models.DifficultyMedium:
		return 60 * time.Second
	case models.DifficultyHard:
		return 120 * time.Second
	default:
		return 30 * time.Second
	}
}

// CurrentQuestion returns the question being answered, if any.
func (s *Session) CurrentQuestion() (models.Question, bool) {
	if s.Stage != StageInProgress || s.CurrentQuestionIndex >= len(s.Questions) {
		return models.Question{}, false
	}
	return s.Questions[s.CurrentQuestionIndex], true
}

// Remaining returns whole seconds left on the current question, clamped at zero.
func (s *Session) Remaining(now time.Time) int {
	if s.Deadline == nil {
		return 0
	}
	left := s.Deadline.Sub(now)
	if left <= 0 {
		return 0
	}
	// round up so a fresh 20s deadline reads 20, not 19
	return int((left + time.Second - 1) / time.Second)
}

// Complete reports whether every question has an answer.
func (s *Session) Complete() bool {
	return len(s.Questions) > 0 && len(s.Answers) == len(s.Questions)
}

// NeedsWelcomeBack reports whether a reloaded client should be offered to
// resume an interview that is still running.
func (s *Session) NeedsWelcomeBack() bool {
	return s.InProgress && s.Stage == StageInProgress && s.CurrentQuestionIndex < len(s.Questions)
}

// Pairs returns the question/answer pairs for scoring.
func (s *Session) Pairs() []models.QAPair {
	pairs := make([]models.QAPair, 0, len(s.Questions))
	for i, q := range s.Questions {
		var answer string
		if i < len(s.Answers) {
			answer = s.Answers[i]
		}
		pairs = append(pairs, models.QAPair{Question: q.Text, Answer: answer})
	}
	return pairs
}
