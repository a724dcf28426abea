package interview

import (
	"fmt"
	"time"

	"alfredoptarigan/ai-interviewer/internal/models"
)

func (s *Session) require(stages ...Stage) error {
	for _, st := range stages {
		if s.Stage == st {
			return nil
		}
	}
	return fmt.Errorf("%w: stage is %s", ErrInvalidTransition, s.Stage)
}

func (s *Session) requireAttempt(attempt uint64) error {
	if attempt != s.Attempt {
		return fmt.Errorf("%w: attempt %d, current %d", ErrStaleAttempt, attempt, s.Attempt)
	}
	return nil
}

func (s *Session) fail(err error) {
	if err == nil {
		s.LastError = ""
		return
	}
	s.LastError = err.Error()
}

// BeginUpload marks a resume as submitted for parsing.
func (s *Session) BeginUpload() error {
	if err := s.require(StageNoResume); err != nil {
		return err
	}
	s.Stage = StageUploading
	s.LastError = ""
	return nil
}

// FailUpload abandons the upload attempt.
func (s *Session) FailUpload(err error) error {
	if e := s.require(StageUploading); e != nil {
		return e
	}
	s.Stage = StageNoResume
	s.CandidateInfo = models.CandidateInfo{}
	s.ResumeDocumentID = ""
	s.fail(err)
	return nil
}

// ApplyContactInfo stores the extracted contact fields and moves on to
// either collecting the missing ones or generating questions.
func (s *Session) ApplyContactInfo(info models.CandidateInfo) error {
	if err := s.require(StageUploading); err != nil {
		return err
	}
	s.CandidateInfo = models.CandidateInfo{}.Merge(info)
	s.LastError = ""
	s.settleContactInfo()
	return nil
}

// SubmitMissingInfo merges user supplied fields. It returns the fields that
// are still missing; the stage only advances once that list is empty.
func (s *Session) SubmitMissingInfo(update models.CandidateInfo) ([]string, error) {
	if err := s.require(StageMissingInfo); err != nil {
		return nil, err
	}
	s.CandidateInfo = s.CandidateInfo.Merge(update)
	s.settleContactInfo()
	return s.MissingFields, nil
}

func (s *Session) settleContactInfo() {
	s.MissingFields = s.CandidateInfo.MissingFields()
	if len(s.MissingFields) > 0 {
		s.Stage = StageMissingInfo
		return
	}
	s.Stage = StageGeneratingQuestions
}

// ApplyQuestions starts the interview at the first question. attempt is the
// value read when generation was requested.
func (s *Session) ApplyQuestions(attempt uint64, questions []models.Question, now time.Time) error {
	if err := s.requireAttempt(attempt); err != nil {
		return err
	}
	if err := s.require(StageGeneratingQuestions); err != nil {
		return err
	}
	if len(questions) == 0 {
		s.fail(ErrNoQuestions)
		return ErrNoQuestions
	}
	s.Questions = append([]models.Question(nil), questions...)
	s.Answers = []string{}
	s.CurrentQuestionIndex = 0
	s.InProgress = true
	s.ScoringStarted = false
	s.LastError = ""
	s.Stage = StageInProgress
	s.Generation++
	s.startClock(now)
	return nil
}

// FailQuestions records a generation failure. The stage is kept so the
// caller can try again.
func (s *Session) FailQuestions(attempt uint64, err error) error {
	if e := s.requireAttempt(attempt); e != nil {
		return e
	}
	if e := s.require(StageGeneratingQuestions); e != nil {
		return e
	}
	s.fail(err)
	return nil
}

// SubmitAnswer records a manual answer for the question identified by
// generation. It returns true when the interview moved to scoring.
func (s *Session) SubmitAnswer(generation uint64, answer string, now time.Time) (bool, error) {
	if err := s.require(StageInProgress); err != nil {
		return false, err
	}
	if generation != s.Generation {
		return false, ErrStaleGeneration
	}
	return s.advance(answer, now), nil
}

// Expire records an empty answer if the current deadline passed more than
// grace ago.
func (s *Session) Expire(now time.Time, grace time.Duration) (bool, error) {
	if err := s.require(StageInProgress); err != nil {
		return false, err
	}
	if s.Deadline == nil || now.Before(s.Deadline.Add(grace)) {
		return false, ErrNotExpired
	}
	return s.advance("", now), nil
}

func (s *Session) advance(answer string, now time.Time) bool {
	s.Answers = append(s.Answers, answer)
	s.CurrentQuestionIndex++
	s.Generation++

	if s.CurrentQuestionIndex < len(s.Questions) {
		s.startClock(now)
		return false
	}

	s.Deadline = nil
	s.Timer = 0
	s.Stage = StageScoring
	return true
}

func (s *Session) startClock(now time.Time) {
	d := DurationFor(s.Questions[s.CurrentQuestionIndex].Difficulty)
	deadline := now.Add(d)
	s.Deadline = &deadline
	s.Timer = int(d / time.Second)
}

// Resume recomputes the clock for a reloaded client. A deadline that passed
// while the client was away still counts: the question is closed with an
// empty answer and the next one starts now.
func (s *Session) Resume(now time.Time) (bool, error) {
	if err := s.require(StageInProgress); err != nil {
		return false, err
	}
	if s.Deadline != nil {
		if !now.Before(*s.Deadline) {
			return s.advance("", now), nil
		}
		s.Timer = s.Remaining(now)
		return false, nil
	}

	d := DurationFor(s.Questions[s.CurrentQuestionIndex].Difficulty)
	if s.Timer > 0 {
		d = time.Duration(s.Timer) * time.Second
	}
	deadline := now.Add(d)
	s.Deadline = &deadline
	s.Timer = int(d / time.Second)
	return false, nil
}

// Tick refreshes the cached timer from the deadline.
func (s *Session) Tick(now time.Time) {
	if s.Stage == StageInProgress {
		s.Timer = s.Remaining(now)
	}
}

// BeginScoring sets the completion guard and returns the pairs to score.
// Only the first call after the last answer succeeds.
func (s *Session) BeginScoring() ([]models.QAPair, error) {
	if err := s.require(StageScoring); err != nil {
		return nil, err
	}
	if s.ScoringStarted {
		return nil, ErrScoringStarted
	}
	if !s.Complete() {
		return nil, fmt.Errorf("%w: %d of %d answers recorded", ErrInvalidTransition, len(s.Answers), len(s.Questions))
	}
	s.ScoringStarted = true
	s.LastError = ""
	return s.Pairs(), nil
}

// CompleteScoring finishes the interview once the record is in the roster.
func (s *Session) CompleteScoring(attempt uint64, candidateID string) error {
	if err := s.requireAttempt(attempt); err != nil {
		return err
	}
	if err := s.require(StageScoring); err != nil {
		return err
	}
	s.CandidateID = candidateID
	s.InProgress = false
	s.LastError = ""
	s.Stage = StageCompleted
	return nil
}

// FailScoring keeps the session in scoring. The guard stays set so nothing
// re-triggers scoring until RetryScoring is called.
func (s *Session) FailScoring(attempt uint64, err error) error {
	if e := s.requireAttempt(attempt); e != nil {
		return e
	}
	if e := s.require(StageScoring); e != nil {
		return e
	}
	s.fail(err)
	return nil
}

// RetryScoring clears the guard after a failed scoring attempt.
func (s *Session) RetryScoring() error {
	if err := s.require(StageScoring); err != nil {
		return err
	}
	if !s.ScoringStarted {
		return nil
	}
	if s.LastError == "" {
		return ErrScoringStarted
	}
	s.ScoringStarted = false
	s.LastError = ""
	return nil
}

// Reset drops everything and returns to the initial state. Only the id is
// kept, and the attempt counter moves on.
func (s *Session) Reset() {
	attempt := s.Attempt
	*s = *NewSession(s.ID)
	s.Attempt = attempt + 1
}
