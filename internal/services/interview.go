package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/ai-interviewer/internal/interview"
	"alfredoptarigan/ai-interviewer/internal/metrics"
	"alfredoptarigan/ai-interviewer/internal/models"
	"alfredoptarigan/ai-interviewer/internal/repositories"
)

var (
	ErrResumeProcessing   = errors.New("resume could not be processed")
	ErrQuestionGeneration = errors.New("interview questions could not be generated")
	ErrScoring            = errors.New("interview could not be scored")
	ErrScoringInterrupted = errors.New("scoring was interrupted, please retry")

	errSkip = errors.New("skip")
)

// ScoringQueue accepts sessions whose last answer is in.
type ScoringQueue interface {
	EnqueueJob(sessionID string)
}

type InterviewService interface {
	Create(ctx context.Context) (*interview.Session, error)
	View(ctx context.Context, id string) (*interview.Session, error)
	Upload(ctx context.Context, id string, file *multipart.FileHeader) (*interview.Session, *models.Document, error)
	SubmitContact(ctx context.Context, id string, info models.CandidateInfo) (*interview.Session, error)
	GenerateQuestions(ctx context.Context, id string) (*interview.Session, error)
	SubmitAnswer(ctx context.Context, id string, generation uint64, answer string) (*interview.Session, error)
	Continue(ctx context.Context, id string) (*interview.Session, error)
	Reset(ctx context.Context, id string) (*interview.Session, error)
	RetryScoring(ctx context.Context, id string) (*interview.Session, error)
	Discard(ctx context.Context, id string) error

	ScoreSession(ctx context.Context, id string) error
	ExpireSession(ctx context.Context, id string) (bool, error)
	ActiveSessions(ctx context.Context) ([]string, error)
	RecoverInterrupted(ctx context.Context) (int, error)
	SetScoringQueue(q ScoringQueue)
}

type InterviewDeps struct {
	Sessions   repositories.SessionRepository
	Candidates repositories.CandidateRepository
	Documents  repositories.DocumentRepository
	Storage    StorageService
	Parser     ResumeParser
	Gateway    GatewayService
	Index      CandidateIndex
	Plan       models.QuestionPlan
	TimerGrace time.Duration
}

type interviewService struct {
	sessions   repositories.SessionRepository
	candidates repositories.CandidateRepository
	documents  repositories.DocumentRepository
	storage    StorageService
	parser     ResumeParser
	gateway    GatewayService
	index      CandidateIndex
	plan       models.QuestionPlan
	timerGrace time.Duration

	queue ScoringQueue
	locks *keyedMutex
	now   func() time.Time
	log   *zap.Logger
}

func NewInterviewService(deps InterviewDeps, log *zap.Logger) InterviewService {
	index := deps.Index
	if index == nil {
		index = disabledIndex{}
	}
	return &interviewService{
		sessions:   deps.Sessions,
		candidates: deps.Candidates,
		documents:  deps.Documents,
		storage:    deps.Storage,
		parser:     deps.Parser,
		gateway:    deps.Gateway,
		index:      index,
		plan:       deps.Plan,
		timerGrace: deps.TimerGrace,
		locks:      newKeyedMutex(),
		now:        time.Now,
		log:        log,
	}
}

func (s *interviewService) SetScoringQueue(q ScoringQueue) {
	s.queue = q
}

// mutate loads a session under its lock, applies fn and saves the result.
// Nothing is saved when fn fails; the loaded session is still returned.
func (s *interviewService) mutate(ctx context.Context, id string, fn func(*interview.Session) error) (*interview.Session, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := fn(sess); err != nil {
		return sess, err
	}

	sess.UpdatedAt = s.now()
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *interviewService) enqueueIfReady(sess *interview.Session) {
	if s.queue == nil || sess == nil {
		return
	}
	if sess.Stage == interview.StageScoring && !sess.ScoringStarted && sess.LastError == "" {
		s.queue.EnqueueJob(sess.ID)
	}
}

func (s *interviewService) Create(ctx context.Context) (*interview.Session, error) {
	sess := interview.NewSession(uuid.NewString())
	sess.UpdatedAt = s.now()
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	s.log.Info("🆕 Interview session created", zap.String("session_id", sess.ID))
	return sess, nil
}

// View returns the session with its countdown refreshed.
func (s *interviewService) View(ctx context.Context, id string) (*interview.Session, error) {
	sess, err := s.mutate(ctx, id, func(sess *interview.Session) error {
		if sess.Stage != interview.StageInProgress {
			return errSkip
		}
		sess.Tick(s.now())
		return nil
	})
	if errors.Is(err, errSkip) {
		return sess, nil
	}
	return sess, err
}

func (s *interviewService) Upload(ctx context.Context, id string, file *multipart.FileHeader) (*interview.Session, *models.Document, error) {
	if _, err := s.sessions.Get(ctx, id); err != nil {
		return nil, nil, err
	}

	filename, path, err := s.storage.SaveFile(file, id)
	if err != nil {
		return nil, nil, err
	}

	doc := &models.Document{
		ID:               uuid.NewString(),
		SessionID:        id,
		Filename:         filename,
		OriginalFileName: file.Filename,
		FilePath:         path,
	}

	sess, err := s.mutate(ctx, id, func(sess *interview.Session) error {
		if err := sess.BeginUpload(); err != nil {
			return err
		}
		sess.ResumeDocumentID = doc.ID
		return nil
	})
	if err != nil {
		_ = s.storage.DeleteFile(filename)
		return sess, nil, err
	}

	info, procErr := s.processResume(ctx, doc)
	if procErr != nil {
		s.log.Error("❌ Resume processing failed",
			zap.String("session_id", id),
			zap.String("document_id", doc.ID),
			zap.Error(procErr))

		sess, err := s.mutate(ctx, id, func(sess *interview.Session) error {
			if sess.ResumeDocumentID != doc.ID {
				return errSkip
			}
			return sess.FailUpload(ErrResumeProcessing)
		})
		if err != nil && !errors.Is(err, errSkip) {
			return nil, doc, err
		}
		return sess, doc, fmt.Errorf("%w: %v", ErrResumeProcessing, procErr)
	}

	sess, err = s.mutate(ctx, id, func(sess *interview.Session) error {
		if sess.ResumeDocumentID != doc.ID {
			return fmt.Errorf("%w: upload was superseded", interview.ErrInvalidTransition)
		}
		return sess.ApplyContactInfo(info)
	})
	if err != nil {
		return sess, doc, err
	}

	s.log.Info("✅ Resume processed",
		zap.String("session_id", id),
		zap.Strings("missing_fields", sess.MissingFields))

	return s.generateIfReady(ctx, sess), doc, nil
}

func (s *interviewService) processResume(ctx context.Context, doc *models.Document) (models.CandidateInfo, error) {
	if err := s.documents.Create(doc); err != nil {
		return models.CandidateInfo{}, err
	}

	text, err := s.parser.Parse(ctx, doc.FilePath, doc.OriginalFileName)
	if err != nil {
		return models.CandidateInfo{}, err
	}

	if err := s.documents.UpdateTextLength(doc.ID, len(text)); err != nil {
		s.log.Warn("⚠️ Failed to record resume text length", zap.Error(err))
	}

	info, err := s.gateway.ExtractContactInfo(ctx, text)
	if errors.Is(err, ErrUnstructuredReply) {
		// the candidate fills in whatever could not be read
		s.log.Warn("⚠️ Contact info reply was not JSON, asking candidate instead",
			zap.String("document_id", doc.ID))
		return models.CandidateInfo{}, nil
	}
	return info, err
}

// generateIfReady kicks off question generation after contact info settles.
// A generation failure is left on the session for the client to retry.
func (s *interviewService) generateIfReady(ctx context.Context, sess *interview.Session) *interview.Session {
	if sess.Stage != interview.StageGeneratingQuestions {
		return sess
	}
	next, err := s.GenerateQuestions(ctx, sess.ID)
	if err != nil {
		s.log.Warn("⚠️ Question generation did not complete",
			zap.String("session_id", sess.ID),
			zap.Error(err))
	}
	if next != nil {
		return next
	}
	return sess
}

func (s *interviewService) SubmitContact(ctx context.Context, id string, info models.CandidateInfo) (*interview.Session, error) {
	sess, err := s.mutate(ctx, id, func(sess *interview.Session) error {
		_, err := sess.SubmitMissingInfo(info)
		return err
	})
	if err != nil {
		return sess, err
	}
	return s.generateIfReady(ctx, sess), nil
}

// GenerateQuestions asks the model for the configured question plan. The
// model call runs without holding the session lock.
func (s *interviewService) GenerateQuestions(ctx context.Context, id string) (*interview.Session, error) {
	current, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Stage != interview.StageGeneratingQuestions {
		return current, fmt.Errorf("%w: stage is %s", interview.ErrInvalidTransition, current.Stage)
	}

	attempt := current.Attempt

	questions, genErr := s.gateway.GenerateQuestions(ctx, s.plan)
	if genErr != nil {
		s.log.Error("❌ Question generation failed", zap.String("session_id", id), zap.Error(genErr))
	}

	sess, err := s.mutate(ctx, id, func(sess *interview.Session) error {
		if genErr != nil {
			return sess.FailQuestions(attempt, ErrQuestionGeneration)
		}
		err := sess.ApplyQuestions(attempt, questions, s.now())
		if errors.Is(err, interview.ErrNoQuestions) {
			genErr = err
			return nil
		}
		return err
	})
	if err != nil {
		return sess, err
	}
	if genErr != nil {
		return sess, fmt.Errorf("%w: %v", ErrQuestionGeneration, genErr)
	}

	s.log.Info("🎯 Interview started",
		zap.String("session_id", id),
		zap.Int("questions", len(sess.Questions)))
	return sess, nil
}

func (s *interviewService) SubmitAnswer(ctx context.Context, id string, generation uint64, answer string) (*interview.Session, error) {
	sess, err := s.mutate(ctx, id, func(sess *interview.Session) error {
		_, err := sess.SubmitAnswer(generation, answer, s.now())
		return err
	})
	if err != nil {
		return sess, err
	}

	metrics.QuestionAdvances.WithLabelValues("submit").Inc()
	s.enqueueIfReady(sess)
	return sess, nil
}

// Continue resumes an interview after the client reloads.
func (s *interviewService) Continue(ctx context.Context, id string) (*interview.Session, error) {
	var advanced bool
	sess, err := s.mutate(ctx, id, func(sess *interview.Session) error {
		before := sess.Generation
		if _, err := sess.Resume(s.now()); err != nil {
			return err
		}
		advanced = sess.Generation != before
		return nil
	})
	if err != nil {
		return sess, err
	}

	if advanced {
		metrics.QuestionAdvances.WithLabelValues("resume").Inc()
	}
	s.enqueueIfReady(sess)
	return sess, nil
}

func (s *interviewService) Reset(ctx context.Context, id string) (*interview.Session, error) {
	sess, err := s.mutate(ctx, id, func(sess *interview.Session) error {
		sess.Reset()
		return nil
	})
	if err == nil {
		s.log.Info("🔄 Interview session reset", zap.String("session_id", id))
	}
	return sess, err
}

// Discard removes the session and the resume file it points at. A roster
// record for a finished interview is kept.
func (s *interviewService) Discard(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return err
	}

	if sess.ResumeDocumentID != "" {
		if doc, err := s.documents.FindByID(sess.ResumeDocumentID); err == nil {
			if err := s.storage.DeleteFile(doc.Filename); err != nil {
				s.log.Warn("⚠️ Failed to delete resume file",
					zap.String("session_id", id),
					zap.String("document_id", doc.ID),
					zap.Error(err))
			}
		}
	}

	if err := s.sessions.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("🗑️ Interview session discarded", zap.String("session_id", id))
	return nil
}

func (s *interviewService) RetryScoring(ctx context.Context, id string) (*interview.Session, error) {
	sess, err := s.mutate(ctx, id, func(sess *interview.Session) error {
		return sess.RetryScoring()
	})
	if err != nil {
		return sess, err
	}
	s.enqueueIfReady(sess)
	return sess, nil
}

// ScoreSession scores a finished interview and appends it to the roster.
// Only the call that sets the completion guard does any work.
func (s *interviewService) ScoreSession(ctx context.Context, id string) error {
	var (
		pairs   []models.QAPair
		attempt uint64
	)
	sess, err := s.mutate(ctx, id, func(sess *interview.Session) error {
		p, err := sess.BeginScoring()
		pairs, attempt = p, sess.Attempt
		return err
	})
	if errors.Is(err, interview.ErrScoringStarted) || errors.Is(err, interview.ErrInvalidTransition) {
		s.log.Debug("Scoring skipped", zap.String("session_id", id), zap.Error(err))
		return nil
	}
	if err != nil {
		return err
	}

	s.log.Info("🔄 Scoring interview", zap.String("session_id", id), zap.Int("answers", len(pairs)))

	record, scoreErr := s.buildRecord(ctx, sess, pairs)
	if scoreErr != nil {
		metrics.ScoringFailures.Inc()
		current, err := s.mutate(ctx, id, func(sess *interview.Session) error {
			return sess.FailScoring(attempt, ErrScoring)
		})
		if err != nil {
			s.log.Warn("⚠️ Scoring failure not recorded", zap.String("session_id", id), zap.Error(err))
			s.enqueueIfReady(current)
		}
		return fmt.Errorf("%w: %v", ErrScoring, scoreErr)
	}

	metrics.InterviewsCompleted.Inc()

	if current, err := s.mutate(ctx, id, func(sess *interview.Session) error {
		return sess.CompleteScoring(attempt, record.ID)
	}); err != nil {
		// reset while the model was scoring; the record stays in the roster
		// and whatever interview is current now gets scored on its own
		s.log.Warn("⚠️ Session changed during scoring",
			zap.String("session_id", id),
			zap.String("candidate_id", record.ID),
			zap.Error(err))
		s.enqueueIfReady(current)
		return nil
	}

	s.log.Info("✅ Interview completed",
		zap.String("session_id", id),
		zap.String("candidate_id", record.ID),
		zap.Float64("final_score", record.FinalScore))
	return nil
}

func (s *interviewService) buildRecord(ctx context.Context, sess *interview.Session, pairs []models.QAPair) (*models.CandidateRecord, error) {
	report, err := s.gateway.ScoreAnswers(ctx, pairs)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate candidate id: %w", err)
	}

	record := &models.CandidateRecord{
		ID:               id.String(),
		SessionID:        sess.ID,
		ResumeDocumentID: sess.ResumeDocumentID,
		Name:             models.Value(sess.CandidateInfo.Name),
		Email:            models.Value(sess.CandidateInfo.Email),
		Phone:            models.Value(sess.CandidateInfo.Phone),
		FinalScore:       report.Total(),
		FinalSummary:     report.Summary,
		Chat:             report.Results,
	}
	if err := s.candidates.Append(record); err != nil {
		return nil, err
	}

	if err := s.index.IndexCandidate(ctx, record); err != nil {
		s.log.Warn("⚠️ Failed to index candidate transcript",
			zap.String("candidate_id", record.ID),
			zap.Error(err))
	}
	return record, nil
}

// ExpireSession closes the current question once its deadline is past the
// grace period, and re-queues sessions waiting for scoring.
func (s *interviewService) ExpireSession(ctx context.Context, id string) (bool, error) {
	sess, err := s.mutate(ctx, id, func(sess *interview.Session) error {
		if sess.Stage != interview.StageInProgress {
			return errSkip
		}
		_, err := sess.Expire(s.now(), s.timerGrace)
		return err
	})
	switch {
	case err == nil:
		metrics.QuestionAdvances.WithLabelValues("timeout").Inc()
		s.log.Info("⏰ Question timed out",
			zap.String("session_id", id),
			zap.Int("next_index", sess.CurrentQuestionIndex))
		s.enqueueIfReady(sess)
		return true, nil
	case errors.Is(err, errSkip), errors.Is(err, interview.ErrNotExpired):
		s.enqueueIfReady(sess)
		return false, nil
	default:
		return false, err
	}
}

func (s *interviewService) ActiveSessions(ctx context.Context) ([]string, error) {
	return s.sessions.ListActive(ctx)
}

// RecoverInterrupted marks scoring that was in flight when the process
// stopped as failed, so the candidate can retry it.
func (s *interviewService) RecoverInterrupted(ctx context.Context) (int, error) {
	ids, err := s.sessions.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, id := range ids {
		_, err := s.mutate(ctx, id, func(sess *interview.Session) error {
			if sess.Stage != interview.StageScoring || !sess.ScoringStarted || sess.LastError != "" {
				return errSkip
			}
			return sess.FailScoring(sess.Attempt, ErrScoringInterrupted)
		})
		switch {
		case err == nil:
			recovered++
		case errors.Is(err, errSkip), errors.Is(err, repositories.ErrNotFound):
		default:
			return recovered, err
		}
	}
	return recovered, nil
}
