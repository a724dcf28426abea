package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/ai-interviewer/internal/interview"
	"alfredoptarigan/ai-interviewer/internal/models"
	"alfredoptarigan/ai-interviewer/internal/repositories"
	"alfredoptarigan/ai-interviewer/internal/services"
)

type SessionHandler struct {
	interviews services.InterviewService
	docRepo    repositories.DocumentRepository
	now        func() time.Time
	log        *zap.Logger
}

func NewSessionHandler(
	interviews services.InterviewService,
	docRepo repositories.DocumentRepository,
	log *zap.Logger,
) *SessionHandler {
	return &SessionHandler{
		interviews: interviews,
		docRepo:    docRepo,
		now:        time.Now,
		log:        log,
	}
}

func (h *SessionHandler) toResponse(sess *interview.Session, doc *models.Document) models.SessionResponse {
	now := h.now()
	resp := models.SessionResponse{
		ID:                   sess.ID,
		Stage:                string(sess.Stage),
		CandidateInfo:        sess.CandidateInfo,
		MissingFields:        sess.MissingFields,
		CurrentQuestionIndex: sess.CurrentQuestionIndex,
		TotalQuestions:       len(sess.Questions),
		Generation:           sess.Generation,
		Deadline:             sess.Deadline,
		Timer:                sess.Timer,
		InProgress:           sess.InProgress,
		WelcomeBack:          sess.NeedsWelcomeBack(),
		CandidateID:          sess.CandidateID,
	}
	if resp.MissingFields == nil {
		resp.MissingFields = []string{}
	}

	if q, ok := sess.CurrentQuestion(); ok {
		resp.CurrentQuestion = &q
		resp.Duration = int(interview.DurationFor(q.Difficulty) / time.Second)
		if sess.Deadline != nil {
			resp.Timer = sess.Remaining(now)
		}
	}

	if doc == nil && sess.ResumeDocumentID != "" && h.docRepo != nil {
		if found, err := h.docRepo.FindByID(sess.ResumeDocumentID); err == nil {
			doc = found
		}
	}
	if doc != nil {
		resp.Upload = &models.UploadResponse{
			ID:           doc.ID,
			Filename:     doc.Filename,
			OriginalName: doc.OriginalFileName,
		}
	}

	if sess.LastError != "" {
		msg := sess.LastError
		resp.Error = &msg
	}
	return resp
}

// respond maps service errors to status codes. When the session is known
// it is returned alongside the error so the client can re-render.
func (h *SessionHandler) respond(c *fiber.Ctx, sess *interview.Session, doc *models.Document, err error) error {
	if err == nil {
		return c.JSON(h.toResponse(sess, doc))
	}

	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Session not found",
		})
	case errors.Is(err, services.ErrInvalidExtension), errors.Is(err, services.ErrFileTooLarge):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	status, reason := classify(err)
	if status == fiber.StatusInternalServerError {
		h.log.Error("❌ Session request failed", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(status).JSON(fiber.Map{
			"error": "Something went wrong",
		})
	}
	h.log.Warn("⚠️ Session request rejected",
		zap.String("path", c.Path()),
		zap.Int("status", status),
		zap.Error(err))

	// only the sentinel text goes back; wrapped causes may carry upstream detail
	msg := reason.Error()
	if sess == nil {
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}
	resp := h.toResponse(sess, doc)
	resp.Error = &msg
	return c.Status(status).JSON(resp)
}

var sessionErrors = []struct {
	err    error
	status int
}{
	{interview.ErrStaleGeneration, fiber.StatusConflict},
	{interview.ErrStaleAttempt, fiber.StatusConflict},
	{interview.ErrScoringStarted, fiber.StatusConflict},
	{interview.ErrInvalidTransition, fiber.StatusConflict},
	{services.ErrResumeProcessing, fiber.StatusBadGateway},
	{services.ErrQuestionGeneration, fiber.StatusBadGateway},
}

func classify(err error) (int, error) {
	for _, e := range sessionErrors {
		if errors.Is(err, e.err) {
			return e.status, e.err
		}
	}
	return fiber.StatusInternalServerError, err
}

// HandleCreate handles POST /sessions
func (h *SessionHandler) HandleCreate(c *fiber.Ctx) error {
	sess, err := h.interviews.Create(c.UserContext())
	if err != nil {
		return h.respond(c, nil, nil, err)
	}
	return c.Status(fiber.StatusCreated).JSON(models.CreateSessionResponse{
		ID:    sess.ID,
		Stage: string(sess.Stage),
	})
}

// HandleGet handles GET /sessions/:id
func (h *SessionHandler) HandleGet(c *fiber.Ctx) error {
	sess, err := h.interviews.View(c.UserContext(), c.Params("id"))
	return h.respond(c, sess, nil, err)
}

// HandleUpload handles POST /sessions/:id/resume with multipart field "file".
func (h *SessionHandler) HandleUpload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "A resume must be uploaded in the 'file' field",
		})
	}

	sess, doc, err := h.interviews.Upload(c.UserContext(), c.Params("id"), file)
	return h.respond(c, sess, doc, err)
}

// HandleContact handles POST /sessions/:id/contact
func (h *SessionHandler) HandleContact(c *fiber.Ctx) error {
	var req models.ContactInfoRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	sess, err := h.interviews.SubmitContact(c.UserContext(), c.Params("id"), models.CandidateInfo{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	return h.respond(c, sess, nil, err)
}

// HandleQuestions handles POST /sessions/:id/questions
func (h *SessionHandler) HandleQuestions(c *fiber.Ctx) error {
	sess, err := h.interviews.GenerateQuestions(c.UserContext(), c.Params("id"))
	return h.respond(c, sess, nil, err)
}

// HandleAnswer handles POST /sessions/:id/answers
func (h *SessionHandler) HandleAnswer(c *fiber.Ctx) error {
	var req models.AnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	sess, err := h.interviews.SubmitAnswer(c.UserContext(), c.Params("id"), req.Generation, req.Answer)
	return h.respond(c, sess, nil, err)
}

// HandleContinue handles POST /sessions/:id/continue
func (h *SessionHandler) HandleContinue(c *fiber.Ctx) error {
	sess, err := h.interviews.Continue(c.UserContext(), c.Params("id"))
	return h.respond(c, sess, nil, err)
}

// HandleReset handles POST /sessions/:id/reset
func (h *SessionHandler) HandleReset(c *fiber.Ctx) error {
	sess, err := h.interviews.Reset(c.UserContext(), c.Params("id"))
	return h.respond(c, sess, nil, err)
}

// HandleDiscard handles DELETE /sessions/:id
func (h *SessionHandler) HandleDiscard(c *fiber.Ctx) error {
	if err := h.interviews.Discard(c.UserContext(), c.Params("id")); err != nil {
		return h.respond(c, nil, nil, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleRetryScoring handles POST /sessions/:id/scoring/retry
func (h *SessionHandler) HandleRetryScoring(c *fiber.Ctx) error {
	sess, err := h.interviews.RetryScoring(c.UserContext(), c.Params("id"))
	if err == nil {
		return c.Status(fiber.StatusAccepted).JSON(h.toResponse(sess, nil))
	}
	return h.respond(c, sess, nil, err)
}
