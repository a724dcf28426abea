package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/ai-interviewer/internal/models"
	"alfredoptarigan/ai-interviewer/internal/repositories"
	"alfredoptarigan/ai-interviewer/internal/services"
)

type CandidateHandler struct {
	candidateRepo repositories.CandidateRepository
	index         services.CandidateIndex
	log           *zap.Logger
}

func NewCandidateHandler(candidateRepo repositories.CandidateRepository, index services.CandidateIndex, log *zap.Logger) *CandidateHandler {
	return &CandidateHandler{
		candidateRepo: candidateRepo,
		index:         index,
		log:           log,
	}
}

// HandleList handles GET /candidates?search=
func (h *CandidateHandler) HandleList(c *fiber.Ctx) error {
	records, err := h.candidateRepo.List(c.Query("search"))
	if err != nil {
		h.log.Error("❌ Failed to list candidates", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Something went wrong",
		})
	}

	return c.JSON(models.CandidateListResponse{
		Candidates: records,
		Total:      len(records),
	})
}

// HandleGet handles GET /candidates/:id
func (h *CandidateHandler) HandleGet(c *fiber.Ctx) error {
	record, err := h.candidateRepo.FindByID(c.Params("id"))
	if err != nil {
		return h.notFoundOr500(c, err)
	}
	return c.JSON(record)
}

// HandleDelete handles DELETE /candidates/:id. Unknown ids are ignored.
func (h *CandidateHandler) HandleDelete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.candidateRepo.Delete(id); err != nil {
		h.log.Error("❌ Failed to delete candidate", zap.String("candidate_id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Something went wrong",
		})
	}

	if err := h.index.RemoveCandidate(c.UserContext(), id); err != nil {
		h.log.Warn("⚠️ Failed to remove candidate vectors", zap.String("candidate_id", id), zap.Error(err))
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// HandleSimilar handles GET /candidates/:id/similar?limit=
func (h *CandidateHandler) HandleSimilar(c *fiber.Ctx) error {
	record, err := h.candidateRepo.FindByID(c.Params("id"))
	if err != nil {
		return h.notFoundOr500(c, err)
	}

	similar, err := h.index.SimilarCandidates(c.UserContext(), record, c.QueryInt("limit", 5))
	if err != nil {
		if errors.Is(err, services.ErrSimilarityDisabled) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		h.log.Error("❌ Similar candidate search failed", zap.String("candidate_id", record.ID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Something went wrong",
		})
	}

	return c.JSON(fiber.Map{
		"candidate_id": record.ID,
		"similar":      similar,
	})
}

func (h *CandidateHandler) notFoundOr500(c *fiber.Ctx, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Candidate not found",
		})
	}
	h.log.Error("❌ Failed to load candidate", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Something went wrong",
	})
}
