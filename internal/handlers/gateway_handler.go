package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/ai-interviewer/internal/models"
	"alfredoptarigan/ai-interviewer/internal/services"
)

type GatewayHandler struct {
	gateway services.GatewayService
	log     *zap.Logger
}

func NewGatewayHandler(gateway services.GatewayService, log *zap.Logger) *GatewayHandler {
	return &GatewayHandler{
		gateway: gateway,
		log:     log,
	}
}

// HandleTask handles POST /llm. Replies are the parsed model JSON, or
// {"raw": ...} / {"text": ...} when the model did not return JSON.
func (h *GatewayHandler) HandleTask(c *fiber.Ctx) error {
	var req models.GatewayRequest
	if err := c.BodyParser(&req); err != nil {
		h.log.Error("❌ Unreadable gateway request", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Something went wrong",
		})
	}

	result, err := h.gateway.Execute(c.UserContext(), req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownTask):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unknown task",
			})
		case errors.Is(err, services.ErrInvalidPayload):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		default:
			h.log.Error("❌ Gateway task failed", zap.String("task", req.Task), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Something went wrong",
			})
		}
	}

	switch result.Kind {
	case services.ResultJSON:
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(result.JSON)
	case services.ResultText:
		return c.JSON(fiber.Map{"text": result.Text})
	default:
		return c.JSON(fiber.Map{"raw": result.Text})
	}
}
