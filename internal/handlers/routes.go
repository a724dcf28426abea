package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Gateway   *GatewayHandler
	Session   *SessionHandler
	Candidate *CandidateHandler
}

func RegisterRoutes(app *fiber.App, h Handlers) {
	api := app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	api.Post("/llm", h.Gateway.HandleTask)
	// path used by the original browser client
	app.Post("/api/gemini", h.Gateway.HandleTask)

	sessions := api.Group("/sessions")
	sessions.Post("/", h.Session.HandleCreate)
	sessions.Get("/:id", h.Session.HandleGet)
	sessions.Delete("/:id", h.Session.HandleDiscard)
	sessions.Post("/:id/resume", h.Session.HandleUpload)
	sessions.Post("/:id/contact", h.Session.HandleContact)
	sessions.Post("/:id/questions", h.Session.HandleQuestions)
	sessions.Post("/:id/answers", h.Session.HandleAnswer)
	sessions.Post("/:id/continue", h.Session.HandleContinue)
	sessions.Post("/:id/reset", h.Session.HandleReset)
	sessions.Post("/:id/scoring/retry", h.Session.HandleRetryScoring)

	candidates := api.Group("/candidates")
	candidates.Get("/", h.Candidate.HandleList)
	candidates.Get("/:id", h.Candidate.HandleGet)
	candidates.Delete("/:id", h.Candidate.HandleDelete)
	candidates.Get("/:id/similar", h.Candidate.HandleSimilar)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "AI Interviewer API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/llm",
				"POST /api/v1/sessions",
				"GET /api/v1/sessions/:id",
				"DELETE /api/v1/sessions/:id",
				"POST /api/v1/sessions/:id/resume",
				"POST /api/v1/sessions/:id/contact",
				"POST /api/v1/sessions/:id/questions",
				"POST /api/v1/sessions/:id/answers",
				"POST /api/v1/sessions/:id/continue",
				"POST /api/v1/sessions/:id/reset",
				"POST /api/v1/sessions/:id/scoring/retry",
				"GET /api/v1/candidates",
				"GET /api/v1/candidates/:id",
				"DELETE /api/v1/candidates/:id",
				"GET /api/v1/candidates/:id/similar",
			},
		})
	})
}
