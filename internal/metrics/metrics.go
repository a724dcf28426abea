package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GatewayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interviewer_gateway_requests_total",
		Help: "LLM gateway calls by task and outcome.",
	}, []string{"task", "outcome"})

	GatewayAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interviewer_gateway_model_attempts_total",
		Help: "Model calls made, including retries.",
	})

	QuestionAdvances = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interviewer_question_advances_total",
		Help: "Questions closed, by trigger (submit, timeout, resume).",
	}, []string{"trigger"})

	InterviewsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interviewer_interviews_completed_total",
		Help: "Interviews scored and added to the roster.",
	})

	ScoringFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interviewer_scoring_failures_total",
		Help: "Scoring attempts that failed after all retries.",
	})
)
