package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"alfredoptarigan/ai-interviewer/internal/models"
)

// LoadQuestionPlan reads a YAML question plan. Fields left out of the file
// keep the values from fallback.
//
//	role: Backend Engineer
//	difficulties: [easy, hard]
//	count_per_level: 3
func LoadQuestionPlan(path string, fallback models.QuestionPlan) (models.QuestionPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fallback, fmt.Errorf("failed to read question plan: %w", err)
	}

	var plan models.QuestionPlan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return fallback, fmt.Errorf("failed to parse question plan %s: %w", path, err)
	}

	if plan.Role == "" {
		plan.Role = fallback.Role
	}
	if len(plan.Difficulties) == 0 {
		plan.Difficulties = fallback.Difficulties
	}
	if plan.CountPerLevel <= 0 {
		plan.CountPerLevel = fallback.CountPerLevel
	}

	return plan, nil
}
