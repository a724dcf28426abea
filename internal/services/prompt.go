package services

import (
	"fmt"
	"strings"

	"alfredoptarigan/ai-interviewer/internal/models"
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildContactInfoPrompt asks for the candidate's contact fields
func (pb *PromptBuilder) BuildContactInfoPrompt(resumeText string) string {
	return fmt.Sprintf(`Extract name, email, and phone number from the following resume and return in JSON with keys name, email, phone. If any is missing set it to null.

%s`, resumeText)
}

// BuildQuestionsPrompt asks for count questions per difficulty level
func (pb *PromptBuilder) BuildQuestionsPrompt(role string, difficulties []models.Difficulty, countPerLevel int) string {
	levels := make([]string, 0, len(difficulties))
	for _, d := range difficulties {
		levels = append(levels, string(d))
	}

	return fmt.Sprintf(`Generate interview questions for role: %s.
Difficulty levels: %s
Generate %d questions per difficulty level. Return as JSON array with text and difficulty.`,
		role, strings.Join(levels, ", "), countPerLevel)
}

// BuildScoringPrompt scores every pair in one batch and asks for a summary
func (pb *PromptBuilder) BuildScoringPrompt(pairs []models.QAPair) string {
	var sb strings.Builder
	sb.WriteString(`Score the following question-answer pairs on a scale of 0-10 and return JSON with two keys:
1. "results": array of objects {question, answer, score}
2. "summary": a short feedback/overall assessment based on all answers

Here are the question-answer pairs:

`)

	for _, qa := range pairs {
		fmt.Fprintf(&sb, "Question: %s\nAnswer: %s\n\n", qa.Question, qa.Answer)
	}

	return sb.String()
}

var fencePrefixes = []string{"```json", "```JSON", "```"}

// StripCodeFences removes a leading ``` or ```json marker and a trailing ```
// from a model reply.
func StripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	for _, p := range fencePrefixes {
		if strings.HasPrefix(text, p) {
			text = strings.TrimPrefix(text, p)
			break
		}
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// Helper to flatten a scored transcript for embedding
func FormatTranscript(record *models.CandidateRecord) string {
	var parts []string
	if s := strings.TrimSpace(record.FinalSummary); s != "" {
		parts = append(parts, "Summary: "+s)
	}
	for i, c := range record.Chat {
		parts = append(parts, fmt.Sprintf("Q%d: %s\nA%d: %s\nScore: %.1f",
			i+1, strings.TrimSpace(c.Question), i+1, strings.TrimSpace(c.Answer), c.Score))
	}
	return strings.Join(parts, "\n\n")
}
