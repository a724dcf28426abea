package models

// Gateway task names.
const (
	TaskExtractContactInfo = "extract_contact_info"
	TaskGenerateQuestions  = "generate_interview_questions"
	TaskScoreAnswer        = "score_answer"
)

// GatewayRequest is the body accepted by the LLM gateway endpoint. Which
// fields are read depends on Task.
type GatewayRequest struct {
	Task          string       `json:"task"`
	Text          string       `json:"text,omitempty"`
	Role          string       `json:"role,omitempty"`
	Difficulty    []Difficulty `json:"difficulty,omitempty"`
	CountPerLevel int          `json:"count_per_level,omitempty"`
	Answers       []QAPair     `json:"answers,omitempty"`
}
