package models

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// DefaultDifficulties is the question plan used when none is configured.
var DefaultDifficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

type Question struct {
	Text       string     `json:"text"`
	Difficulty Difficulty `json:"difficulty"`
}

// QuestionPlan describes what to ask the model for when generating questions.
type QuestionPlan struct {
	Role          string       `json:"role" yaml:"role"`
	Difficulties  []Difficulty `json:"difficulty" yaml:"difficulties"`
	CountPerLevel int          `json:"count_per_level" yaml:"count_per_level"`
}

// Total is the number of questions the plan should produce.
func (p QuestionPlan) Total() int {
	return p.CountPerLevel * len(p.Difficulties)
}
