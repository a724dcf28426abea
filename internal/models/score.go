package models

// QAPair is one question with the answer the candidate gave.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type ScoreResult struct {
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Score    float64 `json:"score"`
}

// ScoreReport is the batch scoring reply for a whole interview.
type ScoreReport struct {
	Results []ScoreResult `json:"results"`
	Summary string        `json:"summary"`
}

// Total sums the per-answer scores.
func (r ScoreReport) Total() float64 {
	var total float64
	for _, res := range r.Results {
		total += res.Score
	}
	return total
}
