package models

import "time"

type UploadResponse struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
}

type CreateSessionResponse struct {
	ID    string `json:"id"`
	Stage string `json:"stage"`
}

type ContactInfoRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

type AnswerRequest struct {
	Generation uint64 `json:"generation"`
	Answer     string `json:"answer"`
}

// SessionResponse is what the interviewee screen renders.
type SessionResponse struct {
	ID                   string          `json:"id"`
	Stage                string          `json:"stage"`
	CandidateInfo        CandidateInfo   `json:"candidate_info"`
	MissingFields        []string        `json:"missing_fields"`
	CurrentQuestionIndex int             `json:"current_question_index"`
	TotalQuestions       int             `json:"total_questions"`
	CurrentQuestion      *Question       `json:"current_question,omitempty"`
	Generation           uint64          `json:"generation"`
	Deadline             *time.Time      `json:"deadline,omitempty"`
	Timer                int             `json:"timer"`
	Duration             int             `json:"duration"`
	InProgress           bool            `json:"in_progress"`
	WelcomeBack          bool            `json:"welcome_back"`
	CandidateID          string          `json:"candidate_id,omitempty"`
	Upload               *UploadResponse `json:"upload,omitempty"`
	Error                *string         `json:"error,omitempty"`
}

type CandidateListResponse struct {
	Candidates []CandidateRecord `json:"candidates"`
	Total      int               `json:"total"`
}

type SimilarCandidate struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	FinalScore float64 `json:"final_score"`
	Similarity float32 `json:"similarity"`
}
