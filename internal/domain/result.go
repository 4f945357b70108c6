package domain

import "time"

// Grade is the letter derived from a percentage.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// Submission is what a taker hands in: selected labels keyed by question id.
type Submission struct {
	QuizID           string                 `json:"quiz_id"`
	Answers          map[string]OptionLabel `json:"answers"`
	TimeTakenSeconds int                    `json:"time_taken_seconds"`
	TenantID         string                 `json:"tenant_id"`
}

// QuestionResult is the per-question breakdown of a scored submission.
type QuestionResult struct {
	QuestionID        string      `json:"question_id"`
	QuestionText      string      `json:"question_text"`
	UserAnswer        OptionLabel `json:"user_answer"`
	UserAnswerText    string      `json:"user_answer_text,omitempty"`
	CorrectAnswer     OptionLabel `json:"correct_answer"`
	CorrectAnswerText string      `json:"correct_answer_text"`
	IsCorrect         bool        `json:"is_correct"`
	Explanation       string      `json:"explanation,omitempty"`
}

// ScoredResult summarizes a completed attempt.
type ScoredResult struct {
	ID               string           `json:"id,omitempty"`
	QuizID           string           `json:"quiz_id"`
	TenantID         string           `json:"tenant_id,omitempty"`
	Score            int              `json:"score"`
	TotalQuestions   int              `json:"total_questions"`
	Percentage       int              `json:"percentage"`
	Grade            Grade            `json:"grade"`
	TimeTakenSeconds int              `json:"time_taken"`
	CompletedAt      time.Time        `json:"completed_at,omitempty"`
	PerQuestion      []QuestionResult `json:"results"`
}

// Attempt is a persisted result together with the quiz facts analytics groups by.
type Attempt struct {
	ScoredResult
	Topic      string     `json:"topic"`
	Difficulty Difficulty `json:"difficulty"`
}
