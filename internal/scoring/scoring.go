// Package scoring turns a submission into a ScoredResult.
package scoring

import (
	"fmt"
	"math"

	"ai-quiz-service/internal/domain"
)

// GradeFor maps a percentage onto the fixed letter thresholds (inclusive lower bounds).
func GradeFor(percentage int) domain.Grade {
	switch {
	case percentage >= 90:
		return domain.GradeA
	case percentage >= 80:
		return domain.GradeB
	case percentage >= 70:
		return domain.GradeC
	case percentage >= 60:
		return domain.GradeD
	default:
		return domain.GradeF
	}
}

// Percentage returns round(100*score/total). A zero total is ErrInvalidInput.
func Percentage(score, total int) (int, error) {
	if total <= 0 {
		return 0, fmt.Errorf("%w: percentage of %d questions", domain.ErrInvalidInput, total)
	}
	return int(math.Round(100 * float64(score) / float64(total))), nil
}

// Score compares each submitted label with the question's correct label.
// Unanswered questions, and answers with an unknown label, count as incorrect.
func Score(quiz domain.Quiz, answers map[string]domain.OptionLabel, elapsedSeconds int) (domain.ScoredResult, error) {
	total := len(quiz.Questions)
	if total == 0 {
		return domain.ScoredResult{}, fmt.Errorf("%w: quiz %s has no questions", domain.ErrInvalidInput, quiz.ID)
	}
	if elapsedSeconds < 0 {
		elapsedSeconds = 0
	}

	perQuestion := make([]domain.QuestionResult, 0, total)
	score := 0
	for _, question := range quiz.Questions {
		answer := answers[question.ID]
		correct := answer.Valid() && answer == question.CorrectOption
		if correct {
			score++
		}
		perQuestion = append(perQuestion, domain.QuestionResult{
			QuestionID:        question.ID,
			QuestionText:      question.Text,
			UserAnswer:        answer,
			UserAnswerText:    question.OptionText(answer),
			CorrectAnswer:     question.CorrectOption,
			CorrectAnswerText: question.OptionText(question.CorrectOption),
			IsCorrect:         correct,
			Explanation:       question.Explanation,
		})
	}

	percentage, err := Percentage(score, total)
	if err != nil {
		return domain.ScoredResult{}, err
	}
	return domain.ScoredResult{
		QuizID:           quiz.ID,
		TenantID:         quiz.TenantID,
		Score:            score,
		TotalQuestions:   total,
		Percentage:       percentage,
		Grade:            GradeFor(percentage),
		TimeTakenSeconds: elapsedSeconds,
		PerQuestion:      perQuestion,
	}, nil
}
