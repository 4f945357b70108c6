package domain

import (
	"fmt"
	"strings"
	"time"
)

// Difficulty is the requested hardness of a generated quiz.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty normalizes raw input; unknown values are ErrInvalidInput.
func ParseDifficulty(raw string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(raw))); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	default:
		return "", fmt.Errorf("%w: unknown difficulty %q", ErrInvalidInput, raw)
	}
}

// OptionLabel identifies one of the four choices of a question.
type OptionLabel string

const (
	LabelA OptionLabel = "A"
	LabelB OptionLabel = "B"
	LabelC OptionLabel = "C"
	LabelD OptionLabel = "D"
)

// OptionsPerQuestion is fixed: every question carries choices A through D.
const OptionsPerQuestion = 4

// Labels lists the option labels in display order.
var Labels = [OptionsPerQuestion]OptionLabel{LabelA, LabelB, LabelC, LabelD}

// ParseLabel accepts "a", " B " etc. and returns the canonical label.
func ParseLabel(raw string) (OptionLabel, error) {
	label := OptionLabel(strings.ToUpper(strings.TrimSpace(raw)))
	if !label.Valid() {
		return "", fmt.Errorf("%w: option label %q", ErrInvalidInput, raw)
	}
	return label, nil
}

func (l OptionLabel) Valid() bool {
	return l.Index() >= 0
}

// Index returns the position of the label (A=0) or -1.
func (l OptionLabel) Index() int {
	for i, candidate := range Labels {
		if candidate == l {
			return i
		}
	}
	return -1
}

// Option is a labelled choice.
type Option struct {
	Label OptionLabel `json:"label"`
	Text  string      `json:"text"`
}

// Question models an MCQ question; the correct answer is stored as a label, not a copy of the text.
type Question struct {
	ID            string      `json:"id"`
	Text          string      `json:"text"`
	Options       []Option    `json:"options"`
	CorrectOption OptionLabel `json:"correct_option,omitempty"`
	Explanation   string      `json:"explanation,omitempty"`
}

// OptionText returns the text behind a label, or "" if the label is not present.
func (q Question) OptionText(label OptionLabel) string {
	for _, opt := range q.Options {
		if opt.Label == label {
			return opt.Text
		}
	}
	return ""
}

// Validate checks the four-distinct-options invariant.
func (q Question) Validate() error {
	if strings.TrimSpace(q.ID) == "" {
		return fmt.Errorf("%w: question id is empty", ErrInvalidInput)
	}
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: question %s has no text", ErrInvalidInput, q.ID)
	}
	if len(q.Options) != OptionsPerQuestion {
		return fmt.Errorf("%w: question %s has %d options, want %d", ErrInvalidInput, q.ID, len(q.Options), OptionsPerQuestion)
	}
	seen := make(map[string]struct{}, len(q.Options))
	for i, opt := range q.Options {
		if opt.Label != Labels[i] {
			return fmt.Errorf("%w: question %s option %d labelled %q", ErrInvalidInput, q.ID, i, opt.Label)
		}
		text := strings.TrimSpace(opt.Text)
		if text == "" {
			return fmt.Errorf("%w: question %s option %s is empty", ErrInvalidInput, q.ID, opt.Label)
		}
		if _, dup := seen[text]; dup {
			return fmt.Errorf("%w: question %s repeats option %q", ErrInvalidInput, q.ID, text)
		}
		seen[text] = struct{}{}
	}
	if !q.CorrectOption.Valid() {
		return fmt.Errorf("%w: question %s correct option %q", ErrInvalidInput, q.ID, q.CorrectOption)
	}
	return nil
}

// Quiz is an immutable, generated collection of questions.
type Quiz struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Topic           string     `json:"topic"`
	Difficulty      Difficulty `json:"difficulty"`
	DurationMinutes int        `json:"duration"`
	TenantID        string     `json:"tenant_id"`
	Questions       []Question `json:"questions"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Validate checks the quiz-level invariants and every question.
func (q Quiz) Validate() error {
	if len(q.Questions) == 0 {
		return fmt.Errorf("%w: quiz %s has no questions", ErrInvalidInput, q.ID)
	}
	if q.DurationMinutes < 1 {
		return fmt.Errorf("%w: quiz %s duration %d", ErrInvalidInput, q.ID, q.DurationMinutes)
	}
	if _, err := ParseDifficulty(string(q.Difficulty)); err != nil {
		return err
	}
	ids := make(map[string]struct{}, len(q.Questions))
	for _, question := range q.Questions {
		if err := question.Validate(); err != nil {
			return err
		}
		if _, dup := ids[question.ID]; dup {
			return fmt.Errorf("%w: quiz %s repeats question id %s", ErrInvalidInput, q.ID, question.ID)
		}
		ids[question.ID] = struct{}{}
	}
	return nil
}

// Clone returns a deep copy so stored quizzes cannot be mutated through shared slices.
func (q Quiz) Clone() Quiz {
	out := q
	out.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		question.Options = append([]Option(nil), question.Options...)
		out.Questions[i] = question
	}
	return out
}

// Public strips answers and explanations for quiz takers.
func (q Quiz) Public() Quiz {
	out := q.Clone()
	for i := range out.Questions {
		out.Questions[i].CorrectOption = ""
		out.Questions[i].Explanation = ""
	}
	return out
}
