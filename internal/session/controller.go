// Package session implements the state machine behind a single timed quiz attempt.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"ai-quiz-service/internal/domain"
)

// State is the lifecycle position of an attempt.
type State string

const (
	StateLoading    State = "loading"
	StateInProgress State = "in_progress"
	StateSubmitting State = "submitting"
	StateCompleted  State = "completed"
)

// DefaultSubmitTimeout bounds a single submission round trip.
const DefaultSubmitTimeout = 10 * time.Second

// Submitter scores a finished attempt (usually app.QuizService).
type Submitter interface {
	SubmitQuiz(ctx context.Context, sub domain.Submission) (domain.ScoredResult, error)
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, sub domain.Submission) (domain.ScoredResult, error)

func (f SubmitterFunc) SubmitQuiz(ctx context.Context, sub domain.Submission) (domain.ScoredResult, error) {
	return f(ctx, sub)
}

// TickOutcome reports what a timer tick did.
type TickOutcome int

const (
	// TickIgnored: not in progress, paused, or already at zero.
	TickIgnored TickOutcome = iota
	// TickCounted: one second was taken off the clock.
	TickCounted
	// TickExpired: the clock reached zero and the attempt moved to Submitting. Reported once.
	TickExpired
)

// Option configures a Controller.
type Option func(*Controller)

// WithClock injects the clock used for startedAt and elapsed time.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithSubmitTimeout overrides DefaultSubmitTimeout.
func WithSubmitTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.submitTimeout = d
		}
	}
}

// Controller drives one attempt: answers, navigation, flags, countdown and submission.
// Time only moves through Tick, so callers (a real ticker or a test) own the schedule.
type Controller struct {
	id            string
	submitter     Submitter
	now           func() time.Time
	submitTimeout time.Duration

	mu          sync.Mutex
	state       State
	quiz        domain.Quiz
	current     int
	answers     map[string]domain.OptionLabel
	flagged     map[int]struct{}
	remaining   int
	paused      bool
	startedAt   time.Time
	submittedAt time.Time
	inFlight    bool
	result      domain.ScoredResult
	lastErr     error
	done        chan struct{}
}

// NewController returns a controller in the Loading state.
func NewController(id string, submitter Submitter, opts ...Option) *Controller {
	c := &Controller{
		id:            id,
		submitter:     submitter,
		now:           time.Now,
		submitTimeout: DefaultSubmitTimeout,
		state:         StateLoading,
		answers:       make(map[string]domain.OptionLabel),
		flagged:       make(map[int]struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the session id.
func (c *Controller) ID() string { return c.id }

// Begin moves Loading -> InProgress once the quiz has been fetched.
func (c *Controller) Begin(quiz domain.Quiz) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateLoading {
		return fmt.Errorf("%w: begin from %s", domain.ErrInvalidTransition, c.state)
	}
	if len(quiz.Questions) == 0 {
		return fmt.Errorf("%w: quiz %s has no questions", domain.ErrInvalidInput, quiz.ID)
	}
	if quiz.DurationMinutes < 1 {
		return fmt.Errorf("%w: quiz %s duration %d", domain.ErrInvalidInput, quiz.ID, quiz.DurationMinutes)
	}

	c.quiz = quiz
	c.startedAt = c.now()
	c.remaining = quiz.DurationMinutes * 60
	c.state = StateInProgress
	return nil
}

// SelectAnswer records (or overwrites) the label chosen for a question. It does not advance.
func (c *Controller) SelectAnswer(questionID string, label domain.OptionLabel) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireInProgressLocked("select answer"); err != nil {
		return err
	}
	if !label.Valid() {
		return fmt.Errorf("%w: option label %q", domain.ErrInvalidInput, label)
	}
	if c.questionIndexLocked(questionID) < 0 {
		return fmt.Errorf("%w: question %q is not in quiz %s", domain.ErrInvalidInput, questionID, c.quiz.ID)
	}
	c.answers[questionID] = label
	return nil
}

// GoTo moves to any question; the current one need not be answered.
func (c *Controller) GoTo(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.goToLocked(index)
}

// Next moves forward one question.
func (c *Controller) Next() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.goToLocked(c.current + 1)
}

// Previous moves back one question.
func (c *Controller) Previous() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.goToLocked(c.current - 1)
}

// ToggleFlag flips the review flag on a question and reports the new value.
func (c *Controller) ToggleFlag(index int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireInProgressLocked("toggle flag"); err != nil {
		return false, err
	}
	if index < 0 || index >= len(c.quiz.Questions) {
		return false, fmt.Errorf("%w: question index %d out of range", domain.ErrInvalidInput, index)
	}
	if _, ok := c.flagged[index]; ok {
		delete(c.flagged, index)
		return false, nil
	}
	c.flagged[index] = struct{}{}
	return true, nil
}

// Pause stops the countdown; ticks are ignored until Resume.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireInProgressLocked("pause"); err != nil {
		return err
	}
	c.paused = true
	return nil
}

// Resume restarts the countdown.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireInProgressLocked("resume"); err != nil {
		return err
	}
	c.paused = false
	return nil
}

// Tick takes exactly one second off the clock. When the clock reaches zero the attempt moves
// to Submitting and TickExpired is returned; the caller then calls Submit.
func (c *Controller) Tick() TickOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateInProgress || c.paused || c.remaining <= 0 {
		return TickIgnored
	}
	c.remaining--
	if c.remaining == 0 {
		c.beginSubmitLocked()
		return TickExpired
	}
	return TickCounted
}

// Submit scores the attempt. Allowed at any time while in progress, even with unanswered
// questions. On failure the attempt stays in Submitting and Submit may be retried; once
// completed, Submit returns the stored result without scoring again.
func (c *Controller) Submit(ctx context.Context) (domain.ScoredResult, error) {
	c.mu.Lock()
	switch c.state {
	case StateCompleted:
		result := c.result
		c.mu.Unlock()
		return result, nil
	case StateInProgress:
		c.beginSubmitLocked()
	case StateSubmitting:
	default:
		state := c.state
		c.mu.Unlock()
		return domain.ScoredResult{}, fmt.Errorf("%w: submit from %s", domain.ErrInvalidTransition, state)
	}
	if c.inFlight {
		c.mu.Unlock()
		return domain.ScoredResult{}, fmt.Errorf("%w: submission already in flight", domain.ErrInvalidTransition)
	}
	c.inFlight = true
	sub := c.submissionLocked()
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.submitTimeout)
	defer cancel()
	result, err := c.submitter.SubmitQuiz(ctx, sub)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
			err = fmt.Errorf("%w: %w", domain.ErrTimeout, err)
		case !errors.Is(err, domain.ErrSubmission):
			err = fmt.Errorf("%w: %w", domain.ErrSubmission, err)
		}
		c.lastErr = err
		return domain.ScoredResult{}, err
	}

	c.lastErr = nil
	c.result = result
	c.state = StateCompleted
	close(c.done)
	return result, nil
}

// Done is closed when the attempt completes.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Result returns the scored result once completed.
func (c *Controller) Result() (domain.ScoredResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result, c.state == StateCompleted
}

// Snapshot is a read-only view for rendering.
type Snapshot struct {
	SessionID        string                        `json:"session_id"`
	QuizID           string                        `json:"quiz_id"`
	State            State                         `json:"state"`
	CurrentIndex     int                           `json:"current_index"`
	TotalQuestions   int                           `json:"total_questions"`
	RemainingSeconds int                           `json:"remaining_seconds"`
	Paused           bool                          `json:"paused"`
	Answers          map[string]domain.OptionLabel `json:"answers"`
	Answered         int                           `json:"answered"`
	Unanswered       int                           `json:"unanswered"`
	Flagged          []int                         `json:"flagged"`
	CanSubmit        bool                          `json:"can_submit"`
	Error            string                        `json:"error,omitempty"`
}

// Snapshot copies the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	answers := make(map[string]domain.OptionLabel, len(c.answers))
	for k, v := range c.answers {
		answers[k] = v
	}
	flagged := make([]int, 0, len(c.flagged))
	for idx := range c.flagged {
		flagged = append(flagged, idx)
	}
	sort.Ints(flagged)

	snap := Snapshot{
		SessionID:        c.id,
		QuizID:           c.quiz.ID,
		State:            c.state,
		CurrentIndex:     c.current,
		TotalQuestions:   len(c.quiz.Questions),
		RemainingSeconds: c.remaining,
		Paused:           c.paused,
		Answers:          answers,
		Answered:         len(answers),
		Unanswered:       len(c.quiz.Questions) - len(answers),
		Flagged:          flagged,
		CanSubmit:        c.state == StateInProgress || (c.state == StateSubmitting && !c.inFlight),
	}
	if c.lastErr != nil {
		snap.Error = c.lastErr.Error()
	}
	return snap
}

func (c *Controller) requireInProgressLocked(op string) error {
	if c.state != StateInProgress {
		return fmt.Errorf("%w: %s while %s", domain.ErrInvalidTransition, op, c.state)
	}
	return nil
}

func (c *Controller) goToLocked(index int) error {
	if err := c.requireInProgressLocked("navigate"); err != nil {
		return err
	}
	if index < 0 || index >= len(c.quiz.Questions) {
		return fmt.Errorf("%w: question index %d out of range", domain.ErrInvalidInput, index)
	}
	c.current = index
	return nil
}

func (c *Controller) questionIndexLocked(questionID string) int {
	for i, q := range c.quiz.Questions {
		if q.ID == questionID {
			return i
		}
	}
	return -1
}

func (c *Controller) beginSubmitLocked() {
	c.state = StateSubmitting
	c.submittedAt = c.now()
}

// submissionLocked measures elapsed time on the clock from startedAt to submittedAt.
func (c *Controller) submissionLocked() domain.Submission {
	answers := make(map[string]domain.OptionLabel, len(c.answers))
	for k, v := range c.answers {
		answers[k] = v
	}
	elapsed := int(c.submittedAt.Sub(c.startedAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	return domain.Submission{
		QuizID:           c.quiz.ID,
		Answers:          answers,
		TimeTakenSeconds: elapsed,
		TenantID:         c.quiz.TenantID,
	}
}
