package session

import (
	"context"
	"time"

	"ai-quiz-service/internal/domain"
)

// Ticker is the scheduler behind Run. Stop must release it.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct {
	t *time.Ticker
}

// NewTicker wraps time.NewTicker.
func NewTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// EventType labels what Run is reporting.
type EventType string

const (
	EventTick   EventType = "tick"
	EventResult EventType = "result"
	EventError  EventType = "error"
)

// Event is emitted by Run after each counted tick and on forced submission.
type Event struct {
	Type     EventType
	Snapshot Snapshot
	Result   *domain.ScoredResult
	Err      error
}

// Run drives the controller's countdown until the attempt completes or ctx is cancelled.
// The ticker is always stopped on return. When a tick expires the clock, Run submits.
func Run(ctx context.Context, c *Controller, ticker Ticker, notify func(Event)) error {
	defer ticker.Stop()
	if notify == nil {
		notify = func(Event) {}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.Done():
			return nil
		case <-ticker.C():
			switch c.Tick() {
			case TickIgnored:
				continue
			case TickCounted:
				notify(Event{Type: EventTick, Snapshot: c.Snapshot()})
				continue
			case TickExpired:
				notify(Event{Type: EventTick, Snapshot: c.Snapshot()})
			}

			result, err := c.Submit(ctx)
			if err != nil {
				notify(Event{Type: EventError, Snapshot: c.Snapshot(), Err: err})
				continue
			}
			notify(Event{Type: EventResult, Snapshot: c.Snapshot(), Result: &result})
			return nil
		}
	}
}
