package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"ai-quiz-service/internal/app"
	"ai-quiz-service/internal/domain"
	"ai-quiz-service/internal/session"
	"github.com/gorilla/websocket"
)

// WSHandler runs one timed quiz session per websocket connection.
type WSHandler struct {
	service       *app.QuizService
	sessions      app.SessionRegistry
	upgrader      websocket.Upgrader
	newTicker     func() session.Ticker
	submitTimeout time.Duration
}

// WSOption configures a WSHandler.
type WSOption func(*WSHandler)

// WithTicker replaces the one-second ticker (tests drive time through it).
func WithTicker(newTicker func() session.Ticker) WSOption {
	return func(h *WSHandler) { h.newTicker = newTicker }
}

// WithSubmitTimeout bounds each session submission.
func WithSubmitTimeout(d time.Duration) WSOption {
	return func(h *WSHandler) { h.submitTimeout = d }
}

func NewWSHandler(service *app.QuizService, sessions app.SessionRegistry, opts ...WSOption) *WSHandler {
	h := &WSHandler{
		service:  service,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		newTicker:     func() session.Ticker { return session.NewTicker(time.Second) },
		submitTimeout: session.DefaultSubmitTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// sessionToucher is implemented by registries that publish liveness (Redis).
type sessionToucher interface {
	Touch(ctx context.Context, c *session.Controller) error
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	Option     string `json:"option"`
}

type indexPayload struct {
	Index int `json:"index"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type statePayload struct {
	Session session.Snapshot `json:"session"`
	Quiz    *domain.Quiz     `json:"quiz,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request, starts a session for ?quizId= and streams its state.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	if quizID == "" {
		http.Error(w, "missing quizId", http.StatusBadRequest)
		return
	}
	tenantID := PrincipalFrom(r.Context()).TenantID

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	controller, quiz, err := h.service.StartSession(ctx, quizID, tenantID, session.WithSubmitTimeout(h.submitTimeout))
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	if err := h.sessions.Register(ctx, controller); err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer h.sessions.Remove(context.Background(), controller.ID())
	slog.Debug("ws session started", "session_id", controller.ID(), "quiz_id", quizID, "tenant_id", tenantID)

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	runDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				slog.Debug("ws write error", "session_id", controller.ID(), "error", err)
				// unblock the reader so the handler can unwind
				_ = conn.Close()
				for range send {
				}
				return
			}
		}
	}()

	emit := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-closeSignals:
		}
	}
	emitState := func() {
		emit(outboundMessage[any]{Type: "state", Payload: statePayload{Session: controller.Snapshot()}})
	}
	emitError := func(err error) {
		emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
	}
	emitResult := func(result domain.ScoredResult) {
		emit(outboundMessage[any]{Type: "result", Payload: result})
	}

	public := quiz.Public()
	emit(outboundMessage[any]{Type: "state", Payload: statePayload{Session: controller.Snapshot(), Quiz: &public}})

	go func() {
		defer close(runDone)
		_ = session.Run(ctx, controller, h.newTicker(), func(ev session.Event) {
			switch ev.Type {
			case session.EventTick:
				if toucher, ok := h.sessions.(sessionToucher); ok {
					_ = toucher.Touch(ctx, controller)
				}
				emit(outboundMessage[any]{Type: "tick", Payload: ev.Snapshot})
			case session.EventResult:
				emitResult(*ev.Result)
			case session.EventError:
				emitError(ev.Err)
			}
		})
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.apply(ctx, controller, inbound, emitResult); err != nil {
			emitError(err)
			continue
		}
		if inbound.Type != "submit" {
			emitState()
		}
	}
	slog.Debug("ws session closed", "session_id", controller.ID(), "state", controller.State())

	cancel()
	close(closeSignals)
	<-runDone
	close(send)
	<-writerDone
}

func (h *WSHandler) apply(ctx context.Context, c *session.Controller, in inboundMessage, onResult func(domain.ScoredResult)) error {
	switch in.Type {
	case "answer":
		var p answerPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return invalidPayload("answer")
		}
		label, err := domain.ParseLabel(p.Option)
		if err != nil {
			return err
		}
		return c.SelectAnswer(p.QuestionID, label)
	case "goto", "flag":
		var p indexPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return invalidPayload(in.Type)
		}
		if in.Type == "goto" {
			return c.GoTo(p.Index)
		}
		_, err := c.ToggleFlag(p.Index)
		return err
	case "next":
		return c.Next()
	case "previous":
		return c.Previous()
	case "pause":
		return c.Pause()
	case "resume":
		return c.Resume()
	case "submit":
		result, err := c.Submit(ctx)
		if err != nil {
			return err
		}
		onResult(result)
		return nil
	default:
		return fmt.Errorf("%w: unsupported message type %q", domain.ErrInvalidInput, in.Type)
	}
}

func invalidPayload(kind string) error {
	return fmt.Errorf("%w: invalid %s payload", domain.ErrInvalidInput, kind)
}
