package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ai-quiz-service/internal/app"
	"ai-quiz-service/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// DefaultTenant is used when a request names no tenant.
const DefaultTenant = "default"

// Principal is the caller identity. Tenancy is carried but not enforced.
type Principal struct {
	Authenticated bool   `json:"authenticated"`
	TenantID      string `json:"tenant_id"`
}

type principalKey struct{}

// PrincipalFrom returns the principal attached by the tenant middleware.
func PrincipalFrom(ctx context.Context) Principal {
	if p, ok := ctx.Value(principalKey{}).(Principal); ok {
		return p
	}
	return Principal{TenantID: DefaultTenant}
}

// withPrincipal reads the tenant from X-Tenant-ID, then ?tenant_id= or ?tenantId=.
func withPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant := strings.TrimSpace(r.Header.Get("X-Tenant-ID"))
		if tenant == "" {
			tenant = strings.TrimSpace(r.URL.Query().Get("tenant_id"))
		}
		if tenant == "" {
			tenant = strings.TrimSpace(r.URL.Query().Get("tenantId"))
		}
		p := Principal{Authenticated: tenant != "", TenantID: tenant}
		if tenant == "" {
			p.TenantID = DefaultTenant
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, p)))
	})
}

// NewRouter wires REST and websocket routes. requestTimeout bounds the REST API only;
// websocket sessions live as long as the connection.
func NewRouter(service *app.QuizService, sessions app.SessionRegistry, ws *WSHandler, requestTimeout time.Duration) http.Handler {
	api := &API{service: service, sessions: sessions}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(withPrincipal)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/ws", ws.ServeWS)

	r.Route("/api", func(r chi.Router) {
		if requestTimeout > 0 {
			r.Use(middleware.Timeout(requestTimeout))
		}
		r.Post("/quizzes", api.createQuiz)
		r.Get("/quizzes", api.listQuizzes)
		r.Get("/quizzes/{id}", api.getQuiz)
		r.Post("/submissions", api.submit)
		r.Get("/results/{id}", api.getResult)
		r.Get("/history", api.history)
		r.Get("/analytics", api.analytics)
		r.Get("/sessions/{id}", api.getSession)
	})
	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// statusFor maps domain error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrSubmission):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
		writeJSON(w, status, errorResponse{Error: "request failed"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
