package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"ai-quiz-service/internal/app"
	"ai-quiz-service/internal/domain"
	"ai-quiz-service/internal/session"
	"github.com/go-chi/chi/v5"
)

// API serves the REST surface.
type API struct {
	service  *app.QuizService
	sessions app.SessionRegistry
}

// snapshotReader is implemented by registries that can see sessions owned by other instances.
type snapshotReader interface {
	Snapshot(ctx context.Context, id string) (session.Snapshot, error)
}

func (a *API) createQuiz(w http.ResponseWriter, r *http.Request) {
	var req app.CreateQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeServiceError(w, r, fmt.Errorf("%w: invalid JSON body", domain.ErrInvalidInput))
		return
	}
	if req.TenantID == "" {
		req.TenantID = PrincipalFrom(r.Context()).TenantID
	}
	quiz, err := a.service.CreateQuiz(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz.Public())
}

func (a *API) listQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := a.service.ListQuizzes(r.Context(), PrincipalFrom(r.Context()).TenantID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]domain.Quiz, 0, len(quizzes))
	for _, q := range quizzes {
		out = append(out, q.Public())
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) getQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := a.service.GetQuiz(r.Context(), chi.URLParam(r, "id"), PrincipalFrom(r.Context()).TenantID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz.Public())
}

func (a *API) submit(w http.ResponseWriter, r *http.Request) {
	var sub domain.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeServiceError(w, r, fmt.Errorf("%w: invalid JSON body", domain.ErrInvalidInput))
		return
	}
	if sub.TenantID == "" {
		sub.TenantID = PrincipalFrom(r.Context()).TenantID
	}
	result, err := a.service.SubmitQuiz(r.Context(), sub)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) getResult(w http.ResponseWriter, r *http.Request) {
	result, err := a.service.GetResult(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) history(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeServiceError(w, r, fmt.Errorf("%w: limit must be a non-negative integer", domain.ErrInvalidInput))
			return
		}
		limit = n
	}
	attempts, err := a.service.History(r.Context(), PrincipalFrom(r.Context()).TenantID, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}

// analytics accepts ?tz=<IANA zone> so streak days follow the caller's calendar.
func (a *API) analytics(w http.ResponseWriter, r *http.Request) {
	loc := time.UTC
	if tz := r.URL.Query().Get("tz"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			writeServiceError(w, r, fmt.Errorf("%w: unknown time zone %q", domain.ErrInvalidInput, tz))
			return
		}
		loc = l
	}
	summary, err := a.service.Analytics(r.Context(), PrincipalFrom(r.Context()).TenantID, loc)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) getSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if c, ok := a.sessions.Get(r.Context(), id); ok {
		writeJSON(w, http.StatusOK, c.Snapshot())
		return
	}
	if reader, ok := a.sessions.(snapshotReader); ok {
		snap, err := reader.Snapshot(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
		return
	}
	writeServiceError(w, r, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id))
}
