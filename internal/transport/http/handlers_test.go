package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

func doJSON(t *testing.T, env *testEnv, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, env.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", "t1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var decoded any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	if obj, ok := decoded.(map[string]any); ok {
		return resp.StatusCode, obj
	}
	return resp.StatusCode, map[string]any{"items": decoded}
}

func TestCreateGetAndSubmitOverREST(t *testing.T) {
	env := newTestEnv(t)

	status, created := doJSON(t, env, http.MethodPost, "/api/quizzes", `{"topic":"Space Exploration","difficulty":"easy","num_questions":3}`)
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%v)", status, created)
	}
	id, _ := created["id"].(string)
	if id == "" || created["tenant_id"] != "t1" {
		t.Fatalf("unexpected created quiz %v", created)
	}
	questions, _ := created["questions"].([]any)
	if len(questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(questions))
	}
	if q, _ := questions[0].(map[string]any); q["correct_option"] != nil || q["explanation"] != nil {
		t.Fatalf("answers leaked in public view: %v", q)
	}

	status, _ = doJSON(t, env, http.MethodGet, "/api/quizzes/"+id, "")
	if status != http.StatusOK {
		t.Fatalf("expected 200 for stored quiz, got %d", status)
	}
	status, list := doJSON(t, env, http.MethodGet, "/api/quizzes", "")
	if items, _ := list["items"].([]any); status != http.StatusOK || len(items) != 1 {
		t.Fatalf("expected one quiz listed, got %d %v", status, list)
	}

	status, result := doJSON(t, env, http.MethodPost, "/api/submissions", `{"quiz_id":"`+id+`","answers":{},"time_taken_seconds":42}`)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", status, result)
	}
	if result["score"] != float64(0) || result["grade"] != "F" || result["time_taken"] != float64(42) {
		t.Fatalf("unexpected result %v", result)
	}

	resultID, _ := result["id"].(string)
	if status, _ := doJSON(t, env, http.MethodGet, "/api/results/"+resultID, ""); status != http.StatusOK {
		t.Fatalf("expected stored result, got %d", status)
	}
	status, history := doJSON(t, env, http.MethodGet, "/api/history?limit=5", "")
	if items, _ := history["items"].([]any); status != http.StatusOK || len(items) != 1 {
		t.Fatalf("expected one history entry, got %d %v", status, history)
	}
	status, summary := doJSON(t, env, http.MethodGet, "/api/analytics?tz=UTC", "")
	if status != http.StatusOK || summary["total_attempts"] != float64(1) {
		t.Fatalf("unexpected analytics %d %v", status, summary)
	}
}

func TestRESTErrorMapping(t *testing.T) {
	env := newTestEnv(t)
	cases := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodPost, "/api/quizzes", `{"topic":"","difficulty":"easy","num_questions":3}`, http.StatusBadRequest},
		{http.MethodPost, "/api/quizzes", `not json`, http.StatusBadRequest},
		{http.MethodGet, "/api/quizzes/missing", "", http.StatusNotFound},
		{http.MethodGet, "/api/results/missing", "", http.StatusNotFound},
		{http.MethodGet, "/api/sessions/missing", "", http.StatusNotFound},
		{http.MethodPost, "/api/submissions", `{"quiz_id":"missing","answers":{}}`, http.StatusBadGateway},
		{http.MethodGet, "/api/history?limit=-1", "", http.StatusBadRequest},
		{http.MethodGet, "/api/analytics?tz=Not/AZone", "", http.StatusBadRequest},
	}
	for _, tc := range cases {
		status, body := doJSON(t, env, tc.method, tc.path, tc.body)
		if status != tc.want {
			t.Fatalf("%s %s: expected %d, got %d (%v)", tc.method, tc.path, tc.want, status, body)
		}
		if msg, _ := body["error"].(string); strings.TrimSpace(msg) == "" {
			t.Fatalf("%s %s: expected error message", tc.method, tc.path)
		}
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.server.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestLiveSessionSnapshotOverREST(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, 2, 1)
	conn := env.dial(t, quiz.ID)
	_, payload := readNext(conn, t, "state")
	snap, _ := payload["session"].(map[string]any)
	sessionID, _ := snap["session_id"].(string)

	status, body := doJSON(t, env, http.MethodGet, "/api/sessions/"+sessionID, "")
	if status != http.StatusOK || body["state"] != "in_progress" || body["remaining_seconds"] != float64(60) {
		t.Fatalf("unexpected session snapshot %d %v", status, body)
	}
}

func TestPrincipalDefaultsTenant(t *testing.T) {
	if p := PrincipalFrom(context.Background()); p.TenantID != DefaultTenant || p.Authenticated {
		t.Fatalf("unexpected default principal %+v", p)
	}
}
