package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	authService "github.com/zhouzirui/assistant-relay/backend/internal/service/auth"
	chatservice "github.com/zhouzirui/assistant-relay/backend/internal/service/chat"
)

func setupRouter(t *testing.T) (*chi.Mux, *chatservice.Service) {
	t.Helper()
	chatSvc, err := chatservice.NewService(4)
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}
	handler := New(authService.NewGatekeeper("abc123", chatSvc))

	r := chi.NewRouter()
	r.Route("/sessions/{sessionID}", handler.RegisterRoutes)
	return r, chatSvc
}

func login(r http.Handler, sessionID, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+sessionID+"/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	var decoded map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &decoded)
	return resp, decoded
}

func TestLoginUnlocksSession(t *testing.T) {
	r, chatSvc := setupRouter(t)
	session, _ := chatSvc.CreateSession(context.Background())

	resp, body := login(r, session.ID, `{"password":"abc123"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if body["sessionId"] != session.ID || body["authenticated"] != true {
		t.Fatalf("unexpected body %v", body)
	}

	stored, err := chatSvc.GetSession(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}
	if !stored.Authenticated || stored.AuthenticatedAt == nil {
		t.Fatalf("expected session to be unlocked, got %+v", stored)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	r, chatSvc := setupRouter(t)
	session, _ := chatSvc.CreateSession(context.Background())

	for _, password := range []string{"wrong", "", "ABC123", "abc123 "} {
		payload, _ := json.Marshal(map[string]string{"password": password})
		resp, body := login(r, session.ID, string(payload))
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("password %q: expected 401, got %d", password, resp.Code)
		}
		if body["error"] != "password incorrect" {
			t.Fatalf("password %q: unexpected body %v", password, body)
		}
	}

	stored, _ := chatSvc.GetSession(context.Background(), session.ID)
	if stored.Authenticated {
		t.Fatal("wrong passwords must leave the session locked")
	}
}

func TestLoginMalformedBody(t *testing.T) {
	r, chatSvc := setupRouter(t)
	session, _ := chatSvc.CreateSession(context.Background())

	resp, body := login(r, session.ID, `{"password":`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if body["error"] != "invalid request body" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestLoginUnknownSession(t *testing.T) {
	r, _ := setupRouter(t)

	resp, body := login(r, "missing", `{"password":"abc123"}`)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if body["error"] != chatservice.ErrSessionNotFound.Error() {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestLoginRejectsOversizedBody(t *testing.T) {
	r, chatSvc := setupRouter(t)
	session, _ := chatSvc.CreateSession(context.Background())

	big := `{"password":"` + string(bytes.Repeat([]byte("a"), 2<<20)) + `"}`
	resp, _ := login(r, session.ID, big)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
