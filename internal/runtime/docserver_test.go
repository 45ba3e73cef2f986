package runtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
)

func TestStartDocsServerDisabled(t *testing.T) {
	svc := newTestService(t)
	svc.StartDocsServer()
	if len(svc.httpServers) != 0 {
		t.Fatalf("expected no HTTP servers, got %v", svc.httpServers)
	}
}

func TestStartDocsServerRegistersRoutes(t *testing.T) {
	svc := newTestService(t)
	svc.Conf.DocsEnabled = true
	svc.StartDocsServer()

	mux, ok := svc.httpServers[8081]
	if !ok {
		t.Fatalf("expected the docs server on the default port, got %v", svc.httpServers)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/asyncapi.yaml", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/yaml" {
		t.Fatalf("unexpected content type: %q", got)
	}
	if !strings.HasPrefix(rec.Body.String(), "asyncapi: 2.5.0\n") {
		t.Fatalf("unexpected body start: %q", rec.Body.String()[:40])
	}
}

func TestStartDocsServerCustomPort(t *testing.T) {
	svc := newTestService(t)
	svc.Conf.DocsEnabled = true
	svc.Conf.DocsPort = 9999
	svc.StartDocsServer()

	if _, ok := svc.httpServers[9999]; !ok {
		t.Fatalf("expected the docs server on port 9999, got %v", svc.httpServers)
	}
}

func TestDocsServerJSONEndpoint(t *testing.T) {
	svc := newTestService(t)

	rec := httptest.NewRecorder()
	svc.handleGetAsyncAPIJSON(rec, httptest.NewRequest(http.MethodGet, "/asyncapi.json", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("unexpected content type: %q", got)
	}
	if !strings.HasPrefix(rec.Body.String(), "{\n  \"asyncapi\": \"2.5.0\"") {
		t.Fatalf("unexpected body start: %q", rec.Body.String()[:40])
	}
}

func TestDocsServerEventsEndpoint(t *testing.T) {
	svc := newTestService(t)
	err := svc.registerHandler(handlerRegistration{
		Name:     "signup-worker",
		Event:    "user_sign_up",
		Topic:    "user_sign_up",
		AckTopic: "user_sign_up.ack",
		Handler:  func(msg *message.Message) ([]*message.Message, error) { return nil, nil },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := httptest.NewRecorder()
	svc.handleGetEvents(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var events []struct {
		Name     string `json:"name"`
		Event    string `json:"event"`
		Topic    string `json:"topic"`
		AckTopic string `json:"ack_topic"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one event entry, got %d", len(events))
	}
	if events[0].Name != "signup-worker" || events[0].Event != "user_sign_up" {
		t.Fatalf("unexpected event entry: %+v", events[0])
	}
	if events[0].AckTopic != "user_sign_up.ack" {
		t.Fatalf("unexpected ack topic: %q", events[0].AckTopic)
	}
}

func TestDocsServerCORS(t *testing.T) {
	t.Run("disabled without configured origins", func(t *testing.T) {
		svc := newTestService(t)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/asyncapi.yaml", nil)
		req.Header.Set("Origin", "https://app.example.com")
		svc.handleGetAsyncAPIYAML(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Fatalf("expected no CORS headers, got %q", got)
		}
	})

	t.Run("matching origin is echoed", func(t *testing.T) {
		svc := newTestService(t)
		svc.Conf.DocsCORSAllowedOrigins = []string{"https://app.example.com"}
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/asyncapi.yaml", nil)
		req.Header.Set("Origin", "HTTPS://APP.EXAMPLE.COM")
		svc.handleGetAsyncAPIYAML(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "HTTPS://APP.EXAMPLE.COM" {
			t.Fatalf("unexpected allow origin: %q", got)
		}
		if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, OPTIONS" {
			t.Fatalf("unexpected allow methods: %q", got)
		}
	})

	t.Run("unknown origin gets no headers", func(t *testing.T) {
		svc := newTestService(t)
		svc.Conf.DocsCORSAllowedOrigins = []string{"https://app.example.com"}
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/asyncapi.yaml", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		svc.handleGetAsyncAPIYAML(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Fatalf("expected no CORS headers, got %q", got)
		}
	})

	t.Run("wildcard", func(t *testing.T) {
		svc := newTestService(t)
		svc.Conf.DocsCORSAllowedOrigins = []string{"*"}
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/asyncapi.yaml", nil)
		req.Header.Set("Origin", "https://anything.example.com")
		svc.handleGetAsyncAPIYAML(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Fatalf("unexpected allow origin: %q", got)
		}
	})

	t.Run("preflight", func(t *testing.T) {
		svc := newTestService(t)
		svc.Conf.DocsCORSAllowedOrigins = []string{"*"}
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodOptions, "/asyncapi.yaml", nil)
		req.Header.Set("Origin", "https://app.example.com")
		svc.handleGetAsyncAPIYAML(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("unexpected status: %d", rec.Code)
		}
		if rec.Body.Len() != 0 {
			t.Fatalf("preflight responses must have no body, got %q", rec.Body.String())
		}
	})
}
