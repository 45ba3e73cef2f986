package runtime

import (
	"encoding/json"
	"net/http"
	"strings"
)

// StartDocsServer exposes the generated AsyncAPI document and the event registry
// over HTTP when the docs server is enabled. Start calls this automatically.
func (s *Service) StartDocsServer() {
	if s.Conf == nil || !s.Conf.DocsEnabled {
		return
	}

	port := s.Conf.DocsPort
	if port == 0 {
		port = 8081
	}

	s.RegisterHTTPHandler(port, "/asyncapi.yaml", http.HandlerFunc(s.handleGetAsyncAPIYAML))
	s.RegisterHTTPHandler(port, "/asyncapi.json", http.HandlerFunc(s.handleGetAsyncAPIJSON))
	s.RegisterHTTPHandler(port, "/api/events", http.HandlerFunc(s.handleGetEvents))
}

func (s *Service) handleGetAsyncAPIYAML(w http.ResponseWriter, r *http.Request) {
	if s.applyDocsCORS(w, r) {
		return
	}

	data, err := s.docBuilder().YAML()
	if err != nil {
		s.Logger.Error("Failed to render document", err, nil)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/yaml")
	w.Write(data)
}

func (s *Service) handleGetAsyncAPIJSON(w http.ResponseWriter, r *http.Request) {
	if s.applyDocsCORS(w, r) {
		return
	}

	data, err := s.docBuilder().JSON()
	if err != nil {
		s.Logger.Error("Failed to render document", err, nil)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Service) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	if s.applyDocsCORS(w, r) {
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(s.Events()); err != nil {
		s.Logger.Error("Failed to encode events", err, nil)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// applyDocsCORS sets CORS headers based on configuration and answers preflight
// requests. It reports whether the request was fully handled.
func (s *Service) applyDocsCORS(w http.ResponseWriter, r *http.Request) bool {
	if s.Conf != nil && len(s.Conf.DocsCORSAllowedOrigins) > 0 {
		origin := r.Header.Get("Origin")
		allowedOrigin := s.getAllowedCORSOrigin(origin)
		if allowedOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
	}

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return true
	}

	return false
}

// getAllowedCORSOrigin checks if the request origin is allowed and returns the appropriate
// Access-Control-Allow-Origin value.
func (s *Service) getAllowedCORSOrigin(requestOrigin string) string {
	if s.Conf == nil {
		return ""
	}
	for _, allowed := range s.Conf.DocsCORSAllowedOrigins {
		if allowed == "*" {
			return "*"
		}
		if strings.EqualFold(allowed, requestOrigin) {
			return requestOrigin
		}
	}
	return ""
}
