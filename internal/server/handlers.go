package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	scrubotel "github.com/dativo-io/scrub/internal/otel"
	"github.com/dativo-io/scrub/internal/sanitizer"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

type sanitizeTextRequest struct {
	Text string `json:"text"`
}

type sanitizeTextResponse struct {
	Redacted string               `json:"redacted"`
	Log      []string             `json:"log"`
	Entries  []sanitizer.LogEntry `json:"entries"`
	Summary  string               `json:"summary"`
}

type sanitizeRecordRequest struct {
	Record any `json:"record"`
}

type sanitizeRecordResponse struct {
	Redacted any                  `json:"redacted"`
	Log      []string             `json:"log"`
	Entries  []sanitizer.LogEntry `json:"entries"`
}

type ruleView struct {
	Name        string `json:"name"`
	Bucket      string `json:"bucket"`
	Category    string `json:"category"`
	Placeholder string `json:"placeholder"`
	Noun        string `json:"noun"`
	Validator   string `json:"validator,omitempty"`
}

func (s *Server) engine() *sanitizer.Engine {
	return sanitizer.New(
		sanitizer.WithRegistry(s.registry),
		sanitizer.WithCapture(false),
		sanitizer.WithLeakSweep(s.leakSweep),
	)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
		"rules":  s.registry.Len(),
	})
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	rules := s.registry.Rules()
	out := make([]ruleView, 0, len(rules))
	for i := range rules {
		rule := &rules[i]
		out = append(out, ruleView{
			Name:        rule.Name,
			Bucket:      rule.Bucket.String(),
			Category:    string(rule.Category),
			Placeholder: rule.Placeholder,
			Noun:        rule.Noun,
			Validator:   rule.Validator(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rules": out})
}

func (s *Server) handleSanitizeText(w http.ResponseWriter, r *http.Request) {
	var req sanitizeTextRequest
	if !s.decode(w, r, &req) {
		return
	}
	e := s.engine()
	redacted, entries := e.SanitizeText(r.Context(), req.Text)
	log.Debug().
		Str("engine_id", e.ID()).
		Int("redactions", entries.Total()).
		Func(scrubotel.LogTraceFields(r.Context())).
		Msg("sanitize_text_served")
	writeJSON(w, http.StatusOK, sanitizeTextResponse{
		Redacted: redacted,
		Log:      entries.Strings(),
		Entries:  entries,
		Summary:  e.Summary(),
	})
}

func (s *Server) handleSanitizeRecord(w http.ResponseWriter, r *http.Request) {
	var req sanitizeRecordRequest
	if !s.decode(w, r, &req) {
		return
	}
	e := s.engine()
	redacted, entries, err := e.SanitizeStructured(r.Context(), req.Record)
	if err != nil {
		if errors.Is(err, sanitizer.ErrCycleDetected) {
			writeError(w, http.StatusUnprocessableEntity, "cycle_detected", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sanitizeRecordResponse{
		Redacted: redacted,
		Log:      entries.Strings(),
		Entries:  entries,
	})
}

// decode reads a bounded JSON body into v, writing the error response itself.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, s.maxBody)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", err.Error())
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}
