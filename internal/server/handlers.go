package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/MrWong99/glyphcard/internal/enrich"
	"github.com/MrWong99/glyphcard/internal/grammar"
	"github.com/MrWong99/glyphcard/internal/language"
	"github.com/MrWong99/glyphcard/internal/observe"
	"github.com/MrWong99/glyphcard/internal/translit"
)

// languageView is the public shape of a [language.Profile].
type languageView struct {
	Code                string `json:"code"`
	Name                string `json:"name"`
	NativeName          string `json:"native_name,omitempty"`
	Family              string `json:"family"`
	Script              string `json:"script"`
	Direction           string `json:"direction"`
	Analyzer            string `json:"analyzer"`
	Tonal               bool   `json:"tonal,omitempty"`
	RomanizationAllowed bool   `json:"romanization_allowed,omitempty"`
}

func (s *Server) view(p language.Profile) languageView {
	return languageView{
		Code:                p.Code,
		Name:                p.DisplayName(),
		NativeName:          p.NativeName,
		Family:              p.Family,
		Script:              string(p.ScriptType),
		Direction:           string(p.Direction),
		Analyzer:            s.enricher.Analyzer(p).Key(),
		Tonal:               p.Tonal,
		RomanizationAllowed: p.RomanizationAllowed,
	}
}

type transliterateRequest struct {
	Language string `json:"language"`

	// Text may be blank; blank text gets the empty "none" result.
	Text string `json:"text"`

	// Fallback is an optional caller-supplied Tier 3 candidate.
	Fallback string `json:"fallback,omitempty"`
}

type transliterateResponse struct {
	Language string `json:"language"`
	Known    bool   `json:"known"`
	translit.Result
}

type analyzeResponse struct {
	Language  string                     `json:"language"`
	Known     bool                       `json:"known"`
	Analyzer  string                     `json:"analyzer"`
	Direction string                     `json:"direction"`
	Analyses  []grammar.SentenceAnalysis `json:"analyses"`
}

type categoriesResponse struct {
	Analyzer   string             `json:"analyzer"`
	Direction  string             `json:"direction"`
	Categories []grammar.Category `json:"categories"`
}

// ─── Handlers ────────────────────────────────────────────────────────────────

func (s *Server) handleLanguages(w http.ResponseWriter, _ *http.Request) {
	profiles := s.enricher.Languages()
	out := make([]languageView, len(profiles))
	for i, p := range profiles {
		out[i] = s.view(p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLanguage(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("code")
	p, known := s.enricher.Resolve(key)
	if !known {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%s: %q", language.ErrUnsupportedLanguage, key))
		return
	}
	writeJSON(w, http.StatusOK, s.view(p))
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	p, _ := s.enricher.Resolve(r.URL.Query().Get("language"))
	a := s.enricher.Analyzer(p)
	writeJSON(w, http.StatusOK, categoriesResponse{
		Analyzer:   a.Key(),
		Direction:  string(a.Direction()),
		Categories: a.Categories(),
	})
}

func (s *Server) handleTransliterate(w http.ResponseWriter, r *http.Request) {
	var req transliterateRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, p := s.enricher.Transliterate(r.Context(), req.Language, req.Text, req.Fallback)
	_, known := s.enricher.Resolve(req.Language)
	writeJSON(w, http.StatusOK, transliterateResponse{Language: p.Code, Known: known, Result: res})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req enrich.Request
	if !s.decodeSentences(w, r, &req) {
		return
	}
	analyses, key, err := s.enricher.Analyze(r.Context(), req)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	p, known := s.enricher.Resolve(req.Language)
	writeJSON(w, http.StatusOK, analyzeResponse{
		Language:  p.Code,
		Known:     known,
		Analyzer:  key,
		Direction: string(p.Direction),
		Analyses:  analyses,
	})
}

func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	var req enrich.Request
	if !s.decodeSentences(w, r, &req) {
		return
	}
	res, err := s.enricher.Enrich(r.Context(), req)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// decode reads a bounded JSON body into v. It writes a 400 or 413 response
// and returns false on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) decodeSentences(w http.ResponseWriter, r *http.Request, req *enrich.Request) bool {
	if !s.decode(w, r, req) {
		return false
	}
	switch {
	case len(req.Sentences) == 0:
		writeError(w, http.StatusBadRequest, enrich.ErrNoSentences.Error())
		return false
	case len(req.Sentences) > s.maxSentences:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("too many sentences: %d, at most %d", len(req.Sentences), s.maxSentences))
		return false
	case req.Complexity != "" && !req.Complexity.IsValid():
		writeError(w, http.StatusBadRequest, fmt.Sprintf("complexity %q is invalid; valid values: beginner, intermediate, advanced", req.Complexity))
		return false
	}
	return true
}

// fail maps pipeline errors to status codes. The pipeline degrades rather
// than failing, so anything other than bad input is cancellation.
func (s *Server) fail(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, enrich.ErrNoSentences):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		observe.Logger(ctx).Warn("server: request aborted", "err", err)
		writeError(w, http.StatusServiceUnavailable, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
