package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/huangsam/devscore/internal/contract"
	"github.com/huangsam/devscore/schema"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		s.writeFailure(w, nil, contract.ErrUnauthorized)
		return
	}
	resp, err := s.scanner.Scan(r.Context(), schema.ScanRequest{
		Username: chi.URLParam(r, "username"),
		Token:    token,
		Fast:     queryBool(r, "fast"),
		Fresh:    queryBool(r, "fresh"),
	})
	s.respond(w, resp, err)
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		s.writeFailure(w, nil, contract.ErrUnauthorized)
		return
	}
	resp, err := s.scanner.Analyze(r.Context(), schema.ScanRequest{
		Username: chi.URLParam(r, "username"),
		Token:    token,
	})
	s.respond(w, resp, err)
}

// handleScore needs no credential: it never calls the external source.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	resp, err := s.scanner.Score(r.Context(), chi.URLParam(r, "username"))
	s.respond(w, resp, err)
}

// handleInvalidate drops the memory tier only.
func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	if err := s.scanner.Invalidate(chi.URLParam(r, "username")); err != nil {
		s.writeFailure(w, nil, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReset also nulls the stored component payloads.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.scanner.Reset(r.Context(), chi.URLParam(r, "username")); err != nil {
		s.writeFailure(w, nil, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) respond(w http.ResponseWriter, resp *schema.ScanResponse, err error) {
	if err != nil {
		s.writeFailure(w, resp, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeFailure maps err to a status code and writes a failed response body.
func (s *Server) writeFailure(w http.ResponseWriter, resp *schema.ScanResponse, err error) {
	if resp == nil {
		resp = &schema.ScanResponse{Status: schema.FailedStatus}
	}
	resp.Success = false
	resp.Error = err.Error()

	code := statusCode(err)
	if code == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", strconv.Itoa(s.retryAfter(err)))
	}
	writeJSON(w, code, resp)
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, contract.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, contract.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, contract.ErrNoSnapshot), errors.Is(err, contract.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, contract.ErrUsernameRequired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// retryAfter returns whole seconds until the quota resets, at least one.
func (s *Server) retryAfter(err error) int {
	var rle *contract.RateLimitError
	if !errors.As(err, &rle) || rle.Reset.IsZero() {
		return 60
	}
	secs := int(math.Ceil(rle.Reset.Sub(s.now()).Seconds()))
	return max(secs, 1)
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "bearer "
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func queryBool(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && v
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
