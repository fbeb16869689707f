// Package server exposes the intent router over HTTP for the quiz
// application's browser and voice clients.
//
// All intent routes live under /api/intent/. Resolution endpoints never fail
// with a 5xx due to backend trouble — degradation happens inside the router
// and is reported through the result's backend_used and warning fields.
// Operational endpoints (/healthz, /readyz, /metrics) follow the usual probe
// conventions.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quizvox/quizvox/internal/health"
	"github.com/quizvox/quizvox/internal/intent"
	"github.com/quizvox/quizvox/internal/intent/router"
	"github.com/quizvox/quizvox/internal/observe"
)

// maxBatchSize bounds a single batch_parse request.
const maxBatchSize = 50

// maxBodyBytes bounds request bodies; utterances are short.
const maxBodyBytes = 64 << 10

// Server holds the HTTP handlers for the intent API.
type Server struct {
	router  *router.Router
	metrics *observe.Metrics
	healthh *health.Handler
}

// New creates a Server around rt. The health handler is optional; when nil,
// /healthz and /readyz are served by a handler with no readiness checks.
func New(rt *router.Router, m *observe.Metrics, hh *health.Handler) *Server {
	if hh == nil {
		hh = health.New()
	}
	if m == nil {
		m = observe.DefaultMetrics()
	}
	return &Server{router: rt, metrics: m, healthh: hh}
}

// Handler returns the complete HTTP handler: all routes registered on a mux,
// wrapped in the trace-propagating observability middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/intent/parse", s.handleParse)
	mux.HandleFunc("POST /api/intent/batch_parse", s.handleBatchParse)
	mux.HandleFunc("GET /api/intent/supported_intents", s.handleSupportedIntents)
	mux.HandleFunc("GET /api/intent/health", s.handleHealth)
	mux.HandleFunc("POST /api/intent/cache/clear", s.handleCacheClear)

	s.healthh.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return observe.Middleware(s.metrics)(mux)
}

// parseRequest is the body of POST /api/intent/parse.
type parseRequest struct {
	Text string `json:"text"`
}

// batchParseRequest is the body of POST /api/intent/batch_parse.
type batchParseRequest struct {
	Texts []string `json:"texts"`
}

// batchParseResponse pairs each input with its result, in request order.
type batchParseResponse struct {
	Results []batchParseItem `json:"results"`
}

type batchParseItem struct {
	Text string `json:"text"`
	intent.Result
}

// supportedIntentsResponse is the body of GET /api/intent/supported_intents.
type supportedIntentsResponse struct {
	TotalIntents int                    `json:"total_intents"`
	Intents      map[string]intent.Info `json:"intents"`
}

// errorResponse is the body of every 4xx reply.
type errorResponse struct {
	Error string `json:"error"`
}

// handleParse resolves a single utterance. A missing or non-JSON body is a
// 400; empty text is NOT an error at this layer — the router answers with
// its error-sentinel result and the endpoint returns 200.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result := s.router.ParseIntent(r.Context(), req.Text)
	writeJSON(w, http.StatusOK, result)
}

// handleBatchParse resolves up to maxBatchSize utterances in one call.
func (s *Server) handleBatchParse(w http.ResponseWriter, r *http.Request) {
	var req batchParseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Texts) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "texts must not be empty"})
		return
	}
	if len(req.Texts) > maxBatchSize {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "too many texts in one batch"})
		return
	}

	results := s.router.ParseBatch(r.Context(), req.Texts)
	items := make([]batchParseItem, len(results))
	for i, res := range results {
		items[i] = batchParseItem{Text: req.Texts[i], Result: res}
	}
	writeJSON(w, http.StatusOK, batchParseResponse{Results: items})
}

// handleSupportedIntents returns the intent catalogue. An unreachable
// classifier yields an empty catalogue, not an error.
func (s *Server) handleSupportedIntents(w http.ResponseWriter, r *http.Request) {
	intents := s.router.SupportedIntents(r.Context())
	writeJSON(w, http.StatusOK, supportedIntentsResponse{
		TotalIntents: len(intents),
		Intents:      intents,
	})
}

// handleHealth reports the remote classifier's own health. Always 200; an
// unreachable service shows up as status "error" in the body.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.router.CheckHealth(r.Context()))
}

// handleCacheClear drops every cached resolution.
func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.router.ClearCache()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeBody decodes a size-bounded JSON body into v. On failure it writes
// the 400 response and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
			return false
		}
		if errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "request body is required"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	return true
}

// writeJSON encodes v as JSON and writes it with the given status code. On
// encoding failure it falls back to a plain-text 500 response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failure"}`, http.StatusInternalServerError)
	}
}
