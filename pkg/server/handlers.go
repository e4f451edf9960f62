package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kadirpekel/sift/pkg/search"
)

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

type healthResponse struct {
	Status        string  `json:"status"`
	Redis         string  `json:"redis"`
	Searxng       string  `json:"searxng"`
	CrossEncoder  string  `json:"cross_encoder"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

type statsResponse struct {
	QueriesTotal    int64            `json:"queries_total"`
	CacheHitRate    float64          `json:"cache_hit_rate"`
	AvgLatencyMS    float64          `json:"avg_latency_ms"`
	QueriesByIntent map[string]int64 `json:"queries_by_intent"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, kind, detail string) {
	writeJSON(w, status, errorResponse{Error: kind, Detail: detail})
}

func statusForKind(kind search.Kind) int {
	switch kind {
	case search.KindInvalidRequest:
		return http.StatusBadRequest
	case search.KindBackendUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	req := search.Request{
		Query:      query.Get("q"),
		DomainHint: query.Get("domain_hint"),
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, string(search.KindInvalidRequest), "limit: must be an integer")
			return
		}
		// An explicit limit clamps like any other out-of-range value; a zero
		// here must not fall through to the server default.
		if limit < 1 {
			limit = 1
		}
		req.Limit = limit
	}
	if err := req.Validate(s.config.DefaultLimit); err != nil {
		writeError(w, http.StatusBadRequest, string(search.KindInvalidRequest), err.Error())
		return
	}

	resp, err := s.searcher.Search(r.Context(), req)
	if err != nil {
		kind := search.KindOf(err)
		slog.Error("Search failed",
			"query", req.Query,
			"kind", string(kind),
			"error", err,
			"request_id", requestID(r.Context()),
		)
		writeError(w, statusForKind(kind), string(kind), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:        "ok",
		Redis:         "ok",
		Searxng:       "ok",
		CrossEncoder:  "loaded",
		UptimeSeconds: time.Since(s.startTime).Seconds(),
	}

	if err := s.stats.Ping(r.Context()); err != nil {
		resp.Redis = "unreachable"
		resp.Status = "degraded"
	}
	if err := s.backend.Ping(r.Context()); err != nil {
		resp.Searxng = "unreachable"
		resp.Status = "degraded"
	}
	if !s.model.Ready(r.Context()) {
		resp.CrossEncoder = "unavailable"
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.Stats(r.Context())
	if err != nil {
		slog.Error("Stats read failed", "error", err, "request_id", requestID(r.Context()))
		writeError(w, http.StatusServiceUnavailable, string(search.KindInternal), "stats store unreachable")
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		QueriesTotal:    stats.QueriesTotal,
		CacheHitRate:    stats.CacheHitRate,
		AvgLatencyMS:    stats.AvgLatencyMS,
		QueriesByIntent: stats.QueriesByIntent,
	})
}
