package web

import (
	"crypto/subtle"
	"encoding/json"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"eventscout/internal/cache"
	"eventscout/internal/config"
	appLog "eventscout/internal/log"
	"eventscout/internal/match"
	"eventscout/internal/metrics"
	"eventscout/internal/model"
	"eventscout/internal/providers"
	"eventscout/internal/recommend"
	"eventscout/internal/view"
)

// Server exposes the cache contract over HTTP to the external
// conversational layer: the minimal view it feeds to a language model, the
// full view it renders from, name-based reconciliation, and cache
// administration. Everything speaks JSON; empty results serialize as empty
// lists/strings, never null, so "no events" is unambiguous downstream.
type Server struct {
	cfg     *config.Config
	agg     *providers.Aggregator
	metrics *metrics.Metrics
	mux     *http.ServeMux

	// rand.Rand is not safe for concurrent use; handlers serve in
	// parallel, so every draw goes through rngMu.
	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewServer constructs a Server around an aggregator (which owns the
// store). metrics may be nil.
func NewServer(cfg *config.Config, agg *providers.Aggregator, m *metrics.Metrics) *Server {
	s := &Server{
		cfg:     cfg,
		agg:     agg,
		metrics: m,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		mux:     http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the fully wrapped http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := s.accessLog(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) store() *cache.Store { return s.agg.Store() }

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/events/minimal", s.handleMinimal)
	s.mux.HandleFunc("/api/events/full", s.handleFull)
	s.mux.HandleFunc("/api/events/find", s.handleFind)
	s.mux.HandleFunc("/api/cache/refresh", s.handleRefresh)
	s.mux.HandleFunc("/api/cache/clear", s.handleClear)
	s.mux.HandleFunc("/api/cache/stats", s.handleStats)
	s.mux.HandleFunc("/api/recommend", s.handleRecommend)
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// minimalResponse is the JSON shape of the token-frugal listing.
type minimalResponse struct {
	Category string   `json:"category,omitempty"`
	Count    int      `json:"count"`
	Lines    []string `json:"lines"`
	Text     string   `json:"text"`
	Warnings []string `json:"warnings,omitempty"`
}

// handleMinimal returns the minimal view for prompt inclusion.
//
// GET /api/events/minimal?category=music&source=&limit=20&refresh=1
//
// When a category is given the cache is warmed first (respecting each
// source's TTL; refresh=1 forces refetch). Per-source fetch failures
// degrade to warnings on the response instead of failing it.
func (s *Server) handleMinimal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "use GET")
		return
	}

	q := r.URL.Query()
	category := q.Get("category")
	force := q.Get("refresh") == "1"
	limit := parseIntDefault(q.Get("limit"), s.cfg.Minimal.DefaultLimit)

	source := model.Source(q.Get("source"))
	if source != "" && !model.ValidSource(source) {
		writeError(w, http.StatusBadRequest, "unknown source")
		return
	}

	var warnings []string
	if category != "" || force {
		for _, fe := range s.agg.WarmCategory(r.Context(), category, force) {
			warnings = append(warnings, fe.Error())
		}
	}

	text := view.Minimal(s.store(), view.MinimalOptions{
		Source:    source,
		Limit:     limit,
		Category:  category,
		Threshold: s.cfg.Matching.SimilarityThreshold,
		NameChars: s.cfg.Minimal.NameChars,
		DateChars: s.cfg.Minimal.DateChars,
		DescChars: s.cfg.Minimal.DescChars,
	})

	lines := []string{}
	if text != "" {
		lines = strings.Split(text, "\n")
	}

	writeJSON(w, http.StatusOK, minimalResponse{
		Category: category,
		Count:    len(lines),
		Lines:    lines,
		Text:     text,
		Warnings: warnings,
	})
}

// fullResponse carries both the structured slots and the fixed-marker text
// the rendering layer consumes.
type fullResponse struct {
	Events []view.Detail `json:"events"`
	Text   string        `json:"text"`
}

// handleFull resolves selected ids into complete display blocks.
//
// GET /api/events/full?ids=abc123def456,0123456789ab
//
// Output cardinality always equals input cardinality: unknown ids yield a
// "not found" slot, never a silent skip.
func (s *Server) handleFull(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "use GET")
		return
	}

	raw := strings.TrimSpace(r.URL.Query().Get("ids"))
	if raw == "" {
		writeError(w, http.StatusBadRequest, "ids parameter is required")
		return
	}

	ids := splitIDs(raw)
	details := view.FullDetails(s.store(), ids)

	writeJSON(w, http.StatusOK, fullResponse{
		Events: details,
		Text:   view.FormatDetails(details),
	})
}

// handleFind reconciles a free-text name against the canonical records.
//
// GET /api/events/find?name=Jazz+Night&fuzzy=0
//
// A miss is a 404 with a JSON error body; the caller must not invent a
// record from it.
func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "use GET")
		return
	}

	name := r.URL.Query().Get("name")
	if strings.TrimSpace(name) == "" {
		writeError(w, http.StatusBadRequest, "name parameter is required")
		return
	}
	fuzzy := r.URL.Query().Get("fuzzy") != "0"

	ev, ok := s.store().FindByName(name, fuzzy)
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	details := view.FullDetails(s.store(), []string{ev.ID})
	writeJSON(w, http.StatusOK, details[0])
}

// refreshResponse reports a warm's outcome per source.
type refreshResponse struct {
	Category string      `json:"category,omitempty"`
	Errors   []string    `json:"errors"`
	Stats    cache.Stats `json:"stats"`
}

// handleRefresh forces a cache warm for a category.
//
// POST /api/cache/refresh?category=music
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}

	category := r.URL.Query().Get("category")

	errStrings := []string{}
	for _, fe := range s.agg.WarmCategory(r.Context(), category, true) {
		errStrings = append(errStrings, fe.Error())
	}

	writeJSON(w, http.StatusOK, refreshResponse{
		Category: category,
		Errors:   errStrings,
		Stats:    s.store().Stats(),
	})
}

// handleClear drops cached records, for one source or all of them.
//
// POST /api/cache/clear?source=brussels
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "use POST or DELETE")
		return
	}

	source := model.Source(r.URL.Query().Get("source"))
	if source != "" && !model.ValidSource(source) {
		writeError(w, http.StatusBadRequest, "unknown source")
		return
	}

	s.store().Clear(source)
	appLog.Info("cache cleared", "source", sourceOrAll(source))
	writeJSON(w, http.StatusOK, s.store().Stats())
}

// handleStats exposes cache introspection.
//
// GET /api/cache/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "use GET")
		return
	}
	writeJSON(w, http.StatusOK, s.store().Stats())
}

// recommendResponse pairs the profile-matched suggestion with the novelty
// pick.
type recommendResponse struct {
	Profile    recommend.Profile `json:"profile"`
	Suggestion *view.Detail      `json:"suggestion,omitempty"`
	Novelty    *view.Detail      `json:"novelty,omitempty"`
}

// handleRecommend produces the model-free personalized suggestion.
//
// GET /api/recommend?text=une+grosse+soirée&category=party
//
// The profile comes from the free text; the suggestion is keyword-scored
// within the (optionally category-filtered) cache and the novelty pick
// leaves the detected comfort zone. An empty cache returns
// the bare profile with no picks.
func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "use GET")
		return
	}

	q := r.URL.Query()
	profile := recommend.DetectProfile(q.Get("text"))

	candidates := match.Filter(s.store().All(), q.Get("category"), s.cfg.Matching.SimilarityThreshold)

	resp := recommendResponse{Profile: profile}
	if ev, ok := recommend.PickForProfile(candidates, profile); ok {
		d := view.FullDetails(s.store(), []string{ev.ID})[0]
		resp.Suggestion = &d
	}
	if ev, ok := s.noveltyPick(profile); ok {
		d := view.FullDetails(s.store(), []string{ev.ID})[0]
		resp.Novelty = &d
	}

	writeJSON(w, http.StatusOK, resp)
}

// noveltyPick serializes access to the shared rng.
func (s *Server) noveltyPick(profile recommend.Profile) (model.Event, bool) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return recommend.NoveltyPick(s.store(), profile, s.rng)
}

// accessLog tags each request with a generated request id and logs method,
// path, status and duration.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		w.Header().Set("X-Request-ID", reqID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		if s.metrics != nil {
			s.metrics.HTTPRequests.WithLabelValues(r.URL.Path, strconv.Itoa(rec.status)).Inc()
		}
		appLog.Debug("http request",
			"request_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// statusRecorder captures the response status for logging/metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password counts as disabled.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /health stays reachable for probes.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="eventscout", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func splitIDs(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func sourceOrAll(source model.Source) string {
	if source == "" {
		return "all"
	}
	return string(source)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
