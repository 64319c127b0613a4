// Package api provides the Suggestion Orchestrator's HTTP surface: chi
// router, tollbooth rate limiting, Prometheus metrics and Swagger docs,
// generalized from the teacher's DNS-lookup server onto
// POST /suggestions, GET /domains/{fqdn}, POST /domains/{fqdn}/rate,
// GET /health and GET /metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/didip/tollbooth/v8"
	"github.com/didip/tollbooth/v8/limiter"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/exddc/domain-discovery-go/internal/apierr"
	"github.com/exddc/domain-discovery-go/internal/config"
	"github.com/exddc/domain-discovery-go/internal/llm"
	"github.com/exddc/domain-discovery-go/internal/metrics"
	"github.com/exddc/domain-discovery-go/internal/models"
	"github.com/exddc/domain-discovery-go/internal/orchestrator"
	"github.com/exddc/domain-discovery-go/internal/store"

	_ "github.com/exddc/domain-discovery-go/internal/api/docs" // swagger docs
)

// APIVersion is the current version of the API.
const APIVersion = "1.0.0"

// workerStaleFactor bounds how long a worker's last_seen may age before
// /health considers it dead (SPEC_FULL.md §7's "2x recheck poll interval").
const workerStaleFactor = 2

// Server wraps chi router with the Orchestrator and Store it fronts.
type Server struct {
	router *chi.Mux
	config *config.Config

	Orchestrator *orchestrator.Orchestrator
	Store        store.Store
}

// NewServer configures the middleware stack: tollbooth, chi logging, panic
// recovery, plus the suggestion/domain/health/metrics/docs routes.
func NewServer(cfg *config.Config, orch *orchestrator.Orchestrator, st store.Store) *Server {
	s := &Server{router: chi.NewRouter(), config: cfg, Orchestrator: orch, Store: st}

	if cfg.GetRateLimitRequestsPerSecond() > 0 {
		lmt := tollbooth.NewLimiter(
			float64(cfg.GetRateLimitRequestsPerSecond()),
			&limiter.ExpirableOptions{DefaultExpirationTTL: 10 * time.Minute},
		)
		lmt.SetBurst(cfg.GetRateLimitBurstSize())

		ipSource := os.Getenv("RATE_LIMIT_IP_SOURCE")
		if ipSource == "" {
			ipSource = "RemoteAddr"
		}
		lmt.SetIPLookup(limiter.IPLookup{Name: ipSource, IndexFromRight: 0})
		lmt.SetMessage(`{"error":"rate limit exceeded"}`)
		lmt.SetMessageContentType("application/json")

		s.router.Use(func(next http.Handler) http.Handler {
			return tollbooth.HTTPMiddleware(lmt)(next)
		})
	}

	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)

	s.router.Post("/suggestions", s.handleSuggestions)
	s.router.Get("/domains/{fqdn}", s.handleGetDomain)
	s.router.Post("/domains/{fqdn}/rate", s.handleRateDomain)
	s.router.Get("/health", s.handleHealthCheck)
	s.router.Head("/health", s.handleHealthCheck)
	s.router.Get("/metrics", s.handleMetrics)

	s.router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/index.html", http.StatusMovedPermanently)
	})
	s.router.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))
	return s
}

// Router exposes chi.Mux for testing.
func (s *Server) Router() http.Handler { return s.router }

// Run starts the HTTP server with config-driven timeouts.
func (s *Server) Run(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.config.Server.IdleTimeout) * time.Second,
	}
	return srv.ListenAndServe()
}

// handleSuggestions generates and checks candidate domains for a description
// @Summary Request domain suggestions
// @Description Run the suggestion orchestrator to find available domains for a description, buffered or streamed via SSE.
// @Tags Suggestions
// @Accept json
// @Produce json
// @Produce text/event-stream
// @Param request body models.SuggestionRequest true "Suggestion request"
// @Success 200 {object} models.CompleteEvent "Suggestion results"
// @Failure 400 {object} apierr.Error "Invalid input"
// @Failure 503 {object} apierr.Error "Service unavailable"
// @Router /suggestions [post]
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	var req models.SuggestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondAPIError(w, apierr.New(apierr.CodeInvalidInput, "invalid request body", false))
		return
	}

	metrics.APIRequestsTotal.WithLabelValues("suggestions", "accepted").Inc()

	if req.Description == "" {
		s.respondAPIError(w, apierr.New(apierr.CodeInvalidInput, "description is required", false))
		return
	}
	if req.TargetCount <= 0 {
		s.respondAPIError(w, apierr.New(apierr.CodeInvalidInput, "target_count must be positive", false))
		return
	}
	if req.PromptType == models.PromptTypeSimilar && req.SourceFQDN == "" {
		s.respondAPIError(w, apierr.New(apierr.CodeInvalidInput, "source_fqdn is required for prompt_type=similar", false))
		return
	}

	var prefs *llm.Preferences
	raterKey := raterKeyFor(req.UserID, req.AnonID)
	if req.PromptType == models.PromptTypePersonalized && raterKey != "" && s.Store != nil {
		p, err := llm.PreferencesFromRatings(r.Context(), s.Store, raterKey)
		if err == nil {
			prefs = p
		}
	}

	orchReq := orchestrator.Request{
		Description: req.Description,
		TargetCount: req.TargetCount,
		PromptType:  req.PromptType,
		UserID:      req.UserID,
		AnonID:      req.AnonID,
		SourceFQDN:  req.SourceFQDN,
		Prefs:       prefs,
	}

	if req.Stream {
		s.streamSuggestions(w, r, orchReq)
		return
	}
	s.bufferedSuggestions(w, r, orchReq)
}

func (s *Server) bufferedSuggestions(w http.ResponseWriter, r *http.Request, req orchestrator.Request) {
	sink := orchestrator.NewBufferSink()
	s.Orchestrator.Run(r.Context(), req, sink)

	if sink.Err != nil {
		s.respondAPIError(w, sink.Err)
		return
	}

	respondJSON(w, http.StatusOK, models.CompleteEvent{
		Results:        sink.Result.Records,
		AvailableCount: sink.Result.AvailableCount,
		Total:          sink.Result.Total,
		ReachedTarget:  sink.Result.ReachedTarget,
	})
}

func (s *Server) streamSuggestions(w http.ResponseWriter, r *http.Request, req orchestrator.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondAPIError(w, apierr.New(apierr.CodeInternalError, "streaming unsupported by this transport", false))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sink := orchestrator.NewStreamSink(8)
	go s.Orchestrator.Run(r.Context(), req, sink)

	for ev := range sink.Events {
		writeSSEEvent(w, ev)
		flusher.Flush()
	}
}

func writeSSEEvent(w http.ResponseWriter, ev orchestrator.Event) {
	var payload interface{}
	switch ev.Type {
	case orchestrator.EventSuggestions:
		payload = ev.Suggestions
	case orchestrator.EventComplete:
		payload = ev.Complete
	case orchestrator.EventError:
		payload = ev.Err
	default:
		payload = struct{}{}
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, b)
}

// handleGetDomain returns the current stored record for a domain
// @Summary Get a domain record
// @Description Return the current stored record for a domain.
// @Tags Domains
// @Produce json
// @Param fqdn path string true "Fully-qualified domain name"
// @Success 200 {object} models.DomainRecord "Domain record"
// @Failure 404 {object} apierr.Error "Domain not found"
// @Router /domains/{fqdn} [get]
func (s *Server) handleGetDomain(w http.ResponseWriter, r *http.Request) {
	fqdn := chi.URLParam(r, "fqdn")
	if s.Store == nil {
		s.respondAPIError(w, apierr.New(apierr.CodeInternalError, "store not configured", false))
		return
	}

	rec, ok, err := s.Store.GetDomain(r.Context(), fqdn)
	if err != nil {
		s.respondAPIError(w, apierr.Wrap(apierr.CodeInternalError, "failed to read domain record", false, err))
		return
	}
	if !ok {
		s.respondAPIError(w, apierr.New(apierr.CodeDomainNotFound, "domain not found", false))
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// handleRateDomain casts or flips a +1/-1 rating on a domain
// @Summary Rate a domain
// @Description Cast or flip a +1/-1 rating on a domain.
// @Tags Domains
// @Accept json
// @Produce json
// @Param fqdn path string true "Fully-qualified domain name"
// @Param request body models.RateDomainRequest true "Rating request"
// @Success 200 {object} models.DomainRecord "Updated domain record"
// @Failure 400 {object} apierr.Error "Invalid input"
// @Failure 404 {object} apierr.Error "Domain not found"
// @Router /domains/{fqdn}/rate [post]
func (s *Server) handleRateDomain(w http.ResponseWriter, r *http.Request) {
	fqdn := chi.URLParam(r, "fqdn")

	var req models.RateDomainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondAPIError(w, apierr.New(apierr.CodeInvalidInput, "invalid request body", false))
		return
	}
	if req.Vote != 1 && req.Vote != -1 {
		s.respondAPIError(w, apierr.New(apierr.CodeInvalidInput, "vote must be 1 or -1", false))
		return
	}
	raterKey := raterKeyFor(req.UserID, req.AnonID)
	if raterKey == "" {
		s.respondAPIError(w, apierr.New(apierr.CodeInvalidInput, "user_id or anon_id is required", false))
		return
	}
	if s.Store == nil {
		s.respondAPIError(w, apierr.New(apierr.CodeInternalError, "store not configured", false))
		return
	}

	rec, err := s.Store.RateDomain(r.Context(), fqdn, raterKey, req.Vote)
	if err != nil {
		if errors.Is(err, store.ErrDomainNotFound) {
			s.respondAPIError(w, apierr.New(apierr.CodeDomainNotFound, "domain not found", false))
			return
		}
		s.respondAPIError(w, apierr.Wrap(apierr.CodeInternalError, "failed to save rating", false, err))
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// raterKeyFor picks a stable rater identity, preferring the authenticated
// user over the anonymous fallback (spec.md §7's migrate-on-login path
// keeps both keys distinct until migration runs).
func raterKeyFor(userID, anonID string) string {
	if userID != "" {
		return "user:" + userID
	}
	if anonID != "" {
		return "anon:" + anonID
	}
	return ""
}

// handleHealthCheck returns degraded if no worker has reported recently
// @Summary Health check
// @Description Report API liveness and worker availability.
// @Tags System
// @Produce json
// @Success 200 {object} models.HealthResponse "Service healthy"
// @Failure 503 {object} models.HealthResponse "Service degraded"
// @Router /health [get]
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.HealthResponse{Status: "ok"}

	if s.Store != nil {
		if degraded, warning := s.workerPoolDegraded(r.Context()); degraded {
			health.Status = "degraded"
			health.Warning = warning
		}
	}

	if health.Status == "degraded" {
		respondJSON(w, http.StatusServiceUnavailable, health)
		return
	}
	respondJSON(w, http.StatusOK, health)
}

func (s *Server) workerPoolDegraded(ctx context.Context) (bool, string) {
	workers, err := s.Store.GetWorkerMetrics(ctx)
	if err != nil {
		return true, "failed to read worker metrics"
	}
	if len(workers) == 0 {
		return true, "no workers have ever reported"
	}

	staleAfter := time.Duration(workerStaleFactor) * time.Duration(s.config.Worker.RecheckPollInterval) * time.Second
	if staleAfter <= 0 {
		staleAfter = workerStaleFactor * 30 * time.Second
	}

	now := time.Now().UTC()
	for _, w := range workers {
		if now.Sub(w.LastSeen) <= staleAfter {
			return false, ""
		}
	}
	return true, "no active workers detected"
}

// handleMetrics exposes Prometheus metrics
// @Summary Prometheus metrics
// @Description Expose application metrics in Prometheus format.
// @Tags System
// @Produce text/plain
// @Success 200 {string} string "Prometheus metrics"
// @Router /metrics [get]
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) respondAPIError(w http.ResponseWriter, apiErr *apierr.Error) {
	metrics.APIRequestsTotal.WithLabelValues("suggestions", string(apiErr.Code)).Inc()
	respondJSON(w, apierr.HTTPStatus(apiErr.Code), apiErr)
}

// LoadConfigFromEnv provides a default config path fallback.
func LoadConfigFromEnv() string {
	p := os.Getenv("CONFIG_PATH")
	if p == "" {
		p = "conf/config.yaml"
	}
	return p
}
