package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	distributionengine "profitshare/contexts/finance-core/distribution-engine"
	domainerrors "profitshare/contexts/finance-core/distribution-engine/domain/errors"
	httptransport "profitshare/contexts/finance-core/distribution-engine/transport/http"
	_ "profitshare/internal/platform/httpserver/docs"
)

const actorHeader = "X-Actor-Id"

type Options struct {
	Addr          string
	EnableMetrics bool
	Logger        *slog.Logger
}

type Server struct {
	router chi.Router
	logger *slog.Logger
	addr   string
	engine distributionengine.Module
}

func New(engine distributionengine.Module, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	addr := opts.Addr
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		router: chi.NewRouter(),
		logger: logger,
		addr:   addr,
		engine: engine,
	}
	s.registerRoutes(opts.EnableMetrics)
	return s
}

// Handler exposes the router for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server.ListenAndServe()
}

func (s *Server) registerRoutes(enableMetrics bool) {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if enableMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}
	r.Handle("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/v1", func(v1 chi.Router) {
		v1.Post("/profit-share/runs", s.handleRunDistribution)
		v1.Post("/profit-share/custom", s.handleCustomDistribution)
		v1.Get("/profit-share/ledger", s.handleListLedger)
		v1.Get("/profit-share/stats", s.handleStats)

		v1.Post("/referrals/events", s.handleReferralEvent)
		v1.Get("/referrals/{referrer_id}", s.handleListReferrals)

		v1.Get("/audit-logs", s.handleListAudit)

		v1.Get("/settings", s.handleGetSettings)
		v1.Put("/settings/{section}", s.handleUpdateSettings)

		v1.Post("/credit-holds/{subject_id}/release", s.handleReleaseHold)
	})
}

func (s *Server) handleRunDistribution(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req httptransport.RunDistributionRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}
	resp, err := s.engine.Handler.RunDistributionHandler(r.Context(), actorID, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCustomDistribution(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req httptransport.CustomDistributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.engine.Handler.CustomDistributionHandler(r.Context(), actorID, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListLedger(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, limit, ok := parsePaging(w, query.Get("page"), query.Get("limit"))
	if !ok {
		return
	}
	resp, err := s.engine.Handler.ListLedgerHandler(
		r.Context(),
		query.Get("subject_id"),
		query.Get("period_key"),
		page,
		limit,
	)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp, err := s.engine.Handler.StatsHandler(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReferralEvent(w http.ResponseWriter, r *http.Request) {
	var req httptransport.ReferralEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.engine.Handler.ReferralEventHandler(r.Context(), strings.TrimSpace(r.Header.Get(actorHeader)), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListReferrals(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, limit, ok := parsePaging(w, query.Get("page"), query.Get("limit"))
	if !ok {
		return
	}
	resp, err := s.engine.Handler.ListReferralsHandler(r.Context(), chi.URLParam(r, "referrer_id"), page, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, limit, ok := parsePaging(w, query.Get("page"), query.Get("limit"))
	if !ok {
		return
	}
	resp, err := s.engine.Handler.ListAuditHandler(r.Context(), query.Get("action"), page, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	resp, err := s.engine.Handler.GetSettingsHandler(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req httptransport.UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.engine.Handler.UpdateSettingsHandler(r.Context(), actorID, chi.URLParam(r, "section"), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReleaseHold(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req httptransport.ReleaseHoldRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}
	resp, err := s.engine.Handler.ReleaseHoldHandler(r.Context(), actorID, chi.URLParam(r, "subject_id"), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domainerrors.ErrAlreadyCredited):
		writeError(w, http.StatusConflict, "already_credited", err.Error())
	case errors.Is(err, domainerrors.ErrSettingsConflict):
		writeError(w, http.StatusConflict, "settings_version_conflict", err.Error())
	case errors.Is(err, domainerrors.ErrInconsistentState):
		writeError(w, http.StatusConflict, "inconsistent_state", err.Error())
	case errors.Is(err, domainerrors.ErrInvalidRate):
		writeError(w, http.StatusBadRequest, "invalid_rate", err.Error())
	case errors.Is(err, domainerrors.ErrInvalidPeriodKey):
		writeError(w, http.StatusBadRequest, "invalid_period_key", err.Error())
	case errors.Is(err, domainerrors.ErrInvalidTierTable):
		writeError(w, http.StatusBadRequest, "invalid_tier_table", err.Error())
	case errors.Is(err, domainerrors.ErrInvalidReferral):
		writeError(w, http.StatusBadRequest, "invalid_referral", err.Error())
	case errors.Is(err, domainerrors.ErrInvalidTriggerEvent):
		writeError(w, http.StatusBadRequest, "invalid_trigger_event", err.Error())
	case errors.Is(err, domainerrors.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domainerrors.ErrNoDepositBalance):
		writeError(w, http.StatusUnprocessableEntity, "no_deposit_balance", err.Error())
	case errors.Is(err, domainerrors.ErrNoTierMatch):
		writeError(w, http.StatusUnprocessableEntity, "no_tier_match", err.Error())
	case errors.Is(err, domainerrors.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "account_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrHoldNotFound):
		writeError(w, http.StatusNotFound, "hold_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrUnknownSection):
		writeError(w, http.StatusNotFound, "unknown_section", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, httptransport.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func requireActor(w http.ResponseWriter, r *http.Request) (string, bool) {
	actorID := strings.TrimSpace(r.Header.Get(actorHeader))
	if actorID == "" {
		writeError(w, http.StatusUnauthorized, "missing_actor", actorHeader+" header is required")
		return "", false
	}
	return actorID, true
}

// decodeOptionalBody accepts an empty body as the zero request.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return false
	}
	return true
}

func parsePaging(w http.ResponseWriter, pageRaw string, limitRaw string) (int, int, bool) {
	page, limit := 0, 0
	if pageRaw != "" {
		value, err := strconv.Atoi(pageRaw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_page", "page must be an integer")
			return 0, 0, false
		}
		page = value
	}
	if limitRaw != "" {
		value, err := strconv.Atoi(limitRaw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return 0, 0, false
		}
		limit = value
	}
	return page, limit, true
}
