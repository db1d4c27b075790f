package web

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"focusmon/internal/config"
	"focusmon/internal/database"
	"focusmon/internal/models"
	"focusmon/internal/reporter"
	"focusmon/internal/tracker"
	"focusmon/pkg/window"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// FocusSource is the live side of the API, normally a *tracker.Service
type FocusSource interface {
	CurrentFocus() (window.WindowInfo, bool)
	Status() tracker.Status
}

type Handler struct {
	config   *config.Config
	repo     *database.Repository
	source   FocusSource
	reporter *reporter.Reporter
	logger   *slog.Logger
}

func NewHandler(cfg *config.Config, repo *database.Repository, source FocusSource, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		config:   cfg,
		repo:     repo,
		source:   source,
		reporter: reporter.New(cfg, repo),
		logger:   logger.With("component", "web"),
	}
}

func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/focus", h.handleFocus)
	mux.HandleFunc("/api/status", h.handleStatus)
	mux.HandleFunc("/api/transitions", h.handleTransitions)
	mux.HandleFunc("/api/transitions/latest", h.handleLatestTransition)
	mux.HandleFunc("/api/report", h.handleReport)
	mux.HandleFunc("/api/errors", h.handleErrors)

	mux.HandleFunc("/health", h.handleHealth)
}

func (h *Handler) handleFocus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	info, ok := h.source.CurrentFocus()
	if !ok {
		h.respondError(w, http.StatusNotFound, "no data")
		return
	}

	h.respondJSON(w, info)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	status := map[string]interface{}{
		"tracker":       h.source.Status(),
		"database_path": h.config.Database.Path,
	}

	latest, err := h.repo.GetLatestTransition()
	if err != nil {
		h.logger.Warn("failed to fetch latest transition", "error", err)
	}
	if latest != nil {
		status["latest_transition"] = latest
	}

	if count, err := h.repo.CountTransitions(); err == nil {
		status["transitions"] = count
	}

	h.respondJSON(w, status)
}

func (h *Handler) handleTransitions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query()

	if periodType := query.Get("period"); periodType != "" {
		period, err := h.reporter.Period(periodType)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		transitions, err := h.repo.GetTransitionsBetween(period.Start, period.End)
		if err != nil {
			h.respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to fetch transitions: %v", err))
			return
		}
		h.respondJSON(w, nonNil(transitions))
		return
	}

	if sinceStr := query.Get("since"); sinceStr != "" {
		since, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid since: %q (want RFC 3339)", sinceStr))
			return
		}
		transitions, err := h.repo.GetTransitionsSince(since)
		if err != nil {
			h.respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to fetch transitions: %v", err))
			return
		}
		h.respondJSON(w, nonNil(transitions))
		return
	}

	limit, ok := h.parseLimit(w, r)
	if !ok {
		return
	}

	transitions, err := h.repo.ListRecentTransitions(limit)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to fetch transitions: %v", err))
		return
	}
	h.respondJSON(w, nonNil(transitions))
}

func (h *Handler) handleLatestTransition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	transition, err := h.repo.GetLatestTransition()
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to fetch latest transition: %v", err))
		return
	}

	if transition == nil {
		h.respondError(w, http.StatusNotFound, "no transitions found")
		return
	}

	h.respondJSON(w, transition)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	periodType := r.URL.Query().Get("period")
	if periodType == "" {
		periodType = "day"
	}

	if _, err := h.reporter.Period(periodType); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.reporter.GenerateReport(periodType)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to generate report: %v", err))
		return
	}

	h.respondJSON(w, report)
}

func (h *Handler) handleErrors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit, ok := h.parseLimit(w, r)
	if !ok {
		return
	}

	logs, err := h.repo.ListRecentErrors(limit)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to fetch error logs: %v", err))
		return
	}
	if logs == nil {
		logs = []*models.ErrorLog{}
	}
	h.respondJSON(w, logs)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// parseLimit reads ?limit=, writing a 400 and returning false when invalid
func (h *Handler) parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return defaultLimit, true
	}

	l, err := strconv.Atoi(limitStr)
	if err != nil || l <= 0 {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit: %q", limitStr))
		return 0, false
	}
	return min(l, maxLimit), true
}

func nonNil(transitions []*models.FocusTransition) []*models.FocusTransition {
	if transitions == nil {
		return []*models.FocusTransition{}
	}
	return transitions
}

func (h *Handler) respondJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, data)
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	setCORSHeaders(w)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("error encoding JSON", "error", err)
	}
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}
