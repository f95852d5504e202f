// Package api exposes the sales agent over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/autostream-sales-agent/server/internal/agent/graph"
	"github.com/autostream-sales-agent/server/internal/agent/model"
	errx "github.com/autostream-sales-agent/server/internal/core/error"
	logx "github.com/autostream-sales-agent/server/pkg/logger"
)

const (
	defaultMaxRequestBodySize = 1 << 20

	serviceName        = "AutoStream AI Agent"
	healthServiceName  = "autostream-agent"
	statusRunning      = "running"
	statusHealthy      = "healthy"
	resetStatusSuccess = "success"
)

// Config wires the handler to the agent.
type Config struct {
	Runner graph.Runner
	// Gatherer backs /metrics. The route is not mounted when nil.
	Gatherer    prometheus.Gatherer
	CORSOrigins []string
	Version     string
	// MaxBodySize defaults to 1MB.
	MaxBodySize int64
}

// Handler serves the webhook, reset, health and metrics routes.
type Handler struct {
	runner      graph.Runner
	gatherer    prometheus.Gatherer
	corsOrigins []string
	version     string
	maxBodySize int64
}

type webhookRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"thread_id"`
}

type resetResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	ThreadID string `json:"thread_id"`
}

func NewHandler(cfg Config) (*Handler, error) {
	if cfg.Runner == nil {
		return nil, errors.New("api: runner is nil")
	}
	h := &Handler{
		runner:      cfg.Runner,
		gatherer:    cfg.Gatherer,
		corsOrigins: cfg.CORSOrigins,
		version:     cfg.Version,
		maxBodySize: cfg.MaxBodySize,
	}
	if h.maxBodySize <= 0 {
		h.maxBodySize = defaultMaxRequestBodySize
	}
	if len(h.corsOrigins) == 0 {
		h.corsOrigins = []string{"*"}
	}
	return h, nil
}

// Routes builds the chi router with the global middleware stack.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(AccessLog)
	r.Use(chiMiddleware.Recoverer)
	r.Use(CORS(h.corsOrigins))

	r.Get("/", h.handleRoot)
	r.Get("/health", h.handleHealth)
	r.Post("/webhook", h.handleWebhook)
	r.Post("/reset/{thread_id}", h.handleReset)
	if h.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (h *Handler) handleRoot(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]any{
		"service": serviceName,
		"status":  statusRunning,
		"version": h.version,
		"endpoints": map[string]string{
			"webhook": "/webhook",
			"reset":   "/reset/{thread_id}",
			"health":  "/health",
		},
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]string{
		"status":  statusHealthy,
		"service": healthServiceName,
	})
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" || strings.TrimSpace(req.ThreadID) == "" {
		Error(w, http.StatusBadRequest, errx.PublicMessage(errx.ErrInvalidInput))
		return
	}

	res, err := h.runner.SubmitTurn(r.Context(), model.TurnInput{
		SessionID: req.ThreadID,
		Message:   req.Message,
	})
	if err != nil {
		status := errx.StatusOf(err)
		sessLog := logx.Session(req.ThreadID)
		sessLog.Error().
			Err(err).
			Int("status", status).
			Str("request_id", chiMiddleware.GetReqID(r.Context())).
			Msg("Turn failed")
		if res.Reply == "" {
			res = model.TurnResult{
				SessionID: req.ThreadID,
				Reply:     errx.ApologyMessage,
				Status:    model.StatusError,
			}
		}
		JSON(w, status, res)
		return
	}
	JSON(w, http.StatusOK, res)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	threadID := strings.TrimSpace(chi.URLParam(r, "thread_id"))
	if threadID == "" {
		Error(w, http.StatusBadRequest, "thread_id is required")
		return
	}

	if err := h.runner.ResetSession(r.Context(), threadID); err != nil {
		status := errx.StatusOf(err)
		sessLog := logx.Session(threadID)
		sessLog.Error().Err(err).Int("status", status).Msg("Reset failed")
		Error(w, status, errx.PublicMessage(err))
		return
	}

	JSON(w, http.StatusOK, resetResponse{
		Status:   resetStatusSuccess,
		Message:  fmt.Sprintf("Conversation reset for thread %s", threadID),
		ThreadID: threadID,
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Error().Err(err).Msg("Failed to encode response")
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"status": string(model.StatusError), "error": message})
}
