// Package server implements the HTTP surface of the recommendation service.
//
// All routes expect an x-user-id header forwarded by the Gateway.
//
// Routes:
//
//	GET  /health                    → liveness probe
//	POST /api/recommendations       → run the pipeline, stream progress as SSE
//	POST /api/recommendations/sync  → run the pipeline, return the final JSON
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"extendwork/recommend-service/internal/model"
	"extendwork/recommend-service/internal/recommend"
)

// Runner is the pipeline surface the handlers need.
type Runner interface {
	Run(ctx context.Context, req recommend.Request, sink recommend.Sink) (*model.Result, error)
	Recommend(ctx context.Context, req recommend.Request) (*model.Result, error)
}

// recommendRequest is the JSON body of both recommendation routes.
type recommendRequest struct {
	Profile     model.Profile     `json:"profile" validate:"required"`
	Preferences model.Preferences `json:"preferences"`
}

// ─── Handler ─────────────────────────────────────────────────────────────────

// Handler holds shared dependencies.
type Handler struct {
	pipeline Runner
	validate *validator.Validate
	logger   *zap.Logger
}

// NewHandler returns a configured Handler.
func NewHandler(pipeline Runner, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		pipeline: pipeline,
		validate: validator.New(),
		logger:   logger,
	}
}

// RegisterRoutes mounts all routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/recommendations", h.handleRecommendations)
	mux.HandleFunc("/api/recommendations/sync", h.handleRecommendationsSync)
}

// ─── Individual handlers ──────────────────────────────────────────────────────

// handleRecommendations handles POST /api/recommendations as an SSE stream.
// Each progress event is one "data: <json>" frame; the stream ends after the
// single terminal event. A client disconnect stops the frames but not the
// run: the pipeline keeps going so its results land in the catalog and the
// result cache.
func (h *Handler) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	req, userID, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		jsonError(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sink := &sseSink{w: w, flusher: flusher, clientCtx: r.Context()}

	// Detached from the request context so a disconnect does not cancel
	// in-flight provider calls or the ingestion.
	runCtx := context.WithoutCancel(r.Context())

	if _, err := h.pipeline.Run(runCtx, recommend.Request{
		UserID:      userID,
		Profile:     req.Profile,
		Preferences: req.Preferences,
	}, sink); err != nil {
		// The terminal error frame already went out (or the client is gone).
		h.logger.Warn("recommendation run failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}

// handleRecommendationsSync handles POST /api/recommendations/sync.
func (h *Handler) handleRecommendationsSync(w http.ResponseWriter, r *http.Request) {
	req, userID, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	result, err := h.pipeline.Recommend(r.Context(), recommend.Request{
		UserID:      userID,
		Profile:     req.Profile,
		Preferences: req.Preferences,
	})
	if err != nil {
		h.logger.Warn("recommendation run failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		jsonError(w, "could not build recommendations", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// decodeRequest authenticates, decodes and validates the request body. On
// failure the response has been written and ok is false.
func (h *Handler) decodeRequest(w http.ResponseWriter, r *http.Request) (req recommendRequest, userID string, ok bool) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return req, "", false
	}

	userID = r.Header.Get("x-user-id")
	if userID == "" {
		jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
		return req, "", false
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return req, "", false
	}
	if err := h.validate.Struct(req); err != nil {
		jsonError(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return req, "", false
	}

	return req, userID, true
}

// ─── SSE sink ────────────────────────────────────────────────────────────────

// sseSink writes progress events as SSE frames. Emit reports an error once
// the client has disconnected so the tracker can stop pushing frames while
// the pipeline finishes its work.
type sseSink struct {
	w         http.ResponseWriter
	flusher   http.Flusher
	clientCtx context.Context

	mu   sync.Mutex
	dead bool
}

func (s *sseSink) Emit(ev model.ProgressEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dead {
		return fmt.Errorf("client disconnected")
	}
	if err := s.clientCtx.Err(); err != nil {
		s.dead = true
		return fmt.Errorf("client disconnected: %w", err)
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		s.dead = true
		return fmt.Errorf("write event: %w", err)
	}
	s.flusher.Flush()
	return nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
