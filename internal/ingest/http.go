package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"alertflow/internal/domain"
	"alertflow/internal/pipeline"
	"alertflow/internal/state"

	"github.com/go-chi/chi/v5"
)

// AlertPipeline is the orchestrator surface exposed over HTTP.
// Params: ingestion, query, and lifecycle operations.
// Returns: pipeline results and store views.
type AlertPipeline interface {
	Ingest(ctx context.Context, payload domain.Payload) pipeline.Result
	Active(ctx context.Context) []*domain.Alert
	Get(ctx context.Context, alertID string) (*domain.Alert, error)
	Summary(ctx context.Context) state.Summary
	Acknowledge(ctx context.Context, alertID string) (*domain.Alert, error)
	Resolve(ctx context.Context, alertID string) (*domain.Alert, error)
}

// HTTPHandler serves the alert API.
// Params: pipeline receives payloads, max body limits request size.
// Returns: chi routes for alert ingest and lifecycle.
type HTTPHandler struct {
	pipeline    AlertPipeline
	maxBodySize int64
	logger      *slog.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

type batchResponse struct {
	Results []pipeline.Result `json:"results"`
}

type listResponse struct {
	Alerts []*domain.Alert `json:"alerts"`
	Count  int             `json:"count"`
}

// NewHTTPHandler creates alert API handler.
// Params: pipeline, max request body size in bytes, and optional logger.
// Returns: configured handler.
func NewHTTPHandler(p AlertPipeline, maxBodySize int64, logger *slog.Logger) *HTTPHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &HTTPHandler{pipeline: p, maxBodySize: maxBodySize, logger: logger}
}

// Routes returns router to be mounted under the alerts path.
func (h *HTTPHandler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Post("/", h.ingest)
	router.Get("/", h.list)
	router.Get("/summary", h.summary)
	router.Get("/{alertID}", h.get)
	router.Post("/{alertID}/ack", h.acknowledge)
	router.Post("/{alertID}/resolve", h.resolve)
	return router
}

// ingest decodes one payload or a batch and runs each through the pipeline.
// Params: HTTP request/response writer pair.
// Returns: 201 processed, 200 deduplicated or batch, 500 dropped, 4xx on unreadable body.
func (h *HTTPHandler) ingest(writer http.ResponseWriter, request *http.Request) {
	request.Body = http.MaxBytesReader(writer, request.Body, h.maxBodySize)
	defer request.Body.Close()
	body, err := io.ReadAll(request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(writer, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
			return
		}
		writeJSON(writer, http.StatusBadRequest, errorResponse{Error: "read request body"})
		return
	}

	decoded, err := decodePayloads(body)
	if err != nil {
		h.logger.Warn("http ingest decode failed", "remote", request.RemoteAddr, "error", err.Error())
		writeJSON(writer, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	ctx := request.Context()
	if decoded.batch {
		results := make([]pipeline.Result, 0, len(decoded.payloads))
		for _, payload := range decoded.payloads {
			results = append(results, h.pipeline.Ingest(ctx, payload))
		}
		writeJSON(writer, http.StatusOK, batchResponse{Results: results})
		return
	}

	result := h.pipeline.Ingest(ctx, decoded.payloads[0])
	writeJSON(writer, resultStatus(result.Outcome), result)
}

func (h *HTTPHandler) list(writer http.ResponseWriter, request *http.Request) {
	alerts := h.pipeline.Active(request.Context())
	if alerts == nil {
		alerts = []*domain.Alert{}
	}
	writeJSON(writer, http.StatusOK, listResponse{Alerts: alerts, Count: len(alerts)})
}

func (h *HTTPHandler) summary(writer http.ResponseWriter, request *http.Request) {
	writeJSON(writer, http.StatusOK, h.pipeline.Summary(request.Context()))
}

func (h *HTTPHandler) get(writer http.ResponseWriter, request *http.Request) {
	alert, err := h.pipeline.Get(request.Context(), chi.URLParam(request, "alertID"))
	h.writeAlert(writer, alert, err)
}

func (h *HTTPHandler) acknowledge(writer http.ResponseWriter, request *http.Request) {
	alert, err := h.pipeline.Acknowledge(request.Context(), chi.URLParam(request, "alertID"))
	h.writeAlert(writer, alert, err)
}

func (h *HTTPHandler) resolve(writer http.ResponseWriter, request *http.Request) {
	alert, err := h.pipeline.Resolve(request.Context(), chi.URLParam(request, "alertID"))
	h.writeAlert(writer, alert, err)
}

// writeAlert maps store lookup and transition errors onto HTTP statuses.
func (h *HTTPHandler) writeAlert(writer http.ResponseWriter, alert *domain.Alert, err error) {
	switch {
	case err == nil:
		writeJSON(writer, http.StatusOK, alert)
	case errors.Is(err, state.ErrNotFound):
		writeJSON(writer, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, state.ErrInvalidTransition):
		writeJSON(writer, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		h.logger.Error("alert lifecycle request failed", "error", err.Error())
		writeJSON(writer, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// resultStatus maps pipeline outcome to HTTP status.
func resultStatus(outcome pipeline.Outcome) int {
	switch outcome {
	case pipeline.OutcomeProcessed:
		return http.StatusCreated
	case pipeline.OutcomeDeduplicated:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(writer http.ResponseWriter, status int, value any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(value)
}
