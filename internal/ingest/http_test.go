package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"alertflow/internal/domain"
	"alertflow/internal/pipeline"
	"alertflow/internal/state"
)

type fakePipeline struct {
	mu       sync.Mutex
	payloads []domain.Payload
	outcomes []pipeline.Outcome
	alerts   map[string]*domain.Alert
	ackErr   error
}

func (p *fakePipeline) Ingest(_ context.Context, payload domain.Payload) pipeline.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	outcome := pipeline.OutcomeProcessed
	if len(p.outcomes) > 0 {
		outcome = p.outcomes[0]
		p.outcomes = p.outcomes[1:]
	}
	switch outcome {
	case pipeline.OutcomeProcessed:
		return pipeline.Result{Outcome: outcome, Alert: &domain.Alert{ID: fmt.Sprintf("id%d", len(p.payloads)), Status: domain.StatusNew}}
	case pipeline.OutcomeDeduplicated:
		return pipeline.Result{Outcome: outcome, DuplicateOf: "id1"}
	default:
		return pipeline.Result{Outcome: outcome, Reason: "dispatch alert: boom"}
	}
}

func (p *fakePipeline) Active(context.Context) []*domain.Alert {
	out := make([]*domain.Alert, 0, len(p.alerts))
	for _, alert := range p.alerts {
		out = append(out, alert)
	}
	return out
}

func (p *fakePipeline) Get(_ context.Context, alertID string) (*domain.Alert, error) {
	alert, ok := p.alerts[alertID]
	if !ok {
		return nil, fmt.Errorf("alert %q: %w", alertID, state.ErrNotFound)
	}
	return alert, nil
}

func (p *fakePipeline) Summary(context.Context) state.Summary {
	return state.Summary{ActiveAlerts: len(p.alerts), TotalProcessed: len(p.payloads)}
}

func (p *fakePipeline) Acknowledge(ctx context.Context, alertID string) (*domain.Alert, error) {
	if p.ackErr != nil {
		return nil, p.ackErr
	}
	alert, err := p.Get(ctx, alertID)
	if err != nil {
		return nil, err
	}
	alert.Status = domain.StatusAcknowledged
	return alert, nil
}

func (p *fakePipeline) Resolve(ctx context.Context, alertID string) (*domain.Alert, error) {
	alert, err := p.Get(ctx, alertID)
	if err != nil {
		return nil, err
	}
	alert.Status = domain.StatusResolved
	delete(p.alerts, alertID)
	return alert, nil
}

func serve(t *testing.T, handler *HTTPHandler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	request := httptest.NewRequest(method, path, strings.NewReader(body))
	response := httptest.NewRecorder()
	handler.Routes().ServeHTTP(response, request)
	return response
}

func TestHTTPIngestSinglePayload(t *testing.T) {
	t.Parallel()

	sink := &fakePipeline{}
	handler := NewHTTPHandler(sink, 1<<20, nil)

	response := serve(t, handler, http.MethodPost, "/", `{"title":"DB down","severity":"WARNING","metadata":{"attempt":3}}`)
	if response.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, response.Code)
	}
	if len(sink.payloads) != 1 || sink.payloads[0]["title"] != "DB down" {
		t.Fatalf("unexpected payloads: %+v", sink.payloads)
	}

	var result pipeline.Result
	if err := json.Unmarshal(response.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Outcome != pipeline.OutcomeProcessed || result.Alert == nil || result.Alert.ID != "id1" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestHTTPIngestOutcomeStatuses(t *testing.T) {
	t.Parallel()

	cases := []struct {
		outcome pipeline.Outcome
		status  int
	}{
		{outcome: pipeline.OutcomeDeduplicated, status: http.StatusOK},
		{outcome: pipeline.OutcomeDropped, status: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(string(tc.outcome), func(t *testing.T) {
			t.Parallel()

			sink := &fakePipeline{outcomes: []pipeline.Outcome{tc.outcome}}
			response := serve(t, NewHTTPHandler(sink, 1<<20, nil), http.MethodPost, "/", `{"title":"High CPU"}`)
			if response.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, response.Code)
			}
			if !strings.Contains(response.Body.String(), `"status":"`+string(tc.outcome)+`"`) {
				t.Fatalf("expected outcome in body, got %s", response.Body.String())
			}
		})
	}
}

func TestHTTPIngestBatch(t *testing.T) {
	t.Parallel()

	sink := &fakePipeline{outcomes: []pipeline.Outcome{pipeline.OutcomeProcessed, pipeline.OutcomeDeduplicated}}
	response := serve(t, NewHTTPHandler(sink, 1<<20, nil), http.MethodPost, "/", `[{"title":"a"},null]`)
	if response.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, response.Code)
	}

	var body batchResponse
	if err := json.Unmarshal(response.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Results) != 2 || body.Results[1].Outcome != pipeline.OutcomeDeduplicated {
		t.Fatalf("unexpected batch results: %+v", body.Results)
	}
	if len(sink.payloads) != 2 || sink.payloads[1] == nil {
		t.Fatalf("null batch item must become empty payload: %+v", sink.payloads)
	}
}

func TestHTTPIngestRejectsUnreadableBodies(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		body   string
		limit  int64
		status int
	}{
		{name: "not json", body: `title=x`, limit: 1 << 20, status: http.StatusBadRequest},
		{name: "scalar", body: `"x"`, limit: 1 << 20, status: http.StatusBadRequest},
		{name: "trailing tokens", body: `{"title":"a"}{"title":"b"}`, limit: 1 << 20, status: http.StatusBadRequest},
		{name: "empty batch", body: `[]`, limit: 1 << 20, status: http.StatusBadRequest},
		{name: "empty body", body: ``, limit: 1 << 20, status: http.StatusBadRequest},
		{name: "too large", body: `{"title":"` + strings.Repeat("x", 64) + `"}`, limit: 16, status: http.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			sink := &fakePipeline{}
			response := serve(t, NewHTTPHandler(sink, tc.limit, nil), http.MethodPost, "/", tc.body)
			if response.Code != tc.status {
				t.Fatalf("expected status %d, got %d (%s)", tc.status, response.Code, response.Body.String())
			}
			if len(sink.payloads) != 0 {
				t.Fatalf("pipeline must not be called, got %d payloads", len(sink.payloads))
			}
		})
	}
}

func TestHTTPListSummaryAndLifecycle(t *testing.T) {
	t.Parallel()

	sink := &fakePipeline{alerts: map[string]*domain.Alert{
		"abc": {ID: "abc", Title: "DB down", Status: domain.StatusNew},
	}}
	handler := NewHTTPHandler(sink, 1<<20, nil)

	list := serve(t, handler, http.MethodGet, "/", "")
	if list.Code != http.StatusOK || !strings.Contains(list.Body.String(), `"count":1`) {
		t.Fatalf("unexpected list response %d: %s", list.Code, list.Body.String())
	}

	summary := serve(t, handler, http.MethodGet, "/summary", "")
	if summary.Code != http.StatusOK || !strings.Contains(summary.Body.String(), `"active_alerts":1`) {
		t.Fatalf("unexpected summary response %d: %s", summary.Code, summary.Body.String())
	}

	get := serve(t, handler, http.MethodGet, "/abc", "")
	if get.Code != http.StatusOK {
		t.Fatalf("expected get status 200, got %d", get.Code)
	}

	ack := serve(t, handler, http.MethodPost, "/abc/ack", "")
	if ack.Code != http.StatusOK || !strings.Contains(ack.Body.String(), string(domain.StatusAcknowledged)) {
		t.Fatalf("unexpected ack response %d: %s", ack.Code, ack.Body.String())
	}

	resolve := serve(t, handler, http.MethodPost, "/abc/resolve", "")
	if resolve.Code != http.StatusOK {
		t.Fatalf("expected resolve status 200, got %d", resolve.Code)
	}

	missing := serve(t, handler, http.MethodPost, "/abc/resolve", "")
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after resolve, got %d", missing.Code)
	}
}

func TestHTTPAcknowledgeConflict(t *testing.T) {
	t.Parallel()

	sink := &fakePipeline{ackErr: fmt.Errorf("alert abc: %w", state.ErrInvalidTransition)}
	response := serve(t, NewHTTPHandler(sink, 1<<20, nil), http.MethodPost, "/abc/ack", "")
	if response.Code != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, response.Code)
	}
}

func TestHTTPRejectsUnsupportedMethod(t *testing.T) {
	t.Parallel()

	response := serve(t, NewHTTPHandler(&fakePipeline{}, 1<<20, nil), http.MethodDelete, "/", "")
	if response.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, response.Code)
	}
}
