package ingest

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"alertflow/internal/config"
	"alertflow/internal/domain"
	"alertflow/internal/pipeline"
	"alertflow/test/testutil"

	"github.com/nats-io/nats.go"
)

type fakeQueue struct {
	mu       sync.Mutex
	payloads []domain.Payload
	capacity int
}

func (q *fakeQueue) Enqueue(payload domain.Payload) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.capacity > 0 && len(q.payloads) >= q.capacity {
		return pipeline.ErrPendingFull
	}
	q.payloads = append(q.payloads, payload)
	return nil
}

func (q *fakeQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.payloads)
}

func TestNATSHandlerEnqueuesPayloads(t *testing.T) {
	t.Parallel()

	queue := &fakeQueue{}
	handler := newNATSHandler(queue, testLogger())

	handler(&nats.Msg{Subject: "alertflow.alerts", Data: []byte(`{"title":"DB down"}`)})
	handler(&nats.Msg{Subject: "alertflow.alerts", Data: []byte(`[{"title":"a"},{"title":"b"}]`)})
	handler(&nats.Msg{Subject: "alertflow.alerts", Data: []byte(`not-json`)})

	if queue.count() != 3 {
		t.Fatalf("expected 3 queued payloads, got %d", queue.count())
	}
	if queue.payloads[0]["title"] != "DB down" || queue.payloads[2]["title"] != "b" {
		t.Fatalf("unexpected queue order: %+v", queue.payloads)
	}
}

func TestNATSHandlerStopsWhenBufferFull(t *testing.T) {
	t.Parallel()

	queue := &fakeQueue{capacity: 1}
	handler := newNATSHandler(queue, testLogger())
	handler(&nats.Msg{Subject: "alertflow.alerts", Data: []byte(`[{"title":"a"},{"title":"b"},{"title":"c"}]`)})

	if queue.count() != 1 {
		t.Fatalf("expected 1 queued payload, got %d", queue.count())
	}
}

func TestNATSSubscriberRepliesWithQueuedCount(t *testing.T) {
	url := testutil.StartNATSServer(t)

	queue := &fakeQueue{}
	cfg := config.NATSIngestConfig{Enabled: true, URL: []string{url}, Subject: "alertflow.test", QueueGroup: "alertflow"}
	subscriber, err := NewNATSSubscriber(cfg, queue, testLogger())
	if err != nil {
		t.Fatalf("NewNATSSubscriber: %v", err)
	}
	defer func() {
		if err := subscriber.Close(); err != nil {
			t.Fatalf("close subscriber: %v", err)
		}
	}()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer nc.Close()

	message, err := nc.Request(cfg.Subject, []byte(`[{"title":"a"},{"title":"b"}]`), 2*time.Second)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	var reply natsReply
	if err := json.Unmarshal(message.Data, &reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if reply.Queued != 2 || reply.Error != "" {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	if queue.count() != 2 {
		t.Fatalf("expected 2 queued payloads, got %d", queue.count())
	}
}
