package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"alertflow/internal/config"
	"alertflow/internal/domain"
	"alertflow/internal/pipeline"

	"github.com/nats-io/nats.go"
)

// PayloadQueue buffers payloads for the next processing pass.
type PayloadQueue interface {
	Enqueue(payload domain.Payload) error
}

// NATSSubscriber consumes alert payloads via core NATS queue group and feeds the pending buffer.
// Params: NATS connection, queue subscription, and payload queue.
// Returns: NATS ingest lifecycle handle.
type NATSSubscriber struct {
	nc  *nats.Conn
	sub *nats.Subscription
}

type natsReply struct {
	Queued int    `json:"queued"`
	Error  string `json:"error,omitempty"`
}

// NewNATSSubscriber connects and starts queue subscription for alert ingestion.
// Params: ingest NATS config, payload queue, and optional logger.
// Returns: started subscriber or initialization error.
func NewNATSSubscriber(cfg config.NATSIngestConfig, queue PayloadQueue, logger *slog.Logger) (*NATSSubscriber, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	nc, err := nats.Connect(strings.Join(cfg.URL, ","), nats.Name("alertflow-ingest"))
	if err != nil {
		return nil, fmt.Errorf("connect nats ingest: %w", err)
	}

	sub, err := nc.QueueSubscribe(cfg.Subject, cfg.QueueGroup, newNATSHandler(queue, logger))
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("queue subscribe %q/%q: %w", cfg.Subject, cfg.QueueGroup, err)
	}
	if err := nc.Flush(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("flush nats subscription: %w", err)
	}
	logger.Info("nats ingest subscribed", "subject", cfg.Subject, "queue_group", cfg.QueueGroup)
	return &NATSSubscriber{nc: nc, sub: sub}, nil
}

// newNATSHandler decodes message body and enqueues every payload it carries.
// Params: payload queue and logger.
// Returns: message handler; replies with queued count when message has reply subject.
func newNATSHandler(queue PayloadQueue, logger *slog.Logger) nats.MsgHandler {
	return func(message *nats.Msg) {
		decoded, err := decodePayloads(message.Data)
		if err != nil {
			logger.Warn("nats ingest decode failed", "subject", message.Subject, "error", err.Error())
			respond(message, natsReply{Error: err.Error()}, logger)
			return
		}

		queued := 0
		for _, payload := range decoded.payloads {
			if err := queue.Enqueue(payload); err != nil {
				if errors.Is(err, pipeline.ErrPendingFull) {
					logger.Warn("nats ingest buffer full", "subject", message.Subject, "dropped", len(decoded.payloads)-queued)
				} else {
					logger.Error("nats ingest enqueue failed", "subject", message.Subject, "error", err.Error())
				}
				respond(message, natsReply{Queued: queued, Error: err.Error()}, logger)
				return
			}
			queued++
		}
		respond(message, natsReply{Queued: queued}, logger)
	}
}

// respond answers request-style publishes; plain publishes have no reply subject.
func respond(message *nats.Msg, reply natsReply, logger *slog.Logger) {
	if message.Reply == "" {
		return
	}
	body, err := json.Marshal(reply)
	if err != nil {
		return
	}
	if err := message.Respond(body); err != nil {
		logger.Warn("nats ingest reply failed", "subject", message.Subject, "error", err.Error())
	}
}

// Close drains NATS subscription and closes connection.
// Params: none.
// Returns: drain error.
func (s *NATSSubscriber) Close() error {
	if s.sub != nil {
		if err := s.sub.Drain(); err != nil {
			s.nc.Close()
			return err
		}
	}
	s.nc.Close()
	return nil
}
