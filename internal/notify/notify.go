package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"alertflow/internal/domain"
	"alertflow/internal/fault"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultSendTimeout bounds one channel send when neither dispatcher nor channel sets a timeout.
const DefaultSendTimeout = 5 * time.Second

// OutcomeStatus is result of one channel delivery attempt.
type OutcomeStatus string

const (
	// OutcomeSuccess means sender delivered the alert.
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomeFailed means sender reported failure or timed out.
	OutcomeFailed OutcomeStatus = "failed"
	// OutcomeSkipped means channel is unknown or disabled.
	OutcomeSkipped OutcomeStatus = "skipped"
)

// Sender is send capability for one channel type.
// Params: context bounded by send timeout, alert copy, and channel config bag.
// Returns: success flag; fault.Internal errors abort the whole ingestion.
type Sender interface {
	Type() domain.ChannelType
	Send(ctx context.Context, alert *domain.Alert, cfg domain.ChannelConfig) (bool, error)
}

// ChannelOutcome is per-channel dispatch record.
type ChannelOutcome struct {
	Channel string             `json:"channel"`
	Status  OutcomeStatus      `json:"status"`
	Type    domain.ChannelType `json:"type,omitempty"`
	Reason  string             `json:"reason,omitempty"`
}

// DispatchResult aggregates per-channel outcomes for one alert.
// Params: attempted channel count, success/failure tallies, and outcomes in routed order.
// Returns: dispatch report returned to ingestion callers.
type DispatchResult struct {
	ID                string           `json:"dispatch_id"`
	AlertID           string           `json:"alert_id"`
	ChannelsAttempted int              `json:"channels_attempted"`
	Successful        int              `json:"successful_notifications"`
	Failed            int              `json:"failed_notifications"`
	Results           []ChannelOutcome `json:"results"`
}

// Options controls dispatch execution.
type Options struct {
	Parallel    bool
	SendTimeout time.Duration
}

// Dispatcher routes alert deliveries to type-specific senders.
// Params: channel registry by name, senders by type, execution options, and logger.
// Returns: dispatcher for pipeline layer.
type Dispatcher struct {
	channels map[string]domain.NotificationChannel
	senders  map[domain.ChannelType]Sender
	opts     Options
	logger   *slog.Logger
}

// NewDispatcher builds dispatcher from channel registry and sender set.
// Params: configured channels, one sender per type, options, and optional logger.
// Returns: configured dispatcher; later duplicates of a name or type win.
func NewDispatcher(channels []domain.NotificationChannel, senders []Sender, opts Options, logger *slog.Logger) *Dispatcher {
	registry := make(map[string]domain.NotificationChannel, len(channels))
	for _, channel := range channels {
		registry[channel.Name] = channel
	}
	byType := make(map[domain.ChannelType]Sender, len(senders))
	for _, sender := range senders {
		if sender == nil {
			continue
		}
		byType[sender.Type()] = sender
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = DefaultSendTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{
		channels: registry,
		senders:  byType,
		opts:     opts,
		logger:   logger,
	}
}

// Channel returns registered channel by name.
func (d *Dispatcher) Channel(name string) (domain.NotificationChannel, bool) {
	channel, ok := d.channels[name]
	return channel, ok
}

// Dispatch delivers alert to every named channel and aggregates outcomes.
// Params: context, processed alert, and routed channel names.
// Returns: result with outcomes in input order; error only for internal failures.
func (d *Dispatcher) Dispatch(ctx context.Context, alert *domain.Alert, channelNames []string) (DispatchResult, error) {
	if alert == nil {
		return DispatchResult{}, fault.Internal(errors.New("dispatch nil alert"))
	}

	result := DispatchResult{
		ID:                uuid.NewString(),
		AlertID:           alert.ID,
		ChannelsAttempted: len(channelNames),
		Results:           make([]ChannelOutcome, len(channelNames)),
	}

	if d.opts.Parallel && len(channelNames) > 1 {
		group, groupCtx := errgroup.WithContext(ctx)
		for index, name := range channelNames {
			group.Go(func() error {
				outcome, err := d.deliver(groupCtx, alert, name)
				result.Results[index] = outcome
				return err
			})
		}
		if err := group.Wait(); err != nil {
			return DispatchResult{}, err
		}
	} else {
		for index, name := range channelNames {
			outcome, err := d.deliver(ctx, alert, name)
			if err != nil {
				return DispatchResult{}, err
			}
			result.Results[index] = outcome
		}
	}

	for _, outcome := range result.Results {
		switch outcome.Status {
		case OutcomeSuccess:
			result.Successful++
		case OutcomeFailed:
			result.Failed++
		}
	}

	d.logger.Info("notifications dispatched",
		"alert_id", alert.ID,
		"dispatch_id", result.ID,
		"attempted", result.ChannelsAttempted,
		"successful", result.Successful,
		"failed", result.Failed,
	)
	return result, nil
}

// deliver resolves one channel and runs its sender under the send timeout.
// Params: context, alert, and channel name.
// Returns: outcome record or internal failure.
func (d *Dispatcher) deliver(ctx context.Context, alert *domain.Alert, name string) (ChannelOutcome, error) {
	channel, ok := d.channels[name]
	if !ok {
		return ChannelOutcome{Channel: name, Status: OutcomeSkipped, Reason: "channel not found"}, nil
	}
	if !channel.Enabled {
		return ChannelOutcome{Channel: name, Status: OutcomeSkipped, Type: channel.Type, Reason: "channel disabled"}, nil
	}
	sender, ok := d.senders[channel.Type]
	if !ok {
		return ChannelOutcome{
			Channel: name,
			Status:  OutcomeFailed,
			Type:    channel.Type,
			Reason:  fmt.Sprintf("no sender for channel type %q", channel.Type),
		}, nil
	}

	timeout := d.opts.SendTimeout
	if seconds := channel.Config.Int("timeout_sec", 0); seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
	}
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	delivered, err := runSend(sendCtx, sender, alert.Clone(), channel.Config)
	if fault.IsInternal(err) {
		return ChannelOutcome{}, fmt.Errorf("channel %s: %w", name, err)
	}
	if err != nil {
		d.logger.Warn("notify send failed", "alert_id", alert.ID, "channel", name, "type", string(channel.Type), "error", err.Error())
		return ChannelOutcome{Channel: name, Status: OutcomeFailed, Type: channel.Type, Reason: err.Error()}, nil
	}
	if !delivered {
		d.logger.Warn("notify send reported failure", "alert_id", alert.ID, "channel", name, "type", string(channel.Type))
		return ChannelOutcome{Channel: name, Status: OutcomeFailed, Type: channel.Type, Reason: "sender reported failure"}, nil
	}
	return ChannelOutcome{Channel: name, Status: OutcomeSuccess, Type: channel.Type}, nil
}

type sendResult struct {
	delivered bool
	err       error
}

// runSend calls sender in its own goroutine so a sender ignoring ctx cannot hold dispatch past timeout.
// Params: bounded context, sender, alert copy, and channel config.
// Returns: sender result, timeout error, or internal failure for panics.
func runSend(ctx context.Context, sender Sender, alert *domain.Alert, cfg domain.ChannelConfig) (bool, error) {
	done := make(chan sendResult, 1)
	go func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				done <- sendResult{err: fault.Internal(fmt.Errorf("sender %s panicked: %v", sender.Type(), recovered))}
			}
		}()
		delivered, err := sender.Send(ctx, alert, cfg)
		done <- sendResult{delivered: delivered, err: err}
	}()

	select {
	case result := <-done:
		return result.delivered, result.err
	case <-ctx.Done():
		return false, fmt.Errorf("send timed out: %w", ctx.Err())
	}
}

// DefaultSenders returns one production sender per supported channel type.
// Params: optional shared HTTP client and logger.
// Returns: email, chat, and webhook senders.
func DefaultSenders(client *http.Client, logger *slog.Logger) []Sender {
	return []Sender{
		NewEmailSender(logger),
		NewChatSender(client, logger),
		NewWebhookSender(client, logger),
	}
}
