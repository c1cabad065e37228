// Package routing selects notification channels for alerts from ordered rules.
package routing

import (
	"log/slog"
	"time"

	"alertflow/internal/domain"
)

// Default channel names referenced by the built-in rule set.
const (
	ChannelEmail  = "email"
	ChannelChat   = "chat"
	ChannelPaging = "paging"
)

// DefaultRules returns built-in routing rules in priority order.
func DefaultRules() []domain.RoutingRule {
	return []domain.RoutingRule{
		{
			Name:           "critical_alerts",
			Conditions:     map[string]string{"severity": string(domain.SeverityCritical)},
			Channels:       []string{ChannelEmail, ChannelChat, ChannelPaging},
			EscalationTime: 15 * time.Minute,
		},
		{
			Name:           "warning_alerts",
			Conditions:     map[string]string{"severity": string(domain.SeverityWarning)},
			Channels:       []string{ChannelEmail, ChannelChat},
			EscalationTime: time.Hour,
		},
		{
			Name:           "info_alerts",
			Conditions:     map[string]string{"severity": string(domain.SeverityInfo)},
			Channels:       []string{ChannelEmail},
			EscalationTime: 4 * time.Hour,
		},
		{
			Name:           "kubernetes_alerts",
			Conditions:     map[string]string{"source": "kubernetes"},
			Channels:       []string{ChannelEmail, ChannelChat},
			EscalationTime: 30 * time.Minute,
		},
	}
}

// Router evaluates routing rules against alerts.
// Params: rules in priority order and optional logger.
// Returns: read-only router safe for concurrent use.
type Router struct {
	rules  []domain.RoutingRule
	logger *slog.Logger
}

// NewRouter creates router, falling back to DefaultRules for an empty rule list.
// Params: configured rules and optional logger.
// Returns: router owning a copy of the rules.
func NewRouter(rules []domain.RoutingRule, logger *slog.Logger) *Router {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	copied := make([]domain.RoutingRule, len(rules))
	copy(copied, rules)
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Router{rules: copied, logger: logger}
}

// Rules returns router rules in priority order.
func (r *Router) Rules() []domain.RoutingRule {
	out := make([]domain.RoutingRule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Route returns unique channel names for alert in first-seen order across firing rules.
// Params: processed alert.
// Returns: ordered deduplicated channel names (empty when nothing fires).
func (r *Router) Route(alert *domain.Alert) []string {
	return Route(alert, r.Match(alert))
}

// Match returns rules whose conditions all equal alert attributes.
// Params: processed alert.
// Returns: firing rules in priority order.
func (r *Router) Match(alert *domain.Alert) []domain.RoutingRule {
	if alert == nil {
		return nil
	}
	matched := make([]domain.RoutingRule, 0, len(r.rules))
	for _, rule := range r.rules {
		if !Matches(rule, alert) {
			continue
		}
		r.logger.Debug("alert matched routing rule", "alert_id", alert.ID, "rule", rule.Name)
		matched = append(matched, rule)
	}
	return matched
}

// EscalationTime returns shortest escalation time among firing rules.
// Params: processed alert.
// Returns: duration and true when at least one firing rule defines one.
func (r *Router) EscalationTime(alert *domain.Alert) (time.Duration, bool) {
	var (
		shortest time.Duration
		found    bool
	)
	for _, rule := range r.Match(alert) {
		if rule.EscalationTime <= 0 {
			continue
		}
		if !found || rule.EscalationTime < shortest {
			shortest = rule.EscalationTime
			found = true
		}
	}
	return shortest, found
}

// Matches reports whether every rule condition equals the alert attribute.
// Params: rule and alert; missing attributes never match.
// Returns: true when rule fires.
func Matches(rule domain.RoutingRule, alert *domain.Alert) bool {
	for name, want := range rule.Conditions {
		got, ok := alert.Attribute(name)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// Route collects channels of rules that fire for alert, dropping repeats after first sight.
// Params: alert and rules in priority order.
// Returns: ordered unique channel names.
func Route(alert *domain.Alert, rules []domain.RoutingRule) []string {
	channels := make([]string, 0)
	if alert == nil {
		return channels
	}
	seen := make(map[string]struct{})
	for _, rule := range rules {
		if !Matches(rule, alert) {
			continue
		}
		for _, channel := range rule.Channels {
			if _, ok := seen[channel]; ok {
				continue
			}
			seen[channel] = struct{}{}
			channels = append(channels, channel)
		}
	}
	return channels
}
