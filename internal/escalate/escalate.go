// Package escalate upgrades alert severity on failure keywords and assigns owning teams.
package escalate

import (
	"log/slog"
	"strings"

	"alertflow/internal/domain"
)

// TagAutoEscalated marks alerts upgraded by keyword escalation.
const TagAutoEscalated = "auto_escalated"

// Policy holds escalation keywords and source ownership table.
// Params: lower-case description keywords and exact source to team mapping.
// Returns: data-driven escalation rules.
type Policy struct {
	Keywords []string
	Owners   map[string]string
}

// DefaultPolicy returns built-in escalation keywords and owners.
func DefaultPolicy() Policy {
	return Policy{
		Keywords: []string{"down", "failed", "error", "timeout"},
		Owners: map[string]string{
			"kubernetes": "k8s_team",
			"aws":        "cloud_team",
			"database":   "dba_team",
		},
	}
}

// Engine applies escalation policy to alerts.
type Engine struct {
	policy Policy
	logger *slog.Logger
}

// New creates escalation engine.
// Params: policy (keywords lower-cased on build) and optional logger.
// Returns: engine ready to escalate alerts.
func New(policy Policy, logger *slog.Logger) *Engine {
	keywords := make([]string, 0, len(policy.Keywords))
	for _, keyword := range policy.Keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword != "" {
			keywords = append(keywords, keyword)
		}
	}
	owners := make(map[string]string, len(policy.Owners))
	for source, team := range policy.Owners {
		owners[source] = team
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		policy: Policy{Keywords: keywords, Owners: owners},
		logger: logger,
	}
}

// Escalate upgrades warning alerts whose description has a failure keyword and assigns owner by source.
// Params: enriched alert, mutated in place.
// Returns: the same alert for chaining.
func (e *Engine) Escalate(alert *domain.Alert) *domain.Alert {
	if alert == nil {
		return nil
	}

	// Only warning is upgraded; info alerts with the same keywords stay info.
	if alert.Severity == domain.SeverityWarning && e.hasKeyword(alert.Description) {
		alert.Severity = domain.SeverityCritical
		alert.AddTag(TagAutoEscalated)
		e.logger.Info("alert auto-escalated", "alert_id", alert.ID, "severity", string(alert.Severity))
	}

	if team, ok := e.policy.Owners[alert.Source]; ok {
		alert.AssignedTo = team
	}
	return alert
}

func (e *Engine) hasKeyword(description string) bool {
	lowered := strings.ToLower(description)
	for _, keyword := range e.policy.Keywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}
