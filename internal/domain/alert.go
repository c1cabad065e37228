package domain

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// FingerprintLength is the number of hex characters kept from the content hash.
const FingerprintLength = 12

// Severity is alert urgency level.
// Params: critical/warning/info constants; other lower-case values are carried as-is.
// Returns: severity used by enrichment, escalation, and routing.
type Severity string

const (
	// SeverityCritical needs immediate attention.
	SeverityCritical Severity = "critical"
	// SeverityWarning needs attention within the hour.
	SeverityWarning Severity = "warning"
	// SeverityInfo is informational.
	SeverityInfo Severity = "info"
)

// Severities lists known severities in summary order.
func Severities() []Severity {
	return []Severity{SeverityCritical, SeverityWarning, SeverityInfo}
}

// Status is alert lifecycle state.
// Params: new/acknowledged/resolved constants.
// Returns: lifecycle marker stored with the alert.
type Status string

const (
	// StatusNew is the initial state of every ingested alert.
	StatusNew Status = "new"
	// StatusAcknowledged marks an alert somebody took ownership of.
	StatusAcknowledged Status = "acknowledged"
	// StatusResolved marks a closed alert.
	StatusResolved Status = "resolved"
)

// Alert is one processed operational alert.
// Params: content fields from the reporting system plus derived tags/metadata.
// Returns: alert record owned by the pipeline during ingestion and by the store afterwards.
type Alert struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Severity    Severity       `json:"severity"`
	Source      string         `json:"source"`
	Timestamp   time.Time      `json:"timestamp"`
	Tags        []string       `json:"tags"`
	Metadata    map[string]any `json:"metadata"`
	Status      Status         `json:"status"`
	AssignedTo  string         `json:"assigned_to,omitempty"`
}

// Fingerprint derives deterministic alert ID from content fields.
// Params: alert title, source, and description.
// Returns: truncated lower-case hex digest.
func Fingerprint(title, source, description string) string {
	digest := xxhash.New()
	_, _ = digest.WriteString(title)
	_, _ = digest.WriteString(source)
	_, _ = digest.WriteString(description)
	encoded := hex.EncodeToString(digest.Sum(nil))
	return encoded[:FingerprintLength]
}

// AddTag appends tag keeping insertion order; duplicates are allowed.
func (a *Alert) AddTag(tag string) {
	a.Tags = append(a.Tags, tag)
}

// HasTag reports whether alert carries tag.
// Params: exact tag value.
// Returns: true when tag is present at least once.
func (a *Alert) HasTag(tag string) bool {
	for _, existing := range a.Tags {
		if existing == tag {
			return true
		}
	}
	return false
}

// SetMetadata stores one derived fact in metadata, allocating the map on first use.
func (a *Alert) SetMetadata(key string, value any) {
	if a.Metadata == nil {
		a.Metadata = make(map[string]any)
	}
	a.Metadata[key] = value
}

// Attribute resolves alert attribute by routing-condition name.
// Params: attribute name (id, title, description, severity, source, status, assigned_to).
// Returns: attribute value and presence flag; unset assignee and unknown names are absent.
func (a *Alert) Attribute(name string) (string, bool) {
	switch strings.TrimSpace(name) {
	case "id":
		return a.ID, true
	case "title":
		return a.Title, true
	case "description":
		return a.Description, true
	case "severity":
		return string(a.Severity), true
	case "source":
		return a.Source, true
	case "status":
		return string(a.Status), true
	case "assigned_to":
		if a.AssignedTo == "" {
			return "", false
		}
		return a.AssignedTo, true
	default:
		return "", false
	}
}

// IsAttribute reports whether name is a routable alert attribute.
func IsAttribute(name string) bool {
	switch strings.TrimSpace(name) {
	case "id", "title", "description", "severity", "source", "status", "assigned_to":
		return true
	default:
		return false
	}
}

// Clone returns a deep copy of tags and metadata map.
// Params: none.
// Returns: independent alert copy; metadata values are copied shallowly.
func (a *Alert) Clone() *Alert {
	if a == nil {
		return nil
	}
	cloned := *a
	cloned.Tags = append([]string(nil), a.Tags...)
	if a.Metadata != nil {
		cloned.Metadata = make(map[string]any, len(a.Metadata))
		for key, value := range a.Metadata {
			cloned.Metadata[key] = value
		}
	}
	return &cloned
}
