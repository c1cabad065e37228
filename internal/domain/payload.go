package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultTitle is used when payload has no usable title.
	DefaultTitle = "Unknown Alert"
	// DefaultSource is used when payload has no usable source.
	DefaultSource = "unknown"
)

// Payload is one raw alert report from a monitoring source.
// Params: arbitrary key/value document (title, description, severity, source, tags, metadata).
// Returns: input for pipeline ingestion; malformed fields are defaulted, never rejected.
type Payload map[string]any

// DecodePayload decodes one JSON object into payload.
// Params: raw JSON document bytes.
// Returns: payload or decode error when body is not a JSON object.
func DecodePayload(raw []byte) (Payload, error) {
	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode alert payload: %w", err)
	}
	if payload == nil {
		payload = Payload{}
	}
	return payload, nil
}

// NewAlert builds a fresh alert from payload fields.
// Params: raw payload and creation time.
// Returns: alert with defaults applied, content fingerprint, and status new.
func NewAlert(payload Payload, now time.Time) *Alert {
	title := payload.stringField("title", DefaultTitle)
	description := payload.stringField("description", "")
	source := payload.stringField("source", DefaultSource)
	severity := Severity(strings.ToLower(payload.stringField("severity", string(SeverityInfo))))

	return &Alert{
		ID:          Fingerprint(title, source, description),
		Title:       title,
		Description: description,
		Severity:    severity,
		Source:      source,
		Timestamp:   now,
		Tags:        payload.tagsField("tags"),
		Metadata:    payload.metadataField("metadata"),
		Status:      StatusNew,
	}
}

// stringField reads string value or returns fallback for missing/non-string values.
func (p Payload) stringField(key, fallback string) string {
	value, ok := p[key]
	if !ok || value == nil {
		return fallback
	}
	typed, ok := value.(string)
	if !ok {
		return fallback
	}
	return typed
}

// tagsField reads string list, skipping non-string items.
// Params: payload key.
// Returns: fresh tag slice, empty when missing or malformed.
func (p Payload) tagsField(key string) []string {
	tags := make([]string, 0)
	switch typed := p[key].(type) {
	case []string:
		tags = append(tags, typed...)
	case []any:
		for _, item := range typed {
			if tag, ok := item.(string); ok {
				tags = append(tags, tag)
			}
		}
	}
	return tags
}

// metadataField reads key/value map.
// Params: payload key.
// Returns: fresh metadata copy, empty when missing or malformed.
func (p Payload) metadataField(key string) map[string]any {
	metadata := make(map[string]any)
	switch typed := p[key].(type) {
	case map[string]any:
		for k, v := range typed {
			metadata[k] = v
		}
	case map[string]string:
		for k, v := range typed {
			metadata[k] = v
		}
	}
	return metadata
}
