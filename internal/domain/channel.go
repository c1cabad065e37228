package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ChannelType identifies which send capability serves a channel.
type ChannelType string

const (
	// ChannelTypeEmail delivers over SMTP.
	ChannelTypeEmail ChannelType = "email"
	// ChannelTypeChat delivers to chat platforms (slack, mattermost, telegram).
	ChannelTypeChat ChannelType = "chat"
	// ChannelTypeWebhook delivers JSON to an HTTP endpoint (paging services).
	ChannelTypeWebhook ChannelType = "webhook"
)

// ChannelTypes lists supported channel types.
func ChannelTypes() []ChannelType {
	return []ChannelType{ChannelTypeEmail, ChannelTypeChat, ChannelTypeWebhook}
}

// IsSupportedChannelType reports whether value names a known channel type.
func IsSupportedChannelType(value ChannelType) bool {
	for _, known := range ChannelTypes() {
		if known == value {
			return true
		}
	}
	return false
}

// NotificationChannel is one configured notification destination.
// Params: unique name, type, opaque config bag, and enabled flag.
// Returns: static channel definition loaded at startup.
type NotificationChannel struct {
	Name    string        `json:"name"`
	Type    ChannelType   `json:"type"`
	Config  ChannelConfig `json:"config"`
	Enabled bool          `json:"enabled"`
}

// RoutingRule maps alert attribute conditions to notification channels.
// Params: name, all-must-match conditions, ordered channel names, optional escalation time.
// Returns: one prioritized routing rule.
type RoutingRule struct {
	Name           string            `json:"name"`
	Conditions     map[string]string `json:"conditions"`
	Channels       []string          `json:"channels"`
	EscalationTime time.Duration     `json:"escalation_time,omitempty"`
}

// ChannelConfig is opaque channel settings interpreted only by the matching sender.
// Params: key/value bag decoded from config (TOML numbers arrive as int64/float64).
// Returns: typed accessors with fallbacks.
type ChannelConfig map[string]any

// String returns string value or fallback.
func (c ChannelConfig) String(key, fallback string) string {
	value, ok := c[key]
	if !ok || value == nil {
		return fallback
	}
	switch typed := value.(type) {
	case string:
		if strings.TrimSpace(typed) == "" {
			return fallback
		}
		return typed
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}

// Int returns integer value or fallback.
// Params: key and fallback.
// Returns: value converted from int/int64/float64/numeric string.
func (c ChannelConfig) Int(key string, fallback int) int {
	switch typed := c[key].(type) {
	case int:
		return typed
	case int64:
		return int(typed)
	case float64:
		return int(typed)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(typed))
		if err != nil {
			return fallback
		}
		return parsed
	default:
		return fallback
	}
}

// Bool returns boolean value or fallback.
func (c ChannelConfig) Bool(key string, fallback bool) bool {
	switch typed := c[key].(type) {
	case bool:
		return typed
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(typed))
		if err != nil {
			return fallback
		}
		return parsed
	default:
		return fallback
	}
}

// Strings returns string list; single string is treated as one-item list.
func (c ChannelConfig) Strings(key string) []string {
	switch typed := c[key].(type) {
	case []string:
		return append([]string(nil), typed...)
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			if value, ok := item.(string); ok && strings.TrimSpace(value) != "" {
				out = append(out, value)
			}
		}
		return out
	case string:
		if strings.TrimSpace(typed) == "" {
			return nil
		}
		return []string{typed}
	default:
		return nil
	}
}

// StringMap returns nested string table such as HTTP headers.
func (c ChannelConfig) StringMap(key string) map[string]string {
	out := make(map[string]string)
	switch typed := c[key].(type) {
	case map[string]string:
		for k, v := range typed {
			out[k] = v
		}
	case map[string]any:
		for k, v := range typed {
			if value, ok := v.(string); ok {
				out[k] = value
			}
		}
	}
	return out
}
