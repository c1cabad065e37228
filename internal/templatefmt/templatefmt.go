package templatefmt

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// TimeLayout is the timestamp layout used in notification bodies.
const TimeLayout = "2006-01-02 15:04:05"

// FuncMap returns shared notification template helpers.
// Params: none.
// Returns: helper map used by config validation and runtime rendering.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"upper":       Upper,
		"join":        Join,
		"fmtTime":     FormatTime,
		"fmtDuration": FormatDuration,
		"json":        MarshalJSON,
		"default":     Default,
	}
}

// Parse parses one notification template with shared helpers.
// Params: template name and body.
// Returns: compiled template or parse error.
func Parse(name, body string) (*template.Template, error) {
	return template.New(name).Funcs(FuncMap()).Option("missingkey=zero").Parse(body)
}

// Render parses and executes template against data.
// Params: template name, body, and data value.
// Returns: rendered text or parse/execute error.
func Render(name, body string, data any) (string, error) {
	tmpl, err := Parse(name, body)
	if err != nil {
		return "", fmt.Errorf("parse template %q: %w", name, err)
	}
	var out strings.Builder
	if err := tmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("render template %q: %w", name, err)
	}
	return out.String(), nil
}

// Upper renders any string-like value in upper case.
func Upper(value any) string {
	return strings.ToUpper(fmt.Sprint(value))
}

// Join concatenates string list with separator.
func Join(values []string, sep string) string {
	return strings.Join(values, sep)
}

// Default returns fallback when value is empty.
// Params: fallback first so it reads as `{{ .AssignedTo | default "Unassigned" }}`.
// Returns: value or fallback.
func Default(fallback string, value any) string {
	rendered := fmt.Sprint(value)
	if value == nil || strings.TrimSpace(rendered) == "" {
		return fallback
	}
	return rendered
}

// FormatTime renders time in TimeLayout.
// Params: time.Time or *time.Time.
// Returns: formatted timestamp or empty string.
func FormatTime(value any) string {
	switch typed := value.(type) {
	case time.Time:
		return typed.Format(TimeLayout)
	case *time.Time:
		if typed == nil {
			return ""
		}
		return typed.Format(TimeLayout)
	default:
		return ""
	}
}

// FormatDuration renders duration in compact human form with one decimal precision.
// Params: time.Duration or *time.Duration.
// Returns: formatted duration string.
func FormatDuration(value any) string {
	var duration time.Duration
	switch typed := value.(type) {
	case time.Duration:
		duration = typed
	case *time.Duration:
		if typed == nil {
			return "0.0s"
		}
		duration = *typed
	default:
		return "0.0s"
	}

	if duration < 0 {
		duration = -duration
	}
	seconds := duration.Seconds()
	switch {
	case seconds >= 3600:
		return fmt.Sprintf("%.1fh", seconds/3600)
	case seconds >= 60:
		return fmt.Sprintf("%.1fm", seconds/60)
	default:
		return fmt.Sprintf("%.1fs", seconds)
	}
}

// MarshalJSON renders value into JSON string for template embedding.
// Params: template value of any type.
// Returns: marshaled JSON string or "null" on marshal failure.
func MarshalJSON(value any) string {
	encoded, err := json.Marshal(value)
	if err != nil {
		return "null"
	}
	return string(encoded)
}
