package notify

import (
	"strings"
	"time"

	"alertflow/internal/domain"
	"alertflow/internal/templatefmt"
)

const (
	defaultSubjectTemplate = `[{{ upper .Severity }}] {{ .Title }}`
	defaultEmailTemplate   = `Alert Details:
--------------
Title: {{ .Title }}
Severity: {{ upper .Severity }}
Source: {{ .Source }}
Time: {{ fmtTime .Timestamp }}
Tags: {{ join .Tags ", " }}

Description:
{{ .Description }}

Alert ID: {{ .ID }}
Status: {{ .Status }}
Assigned To: {{ .AssignedTo | default "Unassigned" }}
`
	defaultChatTemplate = `[{{ upper .Severity }}] {{ .Title }}
{{ .Description }}
Source: {{ .Source }} | Alert ID: {{ .ID }} | Assigned To: {{ .AssignedTo | default "Unassigned" }}`
)

// severityColors maps severity to chat attachment color.
var severityColors = map[domain.Severity]string{
	domain.SeverityCritical: "#FF0000",
	domain.SeverityWarning:  "#FFA500",
	domain.SeverityInfo:     "#0000FF",
}

// SeverityColor returns attachment color for severity, gray for unknown values.
func SeverityColor(severity domain.Severity) string {
	if color, ok := severityColors[severity]; ok {
		return color
	}
	return "#808080"
}

// renderTemplate renders channel template override or default body.
// Params: channel config, override key, default template, and alert.
// Returns: rendered message text or template error.
func renderTemplate(cfg domain.ChannelConfig, key, fallback string, alert *domain.Alert) (string, error) {
	body := cfg.String(key, fallback)
	return templatefmt.Render(key, body, alert)
}

// formatTimestamp renders alert time for chat fields.
func formatTimestamp(ts time.Time) string {
	return ts.Format(templatefmt.TimeLayout)
}

// joinTags renders tag list for chat fields.
func joinTags(tags []string) string {
	return strings.Join(tags, ", ")
}
