// Package enrich attaches derived tags and metadata to freshly ingested alerts.
package enrich

import (
	"strings"
	"time"

	"alertflow/internal/domain"
)

// Tags appended by enrichment.
const (
	TagNightHours        = "night_hours"
	TagBusinessHours     = "business_hours"
	TagContainerPlatform = "container_platform"
	TagPodIssue          = "pod_issue"
	TagNodeIssue         = "node_issue"
	TagCloudPlatform     = "cloud_platform"
	TagComputeIssue      = "compute_issue"
	TagDatabaseIssue     = "database_issue"
)

// Metadata keys set by enrichment.
const (
	MetaRequiresImmediateAttention = "requires_immediate_attention"
	MetaRequiresAttention          = "requires_attention"
	MetaMaxResponseTime            = "max_response_time"
)

// sourceRule classifies alerts of one source by description keywords.
// The first keyword found wins; the platform tag is always added.
type sourceRule struct {
	source   string
	platform string
	keywords []keywordTag
}

type keywordTag struct {
	keyword string
	tag     string
}

var sourceRules = []sourceRule{
	{
		source:   "kubernetes",
		platform: TagContainerPlatform,
		keywords: []keywordTag{{"pod", TagPodIssue}, {"node", TagNodeIssue}},
	},
	{
		source:   "aws",
		platform: TagCloudPlatform,
		keywords: []keywordTag{{"ec2", TagComputeIssue}, {"rds", TagDatabaseIssue}},
	},
}

// Enrich applies every independent enrichment rule to alert in place.
// Params: new alert and current time for time-of-day bucketing.
// Returns: the same alert for chaining.
func Enrich(alert *domain.Alert, now time.Time) *domain.Alert {
	if alert == nil {
		return nil
	}

	if tag := hourTag(now.Hour()); tag != "" {
		alert.AddTag(tag)
	}

	description := strings.ToLower(alert.Description)
	for _, rule := range sourceRules {
		if alert.Source != rule.source {
			continue
		}
		alert.AddTag(rule.platform)
		for _, candidate := range rule.keywords {
			if strings.Contains(description, candidate.keyword) {
				alert.AddTag(candidate.tag)
				break
			}
		}
	}

	switch alert.Severity {
	case domain.SeverityCritical:
		alert.SetMetadata(MetaRequiresImmediateAttention, true)
		alert.SetMetadata(MetaMaxResponseTime, "15 minutes")
	case domain.SeverityWarning:
		alert.SetMetadata(MetaRequiresAttention, true)
		alert.SetMetadata(MetaMaxResponseTime, "1 hour")
	}

	return alert
}

// hourTag buckets hour of day: [0,6) night, [9,17) business, otherwise none.
func hourTag(hour int) string {
	switch {
	case hour >= 0 && hour < 6:
		return TagNightHours
	case hour >= 9 && hour < 17:
		return TagBusinessHours
	default:
		return ""
	}
}
