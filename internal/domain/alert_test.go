package domain

import (
	"testing"
	"time"
)

func TestFingerprintIsStableAndContentDerived(t *testing.T) {
	t.Parallel()

	first := Fingerprint("High CPU", "monitoring", "cpu 92%")
	second := Fingerprint("High CPU", "monitoring", "cpu 92%")
	if first != second {
		t.Fatalf("expected stable fingerprint, got %q and %q", first, second)
	}
	if len(first) != FingerprintLength {
		t.Fatalf("expected %d chars, got %q", FingerprintLength, first)
	}
	if other := Fingerprint("High CPU", "monitoring", "cpu 93%"); other == first {
		t.Fatalf("expected description change to change fingerprint")
	}
}

func TestNewAlertAppliesDefaults(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	alert := NewAlert(Payload{}, now)

	if alert.Title != DefaultTitle || alert.Source != DefaultSource || alert.Description != "" {
		t.Fatalf("unexpected defaults: %+v", alert)
	}
	if alert.Severity != SeverityInfo {
		t.Fatalf("expected info severity, got %q", alert.Severity)
	}
	if alert.Status != StatusNew || alert.AssignedTo != "" {
		t.Fatalf("unexpected lifecycle defaults: %+v", alert)
	}
	if alert.Tags == nil || len(alert.Tags) != 0 || alert.Metadata == nil || len(alert.Metadata) != 0 {
		t.Fatalf("expected empty tags/metadata, got %#v %#v", alert.Tags, alert.Metadata)
	}
	if !alert.Timestamp.Equal(now) {
		t.Fatalf("unexpected timestamp %s", alert.Timestamp)
	}
	if alert.ID != Fingerprint(DefaultTitle, DefaultSource, "") {
		t.Fatalf("unexpected id %q", alert.ID)
	}
}

func TestNewAlertToleratesMalformedFields(t *testing.T) {
	t.Parallel()

	alert := NewAlert(Payload{
		"title":    42,
		"severity": "WARNING",
		"source":   nil,
		"tags":     []any{"cpu", 7, "prod"},
		"metadata": "broken",
	}, time.Now())

	if alert.Title != DefaultTitle || alert.Source != DefaultSource {
		t.Fatalf("expected non-string fields to default, got %+v", alert)
	}
	if alert.Severity != SeverityWarning {
		t.Fatalf("expected case-folded severity, got %q", alert.Severity)
	}
	if len(alert.Tags) != 2 || alert.Tags[0] != "cpu" || alert.Tags[1] != "prod" {
		t.Fatalf("unexpected tags %#v", alert.Tags)
	}
	if len(alert.Metadata) != 0 {
		t.Fatalf("expected empty metadata, got %#v", alert.Metadata)
	}
}

func TestNewAlertCopiesPayloadCollections(t *testing.T) {
	t.Parallel()

	tags := []any{"cpu"}
	metadata := map[string]any{"server": "prod-web-01"}
	alert := NewAlert(Payload{"tags": tags, "metadata": metadata}, time.Now())
	alert.AddTag("night_hours")
	alert.SetMetadata("requires_attention", true)

	if len(tags) != 1 {
		t.Fatalf("payload tags mutated: %#v", tags)
	}
	if _, ok := metadata["requires_attention"]; ok {
		t.Fatalf("payload metadata mutated: %#v", metadata)
	}
}

func TestAttributeLookup(t *testing.T) {
	t.Parallel()

	alert := &Alert{Severity: SeverityCritical, Source: "kubernetes", Status: StatusNew}
	if value, ok := alert.Attribute("severity"); !ok || value != "critical" {
		t.Fatalf("unexpected severity attribute %q %v", value, ok)
	}
	if _, ok := alert.Attribute("assigned_to"); ok {
		t.Fatalf("expected unset assignee to be absent")
	}
	if _, ok := alert.Attribute("region"); ok {
		t.Fatalf("expected unknown attribute to be absent")
	}
}

func TestDecodePayloadRejectsNonObject(t *testing.T) {
	t.Parallel()

	if _, err := DecodePayload([]byte(`[1,2]`)); err == nil {
		t.Fatalf("expected decode error for array body")
	}
	payload, err := DecodePayload([]byte(`null`))
	if err != nil {
		t.Fatalf("decode null: %v", err)
	}
	if payload == nil {
		t.Fatalf("expected empty payload for null body")
	}
}

func TestChannelConfigAccessors(t *testing.T) {
	t.Parallel()

	cfg := ChannelConfig{
		"smtp_port":  int64(2525),
		"dry_run":    true,
		"recipients": []any{"ops@example.com", "", "devops@example.com"},
		"headers":    map[string]any{"X-Key": "v", "X-Ignored": 1},
	}
	if got := cfg.Int("smtp_port", 587); got != 2525 {
		t.Fatalf("unexpected port %d", got)
	}
	if got := cfg.Int("missing", 587); got != 587 {
		t.Fatalf("unexpected fallback %d", got)
	}
	if !cfg.Bool("dry_run", false) {
		t.Fatalf("expected dry_run")
	}
	if got := cfg.Strings("recipients"); len(got) != 2 {
		t.Fatalf("unexpected recipients %#v", got)
	}
	if got := cfg.StringMap("headers"); len(got) != 1 || got["X-Key"] != "v" {
		t.Fatalf("unexpected headers %#v", got)
	}
	if got := cfg.String("sender", "alerts@example.com"); got != "alerts@example.com" {
		t.Fatalf("unexpected sender fallback %q", got)
	}
}
