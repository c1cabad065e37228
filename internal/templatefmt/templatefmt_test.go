package templatefmt

import (
	"testing"
	"time"
)

func TestRenderWithHelpers(t *testing.T) {
	t.Parallel()

	data := struct {
		Severity   string
		Tags       []string
		AssignedTo string
		Timestamp  time.Time
	}{
		Severity:  "critical",
		Tags:      []string{"a", "b"},
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	got, err := Render("t", `[{{ upper .Severity }}] {{ join .Tags ", " }} {{ .AssignedTo | default "Unassigned" }} {{ fmtTime .Timestamp }}`, data)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "[CRITICAL] a, b Unassigned 2026-01-02 03:04:05"
	if got != want {
		t.Fatalf("unexpected render %q, want %q", got, want)
	}
}

func TestRenderReportsParseErrors(t *testing.T) {
	t.Parallel()

	if _, err := Render("broken", "{{ .Title ", nil); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	cases := map[time.Duration]string{
		1500 * time.Millisecond: "1.5s",
		90 * time.Second:        "1.5m",
		-2 * time.Hour:          "2.0h",
	}
	for input, want := range cases {
		if got := FormatDuration(input); got != want {
			t.Fatalf("FormatDuration(%s)=%q, want %q", input, got, want)
		}
	}
	if got := FormatDuration("x"); got != "0.0s" {
		t.Fatalf("unexpected fallback %q", got)
	}
}
