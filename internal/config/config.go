package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"alertflow/internal/domain"
	"alertflow/internal/templatefmt"

	"github.com/pelletier/go-toml/v2"
)

const (
	defaultServiceName        = "alertflow"
	defaultProcessIntervalSec = 60
	defaultHTTPListen         = ":8080"
	defaultAlertsPath         = "/alerts"
	defaultHealthPath         = "/healthz"
	defaultReadyPath          = "/readyz"
	defaultMetricsPath        = "/metrics"
	defaultMaxBodyBytes       = 1 << 20
	defaultNATSURL            = "nats://127.0.0.1:4222"
	defaultNATSSubject        = "alertflow.alerts"
	defaultNATSQueueGroup     = "alertflow"
	defaultDedupWindowSec     = 300
	defaultSendTimeoutSec     = 5
	defaultPendingMax         = 1024

	// DefaultChannelEmail names built-in email channel.
	DefaultChannelEmail = "email"
	// DefaultChannelChat names built-in chat channel.
	DefaultChannelChat = "chat"
	// DefaultChannelPaging names built-in paging webhook channel.
	DefaultChannelPaging = "paging"
)

var (
	topLevelRuleArrayPattern = regexp.MustCompile(`(?m)^\s*\[\[\s*rule\s*\]\]`)
	channelTemplateKeys      = []string{"subject_template", "body_template", "message_template"}
)

// Config is full runtime configuration snapshot.
// Params: service, log, ingest, pipeline, channel, routing, and escalation sections.
// Returns: normalized configuration model.
type Config struct {
	Service    ServiceConfig
	Log        LogConfig
	Ingest     IngestConfig
	Pipeline   PipelineConfig
	Channels   []ChannelConfig
	Routing    RoutingConfig
	Escalation EscalationConfig
}

// rawConfig mirrors TOML model before runtime normalization.
// Params: decoded sections from one TOML source; pointer bools keep presence for defaults.
// Returns: raw sections used by merge and normalize.
type rawConfig struct {
	Service    ServiceConfig      `toml:"service"`
	Log        LogConfig          `toml:"log"`
	Ingest     rawIngestConfig    `toml:"ingest"`
	Pipeline   rawPipelineConfig  `toml:"pipeline"`
	Channel    []rawChannelConfig `toml:"channel"`
	Routing    RoutingConfig      `toml:"routing"`
	Escalation EscalationConfig   `toml:"escalation"`
}

type rawIngestConfig struct {
	HTTP rawHTTPIngestConfig `toml:"http"`
	NATS NATSIngestConfig    `toml:"nats"`
}

type rawHTTPIngestConfig struct {
	Enabled      *bool  `toml:"enabled"`
	Listen       string `toml:"listen"`
	AlertsPath   string `toml:"alerts_path"`
	HealthPath   string `toml:"health_path"`
	ReadyPath    string `toml:"ready_path"`
	MetricsPath  string `toml:"metrics_path"`
	MaxBodyBytes int64  `toml:"max_body_bytes"`
}

type rawPipelineConfig struct {
	DedupWindowSec   int   `toml:"dedup_window_sec"`
	DispatchParallel *bool `toml:"dispatch_parallel"`
	SendTimeoutSec   int   `toml:"send_timeout_sec"`
	PendingMax       int   `toml:"pending_max"`
}

type rawChannelConfig struct {
	Name    string         `toml:"name"`
	Type    string         `toml:"type"`
	Enabled *bool          `toml:"enabled"`
	Config  map[string]any `toml:"config"`
}

// ServiceConfig contains process-level settings.
// Params: service name and scheduler tick interval.
// Returns: service behavior defaults.
type ServiceConfig struct {
	Name               string `toml:"name"`
	ProcessIntervalSec int    `toml:"process_interval_sec"`
}

// IngestConfig defines inbound alert interfaces.
type IngestConfig struct {
	HTTP HTTPIngestConfig
	NATS NATSIngestConfig
}

// HTTPIngestConfig configures HTTP API listener.
// Params: enable flag, listen address, endpoint paths, and body size limit.
// Returns: HTTP ingest behavior.
type HTTPIngestConfig struct {
	Enabled      bool
	Listen       string
	AlertsPath   string
	HealthPath   string
	ReadyPath    string
	MetricsPath  string
	MaxBodyBytes int64
}

// NATSIngestConfig configures core NATS queue subscription feeding the pending buffer.
// Params: enable flag, server URLs, subject, and queue group.
// Returns: NATS ingest behavior.
type NATSIngestConfig struct {
	Enabled    bool     `toml:"enabled"`
	URL        []string `toml:"url"`
	Subject    string   `toml:"subject"`
	QueueGroup string   `toml:"queue_group"`
}

// PipelineConfig tunes orchestrator behavior.
// Params: dedup window, dispatch fan-out, send timeout, and pending buffer size.
// Returns: pipeline runtime options.
type PipelineConfig struct {
	DedupWindowSec   int
	DispatchParallel bool
	SendTimeoutSec   int
	PendingMax       int
}

// DedupWindow returns dedup window duration.
func (c PipelineConfig) DedupWindow() time.Duration {
	return time.Duration(c.DedupWindowSec) * time.Second
}

// SendTimeout returns per-send timeout duration.
func (c PipelineConfig) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutSec) * time.Second
}

// ChannelConfig is one configured notification channel.
// Params: unique name, type, enabled flag, and opaque sender settings.
// Returns: channel definition.
type ChannelConfig struct {
	Name    string
	Type    string
	Enabled bool
	Config  map[string]any
}

// RoutingConfig holds prioritized routing rules; empty means built-in rules.
type RoutingConfig struct {
	Rule []RoutingRuleConfig `toml:"rule"`
}

// RoutingRuleConfig is one `[[routing.rule]]` entry.
// Params: rule name, attribute conditions, channel names, optional Go duration escalation_time.
// Returns: raw rule definition.
type RoutingRuleConfig struct {
	Name           string            `toml:"name"`
	Conditions     map[string]string `toml:"conditions"`
	Channels       []string          `toml:"channels"`
	EscalationTime string            `toml:"escalation_time"`
}

// EscalationConfig overrides escalation keywords and source owners.
// Params: failure keywords and source → team table; empty values keep built-in policy.
// Returns: escalation policy settings.
type EscalationConfig struct {
	Keywords []string          `toml:"keywords"`
	Owners   map[string]string `toml:"owners"`
}

// LogConfig contains console/file logging sinks.
// Params: sink settings for each output target.
// Returns: logger setup options.
type LogConfig struct {
	Console LogSinkConfig `toml:"console"`
	File    LogSinkConfig `toml:"file"`
}

// LogSinkConfig defines one logging sink.
// Params: sink enable flag, level, format, and path.
// Returns: sink-specific behavior.
type LogSinkConfig struct {
	Enabled bool   `toml:"enabled"`
	Level   string `toml:"level"`
	Format  string `toml:"format"`
	Path    string `toml:"path"`
}

// ConfigSource describes file or directory config source.
// Params: exactly one of file path or directory path.
// Returns: normalized source descriptor.
type ConfigSource struct {
	File string
	Dir  string
}

// FromCLI builds normalized source configuration from input paths.
// Params: optional file and directory arguments.
// Returns: source descriptor or validation error.
func FromCLI(filePath, dirPath string) (ConfigSource, error) {
	filePath = strings.TrimSpace(filePath)
	dirPath = strings.TrimSpace(dirPath)

	if filePath == "" && dirPath == "" {
		return ConfigSource{}, errors.New("either --config.file or --config.dir must be provided")
	}
	if filePath != "" && dirPath != "" {
		return ConfigSource{}, errors.New("config source must be either file or dir")
	}

	if filePath != "" {
		return ConfigSource{File: filePath}, nil
	}
	return ConfigSource{Dir: dirPath}, nil
}

// LoadSnapshot loads and validates configuration from one source.
// Params: source selects file or directory mode.
// Returns: validated config or load/validation error.
func LoadSnapshot(src ConfigSource) (Config, error) {
	var raw rawConfig
	var err error
	if src.File != "" {
		raw, err = loadFile(src.File)
	} else {
		raw, err = loadDir(src.Dir)
	}
	if err != nil {
		return Config{}, err
	}
	return parse(raw)
}

// ParseBytes decodes, defaults, and validates one TOML document.
// Params: raw TOML body.
// Returns: validated config or decode/validation error.
func ParseBytes(body []byte) (Config, error) {
	raw, err := decode(body)
	if err != nil {
		return Config{}, err
	}
	return parse(raw)
}

// parse normalizes raw sections, applies defaults, and validates the result.
func parse(raw rawConfig) (Config, error) {
	cfg := normalizeRawConfig(raw)
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decode parses one TOML body into raw model.
func decode(body []byte) (rawConfig, error) {
	if topLevelRuleArrayPattern.Match(body) {
		return rawConfig{}, errors.New("top-level [[rule]] is not supported; use [[routing.rule]] tables")
	}
	var raw rawConfig
	if err := toml.Unmarshal(body, &raw); err != nil {
		return rawConfig{}, err
	}
	return raw, nil
}

// loadFile reads one TOML configuration file.
// Params: file path to config snapshot.
// Returns: decoded raw config or read/decode error.
func loadFile(path string) (rawConfig, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return rawConfig{}, fmt.Errorf("read config file %q: %w", path, err)
	}
	raw, err := decode(body)
	if err != nil {
		return rawConfig{}, fmt.Errorf("decode config file %q: %w", path, err)
	}
	return raw, nil
}

// loadDir reads and merges TOML files from one directory in lexical order.
// Params: directory containing config fragments.
// Returns: merged raw config or load/decode error.
func loadDir(dir string) (rawConfig, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return rawConfig{}, fmt.Errorf("read config dir %q: %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.ToLower(filepath.Ext(name)) != ".toml" {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	if len(files) == 0 {
		return rawConfig{}, fmt.Errorf("no .toml files found in %q", dir)
	}
	sort.Strings(files)

	var merged rawConfig
	for _, file := range files {
		fragment, err := loadFile(file)
		if err != nil {
			return rawConfig{}, err
		}
		mergeConfig(&merged, fragment)
	}
	return merged, nil
}

// mergeConfig overlays source fragment onto destination.
// Params: destination config and next fragment.
// Returns: merged configuration side-effect in dst; channels and rules append in file order.
func mergeConfig(dst *rawConfig, src rawConfig) {
	if src.Service != (ServiceConfig{}) {
		dst.Service = src.Service
	}
	if src.Log != (LogConfig{}) {
		dst.Log = src.Log
	}
	if src.Ingest.HTTP != (rawHTTPIngestConfig{}) {
		dst.Ingest.HTTP = src.Ingest.HTTP
	}
	if hasNATSIngestConfig(src.Ingest.NATS) {
		dst.Ingest.NATS = src.Ingest.NATS
	}
	if src.Pipeline != (rawPipelineConfig{}) {
		dst.Pipeline = src.Pipeline
	}
	dst.Channel = append(dst.Channel, src.Channel...)
	dst.Routing.Rule = append(dst.Routing.Rule, src.Routing.Rule...)
	if len(src.Escalation.Keywords) > 0 {
		dst.Escalation.Keywords = src.Escalation.Keywords
	}
	if len(src.Escalation.Owners) > 0 {
		if dst.Escalation.Owners == nil {
			dst.Escalation.Owners = make(map[string]string, len(src.Escalation.Owners))
		}
		for source, team := range src.Escalation.Owners {
			dst.Escalation.Owners[source] = team
		}
	}
}

// normalizeRawConfig converts raw TOML model to runtime config.
// Params: decoded raw config.
// Returns: config with presence-aware bools resolved.
func normalizeRawConfig(raw rawConfig) Config {
	cfg := Config{
		Service: raw.Service,
		Log:     raw.Log,
		Ingest: IngestConfig{
			HTTP: HTTPIngestConfig{
				Enabled:      boolOr(raw.Ingest.HTTP.Enabled, true),
				Listen:       strings.TrimSpace(raw.Ingest.HTTP.Listen),
				AlertsPath:   strings.TrimSpace(raw.Ingest.HTTP.AlertsPath),
				HealthPath:   strings.TrimSpace(raw.Ingest.HTTP.HealthPath),
				ReadyPath:    strings.TrimSpace(raw.Ingest.HTTP.ReadyPath),
				MetricsPath:  strings.TrimSpace(raw.Ingest.HTTP.MetricsPath),
				MaxBodyBytes: raw.Ingest.HTTP.MaxBodyBytes,
			},
			NATS: raw.Ingest.NATS,
		},
		Pipeline: PipelineConfig{
			DedupWindowSec:   raw.Pipeline.DedupWindowSec,
			DispatchParallel: boolOr(raw.Pipeline.DispatchParallel, true),
			SendTimeoutSec:   raw.Pipeline.SendTimeoutSec,
			PendingMax:       raw.Pipeline.PendingMax,
		},
		Routing:    raw.Routing,
		Escalation: raw.Escalation,
	}
	cfg.Ingest.NATS.URL = normalizeNATSURLs(cfg.Ingest.NATS.URL)

	cfg.Channels = make([]ChannelConfig, 0, len(raw.Channel))
	for _, channel := range raw.Channel {
		cfg.Channels = append(cfg.Channels, ChannelConfig{
			Name:    strings.TrimSpace(channel.Name),
			Type:    strings.ToLower(strings.TrimSpace(channel.Type)),
			Enabled: boolOr(channel.Enabled, true),
			Config:  channel.Config,
		})
	}
	return cfg
}

func boolOr(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

// applyDefaults fills optional fields with runtime defaults.
// Params: config pointer to mutate.
// Returns: config updated in place.
func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Service.Name) == "" {
		cfg.Service.Name = defaultServiceName
	}
	if cfg.Service.ProcessIntervalSec <= 0 {
		cfg.Service.ProcessIntervalSec = defaultProcessIntervalSec
	}

	if cfg.Log.Console.Level == "" {
		cfg.Log.Console.Level = "info"
	}
	if cfg.Log.Console.Format == "" {
		cfg.Log.Console.Format = "line"
	}
	if cfg.Log.File.Level == "" {
		cfg.Log.File.Level = "info"
	}
	if cfg.Log.File.Format == "" {
		cfg.Log.File.Format = "json"
	}
	if !cfg.Log.Console.Enabled && !cfg.Log.File.Enabled {
		cfg.Log.Console.Enabled = true
	}

	if cfg.Ingest.HTTP.Listen == "" {
		cfg.Ingest.HTTP.Listen = defaultHTTPListen
	}
	if cfg.Ingest.HTTP.AlertsPath == "" {
		cfg.Ingest.HTTP.AlertsPath = defaultAlertsPath
	}
	if cfg.Ingest.HTTP.HealthPath == "" {
		cfg.Ingest.HTTP.HealthPath = defaultHealthPath
	}
	if cfg.Ingest.HTTP.ReadyPath == "" {
		cfg.Ingest.HTTP.ReadyPath = defaultReadyPath
	}
	if cfg.Ingest.HTTP.MetricsPath == "" {
		cfg.Ingest.HTTP.MetricsPath = defaultMetricsPath
	}
	if cfg.Ingest.HTTP.MaxBodyBytes <= 0 {
		cfg.Ingest.HTTP.MaxBodyBytes = defaultMaxBodyBytes
	}

	if len(cfg.Ingest.NATS.URL) == 0 {
		cfg.Ingest.NATS.URL = []string{defaultNATSURL}
	}
	if strings.TrimSpace(cfg.Ingest.NATS.Subject) == "" {
		cfg.Ingest.NATS.Subject = defaultNATSSubject
	}
	if strings.TrimSpace(cfg.Ingest.NATS.QueueGroup) == "" {
		cfg.Ingest.NATS.QueueGroup = defaultNATSQueueGroup
	}

	if cfg.Pipeline.DedupWindowSec <= 0 {
		cfg.Pipeline.DedupWindowSec = defaultDedupWindowSec
	}
	if cfg.Pipeline.SendTimeoutSec <= 0 {
		cfg.Pipeline.SendTimeoutSec = defaultSendTimeoutSec
	}
	if cfg.Pipeline.PendingMax <= 0 {
		cfg.Pipeline.PendingMax = defaultPendingMax
	}

	if len(cfg.Channels) == 0 {
		cfg.Channels = DefaultChannels()
	}
	for i := range cfg.Channels {
		if cfg.Channels[i].Config == nil {
			cfg.Channels[i].Config = map[string]any{}
		}
	}
}

// DefaultChannels returns built-in dry-run channel registry matching default routing rules.
// Params: none.
// Returns: email, chat, and paging channels with dry_run enabled.
func DefaultChannels() []ChannelConfig {
	return []ChannelConfig{
		{Name: DefaultChannelEmail, Type: string(domain.ChannelTypeEmail), Enabled: true, Config: map[string]any{"dry_run": true}},
		{Name: DefaultChannelChat, Type: string(domain.ChannelTypeChat), Enabled: true, Config: map[string]any{"dry_run": true}},
		{Name: DefaultChannelPaging, Type: string(domain.ChannelTypeWebhook), Enabled: true, Config: map[string]any{"dry_run": true}},
	}
}

// validateConfig validates semantic constraints after defaults.
// Params: config snapshot.
// Returns: first validation error.
func validateConfig(cfg Config) error {
	if err := validateLogSink("log.console", cfg.Log.Console, false); err != nil {
		return err
	}
	if err := validateLogSink("log.file", cfg.Log.File, true); err != nil {
		return err
	}

	if err := validateHTTPPaths(cfg.Ingest.HTTP); err != nil {
		return err
	}
	if cfg.Ingest.NATS.Enabled {
		for i, url := range cfg.Ingest.NATS.URL {
			if url == "" {
				return fmt.Errorf("ingest.nats.url[%d] is empty", i)
			}
		}
	}
	if !cfg.Ingest.HTTP.Enabled && !cfg.Ingest.NATS.Enabled {
		return errors.New("at least one of ingest.http.enabled or ingest.nats.enabled must be true")
	}

	channelNames := make(map[string]struct{}, len(cfg.Channels))
	for i, channel := range cfg.Channels {
		path := fmt.Sprintf("channel[%d]", i)
		if channel.Name == "" {
			return fmt.Errorf("%s.name is required", path)
		}
		if _, exists := channelNames[channel.Name]; exists {
			return fmt.Errorf("%s.name %q is duplicated", path, channel.Name)
		}
		channelNames[channel.Name] = struct{}{}
		if !domain.IsSupportedChannelType(domain.ChannelType(channel.Type)) {
			return fmt.Errorf("%s.type has unsupported value %q", path, channel.Type)
		}
		for _, key := range channelTemplateKeys {
			body, ok := channel.Config[key].(string)
			if !ok {
				continue
			}
			if err := validateMessageTemplate(path+".config."+key, body); err != nil {
				return err
			}
		}
	}

	ruleNames := make(map[string]struct{}, len(cfg.Routing.Rule))
	for i, rule := range cfg.Routing.Rule {
		if err := validateRoutingRule(i, rule, channelNames, ruleNames); err != nil {
			return err
		}
	}

	for i, keyword := range cfg.Escalation.Keywords {
		if strings.TrimSpace(keyword) == "" {
			return fmt.Errorf("escalation.keywords[%d] is empty", i)
		}
	}
	for source, team := range cfg.Escalation.Owners {
		if strings.TrimSpace(team) == "" {
			return fmt.Errorf("escalation.owners.%s is empty", source)
		}
	}
	return nil
}

// validateRoutingRule validates one routing rule against known channels.
// Params: rule index, rule, channel name set, and seen rule names.
// Returns: validation error.
func validateRoutingRule(index int, rule RoutingRuleConfig, channels, seen map[string]struct{}) error {
	path := fmt.Sprintf("routing.rule[%d]", index)
	name := strings.TrimSpace(rule.Name)
	if name == "" {
		return fmt.Errorf("%s.name is required", path)
	}
	if _, exists := seen[name]; exists {
		return fmt.Errorf("%s.name %q is duplicated", path, name)
	}
	seen[name] = struct{}{}

	if len(rule.Conditions) == 0 {
		return fmt.Errorf("%s.conditions must not be empty", path)
	}
	for attribute := range rule.Conditions {
		if !domain.IsAttribute(attribute) {
			return fmt.Errorf("%s.conditions has unsupported attribute %q", path, attribute)
		}
	}
	if len(rule.Channels) == 0 {
		return fmt.Errorf("%s.channels must not be empty", path)
	}
	for _, channel := range rule.Channels {
		if _, ok := channels[channel]; !ok {
			return fmt.Errorf("%s.channels references unknown channel %q", path, channel)
		}
	}
	if strings.TrimSpace(rule.EscalationTime) != "" {
		duration, err := time.ParseDuration(strings.TrimSpace(rule.EscalationTime))
		if err != nil {
			return fmt.Errorf("%s.escalation_time is invalid: %w", path, err)
		}
		if duration < 0 {
			return fmt.Errorf("%s.escalation_time must be >=0", path)
		}
	}
	return nil
}

// NotificationChannels converts channel configs to domain registry entries.
// Params: none.
// Returns: channels in configured order.
func (c Config) NotificationChannels() []domain.NotificationChannel {
	out := make([]domain.NotificationChannel, 0, len(c.Channels))
	for _, channel := range c.Channels {
		out = append(out, domain.NotificationChannel{
			Name:    channel.Name,
			Type:    domain.ChannelType(channel.Type),
			Config:  domain.ChannelConfig(channel.Config),
			Enabled: channel.Enabled,
		})
	}
	return out
}

// RoutingRules converts validated routing rules to domain rules.
// Params: none.
// Returns: rules in priority order; nil when none configured.
func (c Config) RoutingRules() []domain.RoutingRule {
	if len(c.Routing.Rule) == 0 {
		return nil
	}
	out := make([]domain.RoutingRule, 0, len(c.Routing.Rule))
	for _, rule := range c.Routing.Rule {
		var escalation time.Duration
		if raw := strings.TrimSpace(rule.EscalationTime); raw != "" {
			escalation, _ = time.ParseDuration(raw)
		}
		conditions := make(map[string]string, len(rule.Conditions))
		for key, value := range rule.Conditions {
			conditions[key] = value
		}
		out = append(out, domain.RoutingRule{
			Name:           strings.TrimSpace(rule.Name),
			Conditions:     conditions,
			Channels:       append([]string(nil), rule.Channels...),
			EscalationTime: escalation,
		})
	}
	return out
}

// hasNATSIngestConfig reports whether fragment sets any NATS ingest key.
func hasNATSIngestConfig(cfg NATSIngestConfig) bool {
	return cfg.Enabled ||
		len(cfg.URL) > 0 ||
		strings.TrimSpace(cfg.Subject) != "" ||
		strings.TrimSpace(cfg.QueueGroup) != ""
}

// normalizeNATSURLs trims spaces around each configured NATS URL.
// Params: raw URL list from config.
// Returns: normalized URL list preserving element count for validation.
func normalizeNATSURLs(urls []string) []string {
	if len(urls) == 0 {
		return nil
	}
	out := make([]string, len(urls))
	for i := range urls {
		out[i] = strings.TrimSpace(urls[i])
	}
	return out
}

// validateMessageTemplate validates one notification template body.
// Params: field path and template body.
// Returns: parse/empty error.
func validateMessageTemplate(path, body string) error {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return fmt.Errorf("%s is required", path)
	}
	if _, err := templatefmt.Parse(path, trimmed); err != nil {
		return fmt.Errorf("%s is invalid: %w", path, err)
	}
	return nil
}

// validateLogSink validates one log sink configuration.
// Params: sink name, sink values, and whether path is required.
// Returns: sink validation error.
func validateLogSink(name string, sink LogSinkConfig, requirePath bool) error {
	if !sink.Enabled {
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(sink.Level)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%s.level has unsupported value %q", name, sink.Level)
	}

	switch strings.ToLower(strings.TrimSpace(sink.Format)) {
	case "line", "json":
	default:
		return fmt.Errorf("%s.format has unsupported value %q", name, sink.Format)
	}

	if requirePath && strings.TrimSpace(sink.Path) == "" {
		return fmt.Errorf("%s.path is required", name)
	}

	return nil
}

// validateHTTPPaths checks endpoint paths; probes and metrics are served even when the alert API is disabled.
// Params: HTTP ingest config.
// Returns: first invalid or duplicated path.
func validateHTTPPaths(cfg HTTPIngestConfig) error {
	paths := map[string]string{
		"ingest.http.alerts_path":  cfg.AlertsPath,
		"ingest.http.health_path":  cfg.HealthPath,
		"ingest.http.ready_path":   cfg.ReadyPath,
		"ingest.http.metrics_path": cfg.MetricsPath,
	}
	keys := make([]string, 0, len(paths))
	for key := range paths {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	seen := make(map[string]string, len(paths))
	for _, key := range keys {
		path := paths[key]
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("%s must start with /", key)
		}
		if other, ok := seen[path]; ok {
			return fmt.Errorf("%s duplicates %s (%q)", key, other, path)
		}
		seen[path] = key
	}
	return nil
}
