package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is built once at startup and passed by value from there on.
type Config struct {
	Logging    LoggingConfig    `toml:"logging" yaml:"logging"`
	Ping       PingConfig       `toml:"ping" yaml:"ping"`
	DNS        DNSConfig        `toml:"dns" yaml:"dns"`
	Watch      WatchConfig      `toml:"watch" yaml:"watch"`
	Traceroute TracerouteConfig `toml:"traceroute" yaml:"traceroute"`
	Enrich     EnrichConfig     `toml:"enrich" yaml:"enrich"`
	Targets    []TargetConfig   `toml:"targets" yaml:"targets"`
}

type LoggingConfig struct {
	Dir      string `toml:"dir" yaml:"dir"`
	MaxMB    int    `toml:"max_mb" yaml:"max_mb"`
	MaxFiles int    `toml:"max_files" yaml:"max_files"`
}

type PingConfig struct {
	Count      int    `toml:"count" yaml:"count"`
	TimeoutMS  int    `toml:"timeout_ms" yaml:"timeout_ms"`
	DeadlineMS int    `toml:"deadline_ms" yaml:"deadline_ms"`
	Backend    string `toml:"backend" yaml:"backend"`
	Privileged bool   `toml:"privileged" yaml:"privileged"`
	Workers    int    `toml:"workers" yaml:"workers"`
}

// DNSConfig holds the optional primary/secondary servers. Empty means the OS
// resolver, which is also what the ping tool would use.
type DNSConfig struct {
	Resolvers []string `toml:"resolvers" yaml:"resolvers"`
	TimeoutMS int      `toml:"timeout_ms" yaml:"timeout_ms"`
}

type WatchConfig struct {
	IntervalMS int `toml:"interval_ms" yaml:"interval_ms"`
	WindowSecs int `toml:"window_secs" yaml:"window_secs"`
	Rounds     int `toml:"rounds" yaml:"rounds"`
}

type TracerouteConfig struct {
	Enabled      bool `toml:"enabled" yaml:"enabled"`
	CooldownSecs int  `toml:"cooldown_secs" yaml:"cooldown_secs"`
	MaxHops      int  `toml:"max_hops" yaml:"max_hops"`
	TimeoutMS    int  `toml:"timeout_ms" yaml:"timeout_ms"`
}

type EnrichConfig struct {
	Country     bool   `toml:"country" yaml:"country"`
	Certificate bool   `toml:"certificate" yaml:"certificate"`
	IPInfoURL   string `toml:"ipinfo_url" yaml:"ipinfo_url"`
	TimeoutMS   int    `toml:"timeout_ms" yaml:"timeout_ms"`
}

type TargetConfig struct {
	Name string `toml:"name" yaml:"name"`
	Host string `toml:"host" yaml:"host"`
}

const (
	BackendExec = "exec"
	BackendICMP = "icmp"
)

// DefaultTargets is the built-in server list used when none are configured.
var DefaultTargets = []TargetConfig{
	{Name: "google", Host: "google.com"},
	{Name: "cloudflare", Host: "1.1.1.1"},
	{Name: "opendns", Host: "208.67.222.222"},
	{Name: "localhost", Host: "127.0.0.1"},
	{Name: "example", Host: "example.com"},
	{Name: "microsoft", Host: "microsoft.com"},
}

func Default() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

// Load reads a TOML file, or YAML when the extension says so. Missing
// settings fall back to defaults before validation.
func Load(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config file not found: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("decode config: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return cfg, fmt.Errorf("decode config: %w", err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Logging.MaxMB == 0 {
		c.Logging.MaxMB = 10
	}
	if c.Logging.MaxFiles == 0 {
		c.Logging.MaxFiles = 3
	}
	if c.Ping.Count == 0 {
		c.Ping.Count = 1
	}
	if c.Ping.TimeoutMS == 0 {
		c.Ping.TimeoutMS = 2000
	}
	if c.Ping.Backend == "" {
		c.Ping.Backend = BackendExec
	}
	if c.Ping.Workers == 0 {
		c.Ping.Workers = 8
	}
	if c.DNS.TimeoutMS == 0 {
		c.DNS.TimeoutMS = 2000
	}
	if c.Watch.IntervalMS == 0 {
		c.Watch.IntervalMS = 5000
	}
	if c.Watch.WindowSecs == 0 {
		c.Watch.WindowSecs = 60
	}
	if c.Traceroute.CooldownSecs == 0 {
		c.Traceroute.CooldownSecs = 300
	}
	if c.Traceroute.MaxHops == 0 {
		c.Traceroute.MaxHops = 30
	}
	if c.Traceroute.TimeoutMS == 0 {
		c.Traceroute.TimeoutMS = 1000
	}
	if c.Enrich.IPInfoURL == "" {
		c.Enrich.IPInfoURL = "https://ipinfo.io"
	}
	if c.Enrich.TimeoutMS == 0 {
		c.Enrich.TimeoutMS = 5000
	}
	if len(c.Targets) == 0 {
		c.Targets = append([]TargetConfig(nil), DefaultTargets...)
	}
}

func (c *Config) validate() error {
	var errs []string

	if c.Logging.MaxMB <= 0 {
		errs = append(errs, "logging.max_mb must be > 0")
	}
	if c.Logging.MaxFiles <= 0 {
		errs = append(errs, "logging.max_files must be > 0")
	}
	if c.Ping.Count <= 0 {
		errs = append(errs, "ping.count must be > 0")
	}
	if c.Ping.TimeoutMS <= 0 {
		errs = append(errs, "ping.timeout_ms must be > 0")
	}
	if c.Ping.DeadlineMS < 0 {
		errs = append(errs, "ping.deadline_ms must be >= 0")
	}
	if c.Ping.Backend != BackendExec && c.Ping.Backend != BackendICMP {
		errs = append(errs, fmt.Sprintf("ping.backend must be %q or %q", BackendExec, BackendICMP))
	}
	if c.Ping.Workers <= 0 {
		errs = append(errs, "ping.workers must be > 0")
	}
	if c.DNS.TimeoutMS <= 0 {
		errs = append(errs, "dns.timeout_ms must be > 0")
	}
	for i, r := range c.DNS.Resolvers {
		if strings.TrimSpace(r) == "" {
			errs = append(errs, fmt.Sprintf("dns.resolvers[%d] is empty", i))
		}
	}
	if c.Watch.IntervalMS <= 0 {
		errs = append(errs, "watch.interval_ms must be > 0")
	}
	if c.Watch.WindowSecs <= 0 {
		errs = append(errs, "watch.window_secs must be > 0")
	}
	if c.Watch.Rounds < 0 {
		errs = append(errs, "watch.rounds must be >= 0")
	}
	if c.Traceroute.CooldownSecs <= 0 {
		errs = append(errs, "traceroute.cooldown_secs must be > 0")
	}
	if c.Traceroute.MaxHops <= 0 {
		errs = append(errs, "traceroute.max_hops must be > 0")
	}
	if c.Traceroute.TimeoutMS <= 0 {
		errs = append(errs, "traceroute.timeout_ms must be > 0")
	}
	if c.Enrich.TimeoutMS <= 0 {
		errs = append(errs, "enrich.timeout_ms must be > 0")
	}
	for i, t := range c.Targets {
		if strings.TrimSpace(t.Host) == "" {
			errs = append(errs, fmt.Sprintf("targets[%d].host is required", i))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

// Validate reports every problem with c, used after flag overrides.
func (c Config) Validate() error {
	return c.validate()
}

func (p PingConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutMS) * time.Millisecond
}

func (p PingConfig) Deadline() time.Duration {
	return time.Duration(p.DeadlineMS) * time.Millisecond
}

// Label is the display name of a target, its host when unnamed.
func (t TargetConfig) Label() string {
	if strings.TrimSpace(t.Name) == "" {
		return t.Host
	}
	return t.Name
}
