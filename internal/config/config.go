package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Role identifies what a node does in the cluster.
type Role string

const (
	// RoleLeader is the sole node accepting client writes.
	RoleLeader Role = "leader"
	// RoleFollower only accepts replicate calls from the leader and
	// serves stale-tolerant reads.
	RoleFollower Role = "follower"
)

// Settings holds the full node configuration. Leader-only fields are
// ignored on followers.
type Settings struct {
	Role   Role   `yaml:"role"`
	NodeID string `yaml:"node_id"`

	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Leader-only.
	FollowerURLs       []string `yaml:"follower_urls"`
	WriteQuorum        int      `yaml:"write_quorum"`
	ReplicateTimeoutMS int      `yaml:"replicate_timeout_ms"`
	MinDelayMS         int      `yaml:"min_delay_ms"`
	MaxDelayMS         int      `yaml:"max_delay_ms"`
	ProbeIntervalMS    int      `yaml:"probe_interval_ms"`
}

// Default returns the settings a node starts from before env or file
// overrides.
func Default() Settings {
	return Settings{
		Role:               RoleLeader,
		Host:               "0.0.0.0",
		Port:               8000,
		WriteQuorum:        1,
		ReplicateTimeoutMS: 2000,
		MinDelayMS:         0,
		MaxDelayMS:         0,
		ProbeIntervalMS:    2000,
	}
}

// FromEnv builds settings from environment variables on top of the
// defaults.
func FromEnv() (Settings, error) {
	s := Default()

	if v := strings.TrimSpace(os.Getenv("ROLE")); v != "" {
		s.Role = Role(strings.ToLower(v))
	}
	s.NodeID = strings.TrimSpace(os.Getenv("NODE_ID"))
	if s.NodeID == "" {
		s.NodeID = string(s.Role)
	}
	if v := strings.TrimSpace(os.Getenv("HOST")); v != "" {
		s.Host = v
	}

	var err error
	if s.Port, err = intEnv("PORT", s.Port); err != nil {
		return s, err
	}
	if s.WriteQuorum, err = intEnv("WRITE_QUORUM", s.WriteQuorum); err != nil {
		return s, err
	}
	if s.ReplicateTimeoutMS, err = intEnv("REPLICATE_TIMEOUT_MS", s.ReplicateTimeoutMS); err != nil {
		return s, err
	}
	if s.MinDelayMS, err = intEnv("MIN_DELAY_MS", s.MinDelayMS); err != nil {
		return s, err
	}
	if s.MaxDelayMS, err = intEnv("MAX_DELAY_MS", s.MaxDelayMS); err != nil {
		return s, err
	}
	if s.ProbeIntervalMS, err = intEnv("PROBE_INTERVAL_MS", s.ProbeIntervalMS); err != nil {
		return s, err
	}

	s.FollowerURLs = ParseFollowerURLs(os.Getenv("FOLLOWER_URLS"))

	return s, nil
}

// LoadFile builds settings from a YAML file on top of the defaults.
func LoadFile(path string) (Settings, error) {
	s := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if s.NodeID == "" {
		s.NodeID = string(s.Role)
	}
	return s, nil
}

// ParseFollowerURLs parses a comma-separated list of follower base URLs,
// e.g. "http://f1:8000,http://f2:8000". Empty entries are dropped.
func ParseFollowerURLs(raw string) []string {
	parts := strings.Split(raw, ",")
	urls := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		urls = append(urls, strings.TrimRight(p, "/"))
	}
	return urls
}

// Validate checks the settings once at startup. Any error here is fatal:
// the process refuses to serve rather than run with a broken replication
// contract.
func (s Settings) Validate() error {
	if s.Role != RoleLeader && s.Role != RoleFollower {
		return fmt.Errorf("role must be %q or %q, got %q", RoleLeader, RoleFollower, s.Role)
	}
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("port %d out of range", s.Port)
	}

	if s.Role == RoleFollower {
		return nil
	}

	if len(s.FollowerURLs) == 0 {
		return fmt.Errorf("leader requires at least one follower URL")
	}
	if s.WriteQuorum < 1 || s.WriteQuorum > len(s.FollowerURLs) {
		return fmt.Errorf("write quorum %d out of range [1, %d]", s.WriteQuorum, len(s.FollowerURLs))
	}
	if s.ReplicateTimeoutMS <= 0 {
		return fmt.Errorf("replicate timeout must be positive, got %dms", s.ReplicateTimeoutMS)
	}
	if s.MinDelayMS < 0 || s.MaxDelayMS < 0 {
		return fmt.Errorf("delays must be non-negative, got min=%dms max=%dms", s.MinDelayMS, s.MaxDelayMS)
	}
	if s.MinDelayMS > s.MaxDelayMS {
		return fmt.Errorf("min delay %dms exceeds max delay %dms", s.MinDelayMS, s.MaxDelayMS)
	}
	if s.ProbeIntervalMS <= 0 {
		return fmt.Errorf("probe interval must be positive, got %dms", s.ProbeIntervalMS)
	}
	return nil
}

// ListenAddr returns the host:port the node binds.
func (s Settings) ListenAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ReplicateTimeout returns the replication round budget.
func (s Settings) ReplicateTimeout() time.Duration {
	return time.Duration(s.ReplicateTimeoutMS) * time.Millisecond
}

// MinDelay returns the lower bound of the simulated replication lag.
func (s Settings) MinDelay() time.Duration {
	return time.Duration(s.MinDelayMS) * time.Millisecond
}

// MaxDelay returns the upper bound of the simulated replication lag.
func (s Settings) MaxDelay() time.Duration {
	return time.Duration(s.MaxDelayMS) * time.Millisecond
}

// ProbeInterval returns how often the leader probes follower health.
func (s Settings) ProbeInterval() time.Duration {
	return time.Duration(s.ProbeIntervalMS) * time.Millisecond
}

func intEnv(name string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s=%q: %w", name, raw, err)
	}
	return v, nil
}
