// Package config loads the hub's configuration from a YAML file plus
// environment overrides, favoring a typed struct decoded with
// gopkg.in/yaml.v3 over hand-rolled flag parsing. Env overrides with a
// HUB_ prefix and a double-underscore nesting delimiter are this hub's own
// scheme, documented in SPEC_FULL.md.
package config

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aegishub/hub/internal/herr"
)

// Role distinguishes a hub that accepts registrations (primary) from one
// that only heartbeats a configured primary (secondary).
type Role string

const (
	RolePrimary   Role = "primary"
	RoleSecondary Role = "secondary"
)

// Config is the hub's full configuration tree, matching §6's configuration
// key table field for field.
type Config struct {
	Hub       HubConfig       `yaml:"hub"`
	Database  DatabaseConfig  `yaml:"database"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Trust     TrustConfig     `yaml:"trust"`
	Resources ResourcesConfig `yaml:"resources"`
}

type HubConfig struct {
	Role      Role   `yaml:"role"`
	HubID     string `yaml:"hub_id"`
	PublicURL string `yaml:"public_url"`
}

type DatabaseConfig struct {
	DataDir     string `yaml:"data_dir"`
	CacheSizeMB int    `yaml:"cache_size_mb"`
}

type DiscoveryConfig struct {
	PrimaryHubURL string `yaml:"primary_hub_url"`
}

type TrustConfig struct {
	MaxDepth          int     `yaml:"max_depth"`
	DampingFactor     float64 `yaml:"damping_factor"`
	MinTrustThreshold float64 `yaml:"min_trust_threshold"`
}

type ResourcesConfig struct {
	WarningThreshold  float64 `yaml:"warning_threshold"`
	CriticalThreshold float64 `yaml:"critical_threshold"`
	CheckIntervalSec  int     `yaml:"check_interval_sec"`
}

// Default returns the configuration a freshly initialized primary hub
// starts from, before a config file or environment overrides are applied.
func Default() Config {
	return Config{
		Hub: HubConfig{Role: RolePrimary},
		Database: DatabaseConfig{
			DataDir:     "./data",
			CacheSizeMB: 64,
		},
		Trust: TrustConfig{
			MaxDepth:          5,
			DampingFactor:     0.8,
			MinTrustThreshold: 0.01,
		},
		Resources: ResourcesConfig{
			WarningThreshold:  70,
			CriticalThreshold: 90,
			CheckIntervalSec:  30,
		},
	}
}

// Load reads path (if non-empty) as YAML over the defaults, then applies
// HUB_-prefixed environment overrides, and returns the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, herr.Wrap(herr.Internal, err, "read config file %s", path)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, herr.Wrap(herr.Internal, err, "parse config file %s", path)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// applyEnvOverrides scans the process environment for HUB_-prefixed keys
// and writes them onto cfg's fields via the dotted-key setters below. An
// env var with no matching key is ignored rather than rejected, so adding
// a new key never requires touching deployed environments.
func applyEnvOverrides(cfg *Config) {
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, "HUB_") {
			continue
		}
		dotted := envNameToKey(strings.TrimPrefix(name, "HUB_"))
		setByKey(cfg, dotted, value)
	}
}

// envNameToKey reverses the HUB_ env naming scheme: uppercase segments
// joined by "__" for nesting, each segment's internal underscores are
// part of the field name, e.g. RESOURCES__WARNING_THRESHOLD ->
// resources.warning_threshold.
func envNameToKey(name string) string {
	segments := strings.Split(name, "__")
	for i, s := range segments {
		segments[i] = strings.ToLower(s)
	}
	return strings.Join(segments, ".")
}

// setByKey applies a single dotted configuration key, as produced by
// envNameToKey, onto cfg. Unknown keys are silently ignored; malformed
// numeric values are silently ignored too — env overrides are advisory
// convenience, not a validated input surface.
func setByKey(cfg *Config, key, value string) {
	switch key {
	case "hub.role":
		cfg.Hub.Role = Role(value)
	case "hub.hub_id":
		cfg.Hub.HubID = value
	case "hub.public_url":
		cfg.Hub.PublicURL = value
	case "database.data_dir":
		cfg.Database.DataDir = value
	case "database.cache_size_mb":
		if n, err := strconv.Atoi(value); err == nil {
			cfg.Database.CacheSizeMB = n
		}
	case "discovery.primary_hub_url":
		cfg.Discovery.PrimaryHubURL = value
	case "trust.max_depth":
		if n, err := strconv.Atoi(value); err == nil {
			cfg.Trust.MaxDepth = n
		}
	case "trust.damping_factor":
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			cfg.Trust.DampingFactor = f
		}
	case "trust.min_trust_threshold":
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			cfg.Trust.MinTrustThreshold = f
		}
	case "resources.warning_threshold":
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			cfg.Resources.WarningThreshold = f
		}
	case "resources.critical_threshold":
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			cfg.Resources.CriticalThreshold = f
		}
	case "resources.check_interval_sec":
		if n, err := strconv.Atoi(value); err == nil {
			cfg.Resources.CheckIntervalSec = n
		}
	}
}
