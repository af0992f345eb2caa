package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// #region config-types
// Config drives an evaluation run.
type Config struct {
	DBPath          string           `yaml:"db_path"`
	Gamma           float64          `yaml:"gamma"`
	RewardShift     float64          `yaml:"reward_shift"`
	SplitByEpisode  bool             `yaml:"split_by_episode"`
	Concurrency     int              `yaml:"concurrency"`
	Policy          PolicyConfig     `yaml:"policy"`
	Acceptance      AcceptanceConfig `yaml:"acceptance"`
	ReportPath      string           `yaml:"report_path"`
	MetricsTextfile string           `yaml:"metrics_textfile"`
}

// PolicyConfig selects the target policy implementation.
type PolicyConfig struct {
	Type      string        `yaml:"type"` // "grpc" | "tabular"
	Addr      string        `yaml:"addr"`
	Timeout   time.Duration `yaml:"timeout"`
	TablePath string        `yaml:"table_path"`
}

// AcceptanceConfig holds the thresholds a target policy must clear.
type AcceptanceConfig struct {
	MinGain    float64 `yaml:"min_gain"`
	MinBatches int     `yaml:"min_batches"`
}

// #endregion config-types

// #region defaults
// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		DBPath:      "ope.db",
		Gamma:       0.99,
		Concurrency: 4,
		Policy: PolicyConfig{
			Type:    "grpc",
			Addr:    "localhost:50061",
			Timeout: 10 * time.Second,
		},
		Acceptance: AcceptanceConfig{
			MinGain:    1.0,
			MinBatches: 1,
		},
	}
}

// #endregion defaults

// #region load
// Load reads a YAML config file over Default. An empty path returns Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from OPE_DB, OPE_POLICY_ADDR and OPE_GAMMA.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("OPE_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("OPE_POLICY_ADDR"); v != "" {
		c.Policy.Addr = v
	}
	if v := os.Getenv("OPE_GAMMA"); v != "" {
		g, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("OPE_GAMMA: %w", err)
		}
		c.Gamma = g
	}
	return nil
}

// #endregion load

// #region validate
// Validate checks ranges and required fields.
func (c Config) Validate() error {
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("gamma %v outside [0, 1]", c.Gamma)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1, got %d", c.Concurrency)
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	switch c.Policy.Type {
	case "grpc":
		if c.Policy.Addr == "" {
			return fmt.Errorf("policy.addr is required for grpc policy")
		}
	case "tabular":
		if c.Policy.TablePath == "" {
			return fmt.Errorf("policy.table_path is required for tabular policy")
		}
	default:
		return fmt.Errorf("unsupported policy type: %q", c.Policy.Type)
	}
	if c.Acceptance.MinBatches < 0 {
		return fmt.Errorf("acceptance.min_batches must be >= 0")
	}
	return nil
}

// #endregion validate
