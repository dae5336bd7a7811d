package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level agent configuration, loaded once at process
// start from a YAML file.
type Config struct {
	// WorkDir is the directory the lock database, cached keys, and any
	// other on-disk state live under.
	WorkDir string `yaml:"work_dir"`

	// Threads bounds how many background promises the engine may
	// evaluate concurrently.
	Threads int `yaml:"threads"`

	// FIPSMode selects FIPS-approved primitives for the copy protocol's
	// handshake. It is loaded from the config file but no subcommand
	// reads it: the copy subcommand takes the setting from its --fips
	// flag. In pkg/copyproto that setting makes the client send SHA-256
	// digests instead of MD5; the server's reply digest is accepted in
	// either form whatever the setting.
	FIPSMode bool `yaml:"fips_mode"`

	// TrustOnFirstUse selects whether an unrecognised server's public
	// key is accepted and cached on first contact (true) or must
	// already be present in the trusted key cache (false). It is loaded
	// from the config file but no subcommand reads it: the copy
	// subcommand takes the setting from its --trust-on-first-use flag.
	TrustOnFirstUse bool `yaml:"trust_on_first_use"`

	Transaction TransactionDefaults `yaml:"transaction"`
	Metrics     MetricsConfig       `yaml:"metrics"`
	Log         LogConfig           `yaml:"log"`
}

// TransactionDefaults holds site-wide ifelapsed/expireafter values in
// seconds. They are loaded from the config file but not applied:
// policy.DefaultTransactionAttributes takes no input and returns fixed
// one-minute values.
type TransactionDefaults struct {
	IfElapsedSeconds   int `yaml:"if_elapsed_seconds"`
	ExpireAfterSeconds int `yaml:"expire_after_seconds"`
}

// MetricsConfig configures the Prometheus /metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LogConfig configures pkg/log.
type LogConfig struct {
	Level      string `yaml:"level"`
	JSONOutput bool   `yaml:"json_output"`
}

// Default returns the configuration used when no file is given: a
// work directory under the user's home, a single-threaded engine, and
// one-minute transaction defaults.
func Default() Config {
	return Config{
		WorkDir:         defaultWorkDir(),
		Threads:         1,
		TrustOnFirstUse: true,
		Transaction:     TransactionDefaults{IfElapsedSeconds: 60, ExpireAfterSeconds: 60},
		Metrics:         MetricsConfig{Enabled: true, Addr: ":9420"},
		Log:             LogConfig{Level: "info"},
	}
}

func defaultWorkDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/var/lib/promised"
	}
	return home + "/.promised"
}

// Load reads and parses the YAML configuration file at path, applying
// Default's values for any field the file leaves unset by starting
// from the default and letting yaml.Unmarshal overwrite only the keys
// present in the document.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate rejects a configuration that cannot be used to start the
// agent.
func (c Config) Validate() error {
	if c.WorkDir == "" {
		return fmt.Errorf("config: work_dir must not be empty")
	}
	if c.Threads <= 0 {
		return fmt.Errorf("config: threads must be positive, got %d", c.Threads)
	}
	if c.Transaction.IfElapsedSeconds < 0 || c.Transaction.ExpireAfterSeconds < 0 {
		return fmt.Errorf("config: transaction durations must not be negative")
	}
	return nil
}

// IfElapsed returns the configured default ifelapsed interval as a
// time.Duration.
func (c Config) IfElapsed() time.Duration {
	return time.Duration(c.Transaction.IfElapsedSeconds) * time.Second
}

// ExpireAfter returns the configured default expireafter interval as a
// time.Duration.
func (c Config) ExpireAfter() time.Duration {
	return time.Duration(c.Transaction.ExpireAfterSeconds) * time.Second
}
