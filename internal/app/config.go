package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

const appName = "scripter"

// CompletionsConfig tunes the local completions service.
type CompletionsConfig struct {
	MaxBufferBytes int `mapstructure:"max_buffer_bytes" yaml:"max_buffer_bytes"`
	Limit          int `mapstructure:"limit" yaml:"limit"`
}

// Config is the file-backed runtime configuration.
type Config struct {
	TakesDir       string            `mapstructure:"takes_dir" yaml:"takes_dir"`
	Loop           bool              `mapstructure:"loop" yaml:"loop"`
	DebounceMS     int               `mapstructure:"debounce_ms" yaml:"debounce_ms"`
	StepGapMS      int               `mapstructure:"step_gap_ms" yaml:"step_gap_ms"`
	Speed          float64           `mapstructure:"speed" yaml:"speed"`
	FetchTimeoutMS int               `mapstructure:"fetch_timeout_ms" yaml:"fetch_timeout_ms"`
	JSTimeoutMS    int               `mapstructure:"js_timeout_ms" yaml:"js_timeout_ms"`
	LogLevel       string            `mapstructure:"log_level" yaml:"log_level"`
	Completions    CompletionsConfig `mapstructure:"completions" yaml:"completions"`
}

// Debounce returns the tab-switch debounce window.
func (c Config) Debounce() time.Duration { return ms(c.DebounceMS) }

// StepGap returns the delay between steps.
func (c Config) StepGap() time.Duration { return ms(c.StepGapMS) }

// FetchTimeout returns the completion fetch budget for idle files.
func (c Config) FetchTimeout() time.Duration { return ms(c.FetchTimeoutMS) }

// JSTimeout is the hard limit on evaluating a JS take.
func (c Config) JSTimeout() time.Duration { return ms(c.JSTimeoutMS) }

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// DefaultConfigPath returns $XDG_CONFIG_HOME/scripter/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

// DefaultTakesDir returns $XDG_CONFIG_HOME/scripter/takes.
func DefaultTakesDir() string {
	return filepath.Join(xdg.ConfigHome, appName, "takes")
}

// LoadConfig reads path (DefaultConfigPath when empty). A missing file yields
// the defaults; SCRIPTER_* environment variables override both, e.g.
// SCRIPTER_COMPLETIONS_LIMIT=5.
func LoadConfig(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultConfigPath()
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("SCRIPTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("takes_dir", DefaultTakesDir())
	v.SetDefault("loop", false)
	v.SetDefault("debounce_ms", 300)
	v.SetDefault("step_gap_ms", 20)
	v.SetDefault("speed", 1.0)
	v.SetDefault("fetch_timeout_ms", 200)
	v.SetDefault("js_timeout_ms", 5000)
	v.SetDefault("log_level", "info")
	v.SetDefault("completions.max_buffer_bytes", 1<<20)
	v.SetDefault("completions.limit", 10)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values that would stall or spin playback.
func (c Config) Validate() error {
	switch {
	case c.Speed <= 0:
		return fmt.Errorf("config: speed must be > 0, got %v", c.Speed)
	case c.DebounceMS < 0, c.StepGapMS < 0, c.FetchTimeoutMS < 0:
		return errors.New("config: durations must not be negative")
	case c.JSTimeoutMS <= 0:
		return fmt.Errorf("config: js_timeout_ms must be > 0, got %d", c.JSTimeoutMS)
	case c.Completions.Limit < 0 || c.Completions.MaxBufferBytes < 0:
		return errors.New("config: completions limits must not be negative")
	}
	return nil
}

// EnsureTakesDir creates the user takes directory if absent.
func (c Config) EnsureTakesDir() error {
	if c.TakesDir == "" {
		return nil
	}
	if err := os.MkdirAll(c.TakesDir, 0o755); err != nil {
		return fmt.Errorf("config: create takes dir: %w", err)
	}
	return nil
}
