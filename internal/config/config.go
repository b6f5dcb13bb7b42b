// Package config loads mca settings from defaults, an optional TOML file, and MCA_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/eykd/mcaddon-go/internal/scriptgen"
)

const (
	// AppName names the per-user configuration directory.
	AppName = "mca"
	// FileName is the configuration file looked up in the working directory and the
	// per-user configuration directory.
	FileName = "mca.toml"
	// EnvPrefix prefixes every environment override, e.g. MCA_SERVER_ADDR.
	EnvPrefix = "MCA"
	// EnvAPIKey holds the provider API key.
	EnvAPIKey = "MCA_AI_API_KEY"
)

// Config is the effective configuration.
type Config struct {
	AI      AIConfig      `toml:"ai"`
	Server  ServerConfig  `toml:"server"`
	History HistoryConfig `toml:"history"`
	Log     LogConfig     `toml:"log"`
}

// AIConfig selects and tunes the script generation provider.
type AIConfig struct {
	Provider    string   `toml:"provider"`
	Model       string   `toml:"model"`
	BaseURL     string   `toml:"base_url"`
	Timeout     Duration `toml:"timeout"`
	Temperature float64  `toml:"temperature"`
	// APIKey is never rendered.
	APIKey string `toml:"-"`
}

// ServerConfig configures mca serve.
type ServerConfig struct {
	Addr           string   `toml:"addr"`
	SessionTimeout Duration `toml:"session_timeout"`
}

// HistoryConfig locates the export log. An empty Path disables it.
type HistoryConfig struct {
	Path string `toml:"path"`
}

// LogConfig sets the log level: debug, info, warn, error or fatal.
type LogConfig struct {
	Level string `toml:"level"`
}

// Duration is a time.Duration written as "90s" in TOML.
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		AI: AIConfig{
			Provider:    scriptgen.ProviderOpenAI,
			Model:       scriptgen.DefaultModel(scriptgen.ProviderOpenAI),
			Timeout:     Duration(scriptgen.DefaultTimeout),
			Temperature: scriptgen.DefaultTemperature,
		},
		Server: ServerConfig{
			Addr:           "127.0.0.1:8765",
			SessionTimeout: Duration(30 * time.Minute),
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadOptions controls where Load looks for a configuration file.
type LoadOptions struct {
	// ConfigFile is used exclusively when set and must exist.
	ConfigFile string
	// WorkDir is searched for mca.toml first. Empty means the current directory.
	WorkDir string
	// UserDir overrides the per-user configuration directory.
	UserDir string
}

// Load resolves the effective configuration and the path of the file it read, which
// is empty when only defaults and the environment apply.
func Load(opts LoadOptions) (*Config, string, error) {
	v := viper.New()
	defaults := DefaultConfig()
	v.SetDefault("ai.provider", defaults.AI.Provider)
	v.SetDefault("ai.model", "")
	v.SetDefault("ai.base_url", defaults.AI.BaseURL)
	v.SetDefault("ai.timeout", defaults.AI.Timeout.Std())
	v.SetDefault("ai.temperature", defaults.AI.Temperature)
	v.SetDefault("server.addr", defaults.Server.Addr)
	v.SetDefault("server.session_timeout", defaults.Server.SessionTimeout.Std())
	v.SetDefault("history.path", defaults.History.Path)
	v.SetDefault("log.level", defaults.Log.Level)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("ai.api_key", EnvAPIKey); err != nil {
		return nil, "", fmt.Errorf("binding %s: %w", EnvAPIKey, err)
	}

	path, err := resolveFile(opts)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("reading config %s: %w", path, err)
		}
		if v.InConfig("ai.api_key") {
			return nil, "", fmt.Errorf("config %s: ai.api_key is not read from files; set %s", path, EnvAPIKey)
		}
	}

	cfg := &Config{
		AI: AIConfig{
			Provider:    strings.ToLower(strings.TrimSpace(v.GetString("ai.provider"))),
			Model:       strings.TrimSpace(v.GetString("ai.model")),
			BaseURL:     strings.TrimSpace(v.GetString("ai.base_url")),
			Timeout:     Duration(v.GetDuration("ai.timeout")),
			Temperature: v.GetFloat64("ai.temperature"),
			APIKey:      strings.TrimSpace(v.GetString("ai.api_key")),
		},
		Server: ServerConfig{
			Addr:           v.GetString("server.addr"),
			SessionTimeout: Duration(v.GetDuration("server.session_timeout")),
		},
		History: HistoryConfig{Path: expandHome(v.GetString("history.path"))},
		Log:     LogConfig{Level: strings.ToLower(strings.TrimSpace(v.GetString("log.level")))},
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = scriptgen.DefaultModel(cfg.AI.Provider)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.AI.Provider {
	case scriptgen.ProviderOpenAI, scriptgen.ProviderOpenAICompatible, scriptgen.ProviderAnthropic:
	default:
		return fmt.Errorf("ai.provider %q: want openai, openai_compatible or anthropic", c.AI.Provider)
	}
	if c.AI.Provider == scriptgen.ProviderOpenAICompatible && c.AI.BaseURL == "" {
		return errors.New("ai.base_url is required for the openai_compatible provider")
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		return fmt.Errorf("ai.temperature %v: want a value between 0 and 2", c.AI.Temperature)
	}
	if c.AI.Timeout <= 0 {
		return errors.New("ai.timeout must be positive")
	}
	if c.Server.SessionTimeout <= 0 {
		return errors.New("server.session_timeout must be positive")
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server.addr is empty")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Render writes c as TOML. The API key is omitted.
func Render(w io.Writer, c *Config) error {
	if err := toml.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("rendering config: %w", err)
	}
	return nil
}

// UserDir returns the per-user configuration directory for mca.
func UserDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating user config directory: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

func resolveFile(opts LoadOptions) (string, error) {
	if opts.ConfigFile != "" {
		if !fileExists(opts.ConfigFile) {
			return "", fmt.Errorf("config file not found: %s", opts.ConfigFile)
		}
		return opts.ConfigFile, nil
	}

	local := filepath.Join(opts.WorkDir, FileName)
	if fileExists(local) {
		return local, nil
	}

	userDir := opts.UserDir
	if userDir == "" {
		d, err := UserDir()
		if err != nil {
			// No home directory: defaults and environment still apply.
			return "", nil
		}
		userDir = d
	}
	if p := filepath.Join(userDir, FileName); fileExists(p) {
		return p, nil
	}
	return "", nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func expandHome(path string) string {
	path = strings.TrimSpace(path)
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
