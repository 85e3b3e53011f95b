// Package config loads the agroplan JSON configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"
)

const (
	DefaultWeatherURL = "http://api.openweathermap.org/data/2.5/weather"
	DefaultSpeechURL  = "https://translate.google.com/translate_tts"
)

type Config struct {
	App       AppConfig                 `json:"app"`
	Gateways  map[string]GatewayConfig  `json:"gateways"`
	Providers map[string]ProviderConfig `json:"providers"`
	Weather   WeatherConfig             `json:"weather"`
	Speech    SpeechConfig              `json:"speech"`
	Memory    MemoryConfig              `json:"memory"`
	Reminders ReminderConfig            `json:"reminders"`
	Logs      LogConfig                 `json:"logs"`
	Policy    PolicyConfig              `json:"policy"`
}

type AppConfig struct {
	Name        string  `json:"name"`
	StepsFile   string  `json:"steps_file,omitempty"`
	Temperature float64 `json:"temperature"`
}

type GatewayConfig struct {
	Token   string `json:"token"`
	Enabled bool   `json:"enabled"`
}

type ProviderConfig struct {
	APIKey  string `json:"api_key"`
	Model   string `json:"model"`
	BaseURL string `json:"base_url,omitempty"`
	Enabled bool   `json:"enabled"`
}

type WeatherConfig struct {
	APIKey         string `json:"api_key"`
	BaseURL        string `json:"base_url"`
	Units          string `json:"units"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type SpeechConfig struct {
	Enabled        bool     `json:"enabled"`
	Language       string   `json:"language"`
	BaseURL        string   `json:"base_url"`
	TimeoutSeconds int      `json:"timeout_seconds"`
	Player         []string `json:"player,omitempty"` // command reading MP3 on stdin
}

type MemoryConfig struct {
	Type string `json:"type"`
	Path string `json:"path"` // empty disables run history
}

type ReminderConfig struct {
	Enabled         bool `json:"enabled"`
	IntervalSeconds int  `json:"interval_seconds"`
}

type LogConfig struct {
	Dir string `json:"dir"`
}

type PolicyConfig struct {
	MaxFieldLength int      `json:"max_field_length"`
	DenyPatterns   []string `json:"deny_patterns,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:        "agroplan",
			Temperature: 0.6,
		},
		Gateways:  map[string]GatewayConfig{},
		Providers: map[string]ProviderConfig{},
		Weather: WeatherConfig{
			BaseURL:        DefaultWeatherURL,
			Units:          "metric",
			TimeoutSeconds: 10,
		},
		Speech: SpeechConfig{
			Enabled:        true,
			Language:       "en",
			BaseURL:        DefaultSpeechURL,
			TimeoutSeconds: 15,
			Player:         []string{"mpg123", "-q", "-"},
		},
		Memory: MemoryConfig{Type: "sqlite"},
		Reminders: ReminderConfig{
			IntervalSeconds: 3600,
		},
		Logs: LogConfig{Dir: "logs"},
		Policy: PolicyConfig{
			MaxFieldLength: 120,
		},
	}
}

// LoadConfig reads path over the defaults. A missing file yields the defaults.
// String secrets may reference environment variables as ${NAME}.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg.expandEnv()
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}
	cfg.expandEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) expandEnv() {
	c.Weather.APIKey = os.ExpandEnv(c.Weather.APIKey)
	for name, p := range c.Providers {
		p.APIKey = os.ExpandEnv(p.APIKey)
		c.Providers[name] = p
	}
	for name, g := range c.Gateways {
		g.Token = os.ExpandEnv(g.Token)
		c.Gateways[name] = g
	}
}

// Validate checks value ranges. Missing credentials are reported by the
// component that needs them.
func (c *Config) Validate() error {
	var errs []error
	if c.App.Temperature < 0 || c.App.Temperature > 2 {
		errs = append(errs, fmt.Errorf("app.temperature must be within [0, 2], got %v", c.App.Temperature))
	}
	if c.Weather.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("weather.timeout_seconds must be positive"))
	}
	if c.Speech.Enabled && c.Speech.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("speech.timeout_seconds must be positive"))
	}
	if c.Reminders.Enabled && c.Reminders.IntervalSeconds < 60 {
		errs = append(errs, fmt.Errorf("reminders.interval_seconds must be at least 60"))
	}
	if c.Reminders.Enabled && c.Memory.Path == "" {
		errs = append(errs, fmt.Errorf("reminders require memory.path"))
	}
	if c.Policy.MaxFieldLength < 0 {
		errs = append(errs, fmt.Errorf("policy.max_field_length must not be negative"))
	}
	return errors.Join(errs...)
}

// GetDefaultProvider returns the first enabled provider in name order.
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if p := c.Providers[name]; p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}

// GetGateway returns the named gateway config if enabled and has a token.
func (c *Config) GetGateway(name string) (GatewayConfig, bool) {
	g, ok := c.Gateways[name]
	if ok && g.Enabled && g.Token != "" {
		return g, true
	}
	return GatewayConfig{}, false
}

func (w WeatherConfig) Timeout() time.Duration {
	return time.Duration(w.TimeoutSeconds) * time.Second
}

func (s SpeechConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

func (r ReminderConfig) Interval() time.Duration {
	return time.Duration(r.IntervalSeconds) * time.Second
}
