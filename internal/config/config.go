package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"meditimer/internal/timer"
)

// Config holds application configuration
type Config struct {
	LogLevel  string        `yaml:"log_level"`
	LogFormat string        `yaml:"log_format"`
	API       APIConfig     `yaml:"api"`
	HomeKit   HomeKitConfig `yaml:"homekit"`
	Timer     TimerConfig   `yaml:"timer"`
}

type APIConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type HomeKitConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Name     string `yaml:"name"`
	Addr     string `yaml:"addr"`
	Pin      string `yaml:"pin"`
	StoreDir string `yaml:"store_dir"`
}

type TimerConfig struct {
	DefaultSeconds int            `yaml:"default_seconds"`
	TickInterval   time.Duration  `yaml:"tick_interval"`
	Bell           bool           `yaml:"bell"`
	Presets        []timer.Preset `yaml:"presets"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		API: APIConfig{
			Addr:            ":30002",
			ShutdownTimeout: 5 * time.Second,
		},
		HomeKit: HomeKitConfig{
			Enabled:  false,
			Name:     "meditimer",
			Addr:     ":30001",
			Pin:      "00102003",
			StoreDir: "./db",
		},
		Timer: TimerConfig{
			DefaultSeconds: timer.DefaultSeconds,
			TickInterval:   time.Second,
			Bell:           true,
			Presets:        timer.DefaultPresets(),
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// any), then MEDITIMER_* environment overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadPresets reads only the preset list from a config file.
func LoadPresets(path string) ([]timer.Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var partial struct {
		Timer struct {
			Presets []timer.Preset `yaml:"presets"`
		} `yaml:"timer"`
	}
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := timer.ValidatePresets(partial.Timer.Presets); err != nil {
		return nil, err
	}
	return partial.Timer.Presets, nil
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	if c.API.Addr == "" {
		return errors.New("api.addr is required")
	}
	if c.Timer.TickInterval <= 0 {
		return errors.New("timer.tick_interval must be positive")
	}
	if err := timer.ValidateSeconds(c.Timer.DefaultSeconds); err != nil {
		return fmt.Errorf("timer.default_seconds: %w", err)
	}
	if err := timer.ValidatePresets(c.Timer.Presets); err != nil {
		return fmt.Errorf("timer.presets: %w", err)
	}
	if c.HomeKit.Enabled {
		if c.HomeKit.Addr == "" || c.HomeKit.StoreDir == "" {
			return errors.New("homekit.addr and homekit.store_dir are required when homekit is enabled")
		}
		if len(c.HomeKit.Pin) != 8 {
			return errors.New("homekit.pin must be 8 digits")
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	c.LogLevel = getEnv("MEDITIMER_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("MEDITIMER_LOG_FORMAT", c.LogFormat)
	c.API.Addr = getEnv("MEDITIMER_API_ADDR", c.API.Addr)
	c.API.ShutdownTimeout = getEnvAsDuration("MEDITIMER_SHUTDOWN_TIMEOUT", c.API.ShutdownTimeout)
	c.HomeKit.Enabled = getEnvAsBool("MEDITIMER_HOMEKIT_ENABLED", c.HomeKit.Enabled)
	c.HomeKit.Name = getEnv("MEDITIMER_HOMEKIT_NAME", c.HomeKit.Name)
	c.HomeKit.Addr = getEnv("MEDITIMER_HOMEKIT_ADDR", c.HomeKit.Addr)
	c.HomeKit.Pin = getEnv("MEDITIMER_HOMEKIT_PIN", c.HomeKit.Pin)
	c.HomeKit.StoreDir = getEnv("MEDITIMER_HOMEKIT_STORE_DIR", c.HomeKit.StoreDir)
	c.Timer.DefaultSeconds = getEnvAsInt("MEDITIMER_DEFAULT_SECONDS", c.Timer.DefaultSeconds)
	c.Timer.TickInterval = getEnvAsDuration("MEDITIMER_TICK_INTERVAL", c.Timer.TickInterval)
	c.Timer.Bell = getEnvAsBool("MEDITIMER_BELL", c.Timer.Bell)
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}
