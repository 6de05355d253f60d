// Package config provides environment-based configuration for the build server.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the build server.
type Config struct {
	// Server configuration
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Directory layout
	ProjectsDir    string `yaml:"projects_dir"`
	BuildOutputDir string `yaml:"build_output_dir"`

	// Toolchain configuration
	FlutterBin string `yaml:"flutter_bin"`
	Shell      string `yaml:"shell"`

	// Authentication. Auth is disabled when the secret is empty.
	JWTSecret string        `yaml:"jwt_secret"`
	JWTExpiry time.Duration `yaml:"jwt_expiry"`

	// Process supervision timeouts
	BuildStopGrace  time.Duration `yaml:"build_stop_grace"`
	RunStopGrace    time.Duration `yaml:"run_stop_grace"`
	ScriptTimeout   time.Duration `yaml:"script_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Logging
	LogJSON  bool   `yaml:"log_json"`
	LogLevel string `yaml:"log_level"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Host:            getEnv("APPFORGE_HOST", "0.0.0.0"),
		Port:            getIntEnv("APPFORGE_PORT", 8080),
		ProjectsDir:     getEnv("APPFORGE_PROJECTS_DIR", "./data/projects"),
		BuildOutputDir:  getEnv("APPFORGE_BUILD_OUTPUT_DIR", "./data/builds"),
		FlutterBin:      getEnv("APPFORGE_FLUTTER_BIN", "flutter"),
		Shell:           getEnv("APPFORGE_SHELL", "/bin/bash"),
		JWTSecret:       getEnv("APPFORGE_JWT_SECRET", ""),
		JWTExpiry:       getDurationEnv("APPFORGE_JWT_EXPIRY", 24*time.Hour),
		BuildStopGrace:  getDurationEnv("APPFORGE_BUILD_STOP_GRACE", 5*time.Second),
		RunStopGrace:    getDurationEnv("APPFORGE_RUN_STOP_GRACE", 10*time.Second),
		ScriptTimeout:   getDurationEnv("APPFORGE_SCRIPT_TIMEOUT", 5*time.Minute),
		ShutdownTimeout: getDurationEnv("APPFORGE_SHUTDOWN_TIMEOUT", 30*time.Second),
		LogJSON:         getBoolEnv("APPFORGE_LOG_JSON", true),
		LogLevel:        getEnv("APPFORGE_LOG_LEVEL", "info"),
	}

	if path := getEnv("APPFORGE_CONFIG_FILE", ""); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile overlays values from a YAML configuration file.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.ProjectsDir == "" {
		return fmt.Errorf("projects directory must be set")
	}
	if c.BuildOutputDir == "" {
		return fmt.Errorf("build output directory must be set")
	}
	if c.FlutterBin == "" {
		return fmt.Errorf("flutter binary must be set")
	}
	return nil
}

// Addr returns the host:port address the server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
