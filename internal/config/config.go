// Package config loads and validates the service configuration from
// YAML files and CITRAFS_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

// Configuration represents the complete service configuration.
type Configuration struct {
	Global     GlobalConfig     `yaml:"global"`
	Storage    StorageConfig    `yaml:"storage"`
	Remote     RemoteConfig     `yaml:"remote"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// GlobalConfig represents global application settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// StorageConfig locates the emulated media roots on the host.
type StorageConfig struct {
	// SDMCDir is the root of the emulated SD card.
	SDMCDir string `yaml:"sdmc_dir"`
	// NANDDir is the root of the emulated internal storage. System
	// save data and shared extra data live under it.
	NANDDir string `yaml:"nand_dir"`
	// ContentDir holds installed title content images.
	ContentDir string `yaml:"content_dir"`
}

// RemoteConfig configures the optional object-store mirror for save
// data. Disabled unless a bucket is set.
type RemoteConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Bucket         string `yaml:"bucket"`
	Region         string `yaml:"region"`
	Endpoint       string `yaml:"endpoint"`
	Prefix         string `yaml:"prefix"`
	ForcePathStyle bool   `yaml:"force_path_style"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	MaxRetries     int    `yaml:"max_retries"`
}

// MonitoringConfig represents metrics settings.
type MonitoringConfig struct {
	Enabled     bool   `yaml:"enabled"`
	MetricsPort int    `yaml:"metrics_port"`
	MetricsPath string `yaml:"metrics_path"`
	Namespace   string `yaml:"namespace"`
}

// NewDefault returns a configuration with sensible defaults. The
// storage roots default to a per-user data directory.
func NewDefault() *Configuration {
	dataDir := defaultDataDir()
	return &Configuration{
		Global: GlobalConfig{
			LogLevel: "INFO",
		},
		Storage: StorageConfig{
			SDMCDir:    filepath.Join(dataDir, "sdmc"),
			NANDDir:    filepath.Join(dataDir, "nand"),
			ContentDir: filepath.Join(dataDir, "content"),
		},
		Remote: RemoteConfig{
			Region:     "us-east-1",
			MaxRetries: 3,
		},
		Monitoring: MonitoringConfig{
			Enabled:     false,
			MetricsPort: 9090,
			MetricsPath: "/metrics",
			Namespace:   "citrafs",
		},
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "citrafs")
	}
	return "citrafs-data"
}

// LoadFromFile loads configuration from a YAML file.
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// LoadFromEnv overrides configuration from environment variables.
func (c *Configuration) LoadFromEnv() error {
	if val := os.Getenv("CITRAFS_LOG_LEVEL"); val != "" {
		c.Global.LogLevel = val
	}
	if val := os.Getenv("CITRAFS_LOG_FILE"); val != "" {
		c.Global.LogFile = val
	}

	if val := os.Getenv("CITRAFS_SDMC_DIR"); val != "" {
		c.Storage.SDMCDir = val
	}
	if val := os.Getenv("CITRAFS_NAND_DIR"); val != "" {
		c.Storage.NANDDir = val
	}
	if val := os.Getenv("CITRAFS_CONTENT_DIR"); val != "" {
		c.Storage.ContentDir = val
	}

	if val := os.Getenv("CITRAFS_REMOTE_ENABLED"); val != "" {
		c.Remote.Enabled = strings.ToLower(val) == "true"
	}
	if val := os.Getenv("CITRAFS_REMOTE_BUCKET"); val != "" {
		c.Remote.Bucket = val
	}
	if val := os.Getenv("CITRAFS_REMOTE_REGION"); val != "" {
		c.Remote.Region = val
	}
	if val := os.Getenv("CITRAFS_REMOTE_ENDPOINT"); val != "" {
		c.Remote.Endpoint = val
	}
	if val := os.Getenv("CITRAFS_REMOTE_PREFIX"); val != "" {
		c.Remote.Prefix = val
	}
	if val := os.Getenv("CITRAFS_REMOTE_ACCESS_KEY"); val != "" {
		c.Remote.AccessKey = val
	}
	if val := os.Getenv("CITRAFS_REMOTE_SECRET_KEY"); val != "" {
		c.Remote.SecretKey = val
	}

	if val := os.Getenv("CITRAFS_METRICS_ENABLED"); val != "" {
		c.Monitoring.Enabled = strings.ToLower(val) == "true"
	}
	if val := os.Getenv("CITRAFS_METRICS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.Monitoring.MetricsPort = port
		}
	}

	return nil
}

// SaveToFile saves the configuration to a YAML file.
func (c *Configuration) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Configuration) Validate() error {
	validLogLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	logLevelValid := false
	for _, level := range validLogLevels {
		if strings.ToUpper(c.Global.LogLevel) == level {
			logLevelValid = true
			break
		}
	}
	if !logLevelValid {
		return fmt.Errorf("invalid log_level: %s (must be one of: %s)",
			c.Global.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if c.Storage.SDMCDir == "" || c.Storage.NANDDir == "" {
		return fmt.Errorf("sdmc_dir and nand_dir must be set")
	}

	if c.Remote.Enabled && c.Remote.Bucket == "" {
		return fmt.Errorf("remote.bucket must be set when remote is enabled")
	}

	if c.Monitoring.Enabled && (c.Monitoring.MetricsPort <= 0 || c.Monitoring.MetricsPort > 65535) {
		return fmt.Errorf("invalid metrics_port: %d", c.Monitoring.MetricsPort)
	}

	return nil
}
