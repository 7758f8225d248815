package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"screenstream/internal/logger"
)

// CaptureConfig holds defaults for the capture streams
type CaptureConfig struct {
	Display             int `json:"display" yaml:"display"`
	RegionFrameRate     int `json:"region_frame_rate" yaml:"region_frame_rate"`
	FullScreenFrameRate int `json:"full_screen_frame_rate" yaml:"full_screen_frame_rate"`
	JPEGQuality         int `json:"jpeg_quality" yaml:"jpeg_quality"`
	QueueSize           int `json:"queue_size" yaml:"queue_size"`
	FailureThreshold    int `json:"failure_threshold" yaml:"failure_threshold"`
}

// ThumbnailConfig holds window thumbnail settings
type ThumbnailConfig struct {
	MaxEdge     int `json:"max_edge" yaml:"max_edge"`
	JPEGQuality int `json:"jpeg_quality" yaml:"jpeg_quality"`
}

// Config represents the application configuration
type Config struct {
	ServerPort int    `json:"server_port" yaml:"server_port"`
	LogLevel   string `json:"log_level" yaml:"log_level"`

	Capture   CaptureConfig   `json:"capture" yaml:"capture"`
	Thumbnail ThumbnailConfig `json:"thumbnail" yaml:"thumbnail"`
}

// Manager handles configuration
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// NewManager creates a new configuration manager. An empty configFile
// selects the default path under the user config directory.
func NewManager(configFile string) (*Manager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", "screenstream")
	actualConfigPath := filepath.Join(configDir, "config.yaml")
	if configFile != "" {
		actualConfigPath = configFile
	}

	m := &Manager{
		configPath: actualConfigPath,
	}

	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.config = m.getDefaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Msg("Config loaded")

	return m, nil
}

// getDefaults returns default configuration
func (m *Manager) getDefaults() *Config {
	return &Config{
		ServerPort: 8080,
		LogLevel:   "info",
		Capture: CaptureConfig{
			Display:             0,
			RegionFrameRate:     15,
			FullScreenFrameRate: 10,
			JPEGQuality:         80,
			QueueSize:           8,
			FailureThreshold:    10,
		},
		Thumbnail: ThumbnailConfig{
			MaxEdge:     320,
			JPEGQuality: 75,
		},
	}
}

// load reads the configuration from disk
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	// Fill zero-valued fields from defaults so partial configs stay usable
	defaults := m.getDefaults()
	if cfg.ServerPort == 0 {
		cfg.ServerPort = defaults.ServerPort
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	}
	if cfg.Capture.RegionFrameRate == 0 {
		cfg.Capture.RegionFrameRate = defaults.Capture.RegionFrameRate
	}
	if cfg.Capture.FullScreenFrameRate == 0 {
		cfg.Capture.FullScreenFrameRate = defaults.Capture.FullScreenFrameRate
	}
	if cfg.Capture.JPEGQuality == 0 {
		cfg.Capture.JPEGQuality = defaults.Capture.JPEGQuality
	}
	if cfg.Capture.QueueSize == 0 {
		cfg.Capture.QueueSize = defaults.Capture.QueueSize
	}
	if cfg.Capture.FailureThreshold == 0 {
		cfg.Capture.FailureThreshold = defaults.Capture.FailureThreshold
	}
	if cfg.Thumbnail.MaxEdge == 0 {
		cfg.Thumbnail.MaxEdge = defaults.Thumbnail.MaxEdge
	}
	if cfg.Thumbnail.JPEGQuality == 0 {
		cfg.Thumbnail.JPEGQuality = defaults.Thumbnail.JPEGQuality
	}

	m.mu.Lock()
	m.config = &cfg
	m.mu.Unlock()

	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return m.getDefaults()
	}

	cfg := *m.config
	return &cfg
}

// Save saves the current configuration to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	if cfg == nil {
		cfg = m.getDefaults()
	}

	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Str("path", m.configPath).
			Msg("Failed to write config")
		return err
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Config saved")
	return nil
}

// Update replaces the entire configuration
func (m *Manager) Update(cfg *Config) error {
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return m.Save()
}

// SetPort sets the server port
func (m *Manager) SetPort(port int) error {
	m.mu.Lock()
	m.config.ServerPort = port
	m.mu.Unlock()
	return m.Save()
}

// GetPort gets the server port
func (m *Manager) GetPort() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.ServerPort
}

// SetLogLevel sets the log level
func (m *Manager) SetLogLevel(level string) error {
	m.mu.Lock()
	m.config.LogLevel = level
	m.mu.Unlock()
	return m.Save()
}

// GetLogLevel gets the log level
func (m *Manager) GetLogLevel() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.LogLevel
}

// GetConfigPath returns the path to the config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// GetConfigDir returns the config directory path
func (m *Manager) GetConfigDir() string {
	return filepath.Dir(m.configPath)
}
