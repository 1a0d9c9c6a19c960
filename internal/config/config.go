// Package config provides configuration management for the Clipdesk Agent.
// Configuration is loaded from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	// Default values
	DefaultPort     = 8690
	DefaultLogLevel = "info"
	DefaultDataDir  = ".clipdesk"

	// Environment variable names
	EnvPort     = "CLIPDESK_PORT"
	EnvLogLevel = "CLIPDESK_LOG_LEVEL"
	EnvDataDir  = "CLIPDESK_DATA_DIR"
	EnvHeadless = "CLIPDESK_HEADLESS"

	// FFmpeg environment variable names
	EnvFFmpegDir    = "CLIPDESK_FFMPEG_DIR"
	EnvScreenDevice = "CLIPDESK_SCREEN_DEVICE"
	EnvAudioDevice  = "CLIPDESK_AUDIO_DEVICE"

	// Speech-to-text environment variable names
	EnvOpenAIKey     = "CLIPDESK_OPENAI_API_KEY"
	EnvOpenAIBaseURL = "CLIPDESK_OPENAI_BASE_URL"

	// Database filename
	DBFilename = "clipdesk.db"

	// avfoundation video device index for "Capture screen 0" on a typical
	// machine. The real index shifts with the number of cameras attached,
	// so it stays configurable.
	DefaultScreenDevice = "3"

	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	RecordingsDir() string
	TempDir() string
	Headless() bool
	FFmpegDir() string
	ScreenDevice() string
	AudioDevice() string
	OpenAIKey() string
	OpenAIBaseURL() string
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port     int
	logLevel string
	dataDir  string
	headless bool

	ffmpegDir    string
	screenDevice string
	audioDevice  string

	openAIKey     string
	openAIBaseURL string
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	// Best-effort: a missing .env file is not an error.
	_ = godotenv.Load()

	cfg := &EnvConfig{
		port:          DefaultPort,
		logLevel:      DefaultLogLevel,
		dataDir:       defaultDataDir(),
		screenDevice:  DefaultScreenDevice,
		openAIBaseURL: DefaultOpenAIBaseURL,
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		cfg.headless = headless
	}

	cfg.ffmpegDir = os.Getenv(EnvFFmpegDir)

	if sd := os.Getenv(EnvScreenDevice); sd != "" {
		cfg.screenDevice = sd
	}
	cfg.audioDevice = os.Getenv(EnvAudioDevice)

	cfg.openAIKey = os.Getenv(EnvOpenAIKey)
	if u := os.Getenv(EnvOpenAIBaseURL); u != "" {
		cfg.openAIBaseURL = u
	}

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// RecordingsDir returns the directory where finished recordings are kept
func (c *EnvConfig) RecordingsDir() string {
	return filepath.Join(c.dataDir, "recordings")
}

// TempDir returns the directory for transient files (thumbnails, audio)
func (c *EnvConfig) TempDir() string {
	return filepath.Join(c.dataDir, "tmp")
}

// Headless reports whether the system tray should be skipped
func (c *EnvConfig) Headless() bool {
	return c.headless
}

// FFmpegDir returns an optional directory containing ffmpeg/ffprobe binaries
func (c *EnvConfig) FFmpegDir() string {
	return c.ffmpegDir
}

// ScreenDevice returns the avfoundation video device index for screen capture
func (c *EnvConfig) ScreenDevice() string {
	return c.screenDevice
}

// AudioDevice returns the avfoundation audio device for capture, empty for none
func (c *EnvConfig) AudioDevice() string {
	return c.audioDevice
}

// OpenAIKey returns the speech-to-text API key, empty when transcription is disabled
func (c *EnvConfig) OpenAIKey() string {
	return c.openAIKey
}

// OpenAIBaseURL returns the speech-to-text API base URL
func (c *EnvConfig) OpenAIBaseURL() string {
	return c.openAIBaseURL
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
