package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. EZREC_SAMPLE_RATE=48000
const EnvPrefix = "EZREC"

// Config holds application configuration
type Config struct {
	Backend       string       `mapstructure:"backend" json:"backend" validate:"oneof=portaudio malgo"`
	AudioDeviceID int          `mapstructure:"audio_device_id" json:"audio_device_id" validate:"gte=-1"`
	SampleRate    int          `mapstructure:"sample_rate" json:"sample_rate" validate:"gte=8000,lte=48000"`
	BufferSize    int          `mapstructure:"buffer_size" json:"buffer_size" validate:"gte=256,lte=16384"`
	MaxRecordTime int          `mapstructure:"max_record_time" json:"max_record_time" validate:"gte=0,lte=3600"` // seconds, 0 = unlimited
	RecordingMode string       `mapstructure:"recording_mode" json:"recording_mode" validate:"oneof=press-to-hold toggle"`
	Hotkey        HotkeyConfig `mapstructure:"hotkey" json:"hotkey"`

	TranscribeURL     string `mapstructure:"transcribe_url" json:"transcribe_url" validate:"omitempty,url"`
	TranscribeTimeout int    `mapstructure:"transcribe_timeout" json:"transcribe_timeout" validate:"gte=1,lte=600"` // seconds
	Language          string `mapstructure:"language" json:"language" validate:"required"`

	RecordingsDir   string `mapstructure:"recordings_dir" json:"recordings_dir" validate:"required"`
	CopyToClipboard bool   `mapstructure:"copy_to_clipboard" json:"copy_to_clipboard"`
	AutoPaste       bool   `mapstructure:"auto_paste" json:"auto_paste"` // paste into the focused app instead of only copying
	PasteSplitSize  int    `mapstructure:"paste_split_size" json:"paste_split_size" validate:"gte=1,lte=10000"` // characters
	Notifications   bool   `mapstructure:"notifications" json:"notifications"`

	ListenPort int    `mapstructure:"listen_port" json:"listen_port" validate:"gte=0,lte=65535"`
	LogLevel   string `mapstructure:"log_level" json:"log_level" validate:"oneof=debug info warn error"`
}

// HotkeyConfig holds hotkey configuration
type HotkeyConfig struct {
	Ctrl  bool   `mapstructure:"ctrl" json:"ctrl"`
	Shift bool   `mapstructure:"shift" json:"shift"`
	Alt   bool   `mapstructure:"alt" json:"alt"`
	Cmd   bool   `mapstructure:"cmd" json:"cmd"`
	Key   string `mapstructure:"key" json:"key"` // e.g., "Space"
}

// AppDir returns the application support directory
func AppDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, "Library", "Application Support", "EzRec")
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	return filepath.Join(AppDir(), "config.json")
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Backend:       "portaudio",
		AudioDeviceID: -1, // -1 means use system default device
		SampleRate:    16000,
		BufferSize:    4096,
		MaxRecordTime: 0,
		RecordingMode: "press-to-hold",
		Hotkey: HotkeyConfig{
			Ctrl: true,
			Alt:  true,
			Key:  "Space",
		},
		TranscribeURL:     "",
		TranscribeTimeout: 60,
		Language:          "auto",
		RecordingsDir:     filepath.Join(AppDir(), "recordings"),
		CopyToClipboard:   true,
		AutoPaste:         false,
		PasteSplitSize:    500,
		Notifications:     true,
		ListenPort:        18766,
		LogLevel:          "info",
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("backend", d.Backend)
	v.SetDefault("audio_device_id", d.AudioDeviceID)
	v.SetDefault("sample_rate", d.SampleRate)
	v.SetDefault("buffer_size", d.BufferSize)
	v.SetDefault("max_record_time", d.MaxRecordTime)
	v.SetDefault("recording_mode", d.RecordingMode)
	v.SetDefault("hotkey.ctrl", d.Hotkey.Ctrl)
	v.SetDefault("hotkey.shift", d.Hotkey.Shift)
	v.SetDefault("hotkey.alt", d.Hotkey.Alt)
	v.SetDefault("hotkey.cmd", d.Hotkey.Cmd)
	v.SetDefault("hotkey.key", d.Hotkey.Key)
	v.SetDefault("transcribe_url", d.TranscribeURL)
	v.SetDefault("transcribe_timeout", d.TranscribeTimeout)
	v.SetDefault("language", d.Language)
	v.SetDefault("recordings_dir", d.RecordingsDir)
	v.SetDefault("copy_to_clipboard", d.CopyToClipboard)
	v.SetDefault("auto_paste", d.AutoPaste)
	v.SetDefault("paste_split_size", d.PasteSplitSize)
	v.SetDefault("notifications", d.Notifications)
	v.SetDefault("listen_port", d.ListenPort)
	v.SetDefault("log_level", d.LogLevel)
}

// Load loads configuration from the specified path. A missing file yields
// the defaults; EZREC_* environment variables override both.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if config.Hotkey.Key == "" {
		config.Hotkey.Key = "Space"
	}

	return &config, nil
}

// Save saves configuration to the specified path
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates all configuration fields
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// buffer sizes must be a power of two for the capture backends
	if c.BufferSize&(c.BufferSize-1) != 0 {
		return fmt.Errorf("invalid config: buffer_size %d is not a power of two", c.BufferSize)
	}

	return nil
}

// Clone creates a copy of the configuration
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// GetRecordingsDir returns the expanded recordings directory
func (c *Config) GetRecordingsDir() (string, error) {
	return ExpandPath(c.RecordingsDir)
}

// ExpandPath expands ~ to home directory in file paths
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", errors.New("path is empty")
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(homeDir, path[2:]), nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	return absPath, nil
}
