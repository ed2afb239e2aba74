package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config defines application configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	DB     DBConfig     `yaml:"db"`
	Log    LogConfig    `yaml:"log"`
	Speech SpeechConfig `yaml:"speech"`
	Voice  VoiceConfig  `yaml:"voice"`
}

type ServerConfig struct {
	// Transport is "stdio" or "http".
	Transport string `yaml:"transport"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// SpeechConfig configures the recognition pipeline.
type SpeechConfig struct {
	DeepgramAPIKey string `yaml:"deepgram_api_key"`
	Model          string `yaml:"model"`
	Language       string `yaml:"language"`
	SampleRate     int    `yaml:"sample_rate"`
	CaptureDevice  string `yaml:"capture_device"`
}

// VoiceConfig configures spoken feedback.
type VoiceConfig struct {
	// TTSCommand is the command line used to speak announcements. The text
	// is appended as the last argument.
	TTSCommand string `yaml:"tts_command"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Transport: "stdio",
			Host:      "127.0.0.1",
			Port:      8080,
		},
		DB: DBConfig{
			Path: "eliloop.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Speech: SpeechConfig{
			Model:      "nova-2",
			Language:   "es",
			SampleRate: 16000,
		},
	}

	if path := os.Getenv("ELILOOP_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if transport := os.Getenv("ELILOOP_TRANSPORT"); transport != "" {
		cfg.Server.Transport = transport
	}
	if host := os.Getenv("ELILOOP_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("ELILOOP_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ELILOOP_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("ELILOOP_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("ELILOOP_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if key := os.Getenv("DEEPGRAM_API_KEY"); key != "" {
		cfg.Speech.DeepgramAPIKey = key
	}
	if model := os.Getenv("ELILOOP_SPEECH_MODEL"); model != "" {
		cfg.Speech.Model = model
	}
	if language := os.Getenv("ELILOOP_SPEECH_LANGUAGE"); language != "" {
		cfg.Speech.Language = language
	}
	if device := os.Getenv("ELILOOP_CAPTURE_DEVICE"); device != "" {
		cfg.Speech.CaptureDevice = device
	}
	if tts := os.Getenv("ELILOOP_TTS_COMMAND"); tts != "" {
		cfg.Voice.TTSCommand = tts
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
