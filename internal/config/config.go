// Package config loads go-voicechat settings from a YAML file, a .env file,
// and the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Default values used when neither the config file nor the environment sets them.
const (
	DefaultProvider       = "elevenlabs"
	DefaultSampleRate     = 44100
	DefaultRecordDuration = 5 * time.Second
	MinRecordDuration     = 1 * time.Second
	MaxRecordDuration     = 10 * time.Second
	DefaultWebAddr        = ":8080"
)

// Config is the full application configuration.
// Values are read by viper from a config file or environment variables.
type Config struct {
	Log      LogConfig     `mapstructure:"log"`
	OpenAI   OpenAIConfig  `mapstructure:"openai"`
	TTS      TTSConfig     `mapstructure:"tts"`
	Audio    AudioConfig   `mapstructure:"audio"`
	Timeouts TimeoutConfig `mapstructure:"timeouts"`
	Web      WebConfig     `mapstructure:"web"`
	Metrics  MetricsConfig `mapstructure:"metrics"`
	Session  SessionConfig `mapstructure:"session"`
}

// LogConfig controls the global logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "text" or "json"
}

// OpenAIConfig covers both chat completion and transcription.
type OpenAIConfig struct {
	APIKey             string  `mapstructure:"api_key"`
	BaseURL            string  `mapstructure:"base_url"`
	ChatModel          string  `mapstructure:"chat_model"`
	TranscriptionModel string  `mapstructure:"transcription_model"`
	Language           string  `mapstructure:"language"`
	MaxTokens          int     `mapstructure:"max_tokens"`
	Temperature        float64 `mapstructure:"temperature"`
}

// TTSConfig selects and configures speech synthesis providers.
type TTSConfig struct {
	Provider  string   `mapstructure:"provider"`
	Fallbacks []string `mapstructure:"fallbacks"`
	Voice     string   `mapstructure:"voice"`
	NoVoices  string   `mapstructure:"no_voices"` // "require" or "text-only"

	ElevenLabs  ElevenLabsConfig  `mapstructure:"elevenlabs"`
	Speechify   SpeechifyConfig   `mapstructure:"speechify"`
	Google      GoogleConfig      `mapstructure:"google"`
	GoogleCloud GoogleCloudConfig `mapstructure:"google_cloud"`
}

// ElevenLabsConfig holds ElevenLabs settings.
type ElevenLabsConfig struct {
	APIKey          string  `mapstructure:"api_key"`
	BaseURL         string  `mapstructure:"base_url"`
	Model           string  `mapstructure:"model"`
	Stability       float64 `mapstructure:"stability"`
	SimilarityBoost float64 `mapstructure:"similarity_boost"`
}

// SpeechifyConfig holds settings shared by both Speechify wire formats.
type SpeechifyConfig struct {
	APIKey    string `mapstructure:"api_key"`
	V1BaseURL string `mapstructure:"v1_base_url"`
	V2BaseURL string `mapstructure:"v2_base_url"`
}

// GoogleConfig holds settings for the keyless translate endpoint.
type GoogleConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	Language string `mapstructure:"language"`
}

// GoogleCloudConfig holds Cloud Text-to-Speech settings.
// An empty APIKey falls back to application default credentials.
type GoogleCloudConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
	Language string `mapstructure:"language"`
}

// AudioConfig controls capture and playback.
type AudioConfig struct {
	Backend        string        `mapstructure:"backend"`
	Device         string        `mapstructure:"device"`
	SampleRate     int           `mapstructure:"sample_rate"`
	RecordDuration time.Duration `mapstructure:"record_duration"`
	ScratchDir     string        `mapstructure:"scratch_dir"`
	RecordCommand  []string      `mapstructure:"record_command"`
	PlayCommand    []string      `mapstructure:"play_command"`
	Play           bool          `mapstructure:"play"`
}

// TimeoutConfig bounds each external pipeline stage.
type TimeoutConfig struct {
	Transcription time.Duration `mapstructure:"transcription"`
	Completion    time.Duration `mapstructure:"completion"`
	Synthesis     time.Duration `mapstructure:"synthesis"`
	Playback      time.Duration `mapstructure:"playback"`
}

// WebConfig controls the optional HTTP surface.
type WebConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// SessionConfig seeds the conversation session.
type SessionConfig struct {
	SystemPrompt string `mapstructure:"system_prompt"`
}

// envBindings maps well-known provider variables onto config keys.
var envBindings = map[string]string{
	"openai.api_key":           "OPENAI_API_KEY",
	"openai.base_url":          "OPENAI_BASE_URL",
	"tts.elevenlabs.api_key":   "ELEVENLABS_API_KEY",
	"tts.speechify.api_key":    "SPEECHIFY_API_KEY",
	"tts.google_cloud.api_key": "GOOGLE_TTS_API_KEY",
	"tts.provider":             "TTS_PROVIDER",
	"log.level":                "LOG_LEVEL",
}

// Load reads configuration. An empty configPath searches the working
// directory and $HOME/.config/voicechat for config.yaml; a missing file is
// not an error. A .env file in the working directory is loaded first and
// never overrides variables already present in the environment.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.config/voicechat")
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix("VOICECHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, "VOICECHAT_"+strings.ToUpper(strings.NewReplacer(".", "_").Replace(key)), env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(configPath == "" && errors.Is(err, fs.ErrNotExist)) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "")

	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.chat_model", "gpt-3.5-turbo")
	v.SetDefault("openai.transcription_model", "whisper-1")
	v.SetDefault("openai.max_tokens", 0)
	v.SetDefault("openai.temperature", 0.0)

	v.SetDefault("tts.provider", DefaultProvider)
	v.SetDefault("tts.fallbacks", []string{})
	v.SetDefault("tts.voice", "")
	v.SetDefault("tts.no_voices", "text-only")
	v.SetDefault("tts.elevenlabs.base_url", "https://api.elevenlabs.io")
	v.SetDefault("tts.elevenlabs.model", "eleven_monolingual_v1")
	v.SetDefault("tts.elevenlabs.stability", 0.5)
	v.SetDefault("tts.elevenlabs.similarity_boost", 0.75)
	v.SetDefault("tts.speechify.v1_base_url", "https://api.speechify.ai")
	v.SetDefault("tts.speechify.v2_base_url", "https://api.sws.speechify.com")
	v.SetDefault("tts.google.base_url", "https://translate.google.com")
	v.SetDefault("tts.google.language", "en")
	v.SetDefault("tts.google_cloud.endpoint", "")
	v.SetDefault("tts.google_cloud.language", "en-US")

	v.SetDefault("audio.backend", "auto")
	v.SetDefault("audio.device", "")
	v.SetDefault("audio.sample_rate", DefaultSampleRate)
	v.SetDefault("audio.record_duration", DefaultRecordDuration.String())
	v.SetDefault("audio.scratch_dir", "")
	v.SetDefault("audio.play", true)

	v.SetDefault("timeouts.transcription", "30s")
	v.SetDefault("timeouts.completion", "30s")
	v.SetDefault("timeouts.synthesis", "30s")
	v.SetDefault("timeouts.playback", "2m")

	v.SetDefault("web.enabled", false)
	v.SetDefault("web.addr", DefaultWebAddr)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "voicechat")

	v.SetDefault("session.system_prompt", "")
}

// loadDotEnv loads KEY=VALUE pairs from path if it exists.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Validate checks ranges that would otherwise fail deep inside a turn.
func (c *Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("config: audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Audio.RecordDuration < MinRecordDuration || c.Audio.RecordDuration > MaxRecordDuration {
		return fmt.Errorf("config: audio.record_duration must be between %s and %s, got %s",
			MinRecordDuration, MaxRecordDuration, c.Audio.RecordDuration)
	}
	switch c.TTS.NoVoices {
	case "require", "text-only":
	default:
		return fmt.Errorf("config: tts.no_voices must be \"require\" or \"text-only\", got %q", c.TTS.NoVoices)
	}
	for name, d := range map[string]time.Duration{
		"transcription": c.Timeouts.Transcription,
		"completion":    c.Timeouts.Completion,
		"synthesis":     c.Timeouts.Synthesis,
		"playback":      c.Timeouts.Playback,
	} {
		if d <= 0 {
			return fmt.Errorf("config: timeouts.%s must be positive", name)
		}
	}
	return nil
}

// Credentials returns the environment-level secret for each provider that
// needs one. Runtime entries made through the session take precedence.
func (c *Config) Credentials() map[string]string {
	return map[string]string{
		"elevenlabs":   c.TTS.ElevenLabs.APIKey,
		"speechify":    c.TTS.Speechify.APIKey,
		"speechify-v1": c.TTS.Speechify.APIKey,
		"google-cloud": c.TTS.GoogleCloud.APIKey,
		"openai":       c.OpenAI.APIKey,
	}
}
