package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the transcriber service
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Public base URL for this service, used only for logging the UI endpoints.
	// Optional; if unset, logs http://localhost:PORT.
	PublicURL string `envconfig:"PUBLIC_URL" default:""`

	// Recognition backend: deepgram, mock or none
	RecognizerProvider string `envconfig:"RECOGNIZER_PROVIDER" default:"deepgram"`

	// Deepgram STT API configuration. An empty key disables recognition instead of failing startup.
	DeepgramAPIKey   string `envconfig:"DEEPGRAM_API_KEY" default:""`
	DeepgramModel    string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"`
	DeepgramLanguage string `envconfig:"DEEPGRAM_LANGUAGE" default:"en-US"`

	// Mock recognizer emits one segment per this many audio bytes
	MockSegmentBytes int `envconfig:"MOCK_SEGMENT_BYTES" default:"64000"`

	// Audio format fed to the recognizer (linear16)
	SampleRate      int `envconfig:"AUDIO_SAMPLE_RATE" default:"16000"`
	Channels        int `envconfig:"AUDIO_CHANNELS" default:"1"`
	PlaybackFrameMS int `envconfig:"PLAYBACK_FRAME_MS" default:"100"`

	// Session lifecycle
	MaxErrors             int `envconfig:"SESSION_MAX_ERRORS" default:"5"`
	MinRestartIntervalMS  int `envconfig:"SESSION_MIN_RESTART_INTERVAL_MS" default:"1000"`
	MinRestartDelayMS     int `envconfig:"SESSION_MIN_RESTART_DELAY_MS" default:"100"`
	NotificationDismissMS int `envconfig:"NOTIFICATION_DISMISS_MS" default:"3000"`

	// Connectivity probe: http or grpc
	ConnectivityProbe             string `envconfig:"CONNECTIVITY_PROBE" default:"http"`
	ConnectivityURL               string `envconfig:"CONNECTIVITY_URL" default:"https://www.gstatic.com/generate_204"`
	ConnectivityGRPCTarget        string `envconfig:"CONNECTIVITY_GRPC_TARGET" default:""`
	ConnectivityTimeoutMS         int    `envconfig:"CONNECTIVITY_TIMEOUT_MS" default:"3000"`
	ConnectivityMonitorIntervalMS int    `envconfig:"CONNECTIVITY_MONITOR_INTERVAL_MS" default:"5000"`

	// Media decoding. {input}, {rate} and {channels} are substituted per file.
	DecoderCommand string `envconfig:"DECODER_COMMAND" default:"ffmpeg -hide_banner -loglevel error -nostdin -i {input} -vn -f s16le -acodec pcm_s16le -ac {channels} -ar {rate} -"`
	UploadDir      string `envconfig:"UPLOAD_DIR" default:""`
	UploadMaxMB    int    `envconfig:"UPLOAD_MAX_MB" default:"500"`

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.UploadDir == "" {
		cfg.UploadDir = os.TempDir()
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.RecognizerProvider) {
	case "deepgram", "mock", "none":
	default:
		return fmt.Errorf("RECOGNIZER_PROVIDER must be one of deepgram|mock|none, got %q", c.RecognizerProvider)
	}
	switch strings.ToLower(c.ConnectivityProbe) {
	case "http":
		if c.ConnectivityURL == "" {
			return fmt.Errorf("CONNECTIVITY_URL is required when CONNECTIVITY_PROBE=http")
		}
	case "grpc":
		if c.ConnectivityGRPCTarget == "" {
			return fmt.Errorf("CONNECTIVITY_GRPC_TARGET is required when CONNECTIVITY_PROBE=grpc")
		}
	default:
		return fmt.Errorf("CONNECTIVITY_PROBE must be one of http|grpc, got %q", c.ConnectivityProbe)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("AUDIO_SAMPLE_RATE must be positive")
	}
	if c.Channels <= 0 {
		return fmt.Errorf("AUDIO_CHANNELS must be positive")
	}
	if c.PlaybackFrameMS <= 0 {
		return fmt.Errorf("PLAYBACK_FRAME_MS must be positive")
	}
	if c.MaxErrors <= 0 {
		return fmt.Errorf("SESSION_MAX_ERRORS must be positive")
	}
	if c.MinRestartDelayMS <= 0 || c.MinRestartIntervalMS < c.MinRestartDelayMS {
		return fmt.Errorf("SESSION_MIN_RESTART_INTERVAL_MS must be >= SESSION_MIN_RESTART_DELAY_MS > 0")
	}
	if c.ConnectivityTimeoutMS <= 0 {
		return fmt.Errorf("CONNECTIVITY_TIMEOUT_MS must be positive")
	}
	if c.UploadMaxMB <= 0 {
		return fmt.Errorf("UPLOAD_MAX_MB must be positive")
	}
	return nil
}

// MinRestartInterval is the minimum spacing between two recognizer restarts
func (c *Config) MinRestartInterval() time.Duration {
	return time.Duration(c.MinRestartIntervalMS) * time.Millisecond
}

// MinRestartDelay is the floor applied to every scheduled restart
func (c *Config) MinRestartDelay() time.Duration {
	return time.Duration(c.MinRestartDelayMS) * time.Millisecond
}

// ConnectivityTimeout bounds a single connectivity check
func (c *Config) ConnectivityTimeout() time.Duration {
	return time.Duration(c.ConnectivityTimeoutMS) * time.Millisecond
}

// MonitorInterval is the polling period of the online/offline monitor
func (c *Config) MonitorInterval() time.Duration {
	return time.Duration(c.ConnectivityMonitorIntervalMS) * time.Millisecond
}

// PlaybackFrame is the duration of audio delivered to the recognizer per tick
func (c *Config) PlaybackFrame() time.Duration {
	return time.Duration(c.PlaybackFrameMS) * time.Millisecond
}

// NotificationDismiss is the auto-dismiss hint attached to UI notifications
func (c *Config) NotificationDismiss() time.Duration {
	return time.Duration(c.NotificationDismissMS) * time.Millisecond
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
