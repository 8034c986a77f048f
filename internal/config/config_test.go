package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("RECOGNIZER_PROVIDER")
	os.Unsetenv("LOG_LEVEL")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default Port '8080', got '%s'", cfg.Port)
	}

	if cfg.RecognizerProvider != "deepgram" {
		t.Errorf("Expected default RecognizerProvider 'deepgram', got '%s'", cfg.RecognizerProvider)
	}

	if cfg.DeepgramModel != "nova-2" {
		t.Errorf("Expected default DeepgramModel 'nova-2', got '%s'", cfg.DeepgramModel)
	}

	if cfg.DeepgramLanguage != "en-US" {
		t.Errorf("Expected default DeepgramLanguage 'en-US', got '%s'", cfg.DeepgramLanguage)
	}

	if cfg.SampleRate != 16000 {
		t.Errorf("Expected default SampleRate 16000, got %d", cfg.SampleRate)
	}

	if cfg.Channels != 1 {
		t.Errorf("Expected default Channels 1, got %d", cfg.Channels)
	}

	if cfg.UploadDir == "" {
		t.Error("Expected UploadDir to fall back to the temp dir")
	}
}

func TestConfig_SessionDefaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.MaxErrors != 5 {
		t.Errorf("Expected default MaxErrors 5, got %d", cfg.MaxErrors)
	}

	if cfg.MinRestartInterval() != time.Second {
		t.Errorf("Expected default MinRestartInterval 1s, got %v", cfg.MinRestartInterval())
	}

	if cfg.MinRestartDelay() != 100*time.Millisecond {
		t.Errorf("Expected default MinRestartDelay 100ms, got %v", cfg.MinRestartDelay())
	}

	if cfg.ConnectivityTimeout() != 3*time.Second {
		t.Errorf("Expected default ConnectivityTimeout 3s, got %v", cfg.ConnectivityTimeout())
	}

	if cfg.NotificationDismiss() != 3*time.Second {
		t.Errorf("Expected default NotificationDismiss 3s, got %v", cfg.NotificationDismiss())
	}
}

func TestConfig_ObservabilityDefaults(t *testing.T) {
	os.Unsetenv("LOG_LEVEL")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Expected default LogLevel 'info', got '%s'", cfg.LogLevel)
	}

	if cfg.LogPretty {
		t.Error("Expected default LogPretty false, got true")
	}

	if !cfg.MetricsEnabled {
		t.Error("Expected default MetricsEnabled true, got false")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("RECOGNIZER_PROVIDER", "mock")
	t.Setenv("SESSION_MAX_ERRORS", "3")
	t.Setenv("CONNECTIVITY_PROBE", "grpc")
	t.Setenv("CONNECTIVITY_GRPC_TARGET", "localhost:50051")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.RecognizerProvider != "mock" {
		t.Errorf("Expected RecognizerProvider 'mock', got '%s'", cfg.RecognizerProvider)
	}
	if cfg.MaxErrors != 3 {
		t.Errorf("Expected MaxErrors 3, got %d", cfg.MaxErrors)
	}
	if cfg.ConnectivityGRPCTarget != "localhost:50051" {
		t.Errorf("Expected grpc target override, got '%s'", cfg.ConnectivityGRPCTarget)
	}
}

func TestLoad_InvalidProvider(t *testing.T) {
	t.Setenv("RECOGNIZER_PROVIDER", "webkit")

	if _, err := LoadFromEnv(); err == nil {
		t.Error("Expected error for unknown recognizer provider")
	}
}

func TestLoad_GRPCProbeRequiresTarget(t *testing.T) {
	t.Setenv("CONNECTIVITY_PROBE", "grpc")
	t.Setenv("CONNECTIVITY_GRPC_TARGET", "")

	if _, err := LoadFromEnv(); err == nil {
		t.Error("Expected error when grpc probe has no target")
	}
}

func TestLoad_RestartIntervalBelowDelay(t *testing.T) {
	t.Setenv("SESSION_MIN_RESTART_INTERVAL_MS", "50")
	t.Setenv("SESSION_MIN_RESTART_DELAY_MS", "100")

	if _, err := LoadFromEnv(); err == nil {
		t.Error("Expected error when restart interval is below the restart delay floor")
	}
}

func TestGetEnv(t *testing.T) {
	os.Setenv("TEST_KEY", "test-value")
	defer os.Unsetenv("TEST_KEY")

	value := GetEnv("TEST_KEY", "default")
	if value != "test-value" {
		t.Errorf("Expected 'test-value', got '%s'", value)
	}

	value = GetEnv("NON_EXISTENT_KEY", "default")
	if value != "default" {
		t.Errorf("Expected 'default', got '%s'", value)
	}
}
