package config

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

// TestLoadDefaults tests that default configuration values are loaded correctly.
func TestLoadDefaults(t *testing.T) {
	// Reset Viper singleton to avoid interference from other tests
	viper.Reset()

	// HOME points at an empty temp dir so no config.yaml is found
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("GEMINI_API_KEY", "test-api-key")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.ModelName != "gemini-2.5-flash" {
		t.Errorf("expected default ModelName 'gemini-2.5-flash', got %q", cfg.ModelName)
	}

	if cfg.Temperature != 0.7 {
		t.Errorf("expected default Temperature 0.7, got %f", cfg.Temperature)
	}

	if cfg.EmbedderModel != DefaultGeminiEmbedderModel {
		t.Errorf("expected default EmbedderModel %q, got %q", DefaultGeminiEmbedderModel, cfg.EmbedderModel)
	}

	if cfg.ChunkSize != 1500 || cfg.ChunkOverlap != 200 {
		t.Errorf("expected default chunking 1500/200, got %d/%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}

	if cfg.RetrievalTopK != 5 || cfg.RetrievalFetchK != 10 {
		t.Errorf("expected default retrieval 5/10, got %d/%d", cfg.RetrievalTopK, cfg.RetrievalFetchK)
	}

	if cfg.MMRLambda != 0.7 {
		t.Errorf("expected default MMRLambda 0.7, got %f", cfg.MMRLambda)
	}

	if cfg.MaxRetrievals != 2 {
		t.Errorf("expected default MaxRetrievals 2, got %d", cfg.MaxRetrievals)
	}

	if cfg.MaxHistoryMessages != DefaultMaxHistoryMessages {
		t.Errorf("expected default MaxHistoryMessages %d, got %d", DefaultMaxHistoryMessages, cfg.MaxHistoryMessages)
	}

	if cfg.PostgresHost != "localhost" {
		t.Errorf("expected default PostgresHost 'localhost', got %q", cfg.PostgresHost)
	}

	if cfg.PostgresPort != 5432 {
		t.Errorf("expected default PostgresPort 5432, got %d", cfg.PostgresPort)
	}
}

func TestFullModelName(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  string
	}{
		{name: "bare model", model: "gemini-2.5-flash", want: "googleai/gemini-2.5-flash"},
		{name: "already qualified", model: "googleai/gemini-2.5-pro", want: "googleai/gemini-2.5-pro"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Provider: ProviderGemini, ModelName: tt.model}
			if got := cfg.FullModelName(); got != tt.want {
				t.Errorf("FullModelName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFullEmbedderName(t *testing.T) {
	cfg := &Config{EmbedderModel: "gemini-embedding-001"}
	if got := cfg.FullEmbedderName(); got != "googleai/gemini-embedding-001" {
		t.Errorf("FullEmbedderName() = %q", got)
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		want   string
	}{
		{name: "empty", secret: "", want: ""},
		{name: "short fully masked", secret: "pass", want: maskedValue},
		{name: "exactly 8 fully masked", secret: "12345678", want: maskedValue},
		{name: "long keeps edges", secret: "my_long_secret_key_123", want: "my<" + maskedValue + ">23"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maskSecret(tt.secret); got != tt.want {
				t.Errorf("maskSecret(%q) = %q, want %q", tt.secret, got, tt.want)
			}
		})
	}
}

// TestMarshalJSON_MasksPassword verifies the real password never appears in
// the serialized form.
func TestMarshalJSON_MasksPassword(t *testing.T) {
	cfg := Config{
		ModelName:        "gemini-2.5-flash",
		PostgresPassword: "super_secret_password",
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}

	if strings.Contains(string(data), "super_secret_password") {
		t.Errorf("serialized config leaks password: %s", data)
	}
	if !strings.Contains(string(data), maskedValue) {
		t.Errorf("serialized config should contain mask, got: %s", data)
	}
}

func TestString_MasksPassword(t *testing.T) {
	cfg := Config{PostgresPassword: "another_secret_value"}
	s := cfg.String()
	if strings.Contains(s, "another_secret_value") {
		t.Errorf("String() leaks password: %s", s)
	}
}
