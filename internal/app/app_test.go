package app

import (
	"context"
	"testing"

	"github.com/trispace-io/trispace/internal/config"
	"github.com/trispace-io/trispace/internal/log"
)

func TestApp_Close(t *testing.T) {
	tests := []struct {
		name     string
		setupApp func() *App
	}{
		{
			name: "close with cancel function",
			setupApp: func() *App {
				ctx, cancel := context.WithCancel(context.Background())
				return &App{ctx: ctx, cancel: cancel, Logger: log.NewNop()}
			},
		},
		{
			name: "close with otel cleanup",
			setupApp: func() *App {
				return &App{otelCleanup: func() {}, Logger: log.NewNop()}
			},
		},
		{
			name: "close minimal app",
			setupApp: func() *App {
				return &App{}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := tt.setupApp()
			if err := a.Close(); err != nil {
				t.Errorf("Close() error: %v", err)
			}

			if a.cancel != nil && a.ctx != nil {
				select {
				case <-a.ctx.Done():
				default:
					t.Error("context was not cancelled")
				}
			}
		})
	}
}

func TestProviderAvailable(t *testing.T) {
	for _, key := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "OPENAI_API_KEY"} {
		t.Setenv(key, "")
	}

	cfg := &config.Config{}

	t.Run("gemini without keys", func(t *testing.T) {
		if providerAvailable(config.ProviderGemini, cfg) {
			t.Error("gemini should be unavailable without API keys")
		}
	})

	t.Run("gemini with GOOGLE_API_KEY", func(t *testing.T) {
		t.Setenv("GOOGLE_API_KEY", "test-key")
		if !providerAvailable(config.ProviderGemini, cfg) {
			t.Error("gemini should be available with GOOGLE_API_KEY")
		}
	})

	t.Run("openai with key", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "test-key")
		if !providerAvailable(config.ProviderOpenAI, cfg) {
			t.Error("openai should be available with OPENAI_API_KEY")
		}
	})

	t.Run("ollama needs host", func(t *testing.T) {
		if providerAvailable(config.ProviderOllama, cfg) {
			t.Error("ollama should be unavailable without a host")
		}
		withHost := &config.Config{OllamaHost: "http://localhost:11434"}
		if !providerAvailable(config.ProviderOllama, withHost) {
			t.Error("ollama should be available with a host")
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		if providerAvailable("anthropic", cfg) {
			t.Error("unknown provider should never be available")
		}
	})
}

func TestQualifiedModelName(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		model    string
		want     string
	}{
		{"gemini bare name", config.ProviderGemini, "gemini-2.5-flash", "googleai/gemini-2.5-flash"},
		{"openai bare name", config.ProviderOpenAI, "gpt-4o-mini", "openai/gpt-4o-mini"},
		{"ollama bare name", config.ProviderOllama, "llama3", "ollama/llama3"},
		{"already qualified", config.ProviderGemini, "googleai/gemini-2.5-flash", "googleai/gemini-2.5-flash"},
		{"unknown provider passes through", "custom", "model-x", "model-x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := qualifiedModelName(tt.provider, tt.model); got != tt.want {
				t.Errorf("qualifiedModelName(%q, %q) = %q, want %q",
					tt.provider, tt.model, got, tt.want)
			}
		})
	}
}
