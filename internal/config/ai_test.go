package config

import "testing"

func TestLoadAIDefaults(t *testing.T) {
	cfg, err := LoadAI()
	if err != nil {
		t.Fatalf("LoadAI() error = %v", err)
	}
	if cfg.APIKey != "" {
		t.Fatalf("APIKey must default empty, got %q", cfg.APIKey)
	}
	if cfg.Model != "deepseek-chat" {
		t.Fatalf("Model = %q, want deepseek-chat", cfg.Model)
	}
	if cfg.TimeoutSeconds != 8 {
		t.Fatalf("TimeoutSeconds = %d, want 8", cfg.TimeoutSeconds)
	}
}

func TestLoadAIParseTypes(t *testing.T) {
	t.Setenv("AI_TEMPERATURE", "0.4")
	t.Setenv("AI_TIMEOUT_SECONDS", "3")

	cfg, err := LoadAI()
	if err != nil {
		t.Fatalf("LoadAI() error = %v", err)
	}
	if cfg.Temperature != 0.4 {
		t.Fatalf("Temperature = %v, want 0.4", cfg.Temperature)
	}
	if cfg.TimeoutSeconds != 3 {
		t.Fatalf("TimeoutSeconds = %d, want 3", cfg.TimeoutSeconds)
	}
}
