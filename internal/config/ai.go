package config

import "github.com/caarlos0/env/v11"

type AIConfig struct {
	// Empty API key disables generation entirely; agents fall back to
	// canned table talk.
	APIKey  string `env:"AI_API_KEY"`
	BaseURL string `env:"AI_BASE_URL" envDefault:"https://api.deepseek.com/v1"`
	Model   string `env:"AI_MODEL" envDefault:"deepseek-chat"`

	TimeoutSeconds int     `env:"AI_TIMEOUT_SECONDS" envDefault:"8"`
	MaxTokens      int     `env:"AI_MAX_TOKENS" envDefault:"220"`
	Temperature    float64 `env:"AI_TEMPERATURE" envDefault:"0.9"`
}

func LoadAI() (AIConfig, error) {
	var cfg AIConfig
	err := env.Parse(&cfg)
	return cfg, err
}
