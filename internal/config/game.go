package config

import "github.com/caarlos0/env/v11"

type GameConfig struct {
	HumanSpeechSeconds int `env:"HUMAN_SPEECH_SECONDS" envDefault:"60"`
	NightStepSeconds   int `env:"NIGHT_STEP_SECONDS" envDefault:"30"`
	VoteSeconds        int `env:"VOTE_SECONDS" envDefault:"45"`
	MorningSeconds     int `env:"MORNING_SECONDS" envDefault:"8"`
	LastWordsSeconds   int `env:"LAST_WORDS_SECONDS" envDefault:"30"`
	HunterSeconds      int `env:"HUNTER_SECONDS" envDefault:"30"`

	SheriffEnabled       bool `env:"SHERIFF_ENABLED" envDefault:"true"`
	SheriffSpeechSeconds int  `env:"SHERIFF_SPEECH_SECONDS" envDefault:"45"`
	SheriffVoteSeconds   int  `env:"SHERIFF_VOTE_SECONDS" envDefault:"30"`

	// Round-1 softeners: wolves redirect away from human seats, and an
	// absent human seer/witch gets an automatic action instead of a no-op.
	FirstNightProtectHumans bool `env:"FIRST_NIGHT_PROTECT_HUMANS" envDefault:"true"`
	FirstNightAutoActs      bool `env:"FIRST_NIGHT_AUTO_ACTS" envDefault:"true"`

	SpeechPrefetch int `env:"SPEECH_PREFETCH" envDefault:"2"`
}

func LoadGame() (GameConfig, error) {
	var cfg GameConfig
	err := env.Parse(&cfg)
	return cfg, err
}
