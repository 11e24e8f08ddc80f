package config

type AppConfig struct {
	Server ServerConfig
	Log    LogConfig
	AI     AIConfig
	Game   GameConfig
}

func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{}, err
	}
	aiCfg, err := LoadAI()
	if err != nil {
		return AppConfig{}, err
	}
	gameCfg, err := LoadGame()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Server: serverCfg,
		Log:    logCfg,
		AI:     aiCfg,
		Game:   gameCfg,
	}, nil
}
