package config

import "antigravity2api-go/internal/constants"

// defaultConfig returns the configuration used when no file and no
// environment overrides are present.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "",
			Port: "8080",
		},
		Rotation: RotationConfig{
			Strategy:             StrategyRoundRobin,
			RequestCountPerToken: 10,
			RetryTimes:           constants.DefaultRetryTimes,
		},
		Upstream: UpstreamConfig{
			BaseURL:           constants.UpstreamBaseURL,
			SystemInstruction: constants.DefaultSystemInstruction,
		},
		Streaming: StreamingConfig{
			HeartbeatSeconds:      int(constants.DefaultHeartbeatInterval.Seconds()),
			PassSignatureToClient: false,
		},
		Memory: MemoryConfig{
			HighMemoryMB: 512,
		},
		Storage: StorageConfig{
			Backend:        "file",
			DataDir:        "data",
			RedisPrefix:    "ag2api:",
			MongoDatabase:  "antigravity2api",
			GitBranch:      "main",
			GitAuthorName:  "antigravity2api",
			GitAuthorEmail: "antigravity2api@localhost",
		},
		OAuth: OAuthConfig{
			ClientID:     constants.OAuthClientID,
			ClientSecret: constants.OAuthClientSecret,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
