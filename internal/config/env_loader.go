package config

import "strings"

// applyEnv overrides file values with environment variables. Empty
// variables leave the current value untouched.
func applyEnv(cfg *Config) {
	setStringFromEnv("HOST", &cfg.Server.Host)
	setStringFromEnv("PORT", &cfg.Server.Port)

	setStringFromEnv("API_KEY", &cfg.Security.APIKey)

	if v := getenv("STRATEGY", ""); v != "" {
		cfg.Rotation.Strategy = strings.ToLower(strings.TrimSpace(v))
	}
	setIntFromEnv("REQUEST_COUNT_PER_TOKEN", func(n int) { cfg.Rotation.RequestCountPerToken = n })
	setIntFromEnv("RETRY_TIMES", func(n int) { cfg.Rotation.RetryTimes = n })
	setToggleFromEnv("SKIP_PROJECT_DISCOVERY", func(b bool) { cfg.Rotation.SkipProjectDiscovery = b })

	setStringFromEnv("UPSTREAM_BASE_URL", &cfg.Upstream.BaseURL)
	setStringFromEnv("PROXY_URL", &cfg.Upstream.ProxyURL)
	setStringFromEnv("SYSTEM_INSTRUCTION", &cfg.Upstream.SystemInstruction)

	setIntFromEnv("HEARTBEAT_SECONDS", func(n int) { cfg.Streaming.HeartbeatSeconds = n })
	setToggleFromEnv("PASS_SIGNATURE_TO_CLIENT", func(b bool) { cfg.Streaming.PassSignatureToClient = b })

	setIntFromEnv("HIGH_MEMORY_MB", func(n int) { cfg.Memory.HighMemoryMB = n })

	if v := getenv("STORAGE_BACKEND", ""); v != "" {
		cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(v))
	}
	setStringFromEnv("DATA_DIR", &cfg.Storage.DataDir)
	setStringFromEnv("REDIS_ADDR", &cfg.Storage.RedisAddr)
	setStringFromEnv("REDIS_PASSWORD", &cfg.Storage.RedisPassword)
	setIntFromEnv("REDIS_DB", func(n int) { cfg.Storage.RedisDB = n })
	setStringFromEnv("REDIS_PREFIX", &cfg.Storage.RedisPrefix)
	setStringFromEnv("MONGODB_URI", &cfg.Storage.MongoURI)
	setStringFromEnv("MONGODB_DATABASE", &cfg.Storage.MongoDatabase)
	setStringFromEnv("POSTGRES_DSN", &cfg.Storage.PostgresDSN)
	setStringFromEnv("GIT_REMOTE_URL", &cfg.Storage.GitRemoteURL)
	setStringFromEnv("GIT_BRANCH", &cfg.Storage.GitBranch)
	setStringFromEnv("GIT_USERNAME", &cfg.Storage.GitUsername)
	setStringFromEnv("GIT_PASSWORD", &cfg.Storage.GitPassword)
	setStringFromEnv("GIT_AUTHOR_NAME", &cfg.Storage.GitAuthorName)
	setStringFromEnv("GIT_AUTHOR_EMAIL", &cfg.Storage.GitAuthorEmail)

	setStringFromEnv("OAUTH_CLIENT_ID", &cfg.OAuth.ClientID)
	setStringFromEnv("OAUTH_CLIENT_SECRET", &cfg.OAuth.ClientSecret)

	setStringFromEnv("LOG_LEVEL", &cfg.Log.Level)
	setStringFromEnv("LOG_FILE", &cfg.Log.File)
}
