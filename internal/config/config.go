package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"antigravity2api-go/internal/constants"
)

// Config 主配置结构体，包含所有功能域的配置
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Security  SecurityConfig  `yaml:"security"`
	Rotation  RotationConfig  `yaml:"rotation"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Streaming StreamingConfig `yaml:"streaming"`
	Memory    MemoryConfig    `yaml:"memory"`
	Storage   StorageConfig   `yaml:"storage"`
	OAuth     OAuthConfig     `yaml:"oauth"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

// SecurityConfig 网关准入配置
type SecurityConfig struct {
	// APIKey guards /v1 and /v1beta. A value with the bcrypt "$2" prefix
	// is treated as a hash, anything else as a plain key. Empty disables
	// the check.
	APIKey string `yaml:"api_key"`
}

// RotationConfig 凭证轮换配置
type RotationConfig struct {
	// Strategy is one of round_robin, quota_exhausted, request_count.
	Strategy             string `yaml:"strategy"`
	RequestCountPerToken int    `yaml:"request_count_per_token"`
	// RetryTimes is the additional 429 attempts after the first request.
	RetryTimes           int  `yaml:"retry_times"`
	SkipProjectDiscovery bool `yaml:"skip_project_discovery"`
}

// UpstreamConfig 上游接口配置
type UpstreamConfig struct {
	BaseURL  string `yaml:"base_url"`
	ProxyURL string `yaml:"proxy_url"`
	// SystemInstruction is prepended to any caller-supplied system text.
	SystemInstruction string `yaml:"system_instruction"`
}

// StreamingConfig SSE 输出配置
type StreamingConfig struct {
	HeartbeatSeconds      int  `yaml:"heartbeat_seconds"`
	PassSignatureToClient bool `yaml:"pass_signature_to_client"`
}

// MemoryConfig 内存调节配置
type MemoryConfig struct {
	HighMemoryMB int `yaml:"high_memory_mb"`
}

// StorageConfig 持久化后端配置
type StorageConfig struct {
	Backend string `yaml:"backend"`
	DataDir string `yaml:"data_dir"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`

	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`

	PostgresDSN string `yaml:"postgres_dsn"`

	// GitMirror enables the commit-per-save audit mirror even without a
	// remote; a non-empty GitRemoteURL implies it.
	GitMirror      bool   `yaml:"git_mirror"`
	GitRemoteURL   string `yaml:"git_remote_url"`
	GitBranch      string `yaml:"git_branch"`
	GitUsername    string `yaml:"git_username"`
	GitPassword    string `yaml:"git_password"`
	GitAuthorName  string `yaml:"git_author_name"`
	GitAuthorEmail string `yaml:"git_author_email"`
}

// OAuthConfig Google OAuth 客户端配置
type OAuthConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load loads configuration from the default file locations and environment.
func Load() *Config {
	return LoadWithFile("")
}

// LoadWithFile loads configuration from the given YAML file, falling back
// to defaults when the file is absent. Environment variables override
// file values.
func LoadWithFile(configPath string) *Config {
	cfg := defaultConfig()

	if configPath == "" {
		for _, loc := range []string{"config.yaml", "config.yml"} {
			if _, err := os.Stat(loc); err == nil {
				configPath = loc
				break
			}
		}
	}

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			_ = yaml.Unmarshal(data, cfg)
		}
	}

	applyEnv(cfg)
	cfg.normalize()
	return cfg
}

// normalize fills gaps left by partial files and clamps invalid values.
func (c *Config) normalize() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if !validStrategy(c.Rotation.Strategy) {
		c.Rotation.Strategy = StrategyRoundRobin
	}
	if c.Rotation.RequestCountPerToken <= 0 {
		c.Rotation.RequestCountPerToken = 10
	}
	if c.Rotation.RetryTimes < 0 {
		c.Rotation.RetryTimes = 0
	}
	if c.Streaming.HeartbeatSeconds <= 0 {
		c.Streaming.HeartbeatSeconds = int(constants.DefaultHeartbeatInterval.Seconds())
	}
	if c.Memory.HighMemoryMB <= 0 {
		c.Memory.HighMemoryMB = 512
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "file"
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = constants.UpstreamBaseURL
	}
	if c.OAuth.ClientID == "" {
		c.OAuth.ClientID = constants.OAuthClientID
	}
	if c.OAuth.ClientSecret == "" {
		c.OAuth.ClientSecret = constants.OAuthClientSecret
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate reports configuration combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "file":
	case "redis":
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("storage backend redis requires REDIS_ADDR")
		}
	case "mongodb":
		if c.Storage.MongoURI == "" {
			return fmt.Errorf("storage backend mongodb requires MONGODB_URI")
		}
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage backend postgres requires POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

// 轮换策略名
const (
	StrategyRoundRobin     = "round_robin"
	StrategyQuotaExhausted = "quota_exhausted"
	StrategyRequestCount   = "request_count"
)

func validStrategy(s string) bool {
	switch s {
	case StrategyRoundRobin, StrategyQuotaExhausted, StrategyRequestCount:
		return true
	}
	return false
}
