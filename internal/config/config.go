package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Transport 取值：memory 为单进程内嵌 worker，redis 为 worker/api 双进程
const (
	TransportMemory = "memory"
	TransportRedis  = "redis"
)

type Config struct {
	AppPort string `toml:"app_port"`

	PostgresDSN string `toml:"postgres_dsn"`
	RedisAddr   string `toml:"redis_addr"`

	FeedTransport   string `toml:"feed_transport"`
	FeedRedisPrefix string `toml:"feed_redis_prefix"`

	// VK 接口参数：GroupKey 用于长轮询，ServerKey 用于 wall.get
	VKAPIURL     string `toml:"vk_api_url"`
	VKAPIVersion string `toml:"vk_api_version"`
	VKGroupKey   string `toml:"vk_group_key"`
	VKServerKey  string `toml:"vk_server_key"`
	VKGroupID    string `toml:"vk_group_id"`
	VKWait       int    `toml:"vk_wait"`
	VKFetchCount int    `toml:"vk_fetch_count"`

	// ExcerptSentences 摘要窗口（标题之后取多少句）
	ExcerptSentences int           `toml:"excerpt_sentences"`
	ErrorPause       time.Duration `toml:"worker_error_pause"`
	Debug            bool          `toml:"debug"`
	LogLevel         string        `toml:"log_level"`

	// ForceRefreshCron 为空时不启用定时全量重建
	ForceRefreshCron string `toml:"force_refresh_cron"`

	BasicAuthUser string `toml:"basic_user"`
	BasicAuthPass string `toml:"basic_pass"`

	AdminName  string `toml:"admin_name"`
	AdminToken string `toml:"admin_token"`
}

// Default 返回未读取任何外部来源时的配置
func Default() *Config {
	return &Config{
		AppPort:          "9000",
		PostgresDSN:      "host=localhost user=wallfeed password=wallfeed dbname=wallfeed port=5432 sslmode=disable TimeZone=UTC",
		RedisAddr:        "localhost:6380",
		FeedTransport:    TransportMemory,
		FeedRedisPrefix:  "wallfeed",
		VKAPIURL:         "https://api.vk.com/method",
		VKAPIVersion:     "5.131",
		VKWait:           25,
		VKFetchCount:     100,
		ExcerptSentences: 5,
		ErrorPause:       time.Second,
		AdminName:        "admin",
	}
}

// Load 先读取 WALLFEED_CONFIG 指定的 TOML 文件（可选），再用环境变量覆盖
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("WALLFEED_CONFIG"); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.AppPort = getEnv("APP_PORT", cfg.AppPort)
	cfg.PostgresDSN = getEnv("POSTGRES_DSN", cfg.PostgresDSN)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)

	cfg.FeedTransport = strings.ToLower(getEnv("FEED_TRANSPORT", cfg.FeedTransport))
	if cfg.FeedTransport != TransportRedis {
		cfg.FeedTransport = TransportMemory
	}
	cfg.FeedRedisPrefix = getEnv("FEED_REDIS_PREFIX", cfg.FeedRedisPrefix)

	cfg.VKAPIURL = strings.TrimRight(getEnv("VK_API_URL", cfg.VKAPIURL), "/")
	cfg.VKAPIVersion = getEnv("VK_API_VERSION", cfg.VKAPIVersion)
	cfg.VKGroupKey = getEnv("VK_GROUP_KEY", cfg.VKGroupKey)
	cfg.VKServerKey = getEnv("VK_SERVER_KEY", cfg.VKServerKey)
	cfg.VKGroupID = strings.TrimPrefix(getEnv("VK_GROUP_ID", cfg.VKGroupID), "-")
	cfg.VKWait = getEnvInt("VK_WAIT", cfg.VKWait)
	cfg.VKFetchCount = getEnvInt("VK_FETCH_COUNT", cfg.VKFetchCount)
	if cfg.VKFetchCount <= 0 || cfg.VKFetchCount > 100 {
		cfg.VKFetchCount = 100
	}

	cfg.ExcerptSentences = getEnvInt("EXCERPT_SENTENCES", cfg.ExcerptSentences)
	if cfg.ExcerptSentences < 0 {
		cfg.ExcerptSentences = 5
	}
	cfg.ErrorPause = getEnvDuration("WORKER_ERROR_PAUSE", cfg.ErrorPause)
	cfg.Debug = getEnvBool("DEBUG", cfg.Debug)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.ForceRefreshCron = getEnv("FORCE_REFRESH_CRON", cfg.ForceRefreshCron)

	cfg.BasicAuthUser = getEnv("APP_BASIC_USER", cfg.BasicAuthUser)
	cfg.BasicAuthPass = getEnv("APP_BASIC_PASS", cfg.BasicAuthPass)
	cfg.AdminName = getEnv("ADMIN_NAME", cfg.AdminName)
	cfg.AdminToken = getEnv("ADMIN_TOKEN", cfg.AdminToken)
}

// PollWait 长轮询等待时长
func (c *Config) PollWait() time.Duration {
	if c.VKWait <= 0 {
		return 25 * time.Second
	}
	return time.Duration(c.VKWait) * time.Second
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil || d < 0 {
		return def
	}
	return d
}
