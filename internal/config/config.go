package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Gemini   GeminiConfig   `mapstructure:"gemini"`
	RAG      RAGConfig      `mapstructure:"rag"`
	Reranker RerankerConfig `mapstructure:"reranker"`
	History  HistoryConfig  `mapstructure:"history"`
	Data     DataConfig     `mapstructure:"data"`
	Bot      BotConfig      `mapstructure:"bot"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type GeminiConfig struct {
	APIKey            string  `mapstructure:"api_key"`
	ChatModel         string  `mapstructure:"chat_model"`
	ClassifyModel     string  `mapstructure:"classify_model"`
	EmbeddingModel    string  `mapstructure:"embedding_model"`
	Temperature       float32 `mapstructure:"temperature"`
	MaxOutputTokens   int32   `mapstructure:"max_output_tokens"`
	ClassifyMaxTokens int32   `mapstructure:"classify_max_tokens"`
	RPMLimit          int     `mapstructure:"rpm_limit"`
}

type RAGConfig struct {
	TopK             int `mapstructure:"top_k"`
	HybridTopK       int `mapstructure:"hybrid_top_k"`
	RerankTopK       int `mapstructure:"rerank_top_k"`
	EmbedCacheSize   int `mapstructure:"embed_cache_size"`
	EmbedConcurrency int `mapstructure:"embed_concurrency"`
}

type RerankerConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type HistoryConfig struct {
	Backend       string `mapstructure:"backend"` // "file" / "redis"
	Dir           string `mapstructure:"dir"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	KeyPrefix     string `mapstructure:"key_prefix"`
}

type DataConfig struct {
	BooksDir     string `mapstructure:"books_dir"`
	OverviewFile string `mapstructure:"overview_file"`
}

type BotConfig struct {
	WSURL       string `mapstructure:"ws_url"`
	AccessToken string `mapstructure:"access_token"`
	OwnerQQ     int64  `mapstructure:"owner_qq"`
	NickName    string `mapstructure:"nickname"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// SlogLevel 解析日志级别，无法识别时用 info
func (c LogConfig) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8000")

	v.SetDefault("gemini.chat_model", "gemini-2.5-flash")
	v.SetDefault("gemini.classify_model", "gemini-2.5-flash-lite")
	v.SetDefault("gemini.embedding_model", "gemini-embedding-001")
	v.SetDefault("gemini.temperature", 0.1)
	v.SetDefault("gemini.max_output_tokens", 2048)
	v.SetDefault("gemini.classify_max_tokens", 16)
	v.SetDefault("gemini.rpm_limit", 60)

	v.SetDefault("rag.top_k", 5)
	v.SetDefault("rag.hybrid_top_k", 4)
	v.SetDefault("rag.rerank_top_k", 3)
	v.SetDefault("rag.embed_cache_size", 4096)
	v.SetDefault("rag.embed_concurrency", 4)

	v.SetDefault("reranker.base_url", "")
	v.SetDefault("reranker.model", "BAAI/bge-reranker-base")
	v.SetDefault("reranker.timeout", 30*time.Second)

	v.SetDefault("history.backend", "file")
	v.SetDefault("history.dir", "data/chat_history")
	v.SetDefault("history.key_prefix", "bookchat:history:")
	v.SetDefault("history.redis_addr", "")
	v.SetDefault("history.redis_db", 0)

	v.SetDefault("data.books_dir", "data/books")
	v.SetDefault("data.overview_file", "data/books_overview.json")

	v.SetDefault("bot.ws_url", "ws://127.0.0.1:3001")
	v.SetDefault("bot.owner_qq", 0)
	v.SetDefault("bot.nickname", "bookchat")
	v.SetDefault("log.level", "info")
}

// Load 读取配置文件；path 为空时只使用默认值和环境变量
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// 环境变量覆盖
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		v.Set("gemini.api_key", key)
	}
	if key := os.Getenv("RERANKER_API_KEY"); key != "" {
		v.Set("reranker.api_key", key)
	}
	if pw := os.Getenv("REDIS_PASSWORD"); pw != "" {
		v.Set("history.redis_password", pw)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("gemini.api_key is required (set in config or GEMINI_API_KEY env)")
	}
	if c.Reranker.BaseURL == "" {
		return fmt.Errorf("reranker.base_url is required")
	}
	switch c.History.Backend {
	case "file":
	case "redis":
		if c.History.RedisAddr == "" {
			return fmt.Errorf("history.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown history.backend %q", c.History.Backend)
	}
	if c.RAG.TopK <= 0 || c.RAG.HybridTopK <= 0 || c.RAG.RerankTopK <= 0 {
		return fmt.Errorf("rag top-k values must be positive")
	}
	return nil
}
