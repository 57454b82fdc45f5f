// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Log       LogConfig       `mapstructure:"log"`
	LLM       LLMConfig       `mapstructure:"llm"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig 存储关系型数据库的配置。
// Driver 取值 mysql 或 postgres。
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig 存储 Redis 的配置。Addr 为空表示不启用 Redis。
type RedisConfig struct {
	Addr           string        `mapstructure:"addr"`
	Password       string        `mapstructure:"password"`
	DB             int           `mapstructure:"db"`
	ShortResultTTL time.Duration `mapstructure:"short_result_ttl"`
}

// KafkaConfig 存储 Kafka 相关的配置。Brokers 为空表示不发布事件。
type KafkaConfig struct {
	Brokers       string `mapstructure:"brokers"`
	Topic         string `mapstructure:"topic"`
	GroupID       string `mapstructure:"group_id"`
	ConsumeEvents bool   `mapstructure:"consume_events"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	ShortModel string              `mapstructure:"short_model"`
	FullModel  string              `mapstructure:"full_model"`
	Timeout    time.Duration       `mapstructure:"timeout"`
	Generation LLMGenerationConfig `mapstructure:"generation"`
}

// LLMGenerationConfig 配置各阶段的生成参数。
type LLMGenerationConfig struct {
	Temperature        float64 `mapstructure:"temperature"`
	ClassifyMaxTokens  int     `mapstructure:"classify_max_tokens"`
	ShortTextMaxTokens int     `mapstructure:"short_text_max_tokens"`
	FullTextMaxTokens  int     `mapstructure:"full_text_max_tokens"`
}

// RateLimitConfig 配置生成接口的限流（按客户端 IP，固定窗口）。
type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

// setDefaults 为可选项设置默认值，与原部署保持一致。
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("redis.short_result_ttl", 24*time.Hour)
	v.SetDefault("kafka.topic", "archetype.pipeline")
	v.SetDefault("kafka.group_id", "archetype-go-audit")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.short_model", "gpt-4.1-mini")
	v.SetDefault("llm.full_model", "gpt-4.1")
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.generation.classify_max_tokens", 120)
	v.SetDefault("llm.generation.short_text_max_tokens", 520)
	v.SetDefault("llm.generation.full_text_max_tokens", 1200)
}

// Load 从指定路径读取 YAML 配置，并允许 ARCHETYPE_ 前缀的环境变量覆盖。
// 例如 ARCHETYPE_LLM_API_KEY 覆盖 llm.api_key。
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("ARCHETYPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("读取配置文件失败: %w", err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return cfg, nil
}

// Init 初始化配置加载，并解析到 Conf 变量中。失败时直接 panic。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = cfg
}
