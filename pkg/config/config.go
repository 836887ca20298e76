package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 应用配置，全部来自环境变量
type Config struct {
	// 基础配置
	Environment string
	Port        string
	Debug       bool

	// 存储：必须显式指定 driver，不做运行时兜底
	StorageDriver string // "memory" | "postgres"
	PostgresDSN   string

	// 评估器："keyword" | "model"
	Evaluator       string
	AnthropicAPIKey string
	ModelName       string
	EvalTimeout     time.Duration

	// 认证
	JWTSecret string

	// CORS
	AllowedOrigins []string

	// 审批过期后台清扫（默认关闭，过期以读取时判断为准）
	SweepApprovals bool
}

// Load 加载配置；.env 文件存在时先读入
func Load() (*Config, error) {
	// .env 不存在不算错误
	_ = godotenv.Load()

	cfg := &Config{
		Environment:     getEnvWithDefault("ENVIRONMENT", "development"),
		Port:            getEnvWithDefault("PORT", "8080"),
		Debug:           getEnvBool("DEBUG", false),
		StorageDriver:   getEnvWithDefault("STORAGE_DRIVER", "memory"),
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),
		Evaluator:       getEnvWithDefault("EVALUATOR", "keyword"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		ModelName:       os.Getenv("EVALUATOR_MODEL"),
		EvalTimeout:     getEnvDuration("EVALUATOR_TIMEOUT", 30*time.Second),
		JWTSecret:       getEnvWithDefault("JWT_SECRET", "dev-secret-change-me"),
		AllowedOrigins:  splitList(getEnvWithDefault("ALLOWED_ORIGINS", "*")),
		SweepApprovals:  getEnvBool("SWEEP_APPROVALS", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置组合是否可用
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case "memory":
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("config: STORAGE_DRIVER=postgres requires POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("config: unknown STORAGE_DRIVER %q (want \"memory\" or \"postgres\")", c.StorageDriver)
	}

	switch c.Evaluator {
	case "keyword":
	case "model":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("config: EVALUATOR=model requires ANTHROPIC_API_KEY")
		}
	default:
		return fmt.Errorf("config: unknown EVALUATOR %q (want \"keyword\" or \"model\")", c.Evaluator)
	}

	if c.IsProduction() && c.JWTSecret == "dev-secret-change-me" {
		return fmt.Errorf("config: JWT_SECRET must be set in production")
	}
	return nil
}

// IsDevelopment 是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction 是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
