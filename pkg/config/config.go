package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// Config 应用配置结构
type Config struct {
	// 环境配置
	Environment string
	Port        string

	// 存储配置
	UseLocalStore bool
	DataDir       string
	PostgresDSN   string

	// JWT配置
	JWTSecret string

	// OAuth配置
	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectURI   string
	BaseURL            string // 基础URL，用于构建回调URL

	// CORS配置
	AllowedOrigins []string

	// 调试配置
	Debug bool
}

// LoadConfig 加载配置
func LoadConfig() *Config {
	// 根据环境加载对应的 .env 文件
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development" // 默认开发环境
	}

	// 按优先级加载环境文件（已存在的环境变量优先）
	switch env {
	case "production":
		_ = godotenv.Load(".env.production")
	default:
		_ = godotenv.Load(".env.local")
	}
	_ = godotenv.Load() // .env 兜底

	config := &Config{
		// 默认值
		Environment:   getEnvWithDefault("ENVIRONMENT", "development"),
		Port:          getEnvWithDefault("PORT", "3000"),
		UseLocalStore: getEnvBool("USE_LOCAL_STORE", true),
		DataDir:       getEnvWithDefault("DATA_DIR", "./data"),
		JWTSecret:     getEnvWithDefault("JWT_SECRET", "your-secret-key-change-in-production"),
		Debug:         getEnvBool("DEBUG", false),
	}

	// 数据库配置
	// Trim whitespace to avoid trailing spaces/newlines from env sources
	config.PostgresDSN = strings.TrimSpace(os.Getenv("POSTGRES_DSN"))

	// OAuth配置
	config.GoogleClientID = strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_ID"))
	config.GoogleClientSecret = strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_SECRET"))
	config.OAuthRedirectURI = strings.TrimSpace(os.Getenv("OAUTH_REDIRECT_URI"))
	config.BaseURL = strings.TrimSpace(os.Getenv("BASE_URL"))

	// CORS配置
	allowedOrigins := getEnvWithDefault("ALLOWED_ORIGINS", "*")
	if allowedOrigins == "*" {
		config.AllowedOrigins = []string{"*"}
	} else {
		config.AllowedOrigins = strings.Split(allowedOrigins, ",")
	}

	// 环境特定配置
	if config.Environment == "production" {
		// 生产环境强制使用PostgreSQL持久化
		if config.PostgresDSN != "" {
			config.UseLocalStore = false
		} else {
			fmt.Println("⚠️  WARNING: Production environment using local file persistence. Please configure POSTGRES_DSN")
		}
		// 生产环境关闭调试
		config.Debug = false
	}

	return config
}

// Cached config (initialized once per process)
var (
	cachedConfig *Config
	configOnce   sync.Once
)

// GetCached returns the process-wide cached Config.
func GetCached() *Config {
	configOnce.Do(func() {
		cachedConfig = LoadConfig()
	})
	return cachedConfig
}

// Validate 验证配置
func (c *Config) Validate() error {
	// 验证端口
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	// 验证JWT密钥
	if c.JWTSecret == "" || c.JWTSecret == "your-secret-key-change-in-production" {
		if c.Environment == "production" {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		if c.Environment == "development" {
			fmt.Println("⚠️  Using default JWT secret (not recommended for production)")
		}
	}

	// 验证存储配置
	if !c.UseLocalStore && c.PostgresDSN == "" {
		return fmt.Errorf("storage configuration incomplete: set POSTGRES_DSN or USE_LOCAL_STORE=true")
	}

	return nil
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// 辅助函数

// getEnvWithDefault 获取环境变量，如果不存在则使用默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool 获取布尔类型的环境变量
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
