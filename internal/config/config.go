package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ==================== 配置结构 ====================

// Config 应用配置
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Storage   StorageConfig
	Bootstrap BootstrapConfig
	SweepCron string
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port    string
	GinMode string
	Env     string
}

// LogConfig 日志配置
type LogConfig struct {
	Level string
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver       string // postgres | sqlite
	DSN          string
	LogLevel     string
	MaxIdleConns int
	MaxOpenConns int
}

// JWTConfig Token 配置
type JWTConfig struct {
	Secret   string
	TTL      time.Duration
	Issuer   string
	CacheTTL time.Duration
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Backend     string // memory | redis
	RedisURL    string
	LoginWindow time.Duration
	LoginMax    int
	APIWindow   time.Duration
	APIMax      int
}

// StorageConfig 存储配置
type StorageConfig struct {
	Provider       string // local | s3 | cos
	Bucket         string
	Region         string
	AccessKey      string
	SecretKey      string
	Endpoint       string
	CDNDomain      string
	BasePath       string
	PublicURL      string
	UploadMaxBytes int64
}

// BootstrapConfig 首个管理员
// AdminPassword 为空时启动时随机生成并打印一次
type BootstrapConfig struct {
	AdminUsername string
	AdminPassword string
	AdminFullName string
}

const devJWTSecret = "thailao-logistics-dev-secret-change-me"

// ==================== 加载 ====================

// Load 加载配置：.env -> 环境变量 -> config.yaml（可选）
func Load() (*Config, error) {
	// .env 不存在不是错误
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_LOG_LEVEL", "warn")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("JWT_ISSUER", "thailao-logistics")
	v.SetDefault("TOKEN_CACHE_TTL", "5m")

	v.SetDefault("RATE_LIMIT_BACKEND", "memory")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("LOGIN_RATE_WINDOW", "5m")
	v.SetDefault("LOGIN_RATE_MAX", 5)
	v.SetDefault("API_RATE_WINDOW", "60s")
	v.SetDefault("API_RATE_MAX", 60)

	v.SetDefault("STORAGE_PROVIDER", "local")
	v.SetDefault("STORAGE_BUCKET", "")
	v.SetDefault("STORAGE_REGION", "")
	v.SetDefault("STORAGE_ACCESS_KEY", "")
	v.SetDefault("STORAGE_SECRET_KEY", "")
	v.SetDefault("STORAGE_ENDPOINT", "")
	v.SetDefault("STORAGE_CDN_DOMAIN", "")
	v.SetDefault("STORAGE_BASE_PATH", "./uploads")
	v.SetDefault("STORAGE_PUBLIC_URL", "/uploads")
	v.SetDefault("UPLOAD_MAX_BYTES", 10<<20)

	v.SetDefault("BOOTSTRAP_ADMIN_USERNAME", "admin")
	v.SetDefault("BOOTSTRAP_ADMIN_PASSWORD", "")
	v.SetDefault("BOOTSTRAP_ADMIN_FULLNAME", "Administrator")

	v.SetDefault("SWEEP_CRON", "0 * * * * *")
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:    v.GetString("SERVER_PORT"),
			GinMode: v.GetString("GIN_MODE"),
			Env:     v.GetString("APP_ENV"),
		},
		Log: LogConfig{Level: v.GetString("LOG_LEVEL")},
		Database: DatabaseConfig{
			Driver:       strings.ToLower(v.GetString("DB_DRIVER")),
			DSN:          v.GetString("DATABASE_URL"),
			LogLevel:     v.GetString("DB_LOG_LEVEL"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		},
		JWT: JWTConfig{
			Secret:   v.GetString("JWT_SECRET"),
			TTL:      v.GetDuration("JWT_TTL"),
			Issuer:   v.GetString("JWT_ISSUER"),
			CacheTTL: v.GetDuration("TOKEN_CACHE_TTL"),
		},
		RateLimit: RateLimitConfig{
			Backend:     strings.ToLower(v.GetString("RATE_LIMIT_BACKEND")),
			RedisURL:    v.GetString("REDIS_URL"),
			LoginWindow: v.GetDuration("LOGIN_RATE_WINDOW"),
			LoginMax:    v.GetInt("LOGIN_RATE_MAX"),
			APIWindow:   v.GetDuration("API_RATE_WINDOW"),
			APIMax:      v.GetInt("API_RATE_MAX"),
		},
		Storage: StorageConfig{
			Provider:       strings.ToLower(v.GetString("STORAGE_PROVIDER")),
			Bucket:         v.GetString("STORAGE_BUCKET"),
			Region:         v.GetString("STORAGE_REGION"),
			AccessKey:      v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey:      v.GetString("STORAGE_SECRET_KEY"),
			Endpoint:       v.GetString("STORAGE_ENDPOINT"),
			CDNDomain:      v.GetString("STORAGE_CDN_DOMAIN"),
			BasePath:       v.GetString("STORAGE_BASE_PATH"),
			PublicURL:      v.GetString("STORAGE_PUBLIC_URL"),
			UploadMaxBytes: v.GetInt64("UPLOAD_MAX_BYTES"),
		},
		Bootstrap: BootstrapConfig{
			AdminUsername: v.GetString("BOOTSTRAP_ADMIN_USERNAME"),
			AdminPassword: v.GetString("BOOTSTRAP_ADMIN_PASSWORD"),
			AdminFullName: v.GetString("BOOTSTRAP_ADMIN_FULLNAME"),
		},
		SweepCron: v.GetString("SWEEP_CRON"),
	}

	if cfg.Database.Driver == "sqlite" && cfg.Database.DSN == "" {
		cfg.Database.DSN = "thailao.db"
	}
	if cfg.JWT.Secret == "" && !cfg.IsProduction() {
		cfg.JWT.Secret = devJWTSecret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction 是否生产环境
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("不支持的数据库驱动: %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("DATABASE_URL 不能为空")
	}

	if c.JWT.Secret == "" {
		return errors.New("生产环境必须配置 JWT_SECRET")
	}
	if c.JWT.TTL <= 0 {
		return errors.New("JWT_TTL 必须大于 0")
	}

	switch c.RateLimit.Backend {
	case "memory":
	case "redis":
		if c.RateLimit.RedisURL == "" {
			return errors.New("RATE_LIMIT_BACKEND=redis 时必须配置 REDIS_URL")
		}
	default:
		return fmt.Errorf("不支持的限流后端: %q", c.RateLimit.Backend)
	}
	if c.RateLimit.LoginMax <= 0 || c.RateLimit.LoginWindow <= 0 {
		return errors.New("登录限流配置无效")
	}

	switch c.Storage.Provider {
	case "local", "s3", "cos":
	default:
		return fmt.Errorf("不支持的存储提供者: %q", c.Storage.Provider)
	}
	return nil
}
