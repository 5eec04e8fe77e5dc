package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "thailao.db", cfg.Database.DSN)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, 5*time.Minute, cfg.JWT.CacheTTL)
	assert.Equal(t, 5*time.Minute, cfg.RateLimit.LoginWindow)
	assert.Equal(t, 5, cfg.RateLimit.LoginMax)
	assert.Equal(t, "memory", cfg.RateLimit.Backend)
	assert.Equal(t, "local", cfg.Storage.Provider)
	assert.NotEmpty(t, cfg.JWT.Secret)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "host=localhost user=postgres dbname=thailao")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("LOGIN_RATE_MAX", "3")
	t.Setenv("STORAGE_PROVIDER", "S3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, 3, cfg.RateLimit.LoginMax)
	assert.Equal(t, "s3", cfg.Storage.Provider)
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_DRIVER", "sqlite")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Database:  DatabaseConfig{Driver: "sqlite", DSN: "x.db"},
			JWT:       JWTConfig{Secret: "s", TTL: time.Hour},
			RateLimit: RateLimitConfig{Backend: "memory", LoginMax: 5, LoginWindow: time.Minute},
			Storage:   StorageConfig{Provider: "local"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"合法配置", func(c *Config) {}, false},
		{"未知驱动", func(c *Config) { c.Database.Driver = "mysql" }, true},
		{"redis 缺少地址", func(c *Config) { c.RateLimit.Backend = "redis" }, true},
		{"redis 有地址", func(c *Config) {
			c.RateLimit.Backend = "redis"
			c.RateLimit.RedisURL = "redis://localhost:6379/0"
		}, false},
		{"未知存储", func(c *Config) { c.Storage.Provider = "ftp" }, true},
		{"登录限流为 0", func(c *Config) { c.RateLimit.LoginMax = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
