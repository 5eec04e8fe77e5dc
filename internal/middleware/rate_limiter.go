package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"thailao_logistics/pkg/logger"
)

// ==================== 限流配置 ====================

// RateLimitConfig 固定窗口配置
type RateLimitConfig struct {
	Window      time.Duration
	MaxRequests int
}

// LoginRateLimit 登录：5 分钟 5 次
var LoginRateLimit = RateLimitConfig{Window: 5 * time.Minute, MaxRequests: 5}

// APIRateLimit 公开接口：1 分钟 60 次
var APIRateLimit = RateLimitConfig{Window: time.Minute, MaxRequests: 60}

// RateLimitResult 检查结果
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

// RateLimitStore 限流计数存储
// 每次检查都会计数，包括被拒绝的请求
type RateLimitStore interface {
	Check(ctx context.Context, key string, cfg RateLimitConfig) (RateLimitResult, error)
	// Sweep 清理已过期窗口，返回清理数量
	Sweep() int
}

// ==================== 内存实现 ====================

type rateEntry struct {
	count   int
	resetAt time.Time
}

// MemoryRateLimiter 进程内固定窗口限流
type MemoryRateLimiter struct {
	mu      sync.Mutex
	entries map[string]*rateEntry
	now     func() time.Time
}

// NewMemoryRateLimiter 创建内存限流器
func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{
		entries: make(map[string]*rateEntry),
		now:     time.Now,
	}
}

// WithClock 替换时钟（测试用）
func (m *MemoryRateLimiter) WithClock(now func() time.Time) *MemoryRateLimiter {
	m.now = now
	return m
}

func (m *MemoryRateLimiter) Check(_ context.Context, key string, cfg RateLimitConfig) (RateLimitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	entry, ok := m.entries[key]
	if !ok || now.After(entry.resetAt) {
		entry = &rateEntry{resetAt: now.Add(cfg.Window)}
		m.entries[key] = entry
	}
	entry.count++

	resetIn := entry.resetAt.Sub(now)
	if resetIn < 0 {
		resetIn = 0
	}
	remaining := cfg.MaxRequests - entry.count
	if remaining < 0 {
		remaining = 0
	}
	return RateLimitResult{
		Allowed:   entry.count <= cfg.MaxRequests,
		Remaining: remaining,
		ResetIn:   resetIn,
	}, nil
}

func (m *MemoryRateLimiter) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, entry := range m.entries {
		if now.After(entry.resetAt) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Len 当前窗口数量
func (m *MemoryRateLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// ==================== Redis 实现 ====================

// 计数与过期时间在脚本内原子设置
var fixedWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisRateLimiter 多实例共享计数
type RedisRateLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisRateLimiter 通过 redis:// URL 创建
func NewRedisRateLimiter(redisURL string) (*RedisRateLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("解析 REDIS_URL 失败: %w", err)
	}
	return NewRedisRateLimiterWithClient(redis.NewClient(opts)), nil
}

// NewRedisRateLimiterWithClient 使用已有客户端
func NewRedisRateLimiterWithClient(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, prefix: "ratelimit:"}
}

// Ping 连通性检查
func (r *RedisRateLimiter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRateLimiter) Check(ctx context.Context, key string, cfg RateLimitConfig) (RateLimitResult, error) {
	vals, err := fixedWindowScript.Run(ctx, r.client, []string{r.prefix + key}, cfg.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return RateLimitResult{}, err
	}
	if len(vals) != 2 {
		return RateLimitResult{}, fmt.Errorf("限流脚本返回值异常: %v", vals)
	}

	count := int(vals[0])
	remaining := cfg.MaxRequests - count
	if remaining < 0 {
		remaining = 0
	}
	return RateLimitResult{
		Allowed:   count <= cfg.MaxRequests,
		Remaining: remaining,
		ResetIn:   time.Duration(vals[1]) * time.Millisecond,
	}, nil
}

// Sweep Redis 键自带过期时间
func (r *RedisRateLimiter) Sweep() int { return 0 }

// Close 关闭连接
func (r *RedisRateLimiter) Close() error {
	return r.client.Close()
}

// ==================== Gin 中间件 ====================

// ClientIP 取 X-Forwarded-For 第一个地址，其次 X-Real-IP，否则 "unknown"
// 没有代理头的客户端共用 "unknown" 桶
func ClientIP(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		if ip := strings.TrimSpace(strings.Split(forwarded, ",")[0]); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(c.GetHeader("X-Real-IP")); realIP != "" {
		return realIP
	}
	return "unknown"
}

// LoginKey login:<ip>
func LoginKey(c *gin.Context) string {
	return "login:" + ClientIP(c)
}

// APIKey api:<ip>
func APIKey(c *gin.Context) string {
	return "api:" + ClientIP(c)
}

// RateLimit 固定窗口限流中间件
// 存储异常时放行并记录日志
func RateLimit(store RateLimitStore, cfg RateLimitConfig, keyFunc func(c *gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c)
		result, err := store.Check(c.Request.Context(), key, cfg)
		if err != nil {
			logger.L().Error("限流检查失败，放行", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			retryAfter := retryAfterSeconds(result.ResetIn)
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success":    false,
				"error":      formatRetryMessage(retryAfter),
				"retryAfter": retryAfter,
			})
			return
		}

		c.Next()
	}
}

func retryAfterSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}

// formatRetryMessage 格式化剩余等待时间
func formatRetryMessage(seconds int) string {
	if seconds >= 60 {
		minutes := (seconds + 59) / 60
		return fmt.Sprintf("Too many requests, please try again in %d minute(s)", minutes)
	}
	return fmt.Sprintf("Too many requests, please try again in %d second(s)", seconds)
}
