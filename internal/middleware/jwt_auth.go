package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"thailao_logistics/internal/model"
	"thailao_logistics/pkg/utils"
)

// ==================== JWT 配置 ====================

// JWTConfig JWT 配置
type JWTConfig struct {
	SecretKey string        // 签名密钥
	TTL       time.Duration // Token 有效期
	Issuer    string        // 签发者
	CacheTTL  time.Duration // 已校验 Token 的缓存时间
}

// DefaultJWTConfig 默认配置
func DefaultJWTConfig() JWTConfig {
	return JWTConfig{
		SecretKey: "thailao-dev-secret-change-in-production",
		TTL:       24 * time.Hour,
		Issuer:    "thailao-logistics",
		CacheTTL:  5 * time.Minute,
	}
}

// ==================== Claims 定义 ====================

// UserClaims 用户声明
type UserClaims struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// ==================== Authenticator ====================

// Authenticator 签发与校验 Token
// 校验通过的 claims 按原始 token 缓存，命中缓存时仍检查过期时间
type Authenticator struct {
	cfg   JWTConfig
	cache *utils.TTLCache[*UserClaims]
	now   func() time.Time
}

// NewAuthenticator 创建认证器
func NewAuthenticator(cfg JWTConfig) *Authenticator {
	def := DefaultJWTConfig()
	if cfg.SecretKey == "" {
		cfg.SecretKey = def.SecretKey
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = def.Issuer
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}
	return &Authenticator{
		cfg:   cfg,
		cache: utils.NewTTLCache[*UserClaims](cfg.CacheTTL),
		now:   time.Now,
	}
}

// WithClock 替换时钟（测试用）
func (a *Authenticator) WithClock(now func() time.Time) *Authenticator {
	a.now = now
	a.cache.WithClock(now)
	return a
}

// GenerateToken 签发 Token，返回过期时间
func (a *Authenticator) GenerateToken(userID int64, username string, role model.UserRole) (string, time.Time, error) {
	now := a.now()
	expiresAt := now.Add(a.cfg.TTL)
	claims := &UserClaims{
		UserID:   userID,
		Username: username,
		Role:     string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(a.cfg.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseToken 完整校验：签名、签发者、过期时间、角色
func (a *Authenticator) ParseToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(a.cfg.SecretKey), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid || claims.UserID <= 0 {
		return nil, ErrTokenInvalid
	}
	if !model.UserRole(claims.Role).IsValid() {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Verify 先查缓存，未命中再完整校验
func (a *Authenticator) Verify(tokenString string) (*UserClaims, error) {
	if claims, ok := a.cache.Get(tokenString); ok {
		if claims.ExpiresAt == nil || !a.now().Before(claims.ExpiresAt.Time) {
			a.cache.Delete(tokenString)
			return nil, ErrTokenExpired
		}
		return claims, nil
	}

	claims, err := a.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	a.cache.Set(tokenString, claims)
	return claims, nil
}

// SweepCache 清理过期缓存，返回清理数量
func (a *Authenticator) SweepCache() int {
	return a.cache.Sweep()
}

// ==================== Gin 中间件 ====================

// Context Keys
const (
	ContextKeyUserID   = "user_id"
	ContextKeyUsername = "username"
	ContextKeyRole     = "role"
	ContextKeyClaims   = "claims"
)

// bearerToken 解析 Authorization: Bearer {token}
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func setClaims(c *gin.Context, claims *UserClaims) {
	c.Set(ContextKeyUserID, claims.UserID)
	c.Set(ContextKeyUsername, claims.Username)
	c.Set(ContextKeyRole, model.UserRole(claims.Role))
	c.Set(ContextKeyClaims, claims)
}

// JWTAuth JWT 认证中间件
func (a *Authenticator) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			abortError(c, http.StatusUnauthorized, "Unauthorized")
			return
		}

		claims, err := a.Verify(token)
		if err != nil {
			abortError(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth 可选认证中间件（不强制登录）
func (a *Authenticator) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if claims, err := a.Verify(token); err == nil {
				setClaims(c, claims)
			}
		}
		c.Next()
	}
}

// RequireRole 角色白名单，未登录 401，角色不符 403
func RequireRole(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserID(c) == 0 {
			abortError(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if !HasRole(c, roles...) {
			abortError(c, http.StatusForbidden, "Forbidden")
			return
		}
		c.Next()
	}
}

// ==================== 辅助函数 ====================

// GetUserID 从 Context 获取用户 ID
func GetUserID(c *gin.Context) int64 {
	if id, exists := c.Get(ContextKeyUserID); exists {
		return id.(int64)
	}
	return 0
}

// GetUsername 从 Context 获取用户名
func GetUsername(c *gin.Context) string {
	if name, exists := c.Get(ContextKeyUsername); exists {
		return name.(string)
	}
	return ""
}

// GetUserRole 从 Context 获取用户角色
func GetUserRole(c *gin.Context) model.UserRole {
	if role, exists := c.Get(ContextKeyRole); exists {
		return role.(model.UserRole)
	}
	return ""
}

// HasRole 当前用户是否属于给定角色之一
func HasRole(c *gin.Context, roles ...model.UserRole) bool {
	role := GetUserRole(c)
	for _, r := range roles {
		if role == r {
			return true
		}
	}
	return false
}

// GetUserClaims 从 Context 获取完整 Claims
func GetUserClaims(c *gin.Context) *UserClaims {
	if claims, exists := c.Get(ContextKeyClaims); exists {
		return claims.(*UserClaims)
	}
	return nil
}
