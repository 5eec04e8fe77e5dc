package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"thailao_logistics/internal/config"
	"thailao_logistics/internal/controller"
	"thailao_logistics/internal/middleware"
	"thailao_logistics/internal/model"
	"thailao_logistics/internal/repository"
	"thailao_logistics/internal/router"
	"thailao_logistics/internal/service"
	"thailao_logistics/internal/task"
	"thailao_logistics/pkg/database"
	"thailao_logistics/pkg/logger"
)

// @title           Thai-Lao Logistics API
// @version         1.0
// @description     泰国-老挝跨境物流运单追踪服务
// @BasePath        /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	if _, err := logger.Init(cfg.Log.Level, cfg.Server.Env); err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer logger.Sync()

	// 1. 初始化数据库
	db, err := initDatabase(cfg)
	if err != nil {
		logger.L().Fatal("数据库初始化失败", zap.Error(err))
	}

	// 2. 初始化依赖
	deps, err := initDependencies(cfg, db)
	if err != nil {
		logger.L().Fatal("依赖初始化失败", zap.Error(err))
	}

	// 3. 首个管理员
	ensureAdmin(cfg, deps)

	// 4. 启动定时任务
	if err := deps.Sweep.Start(); err != nil {
		logger.L().Fatal("定时任务启动失败", zap.Error(err))
	}

	// 5. 初始化路由
	gin.SetMode(cfg.Server.GinMode)
	r := router.SetupRouter(deps.Controllers, router.Options{
		Auth:        deps.Auth,
		RateLimiter: deps.Limiter,
		LoginLimit: middleware.RateLimitConfig{
			Window:      cfg.RateLimit.LoginWindow,
			MaxRequests: cfg.RateLimit.LoginMax,
		},
		APILimit: middleware.RateLimitConfig{
			Window:      cfg.RateLimit.APIWindow,
			MaxRequests: cfg.RateLimit.APIMax,
		},
		MaxMultipartMemory: cfg.Storage.UploadMaxBytes,
	})

	// 6. 启动服务
	startServer(cfg, r, deps)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Auth        *middleware.Authenticator
	Limiter     middleware.RateLimitStore
	Repos       *Repositories
	Services    *Services
	Controllers *router.Controllers
	Sweep       *task.SweepTask
}

// Repositories 仓库集合
type Repositories struct {
	User     repository.UserRepository
	Customer repository.CustomerRepository
	Shipment repository.ShipmentRepository
	Photo    repository.PhotoRepository
	Setting  repository.SettingRepository
	Report   repository.ReportRepository
	ShipUow  *repository.ShipmentUnitOfWork
}

// Services 服务集合
type Services struct {
	User     *service.UserService
	Customer *service.CustomerService
	Shipment *service.ShipmentService
	Photo    *service.PhotoService
	Setting  *service.SettingService
	Report   *service.ReportService
	Storage  *service.StorageService
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库并注册审计回调
func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.InitDB(database.Options{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DSN,
		LogLevel:     cfg.Database.LogLevel,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	}, model.AllModels()...)
	if err != nil {
		return nil, err
	}
	if err := middleware.RegisterAuditCallbacks(db); err != nil {
		return nil, fmt.Errorf("注册审计回调失败: %w", err)
	}
	return db, nil
}

// initDependencies 初始化所有依赖
func initDependencies(cfg *config.Config, db *gorm.DB) (*Dependencies, error) {
	// -------- 认证 & 限流 --------
	auth := middleware.NewAuthenticator(middleware.JWTConfig{
		SecretKey: cfg.JWT.Secret,
		TTL:       cfg.JWT.TTL,
		Issuer:    cfg.JWT.Issuer,
		CacheTTL:  cfg.JWT.CacheTTL,
	})
	limiter, err := initRateLimiter(cfg)
	if err != nil {
		return nil, err
	}

	// -------- Repo 层 --------
	repos := initRepositories(db)

	// -------- 存储 --------
	storageSvc, err := service.NewStorageService(&service.StorageConfig{
		Provider:  cfg.Storage.Provider,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Endpoint:  cfg.Storage.Endpoint,
		CDNDomain: cfg.Storage.CDNDomain,
		BasePath:  cfg.Storage.BasePath,
		PublicURL: cfg.Storage.PublicURL,
		MaxBytes:  cfg.Storage.UploadMaxBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("存储服务初始化失败: %w", err)
	}

	// -------- 业务服务 --------
	services := &Services{
		User:     service.NewUserService(repos.User, auth),
		Customer: service.NewCustomerService(repos.Customer),
		Shipment: service.NewShipmentService(repos.ShipUow),
		Photo:    service.NewPhotoService(repos.Shipment, repos.Photo, storageSvc),
		Setting:  service.NewSettingService(repos.Setting),
		Report:   service.NewReportService(repos.Report, repos.Shipment),
		Storage:  storageSvc,
	}

	// -------- 定时任务 --------
	sweep := task.NewSweepTask(cfg.SweepCron).
		Register("rate_limiter", limiter).
		Register("token_cache", task.SweeperFunc(auth.SweepCache))

	return &Dependencies{
		DB:          db,
		Auth:        auth,
		Limiter:     limiter,
		Repos:       repos,
		Services:    services,
		Controllers: initControllers(services),
		Sweep:       sweep,
	}, nil
}

// initRateLimiter 按配置选择限流后端
func initRateLimiter(cfg *config.Config) (middleware.RateLimitStore, error) {
	if cfg.RateLimit.Backend != "redis" {
		return middleware.NewMemoryRateLimiter(), nil
	}

	limiter, err := middleware.NewRedisRateLimiter(cfg.RateLimit.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("解析 REDIS_URL 失败: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := limiter.Ping(ctx); err != nil {
		// 限流放行优先于拒绝服务
		logger.L().Warn("Redis 暂不可用，限流将放行请求", zap.Error(err))
	}
	return limiter, nil
}

// initRepositories 初始化所有仓库
func initRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:     repository.NewUserRepository(db),
		Customer: repository.NewCustomerRepository(db),
		Shipment: repository.NewShipmentRepository(db),
		Photo:    repository.NewPhotoRepository(db),
		Setting:  repository.NewSettingRepository(db),
		Report:   repository.NewReportRepository(db),
		ShipUow:  repository.NewShipmentUnitOfWork(db),
	}
}

// initControllers 初始化所有控制器
func initControllers(svc *Services) *router.Controllers {
	return &router.Controllers{
		Auth:     controller.NewAuthController(svc.User),
		User:     controller.NewUserController(svc.User),
		Customer: controller.NewCustomerController(svc.Customer),
		Shipment: controller.NewShipmentController(svc.Shipment),
		Photo:    controller.NewPhotoController(svc.Photo, svc.Storage),
		Tracking: controller.NewTrackingController(svc.Shipment),
		Setting:  controller.NewSettingController(svc.Setting),
		Report:   controller.NewReportController(svc.Report),
	}
}

// ensureAdmin 用户表为空时创建管理员
func ensureAdmin(cfg *config.Config, deps *Dependencies) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := deps.Services.User.EnsureBootstrapAdmin(ctx, service.BootstrapAdmin{
		Username: cfg.Bootstrap.AdminUsername,
		Password: cfg.Bootstrap.AdminPassword,
		FullName: cfg.Bootstrap.AdminFullName,
	})
	if err != nil {
		logger.L().Fatal("初始化管理员失败", zap.Error(err))
	}
}

// ==================== 服务启动 ====================

// startServer 启动服务并等待退出信号
func startServer(cfg *config.Config, r *gin.Engine, deps *Dependencies) {
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 异步启动服务
	go func() {
		logger.L().Info("服务启动", zap.String("addr", srv.Addr), zap.String("env", cfg.Server.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal("服务启动失败", zap.Error(err))
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.L().Info("正在关闭服务...")

	// 优雅关闭，最多等待 30 秒
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.L().Error("服务强制关闭", zap.Error(err))
	}

	deps.Sweep.Stop()
	if closer, ok := deps.Limiter.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.L().Warn("关闭 Redis 连接失败", zap.Error(err))
		}
	}
	if err := database.Close(deps.DB); err != nil {
		logger.L().Warn("关闭数据库失败", zap.Error(err))
	}

	logger.L().Info("服务已退出")
}
