package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"thailao_logistics/internal/controller"
	"thailao_logistics/internal/middleware"
	"thailao_logistics/internal/model"

	_ "thailao_logistics/docs"
)

// Controllers 控制器集合
type Controllers struct {
	Auth     *controller.AuthController
	User     *controller.UserController
	Customer *controller.CustomerController
	Shipment *controller.ShipmentController
	Photo    *controller.PhotoController
	Tracking *controller.TrackingController
	Setting  *controller.SettingController
	Report   *controller.ReportController
}

// Options 路由依赖的中间件组件
type Options struct {
	Auth        *middleware.Authenticator
	RateLimiter middleware.RateLimitStore
	LoginLimit  middleware.RateLimitConfig
	APILimit    middleware.RateLimitConfig
	// multipart 内存上限，超出部分落临时文件
	MaxMultipartMemory int64
}

// SetupRouter 创建 gin 引擎并注册所有路由
func SetupRouter(ctl *Controllers, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.RequestLogger())
	if opts.MaxMultipartMemory > 0 {
		r.MaxMultipartMemory = opts.MaxMultipartMemory
	}

	InitRoutes(r, ctl, opts)
	return r
}

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine, ctl *Controllers, opts Options) {
	// 1. 基础路由
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	// 访问 http://localhost:8080/swagger/index.html 即可查看
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	// 本地存储的文件
	r.GET("/uploads/:filename", ctl.Photo.Serve)

	managers := middleware.RequireRole(model.RoleManager, model.RoleAdmin)
	admins := middleware.RequireRole(model.RoleAdmin)

	// 2. API 路由组
	api := r.Group("/api")
	{
		// 公开接口
		api.POST("/auth/login",
			middleware.RateLimit(opts.RateLimiter, opts.LoginLimit, middleware.LoginKey),
			ctl.Auth.Login)
		// 员工登录状态下查询时记录用户
		api.GET("/tracking/:number",
			opts.Auth.OptionalAuth(),
			middleware.RateLimit(opts.RateLimiter, opts.APILimit, middleware.APIKey),
			ctl.Tracking.Track)

		authed := api.Group("", opts.Auth.JWTAuth(), middleware.AuditContext())

		authed.GET("/auth/me", ctl.Auth.Me)

		// users 用户管理
		users := authed.Group("/users")
		{
			users.GET("", managers, ctl.User.List)
			users.POST("", managers, ctl.User.Create)
			users.GET("/:id", managers, ctl.User.Get)
			users.PATCH("/:id", managers, ctl.User.Update)
			users.DELETE("/:id", admins, ctl.User.Delete)
			// 本人或 ADMIN，由服务层判断
			users.PATCH("/:id/password", ctl.User.ChangePassword)
		}

		// customers 会员客户
		customers := authed.Group("/customers")
		{
			customers.GET("", ctl.Customer.List)
			customers.POST("", ctl.Customer.Create)
			customers.GET("/code/:code", ctl.Customer.GetByCode)
			customers.GET("/:id", ctl.Customer.Get)
			customers.PUT("/:id", ctl.Customer.Update)
			customers.DELETE("/:id", ctl.Customer.Delete)
		}

		// shipments 运单
		shipments := authed.Group("/shipments")
		{
			shipments.GET("", ctl.Shipment.List)
			shipments.POST("", ctl.Shipment.Create)
			shipments.POST("/batch", ctl.Shipment.BatchUpdate)
			shipments.GET("/:id", ctl.Shipment.Get)
			shipments.DELETE("/:id", managers, ctl.Shipment.Delete)
			shipments.PATCH("/:id/status", ctl.Shipment.UpdateStatus)
			shipments.PATCH("/:id/cod", ctl.Shipment.UpdateCod)
			shipments.PATCH("/:id/lastmile", ctl.Shipment.SetLastMile)
			shipments.GET("/:id/photos", ctl.Photo.List)
			shipments.POST("/:id/photos", ctl.Photo.Add)
		}

		authed.POST("/upload", ctl.Photo.Upload)

		// settings 系统配置
		authed.GET("/settings", ctl.Setting.Get)
		authed.PATCH("/settings", admins, ctl.Setting.Update)

		// reports 报表
		authed.GET("/reports/daily", managers, ctl.Report.Daily)
		authed.GET("/reports/cod", managers, ctl.Report.Cod)
		authed.GET("/dashboard/stats", ctl.Report.DashboardStats)
		authed.GET("/dashboard/financial", managers, ctl.Report.Financial)
		authed.GET("/export/csv", managers, ctl.Report.ExportCSV)
	}
}
