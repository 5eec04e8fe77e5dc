package controller

import (
	"github.com/gin-gonic/gin"

	"thailao_logistics/internal/api/dto"
	"thailao_logistics/internal/middleware"
	"thailao_logistics/internal/service"
)

// SettingController 系统配置
type SettingController struct {
	settingService *service.SettingService
}

// NewSettingController 创建配置控制器
func NewSettingController(settingService *service.SettingService) *SettingController {
	return &SettingController{settingService: settingService}
}

// Get 读取配置
// @Summary 读取系统配置
// @Tags Settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.Setting
// @Router /settings [get]
func (ctl *SettingController) Get(c *gin.Context) {
	setting, err := ctl.settingService.Get(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, setting)
}

// Update 更新配置
// @Summary 更新系统配置
// @Tags Settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdateSettingsRequest true "配置"
// @Success 200 {object} model.Setting
// @Failure 403 {object} ErrorResponse
// @Router /settings [patch]
func (ctl *SettingController) Update(c *gin.Context) {
	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	setting, err := ctl.settingService.Update(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, setting)
}
