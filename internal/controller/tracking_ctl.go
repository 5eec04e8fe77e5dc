package controller

import (
	"github.com/gin-gonic/gin"

	"thailao_logistics/internal/service"
)

// TrackingController 公开查询，无需登录
type TrackingController struct {
	shipmentService *service.ShipmentService
}

// NewTrackingController 创建公开查询控制器
func NewTrackingController(shipmentService *service.ShipmentService) *TrackingController {
	return &TrackingController{shipmentService: shipmentService}
}

// Track 按公司单号或泰国单号查询轨迹
// @Summary 公开轨迹查询
// @Tags Tracking
// @Produce json
// @Param number path string true "公司单号或泰国单号"
// @Success 200 {object} dto.TrackingResponse
// @Failure 404 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /tracking/{number} [get]
func (ctl *TrackingController) Track(c *gin.Context) {
	resp, err := ctl.shipmentService.Track(c.Request.Context(), c.Param("number"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, resp)
}
