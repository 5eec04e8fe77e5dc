package controller

import (
	"github.com/gin-gonic/gin"

	"thailao_logistics/internal/api/dto"
	"thailao_logistics/internal/service"
)

// ==================== ShipmentController 运单 ====================

// ShipmentController 运单
type ShipmentController struct {
	shipmentService *service.ShipmentService
}

// NewShipmentController 创建运单控制器
func NewShipmentController(shipmentService *service.ShipmentService) *ShipmentController {
	return &ShipmentController{shipmentService: shipmentService}
}

// Create 创建运单
// @Summary 创建运单
// @Description 自动分配公司单号并写入 CREATED 事件
// @Tags Shipments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateShipmentRequest true "运单信息"
// @Success 200 {object} model.Shipment
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /shipments [post]
func (ctl *ShipmentController) Create(c *gin.Context) {
	var req dto.CreateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	shipment, err := ctl.shipmentService.Create(c.Request.Context(), actorOf(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, shipment)
}

// List 运单列表
// @Summary 运单列表
// @Tags Shipments
// @Produce json
// @Security BearerAuth
// @Param status query string false "当前状态"
// @Param direction query string false "TH_TO_LA | LA_TO_TH"
// @Param codStatus query string false "COD 状态"
// @Param customerId query int false "客户ID"
// @Param search query string false "单号 / 收件人 / 电话"
// @Param dateFrom query string false "YYYY-MM-DD"
// @Param dateTo query string false "YYYY-MM-DD（含当天）"
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} dto.ShipmentListResponse
// @Router /shipments [get]
func (ctl *ShipmentController) List(c *gin.Context) {
	var req dto.ShipmentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := ctl.shipmentService.List(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, resp)
}

// Get 运单详情
// @Summary 运单详情
// @Tags Shipments
// @Produce json
// @Security BearerAuth
// @Param id path int true "运单ID"
// @Success 200 {object} model.Shipment
// @Failure 404 {object} ErrorResponse
// @Router /shipments/{id} [get]
func (ctl *ShipmentController) Get(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}
	shipment, err := ctl.shipmentService.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, shipment)
}

// Delete 删除运单
// @Summary 删除运单（含事件与照片）
// @Tags Shipments
// @Produce json
// @Security BearerAuth
// @Param id path int true "运单ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} ErrorResponse
// @Router /shipments/{id} [delete]
func (ctl *ShipmentController) Delete(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}
	if err := ctl.shipmentService.Delete(c.Request.Context(), actorOf(c), id); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "Shipment deleted")
}

// UpdateStatus 记录状态
// @Summary 记录运单状态
// @Description force 仅 MANAGER / ADMIN 可用
// @Tags Shipments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "运单ID"
// @Param request body dto.UpdateStatusRequest true "状态"
// @Success 200 {object} model.Shipment
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /shipments/{id}/status [patch]
func (ctl *ShipmentController) UpdateStatus(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	shipment, err := ctl.shipmentService.RecordStatus(c.Request.Context(), actorOf(c), id, service.StatusUpdate{
		Status:   req.Status,
		Location: req.Location,
		Notes:    req.Notes,
		Force:    req.Force,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, shipment)
}

// BatchUpdate 批量记录状态
// @Summary 批量记录状态
// @Description 每个运单独立处理，单个失败不影响其他
// @Tags Shipments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.BatchUpdateRequest true "批量状态"
// @Success 200 {object} dto.BatchUpdateResponse
// @Router /shipments/batch [post]
func (ctl *ShipmentController) BatchUpdate(c *gin.Context) {
	var req dto.BatchUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := ctl.shipmentService.BatchRecordStatus(c.Request.Context(), actorOf(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, resp)
}

// UpdateCod 更新 COD 状态
// @Summary 更新 COD 状态
// @Description TRANSFERRED 等同 REMITTED
// @Tags Shipments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "运单ID"
// @Param request body dto.UpdateCodRequest true "COD 状态"
// @Success 200 {object} model.Shipment
// @Failure 400 {object} ErrorResponse
// @Router /shipments/{id}/cod [patch]
func (ctl *ShipmentController) UpdateCod(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}
	var req dto.UpdateCodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	shipment, err := ctl.shipmentService.SetCodStatus(c.Request.Context(), actorOf(c), id, req.Status, req.Force)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, shipment)
}

// SetLastMile 末端配送
// @Summary 设置末端配送方式
// @Tags Shipments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "运单ID"
// @Param request body dto.LastMileRequest true "PICKUP | DELIVERY"
// @Success 200 {object} model.Shipment
// @Router /shipments/{id}/lastmile [patch]
func (ctl *ShipmentController) SetLastMile(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}
	var req dto.LastMileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	shipment, err := ctl.shipmentService.SetLastMile(c.Request.Context(), actorOf(c), id, &req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, shipment)
}
