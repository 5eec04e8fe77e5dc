package controller

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"thailao_logistics/internal/api/dto"
	"thailao_logistics/internal/service"
)

// ReportController 报表、看板、导出
type ReportController struct {
	reportService *service.ReportService
}

// NewReportController 创建报表控制器
func NewReportController(reportService *service.ReportService) *ReportController {
	return &ReportController{reportService: reportService}
}

// Daily 日报
// @Summary 按天汇总
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param days query int false "天数 1-90" default(7)
// @Success 200 {object} dto.DailyReportResponse
// @Router /reports/daily [get]
func (ctl *ReportController) Daily(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil {
		badRequest(c, "days must be a number")
		return
	}
	resp, err := ctl.reportService.Daily(c.Request.Context(), days)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, resp)
}

// Cod COD 报表
// @Summary COD 汇总
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.CodReportResponse
// @Router /reports/cod [get]
func (ctl *ReportController) Cod(c *gin.Context) {
	resp, err := ctl.reportService.Cod(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, resp)
}

// DashboardStats 首页统计
// @Summary 首页统计
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.DashboardStats
// @Router /dashboard/stats [get]
func (ctl *ReportController) DashboardStats(c *gin.Context) {
	stats, err := ctl.reportService.DashboardStats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, stats)
}

// Financial 本月财务统计
// @Summary 本月财务统计
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.FinancialStats
// @Router /dashboard/financial [get]
func (ctl *ReportController) Financial(c *gin.Context) {
	stats, err := ctl.reportService.FinancialStats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, stats)
}

// ExportCSV 导出运单
// @Summary 导出运单 CSV
// @Tags Reports
// @Produce text/csv
// @Security BearerAuth
// @Param status query string false "当前状态"
// @Param direction query string false "方向"
// @Param dateFrom query string false "YYYY-MM-DD"
// @Param dateTo query string false "YYYY-MM-DD"
// @Success 200 {file} binary
// @Router /export/csv [get]
func (ctl *ReportController) ExportCSV(c *gin.Context) {
	var req dto.ShipmentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}
	// 先校验，写出响应头之后就不能再返回 JSON 错误
	if _, err := service.ParseShipmentFilter(&req); err != nil {
		fail(c, err)
		return
	}

	filename := fmt.Sprintf("shipments-%s.csv", time.Now().Format("20060102"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := ctl.reportService.ExportCSV(c.Request.Context(), &req, c.Writer); err != nil {
		// 已开始输出，只能中断
		_ = c.Error(err)
		c.Abort()
	}
}
