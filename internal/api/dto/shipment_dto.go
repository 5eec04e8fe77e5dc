package dto

import (
	"time"

	"thailao_logistics/internal/model"
)

// ==================== 创建 ====================

// CreateShipmentRequest 创建运单请求
type CreateShipmentRequest struct {
	ThaiTracking    *string  `json:"thaiTracking" binding:"omitempty,max=64"`
	Direction       string   `json:"direction" binding:"required"`
	ParcelType      string   `json:"parcelType" binding:"required"`
	Weight          float64  `json:"weight" binding:"required,gt=0"`
	Note            *string  `json:"note"`
	ReceiverName    string   `json:"receiverName" binding:"required,max=100"`
	ReceiverPhone   string   `json:"receiverPhone" binding:"required,max=30"`
	ReceiverAddress *string  `json:"receiverAddress" binding:"omitempty,max=500"`
	SenderName      *string  `json:"senderName" binding:"omitempty,max=100"`
	SenderPhone     *string  `json:"senderPhone" binding:"omitempty,max=30"`
	SenderAddress   *string  `json:"senderAddress" binding:"omitempty,max=500"`
	CrossBorderFee  *int64   `json:"crossBorderFee" binding:"required,min=0"`
	DomesticFee     *int64   `json:"domesticFee" binding:"omitempty,min=0"`
	CodAmount       *int64   `json:"codAmount" binding:"omitempty,min=0"`
	CustomerID      *int64   `json:"customerId"`
	Photos          []string `json:"photos" binding:"omitempty,max=20,dive,required"`
}

// ==================== 列表 ====================

// ShipmentListRequest 运单列表 / 导出过滤条件
type ShipmentListRequest struct {
	Status     string `form:"status"`
	Direction  string `form:"direction"`
	CodStatus  string `form:"codStatus"`
	CustomerID *int64 `form:"customerId"`
	Search     string `form:"search"`
	DateFrom   string `form:"dateFrom"` // YYYY-MM-DD
	DateTo     string `form:"dateTo"`   // YYYY-MM-DD，包含当天
	Page       int    `form:"page,default=1"`
	Limit      int    `form:"limit,default=20"`
}

// ShipmentListResponse 运单列表响应
type ShipmentListResponse struct {
	Shipments []model.Shipment `json:"shipments"`
	Total     int64            `json:"total"`
	Page      int              `json:"page"`
	Limit     int              `json:"limit"`
}

// ==================== 状态 ====================

// UpdateStatusRequest 记录状态
type UpdateStatusRequest struct {
	Status   string  `json:"status" binding:"required"`
	Location *string `json:"location" binding:"omitempty,max=255"`
	Notes    *string `json:"notes"`
	Force    bool    `json:"force"`
}

// BatchUpdateRequest 批量记录状态
type BatchUpdateRequest struct {
	IDs      []int64 `json:"ids" binding:"required,min=1,max=500"`
	Status   string  `json:"status" binding:"required"`
	Location *string `json:"location" binding:"omitempty,max=255"`
	Notes    *string `json:"notes"`
	Force    bool    `json:"force"`
}

// BatchResult 单个运单的批量结果
type BatchResult struct {
	ID              int64  `json:"id"`
	Success         bool   `json:"success"`
	CompanyTracking string `json:"companyTracking,omitempty"`
	Error           string `json:"error,omitempty"`
}

// BatchUpdateResponse 批量结果汇总
type BatchUpdateResponse struct {
	Updated int           `json:"updated"`
	Failed  int           `json:"failed"`
	Results []BatchResult `json:"results"`
}

// UpdateCodRequest 更新 COD 状态
type UpdateCodRequest struct {
	Status string `json:"status" binding:"required"`
	Force  bool   `json:"force"`
}

// LastMileRequest 末端配送
type LastMileRequest struct {
	Method   string  `json:"method" binding:"required"`
	Location *string `json:"location" binding:"omitempty,max=255"`
	Notes    *string `json:"notes"`
}

// ==================== 公开查询 ====================

// TrackingEvent 公开轨迹节点
type TrackingEvent struct {
	Status    model.ShipmentStatus `json:"status"`
	Location  *string              `json:"location"`
	Notes     *string              `json:"notes"`
	StaffName string               `json:"staffName,omitempty"`
	CreatedAt time.Time            `json:"createdAt"`
}

// TrackingResponse 公开查询结果，不含收件人电话和地址
type TrackingResponse struct {
	CompanyTracking string               `json:"companyTracking"`
	ThaiTracking    *string              `json:"thaiTracking"`
	Direction       model.Direction      `json:"direction"`
	CurrentStatus   model.ShipmentStatus `json:"currentStatus"`
	ReceiverName    string               `json:"receiverName"`
	CrossBorderFee  int64                `json:"crossBorderFee"`
	DomesticFee     *int64               `json:"domesticFee"`
	CodAmount       *int64               `json:"codAmount"`
	CodStatus       model.CodStatus      `json:"codStatus"`
	Total           int64                `json:"total"`
	Events          []TrackingEvent      `json:"events"`
	Photos          []string             `json:"photos"`
	CreatedAt       time.Time            `json:"createdAt"`
}

// ==================== 照片 ====================

// ImportPhotoRequest 通过远程 URL 添加照片
type ImportPhotoRequest struct {
	URL   string  `json:"url" binding:"required,url"`
	Type  string  `json:"type"`
	Notes *string `json:"notes" binding:"omitempty,max=500"`
}

// UploadResponse 上传结果
type UploadResponse struct {
	URL string `json:"url"`
}
