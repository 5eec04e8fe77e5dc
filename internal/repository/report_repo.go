package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"thailao_logistics/internal/model"
)

// ==================== ReportRepository 报表查询 ====================

// ShipmentFeeRow 日报聚合所需的最小字段
type ShipmentFeeRow struct {
	CreatedAt      time.Time
	Direction      model.Direction
	CrossBorderFee int64
	DomesticFee    *int64
	CodAmount      *int64
}

// CodSummaryRow 按 COD 状态汇总
type CodSummaryRow struct {
	CodStatus model.CodStatus
	Count     int64
	Amount    int64
}

// ReportRepository 报表仓库接口
type ReportRepository interface {
	ShipmentsCreatedBetween(ctx context.Context, from, to time.Time) ([]ShipmentFeeRow, error)
	CodSummary(ctx context.Context) ([]CodSummaryRow, error)
	PendingCod(ctx context.Context, limit int) ([]model.Shipment, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)
	CountByStatus(ctx context.Context, status model.ShipmentStatus) (int64, error)
	CountByCodStatus(ctx context.Context, status model.CodStatus) (int64, error)
	CountStatusEventsSince(ctx context.Context, status model.ShipmentStatus, since time.Time) (int64, error)
	SumRevenueSince(ctx context.Context, since time.Time) (int64, error)
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository 创建报表仓库
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

// ShipmentsCreatedBetween [from, to) 内创建的运单费用
func (r *reportRepository) ShipmentsCreatedBetween(ctx context.Context, from, to time.Time) ([]ShipmentFeeRow, error) {
	var rows []ShipmentFeeRow
	err := r.db.WithContext(ctx).
		Model(&model.Shipment{}).
		Select("created_at, direction, cross_border_fee, domestic_fee, cod_amount").
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at ASC").
		Scan(&rows).Error
	return rows, err
}

// CodSummary 仅统计有 COD 金额的运单
func (r *reportRepository) CodSummary(ctx context.Context) ([]CodSummaryRow, error) {
	var rows []CodSummaryRow
	err := r.db.WithContext(ctx).
		Model(&model.Shipment{}).
		Select("cod_status, COUNT(*) AS count, COALESCE(SUM(cod_amount), 0) AS amount").
		Where("cod_amount > 0").
		Group("cod_status").
		Scan(&rows).Error
	return rows, err
}

// PendingCod 待收款运单，最早的在前
func (r *reportRepository) PendingCod(ctx context.Context, limit int) ([]model.Shipment, error) {
	var shipments []model.Shipment
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Where("cod_status = ? AND cod_amount > 0", model.CodPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&shipments).Error
	return shipments, err
}

func (r *reportRepository) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Shipment{}).
		Where("created_at >= ?", since).
		Count(&count).Error
	return count, err
}

func (r *reportRepository) CountByStatus(ctx context.Context, status model.ShipmentStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Shipment{}).
		Where("current_status = ?", status).
		Count(&count).Error
	return count, err
}

func (r *reportRepository) CountByCodStatus(ctx context.Context, status model.CodStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Shipment{}).
		Where("cod_status = ?", status).
		Count(&count).Error
	return count, err
}

// CountStatusEventsSince 统计期间内进入某状态的运单数
func (r *reportRepository) CountStatusEventsSince(ctx context.Context, status model.ShipmentStatus, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ShipmentEvent{}).
		Where("status = ? AND created_at >= ?", status, since).
		Distinct("shipment_id").
		Count(&count).Error
	return count, err
}

// SumRevenueSince 期间内创建运单的运费合计
func (r *reportRepository) SumRevenueSince(ctx context.Context, since time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Shipment{}).
		Select("COALESCE(SUM(cross_border_fee + COALESCE(domestic_fee, 0)), 0)").
		Where("created_at >= ?", since).
		Scan(&total).Error
	return total, err
}
