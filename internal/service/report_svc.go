package service

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/now"

	"thailao_logistics/internal/api/dto"
	"thailao_logistics/internal/model"
	"thailao_logistics/internal/repository"
)

const (
	defaultReportDays = 7
	maxReportDays     = 90
	pendingCodLimit   = 50
	exportBatchSize   = 500
)

// ReportService 报表、看板与导出
type ReportService struct {
	reports   repository.ReportRepository
	shipments repository.ShipmentRepository
	now       func() time.Time
}

// NewReportService 创建报表服务
func NewReportService(reports repository.ReportRepository, shipments repository.ShipmentRepository) *ReportService {
	return &ReportService{
		reports:   reports,
		shipments: shipments,
		now:       time.Now,
	}
}

// WithClock 替换时钟（测试用）
func (s *ReportService) WithClock(clock func() time.Time) *ReportService {
	s.now = clock
	return s
}

// ==================== 日报 ====================

// Daily 最近 days 天（含今天）按天汇总
func (s *ReportService) Daily(ctx context.Context, days int) (*dto.DailyReportResponse, error) {
	if days == 0 {
		days = defaultReportDays
	}
	if days < 1 || days > maxReportDays {
		return nil, InvalidArgument("days must be between 1 and %d", maxReportDays)
	}

	today := now.With(s.now()).BeginningOfDay()
	from := today.AddDate(0, 0, -(days - 1))
	to := today.AddDate(0, 0, 1)

	rows, err := s.reports.ShipmentsCreatedBetween(ctx, from, to)
	if err != nil {
		return nil, Internal("查询日报失败", err)
	}

	resp := &dto.DailyReportResponse{
		Period: dto.ReportPeriod{
			From: from.Format(time.DateOnly),
			To:   today.Format(time.DateOnly),
			Days: days,
		},
		Days: make([]dto.DailyRow, days),
	}
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		date := from.AddDate(0, 0, i).Format(time.DateOnly)
		resp.Days[i] = dto.DailyRow{Date: date}
		index[date] = i
	}

	for _, row := range rows {
		i, ok := index[row.CreatedAt.In(today.Location()).Format(time.DateOnly)]
		if !ok {
			continue
		}
		day := &resp.Days[i]
		revenue := row.CrossBorderFee + derefInt64(row.DomesticFee)
		cod := derefInt64(row.CodAmount)

		day.Count++
		day.Revenue += revenue
		day.CodAmount += cod
		if row.Direction == model.DirectionTHToLA {
			day.THToLA++
		} else {
			day.LAToTH++
		}
	}

	for _, day := range resp.Days {
		resp.Totals.Count += day.Count
		resp.Totals.THToLA += day.THToLA
		resp.Totals.LAToTH += day.LAToTH
		resp.Totals.Revenue += day.Revenue
		resp.Totals.CodAmount += day.CodAmount
	}
	return resp, nil
}

// ==================== COD ====================

// Cod COD 汇总与待收款列表
func (s *ReportService) Cod(ctx context.Context) (*dto.CodReportResponse, error) {
	summary, err := s.codSummary(ctx)
	if err != nil {
		return nil, err
	}

	pending, err := s.reports.PendingCod(ctx, pendingCodLimit)
	if err != nil {
		return nil, Internal("查询待收款运单失败", err)
	}
	if pending == nil {
		pending = []model.Shipment{}
	}

	return &dto.CodReportResponse{Summary: *summary, PendingList: pending}, nil
}

func (s *ReportService) codSummary(ctx context.Context) (*dto.CodSummary, error) {
	rows, err := s.reports.CodSummary(ctx)
	if err != nil {
		return nil, Internal("查询 COD 汇总失败", err)
	}

	summary := &dto.CodSummary{}
	for _, row := range rows {
		bucket := dto.CodBucket{Count: row.Count, Amount: row.Amount}
		switch row.CodStatus {
		case model.CodPending:
			summary.Pending = bucket
		case model.CodCollected:
			summary.Collected = bucket
		case model.CodRemitted:
			summary.Transferred = bucket
		}
	}
	return summary, nil
}

// ==================== 看板 ====================

// DashboardStats 首页统计
func (s *ReportService) DashboardStats(ctx context.Context) (*dto.DashboardStats, error) {
	var (
		stats dto.DashboardStats
		err   error
	)
	today := now.With(s.now()).BeginningOfDay()

	if stats.TodayShipments, err = s.reports.CountCreatedSince(ctx, today); err != nil {
		return nil, Internal("统计今日运单失败", err)
	}
	if stats.PendingCOD, err = s.reports.CountByCodStatus(ctx, model.CodPending); err != nil {
		return nil, Internal("统计待收 COD 失败", err)
	}
	if stats.AtLaosHub, err = s.reports.CountByStatus(ctx, model.StatusArrivedAtHub); err != nil {
		return nil, Internal("统计运单状态失败", err)
	}
	if stats.InTransit, err = s.reports.CountByStatus(ctx, model.StatusInTransit); err != nil {
		return nil, Internal("统计运单状态失败", err)
	}
	if stats.Delivered, err = s.reports.CountByStatus(ctx, model.StatusDelivered); err != nil {
		return nil, Internal("统计运单状态失败", err)
	}
	return &stats, nil
}

// FinancialStats 本月财务统计
// 未结清 COD = 待收 + 已收未转
func (s *ReportService) FinancialStats(ctx context.Context) (*dto.FinancialStats, error) {
	var (
		stats dto.FinancialStats
		err   error
	)
	monthStart := now.With(s.now()).BeginningOfMonth()

	if stats.MonthlyShipments, err = s.reports.CountCreatedSince(ctx, monthStart); err != nil {
		return nil, Internal("统计本月运单失败", err)
	}
	if stats.MonthlyDelivered, err = s.reports.CountStatusEventsSince(ctx, model.StatusDelivered, monthStart); err != nil {
		return nil, Internal("统计本月签收失败", err)
	}
	if stats.MonthlyRevenue, err = s.reports.SumRevenueSince(ctx, monthStart); err != nil {
		return nil, Internal("统计本月收入失败", err)
	}

	summary, err := s.codSummary(ctx)
	if err != nil {
		return nil, err
	}
	stats.PendingCODCount = summary.Pending.Count
	stats.TotalCODCollected = summary.Collected.Amount
	stats.TotalCODRemitted = summary.Transferred.Amount
	stats.OutstandingCOD = summary.Pending.Amount + summary.Collected.Amount
	return &stats, nil
}

// ==================== 导出 ====================

var exportHeader = []string{
	"Company Tracking", "Thai Tracking", "Direction", "Status", "Parcel Type", "Weight (kg)",
	"Receiver Name", "Receiver Phone", "Receiver Address", "Customer Code",
	"Cross-border Fee", "Domestic Fee", "Total", "COD Amount", "COD Status", "Last Mile", "Created At",
}

// ExportCSV 按列表过滤条件分批写出 CSV
func (s *ReportService) ExportCSV(ctx context.Context, req *dto.ShipmentListRequest, w io.Writer) error {
	filter, err := ParseShipmentFilter(req)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return Internal("写出 CSV 失败", err)
	}

	err = s.shipments.Each(ctx, filter, exportBatchSize, func(batch []model.Shipment) error {
		for i := range batch {
			if err := cw.Write(exportRecord(&batch[i])); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return Internal("导出运单失败", err)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return Internal("写出 CSV 失败", err)
	}
	return nil
}

func exportRecord(sh *model.Shipment) []string {
	customerCode := ""
	if sh.Customer != nil {
		customerCode = sh.Customer.Code
	}
	codAmount := ""
	if sh.CodAmount != nil {
		codAmount = strconv.FormatInt(*sh.CodAmount, 10)
	}
	domesticFee := ""
	if sh.DomesticFee != nil {
		domesticFee = strconv.FormatInt(*sh.DomesticFee, 10)
	}
	lastMile := ""
	if sh.LastMileMethod != nil {
		lastMile = string(*sh.LastMileMethod)
	}

	return []string{
		sh.CompanyTracking,
		csvSafe(derefString(sh.ThaiTracking)),
		string(sh.Direction),
		string(sh.CurrentStatus),
		string(sh.ParcelType),
		strconv.FormatFloat(sh.Weight, 'f', -1, 64),
		csvSafe(sh.ReceiverName),
		csvSafe(sh.ReceiverPhone),
		csvSafe(derefString(sh.ReceiverAddress)),
		customerCode,
		strconv.FormatInt(sh.CrossBorderFee, 10),
		domesticFee,
		strconv.FormatInt(sh.TotalFee(), 10),
		codAmount,
		string(sh.CodStatus),
		lastMile,
		sh.CreatedAt.Format(time.RFC3339),
	}
}

// csvSafe 以公式字符开头的文本前加单引号，避免表格软件当作公式执行
func csvSafe(v string) string {
	if v != "" && strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return "'" + v
	}
	return v
}

func derefInt64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
