package dto

import "thailao_logistics/internal/model"

// ==================== 日报 ====================

// ReportPeriod 报表区间
type ReportPeriod struct {
	From string `json:"from"`
	To   string `json:"to"`
	Days int    `json:"days"`
}

// DailyRow 单日汇总
type DailyRow struct {
	Date      string `json:"date"`
	Count     int    `json:"count"`
	THToLA    int    `json:"thToLa"`
	LAToTH    int    `json:"laToTh"`
	Revenue   int64  `json:"revenue"`
	CodAmount int64  `json:"codAmount"`
}

// DailyTotals 区间合计
type DailyTotals struct {
	Count     int   `json:"count"`
	THToLA    int   `json:"thToLa"`
	LAToTH    int   `json:"laToTh"`
	Revenue   int64 `json:"revenue"`
	CodAmount int64 `json:"codAmount"`
}

// DailyReportResponse 日报
type DailyReportResponse struct {
	Period ReportPeriod `json:"period"`
	Days   []DailyRow   `json:"days"`
	Totals DailyTotals  `json:"totals"`
}

// ==================== COD ====================

// CodBucket 某一 COD 状态的数量与金额
type CodBucket struct {
	Count  int64 `json:"count"`
	Amount int64 `json:"amount"`
}

// CodSummary COD 汇总
type CodSummary struct {
	Pending     CodBucket `json:"pending"`
	Collected   CodBucket `json:"collected"`
	Transferred CodBucket `json:"transferred"`
}

// CodReportResponse COD 报表
type CodReportResponse struct {
	Summary     CodSummary       `json:"summary"`
	PendingList []model.Shipment `json:"pendingList"`
}

// ==================== 看板 ====================

// DashboardStats 首页统计
type DashboardStats struct {
	TodayShipments int64 `json:"todayShipments"`
	PendingCOD     int64 `json:"pendingCOD"`
	AtLaosHub      int64 `json:"atLaosHub"`
	InTransit      int64 `json:"inTransit"`
	Delivered      int64 `json:"delivered"`
}

// FinancialStats 财务统计（本月）
type FinancialStats struct {
	MonthlyShipments  int64 `json:"monthlyShipments"`
	MonthlyDelivered  int64 `json:"monthlyDelivered"`
	MonthlyRevenue    int64 `json:"monthlyRevenue"`
	PendingCODCount   int64 `json:"pendingCODCount"`
	TotalCODCollected int64 `json:"totalCODCollected"`
	TotalCODRemitted  int64 `json:"totalCODRemitted"`
	OutstandingCOD    int64 `json:"outstandingCOD"`
}
