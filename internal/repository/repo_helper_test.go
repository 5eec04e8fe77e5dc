package repository

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"thailao_logistics/internal/model"
	"thailao_logistics/pkg/database"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitDB(database.Options{
		Driver:   "sqlite",
		DSN:      ":memory:",
		LogLevel: "silent",
	}, model.AllModels()...)
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func int64Ptr(v int64) *int64 { return &v }

func strPtr(s string) *string { return &s }

func seedShipment(t *testing.T, db *gorm.DB, tracking string, mutate func(s *model.Shipment)) *model.Shipment {
	t.Helper()
	s := &model.Shipment{
		CompanyTracking: tracking,
		Direction:       model.DirectionTHToLA,
		CurrentStatus:   model.StatusCreated,
		ParcelType:      model.ParcelParcel,
		Weight:          1.5,
		ReceiverName:    "Somchai",
		ReceiverPhone:   "02012345678",
		CrossBorderFee:  50000,
		CodStatus:       model.CodNone,
	}
	s.CreatedBy = 1
	if mutate != nil {
		mutate(s)
	}
	if err := db.Omit("Customer", "CreatedByUser", "Events", "Photos").Create(s).Error; err != nil {
		t.Fatalf("创建运单失败: %v", err)
	}
	return s
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("时间解析失败: %v", err)
	}
	return v
}
