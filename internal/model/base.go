package model

import (
	"time"
)

type BaseModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AuditFields 审计字段，由 GORM 回调按请求上下文填充
type AuditFields struct {
	CreatedBy int64 `gorm:"index;comment:创建人ID" json:"createdById"`
	UpdatedBy int64 `gorm:"comment:更新人ID" json:"updatedById,omitempty"`
}

// AllModels 需要自动建表的模型
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Customer{},
		&Shipment{},
		&ShipmentEvent{},
		&ShipmentPhoto{},
		&Setting{},
	}
}
