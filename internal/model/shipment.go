package model

import (
	"strings"
	"time"
)

// ==================== 枚举 ====================

// Direction 运输方向
type Direction string

const (
	DirectionTHToLA Direction = "TH_TO_LA"
	DirectionLAToTH Direction = "LA_TO_TH"
)

func (d Direction) IsValid() bool {
	return d == DirectionTHToLA || d == DirectionLAToTH
}

// ParcelType 包裹类型
type ParcelType string

const (
	ParcelDocument ParcelType = "DOCUMENT"
	ParcelParcel   ParcelType = "PARCEL"
	ParcelPackage  ParcelType = "PACKAGE"
	ParcelFragile  ParcelType = "FRAGILE"
)

func (p ParcelType) IsValid() bool {
	switch p {
	case ParcelDocument, ParcelParcel, ParcelPackage, ParcelFragile:
		return true
	}
	return false
}

// LastMileMethod 末端配送方式
type LastMileMethod string

const (
	LastMilePickup   LastMileMethod = "PICKUP"
	LastMileDelivery LastMileMethod = "DELIVERY"
)

func (m LastMileMethod) IsValid() bool {
	return m == LastMilePickup || m == LastMileDelivery
}

// TargetStatus 末端方式对应的状态
func (m LastMileMethod) TargetStatus() ShipmentStatus {
	if m == LastMilePickup {
		return StatusReadyForPickup
	}
	return StatusOutForDelivery
}

// PhotoType 照片类型
type PhotoType string

const (
	PhotoReceived  PhotoType = "RECEIVED"
	PhotoLoading   PhotoType = "LOADING"
	PhotoDelivered PhotoType = "DELIVERED"
	PhotoDamage    PhotoType = "DAMAGE"
	PhotoOther     PhotoType = "OTHER"
)

func (p PhotoType) IsValid() bool {
	switch p {
	case PhotoReceived, PhotoLoading, PhotoDelivered, PhotoDamage, PhotoOther:
		return true
	}
	return false
}

// ParseDirection / ParseParcelType / ParsePhotoType 解析外部输入（大小写不敏感）
func ParseDirection(s string) (Direction, bool) {
	d := Direction(normalizeEnum(s))
	return d, d.IsValid()
}

func ParseParcelType(s string) (ParcelType, bool) {
	p := ParcelType(normalizeEnum(s))
	return p, p.IsValid()
}

func ParseLastMileMethod(s string) (LastMileMethod, bool) {
	m := LastMileMethod(normalizeEnum(s))
	return m, m.IsValid()
}

func ParsePhotoType(s string) (PhotoType, bool) {
	if strings.TrimSpace(s) == "" {
		return PhotoOther, true
	}
	p := PhotoType(normalizeEnum(s))
	return p, p.IsValid()
}

func normalizeEnum(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ==================== Shipment 运单 ====================

// Shipment 运单
// 金额单位均为 LAK
type Shipment struct {
	BaseModel
	AuditFields

	CompanyTracking string         `gorm:"size:32;uniqueIndex;not null" json:"companyTracking"`
	ThaiTracking    *string        `gorm:"size:64;index" json:"thaiTracking"`
	Direction       Direction      `gorm:"size:16;not null;index" json:"direction"`
	CurrentStatus   ShipmentStatus `gorm:"size:32;not null;index" json:"currentStatus"`
	ParcelType      ParcelType     `gorm:"size:16;not null" json:"parcelType"`
	Weight          float64        `gorm:"not null" json:"weight"`
	Note            *string        `gorm:"type:text" json:"note"`

	// 收件人
	ReceiverName    string  `gorm:"size:100;not null;index" json:"receiverName"`
	ReceiverPhone   string  `gorm:"size:30;not null;index" json:"receiverPhone"`
	ReceiverAddress *string `gorm:"size:500" json:"receiverAddress"`

	// 寄件人（仅 LA_TO_TH）
	SenderName    *string `gorm:"size:100" json:"senderName"`
	SenderPhone   *string `gorm:"size:30" json:"senderPhone"`
	SenderAddress *string `gorm:"size:500" json:"senderAddress"`

	// 费用
	CrossBorderFee int64     `gorm:"not null" json:"crossBorderFee"`
	DomesticFee    *int64    `json:"domesticFee"`
	CodAmount      *int64    `json:"codAmount"`
	CodStatus      CodStatus `gorm:"size:16;not null;default:NONE;index" json:"codStatus"`

	LastMileMethod *LastMileMethod `gorm:"size:16" json:"lastMileMethod"`

	CustomerID *int64 `gorm:"index" json:"customerId"`

	// 关联
	Customer      *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	CreatedByUser *User           `gorm:"foreignKey:CreatedBy" json:"createdBy,omitempty"`
	Events        []ShipmentEvent `gorm:"foreignKey:ShipmentID" json:"events,omitempty"`
	Photos        []ShipmentPhoto `gorm:"foreignKey:ShipmentID" json:"photos,omitempty"`
}

func (*Shipment) TableName() string {
	return "shipments"
}

// TotalFee 运费合计（跨境 + 国内）
func (s *Shipment) TotalFee() int64 {
	total := s.CrossBorderFee
	if s.DomesticFee != nil {
		total += *s.DomesticFee
	}
	return total
}

// HasCOD 是否代收货款
func (s *Shipment) HasCOD() bool {
	return s.CodAmount != nil && *s.CodAmount > 0
}

// ==================== ShipmentEvent 状态事件 ====================

// ShipmentEvent 运单状态事件，只追加
type ShipmentEvent struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ShipmentID int64          `gorm:"not null;index:idx_event_shipment_time,priority:1" json:"shipmentId"`
	Status     ShipmentStatus `gorm:"size:32;not null" json:"status"`
	Location   *string        `gorm:"size:255" json:"location"`
	Notes      *string        `gorm:"type:text" json:"notes"`
	CreatedBy  int64          `gorm:"index;not null" json:"createdById"`
	CreatedAt  time.Time      `gorm:"not null;index:idx_event_shipment_time,priority:2" json:"createdAt"`

	Staff *User `gorm:"foreignKey:CreatedBy" json:"createdBy,omitempty"`
}

func (*ShipmentEvent) TableName() string {
	return "shipment_events"
}

// ==================== ShipmentPhoto 照片 ====================

// ShipmentPhoto 运单照片
type ShipmentPhoto struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ShipmentID int64     `gorm:"not null;index" json:"shipmentId"`
	URL        string    `gorm:"size:1000;not null" json:"url"`
	Type       PhotoType `gorm:"size:16" json:"type"`
	Notes      *string   `gorm:"size:500" json:"notes"`
	CreatedBy  int64     `gorm:"index" json:"createdById,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (*ShipmentPhoto) TableName() string {
	return "shipment_photos"
}
