package model

// Customer 会员客户
// Code 创建时分配，之后不可修改
type Customer struct {
	BaseModel
	AuditFields

	Code           string  `gorm:"size:20;uniqueIndex;not null" json:"code"`
	Name           string  `gorm:"size:100;not null;index" json:"name"`
	Phone          string  `gorm:"size:30;not null;index" json:"phone"`
	LineID         *string `gorm:"size:100" json:"lineId"`
	DefaultAddress *string `gorm:"size:500" json:"defaultAddress"`
	Points         int     `gorm:"not null;default:0" json:"points"`

	Shipments []Shipment `gorm:"foreignKey:CustomerID" json:"shipments,omitempty"`
}

func (*Customer) TableName() string {
	return "customers"
}
