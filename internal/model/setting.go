package model

import "time"

// DefaultSettingID 单例配置行主键
const DefaultSettingID = "default"

// Setting 系统配置（单例）
type Setting struct {
	ID                    string    `gorm:"primaryKey;size:32" json:"id"`
	DefaultCrossBorderFee int64     `gorm:"not null" json:"defaultCrossBorderFee"`
	DefaultDomesticFee    int64     `gorm:"not null" json:"defaultDomesticFee"`
	TrackingPrefixTH      string    `gorm:"size:8;not null" json:"trackingPrefixTH"`
	TrackingPrefixLA      string    `gorm:"size:8;not null" json:"trackingPrefixLA"`
	CompanyName           string    `gorm:"size:200" json:"companyName"`
	CompanyPhone          string    `gorm:"size:50" json:"companyPhone"`
	CompanyAddress        string    `gorm:"size:500" json:"companyAddress"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

func (*Setting) TableName() string {
	return "settings"
}

// DefaultSetting 首次读取时写入的默认值
func DefaultSetting() *Setting {
	return &Setting{
		ID:                    DefaultSettingID,
		DefaultCrossBorderFee: 50000,
		DefaultDomesticFee:    20000,
		TrackingPrefixTH:      "TH",
		TrackingPrefixLA:      "LA",
		CompanyName:           "Thai-Lao Logistics",
	}
}
