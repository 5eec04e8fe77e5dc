package dto

// UpdateSettingsRequest 更新系统配置，未提供的字段保持不变
type UpdateSettingsRequest struct {
	DefaultCrossBorderFee *int64  `json:"defaultCrossBorderFee" binding:"omitempty,min=0"`
	DefaultDomesticFee    *int64  `json:"defaultDomesticFee" binding:"omitempty,min=0"`
	TrackingPrefixTH      *string `json:"trackingPrefixTH" binding:"omitempty,min=1,max=8"`
	TrackingPrefixLA      *string `json:"trackingPrefixLA" binding:"omitempty,min=1,max=8"`
	CompanyName           *string `json:"companyName" binding:"omitempty,max=200"`
	CompanyPhone          *string `json:"companyPhone" binding:"omitempty,max=50"`
	CompanyAddress        *string `json:"companyAddress" binding:"omitempty,max=500"`
}
