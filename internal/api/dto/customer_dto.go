package dto

// CustomerRequest 创建 / 更新客户
type CustomerRequest struct {
	Name           string  `json:"name" binding:"required,max=100"`
	Phone          string  `json:"phone" binding:"required,max=30"`
	LineID         *string `json:"lineId" binding:"omitempty,max=100"`
	DefaultAddress *string `json:"defaultAddress" binding:"omitempty,max=500"`
}
