package dto

import "time"

// ==================== 登录 ====================

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required,max=50"`
	Password string `json:"password" binding:"required,max=100"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *UserInfo `json:"user"`
}

// ==================== 用户信息 ====================

// UserInfo 用户信息（不含密码）
type UserInfo struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"fullName"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ==================== 密码修改 ====================

// ChangePasswordRequest 修改密码请求
// 本人修改必须提供 currentPassword，ADMIN 重置他人密码时可省略
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword" binding:"required,min=6,max=72"`
}

// ==================== 用户管理 ====================

// CreateUserRequest 创建用户请求
type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	FullName string `json:"fullName" binding:"required,max=100"`
	Role     string `json:"role"`
}

// UpdateUserRequest 更新用户请求
type UpdateUserRequest struct {
	FullName *string `json:"fullName" binding:"omitempty,min=1,max=100"`
	Role     *string `json:"role"`
}

// UserListRequest 用户列表请求
type UserListRequest struct {
	Search string `form:"search"`
	Role   string `form:"role"`
	Page   int    `form:"page,default=1"`
	Limit  int    `form:"limit,default=20"`
}

// UserListResponse 用户列表响应
type UserListResponse struct {
	Users []*UserInfo `json:"users"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}
