package model

import "strings"

// ==================== User 用户 ====================

// UserRole 系统角色
type UserRole string

const (
	RoleStaff   UserRole = "STAFF"
	RoleManager UserRole = "MANAGER"
	RoleAdmin   UserRole = "ADMIN"
)

// IsValid 是否合法角色
func (r UserRole) IsValid() bool {
	switch r {
	case RoleStaff, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// ParseUserRole 解析角色（大小写不敏感）
func ParseUserRole(s string) (UserRole, bool) {
	r := UserRole(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.IsValid()
}

// User 员工账号
// 不带审计字段：运单/事件通过 CreatedBy 关联到 User
type User struct {
	BaseModel

	Username string   `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Password string   `gorm:"size:255;not null" json:"-"` // bcrypt，历史数据可能为明文
	FullName string   `gorm:"size:100;not null" json:"fullName"`
	Role     UserRole `gorm:"size:20;not null;default:STAFF" json:"role"`
}

func (*User) TableName() string {
	return "users"
}

// HasLegacyPassword 密码是否为未加密的历史数据
func (u *User) HasLegacyPassword() bool {
	return !strings.HasPrefix(u.Password, "$2")
}
