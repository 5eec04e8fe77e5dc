package service

import (
	"errors"
	"fmt"
)

// ==================== 错误分类 ====================

// ErrorKind 错误类别，控制器据此映射 HTTP 状态码
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindInvalidArgument
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindTooManyRequests
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindUnauthorized:
		return "Unauthorized"
	case KindForbidden:
		return "Forbidden"
	case KindNotFound:
		return "NotFound"
	case KindConflict:
		return "Conflict"
	case KindTooManyRequests:
		return "TooManyRequests"
	}
	return "Internal"
}

// AppError 业务错误
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 同类别同消息视为相同错误，便于 errors.Is 比较包装后的哨兵
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

func newError(kind ErrorKind, msg string) *AppError {
	return &AppError{Kind: kind, Message: msg}
}

// InvalidArgument 参数错误
func InvalidArgument(format string, args ...interface{}) *AppError {
	return newError(KindInvalidArgument, fmt.Sprintf(format, args...))
}

// NotFound 资源不存在
func NotFound(format string, args ...interface{}) *AppError {
	return newError(KindNotFound, fmt.Sprintf(format, args...))
}

// Forbidden 权限不足
func Forbidden(format string, args ...interface{}) *AppError {
	return newError(KindForbidden, fmt.Sprintf(format, args...))
}

// Internal 包装内部错误
func Internal(msg string, err error) *AppError {
	return &AppError{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf 取错误类别，非 AppError 一律视为内部错误
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// ==================== 哨兵错误 ====================

var (
	// 认证 / 用户
	ErrInvalidCredentials = newError(KindUnauthorized, "Invalid username or password")
	ErrUnauthenticated    = newError(KindUnauthorized, "Unauthorized")
	ErrUserNotFound       = newError(KindNotFound, "User not found")
	ErrUsernameExists     = newError(KindInvalidArgument, "Username already exists")
	ErrInvalidOldPassword = newError(KindInvalidArgument, "Current password is incorrect")
	ErrCannotDeleteSelf   = newError(KindInvalidArgument, "Cannot delete your own account")
	ErrAdminRoleRequired  = newError(KindForbidden, "Only ADMIN can grant or revoke ADMIN role")
	ErrPasswordForbidden  = newError(KindForbidden, "Cannot change another user's password")
	ErrPasswordTooLong    = newError(KindInvalidArgument, "Password must be at most 72 bytes")

	// 客户
	ErrCustomerNotFound      = newError(KindNotFound, "Customer not found")
	ErrCustomerCodeExhausted = newError(KindConflict, "Could not allocate a unique customer code")

	// 运单
	ErrShipmentNotFound     = newError(KindNotFound, "Shipment not found")
	ErrIllegalTransition    = newError(KindInvalidArgument, "Illegal status transition")
	ErrIllegalCodTransition = newError(KindInvalidArgument, "Illegal COD status transition")
	ErrForceNotAllowed      = newError(KindForbidden, "Only MANAGER or ADMIN can force a status change")
	ErrNoCod                = newError(KindInvalidArgument, "Shipment has no COD amount")
	ErrTrackingExhausted    = newError(KindConflict, "Could not allocate a unique tracking number")

	// 文件
	ErrFileNotFound = newError(KindNotFound, "File not found")
	ErrFileTooLarge = newError(KindInvalidArgument, "File too large")
)
