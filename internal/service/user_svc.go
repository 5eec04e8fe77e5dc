package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"thailao_logistics/internal/api/dto"
	"thailao_logistics/internal/model"
	"thailao_logistics/internal/repository"
	"thailao_logistics/pkg/database"
	"thailao_logistics/pkg/logger"
	"thailao_logistics/pkg/utils"
)

// TokenIssuer 签发登录 Token
type TokenIssuer interface {
	GenerateToken(userID int64, username string, role model.UserRole) (string, time.Time, error)
}

// ==================== UserService 用户服务 ====================

// UserService 用户服务
type UserService struct {
	userRepo repository.UserRepository
	tokens   TokenIssuer
}

// NewUserService 创建用户服务
func NewUserService(userRepo repository.UserRepository, tokens TokenIssuer) *UserService {
	return &UserService{userRepo: userRepo, tokens: tokens}
}

// ==================== 认证相关 ====================

// Login 用户登录
// 历史明文密码登录成功后升级为 bcrypt
func (s *UserService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		return nil, Internal("查询用户失败", err)
	}
	if user == nil || !checkPassword(user, req.Password) {
		return nil, ErrInvalidCredentials
	}

	if user.HasLegacyPassword() {
		s.upgradeLegacyPassword(ctx, user, req.Password)
	}

	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, Internal("生成 Token 失败", err)
	}

	return &dto.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      toUserInfo(user),
	}, nil
}

func checkPassword(user *model.User, password string) bool {
	if user.HasLegacyPassword() {
		return user.Password == password
	}
	return bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) == nil
}

func (s *UserService) upgradeLegacyPassword(ctx context.Context, user *model.User, password string) {
	hashed, err := hashPassword(password)
	if err == nil {
		err = s.userRepo.UpdatePassword(ctx, user.ID, hashed)
	}
	if err != nil {
		logger.L().Warn("旧密码升级失败", zap.Int64("user_id", user.ID), zap.Error(err))
		return
	}
	user.Password = hashed
	logger.L().Info("旧密码已升级为 bcrypt", zap.Int64("user_id", user.ID))
}

// hashPassword bcrypt 只接受 72 字节以内的密码
func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Me 当前用户，账号已删除视为未登录
func (s *UserService) Me(ctx context.Context, userID int64) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, Internal("查询用户失败", err)
	}
	if user == nil {
		return nil, ErrUnauthenticated
	}
	return toUserInfo(user), nil
}

// ChangePassword 修改密码
// 本人需校验当前密码；ADMIN 可直接重置他人密码
func (s *UserService) ChangePassword(ctx context.Context, actorID int64, actorRole model.UserRole, targetID int64, req *dto.ChangePasswordRequest) error {
	self := actorID == targetID
	if !self && actorRole != model.RoleAdmin {
		return ErrPasswordForbidden
	}

	user, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return Internal("查询用户失败", err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	if self && !checkPassword(user, req.CurrentPassword) {
		return ErrInvalidOldPassword
	}

	hashed, err := hashPassword(req.NewPassword)
	if err != nil {
		return wrapInternal("密码加密失败", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, targetID, hashed); err != nil {
		return Internal("更新密码失败", err)
	}

	logger.L().Info("密码已修改",
		zap.Int64("actor_id", actorID),
		zap.Int64("user_id", targetID),
		zap.Bool("reset_by_admin", !self),
	)
	return nil
}

// ==================== 用户管理 ====================

// CreateUser 创建用户，角色默认 STAFF，只有 ADMIN 能创建 ADMIN
func (s *UserService) CreateUser(ctx context.Context, actorRole model.UserRole, req *dto.CreateUserRequest) (*dto.UserInfo, error) {
	role := model.RoleStaff
	if req.Role != "" {
		parsed, ok := model.ParseUserRole(req.Role)
		if !ok {
			return nil, InvalidArgument("Invalid role: %s", req.Role)
		}
		role = parsed
	}
	if role == model.RoleAdmin && actorRole != model.RoleAdmin {
		return nil, ErrAdminRoleRequired
	}

	username := strings.TrimSpace(req.Username)
	fullName := strings.TrimSpace(req.FullName)
	if username == "" || fullName == "" {
		return nil, InvalidArgument("Username and full name are required")
	}

	exists, err := s.userRepo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, Internal("查询用户失败", err)
	}
	if exists {
		return nil, ErrUsernameExists
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return nil, wrapInternal("密码加密失败", err)
	}

	user := &model.User{
		Username: username,
		Password: hashed,
		FullName: fullName,
		Role:     role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrUsernameExists
		}
		return nil, Internal("创建用户失败", err)
	}

	return toUserInfo(user), nil
}

// UpdateUser 修改姓名 / 角色，授予或撤销 ADMIN 需要 ADMIN
func (s *UserService) UpdateUser(ctx context.Context, actorRole model.UserRole, userID int64, req *dto.UpdateUserRequest) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, Internal("查询用户失败", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, InvalidArgument("Full name cannot be empty")
		}
		user.FullName = name
	}

	if req.Role != nil {
		role, ok := model.ParseUserRole(*req.Role)
		if !ok {
			return nil, InvalidArgument("Invalid role: %s", *req.Role)
		}
		touchesAdmin := role == model.RoleAdmin || user.Role == model.RoleAdmin
		if role != user.Role && touchesAdmin && actorRole != model.RoleAdmin {
			return nil, ErrAdminRoleRequired
		}
		user.Role = role
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, Internal("更新用户失败", err)
	}
	return toUserInfo(user), nil
}

// DeleteUser 删除用户，不能删除自己
func (s *UserService) DeleteUser(ctx context.Context, actorID, userID int64) error {
	if actorID == userID {
		return ErrCannotDeleteSelf
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return Internal("查询用户失败", err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return Internal("删除用户失败", err)
	}
	logger.L().Info("用户已删除", zap.Int64("actor_id", actorID), zap.String("username", user.Username))
	return nil
}

// ListUsers 用户列表
func (s *UserService) ListUsers(ctx context.Context, req *dto.UserListRequest) (*dto.UserListResponse, error) {
	filter := repository.UserFilter{
		Keyword:  strings.TrimSpace(req.Search),
		Page:     req.Page,
		PageSize: req.Limit,
	}
	if req.Role != "" {
		role, ok := model.ParseUserRole(req.Role)
		if !ok {
			return nil, InvalidArgument("Invalid role: %s", req.Role)
		}
		filter.Role = role
	}

	users, total, err := s.userRepo.List(ctx, filter)
	if err != nil {
		return nil, Internal("查询用户列表失败", err)
	}

	list := make([]*dto.UserInfo, len(users))
	for i := range users {
		list[i] = toUserInfo(&users[i])
	}

	page, limit := repository.NormalizePage(req.Page, req.Limit)
	return &dto.UserListResponse{
		Users: list,
		Total: total,
		Page:  page,
		Limit: limit,
	}, nil
}

// GetUser 用户详情
func (s *UserService) GetUser(ctx context.Context, userID int64) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, Internal("查询用户失败", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return toUserInfo(user), nil
}

// ==================== 初始化管理员 ====================

// BootstrapAdmin 首个管理员配置
type BootstrapAdmin struct {
	Username string
	Password string
	FullName string
}

// EnsureBootstrapAdmin 用户表为空时创建管理员
// 未配置密码时随机生成，仅在日志中出现一次
func (s *UserService) EnsureBootstrapAdmin(ctx context.Context, cfg BootstrapAdmin) (bool, error) {
	count, err := s.userRepo.Count(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	if cfg.Username == "" {
		cfg.Username = "admin"
	}
	if cfg.FullName == "" {
		cfg.FullName = "Administrator"
	}
	generated := cfg.Password == ""
	if generated {
		cfg.Password, err = utils.GenerateRandomString(16)
		if err != nil {
			return false, err
		}
	}

	hashed, err := hashPassword(cfg.Password)
	if err != nil {
		return false, err
	}
	admin := &model.User{
		Username: cfg.Username,
		Password: hashed,
		FullName: cfg.FullName,
		Role:     model.RoleAdmin,
	}
	if err := s.userRepo.Create(ctx, admin); err != nil {
		// 多实例同时启动
		if database.IsUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}

	if generated {
		logger.L().Warn("已创建初始管理员，请登录后立即修改密码",
			zap.String("username", cfg.Username),
			zap.String("password", cfg.Password),
		)
	} else {
		logger.L().Info("已创建初始管理员", zap.String("username", cfg.Username))
	}
	return true, nil
}

// ==================== 辅助方法 ====================

func toUserInfo(user *model.User) *dto.UserInfo {
	return &dto.UserInfo{
		ID:        user.ID,
		Username:  user.Username,
		FullName:  user.FullName,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
