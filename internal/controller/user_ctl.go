package controller

import (
	"github.com/gin-gonic/gin"

	"thailao_logistics/internal/api/dto"
	"thailao_logistics/internal/middleware"
	"thailao_logistics/internal/service"
)

// ==================== UserController 用户管理 ====================

// UserController 用户管理
type UserController struct {
	userService *service.UserService
}

// NewUserController 创建用户控制器
func NewUserController(userService *service.UserService) *UserController {
	return &UserController{userService: userService}
}

// List 用户列表
// @Summary 用户列表
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param search query string false "用户名 / 姓名"
// @Param role query string false "STAFF | MANAGER | ADMIN"
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} dto.UserListResponse
// @Failure 403 {object} ErrorResponse
// @Router /users [get]
func (ctl *UserController) List(c *gin.Context) {
	var req dto.UserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := ctl.userService.ListUsers(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, resp)
}

// Create 创建用户
// @Summary 创建用户
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateUserRequest true "用户信息"
// @Success 200 {object} dto.UserInfo
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /users [post]
func (ctl *UserController) Create(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	info, err := ctl.userService.CreateUser(c.Request.Context(), middleware.GetUserRole(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, info)
}

// Get 用户详情
// @Summary 用户详情
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Success 200 {object} dto.UserInfo
// @Failure 404 {object} ErrorResponse
// @Router /users/{id} [get]
func (ctl *UserController) Get(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}

	info, err := ctl.userService.GetUser(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, info)
}

// Update 修改姓名 / 角色
// @Summary 修改用户
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Param request body dto.UpdateUserRequest true "修改内容"
// @Success 200 {object} dto.UserInfo
// @Failure 403 {object} ErrorResponse
// @Router /users/{id} [patch]
func (ctl *UserController) Update(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}
	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	info, err := ctl.userService.UpdateUser(c.Request.Context(), middleware.GetUserRole(c), id, &req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, info)
}

// Delete 删除用户
// @Summary 删除用户
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Router /users/{id} [delete]
func (ctl *UserController) Delete(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}

	if err := ctl.userService.DeleteUser(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "User deleted")
}

// ChangePassword 修改密码
// @Summary 修改密码
// @Description 本人需提供当前密码；ADMIN 可重置任意用户
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Param request body dto.ChangePasswordRequest true "密码"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} ErrorResponse
// @Router /users/{id}/password [patch]
func (ctl *UserController) ChangePassword(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}
	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	err := ctl.userService.ChangePassword(c.Request.Context(), middleware.GetUserID(c), middleware.GetUserRole(c), id, &req)
	if err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "Password changed")
}
