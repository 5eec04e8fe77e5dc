package controller

import (
	"github.com/gin-gonic/gin"

	"thailao_logistics/internal/api/dto"
	"thailao_logistics/internal/middleware"
	"thailao_logistics/internal/service"
)

// CustomerController 会员客户
type CustomerController struct {
	customerService *service.CustomerService
}

// NewCustomerController 创建客户控制器
func NewCustomerController(customerService *service.CustomerService) *CustomerController {
	return &CustomerController{customerService: customerService}
}

// List 客户列表
// @Summary 客户列表
// @Tags Customers
// @Produce json
// @Security BearerAuth
// @Param search query string false "编号 / 姓名 / 电话"
// @Success 200 {array} model.Customer
// @Router /customers [get]
func (ctl *CustomerController) List(c *gin.Context) {
	customers, err := ctl.customerService.List(c.Request.Context(), c.Query("search"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, customers)
}

// Get 客户详情
// @Summary 客户详情（含最近运单）
// @Tags Customers
// @Produce json
// @Security BearerAuth
// @Param id path int true "客户ID"
// @Success 200 {object} model.Customer
// @Failure 404 {object} ErrorResponse
// @Router /customers/{id} [get]
func (ctl *CustomerController) Get(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}
	customer, err := ctl.customerService.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, customer)
}

// GetByCode 按会员编号查找
// @Summary 按编号查找客户
// @Tags Customers
// @Produce json
// @Security BearerAuth
// @Param code path string true "TLL-XXXX"
// @Success 200 {object} model.Customer
// @Failure 404 {object} ErrorResponse
// @Router /customers/code/{code} [get]
func (ctl *CustomerController) GetByCode(c *gin.Context) {
	customer, err := ctl.customerService.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, customer)
}

// Create 创建客户
// @Summary 创建客户
// @Tags Customers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CustomerRequest true "客户信息"
// @Success 200 {object} model.Customer
// @Failure 400 {object} ErrorResponse
// @Router /customers [post]
func (ctl *CustomerController) Create(c *gin.Context) {
	var req dto.CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	customer, err := ctl.customerService.Create(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, customer)
}

// Update 修改客户
// @Summary 修改客户
// @Tags Customers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "客户ID"
// @Param request body dto.CustomerRequest true "客户信息"
// @Success 200 {object} model.Customer
// @Router /customers/{id} [put]
func (ctl *CustomerController) Update(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}
	var req dto.CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	customer, err := ctl.customerService.Update(c.Request.Context(), middleware.GetUserID(c), id, &req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, customer)
}

// Delete 删除客户
// @Summary 删除客户
// @Tags Customers
// @Produce json
// @Security BearerAuth
// @Param id path int true "客户ID"
// @Success 200 {object} map[string]interface{}
// @Router /customers/{id} [delete]
func (ctl *CustomerController) Delete(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}
	if err := ctl.customerService.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "Customer deleted")
}
