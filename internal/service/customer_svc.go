package service

import (
	"context"
	"errors"
	"strings"

	"thailao_logistics/internal/api/dto"
	"thailao_logistics/internal/model"
	"thailao_logistics/internal/repository"
)

// 客户详情附带的最近运单数
const customerRecentShipments = 20

// CustomerService 会员客户
type CustomerService struct {
	customers repository.CustomerRepository
}

// NewCustomerService 创建客户服务
func NewCustomerService(customers repository.CustomerRepository) *CustomerService {
	return &CustomerService{customers: customers}
}

// Create 创建客户并分配 TLL-XXXX 编号
func (s *CustomerService) Create(ctx context.Context, actorID int64, req *dto.CustomerRequest) (*model.Customer, error) {
	name, phone := strings.TrimSpace(req.Name), strings.TrimSpace(req.Phone)
	if name == "" || phone == "" {
		return nil, InvalidArgument("Name and phone are required")
	}

	var customer *model.Customer
	err := retryOnUniqueViolation(ctx, "customer", ErrCustomerCodeExhausted, func(attempt int) error {
		count, err := s.customers.Count(ctx)
		if err != nil {
			return err
		}
		seq, err := sequenceFor(attempt, count, func() (int64, error) {
			return s.customers.MaxCodeSequence(ctx, customerCodePrefix)
		})
		if err != nil {
			return err
		}
		customer = &model.Customer{
			Code:           FormatCustomerCode(seq),
			Name:           name,
			Phone:          phone,
			LineID:         trimOptional(req.LineID),
			DefaultAddress: trimOptional(req.DefaultAddress),
		}
		customer.CreatedBy = actorID
		customer.UpdatedBy = actorID
		return s.customers.Create(ctx, customer)
	})
	if err != nil {
		return nil, wrapInternal("创建客户失败", err)
	}
	return customer, nil
}

// Get 客户详情，附最近运单
func (s *CustomerService) Get(ctx context.Context, id int64) (*model.Customer, error) {
	customer, err := s.customers.GetByIDWithShipments(ctx, id, customerRecentShipments)
	if err != nil {
		return nil, Internal("查询客户失败", err)
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}
	return customer, nil
}

// GetByCode 按会员编号查找（大小写不敏感）
func (s *CustomerService) GetByCode(ctx context.Context, code string) (*model.Customer, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, InvalidArgument("Customer code is required")
	}
	customer, err := s.customers.GetByCode(ctx, code)
	if err != nil {
		return nil, Internal("查询客户失败", err)
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}
	return customer, nil
}

// Update 编号与积分不可修改
func (s *CustomerService) Update(ctx context.Context, actorID, id int64, req *dto.CustomerRequest) (*model.Customer, error) {
	customer, err := s.customers.GetByID(ctx, id)
	if err != nil {
		return nil, Internal("查询客户失败", err)
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}

	name, phone := strings.TrimSpace(req.Name), strings.TrimSpace(req.Phone)
	if name == "" || phone == "" {
		return nil, InvalidArgument("Name and phone are required")
	}
	customer.Name = name
	customer.Phone = phone
	customer.LineID = trimOptional(req.LineID)
	customer.DefaultAddress = trimOptional(req.DefaultAddress)
	customer.UpdatedBy = actorID

	if err := s.customers.Update(ctx, customer); err != nil {
		return nil, Internal("更新客户失败", err)
	}
	return customer, nil
}

// Delete 物理删除，关联运单保留
func (s *CustomerService) Delete(ctx context.Context, id int64) error {
	customer, err := s.customers.GetByID(ctx, id)
	if err != nil {
		return Internal("查询客户失败", err)
	}
	if customer == nil {
		return ErrCustomerNotFound
	}
	if err := s.customers.Delete(ctx, id); err != nil {
		return Internal("删除客户失败", err)
	}
	return nil
}

// List 客户列表
func (s *CustomerService) List(ctx context.Context, search string) ([]model.Customer, error) {
	customers, err := s.customers.List(ctx, strings.TrimSpace(search))
	if err != nil {
		return nil, Internal("查询客户列表失败", err)
	}
	if customers == nil {
		customers = []model.Customer{}
	}
	return customers, nil
}

// ==================== 辅助 ====================

// trimOptional 去空格，空串视为未提供
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// wrapInternal 业务错误原样返回，其余包装为内部错误
func wrapInternal(msg string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	return Internal(msg, err)
}
