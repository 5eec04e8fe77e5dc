package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"thailao_logistics/internal/model"
)

// ==================== CustomerRepository 客户仓库 ====================

// CustomerRepository 客户仓库接口
type CustomerRepository interface {
	Create(ctx context.Context, customer *model.Customer) error
	GetByID(ctx context.Context, id int64) (*model.Customer, error)
	GetByIDWithShipments(ctx context.Context, id int64, limit int) (*model.Customer, error)
	GetByCode(ctx context.Context, code string) (*model.Customer, error)
	Update(ctx context.Context, customer *model.Customer) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, search string) ([]model.Customer, error)
	Count(ctx context.Context) (int64, error)
	MaxCodeSequence(ctx context.Context, prefix string) (int64, error)
}

type customerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository 创建客户仓库
func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Create(ctx context.Context, customer *model.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *customerRepository) GetByID(ctx context.Context, id int64) (*model.Customer, error) {
	var customer model.Customer
	err := r.db.WithContext(ctx).First(&customer, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &customer, err
}

// GetByIDWithShipments 获取客户及最近的运单
func (r *customerRepository) GetByIDWithShipments(ctx context.Context, id int64, limit int) (*model.Customer, error) {
	var customer model.Customer
	err := r.db.WithContext(ctx).
		Preload("Shipments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC").Limit(limit)
		}).
		First(&customer, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &customer, err
}

func (r *customerRepository) GetByCode(ctx context.Context, code string) (*model.Customer, error) {
	var customer model.Customer
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &customer, err
}

// Update 只更新可编辑字段，编号与积分不动
func (r *customerRepository) Update(ctx context.Context, customer *model.Customer) error {
	return r.db.WithContext(ctx).
		Model(customer).
		Select("name", "phone", "line_id", "default_address", "updated_by").
		Updates(customer).Error
}

// Delete 物理删除，并解除运单关联
func (r *customerRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Shipment{}).
			Where("customer_id = ?", id).
			Update("customer_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Customer{}, id).Error
	})
}

// List 按编号升序，search 匹配编号/姓名/电话
func (r *customerRepository) List(ctx context.Context, search string) ([]model.Customer, error) {
	query := r.db.WithContext(ctx).Model(&model.Customer{})
	if search != "" {
		kw := "%" + search + "%"
		query = query.Where("code LIKE ? OR name LIKE ? OR phone LIKE ?", kw, kw, kw)
	}

	var customers []model.Customer
	err := query.Order("code ASC").Find(&customers).Error
	return customers, err
}

func (r *customerRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Customer{}).Count(&count).Error
	return count, err
}

// MaxCodeSequence 现存客户编号的最大序号
func (r *customerRepository) MaxCodeSequence(ctx context.Context, prefix string) (int64, error) {
	return maxSequence(ctx, r.db, &model.Customer{}, "code", prefix)
}
