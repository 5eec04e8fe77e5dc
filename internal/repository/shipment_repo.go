package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"thailao_logistics/internal/model"
)

// ==================== ShipmentFilter 过滤条件 ====================

// ShipmentFilter 运单过滤条件
type ShipmentFilter struct {
	Status     model.ShipmentStatus
	Direction  model.Direction
	CodStatus  model.CodStatus
	CustomerID *int64
	Search     string
	DateFrom   *time.Time
	DateTo     *time.Time // 不含
	Page       int
	PageSize   int
}

// ==================== ShipmentRepository 运单仓库 ====================

// ShipmentRepository 运单仓库接口
type ShipmentRepository interface {
	Create(ctx context.Context, shipment *model.Shipment) error
	GetByID(ctx context.Context, id int64) (*model.Shipment, error)
	GetForUpdate(ctx context.Context, id int64) (*model.Shipment, error)
	GetDetail(ctx context.Context, id int64) (*model.Shipment, error)
	GetByTracking(ctx context.Context, number string) (*model.Shipment, error)
	List(ctx context.Context, filter ShipmentFilter) ([]model.Shipment, int64, error)
	Each(ctx context.Context, filter ShipmentFilter, batchSize int, fn func(batch []model.Shipment) error) error
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
	MaxTrackingSequence(ctx context.Context, prefix string) (int64, error)

	// 事件
	AppendEvent(ctx context.Context, event *model.ShipmentEvent) error
	ListEvents(ctx context.Context, shipmentID int64) ([]model.ShipmentEvent, error)
}

type shipmentRepository struct {
	db *gorm.DB
}

// NewShipmentRepository 创建运单仓库
func NewShipmentRepository(db *gorm.DB) ShipmentRepository {
	return &shipmentRepository{db: db}
}

func (r *shipmentRepository) Create(ctx context.Context, shipment *model.Shipment) error {
	// 关联在各自仓库中写入
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(shipment).Error
}

func (r *shipmentRepository) GetByID(ctx context.Context, id int64) (*model.Shipment, error) {
	var shipment model.Shipment
	err := r.db.WithContext(ctx).First(&shipment, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &shipment, err
}

// GetForUpdate 行锁读取，需在事务内调用（sqlite 忽略锁子句）
func (r *shipmentRepository) GetForUpdate(ctx context.Context, id int64) (*model.Shipment, error) {
	var shipment model.Shipment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&shipment, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &shipment, err
}

// GetDetail 运单详情：事件按时间正序，照片倒序
func (r *shipmentRepository) GetDetail(ctx context.Context, id int64) (*model.Shipment, error) {
	var shipment model.Shipment
	err := r.withDetail(r.db.WithContext(ctx)).First(&shipment, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &shipment, err
}

// GetByTracking 按公司单号或泰国单号查找
func (r *shipmentRepository) GetByTracking(ctx context.Context, number string) (*model.Shipment, error) {
	var shipment model.Shipment
	err := r.withDetail(r.db.WithContext(ctx)).
		Where("company_tracking = ? OR thai_tracking = ?", number, number).
		Order("id DESC").
		First(&shipment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &shipment, err
}

func (r *shipmentRepository) withDetail(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Events", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Preload("Events.Staff").
		Preload("Photos", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC, id DESC")
		}).
		Preload("Customer").
		Preload("CreatedByUser")
}

func (r *shipmentRepository) applyFilter(db *gorm.DB, filter ShipmentFilter) *gorm.DB {
	if filter.Status != "" {
		db = db.Where("current_status = ?", filter.Status)
	}
	if filter.Direction != "" {
		db = db.Where("direction = ?", filter.Direction)
	}
	if filter.CodStatus != "" {
		db = db.Where("cod_status = ?", filter.CodStatus)
	}
	if filter.CustomerID != nil {
		db = db.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Search != "" {
		kw := "%" + filter.Search + "%"
		db = db.Where(
			"company_tracking LIKE ? OR thai_tracking LIKE ? OR receiver_name LIKE ? OR receiver_phone LIKE ?",
			kw, kw, kw, kw,
		)
	}
	if filter.DateFrom != nil {
		db = db.Where("created_at >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		db = db.Where("created_at < ?", *filter.DateTo)
	}
	return db
}

// List 运单列表，最新在前；事件倒序并附带客户
func (r *shipmentRepository) List(ctx context.Context, filter ShipmentFilter) ([]model.Shipment, int64, error) {
	db := r.applyFilter(r.db.WithContext(ctx).Model(&model.Shipment{}), filter)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := NormalizePage(filter.Page, filter.PageSize)

	var shipments []model.Shipment
	err := db.
		Preload("Events", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC, id DESC")
		}).
		Preload("Customer").
		Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&shipments).Error

	return shipments, total, err
}

// Each 分批遍历（导出用）
func (r *shipmentRepository) Each(ctx context.Context, filter ShipmentFilter, batchSize int, fn func(batch []model.Shipment) error) error {
	if batchSize <= 0 {
		batchSize = 500
	}
	var batch []model.Shipment
	result := r.applyFilter(r.db.WithContext(ctx).Model(&model.Shipment{}), filter).
		Preload("Customer").
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			return fn(batch)
		})
	return result.Error
}

func (r *shipmentRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Shipment{}).Where("id = ?", id).Updates(fields).Error
}

// Delete 删除运单及其事件、照片（需在事务内调用以保证原子性）
func (r *shipmentRepository) Delete(ctx context.Context, id int64) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("shipment_id = ?", id).Delete(&model.ShipmentEvent{}).Error; err != nil {
		return err
	}
	if err := db.Where("shipment_id = ?", id).Delete(&model.ShipmentPhoto{}).Error; err != nil {
		return err
	}
	return db.Delete(&model.Shipment{}, id).Error
}

func (r *shipmentRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Shipment{}).Count(&count).Error
	return count, err
}

// MaxTrackingSequence prefix 为 LA240501 这样的方向+日期前缀
func (r *shipmentRepository) MaxTrackingSequence(ctx context.Context, prefix string) (int64, error) {
	return maxSequence(ctx, r.db, &model.Shipment{}, "company_tracking", prefix)
}

// AppendEvent 追加状态事件
func (r *shipmentRepository) AppendEvent(ctx context.Context, event *model.ShipmentEvent) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(event).Error
}

// ListEvents 事件按时间正序
func (r *shipmentRepository) ListEvents(ctx context.Context, shipmentID int64) ([]model.ShipmentEvent, error) {
	var events []model.ShipmentEvent
	err := r.db.WithContext(ctx).
		Where("shipment_id = ?", shipmentID).
		Order("created_at ASC, id ASC").
		Find(&events).Error
	return events, err
}

// ==================== 工作单元 ====================

// ShipmentUnitOfWork 运单工作单元（事务）
type ShipmentUnitOfWork struct {
	db        *gorm.DB
	Shipments ShipmentRepository
	Photos    PhotoRepository
	Customers CustomerRepository
}

// NewShipmentUnitOfWork 创建工作单元
func NewShipmentUnitOfWork(db *gorm.DB) *ShipmentUnitOfWork {
	return &ShipmentUnitOfWork{
		db:        db,
		Shipments: NewShipmentRepository(db),
		Photos:    NewPhotoRepository(db),
		Customers: NewCustomerRepository(db),
	}
}

// Transaction 执行事务
func (u *ShipmentUnitOfWork) Transaction(ctx context.Context, fn func(uow *ShipmentUnitOfWork) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txUow := &ShipmentUnitOfWork{
			db:        tx,
			Shipments: NewShipmentRepository(tx),
			Photos:    NewPhotoRepository(tx),
			Customers: NewCustomerRepository(tx),
		}
		return fn(txUow)
	})
}
