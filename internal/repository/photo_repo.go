package repository

import (
	"context"

	"gorm.io/gorm"

	"thailao_logistics/internal/model"
)

// PhotoRepository 运单照片仓库
type PhotoRepository interface {
	Create(ctx context.Context, photo *model.ShipmentPhoto) error
	CreateBatch(ctx context.Context, photos []model.ShipmentPhoto) error
	ListByShipment(ctx context.Context, shipmentID int64) ([]model.ShipmentPhoto, error)
}

type photoRepository struct {
	db *gorm.DB
}

// NewPhotoRepository 创建照片仓库
func NewPhotoRepository(db *gorm.DB) PhotoRepository {
	return &photoRepository{db: db}
}

func (r *photoRepository) Create(ctx context.Context, photo *model.ShipmentPhoto) error {
	return r.db.WithContext(ctx).Create(photo).Error
}

func (r *photoRepository) CreateBatch(ctx context.Context, photos []model.ShipmentPhoto) error {
	if len(photos) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&photos).Error
}

// ListByShipment 最新在前
func (r *photoRepository) ListByShipment(ctx context.Context, shipmentID int64) ([]model.ShipmentPhoto, error) {
	var photos []model.ShipmentPhoto
	err := r.db.WithContext(ctx).
		Where("shipment_id = ?", shipmentID).
		Order("created_at DESC, id DESC").
		Find(&photos).Error
	return photos, err
}
