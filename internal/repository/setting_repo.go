package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"thailao_logistics/internal/model"
)

// SettingRepository 系统配置仓库
type SettingRepository interface {
	Get(ctx context.Context) (*model.Setting, error)
	CreateIfAbsent(ctx context.Context, setting *model.Setting) error
	Upsert(ctx context.Context, setting *model.Setting) error
}

type settingRepository struct {
	db *gorm.DB
}

// NewSettingRepository 创建配置仓库
func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{db: db}
}

func (r *settingRepository) Get(ctx context.Context) (*model.Setting, error) {
	var setting model.Setting
	err := r.db.WithContext(ctx).Where("id = ?", model.DefaultSettingID).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &setting, err
}

// CreateIfAbsent 并发首次读取时只有一个写入生效
func (r *settingRepository) CreateIfAbsent(ctx context.Context, setting *model.Setting) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(setting).Error
}

func (r *settingRepository) Upsert(ctx context.Context, setting *model.Setting) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(setting).Error
}
