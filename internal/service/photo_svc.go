package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"thailao_logistics/internal/model"
	"thailao_logistics/internal/repository"
	"thailao_logistics/pkg/logger"
)

// PhotoService 运单照片
type PhotoService struct {
	shipments repository.ShipmentRepository
	photos    repository.PhotoRepository
	storage   *StorageService
}

// NewPhotoService 创建照片服务
func NewPhotoService(shipments repository.ShipmentRepository, photos repository.PhotoRepository, storage *StorageService) *PhotoService {
	return &PhotoService{
		shipments: shipments,
		photos:    photos,
		storage:   storage,
	}
}

// PhotoMeta 照片附加信息
type PhotoMeta struct {
	Type  string
	Notes *string
}

// List 运单照片，最新的在前
func (s *PhotoService) List(ctx context.Context, shipmentID int64) ([]model.ShipmentPhoto, error) {
	if err := s.ensureShipment(ctx, shipmentID); err != nil {
		return nil, err
	}
	photos, err := s.photos.ListByShipment(ctx, shipmentID)
	if err != nil {
		return nil, Internal("查询照片失败", err)
	}
	if photos == nil {
		photos = []model.ShipmentPhoto{}
	}
	return photos, nil
}

// Upload 上传图片并挂到运单
func (s *PhotoService) Upload(ctx context.Context, actorID, shipmentID int64, data []byte, filename string, meta PhotoMeta) (*model.ShipmentPhoto, error) {
	photoType, err := parsePhotoType(meta.Type)
	if err != nil {
		return nil, err
	}
	if err := s.ensureShipment(ctx, shipmentID); err != nil {
		return nil, err
	}

	url, err := s.storage.SaveImage(ctx, data, filename)
	if err != nil {
		return nil, err
	}
	return s.attach(ctx, actorID, shipmentID, url, photoType, meta.Notes)
}

// Import 下载远程图片后挂到运单
func (s *PhotoService) Import(ctx context.Context, actorID, shipmentID int64, sourceURL string, meta PhotoMeta) (*model.ShipmentPhoto, error) {
	photoType, err := parsePhotoType(meta.Type)
	if err != nil {
		return nil, err
	}
	if err := s.ensureShipment(ctx, shipmentID); err != nil {
		return nil, err
	}

	url, err := s.storage.Import(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	return s.attach(ctx, actorID, shipmentID, url, photoType, meta.Notes)
}

func (s *PhotoService) attach(ctx context.Context, actorID, shipmentID int64, url string, photoType model.PhotoType, notes *string) (*model.ShipmentPhoto, error) {
	photo := &model.ShipmentPhoto{
		ShipmentID: shipmentID,
		URL:        url,
		Type:       photoType,
		Notes:      trimOptional(notes),
		CreatedBy:  actorID,
		CreatedAt:  time.Now(),
	}
	if err := s.photos.Create(ctx, photo); err != nil {
		// 记录失败时清理已上传的文件
		if delErr := s.storage.Delete(ctx, url); delErr != nil {
			logger.L().Warn("清理上传文件失败", zap.String("url", url), zap.Error(delErr))
		}
		return nil, Internal("保存照片失败", err)
	}

	logger.L().Info("运单照片已添加",
		zap.Int64("shipment_id", shipmentID),
		zap.String("type", string(photoType)),
		zap.String("url", url),
	)
	return photo, nil
}

func (s *PhotoService) ensureShipment(ctx context.Context, shipmentID int64) error {
	shipment, err := s.shipments.GetByID(ctx, shipmentID)
	if err != nil {
		return Internal("查询运单失败", err)
	}
	if shipment == nil {
		return ErrShipmentNotFound
	}
	return nil
}

// parsePhotoType 缺省为 OTHER
func parsePhotoType(s string) (model.PhotoType, error) {
	if strings.TrimSpace(s) == "" {
		return model.PhotoOther, nil
	}
	photoType, ok := model.ParsePhotoType(s)
	if !ok {
		return "", InvalidArgument("Invalid photo type: %s", s)
	}
	return photoType, nil
}
