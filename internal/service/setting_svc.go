package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"thailao_logistics/internal/api/dto"
	"thailao_logistics/internal/model"
	"thailao_logistics/internal/repository"
	"thailao_logistics/pkg/logger"
)

// SettingService 系统配置（单例）
type SettingService struct {
	settings repository.SettingRepository
}

// NewSettingService 创建配置服务
func NewSettingService(settings repository.SettingRepository) *SettingService {
	return &SettingService{settings: settings}
}

// Get 读取配置，不存在时写入默认值
func (s *SettingService) Get(ctx context.Context) (*model.Setting, error) {
	setting, err := s.settings.Get(ctx)
	if err != nil {
		return nil, Internal("读取配置失败", err)
	}
	if setting != nil {
		return setting, nil
	}

	if err := s.settings.CreateIfAbsent(ctx, model.DefaultSetting()); err != nil {
		return nil, Internal("初始化配置失败", err)
	}
	setting, err = s.settings.Get(ctx)
	if err != nil {
		return nil, Internal("读取配置失败", err)
	}
	if setting == nil {
		return nil, Internal("读取配置失败", nil)
	}
	return setting, nil
}

// Update 合并提供的字段后整体写回
func (s *SettingService) Update(ctx context.Context, actorID int64, req *dto.UpdateSettingsRequest) (*model.Setting, error) {
	setting, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	if req.DefaultCrossBorderFee != nil {
		setting.DefaultCrossBorderFee = *req.DefaultCrossBorderFee
	}
	if req.DefaultDomesticFee != nil {
		setting.DefaultDomesticFee = *req.DefaultDomesticFee
	}
	if req.TrackingPrefixTH != nil {
		prefix := strings.ToUpper(strings.TrimSpace(*req.TrackingPrefixTH))
		if prefix == "" {
			return nil, InvalidArgument("trackingPrefixTH cannot be empty")
		}
		setting.TrackingPrefixTH = prefix
	}
	if req.TrackingPrefixLA != nil {
		prefix := strings.ToUpper(strings.TrimSpace(*req.TrackingPrefixLA))
		if prefix == "" {
			return nil, InvalidArgument("trackingPrefixLA cannot be empty")
		}
		setting.TrackingPrefixLA = prefix
	}
	if req.CompanyName != nil {
		setting.CompanyName = strings.TrimSpace(*req.CompanyName)
	}
	if req.CompanyPhone != nil {
		setting.CompanyPhone = strings.TrimSpace(*req.CompanyPhone)
	}
	if req.CompanyAddress != nil {
		setting.CompanyAddress = strings.TrimSpace(*req.CompanyAddress)
	}

	setting.ID = model.DefaultSettingID
	if err := s.settings.Upsert(ctx, setting); err != nil {
		return nil, Internal("保存配置失败", err)
	}
	logger.L().Info("系统配置已更新", zap.Int64("actor_id", actorID))
	return setting, nil
}
