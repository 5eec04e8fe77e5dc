package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thailao_logistics/internal/api/dto"
	"thailao_logistics/internal/model"
	"thailao_logistics/internal/repository"
)

func TestSettingService(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewSettingService(repository.NewSettingRepository(db))
	ctx := context.Background()

	setting, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSettingID, setting.ID)
	assert.Equal(t, int64(50000), setting.DefaultCrossBorderFee)
	assert.Equal(t, int64(20000), setting.DefaultDomesticFee)
	assert.Equal(t, "Thai-Lao Logistics", setting.CompanyName)
	assert.Equal(t, "", setting.CompanyPhone)

	updated, err := svc.Update(ctx, 1, &dto.UpdateSettingsRequest{
		DefaultCrossBorderFee: int64Ptr(60000),
		TrackingPrefixLA:      strPtr(" lx "),
		CompanyPhone:          strPtr("021 555 000"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(60000), updated.DefaultCrossBorderFee)
	assert.Equal(t, "LX", updated.TrackingPrefixLA)
	assert.Equal(t, "TH", updated.TrackingPrefixTH)

	again, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(60000), again.DefaultCrossBorderFee)
	assert.Equal(t, int64(20000), again.DefaultDomesticFee)
	assert.Equal(t, "021 555 000", again.CompanyPhone)

	var count int64
	require.NoError(t, db.Model(&model.Setting{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	_, err = svc.Update(ctx, 1, &dto.UpdateSettingsRequest{TrackingPrefixTH: strPtr("  ")})
	assert.Equal(t, KindInvalidArgument, KindOf(err))
}
