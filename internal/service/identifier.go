package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"thailao_logistics/internal/model"
	"thailao_logistics/pkg/database"
	"thailao_logistics/pkg/logger"
)

// ==================== 编号分配 ====================
//
// 序号取 count()+1，删除记录或并发创建时可能撞号。
// 依赖数据库唯一索引兜底：插入冲突后整个事务重试，
// 重试时从同前缀现存的最大序号之后接着分配。

const (
	maxAllocAttempts   = 10
	customerCodePrefix = "TLL-"
)

// FormatCustomerCode TLL-0001
func FormatCustomerCode(seq int64) string {
	return fmt.Sprintf("%s%04d", customerCodePrefix, seq)
}

// TrackingPrefix 前缀取目的国：TH_TO_LA -> LA，LA_TO_TH -> TH
func TrackingPrefix(direction model.Direction) string {
	if direction == model.DirectionTHToLA {
		return "LA"
	}
	return "TH"
}

// trackingDatePrefix 同一方向同一天的单号共用的前缀，如 LA240501
func trackingDatePrefix(direction model.Direction, at time.Time) string {
	return TrackingPrefix(direction) + at.Format("060102")
}

// FormatTrackingNumber <LA|TH><YY><MM><DD><seq>
func FormatTrackingNumber(direction model.Direction, at time.Time, seq int64) string {
	return fmt.Sprintf("%s%04d", trackingDatePrefix(direction, at), seq)
}

// nextSequence 首次取 count+1；冲突重试时从 max(count, highest) 之后第 attempt 个开始
func nextSequence(count, highest int64, attempt int) int64 {
	if attempt == 0 {
		return count + 1
	}
	if highest < count {
		highest = count
	}
	return highest + int64(attempt)
}

// sequenceFor 按重试次数决定是否需要查现存最大序号
func sequenceFor(attempt int, count int64, highest func() (int64, error)) (int64, error) {
	if attempt == 0 {
		return nextSequence(count, 0, 0), nil
	}
	top, err := highest()
	if err != nil {
		return 0, err
	}
	return nextSequence(count, top, attempt), nil
}

// retryOnUniqueViolation 唯一键冲突时重试 fn，其余错误直接返回
func retryOnUniqueViolation(ctx context.Context, kind string, exhausted error, fn func(attempt int) error) error {
	for attempt := 0; attempt < maxAllocAttempts; attempt++ {
		err := fn(attempt)
		if err == nil || !database.IsUniqueViolation(err) {
			return err
		}
		logger.L().Warn("[Allocator] 编号冲突，重试",
			zap.String("kind", kind),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	return exhausted
}
