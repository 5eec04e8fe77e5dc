package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"

	"thailao_logistics/internal/api/dto"
	"thailao_logistics/internal/model"
	"thailao_logistics/internal/repository"
	"thailao_logistics/pkg/logger"
)

const (
	defaultBatchConcurrency = 8
	defaultBatchNote        = "Batch update"
	initialEventNote        = "Shipment registered"
	creationPhotoNote       = "Uploaded during creation"

	locationBangkok   = "Bangkok, Thailand"
	locationVientiane = "Vientiane, Laos"
)

// Actor 当前操作人
type Actor struct {
	ID   int64
	Role model.UserRole
}

// CanForce 只有 MANAGER / ADMIN 可以绕过状态机
func (a Actor) CanForce() bool {
	return a.Role == model.RoleManager || a.Role == model.RoleAdmin
}

// ==================== ShipmentService 运单服务 ====================

// ShipmentService 运单生命周期
type ShipmentService struct {
	uow              *repository.ShipmentUnitOfWork
	batchConcurrency int
	now              func() time.Time
}

// NewShipmentService 创建运单服务
func NewShipmentService(uow *repository.ShipmentUnitOfWork) *ShipmentService {
	return &ShipmentService{
		uow:              uow,
		batchConcurrency: defaultBatchConcurrency,
		now:              time.Now,
	}
}

// WithClock 替换时钟（测试用）
func (s *ShipmentService) WithClock(now func() time.Time) *ShipmentService {
	s.now = now
	return s
}

// ==================== 创建 ====================

// Create 创建运单：分配单号、写入 CREATED 事件和随单照片
// 单号冲突时整个事务重试
func (s *ShipmentService) Create(ctx context.Context, actor Actor, req *dto.CreateShipmentRequest) (*model.Shipment, error) {
	direction, ok := model.ParseDirection(req.Direction)
	if !ok {
		return nil, InvalidArgument("Invalid direction: %s", req.Direction)
	}
	parcelType, ok := model.ParseParcelType(req.ParcelType)
	if !ok {
		return nil, InvalidArgument("Invalid parcel type: %s", req.ParcelType)
	}
	if req.Weight <= 0 {
		return nil, InvalidArgument("Weight must be greater than 0")
	}
	if req.CrossBorderFee == nil || *req.CrossBorderFee < 0 {
		return nil, InvalidArgument("crossBorderFee is required")
	}
	receiverName, receiverPhone := strings.TrimSpace(req.ReceiverName), strings.TrimSpace(req.ReceiverPhone)
	if receiverName == "" || receiverPhone == "" {
		return nil, InvalidArgument("Receiver name and phone are required")
	}

	if req.CustomerID != nil {
		customer, err := s.uow.Customers.GetByID(ctx, *req.CustomerID)
		if err != nil {
			return nil, Internal("查询客户失败", err)
		}
		if customer == nil {
			return nil, InvalidArgument("Customer %d not found", *req.CustomerID)
		}
	}

	codAmount := req.CodAmount
	if codAmount != nil && *codAmount <= 0 {
		codAmount = nil
	}

	createdAt := s.now()
	var shipmentID int64
	err := retryOnUniqueViolation(ctx, "shipment", ErrTrackingExhausted, func(attempt int) error {
		return s.uow.Transaction(ctx, func(tx *repository.ShipmentUnitOfWork) error {
			count, err := tx.Shipments.Count(ctx)
			if err != nil {
				return err
			}
			seq, err := sequenceFor(attempt, count, func() (int64, error) {
				return tx.Shipments.MaxTrackingSequence(ctx, trackingDatePrefix(direction, createdAt))
			})
			if err != nil {
				return err
			}

			shipment := &model.Shipment{
				CompanyTracking: FormatTrackingNumber(direction, createdAt, seq),
				ThaiTracking:    trimOptional(req.ThaiTracking),
				Direction:       direction,
				CurrentStatus:   model.StatusCreated,
				ParcelType:      parcelType,
				Weight:          req.Weight,
				Note:            trimOptional(req.Note),
				ReceiverName:    receiverName,
				ReceiverPhone:   receiverPhone,
				ReceiverAddress: trimOptional(req.ReceiverAddress),
				CrossBorderFee:  *req.CrossBorderFee,
				DomesticFee:     req.DomesticFee,
				CodAmount:       codAmount,
				CodStatus:       model.InitialCodStatus(codAmount),
				CustomerID:      req.CustomerID,
			}
			// 寄件人只对老挝寄往泰国的运单有意义
			if direction == model.DirectionLAToTH {
				shipment.SenderName = trimOptional(req.SenderName)
				shipment.SenderPhone = trimOptional(req.SenderPhone)
				shipment.SenderAddress = trimOptional(req.SenderAddress)
			}
			shipment.CreatedAt = createdAt
			shipment.CreatedBy = actor.ID
			shipment.UpdatedBy = actor.ID

			if err := tx.Shipments.Create(ctx, shipment); err != nil {
				return err
			}

			location, notes := originLocation(direction), initialEventNote
			if err := tx.Shipments.AppendEvent(ctx, &model.ShipmentEvent{
				ShipmentID: shipment.ID,
				Status:     model.StatusCreated,
				Location:   &location,
				Notes:      &notes,
				CreatedBy:  actor.ID,
				CreatedAt:  createdAt,
			}); err != nil {
				return err
			}

			if len(req.Photos) > 0 {
				note := creationPhotoNote
				photos := make([]model.ShipmentPhoto, 0, len(req.Photos))
				for _, u := range req.Photos {
					if u = strings.TrimSpace(u); u == "" {
						continue
					}
					photos = append(photos, model.ShipmentPhoto{
						ShipmentID: shipment.ID,
						URL:        u,
						Type:       model.PhotoReceived,
						Notes:      &note,
						CreatedBy:  actor.ID,
						CreatedAt:  createdAt,
					})
				}
				if err := tx.Photos.CreateBatch(ctx, photos); err != nil {
					return err
				}
			}

			shipmentID = shipment.ID
			return nil
		})
	})
	if err != nil {
		return nil, wrapInternal("创建运单失败", err)
	}

	return s.Get(ctx, shipmentID)
}

// originLocation 起运地
func originLocation(direction model.Direction) string {
	if direction == model.DirectionTHToLA {
		return locationBangkok
	}
	return locationVientiane
}

// destinationLocation 目的地
func destinationLocation(direction model.Direction) string {
	if direction == model.DirectionTHToLA {
		return locationVientiane
	}
	return locationBangkok
}

// ==================== 查询 ====================

// Get 运单详情
func (s *ShipmentService) Get(ctx context.Context, id int64) (*model.Shipment, error) {
	shipment, err := s.uow.Shipments.GetDetail(ctx, id)
	if err != nil {
		return nil, Internal("查询运单失败", err)
	}
	if shipment == nil {
		return nil, ErrShipmentNotFound
	}
	return shipment, nil
}

// List 运单列表
func (s *ShipmentService) List(ctx context.Context, req *dto.ShipmentListRequest) (*dto.ShipmentListResponse, error) {
	filter, err := ParseShipmentFilter(req)
	if err != nil {
		return nil, err
	}

	shipments, total, err := s.uow.Shipments.List(ctx, filter)
	if err != nil {
		return nil, Internal("查询运单列表失败", err)
	}
	if shipments == nil {
		shipments = []model.Shipment{}
	}

	page, limit := repository.NormalizePage(req.Page, req.Limit)
	return &dto.ShipmentListResponse{
		Shipments: shipments,
		Total:     total,
		Page:      page,
		Limit:     limit,
	}, nil
}

// ParseShipmentFilter 解析列表 / 导出的过滤参数
// dateTo 包含当天
func ParseShipmentFilter(req *dto.ShipmentListRequest) (repository.ShipmentFilter, error) {
	filter := repository.ShipmentFilter{
		CustomerID: req.CustomerID,
		Search:     strings.TrimSpace(req.Search),
		Page:       req.Page,
		PageSize:   req.Limit,
	}
	if req.Status != "" {
		status, ok := model.ParseShipmentStatus(req.Status)
		if !ok {
			return filter, InvalidArgument("Invalid status: %s", req.Status)
		}
		filter.Status = status
	}
	if req.Direction != "" {
		direction, ok := model.ParseDirection(req.Direction)
		if !ok {
			return filter, InvalidArgument("Invalid direction: %s", req.Direction)
		}
		filter.Direction = direction
	}
	if req.CodStatus != "" {
		codStatus, ok := model.ParseCodStatus(req.CodStatus)
		if !ok {
			return filter, InvalidArgument("Invalid COD status: %s", req.CodStatus)
		}
		filter.CodStatus = codStatus
	}
	if req.DateFrom != "" {
		from, err := time.ParseInLocation(time.DateOnly, req.DateFrom, time.Local)
		if err != nil {
			return filter, InvalidArgument("Invalid dateFrom: %s", req.DateFrom)
		}
		filter.DateFrom = &from
	}
	if req.DateTo != "" {
		to, err := time.ParseInLocation(time.DateOnly, req.DateTo, time.Local)
		if err != nil {
			return filter, InvalidArgument("Invalid dateTo: %s", req.DateTo)
		}
		to = to.AddDate(0, 0, 1)
		filter.DateTo = &to
	}
	return filter, nil
}

// Track 公开查询，公司单号或泰国单号均可
func (s *ShipmentService) Track(ctx context.Context, number string) (*dto.TrackingResponse, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, InvalidArgument("Tracking number is required")
	}

	shipment, err := s.uow.Shipments.GetByTracking(ctx, number)
	if err != nil {
		return nil, Internal("查询运单失败", err)
	}
	if shipment == nil {
		return nil, ErrShipmentNotFound
	}

	resp := &dto.TrackingResponse{
		CompanyTracking: shipment.CompanyTracking,
		ThaiTracking:    shipment.ThaiTracking,
		Direction:       shipment.Direction,
		CurrentStatus:   shipment.CurrentStatus,
		ReceiverName:    shipment.ReceiverName,
		CrossBorderFee:  shipment.CrossBorderFee,
		DomesticFee:     shipment.DomesticFee,
		CodAmount:       shipment.CodAmount,
		CodStatus:       shipment.CodStatus,
		Total:           shipment.TotalFee(),
		Events:          make([]dto.TrackingEvent, 0, len(shipment.Events)),
		Photos:          make([]string, 0, len(shipment.Photos)),
		CreatedAt:       shipment.CreatedAt,
	}
	for _, e := range shipment.Events {
		ev := dto.TrackingEvent{
			Status:    e.Status,
			Location:  e.Location,
			Notes:     e.Notes,
			CreatedAt: e.CreatedAt,
		}
		if e.Staff != nil {
			ev.StaffName = e.Staff.FullName
		}
		resp.Events = append(resp.Events, ev)
	}
	for _, p := range shipment.Photos {
		resp.Photos = append(resp.Photos, p.URL)
	}
	return resp, nil
}

// ==================== 删除 ====================

// Delete 删除运单及其事件、照片
func (s *ShipmentService) Delete(ctx context.Context, actor Actor, id int64) error {
	var tracking string
	err := s.uow.Transaction(ctx, func(tx *repository.ShipmentUnitOfWork) error {
		shipment, err := tx.Shipments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if shipment == nil {
			return ErrShipmentNotFound
		}
		tracking = shipment.CompanyTracking
		return tx.Shipments.Delete(ctx, id)
	})
	if err != nil {
		return wrapInternal("删除运单失败", err)
	}

	logger.L().Info("运单已删除",
		zap.Int64("actor_id", actor.ID),
		zap.Int64("shipment_id", id),
		zap.String("tracking", tracking),
	)
	return nil
}

// ==================== 状态 ====================

// StatusUpdate 一次状态记录
type StatusUpdate struct {
	Status   string
	Location *string
	Notes    *string
	Force    bool
}

// RecordStatus 追加事件并更新当前状态（同一事务）
func (s *ShipmentService) RecordStatus(ctx context.Context, actor Actor, id int64, update StatusUpdate) (*model.Shipment, error) {
	status, err := s.checkStatusUpdate(actor, update)
	if err != nil {
		return nil, err
	}

	var updated *model.Shipment
	err = s.uow.Transaction(ctx, func(tx *repository.ShipmentUnitOfWork) error {
		updated, err = s.recordStatusTx(ctx, tx, actor, id, status, update, nil)
		return err
	})
	if err != nil {
		return nil, wrapInternal("更新运单状态失败", err)
	}
	return updated, nil
}

// checkStatusUpdate 事务外可完成的校验
func (s *ShipmentService) checkStatusUpdate(actor Actor, update StatusUpdate) (model.ShipmentStatus, error) {
	status, ok := model.ParseShipmentStatus(update.Status)
	if !ok {
		return "", InvalidArgument("Invalid status: %s", update.Status)
	}
	// CREATED 只由创建产生，强制也不行
	if status == model.StatusCreated {
		return "", &AppError{Kind: KindInvalidArgument, Message: ErrIllegalTransition.Message, Err: fmt.Errorf("%s cannot be set manually", status)}
	}
	if update.Force && !actor.CanForce() {
		return "", ErrForceNotAllowed
	}
	return status, nil
}

// recordStatusTx 锁定运单、校验迁移、更新状态并追加事件
func (s *ShipmentService) recordStatusTx(
	ctx context.Context,
	tx *repository.ShipmentUnitOfWork,
	actor Actor,
	id int64,
	to model.ShipmentStatus,
	update StatusUpdate,
	extra map[string]interface{},
) (*model.Shipment, error) {
	shipment, err := tx.Shipments.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if shipment == nil {
		return nil, ErrShipmentNotFound
	}

	from := shipment.CurrentStatus
	if !model.IsLegalTransition(from, to) {
		if !update.Force {
			return nil, &AppError{Kind: KindInvalidArgument, Message: ErrIllegalTransition.Message, Err: fmt.Errorf("%s -> %s", from, to)}
		}
		logger.L().Warn("强制修改运单状态",
			zap.Int64("actor_id", actor.ID),
			zap.String("role", string(actor.Role)),
			zap.Int64("shipment_id", id),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
	}

	at := s.now()
	fields := map[string]interface{}{"current_status": to}
	for k, v := range extra {
		fields[k] = v
	}
	if err := tx.Shipments.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}

	event := &model.ShipmentEvent{
		ShipmentID: id,
		Status:     to,
		Location:   trimOptional(update.Location),
		Notes:      trimOptional(update.Notes),
		CreatedBy:  actor.ID,
		CreatedAt:  at,
	}
	if err := tx.Shipments.AppendEvent(ctx, event); err != nil {
		return nil, err
	}

	shipment.CurrentStatus = to
	shipment.UpdatedAt = at
	return shipment, nil
}

// BatchRecordStatus 批量记录状态，每个运单独立事务，单个失败不影响其他
func (s *ShipmentService) BatchRecordStatus(ctx context.Context, actor Actor, req *dto.BatchUpdateRequest) (*dto.BatchUpdateResponse, error) {
	if len(req.IDs) == 0 {
		return nil, InvalidArgument("ids is required")
	}
	update := StatusUpdate{
		Status:   req.Status,
		Location: req.Location,
		Notes:    req.Notes,
		Force:    req.Force,
	}
	if trimOptional(update.Notes) == nil {
		note := defaultBatchNote
		update.Notes = &note
	}

	status, err := s.checkStatusUpdate(actor, update)
	if err != nil {
		return nil, err
	}

	mapper := iter.Mapper[int64, dto.BatchResult]{MaxGoroutines: s.batchConcurrency}
	results := mapper.Map(req.IDs, func(id *int64) dto.BatchResult {
		var shipment *model.Shipment
		err := s.uow.Transaction(ctx, func(tx *repository.ShipmentUnitOfWork) error {
			var txErr error
			shipment, txErr = s.recordStatusTx(ctx, tx, actor, *id, status, update, nil)
			return txErr
		})
		if err != nil {
			return dto.BatchResult{ID: *id, Success: false, Error: batchErrorMessage(err)}
		}
		return dto.BatchResult{ID: *id, Success: true, CompanyTracking: shipment.CompanyTracking}
	})

	resp := &dto.BatchUpdateResponse{Results: results}
	for _, r := range results {
		if r.Success {
			resp.Updated++
		} else {
			resp.Failed++
		}
	}

	logger.L().Info("批量更新运单状态",
		zap.Int64("actor_id", actor.ID),
		zap.String("status", string(status)),
		zap.Int("updated", resp.Updated),
		zap.Int("failed", resp.Failed),
	)
	return resp, nil
}

// batchErrorMessage 业务错误原样返回，内部错误不外泄
func batchErrorMessage(err error) string {
	if KindOf(err) == KindInternal {
		logger.L().Error("批量更新单条失败", zap.Error(err))
		return "Internal error"
	}
	return err.Error()
}

// ==================== 末端配送 ====================

// SetLastMile 设置末端方式并记录 READY_FOR_PICKUP / OUT_FOR_DELIVERY
func (s *ShipmentService) SetLastMile(ctx context.Context, actor Actor, id int64, req *dto.LastMileRequest) (*model.Shipment, error) {
	method, ok := model.ParseLastMileMethod(req.Method)
	if !ok {
		return nil, InvalidArgument("Invalid last-mile method: %s", req.Method)
	}
	to := method.TargetStatus()

	var updated *model.Shipment
	err := s.uow.Transaction(ctx, func(tx *repository.ShipmentUnitOfWork) error {
		// 先读方向以确定默认地点，行锁在 recordStatusTx 中获取
		current, err := tx.Shipments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrShipmentNotFound
		}

		update := StatusUpdate{Status: string(to), Location: req.Location, Notes: req.Notes}
		if trimOptional(update.Location) == nil {
			loc := destinationLocation(current.Direction)
			update.Location = &loc
		}
		if trimOptional(update.Notes) == nil {
			note := "Home delivery"
			if method == model.LastMilePickup {
				note = "Customer pickup"
			}
			update.Notes = &note
		}

		updated, err = s.recordStatusTx(ctx, tx, actor, id, to, update, map[string]interface{}{"last_mile_method": method})
		if err != nil {
			return err
		}
		updated.LastMileMethod = &method
		return nil
	})
	if err != nil {
		return nil, wrapInternal("设置末端配送失败", err)
	}
	return updated, nil
}

// ==================== COD ====================

// SetCodStatus 更新 COD 状态
// 不追加运单事件，变更只记录日志
func (s *ShipmentService) SetCodStatus(ctx context.Context, actor Actor, id int64, statusStr string, force bool) (*model.Shipment, error) {
	to, ok := model.ParseCodStatus(statusStr)
	if !ok {
		return nil, InvalidArgument("Invalid COD status: %s", statusStr)
	}
	if to == model.CodNone {
		return nil, &AppError{Kind: KindInvalidArgument, Message: ErrIllegalCodTransition.Message, Err: fmt.Errorf("NONE cannot be set")}
	}
	if force && !actor.CanForce() {
		return nil, ErrForceNotAllowed
	}

	var updated *model.Shipment
	err := s.uow.Transaction(ctx, func(tx *repository.ShipmentUnitOfWork) error {
		shipment, err := tx.Shipments.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if shipment == nil {
			return ErrShipmentNotFound
		}

		from := shipment.CodStatus
		if from == model.CodNone {
			return ErrNoCod
		}
		updated = shipment
		if from == to {
			return nil
		}

		if !model.IsLegalCodTransition(from, to) {
			if !force || !model.CanForceCod(from, to) {
				return &AppError{Kind: KindInvalidArgument, Message: ErrIllegalCodTransition.Message, Err: fmt.Errorf("%s -> %s", from, to)}
			}
			logger.L().Warn("强制修改 COD 状态",
				zap.Int64("actor_id", actor.ID),
				zap.Int64("shipment_id", id),
				zap.String("from", string(from)),
				zap.String("to", string(to)),
			)
		}

		if err := tx.Shipments.UpdateFields(ctx, id, map[string]interface{}{"cod_status": to}); err != nil {
			return err
		}
		shipment.CodStatus = to

		logger.L().Info("COD 状态变更",
			zap.Int64("actor_id", actor.ID),
			zap.Int64("shipment_id", id),
			zap.String("tracking", shipment.CompanyTracking),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
		return nil
	})
	if err != nil {
		return nil, wrapInternal("更新 COD 状态失败", err)
	}
	return updated, nil
}
