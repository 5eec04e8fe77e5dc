package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thailao_logistics/internal/api/dto"
	"thailao_logistics/internal/model"
	"thailao_logistics/internal/repository"
)

func TestShipmentService_Create(t *testing.T) {
	f := newShipmentFixture(t)
	ctx := context.Background()

	req := newShipmentRequest(model.DirectionTHToLA)
	req.CodAmount = int64Ptr(120000)
	req.DomesticFee = int64Ptr(20000)
	req.SenderName = strPtr("ignored")
	req.Photos = []string{"/uploads/a.png", " ", "/uploads/b.png"}

	shipment, err := f.svc.Create(ctx, f.staff, req)
	require.NoError(t, err)

	assert.Equal(t, "LA2405010001", shipment.CompanyTracking)
	assert.Equal(t, model.StatusCreated, shipment.CurrentStatus)
	assert.Equal(t, model.CodPending, shipment.CodStatus)
	assert.Nil(t, shipment.SenderName, "寄件人只保留给 LA_TO_TH")
	assert.Equal(t, int64(70000), shipment.TotalFee())

	require.Len(t, shipment.Events, 1)
	ev := shipment.Events[0]
	assert.Equal(t, model.StatusCreated, ev.Status)
	assert.Equal(t, "Bangkok, Thailand", *ev.Location)
	assert.Equal(t, "Shipment registered", *ev.Notes)
	require.NotNil(t, ev.Staff)
	assert.Equal(t, "staff", ev.Staff.Username)

	require.Len(t, shipment.Photos, 2)
	for _, p := range shipment.Photos {
		assert.Equal(t, model.PhotoReceived, p.Type)
		assert.Equal(t, "Uploaded during creation", *p.Notes)
	}
}

func TestShipmentService_CreateLaosToThailand(t *testing.T) {
	f := newShipmentFixture(t)

	req := newShipmentRequest(model.DirectionLAToTH)
	req.SenderName = strPtr("Khamla")
	req.CodAmount = int64Ptr(0)
	shipment := f.create(t, req)

	assert.Equal(t, "TH2405010001", shipment.CompanyTracking)
	require.NotNil(t, shipment.SenderName)
	assert.Equal(t, "Khamla", *shipment.SenderName)
	assert.Nil(t, shipment.CodAmount)
	assert.Equal(t, model.CodNone, shipment.CodStatus)
	assert.Equal(t, "Vientiane, Laos", *shipment.Events[0].Location)

	// 序号按运单总数递增，不区分方向
	second := f.create(t, newShipmentRequest(model.DirectionTHToLA))
	assert.Equal(t, "LA2405010002", second.CompanyTracking)
}

func TestShipmentService_CreateValidation(t *testing.T) {
	f := newShipmentFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(r *dto.CreateShipmentRequest)
	}{
		{"方向非法", func(r *dto.CreateShipmentRequest) { r.Direction = "TH_TO_VN" }},
		{"类型非法", func(r *dto.CreateShipmentRequest) { r.ParcelType = "BOX" }},
		{"重量为 0", func(r *dto.CreateShipmentRequest) { r.Weight = 0 }},
		{"缺少运费", func(r *dto.CreateShipmentRequest) { r.CrossBorderFee = nil }},
		{"缺少收件人", func(r *dto.CreateShipmentRequest) { r.ReceiverName = "  " }},
		{"客户不存在", func(r *dto.CreateShipmentRequest) { r.CustomerID = int64Ptr(999) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newShipmentRequest(model.DirectionTHToLA)
			tt.mutate(req)
			_, err := f.svc.Create(ctx, f.staff, req)
			require.Error(t, err)
			assert.Equal(t, KindInvalidArgument, KindOf(err))
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&model.Shipment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestShipmentService_ConcurrentCreateUniqueTracking(t *testing.T) {
	f := newShipmentFixture(t)
	ctx := context.Background()

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = make(map[string]bool)
		errs    []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			shipment, err := f.svc.Create(ctx, f.staff, newShipmentRequest(model.DirectionTHToLA))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			numbers[shipment.CompanyTracking] = true
		}()
	}
	wg.Wait()

	assert.Empty(t, errs)
	assert.Len(t, numbers, n)
}

func TestShipmentService_Lifecycle(t *testing.T) {
	f := newShipmentFixture(t)
	ctx := context.Background()

	req := newShipmentRequest(model.DirectionTHToLA)
	req.CodAmount = int64Ptr(100000)
	shipment := f.create(t, req)

	f.record(t, shipment.ID, model.StatusReceivedAtOrigin)
	f.record(t, shipment.ID, model.StatusInTransit)
	updated, err := f.svc.RecordStatus(ctx, f.staff, shipment.ID, StatusUpdate{
		Status:   "arrived_at_hub",
		Location: strPtr("Vientiane Hub"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusArrivedAtHub, updated.CurrentStatus)
	f.clock.Advance(time.Minute)

	_, err = f.svc.SetLastMile(ctx, f.staff, shipment.ID, &dto.LastMileRequest{Method: "PICKUP"})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	f.record(t, shipment.ID, model.StatusDelivered)

	_, err = f.svc.SetCodStatus(ctx, f.staff, shipment.ID, "COLLECTED", false)
	require.NoError(t, err)
	_, err = f.svc.SetCodStatus(ctx, f.staff, shipment.ID, "TRANSFERRED", false)
	require.NoError(t, err)

	detail, err := f.svc.Get(ctx, shipment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDelivered, detail.CurrentStatus)
	assert.Equal(t, model.CodRemitted, detail.CodStatus)
	require.NotNil(t, detail.LastMileMethod)
	assert.Equal(t, model.LastMilePickup, *detail.LastMileMethod)

	// COD 变更不写事件
	want := []model.ShipmentStatus{
		model.StatusCreated, model.StatusReceivedAtOrigin, model.StatusInTransit,
		model.StatusArrivedAtHub, model.StatusReadyForPickup, model.StatusDelivered,
	}
	require.Len(t, detail.Events, len(want))
	for i, ev := range detail.Events {
		assert.Equal(t, want[i], ev.Status)
	}
	assert.Equal(t, "Vientiane, Laos", *detail.Events[4].Location)
	assert.Equal(t, "Customer pickup", *detail.Events[4].Notes)

	// 当前状态等于最新事件
	assert.Equal(t, detail.Events[len(detail.Events)-1].Status, detail.CurrentStatus)

	// 终态不可再变
	_, err = f.svc.RecordStatus(ctx, f.staff, shipment.ID, StatusUpdate{Status: "IN_TRANSIT"})
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestShipmentService_RecordStatusRules(t *testing.T) {
	f := newShipmentFixture(t)
	ctx := context.Background()

	t.Run("不能回退", func(t *testing.T) {
		s := f.create(t, newShipmentRequest(model.DirectionTHToLA))
		f.record(t, s.ID, model.StatusInTransit)
		_, err := f.svc.RecordStatus(ctx, f.staff, s.ID, StatusUpdate{Status: "RECEIVED_AT_ORIGIN"})
		assert.ErrorIs(t, err, ErrIllegalTransition)
		assert.Equal(t, KindInvalidArgument, KindOf(err))
	})

	t.Run("同状态打卡", func(t *testing.T) {
		s := f.create(t, newShipmentRequest(model.DirectionTHToLA))
		f.record(t, s.ID, model.StatusInTransit)
		f.record(t, s.ID, model.StatusInTransit)
		events, err := repository.NewShipmentRepository(f.db).ListEvents(ctx, s.ID)
		require.NoError(t, err)
		assert.Len(t, events, 3)
	})

	t.Run("员工不能强制", func(t *testing.T) {
		s := f.create(t, newShipmentRequest(model.DirectionTHToLA))
		f.record(t, s.ID, model.StatusDelivered)
		_, err := f.svc.RecordStatus(ctx, f.staff, s.ID, StatusUpdate{Status: "IN_TRANSIT", Force: true})
		assert.ErrorIs(t, err, ErrForceNotAllowed)
		assert.Equal(t, KindForbidden, KindOf(err))
	})

	t.Run("经理强制修正", func(t *testing.T) {
		s := f.create(t, newShipmentRequest(model.DirectionTHToLA))
		f.record(t, s.ID, model.StatusDelivered)
		updated, err := f.svc.RecordStatus(ctx, f.manager, s.ID, StatusUpdate{Status: "ARRIVED_AT_HUB", Force: true})
		require.NoError(t, err)
		assert.Equal(t, model.StatusArrivedAtHub, updated.CurrentStatus)
	})

	t.Run("CREATED 不可手动写入", func(t *testing.T) {
		s := f.create(t, newShipmentRequest(model.DirectionTHToLA))
		_, err := f.svc.RecordStatus(ctx, f.admin, s.ID, StatusUpdate{Status: "CREATED", Force: true})
		assert.ErrorIs(t, err, ErrIllegalTransition)
	})

	t.Run("状态非法", func(t *testing.T) {
		s := f.create(t, newShipmentRequest(model.DirectionTHToLA))
		_, err := f.svc.RecordStatus(ctx, f.staff, s.ID, StatusUpdate{Status: "LOST"})
		assert.Equal(t, KindInvalidArgument, KindOf(err))
	})

	t.Run("运单不存在", func(t *testing.T) {
		_, err := f.svc.RecordStatus(ctx, f.staff, 9999, StatusUpdate{Status: "IN_TRANSIT"})
		assert.ErrorIs(t, err, ErrShipmentNotFound)
		assert.Equal(t, KindNotFound, KindOf(err))
	})

	t.Run("失败可由任意非终态进入", func(t *testing.T) {
		s := f.create(t, newShipmentRequest(model.DirectionTHToLA))
		updated := f.record(t, s.ID, model.StatusFailed)
		assert.Equal(t, model.StatusFailed, updated.CurrentStatus)
	})
}

func TestShipmentService_BatchPartialFailure(t *testing.T) {
	f := newShipmentFixture(t)
	ctx := context.Background()

	a := f.create(t, newShipmentRequest(model.DirectionTHToLA))
	b := f.create(t, newShipmentRequest(model.DirectionTHToLA))
	c := f.create(t, newShipmentRequest(model.DirectionTHToLA))
	f.record(t, c.ID, model.StatusDelivered)

	resp, err := f.svc.BatchRecordStatus(ctx, f.staff, &dto.BatchUpdateRequest{
		IDs:    []int64{a.ID, 9999, b.ID, c.ID},
		Status: "IN_TRANSIT",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Updated)
	assert.Equal(t, 2, resp.Failed)
	require.Len(t, resp.Results, 4)

	assert.True(t, resp.Results[0].Success)
	assert.Equal(t, a.CompanyTracking, resp.Results[0].CompanyTracking)
	assert.False(t, resp.Results[1].Success)
	assert.Equal(t, ErrShipmentNotFound.Error(), resp.Results[1].Error)
	assert.True(t, resp.Results[2].Success)
	assert.False(t, resp.Results[3].Success)
	assert.Contains(t, resp.Results[3].Error, ErrIllegalTransition.Message)

	events, err := repository.NewShipmentRepository(f.db).ListEvents(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Batch update", *events[1].Notes)
}

func TestShipmentService_BatchRejectsWholeRequest(t *testing.T) {
	f := newShipmentFixture(t)
	ctx := context.Background()
	s := f.create(t, newShipmentRequest(model.DirectionTHToLA))

	_, err := f.svc.BatchRecordStatus(ctx, f.staff, &dto.BatchUpdateRequest{IDs: []int64{s.ID}, Status: "NOPE"})
	assert.Equal(t, KindInvalidArgument, KindOf(err))

	_, err = f.svc.BatchRecordStatus(ctx, f.staff, &dto.BatchUpdateRequest{IDs: []int64{s.ID}, Status: "IN_TRANSIT", Force: true})
	assert.ErrorIs(t, err, ErrForceNotAllowed)
}

func TestShipmentService_LastMileDelivery(t *testing.T) {
	f := newShipmentFixture(t)
	ctx := context.Background()

	s := f.create(t, newShipmentRequest(model.DirectionLAToTH))
	f.record(t, s.ID, model.StatusArrivedAtHub)

	updated, err := f.svc.SetLastMile(ctx, f.staff, s.ID, &dto.LastMileRequest{Method: "delivery", Notes: strPtr("Rider 3")})
	require.NoError(t, err)
	assert.Equal(t, model.StatusOutForDelivery, updated.CurrentStatus)

	events, err := repository.NewShipmentRepository(f.db).ListEvents(ctx, s.ID)
	require.NoError(t, err)
	last := events[len(events)-1]
	assert.Equal(t, "Bangkok, Thailand", *last.Location)
	assert.Equal(t, "Rider 3", *last.Notes)

	_, err = f.svc.SetLastMile(ctx, f.staff, s.ID, &dto.LastMileRequest{Method: "DRONE"})
	assert.Equal(t, KindInvalidArgument, KindOf(err))
}

func TestShipmentService_SetCodStatus(t *testing.T) {
	f := newShipmentFixture(t)
	ctx := context.Background()

	withCod := newShipmentRequest(model.DirectionTHToLA)
	withCod.CodAmount = int64Ptr(50000)
	s := f.create(t, withCod)
	noCod := f.create(t, newShipmentRequest(model.DirectionTHToLA))

	_, err := f.svc.SetCodStatus(ctx, f.staff, noCod.ID, "COLLECTED", false)
	assert.ErrorIs(t, err, ErrNoCod)

	_, err = f.svc.SetCodStatus(ctx, f.staff, s.ID, "NONE", false)
	assert.ErrorIs(t, err, ErrIllegalCodTransition)

	_, err = f.svc.SetCodStatus(ctx, f.staff, s.ID, "PAID", false)
	assert.Equal(t, KindInvalidArgument, KindOf(err))

	// 同状态视为成功
	same, err := f.svc.SetCodStatus(ctx, f.staff, s.ID, "PENDING", false)
	require.NoError(t, err)
	assert.Equal(t, model.CodPending, same.CodStatus)

	// 允许跳级
	remitted, err := f.svc.SetCodStatus(ctx, f.staff, s.ID, "REMITTED", false)
	require.NoError(t, err)
	assert.Equal(t, model.CodRemitted, remitted.CodStatus)

	_, err = f.svc.SetCodStatus(ctx, f.staff, s.ID, "COLLECTED", false)
	assert.ErrorIs(t, err, ErrIllegalCodTransition)

	_, err = f.svc.SetCodStatus(ctx, f.staff, s.ID, "COLLECTED", true)
	assert.ErrorIs(t, err, ErrForceNotAllowed)

	fixed, err := f.svc.SetCodStatus(ctx, f.admin, s.ID, "COLLECTED", true)
	require.NoError(t, err)
	assert.Equal(t, model.CodCollected, fixed.CodStatus)

	_, err = f.svc.SetCodStatus(ctx, f.staff, 9999, "COLLECTED", false)
	assert.ErrorIs(t, err, ErrShipmentNotFound)

	events, err := repository.NewShipmentRepository(f.db).ListEvents(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestShipmentService_Track(t *testing.T) {
	f := newShipmentFixture(t)
	ctx := context.Background()

	req := newShipmentRequest(model.DirectionTHToLA)
	req.ThaiTracking = strPtr("KEX123456789")
	req.DomesticFee = int64Ptr(15000)
	req.ReceiverAddress = strPtr("Ban Phonxay")
	s := f.create(t, req)
	f.record(t, s.ID, model.StatusInTransit)

	for _, number := range []string{s.CompanyTracking, " KEX123456789 "} {
		resp, err := f.svc.Track(ctx, number)
		require.NoError(t, err)
		assert.Equal(t, s.CompanyTracking, resp.CompanyTracking)
		assert.Equal(t, model.StatusInTransit, resp.CurrentStatus)
		assert.Equal(t, int64(65000), resp.Total)
		require.Len(t, resp.Events, 2)
		assert.Equal(t, model.StatusCreated, resp.Events[0].Status)
		assert.Equal(t, "staff Name", resp.Events[0].StaffName)
		assert.NotNil(t, resp.Photos)
	}

	_, err := f.svc.Track(ctx, "LA000000")
	assert.ErrorIs(t, err, ErrShipmentNotFound)
	_, err = f.svc.Track(ctx, "  ")
	assert.Equal(t, KindInvalidArgument, KindOf(err))
}

func TestShipmentService_ListAndDelete(t *testing.T) {
	f := newShipmentFixture(t)
	ctx := context.Background()

	a := f.create(t, newShipmentRequest(model.DirectionTHToLA))
	f.clock.Advance(24 * time.Hour)
	b := f.create(t, newShipmentRequest(model.DirectionLAToTH))

	resp, err := f.svc.List(ctx, &dto.ShipmentListRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Total)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 20, resp.Limit)
	assert.Equal(t, b.ID, resp.Shipments[0].ID)

	// dateTo 包含当天
	resp, err = f.svc.List(ctx, &dto.ShipmentListRequest{DateFrom: "2024-05-01", DateTo: "2024-05-01"})
	require.NoError(t, err)
	require.Len(t, resp.Shipments, 1)
	assert.Equal(t, a.ID, resp.Shipments[0].ID)

	resp, err = f.svc.List(ctx, &dto.ShipmentListRequest{Direction: "LA_TO_TH"})
	require.NoError(t, err)
	require.Len(t, resp.Shipments, 1)
	assert.Equal(t, b.ID, resp.Shipments[0].ID)

	_, err = f.svc.List(ctx, &dto.ShipmentListRequest{DateTo: "05/01/2024"})
	assert.Equal(t, KindInvalidArgument, KindOf(err))

	require.NoError(t, f.svc.Delete(ctx, f.manager, a.ID))
	_, err = f.svc.Get(ctx, a.ID)
	assert.ErrorIs(t, err, ErrShipmentNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, f.manager, a.ID), ErrShipmentNotFound)

	var events int64
	require.NoError(t, f.db.Model(&model.ShipmentEvent{}).Where("shipment_id = ?", a.ID).Count(&events).Error)
	assert.Zero(t, events)
}

func TestActor_CanForce(t *testing.T) {
	assert.False(t, Actor{Role: model.RoleStaff}.CanForce())
	assert.True(t, Actor{Role: model.RoleManager}.CanForce())
	assert.True(t, Actor{Role: model.RoleAdmin}.CanForce())
}

func TestBatchErrorMessage(t *testing.T) {
	assert.Equal(t, "Internal error", batchErrorMessage(errors.New("db down")))
	assert.Equal(t, ErrShipmentNotFound.Error(), batchErrorMessage(ErrShipmentNotFound))
	wrapped := &AppError{Kind: KindInvalidArgument, Message: "x", Err: fmt.Errorf("a -> b")}
	assert.Equal(t, wrapped.Error(), batchErrorMessage(wrapped))
}

func TestShipmentService_CreateAfterDeletes(t *testing.T) {
	f := newShipmentFixture(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 30; i++ {
		ids = append(ids, f.create(t, newShipmentRequest(model.DirectionTHToLA)).ID)
	}
	for _, id := range ids[:12] {
		require.NoError(t, f.svc.Delete(ctx, f.admin, id))
	}

	for _, want := range []string{"LA2405010031", "LA2405010032", "LA2405010033"} {
		assert.Equal(t, want, f.create(t, newShipmentRequest(model.DirectionTHToLA)).CompanyTracking)
	}

	// 另一方向当天还没有单号，按总数直接分配
	other := f.create(t, newShipmentRequest(model.DirectionLAToTH))
	assert.Equal(t, "TH2405010022", other.CompanyTracking)
}

