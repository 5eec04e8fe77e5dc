package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thailao_logistics/internal/api/dto"
	"thailao_logistics/internal/model"
	"thailao_logistics/internal/repository"
)

func TestCustomerService_CRUD(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewCustomerService(repository.NewCustomerRepository(db))
	ctx := context.Background()

	first, err := svc.Create(ctx, 1, &dto.CustomerRequest{Name: " Noy ", Phone: "020111", LineID: strPtr("  ")})
	require.NoError(t, err)
	assert.Equal(t, "TLL-0001", first.Code)
	assert.Equal(t, "Noy", first.Name)
	assert.Nil(t, first.LineID)
	assert.Zero(t, first.Points)

	second, err := svc.Create(ctx, 1, &dto.CustomerRequest{Name: "Bee", Phone: "020222"})
	require.NoError(t, err)
	assert.Equal(t, "TLL-0002", second.Code)

	found, err := svc.GetByCode(ctx, "tll-0002")
	require.NoError(t, err)
	assert.Equal(t, second.ID, found.ID)

	updated, err := svc.Update(ctx, 2, first.ID, &dto.CustomerRequest{Name: "Noy K", Phone: "020333", DefaultAddress: strPtr("Vientiane")})
	require.NoError(t, err)
	assert.Equal(t, "TLL-0001", updated.Code)
	assert.Equal(t, int64(2), updated.UpdatedBy)

	list, err := svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "TLL-0001", list[0].Code)

	require.NoError(t, svc.Delete(ctx, first.ID))
	_, err = svc.Get(ctx, first.ID)
	assert.ErrorIs(t, err, ErrCustomerNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, first.ID), ErrCustomerNotFound)

	_, err = svc.GetByCode(ctx, "")
	assert.Equal(t, KindInvalidArgument, KindOf(err))

	list, err = svc.List(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestCustomerService_GetIncludesShipments(t *testing.T) {
	f := newShipmentFixture(t)
	svc := NewCustomerService(repository.NewCustomerRepository(f.db))
	ctx := context.Background()

	customer, err := svc.Create(ctx, f.staff.ID, &dto.CustomerRequest{Name: "Noy", Phone: "020111"})
	require.NoError(t, err)

	req := newShipmentRequest(model.DirectionTHToLA)
	req.CustomerID = &customer.ID
	f.create(t, req)

	got, err := svc.Get(ctx, customer.ID)
	require.NoError(t, err)
	assert.Len(t, got.Shipments, 1)
}

func TestCustomerService_ConcurrentCreateUniqueCodes(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewCustomerService(repository.NewCustomerRepository(db))
	ctx := context.Background()

	const n = 6
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		codes = make(map[string]bool)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := svc.Create(ctx, 1, &dto.CustomerRequest{Name: "C", Phone: "1"})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			codes[c.Code] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, codes, n)
}

func TestCustomerService_Validation(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewCustomerService(repository.NewCustomerRepository(db))

	_, err := svc.Create(context.Background(), 1, &dto.CustomerRequest{Name: " ", Phone: "1"})
	assert.Equal(t, KindInvalidArgument, KindOf(err))

	_, err = svc.Update(context.Background(), 1, 42, &dto.CustomerRequest{Name: "A", Phone: "1"})
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestCustomerService_CreateAfterDeletes(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewCustomerService(repository.NewCustomerRepository(db))
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 30; i++ {
		c, err := svc.Create(ctx, 1, &dto.CustomerRequest{Name: "C", Phone: "1"})
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}
	for _, id := range ids[:12] {
		require.NoError(t, svc.Delete(ctx, id))
	}

	// 总数回落到 18，TLL-0019 起的编号仍被占用
	for _, want := range []string{"TLL-0031", "TLL-0032", "TLL-0033"} {
		c, err := svc.Create(ctx, 1, &dto.CustomerRequest{Name: "C", Phone: "1"})
		require.NoError(t, err)
		assert.Equal(t, want, c.Code)
	}
}
