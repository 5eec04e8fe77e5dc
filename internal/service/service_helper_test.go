package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"thailao_logistics/internal/api/dto"
	"thailao_logistics/internal/model"
	"thailao_logistics/internal/repository"
	"thailao_logistics/pkg/database"
)

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitDB(database.Options{
		Driver:   "sqlite",
		DSN:      ":memory:",
		LogLevel: "silent",
	}, model.AllModels()...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string, role model.UserRole) *model.User {
	t.Helper()
	hashed, err := hashPassword("secret123")
	require.NoError(t, err)
	user := &model.User{Username: username, Password: hashed, FullName: username + " Name", Role: role}
	require.NoError(t, db.Create(user).Error)
	return user
}

// testClock 可手动推进的时钟
type testClock struct {
	t time.Time
}

func newTestClock(start time.Time) *testClock { return &testClock{t: start} }

func (c *testClock) Now() time.Time { return c.t }

func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func int64Ptr(v int64) *int64 { return &v }

func strPtr(s string) *string { return &s }

func newShipmentRequest(direction model.Direction) *dto.CreateShipmentRequest {
	return &dto.CreateShipmentRequest{
		Direction:      string(direction),
		ParcelType:     string(model.ParcelParcel),
		Weight:         2.5,
		ReceiverName:   "Somsak",
		ReceiverPhone:  "02055551234",
		CrossBorderFee: int64Ptr(50000),
	}
}

// shipmentFixture 运单服务及其依赖
type shipmentFixture struct {
	db      *gorm.DB
	svc     *ShipmentService
	clock   *testClock
	staff   Actor
	manager Actor
	admin   Actor
}

func newShipmentFixture(t *testing.T) *shipmentFixture {
	t.Helper()
	db := setupServiceDB(t)
	clock := newTestClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local))
	svc := NewShipmentService(repository.NewShipmentUnitOfWork(db)).WithClock(clock.Now)

	staff := seedUser(t, db, "staff", model.RoleStaff)
	manager := seedUser(t, db, "manager", model.RoleManager)
	admin := seedUser(t, db, "admin", model.RoleAdmin)

	return &shipmentFixture{
		db:      db,
		svc:     svc,
		clock:   clock,
		staff:   Actor{ID: staff.ID, Role: staff.Role},
		manager: Actor{ID: manager.ID, Role: manager.Role},
		admin:   Actor{ID: admin.ID, Role: admin.Role},
	}
}

func (f *shipmentFixture) create(t *testing.T, req *dto.CreateShipmentRequest) *model.Shipment {
	t.Helper()
	shipment, err := f.svc.Create(context.Background(), f.staff, req)
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	return shipment
}

func (f *shipmentFixture) record(t *testing.T, id int64, status model.ShipmentStatus) *model.Shipment {
	t.Helper()
	shipment, err := f.svc.RecordStatus(context.Background(), f.staff, id, StatusUpdate{Status: string(status)})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	return shipment
}
