package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thailao_logistics/internal/model"
	"thailao_logistics/pkg/database"
)

func TestUserRepository_CRUD(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := &model.User{Username: "somsak", Password: "$2a$hash", FullName: "Somsak", Role: model.RoleStaff}
	require.NoError(t, repo.Create(ctx, u))
	assert.NotZero(t, u.ID)

	got, err := repo.GetByUsername(ctx, "somsak")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)

	missing, err := repo.GetByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing, "不存在返回 nil, nil")

	got.FullName = "Somsak P."
	got.Role = model.RoleManager
	require.NoError(t, repo.Update(ctx, got))
	require.NoError(t, repo.UpdatePassword(ctx, got.ID, "$2a$new"))

	reloaded, err := repo.GetByID(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, "Somsak P.", reloaded.FullName)
	assert.Equal(t, model.RoleManager, reloaded.Role)
	assert.Equal(t, "$2a$new", reloaded.Password)

	exists, err := repo.ExistsByUsername(ctx, "somsak")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, repo.Delete(ctx, got.ID))
	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.User{Username: "dup", Password: "x", FullName: "A", Role: model.RoleStaff}))
	err := repo.Create(ctx, &model.User{Username: "dup", Password: "y", FullName: "B", Role: model.RoleStaff})
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err))
}

func TestUserRepository_List(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	for _, u := range []model.User{
		{Username: "admin", FullName: "Admin", Role: model.RoleAdmin},
		{Username: "mgr", FullName: "Manager One", Role: model.RoleManager},
		{Username: "staff1", FullName: "Staff One", Role: model.RoleStaff},
		{Username: "staff2", FullName: "Staff Two", Role: model.RoleStaff},
	} {
		u := u
		u.Password = "x"
		require.NoError(t, repo.Create(ctx, &u))
	}

	users, total, err := repo.List(ctx, UserFilter{Role: model.RoleStaff})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, users, 2)

	users, total, err = repo.List(ctx, UserFilter{Keyword: "One"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	users, total, err = repo.List(ctx, UserFilter{Page: 2, PageSize: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, users, 1)
	assert.Equal(t, "staff2", users[0].Username)
}

func TestNormalizePage(t *testing.T) {
	p, s := NormalizePage(0, 0)
	assert.Equal(t, 1, p)
	assert.Equal(t, 20, s)

	_, s = NormalizePage(3, 1000)
	assert.Equal(t, 100, s)
}
