package database

import (
	"context"
	"testing"
	"time"

	"carrental/internal/domain"
	"carrental/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := &models.User{Name: "Olga", Email: "Owner@Example.com", PasswordHash: "h", Role: models.RoleOwner}
	require.NoError(t, db.CreateUser(ctx, owner))
	assert.Equal(t, "owner@example.com", owner.Email)

	t.Run("DuplicateEmailIsCaseInsensitive", func(t *testing.T) {
		dup := &models.User{Name: "Other", Email: "OWNER@example.com", PasswordHash: "h", Role: models.RoleCustomer}
		assert.ErrorIs(t, db.CreateUser(ctx, dup), domain.ErrEmailTaken)
	})

	t.Run("Lookup", func(t *testing.T) {
		byEmail, err := db.GetUserByEmail(ctx, " owner@EXAMPLE.com ")
		require.NoError(t, err)
		assert.Equal(t, owner.ID, byEmail.ID)

		byID, err := db.GetUserByID(ctx, owner.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleOwner, byID.Role)
		assert.Equal(t, "h", byID.PasswordHash)

		_, err = db.GetUserByID(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = db.GetUserByEmail(ctx, "missing@example.com")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("ListByRoleNewestFirst", func(t *testing.T) {
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		first := &models.User{Name: "A", Email: "a@example.com", PasswordHash: "h", Role: models.RoleCustomer, CreatedAt: base}
		second := &models.User{Name: "B", Email: "b@example.com", PasswordHash: "h", Role: models.RoleCustomer, CreatedAt: base.Add(time.Hour)}
		require.NoError(t, db.CreateUser(ctx, first))
		require.NoError(t, db.CreateUser(ctx, second))

		customers, err := db.ListUsersByRole(ctx, models.RoleCustomer)
		require.NoError(t, err)
		require.Len(t, customers, 2)
		assert.Equal(t, "B", customers[0].Name)
		assert.Equal(t, "A", customers[1].Name)
	})
}
