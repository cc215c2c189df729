package auth

import (
	"context"
	"testing"

	"estate-backend/internal/domain"
	"estate-backend/internal/infrastructure/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuth(t *testing.T) *Service {
	db, err := database.OpenSQLite(":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return &Service{DB: db}
}

func TestRegisterAndLogin(t *testing.T) {
	svc := setupAuth(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Email: "Jane@Example.com", Password: "Secret123!", Fullname: "Jane  Doe"})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", u.Email)
	assert.Equal(t, "Jane Doe", u.Fullname)
	assert.NotEqual(t, "Secret123!", u.PasswordHash)

	found, err := svc.FindByEmailAndPassword(ctx, "jane@example.com", "Secret123!")
	require.NoError(t, err)
	assert.Equal(t, u.UserID, found.UserID)

	_, err = svc.FindByEmailAndPassword(ctx, "jane@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrIncorrectPassword)
	_, err = svc.FindByEmailAndPassword(ctx, "nobody@example.com", "Secret123!")
	assert.ErrorIs(t, err, ErrInvalidEmail)
	_, err = svc.FindByEmailAndPassword(ctx, "", "")
	assert.ErrorIs(t, err, ErrEmailPasswordRequired)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := setupAuth(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterInput{Email: "a@example.com", Password: "Secret123!", Fullname: "Ann"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{Email: "A@example.com", Password: "Secret123!", Fullname: "Ann"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegister_Validation(t *testing.T) {
	svc := setupAuth(t)
	_, err := svc.Register(context.Background(), RegisterInput{Email: "not-an-email", Password: "Secret123!", Fullname: "Ann"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.Register(context.Background(), RegisterInput{Email: "a@example.com", Password: "Secret123!", Fullname: "R2-D2 <script>"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestVerifyUser(t *testing.T) {
	_, err := VerifyUser(nil)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = VerifyUser(map[string]interface{}{"user_id": "nope"})
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	u, err := VerifyUser(map[string]interface{}{"user_id": "550e8400-e29b-41d4-a716-446655440000", "email": "x@y.z"})
	require.NoError(t, err)
	assert.Equal(t, "x@y.z", u.Email)
	assert.Equal(t, "", u.Fullname)
}
