package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

func newAuthFixture(t *testing.T) (*AuthService, *auth.TokenManager, *fakeUserRepo) {
	t.Helper()
	hash, err := auth.HashPassword("correct horse", 4)
	require.NoError(t, err)
	users := newFakeUserRepo(
		domain.User{ID: "s-1", FullName: "Alex Agent", Email: "agent@example.com", PasswordHash: hash, Role: domain.RoleStaff, Status: domain.UserStatusActive},
		domain.User{ID: "s-2", FullName: "Gone", Email: "gone@example.com", PasswordHash: hash, Role: domain.RoleStaff, Status: domain.UserStatusSuspended},
	)
	tokens := auth.NewTokenManager("test-secret", 15, clockwork.NewFakeClockAt(time.Now()))
	return NewAuthService(config.AuthConfig{BcryptCost: 4}, users, tokens, nil), tokens, users
}

func TestAuthService_Login(t *testing.T) {
	svc, tokens, _ := newAuthFixture(t)

	result, err := svc.Login(context.Background(), " agent@example.com ", "correct horse")
	require.NoError(t, err)
	claims, err := tokens.ParseToken(result.Token.Token)
	require.NoError(t, err)
	assert.Equal(t, "s-1", claims.Subject)
	assert.Equal(t, domain.RoleStaff, claims.Role)

	_, err = svc.Login(context.Background(), "agent@example.com", "wrong")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))

	_, err = svc.Login(context.Background(), "nobody@example.com", "correct horse")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))

	_, err = svc.Login(context.Background(), "gone@example.com", "correct horse")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
}

func TestAuthService_RegisterCustomer(t *testing.T) {
	svc, _, users := newAuthFixture(t)

	result, err := svc.RegisterCustomer(context.Background(), "Casey", "Casey@Example.com", "long enough")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCustomer, result.User.Role)
	assert.Equal(t, "casey@example.com", result.User.Email)
	assert.NotEqual(t, "long enough", users.users[result.User.ID].PasswordHash)

	_, err = svc.RegisterCustomer(context.Background(), "Casey", "casey@example.com", "long enough")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	_, err = svc.RegisterCustomer(context.Background(), "Casey", "not-an-email", "long enough")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	_, err = svc.RegisterCustomer(context.Background(), "Casey", "c2@example.com", "short")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestAuthService_RegisterCustomerLosesInsertRace(t *testing.T) {
	svc, _, users := newAuthFixture(t)
	users.createErr = fmt.Errorf("users_email_key: %w", domain.ErrAlreadyExists)

	_, err := svc.RegisterCustomer(context.Background(), "Casey", "casey@example.com", "long enough")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
}
