package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/event-board/internal/apperror"
	"github.com/sakif/event-board/internal/auth"
	"github.com/sakif/event-board/internal/model"
)

func newTestAuthService(users *fakeUserRepo, v auth.Verifier) *AuthService {
	return NewAuthService(users, v, auth.NewPasswordServiceWithCost(bcrypt.MinCost), testLogger)
}

func seedAdmin(t *testing.T, svc *AuthService, email, password string) *model.User {
	t.Helper()
	u, err := svc.ProvisionAdmin(context.Background(), email, "Admin", password)
	require.NoError(t, err)
	return u
}

func TestLoginWithAccessToken(t *testing.T) {
	users := newFakeUserRepo()
	v := &fakeVerifier{identity: &model.Identity{Sub: "g-1", Email: "Someone@Example.com", Name: "Someone", Picture: "pic"}}
	svc := newTestAuthService(users, v)

	id, err := svc.LoginWithAccessToken(context.Background(), "  tok  ")
	require.NoError(t, err)
	assert.Equal(t, "g-1", id.Sub)

	stored, ok := users.byEmail["someone@example.com"]
	require.True(t, ok, "account is keyed by lowercased email")
	assert.Equal(t, "g-1", stored.Sub)
	assert.Equal(t, "pic", stored.Picture)
	assert.False(t, stored.LastLoginAt.IsZero())
}

func TestLoginWithAccessToken_Failures(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		verifier *fakeVerifier
		wantErr  error
	}{
		{
			name:     "missing token",
			token:    " ",
			verifier: &fakeVerifier{},
			wantErr:  apperror.ErrValidation,
		},
		{
			name:     "provider rejects",
			token:    "tok",
			verifier: &fakeVerifier{err: errors.New("401 from userinfo")},
			wantErr:  apperror.ErrUnauthenticated,
		},
		{
			name:     "no email",
			token:    "tok",
			verifier: &fakeVerifier{identity: &model.Identity{Sub: "g-1"}},
			wantErr:  apperror.ErrUnauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := newFakeUserRepo()
			svc := newTestAuthService(users, tt.verifier)

			_, err := svc.LoginWithAccessToken(context.Background(), tt.token)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Equal(t, 0, users.upserts)
		})
	}
}

func TestLoginWithAccessToken_StoreFailure(t *testing.T) {
	users := newFakeUserRepo()
	users.upsertErr = errors.New("disk full")
	svc := newTestAuthService(users, &fakeVerifier{identity: &model.Identity{Sub: "g-1", Email: "a@b.c"}})

	_, err := svc.LoginWithAccessToken(context.Background(), "tok")
	require.Error(t, err)

	var appErr *apperror.AppError
	assert.False(t, errors.As(err, &appErr), "store failures are not client errors")
}

func TestLoginWithAccessToken_KeepsAdminFlag(t *testing.T) {
	users := newFakeUserRepo()
	svc := newTestAuthService(users, &fakeVerifier{identity: &model.Identity{Sub: "g-2", Email: "boss@test.com"}})
	seedAdmin(t, svc, "boss@test.com", "s3cret")

	_, err := svc.LoginWithAccessToken(context.Background(), "tok")
	require.NoError(t, err)

	stored := users.byEmail["boss@test.com"]
	assert.True(t, stored.IsAdmin)
	assert.NotEmpty(t, stored.PasswordHash)
	assert.Equal(t, "g-2", stored.Sub)
}

func TestAdminLogin(t *testing.T) {
	users := newFakeUserRepo()
	svc := newTestAuthService(users, &fakeVerifier{})
	admin := seedAdmin(t, svc, "boss@test.com", "s3cret")

	id, err := svc.AdminLogin(context.Background(), " BOSS@test.com ", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, admin.Sub, id.Sub)
	assert.Equal(t, "boss@test.com", id.Email)
	assert.Equal(t, "Admin", id.Name)
}

func TestAdminLogin_Failures(t *testing.T) {
	users := newFakeUserRepo()
	svc := newTestAuthService(users, &fakeVerifier{})
	seedAdmin(t, svc, "boss@test.com", "s3cret")
	users.byEmail["plain@test.com"] = &model.User{Sub: "p", Email: "plain@test.com"}
	users.byEmail["broken@test.com"] = &model.User{Sub: "b", Email: "broken@test.com", IsAdmin: true}

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"missing email", "", "x", apperror.ErrValidation},
		{"missing password", "boss@test.com", "", apperror.ErrValidation},
		{"unknown email", "nobody@test.com", "x", apperror.ErrUnauthenticated},
		{"not an admin", "plain@test.com", "x", apperror.ErrForbidden},
		{"wrong password", "boss@test.com", "nope", apperror.ErrUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AdminLogin(context.Background(), tt.email, tt.password)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}

	t.Run("admin without hash", func(t *testing.T) {
		_, err := svc.AdminLogin(context.Background(), "broken@test.com", "x")
		require.Error(t, err)
		var appErr *apperror.AppError
		assert.False(t, errors.As(err, &appErr), "misprovisioned admin is a server fault")
	})
}

func TestUserProfile(t *testing.T) {
	users := newFakeUserRepo()
	svc := newTestAuthService(users, &fakeVerifier{})
	users.byEmail["a@test.com"] = &model.User{Sub: "u1", Email: "a@test.com", Name: "A"}

	u, err := svc.UserProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "A", u.Name)

	u, err = svc.UserProfile(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, u)

	users.getErr = errors.New("connection reset")
	_, err = svc.UserProfile(context.Background(), "u1")
	assert.Error(t, err)
}

func TestProvisionAdmin(t *testing.T) {
	users := newFakeUserRepo()
	svc := newTestAuthService(users, &fakeVerifier{})

	t.Run("new account gets a generated sub", func(t *testing.T) {
		u, err := svc.ProvisionAdmin(context.Background(), "New@Test.com", "", "pw")
		require.NoError(t, err)
		assert.NotEmpty(t, u.Sub)
		assert.True(t, u.IsAdmin)
		assert.NotEqual(t, "pw", u.PasswordHash)
		assert.Contains(t, users.byEmail, "new@test.com")
	})

	t.Run("existing account keeps sub and name", func(t *testing.T) {
		users.byEmail["g@test.com"] = &model.User{Sub: "google-sub", Email: "g@test.com", Name: "Gee"}

		u, err := svc.ProvisionAdmin(context.Background(), "g@test.com", "", "pw")
		require.NoError(t, err)
		assert.Equal(t, "google-sub", u.Sub)
		assert.Equal(t, "Gee", u.Name)
		assert.True(t, users.byEmail["g@test.com"].IsAdmin)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		_, err := svc.ProvisionAdmin(context.Background(), " ", "", "pw")
		assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)

		_, err = svc.ProvisionAdmin(context.Background(), "x@test.com", "", "")
		assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)
	})
}
