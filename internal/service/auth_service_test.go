package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/civreg-api/internal/models"
	appErrors "github.com/noah-isme/civreg-api/pkg/errors"
)

type mockAuthRepo struct {
	userByEmail         *models.UserDetail
	userByID            *models.UserDetail
	findByEmailErr      error
	findByIDErr         error
	refreshTokens       map[string]*models.RefreshToken
	createRefreshErr    error
	updatePasswordErr   error
	lastLoginUpdated    bool
	userTokensRevoked   bool
	updatedPasswordHash string
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.UserDetail, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	if m.userByEmail == nil {
		return nil, sql.ErrNoRows
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.UserDetail, error) {
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	if m.userByID != nil {
		return m.userByID, nil
	}
	if m.userByEmail != nil {
		return m.userByEmail, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if m.updatePasswordErr != nil {
		return m.updatePasswordErr
	}
	m.updatedPasswordHash = passwordHash
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.userTokensRevoked = true
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.createRefreshErr != nil {
		return m.createRefreshErr
	}
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "civreg-api",
		Audience:           []string{"civreg-clients"},
	}
}

func approvedRegistrar(t *testing.T, password string) *models.UserDetail {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	office := "office-1"
	region := "north"
	return &models.UserDetail{
		User: models.User{
			ID:           "user-1",
			Name:         "Mariam Keita",
			Email:        "mariam@example.com",
			PasswordHash: string(hash),
			Role:         models.RoleRegistrar,
			IsApproved:   true,
			OfficeID:     &office,
		},
		OfficeRegion: &region,
	}
}

func newAuthService(repo *mockAuthRepo) (*AuthService, *mockAuditRepo) {
	audit := &mockAuditRepo{}
	svc := NewAuthService(repo, NewAuditService(audit, zap.NewNop()), validator.New(), zap.NewNop(), testAuthConfig())
	return svc, audit
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: approvedRegistrar(t, "password")}
	svc, audit := newAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "mariam@example.com", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Equal(t, models.RoleRegistrar, res.User.Role)
	assert.True(t, repo.lastLoginUpdated)
	require.Contains(t, repo.refreshTokens, res.RefreshToken)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleRegistrar, claims.Role)
	assert.False(t, claims.IsSystemAdmin)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionLogin, audit.entries[0].Action)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: approvedRegistrar(t, "password")}
	svc, _ := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "mariam@example.com", Password: "nope"})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	svc, _ := newAuthService(&mockAuthRepo{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ghost@example.com", Password: "password"})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceLoginPendingApproval(t *testing.T) {
	user := approvedRegistrar(t, "password")
	user.IsApproved = false
	repo := &mockAuthRepo{userByEmail: user}
	svc, _ := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "mariam@example.com", Password: "password"})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPendingApproval.Code, appErr.Code)
	assert.Empty(t, repo.refreshTokens)
}

func TestAuthServiceLoginSysadminBypassesApproval(t *testing.T) {
	user := approvedRegistrar(t, "password")
	user.IsApproved = false
	user.IsSystemAdmin = true
	svc, _ := newAuthService(&mockAuthRepo{userByEmail: user})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "mariam@example.com", Password: "password"})
	assert.NoError(t, err)
}

func TestAuthServiceRefreshRotation(t *testing.T) {
	user := approvedRegistrar(t, "password")
	repo := &mockAuthRepo{userByEmail: user}
	svc, _ := newAuthService(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "mariam@example.com", Password: "password"})
	require.NoError(t, err)

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, res.RefreshToken)
	assert.True(t, repo.refreshTokens[login.RefreshToken].Revoked, "used token must be revoked")

	// A rotated-out token cannot be replayed.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthServiceRefreshExpired(t *testing.T) {
	user := approvedRegistrar(t, "password")
	repo := &mockAuthRepo{
		userByEmail: user,
		refreshTokens: map[string]*models.RefreshToken{
			"stale": {ID: "rt-1", UserID: "user-1", Token: "stale", ExpiresAt: time.Now().UTC().Add(-time.Minute)},
		},
	}
	svc, _ := newAuthService(repo)

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthServiceRefreshRevokedApproval(t *testing.T) {
	user := approvedRegistrar(t, "password")
	repo := &mockAuthRepo{userByEmail: user}
	svc, _ := newAuthService(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "mariam@example.com", Password: "password"})
	require.NoError(t, err)

	// Approval withdrawn between login and refresh.
	user.IsApproved = false
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPendingApproval.Code, appErr.Code)
}

func TestAuthServiceLogout(t *testing.T) {
	repo := &mockAuthRepo{
		refreshTokens: map[string]*models.RefreshToken{
			"tok": {ID: "rt-1", UserID: "user-1", Token: "tok", ExpiresAt: time.Now().UTC().Add(time.Hour)},
		},
	}
	svc, audit := newAuthService(repo)

	t.Run("foreign token is rejected", func(t *testing.T) {
		err := svc.Logout(context.Background(), "tok", "someone-else")
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
		assert.False(t, repo.refreshTokens["tok"].Revoked)
	})

	t.Run("owner revokes", func(t *testing.T) {
		err := svc.Logout(context.Background(), "tok", "user-1")
		require.NoError(t, err)
		assert.True(t, repo.refreshTokens["tok"].Revoked)
		require.Len(t, audit.entries, 1)
		assert.Equal(t, models.AuditActionLogout, audit.entries[0].Action)
	})
}

func TestAuthServiceChangePassword(t *testing.T) {
	t.Run("wrong old password", func(t *testing.T) {
		repo := &mockAuthRepo{userByID: approvedRegistrar(t, "oldpass")}
		svc, _ := newAuthService(repo)

		err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{OldPassword: "wrong", NewPassword: "newpass1"})
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
		assert.False(t, repo.userTokensRevoked)
	})

	t.Run("short new password fails validation", func(t *testing.T) {
		repo := &mockAuthRepo{userByID: approvedRegistrar(t, "oldpass")}
		svc, _ := newAuthService(repo)

		err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{OldPassword: "oldpass", NewPassword: "abc"})
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	})

	t.Run("success revokes sessions", func(t *testing.T) {
		repo := &mockAuthRepo{userByID: approvedRegistrar(t, "oldpass")}
		svc, audit := newAuthService(repo)

		err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{OldPassword: "oldpass", NewPassword: "newpass1"})
		require.NoError(t, err)
		assert.True(t, repo.userTokensRevoked)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.updatedPasswordHash), []byte("newpass1")))
		require.Len(t, audit.entries, 1)
		assert.Equal(t, models.AuditActionPasswordChanged, audit.entries[0].Action)
	})
}

func TestAuthServiceValidateToken(t *testing.T) {
	svc, _ := newAuthService(&mockAuthRepo{})

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-jwt")
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		otherCfg := testAuthConfig()
		otherCfg.AccessTokenSecret = "other"
		other := NewAuthService(&mockAuthRepo{userByEmail: approvedRegistrar(t, "password")}, NewAuditService(&mockAuditRepo{}, zap.NewNop()), validator.New(), zap.NewNop(), otherCfg)
		res, err := other.Login(context.Background(), models.LoginRequest{Email: "mariam@example.com", Password: "password"})
		require.NoError(t, err)

		_, err = svc.ValidateToken(res.AccessToken)
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
	})
}
