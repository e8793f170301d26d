package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campushq/exam-office-api/internal/models"
	appErrors "github.com/campushq/exam-office-api/pkg/errors"
)

type mockAuthRepo struct {
	usersByEmail map[string]*models.User
	usersByID    map[string]*models.User
	tokens       map[string]*models.RefreshToken

	createdTokens []*models.RefreshToken
	revokedIDs    []string
	revokedUsers  []string
	auditActions  []string
	passwordHash  string
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{
		usersByEmail: map[string]*models.User{},
		usersByID:    map[string]*models.User{},
		tokens:       map[string]*models.RefreshToken{},
	}
}

func (m *mockAuthRepo) addUser(u *models.User) {
	m.usersByEmail[u.Email] = u
	m.usersByID[u.ID] = u
}

func (m *mockAuthRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := m.usersByEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (m *mockAuthRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	u, ok := m.usersByID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (m *mockAuthRepo) UpdateLastLogin(context.Context, string, time.Time) error { return nil }

func (m *mockAuthRepo) UpdatePassword(_ context.Context, _ string, hash string, _ time.Time) error {
	m.passwordHash = hash
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(_ context.Context, userID string) error {
	m.revokedUsers = append(m.revokedUsers, userID)
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	m.tokens[token.Token] = token
	m.createdTokens = append(m.createdTokens, token)
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(_ context.Context, token string) (*models.RefreshToken, error) {
	t, ok := m.tokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return t, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(_ context.Context, id string, _ time.Time) error {
	m.revokedIDs = append(m.revokedIDs, id)
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	m.auditActions = append(m.auditActions, log.Action)
	return nil
}

func authTestConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "exam-office-api",
	}
}

func controllerUser(t *testing.T) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "user-1",
		Email:        "controller@campus.edu",
		PasswordHash: string(hash),
		FullName:     "Exam Controller",
		Role:         models.RoleExamController,
		Active:       true,
	}
}

func TestLoginIssuesTokenPair(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(controllerUser(t))
	svc := NewAuthService(repo, nil, zap.NewNop(), authTestConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "controller@campus.edu",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, models.RoleExamController, resp.User.Role)
	require.Len(t, repo.createdTokens, 1)
	assert.Contains(t, repo.auditActions, models.AuditActionLogin)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleExamController, claims.Role)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(controllerUser(t))
	svc := NewAuthService(repo, nil, zap.NewNop(), authTestConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "controller@campus.edu",
		Password: "wrong",
	})
	require.Error(t, err)

	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	repo := newMockAuthRepo()
	user := controllerUser(t)
	user.Active = false
	repo.addUser(user)
	svc := NewAuthService(repo, nil, zap.NewNop(), authTestConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "controller@campus.edu",
		Password: "s3cret-pass",
	})
	require.Error(t, err)

	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestRefreshTokenRotates(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(controllerUser(t))
	repo.tokens["old-token"] = &models.RefreshToken{
		ID:        "rt-1",
		UserID:    "user-1",
		Token:     "old-token",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	svc := NewAuthService(repo, nil, zap.NewNop(), authTestConfig())

	resp, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEqual(t, "old-token", resp.RefreshToken)
	assert.Contains(t, repo.revokedIDs, "rt-1")
}

func TestRefreshTokenRejectsExpired(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(controllerUser(t))
	repo.tokens["stale"] = &models.RefreshToken{
		ID:        "rt-2",
		UserID:    "user-1",
		Token:     "stale",
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}
	svc := NewAuthService(repo, nil, zap.NewNop(), authTestConfig())

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)

	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(controllerUser(t))
	svc := NewAuthService(repo, nil, zap.NewNop(), authTestConfig())

	err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		OldPassword: "s3cret-pass",
		NewPassword: "brand-new-pass",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, repo.passwordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.passwordHash), []byte("brand-new-pass")))
	assert.Contains(t, repo.revokedUsers, "user-1")
	assert.Contains(t, repo.auditActions, models.AuditActionPasswordChange)
}

func TestChangePasswordRejectsWrongOldPassword(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(controllerUser(t))
	svc := NewAuthService(repo, nil, zap.NewNop(), authTestConfig())

	err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		OldPassword: "not-it",
		NewPassword: "brand-new-pass",
	})
	require.Error(t, err)

	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(controllerUser(t))
	svc := NewAuthService(repo, nil, zap.NewNop(), authTestConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "controller@campus.edu",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)

	other := NewAuthService(repo, nil, zap.NewNop(), AuthConfig{
		AccessTokenSecret: "different-secret",
		AccessTokenExpiry: time.Hour,
	})
	_, err = other.ValidateToken(resp.AccessToken)
	require.Error(t, err)
}
