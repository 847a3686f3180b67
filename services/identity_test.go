package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/execdash/execdash/db"
	"github.com/execdash/execdash/store"
)

func TestGetCurrentProfile_ProvisionsFromHints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sess := &Session{
		UserID:   "u-ceo",
		Email:    "jane@example.com",
		UserMeta: map[string]interface{}{"role": "CEO", "full_name": "Jane Doe", "org_id": "org-9"},
	}
	p := env.identity.GetCurrentProfile(ctx, sess)
	require.NotNil(t, p)
	assert.Equal(t, db.RoleCEO, p.Role)
	assert.Equal(t, "Jane Doe", p.DisplayName)
	assert.Equal(t, "org-9", p.OrgID)

	// Second call returns the stored row, hints are not re-applied.
	sess.UserMeta["role"] = "admin"
	again := env.identity.GetCurrentProfile(ctx, sess)
	require.NotNil(t, again)
	assert.Equal(t, db.RoleCEO, again.Role)
}

func TestGetCurrentProfile_Defaults(t *testing.T) {
	env := newTestEnv(t)

	p := env.identity.GetCurrentProfile(context.Background(), &Session{UserID: "u1", Email: "john.smith@example.com"})
	require.NotNil(t, p)
	assert.Equal(t, db.RoleStaff, p.Role)
	assert.Equal(t, db.DefaultOrgID, p.OrgID)
	assert.Equal(t, "John Smith", p.DisplayName)
}

func TestGetCurrentProfile_AppMetaWins(t *testing.T) {
	env := newTestEnv(t)

	p := env.identity.GetCurrentProfile(context.Background(), &Session{
		UserID:   "u1",
		AppMeta:  map[string]interface{}{"role": "cto"},
		UserMeta: map[string]interface{}{"role": "admin"},
	})
	require.NotNil(t, p)
	assert.Equal(t, db.RoleCTO, p.Role)
	assert.Equal(t, "User", p.DisplayName)
}

func TestGetCurrentProfile_UnknownRoleHintFallsBackToStaff(t *testing.T) {
	env := newTestEnv(t)

	p := env.identity.GetCurrentProfile(context.Background(), &Session{
		UserID:   "u1",
		UserMeta: map[string]interface{}{"role": "superuser"},
	})
	require.NotNil(t, p)
	assert.Equal(t, db.RoleStaff, p.Role)
}

func TestGetCurrentProfile_NilSession(t *testing.T) {
	env := newTestEnv(t)
	assert.Nil(t, env.identity.GetCurrentProfile(context.Background(), nil))
	assert.Nil(t, env.identity.GetCurrentProfile(context.Background(), &Session{}))
}

// MockProfileRepository mocks store.ProfileRepository
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) Get(ctx context.Context, userID string) (*db.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.Profile), args.Error(1)
}

func (m *MockProfileRepository) Create(ctx context.Context, p *db.Profile) error {
	return m.Called(ctx, p).Error(0)
}

func TestGetCurrentProfile_LookupErrorReturnsNil(t *testing.T) {
	repo := new(MockProfileRepository)
	repo.On("Get", mock.Anything, "u1").Return(nil, errors.New("connection refused"))

	svc := NewIdentityService(repo, nil)
	assert.Nil(t, svc.GetCurrentProfile(context.Background(), &Session{UserID: "u1"}))
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestGetCurrentProfile_ConcurrentFirstLoginConverges(t *testing.T) {
	winner := &db.Profile{UserID: "u1", OrgID: "org-1", Role: db.RoleCTO, DisplayName: "First"}

	repo := new(MockProfileRepository)
	repo.On("Get", mock.Anything, "u1").Return(nil, store.ErrNotFound).Once()
	repo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	repo.On("Get", mock.Anything, "u1").Return(winner, nil).Once()

	svc := NewIdentityService(repo, nil)
	p := svc.GetCurrentProfile(context.Background(), &Session{UserID: "u1", UserMeta: map[string]interface{}{"role": "ceo"}})

	require.NotNil(t, p)
	assert.Equal(t, db.RoleCTO, p.Role, "the row that won the insert is returned")
	repo.AssertExpectations(t)
}
