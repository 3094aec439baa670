package auth

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/matthieukhl/backoffice/internal/apperr"
	"github.com/matthieukhl/backoffice/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]*Identity
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]*Identity{}}
}

func (m *memoryCache) Get(_ context.Context, token string) (*Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.entries[token]
	if !ok {
		return nil, ErrCacheMiss
	}
	return id, nil
}

func (m *memoryCache) Set(_ context.Context, token string, id *Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[token] = id
	return nil
}

func (m *memoryCache) Delete(_ context.Context, tokens ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tokens {
		delete(m.entries, t)
	}
	return nil
}

func newService(t *testing.T, cache IdentityCache) *Service {
	t.Helper()
	return NewService(storetest.New(t), cache, zap.NewNop(), WithBcryptCost(bcrypt.MinCost))
}

func TestRegisterLoginAuthenticate(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterInput{Username: "ada", Email: "Ada@Example.com", Password: "s3cret"})
	require.NoError(t, err)
	require.NotEmpty(t, reg.Token)
	assert.Equal(t, "ada@example.com", reg.User.Email)

	login, err := svc.Login(ctx, "ada", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, reg.Token, login.Token)

	id, err := svc.Authenticate(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, "ada", id.Username)
	assert.Equal(t, "ada@example.com", id.Email)
	assert.Equal(t, RoleStandard, id.Role())
}

func TestRegisterValidation(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Username: "", Password: ""})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "username")
	assert.Contains(t, ve.Fields, "password")

	_, err = svc.Register(ctx, RegisterInput{Username: "ada", Password: "x"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{Username: "ada", Password: "y"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"Username already exists"}, ve.Fields["username"])
}

func TestRegisterRejectsTakenEmail(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Username: "ada", Email: "ada@example.com", Password: "pw"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Username: "mallory", Email: " ADA@example.com", Password: "pw"})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "email")

	_, err = svc.Login(ctx, "mallory", "pw")
	assert.ErrorIs(t, err, apperr.ErrAuthenticationRequired)

	// accounts without an email never collide
	_, err = svc.Register(ctx, RegisterInput{Username: "bob", Password: "pw"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{Username: "carol", Password: "pw"})
	require.NoError(t, err)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterInput{Username: "ada", Password: "right"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "ada", "wrong")
	assert.ErrorIs(t, err, apperr.ErrAuthenticationRequired)

	_, err = svc.Login(ctx, "nobody", "right")
	assert.ErrorIs(t, err, apperr.ErrAuthenticationRequired)
}

func TestLogoutRevokesTokenAndCache(t *testing.T) {
	cache := newMemoryCache()
	svc := newService(t, cache)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterInput{Username: "ada", Password: "pw", IsStaff: true})
	require.NoError(t, err)

	id, err := svc.Authenticate(ctx, reg.Token)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, id.Role())
	_, err = cache.Get(ctx, reg.Token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, id))
	_, err = cache.Get(ctx, reg.Token)
	assert.True(t, errors.Is(err, ErrCacheMiss))

	_, err = svc.Authenticate(ctx, reg.Token)
	assert.ErrorIs(t, err, apperr.ErrAuthenticationRequired)

	login, err := svc.Login(ctx, "ada", "pw")
	require.NoError(t, err)
	assert.NotEqual(t, reg.Token, login.Token)

	assert.ErrorIs(t, svc.Logout(ctx, nil), apperr.ErrAuthenticationRequired)
}

func TestAuthenticateEmptyToken(t *testing.T) {
	svc := newService(t, nil)
	_, err := svc.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, apperr.ErrAuthenticationRequired)
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, FromContext(ctx))

	id := &Identity{UserID: 1, Username: "ada"}
	assert.Same(t, id, FromContext(WithIdentity(ctx, id)))

	var anon *Identity
	assert.Equal(t, RoleStandard, anon.Role())
}
