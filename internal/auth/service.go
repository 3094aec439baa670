package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/matthieukhl/backoffice/internal/apperr"
	"github.com/matthieukhl/backoffice/internal/models"
	"github.com/matthieukhl/backoffice/internal/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned by Login for an unknown user or a wrong password
var ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", apperr.ErrAuthenticationRequired)

// Service is the database-backed identity provider. Each user holds at most
// one token, reused across logins and revoked on logout.
type Service struct {
	store      *store.Store
	cache      IdentityCache
	logger     *zap.Logger
	now        func() time.Time
	bcryptCost int
}

type Option func(*Service)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithBcryptCost overrides the password hashing cost
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

func NewService(st *store.Store, cache IdentityCache, logger *zap.Logger, opts ...Option) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	s := &Service{
		store:      st,
		cache:      cache,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session is a user together with the token it authenticates with
type Session struct {
	Token string
	User  *models.User
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	IsStaff  bool
}

// Register creates an account and issues its token
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.Password == "" {
		ve := &apperr.ValidationError{}
		if in.Username == "" {
			ve.Add("username", "Username and password required")
		}
		if in.Password == "" {
			ve.Add("password", "Username and password required")
		}
		return nil, ve
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, apperr.NewValidationError("password", "Ensure this field has no more than 72 bytes.")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &models.User{
		Username:     in.Username,
		Email:        models.NormalizeEmail(in.Email),
		PasswordHash: string(hash),
		IsStaff:      in.IsStaff,
		CreatedAt:    now,
	}
	token := uuid.NewString()

	err = s.store.InTx(ctx, func(tx *store.Store) error {
		if err := tx.EnsureUserEmailFree(ctx, user.Email); err != nil {
			return err
		}
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		return tx.SaveToken(ctx, user.ID, token, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.Username),
		zap.Bool("is_staff", user.IsStaff))

	return &Session{Token: token, User: user}, nil
}

// Login checks credentials and returns the user's token, issuing one if needed
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	var token string
	err = s.store.InTx(ctx, func(tx *store.Store) error {
		existing, err := tx.TokenForUser(ctx, user.ID)
		if err == nil {
			token = existing
			return nil
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		token = uuid.NewString()
		return tx.SaveToken(ctx, user.ID, token, s.now())
	})
	if err != nil {
		return nil, err
	}

	return &Session{Token: token, User: user}, nil
}

// Logout revokes the caller's token
func (s *Service) Logout(ctx context.Context, id *Identity) error {
	if id == nil {
		return apperr.ErrAuthenticationRequired
	}

	keys, err := s.store.DeleteTokensForUser(ctx, id.UserID)
	if err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("failed to evict tokens from cache", zap.Int64("user_id", id.UserID), zap.Error(err))
	}
	return nil
}

// Authenticate resolves a token into the identity of its user. A cached
// identity keeps the staff flag it was stored with until the cache entry
// expires or Logout evicts it.
func (s *Service) Authenticate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, apperr.ErrAuthenticationRequired
	}

	id, err := s.cache.Get(ctx, token)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		s.logger.Warn("identity cache lookup failed", zap.Error(err))
	}

	user, err := s.store.GetUserByToken(ctx, token)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("invalid token: %w", apperr.ErrAuthenticationRequired)
	}
	if err != nil {
		return nil, err
	}

	id = IdentityFromUser(user)
	if err := s.cache.Set(ctx, token, id); err != nil {
		s.logger.Warn("failed to cache identity", zap.Error(err))
	}
	return id, nil
}
