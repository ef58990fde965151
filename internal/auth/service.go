package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-warehouse-orders/internal/orders"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrForbidden          = errors.New("insufficient permissions")
)

const (
	DefaultAccessTTL  = 24 * time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

type UserStore interface {
	GetUser(ctx context.Context, id string) (orders.User, error)
	GetUserByEmail(ctx context.Context, email string) (orders.User, error)
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

type Session struct {
	Token TokenPair   `json:"token"`
	User  orders.User `json:"user"`
}

type Service struct {
	Users      UserStore
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Revoked    Revoker
	Now        func() time.Time
	Log        *zap.Logger
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Service) ttl() (access, refresh time.Duration) {
	access, refresh = s.AccessTTL, s.RefreshTTL
	if access <= 0 {
		access = DefaultAccessTTL
	}
	if refresh <= 0 {
		refresh = DefaultRefreshTTL
	}
	return access, refresh
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Session{}, orders.Invalid("email", "email and password are required")
	}
	u, err := s.Users.GetUserByEmail(ctx, email)
	if errors.Is(err, orders.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if !CheckPassword(u.PasswordHash, password) {
		s.log().Info("login rejected", zap.String("email", email))
		return Session{}, ErrInvalidCredentials
	}
	if !u.IsActive {
		return Session{}, fmt.Errorf("user %s is inactive: %w", u.Email, ErrForbidden)
	}
	sess, err := s.issue(u)
	if err != nil {
		return Session{}, err
	}
	s.log().Info("user logged in", zap.String("user_id", u.ID), zap.String("role", u.Role))
	return sess, nil
}

// Refresh rotates the pair: the presented refresh token is revoked before a
// new pair is issued, so each refresh token works once.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	c, err := s.parse(ctx, refreshToken, TypeRefresh)
	if err != nil {
		return Session{}, err
	}
	u, err := s.Users.GetUser(ctx, c.UserID)
	if errors.Is(err, orders.ErrNotFound) {
		return Session{}, ErrInvalidToken
	}
	if err != nil {
		return Session{}, err
	}
	if !u.IsActive {
		return Session{}, fmt.Errorf("user %s is inactive: %w", u.Email, ErrForbidden)
	}
	if err := s.revoke(ctx, c); err != nil {
		return Session{}, err
	}
	return s.issue(u)
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	c, err := s.parse(ctx, refreshToken, TypeRefresh)
	if err != nil {
		return err
	}
	if err := s.revoke(ctx, c); err != nil {
		return err
	}
	s.log().Info("user logged out", zap.String("user_id", c.UserID))
	return nil
}

// Authenticate validates an access token.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*Claims, error) {
	return s.parse(ctx, accessToken, TypeAccess)
}

func (s *Service) Me(ctx context.Context, userID string) (orders.User, error) {
	return s.Users.GetUser(ctx, userID)
}

func (s *Service) parse(ctx context.Context, token, typ string) (*Claims, error) {
	c, err := ValidateToken(s.Secret, token, s.now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.TokenType != typ {
		return nil, fmt.Errorf("%w: expected %s token", ErrInvalidToken, typ)
	}
	if typ == TypeRefresh && s.Revoked != nil {
		revoked, err := s.Revoked.IsRevoked(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("checking revocation: %w", err)
		}
		if revoked {
			return nil, fmt.Errorf("%w: refresh token revoked", ErrInvalidToken)
		}
	}
	return c, nil
}

func (s *Service) revoke(ctx context.Context, c *Claims) error {
	if s.Revoked == nil {
		return nil
	}
	won, err := s.Revoked.Revoke(ctx, c.ID, c.ExpiresAt.Time)
	if err != nil {
		return fmt.Errorf("revoking refresh token: %w", err)
	}
	if !won {
		return fmt.Errorf("%w: refresh token already used", ErrInvalidToken)
	}
	return nil
}

func (s *Service) issue(u orders.User) (Session, error) {
	accessTTL, refreshTTL := s.ttl()
	now := s.now()
	base := Claims{UserID: u.ID, Email: u.Email, Role: u.Role}

	base.TokenType = TypeAccess
	access, _, err := GenerateToken(s.Secret, base, now, accessTTL)
	if err != nil {
		return Session{}, err
	}
	base.TokenType = TypeRefresh
	refresh, _, err := GenerateToken(s.Secret, base, now, refreshTTL)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token: TokenPair{
			AccessToken:  access,
			RefreshToken: refresh,
			ExpiresIn:    int64(accessTTL / time.Second),
			TokenType:    "Bearer",
		},
		User: u,
	}, nil
}

// EnsureUser creates the user when no account with that email exists yet.
func EnsureUser(ctx context.Context, store orders.Store, u orders.User, password string) (orders.User, bool, error) {
	if existing, err := store.GetUserByEmail(ctx, u.Email); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, orders.ErrNotFound) {
		return orders.User{}, false, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return orders.User{}, false, err
	}
	now := time.Now().UTC()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = orders.RoleStaff
	}
	u.PasswordHash = hash
	u.IsActive = true
	u.CreatedAt, u.UpdatedAt = now, now
	if err := store.InTx(ctx, func(tx orders.Tx) error { return tx.InsertUser(ctx, u) }); err != nil {
		return orders.User{}, false, err
	}
	return u, true, nil
}
