package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"tableside/internal/domain"
	rediscache "tableside/internal/infra/redis"
	"tableside/internal/logger"
	"tableside/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost       = 10
	revokedKeyPrefix = "revoked:"
)

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

type AuthService struct {
	repo     repository.AdminRepository
	secret   []byte
	ttl      time.Duration
	denylist rediscache.CacheInterface
	log      *logger.Logger
	now      func() time.Time
}

// Claims are carried by every issued token. RegisteredClaims.ID is the jti
// used for revocation.
type Claims struct {
	UserID   uint64 `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type AdminInfo struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      AdminInfo `json:"user"`
}

type credentialsInput struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

func NewAuthService(r repository.AdminRepository, secret string, ttl time.Duration, log *logger.Logger) *AuthService {
	return &AuthService{
		repo:   r,
		secret: []byte(secret),
		ttl:    ttl,
		log:    log,
		now:    time.Now,
	}
}

// SetDenylist enables token revocation on logout.
func (s *AuthService) SetDenylist(c rediscache.CacheInterface) {
	s.denylist = c
}

// Login verifies the credentials and issues a signed token. Unknown users and
// wrong passwords fail with the same error.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, validationError("Username and password required")
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		s.log.Error(ctx, "login_failed", "Failed to load admin user", err)
		return nil, internal(err)
	}

	hash := fallbackHash()
	if user != nil {
		hash = []byte(user.PasswordHash)
	}
	cmpErr := bcrypt.CompareHashAndPassword(hash, []byte(password))
	if user == nil || cmpErr != nil {
		s.log.Warn(ctx, "login_rejected", "Invalid credentials", "username", username)
		return nil, authError("Invalid credentials")
	}

	now := s.now()
	exp := now.Add(s.ttl)
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		s.log.Error(ctx, "login_failed", "Failed to sign token", err)
		return nil, internal(err)
	}

	s.log.Info(ctx, "admin_logged_in", "Admin logged in", "user_id", user.ID)
	return &LoginResult{
		Token:     token,
		ExpiresAt: exp.UTC().Truncate(time.Second),
		User:      AdminInfo{ID: user.ID, Username: user.Username},
	}, nil
}

// Authenticate validates a bearer token and returns its claims.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, authError("Invalid or expired token")
	}

	if s.denylist != nil && claims.RegisteredClaims.ID != "" {
		_, err := s.denylist.Get(ctx, revokedKeyPrefix+claims.RegisteredClaims.ID)
		switch {
		case err == nil:
			return nil, authError("Invalid or expired token")
		case !errors.Is(err, rediscache.ErrCacheMiss):
			// Revocation is unavailable; the signature and expiry still hold.
			s.log.Warn(ctx, "denylist_unavailable", "Token denylist lookup failed", "error", err.Error())
		}
	}
	return claims, nil
}

// Logout revokes the token until it would have expired anyway. Without a
// denylist it does nothing.
func (s *AuthService) Logout(ctx context.Context, claims *Claims) error {
	if s.denylist == nil || claims == nil || claims.ExpiresAt == nil || claims.RegisteredClaims.ID == "" {
		return nil
	}
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.denylist.Set(ctx, revokedKeyPrefix+claims.RegisteredClaims.ID, []byte("1"), ttl); err != nil {
		s.log.Error(ctx, "logout_failed", "Failed to revoke token", err, "user_id", claims.UserID)
		return internal(err)
	}
	s.log.Info(ctx, "admin_logged_out", "Admin logged out", "user_id", claims.UserID)
	return nil
}

// UpsertAdmin creates the admin or resets the password of an existing one.
func (s *AuthService) UpsertAdmin(ctx context.Context, username, password string) (*domain.AdminUser, error) {
	in := credentialsInput{Username: strings.TrimSpace(username), Password: password}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, internal(err)
	}

	user := &domain.AdminUser{Username: in.Username, PasswordHash: string(hash)}
	if err := s.repo.Upsert(ctx, user); err != nil {
		s.log.Error(ctx, "upsert_admin_failed", "Failed to save admin user", err, "username", in.Username)
		return nil, internal(err)
	}
	s.log.Info(ctx, "admin_upserted", "Admin user saved", "username", in.Username)
	return user, nil
}

// fallbackHash is compared against when the username is unknown so the
// response time does not reveal whether the account exists.
func fallbackHash() []byte {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcryptCost)
	})
	return dummyHash
}
