package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"quizforge/internal/domain"
)

// UserStore persists accounts and their password hashes.
type UserStore interface {
	CreateUser(ctx context.Context, user domain.User, passwordHash []byte) error
	UserByName(ctx context.Context, username string) (domain.User, []byte, error)
}

// TokenDenylist remembers revoked tokens until they would have expired anyway.
type TokenDenylist interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// AuthService issues and checks bearer tokens.
type AuthService struct {
	users    UserStore
	denylist TokenDenylist
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

type authClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func NewAuthService(users UserStore, denylist TokenDenylist, secret string, ttl time.Duration) *AuthService {
	return &AuthService{
		users:    users,
		denylist: denylist,
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Signup creates an account.
func (a *AuthService) Signup(ctx context.Context, username, password string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if n := utf8.RuneCountInString(username); n < 3 || n > 32 {
		return domain.User{}, &domain.ValidationError{Field: "username", Reason: "must be 3 to 32 characters"}
	}
	if len(password) < 6 {
		return domain.User{}, &domain.ValidationError{Field: "password", Reason: "must be at least 6 characters"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{ID: uuid.NewString(), Username: username}
	if err := a.users.CreateUser(ctx, user, hash); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Login checks credentials and issues a signed token.
func (a *AuthService) Login(ctx context.Context, username, password string) (domain.LoginResult, error) {
	user, hash, err := a.users.UserByName(ctx, strings.TrimSpace(username))
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.LoginResult{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return domain.LoginResult{}, err
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return domain.LoginResult{}, domain.ErrInvalidCredentials
	}

	now := a.now()
	claims := authClaims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return domain.LoginResult{}, fmt.Errorf("sign token: %w", err)
	}
	return domain.LoginResult{Token: token, User: user}, nil
}

// Authenticate resolves a bearer token into its user.
func (a *AuthService) Authenticate(ctx context.Context, token string) (domain.User, error) {
	claims, err := a.parse(token)
	if err != nil {
		return domain.User{}, err
	}
	revoked, err := a.denylist.IsRevoked(ctx, token)
	if err != nil {
		return domain.User{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return domain.User{}, domain.ErrSessionExpired
	}
	return domain.User{ID: claims.Subject, Username: claims.Username}, nil
}

// Logout revokes token for the rest of its lifetime.
func (a *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := a.parse(token)
	if err != nil {
		return err
	}
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(a.now())
	}
	if ttl <= 0 {
		return nil
	}
	return a.denylist.Revoke(ctx, token, ttl)
}

func (a *AuthService) parse(token string) (*authClaims, error) {
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}
	claims := &authClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil || !parsed.Valid {
		return nil, domain.ErrSessionExpired
	}
	if claims.Subject == "" {
		return nil, domain.ErrUnauthenticated
	}
	return claims, nil
}
