package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizforge/internal/app"
	"quizforge/internal/domain"
	"quizforge/internal/infra/memory"
)

func newAuth(ttl time.Duration) *app.AuthService {
	store := memory.NewStore()
	return app.NewAuthService(store, memory.NewTokenDenylist(), "test-secret", ttl)
}

func TestSignupLoginAuthenticate(t *testing.T) {
	ctx := context.Background()
	auth := newAuth(time.Hour)

	user, err := auth.Signup(ctx, "  ada  ", "password1")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if user.Username != "ada" || user.ID == "" {
		t.Fatalf("unexpected user %+v", user)
	}
	if _, err := auth.Signup(ctx, "ada", "password2"); !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected username taken, got %v", err)
	}

	if _, err := auth.Login(ctx, "ada", "nope"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := auth.Login(ctx, "bob", "password1"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("unknown user should look like bad credentials, got %v", err)
	}

	res, err := auth.Login(ctx, "ada", "password1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	got, err := auth.Authenticate(ctx, res.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got != user {
		t.Fatalf("expected %+v, got %+v", user, got)
	}
}

func TestSignupValidation(t *testing.T) {
	auth := newAuth(time.Hour)
	for _, tc := range []struct{ username, password string }{
		{"ab", "password1"},
		{"a-very-long-username-that-goes-on", "password1"},
		{"ada", "12345"},
	} {
		if _, err := auth.Signup(context.Background(), tc.username, tc.password); !domain.IsValidation(err) {
			t.Fatalf("%q/%q: expected validation error, got %v", tc.username, tc.password, err)
		}
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	ctx := context.Background()
	auth := newAuth(time.Hour)
	if _, err := auth.Signup(ctx, "ada", "password1"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	res, err := auth.Login(ctx, "ada", "password1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := auth.Logout(ctx, res.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := auth.Authenticate(ctx, res.Token); !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("expected revoked token to be rejected, got %v", err)
	}
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	if _, err := newAuth(time.Hour).Authenticate(ctx, ""); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
	if _, err := newAuth(time.Hour).Authenticate(ctx, "not-a-jwt"); !domain.IsAuth(err) {
		t.Fatalf("expected auth error, got %v", err)
	}

	expired := newAuth(-time.Minute)
	if _, err := expired.Signup(ctx, "ada", "password1"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	res, err := expired.Login(ctx, "ada", "password1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := expired.Authenticate(ctx, res.Token); !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("expected expired token, got %v", err)
	}

	other := app.NewAuthService(memory.NewStore(), memory.NewTokenDenylist(), "other-secret", time.Hour)
	if _, err := other.Authenticate(ctx, res.Token); !domain.IsAuth(err) {
		t.Fatalf("token from another secret must be rejected, got %v", err)
	}
}
