package memory

import (
	"context"
	"sync"
	"time"
)

// TokenDenylist is an in-process set of revoked tokens with expiry.
type TokenDenylist struct {
	mu      sync.Mutex
	clock   func() time.Time
	revoked map[string]time.Time
}

func NewTokenDenylist() *TokenDenylist {
	return &TokenDenylist{
		clock:   time.Now,
		revoked: make(map[string]time.Time),
	}
}

func (d *TokenDenylist) Revoke(_ context.Context, token string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.revoked[token] = d.clock().Add(ttl)
	return nil
}

func (d *TokenDenylist) IsRevoked(_ context.Context, token string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	expiresAt, ok := d.revoked[token]
	if !ok {
		return false, nil
	}
	if !expiresAt.After(d.clock()) {
		delete(d.revoked, token)
		return false, nil
	}
	return true, nil
}
