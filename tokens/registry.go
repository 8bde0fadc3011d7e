// Package tokens maps short-lived opaque client tokens to provider payment
// ids. The registry is a process-local accelerator for status polling, not
// the source of truth for payment state: losing it (restart) only degrades
// polling, the webhook path is unaffected.
package tokens

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

const (
	// DefaultTTL matches the client polling window with headroom; an expired
	// token makes polling report "not found", which callers must surface as
	// indeterminate, never as a failed payment.
	DefaultTTL           = 30 * time.Minute
	defaultSweepInterval = time.Minute
)

// Deposit is what a token resolves back to: the provider payment id plus the
// intent the charge was created from, so the polling path can ledger the
// deposit without a second provider lookup.
type Deposit struct {
	ProviderPaymentID string
	Nome              string
	AmountCents       int64
	PixType           *string
	PixKey            *string
}

type entry struct {
	dep       Deposit
	createdAt time.Time
}

// Registry issues opaque tokens and resolves them until the TTL elapses.
// Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry

	ttl  time.Duration
	now  func() time.Time
	done chan struct{}
	once sync.Once
}

// NewRegistry starts a registry with a background sweep on interval. A zero
// ttl or interval falls back to the defaults.
func NewRegistry(ttl, interval time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	r := &Registry{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go r.sweep(interval)
	return r
}

// Issue registers the deposit under a fresh opaque token.
func (r *Registry) Issue(dep Deposit) string {
	buf := make([]byte, 18)
	rand.Read(buf)
	token := "tok_" + hex.EncodeToString(buf)

	r.mu.Lock()
	r.entries[token] = entry{dep: dep, createdAt: r.now()}
	r.mu.Unlock()
	return token
}

// Resolve returns the deposit for token, or ok=false when the token is
// unknown or older than the TTL. Expired entries are removed on read as well
// as by the sweeper.
func (r *Registry) Resolve(token string) (Deposit, bool) {
	r.mu.RLock()
	e, ok := r.entries[token]
	r.mu.RUnlock()
	if !ok {
		return Deposit{}, false
	}
	if r.now().Sub(e.createdAt) > r.ttl {
		r.mu.Lock()
		delete(r.entries, token)
		r.mu.Unlock()
		return Deposit{}, false
	}
	return e.dep, true
}

// Len reports the live entry count, expired or not.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Close stops the background sweeper.
func (r *Registry) Close() {
	r.once.Do(func() { close(r.done) })
}

func (r *Registry) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.removeExpired()
		}
	}
}

func (r *Registry) removeExpired() {
	now := r.now()
	r.mu.Lock()
	for token, e := range r.entries {
		if now.Sub(e.createdAt) > r.ttl {
			delete(r.entries, token)
		}
	}
	r.mu.Unlock()
}
