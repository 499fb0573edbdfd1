// Package cache provides a namespaced key-value cache with per-entry expiry.
//
// Keys are built as "<prefix>:<part>:<part>..." where prefix is the
// normalized application name, so several services can share one Redis
// instance without colliding.
//
// Two Backend implementations are provided:
//   - RedisBackend: go-redis client, for production use.
//   - MemoryBackend: in-process map, for development and tests.
package cache

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Separator joins the prefix and key parts.
const Separator = ":"

// Backend is the raw key-value store behind a Namespaced cache.
type Backend interface {
	SetEX(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

var nonKeyChars = regexp.MustCompile(`[^a-z0-9_]+`)

// NormalizePrefix lower-cases s, collapses every run of characters outside
// [a-z0-9_] into a single underscore and trims leading/trailing underscores.
//
//	"FastAPI Starter" → "fastapi_starter"
func NormalizePrefix(s string) string {
	return strings.Trim(nonKeyChars.ReplaceAllString(strings.ToLower(s), "_"), "_")
}

// Namespaced prefixes every key with a fixed application namespace.
type Namespaced struct {
	backend Backend
	prefix  string
}

// NewNamespaced wraps backend. The prefix is normalized with NormalizePrefix.
func NewNamespaced(backend Backend, prefix string) *Namespaced {
	return &Namespaced{backend: backend, prefix: NormalizePrefix(prefix)}
}

// Prefix returns the normalized namespace.
func (n *Namespaced) Prefix() string { return n.prefix }

// Key returns the fully qualified key for parts.
func (n *Namespaced) Key(parts ...string) string {
	return n.prefix + Separator + strings.Join(parts, Separator)
}

// SetEX stores value under parts with the given time-to-live.
func (n *Namespaced) SetEX(ctx context.Context, ttl time.Duration, value []byte, parts ...string) error {
	return n.backend.SetEX(ctx, n.Key(parts...), value, ttl)
}

// Get returns the value stored under parts, or ErrMiss.
func (n *Namespaced) Get(ctx context.Context, parts ...string) ([]byte, error) {
	return n.backend.Get(ctx, n.Key(parts...))
}

// Delete removes the value stored under parts. Deleting a missing key is not an error.
func (n *Namespaced) Delete(ctx context.Context, parts ...string) error {
	return n.backend.Del(ctx, n.Key(parts...))
}

// Ping checks backend connectivity.
func (n *Namespaced) Ping(ctx context.Context) error {
	return n.backend.Ping(ctx)
}
