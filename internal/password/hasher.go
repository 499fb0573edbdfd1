// Package password hashes and verifies account credentials with bcrypt.
//
// bcrypt is slow, so a Hasher caps how many hashes run at once. Callers that
// cannot get a slot before their context ends receive the context error
// instead of piling up goroutines on the CPU.
package password

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// maxInput is bcrypt's input limit in bytes.
const maxInput = 72

// Hasher hashes passwords on a bounded pool of concurrent slots.
type Hasher struct {
	cost int
	sem  *semaphore.Weighted
}

// NewHasher creates a Hasher. cost outside bcrypt's accepted range falls back
// to bcrypt.DefaultCost; concurrency <= 0 means runtime.NumCPU().
func NewHasher(cost, concurrency int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	return &Hasher{cost: cost, sem: semaphore.NewWeighted(int64(concurrency))}
}

// Hash returns a salted bcrypt digest of plaintext.
func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("acquire hash slot: %w", err)
	}
	defer h.sem.Release(1)

	digest, err := bcrypt.GenerateFromPassword(prepare(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether candidate matches digest.
func (h *Hasher) Verify(digest, candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), prepare(candidate)) == nil
}

// prepare passes short inputs through unchanged and replaces inputs longer
// than bcrypt accepts with their base64 SHA-256 digest (44 bytes).
func prepare(plaintext string) []byte {
	if len(plaintext) <= maxInput {
		return []byte(plaintext)
	}
	sum := sha256.Sum256([]byte(plaintext))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}
