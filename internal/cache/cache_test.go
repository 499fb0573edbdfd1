package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePrefix(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"FastAPI Starter", "fastapi_starter"},
		{"Accounts API", "accounts_api"},
		{"  --Accounts--API--  ", "accounts_api"},
		{"already_ok", "already_ok"},
		{"__edge__", "edge"},
		{"Ünïcode Ärger", "n_code_rger"},
		{"a.b/c-d", "a_b_c_d"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizePrefix(tc.in), "NormalizePrefix(%q)", tc.in)
	}
}

func TestNamespaced_Key(t *testing.T) {
	n := NewNamespaced(NewMemoryBackend(), "Accounts API")
	assert.Equal(t, "accounts_api", n.Prefix())
	assert.Equal(t, "accounts_api:user:123", n.Key("user", "123"))
	assert.Equal(t, "accounts_api:", n.Key())
}

// backends returns every Backend implementation under test.
func backends(t *testing.T) map[string]Backend {
	t.Helper()
	mr := miniredis.RunT(t)
	rb, err := NewRedisBackend("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { rb.Close() })

	return map[string]Backend{
		"memory": NewMemoryBackend(),
		"redis":  rb,
	}
}

func TestNamespaced_SetGetDelete(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			n := NewNamespaced(b, "Accounts API")

			require.NoError(t, n.SetEX(ctx, time.Minute, []byte(`{"id":"1"}`), "user", "1"))

			got, err := n.Get(ctx, "user", "1")
			require.NoError(t, err)
			assert.JSONEq(t, `{"id":"1"}`, string(got))

			require.NoError(t, n.Delete(ctx, "user", "1"))
			_, err = n.Get(ctx, "user", "1")
			assert.True(t, errors.Is(err, ErrMiss), "expected ErrMiss, got %v", err)

			// Deleting twice is fine.
			require.NoError(t, n.Delete(ctx, "user", "1"))
			require.NoError(t, n.Ping(ctx))
		})
	}
}

func TestNamespaced_Miss(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := NewNamespaced(b, "x").Get(context.Background(), "nope")
			assert.ErrorIs(t, err, ErrMiss)
		})
	}
}

func TestRedisBackend_WritesNamespacedKeyWithTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	rb, err := NewRedisBackend("redis://" + mr.Addr())
	require.NoError(t, err)
	defer rb.Close()

	n := NewNamespaced(rb, "FastAPI Starter")
	require.NoError(t, n.SetEX(context.Background(), 900*time.Second, []byte("v"), "user", "abc"))

	require.True(t, mr.Exists("fastapi_starter:user:abc"))
	assert.Equal(t, 900*time.Second, mr.TTL("fastapi_starter:user:abc"))

	mr.FastForward(901 * time.Second)
	_, err = n.Get(context.Background(), "user", "abc")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisBackend_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	rb, err := NewRedisBackend("redis://" + mr.Addr())
	require.NoError(t, err)
	defer rb.Close()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err = rb.SetEX(ctx, "k", []byte("v"), time.Minute)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
	assert.Error(t, rb.Ping(ctx))
}

func TestNewRedisBackend_badURL(t *testing.T) {
	_, err := NewRedisBackend("http://not-redis")
	assert.Error(t, err)
}

func TestMemoryBackend_Expiry(t *testing.T) {
	m := NewMemoryBackend()
	now := time.Now()
	m.now = func() time.Time { return now }

	require.NoError(t, m.SetEX(context.Background(), "k", []byte("v"), 10*time.Millisecond))
	_, err := m.Get(context.Background(), "k")
	require.NoError(t, err, "expected hit before expiry")

	now = now.Add(20 * time.Millisecond)
	_, err = m.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryBackend_Evict(t *testing.T) {
	m := NewMemoryBackend()
	now := time.Now()
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.SetEX(ctx, "k1", []byte("1"), time.Millisecond))
	require.NoError(t, m.SetEX(ctx, "k2", []byte("2"), time.Millisecond))
	require.NoError(t, m.SetEX(ctx, "k3", []byte("3"), time.Hour))
	require.Equal(t, 3, m.Len())

	now = now.Add(time.Second)
	assert.Equal(t, 2, m.Evict())
	assert.Equal(t, 1, m.Len())
}

func TestMemoryBackend_CopiesValues(t *testing.T) {
	m := NewMemoryBackend()
	ctx := context.Background()

	v := []byte("abc")
	require.NoError(t, m.SetEX(ctx, "k", v, time.Minute))
	v[0] = 'z'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}
