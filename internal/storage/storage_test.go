package storage

import (
	"context"
	"errors"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"receipt.pdf":           "receipt.pdf",
		"../../etc/passwd":      "passwd",
		`C:\Users\me\scan.png`:  "scan.png",
		"my hotel bill (1).jpg": "my_hotel_bill_1_.jpg",
		"..":                    "file",
		"":                      "file",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeFilename(in), "input %q", in)
	}
}

func TestKeys(t *testing.T) {
	at := time.Unix(0, 42)
	assert.Equal(t, "receipts/u-1/t-1/42-scan.png", ReceiptKey("u-1", "t-1", "scan.png", at))
	assert.Equal(t, "avatars/u-1/42-me.jpg", AvatarKey("u-1", "me.jpg", at))
}

func TestValidateKey(t *testing.T) {
	assert.NoError(t, validateKey("receipts/a/b/1-x.pdf"))
	for _, bad := range []string{"", "/abs", "a/../b", "a//b", `a\b`, "./a"} {
		assert.ErrorIs(t, validateKey(bad), ErrInvalidKey, "key %q", bad)
	}
}

func newTestLocalStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir(), "http://files.test", "secret")
	require.NoError(t, err)
	return store
}

func tokenFrom(t *testing.T, signed string) string {
	t.Helper()
	u, err := url.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "/files", u.Path)
	return u.Query().Get("token")
}

func TestLocalStore_UploadSignResolve(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t)

	ref, err := store.Upload(ctx, "receipts/u-1/t-1/1-scan.pdf", strings.NewReader("%PDF-1.4"), 8, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "receipts/u-1/t-1/1-scan.pdf", ref)

	signed, err := store.SignURL(ctx, ref, time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(signed, "http://files.test/files?token="))

	path, err := store.Resolve(tokenFrom(t, signed))
	require.NoError(t, err)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(content))
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	store := newTestLocalStore(t)
	_, err := store.Upload(context.Background(), "../outside", strings.NewReader("x"), 1, "image/png")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestLocalStore_ResolveFailures(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t)
	_, err := store.Upload(ctx, "avatars/u-1/1-me.png", strings.NewReader("png"), 3, "image/png")
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		signed, err := store.SignURL(ctx, "avatars/u-1/1-me.png", time.Minute)
		require.NoError(t, err)
		later := *store
		later.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
		_, err = later.Resolve(tokenFrom(t, signed))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewLocalStore(t.TempDir(), "http://files.test", "other")
		require.NoError(t, err)
		signed, err := other.SignURL(ctx, "avatars/u-1/1-me.png", time.Minute)
		require.NoError(t, err)
		_, err = store.Resolve(tokenFrom(t, signed))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing object", func(t *testing.T) {
		signed, err := store.SignURL(ctx, "avatars/u-1/2-gone.png", time.Minute)
		require.NoError(t, err)
		_, err = store.Resolve(tokenFrom(t, signed))
		assert.ErrorIs(t, err, ErrObjectNotFound)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := store.Resolve("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string]string
	ttls    map[string]time.Duration
	failGet bool
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (c *mapCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return "", errors.New("connection refused")
	}
	v, ok := c.entries[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return v, nil
}

func (c *mapCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	c.ttls[key] = ttl
	return nil
}

type countingSigner struct {
	BlobStore
	calls int
}

func (s *countingSigner) SignURL(_ context.Context, ref string, _ time.Duration) (string, error) {
	s.calls++
	return "https://signed/" + ref + "?n=" + string(rune('0'+s.calls)), nil
}

func TestCachingStore_ReusesSignedURL(t *testing.T) {
	ctx := context.Background()
	inner := &countingSigner{}
	cache := newMapCache()
	store := NewCachingStore(inner, cache, zap.NewNop())

	first, err := store.SignURL(ctx, "receipts/a", 10*time.Minute)
	require.NoError(t, err)
	second, err := store.SignURL(ctx, "receipts/a", 10*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 8*time.Minute, cache.ttls["receipts/a|10m0s"])
}

func TestCachingStore_FallsBackOnCacheError(t *testing.T) {
	ctx := context.Background()
	inner := &countingSigner{}
	cache := newMapCache()
	cache.failGet = true
	store := NewCachingStore(inner, cache, zap.NewNop())

	_, err := store.SignURL(ctx, "receipts/a", time.Minute)
	require.NoError(t, err)
	_, err = store.SignURL(ctx, "receipts/a", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}
