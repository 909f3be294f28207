package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/natefinch/atomic"
)

// LocalStore keeps blobs on the local filesystem. Retrieval URLs point at
// the service's own /files endpoint and carry a signed, expiring token.
type LocalStore struct {
	root    string
	baseURL string
	secret  []byte
	now     func() time.Time
}

type fileClaims struct {
	jwt.RegisteredClaims
}

// NewLocalStore prepares root for writing.
func NewLocalStore(root, baseURL, secret string) (*LocalStore, error) {
	if secret == "" {
		return nil, errors.New("local blob store requires a signing secret")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &LocalStore{root: root, baseURL: baseURL, secret: []byte(secret), now: time.Now}, nil
}

// Upload writes content to key atomically.
func (s *LocalStore) Upload(ctx context.Context, key string, content io.Reader, _ int64, _ string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dest := s.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}
	if err := atomic.WriteFile(dest, content); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}
	return key, nil
}

// SignURL returns a /files URL whose token expires after ttl.
func (s *LocalStore) SignURL(_ context.Context, ref string, ttl time.Duration) (string, error) {
	if err := validateKey(ref); err != nil {
		return "", err
	}
	now := s.now()
	claims := fileClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   ref,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign retrieval token: %w", err)
	}
	return fmt.Sprintf("%s/files?token=%s", s.baseURL, url.QueryEscape(token)), nil
}

// Resolve validates a retrieval token and returns the file path it grants.
func (s *LocalStore) Resolve(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &fileClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*fileClaims)
	if !ok || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if err := validateKey(claims.Subject); err != nil {
		return "", ErrInvalidToken
	}
	p := s.pathFor(claims.Subject)
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrObjectNotFound
		}
		return "", err
	}
	return p, nil
}

func (s *LocalStore) pathFor(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}
