package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"
)

var (
	// ErrInvalidKey rejects object keys that could escape their namespace.
	ErrInvalidKey = errors.New("invalid object key")
	// ErrInvalidToken rejects tampered or expired retrieval tokens.
	ErrInvalidToken = errors.New("invalid or expired retrieval token")
	// ErrObjectNotFound signals a missing object.
	ErrObjectNotFound = errors.New("object not found")
)

// BlobStore stores receipt and avatar files and hands out time-bounded
// retrieval URLs for them.
type BlobStore interface {
	// Upload stores content under key and returns the reference to persist.
	Upload(ctx context.Context, key string, content io.Reader, size int64, contentType string) (string, error)
	// SignURL produces a URL granting read access to ref for ttl.
	SignURL(ctx context.Context, ref string, ttl time.Duration) (string, error)
}

// File is an uploaded file handed to the engines by the transport layer.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

const maxFilenameLength = 100

// SanitizeFilename keeps the base name of an uploaded file and replaces
// anything outside [A-Za-z0-9._-].
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if len(name) > maxFilenameLength {
		name = name[len(name)-maxFilenameLength:]
	}
	if name == "" {
		return "file"
	}
	return name
}

// ReceiptKey namespaces a receipt by owner and ticket. The timestamp
// prefix keeps repeated uploads of the same filename apart.
func ReceiptKey(ownerID, ticketID, filename string, at time.Time) string {
	return fmt.Sprintf("receipts/%s/%s/%d-%s", ownerID, ticketID, at.UnixNano(), SanitizeFilename(filename))
}

// AvatarKey namespaces an avatar by user.
func AvatarKey(userID, filename string, at time.Time) string {
	return fmt.Sprintf("avatars/%s/%d-%s", userID, at.UnixNano(), SanitizeFilename(filename))
}

func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}
