package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/reimbursement-service/internal/storage"
	apperrors "github.com/spec-kit/reimbursement-service/pkg/util/errorutil"
)

// FilesHandler serves blobs from the local store behind signed tokens.
type FilesHandler struct {
	store *storage.LocalStore
}

// NewFilesHandler constructs handler.
func NewFilesHandler(store *storage.LocalStore) *FilesHandler {
	return &FilesHandler{store: store}
}

// Download GET /files?token=.
func (h *FilesHandler) Download(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return apperrors.NewUnauthorized("missing retrieval token")
	}
	path, err := h.store.Resolve(token)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidToken):
			return apperrors.NewUnauthorized("invalid or expired retrieval token")
		case errors.Is(err, storage.ErrObjectNotFound):
			return apperrors.NewNotFound("file", nil)
		default:
			return apperrors.NewInternalError(err)
		}
	}
	c.Set(fiber.HeaderCacheControl, "private, no-store")
	return c.SendFile(path)
}
