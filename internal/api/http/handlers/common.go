package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/reimbursement-service/internal/auth"
	"github.com/spec-kit/reimbursement-service/internal/domain"
	"github.com/spec-kit/reimbursement-service/internal/storage"
	apperrors "github.com/spec-kit/reimbursement-service/pkg/util/errorutil"
)

func callerIdentity(c *fiber.Ctx) (domain.Identity, error) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return domain.Identity{}, apperrors.NewUnauthorized("authentication required")
	}
	return identity, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

// formFile reads the multipart "file" field. The returned closer must be
// called once the upload has been consumed.
func formFile(c *fiber.Ctx) (storage.File, func(), error) {
	header, err := c.FormFile("file")
	if err != nil {
		return storage.File{}, nil, apperrors.NewValidationError("file is required",
			map[string]any{"file": "multipart field 'file' is required"})
	}
	f, err := header.Open()
	if err != nil {
		return storage.File{}, nil, apperrors.NewInternalError(err)
	}
	file := storage.File{
		Name:        header.Filename,
		ContentType: header.Header.Get(fiber.HeaderContentType),
		Size:        header.Size,
		Content:     f,
	}
	return file, func() { _ = f.Close() }, nil
}
