package service

import (
	"fmt"
	"mime"
	"strings"

	"github.com/spec-kit/reimbursement-service/internal/storage"
	apperrors "github.com/spec-kit/reimbursement-service/pkg/util/errorutil"
)

// validateUpload accepts images, and PDFs when allowPDF is set, up to maxBytes.
func validateUpload(file storage.File, maxBytes int64, allowPDF bool) error {
	if file.Content == nil || file.Size <= 0 {
		return apperrors.NewValidationError("file is required", map[string]any{"file": "file is required"})
	}
	if file.Size > maxBytes {
		msg := fmt.Sprintf("file must be at most %d bytes", maxBytes)
		return apperrors.NewValidationError(msg, map[string]any{"file": msg})
	}

	mediaType, _, err := mime.ParseMediaType(file.ContentType)
	if err == nil {
		if strings.HasPrefix(mediaType, "image/") || (allowPDF && mediaType == "application/pdf") {
			return nil
		}
	}
	msg := "file must be an image"
	if allowPDF {
		msg = "file must be an image or a PDF"
	}
	return apperrors.NewValidationError(msg, map[string]any{"file": msg, "content_type": file.ContentType})
}
