package worker

import (
	"github.com/spec-kit/reimbursement-service/internal/service"
)

// StartAuditWorker registers the audit log subscribers.
func StartAuditWorker(auditService *service.AuditLogService) {
	if auditService == nil {
		return
	}
	auditService.RegisterHandlers()
}
