package jwxt

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventLoginNoop             = "login_noop"
	auditEventLoginRedirectOnly     = "login_redirect_only"
	auditEventManualLoginSuccess    = "manual_login_success"
	auditEventManualLoginFailure    = "manual_login_failure"
	auditEventLogout                = "logout"
	auditEventSessionExpired        = "session_expired"
	auditEventReloginSuccess        = "relogin_success"
	auditEventReloginFailure        = "relogin_failure"
	auditEventPasswordChangeSuccess = "password_change_success"
	auditEventPasswordChangeReject  = "password_change_rejected"
	auditEventPasswordChangeFailure = "password_change_failure"
	auditEventFetchExhausted        = "fetch_retries_exhausted"
)

// AuditErrorCode is the normalized error label carried on audit events.
type AuditErrorCode string

const (
	auditErrMissingCredentials  AuditErrorCode = "missing_credentials"
	auditErrInvalidCredentials  AuditErrorCode = "invalid_credentials"
	auditErrSessionExpired      AuditErrorCode = "session_expired"
	auditErrEncryptFailed       AuditErrorCode = "encrypt_failed"
	auditErrLoginTicketMissing  AuditErrorCode = "login_ticket_missing"
	auditErrSessionNotEstablish AuditErrorCode = "session_not_established"
	auditErrSessionInvalid      AuditErrorCode = "session_invalid"
	auditErrPasswordMismatch    AuditErrorCode = "password_mismatch"
	auditErrUnknownResponse     AuditErrorCode = "unknown_response"
	auditErrNetwork             AuditErrorCode = "network_failure"
	auditErrBadStatus           AuditErrorCode = "bad_status"
	auditErrParse               AuditErrorCode = "parse_failure"
	auditErrInternal            AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	studentID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		EventID:   uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		StudentID: studentID,
		ClientTag: clientTagFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrMissingCredentials):
		return auditErrMissingCredentials
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrSessionExpired):
		return auditErrSessionExpired
	case errors.Is(err, ErrEncryptFailed):
		return auditErrEncryptFailed
	case errors.Is(err, ErrLoginTicketMissing):
		return auditErrLoginTicketMissing
	case errors.Is(err, ErrSessionNotEstablished):
		return auditErrSessionNotEstablish
	case errors.Is(err, ErrSessionInvalid):
		return auditErrSessionInvalid
	case errors.Is(err, ErrPasswordMismatch):
		return auditErrPasswordMismatch
	case errors.Is(err, ErrUnknownResponse):
		return auditErrUnknownResponse
	case errors.Is(err, ErrFetchFailed):
		return auditErrNetwork
	case errors.Is(err, ErrBadStatus):
		return auditErrBadStatus
	case errors.Is(err, ErrParse):
		return auditErrParse
	default:
		return auditErrInternal
	}
}
