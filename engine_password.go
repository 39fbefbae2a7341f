package jwxt

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// Portal sentinels for the password-change endpoint. The body is the
// whole protocol: a bare "1" or "2", nothing else.
const (
	passwordChangeOK       = "1"
	passwordChangeMismatch = "2"
)

// UpdatePassword changes the portal password for the logged-in account.
// It refuses to run without a server-verified session, and it never
// treats an unrecognized response body as success.
func (e *Engine) UpdatePassword(ctx context.Context, oldPassword, newPassword string) error {
	if e == nil || e.client == nil {
		return ErrEngineNotReady
	}
	if oldPassword == "" || newPassword == "" {
		return ErrMissingCredentials
	}

	if !e.CheckSessionValidity(ctx) {
		e.metricInc(MetricPasswordChangeFailure)
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, "", ErrSessionInvalid, nil)
		return ErrSessionInvalid
	}

	form := url.Values{}
	form.Set("oldPassword", oldPassword)
	form.Set("newPassword", newPassword)

	resp, err := e.postForm(ctx, e.client, e.config.Endpoints.PasswordChangeURL, form)
	if err != nil {
		e.metricInc(MetricPasswordChangeFailure)
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, "", err, nil)
		return fmt.Errorf("password change request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBytes))
	if err != nil {
		e.metricInc(MetricPasswordChangeFailure)
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, "", err, nil)
		return fmt.Errorf("password change response: %w", err)
	}

	switch body := strings.TrimSpace(string(raw)); body {
	case passwordChangeOK:
		e.metricInc(MetricPasswordChangeSuccess)
		e.emitAudit(ctx, auditEventPasswordChangeSuccess, true, "", nil, nil)
		return nil
	case passwordChangeMismatch:
		e.metricInc(MetricPasswordChangeMismatch)
		e.emitAudit(ctx, auditEventPasswordChangeReject, false, "", ErrPasswordMismatch, nil)
		return ErrPasswordMismatch
	default:
		e.metricInc(MetricPasswordChangeFailure)
		err := fmt.Errorf("%w: status %d body %q", ErrUnknownResponse, resp.StatusCode, truncateBody(body, 64))
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, "", err, nil)
		return err
	}
}

func truncateBody(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
