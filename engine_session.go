package jwxt

import (
	"context"
	"io"
	"net/http"
)

// maxProbeBytes caps how much of the probe response is read for
// fingerprint sniffing. Login pages are small; anything past this is not
// worth downloading just to decide a boolean.
const maxProbeBytes = 1 << 20

// CheckSessionValidity probes the portal and reports whether the current
// session is still honored server-side. It fails closed: any transport
// error, non-2xx status, empty body, or login-page fingerprint in the
// body reads as invalid. A false answer costs one redundant login; a
// wrong true answer poisons every caller downstream.
func (e *Engine) CheckSessionValidity(ctx context.Context) bool {
	if e == nil || e.client == nil {
		return false
	}

	rctx, cancel := context.WithTimeout(ctx, e.config.Fetch.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(rctx, http.MethodGet, e.config.Endpoints.ProbeURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", e.config.Login.UserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBytes))
	if err != nil || len(body) == 0 {
		return false
	}

	return !e.looksLikeLoginPage(string(body))
}
