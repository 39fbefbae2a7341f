package jwxt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/campusbox/jwxt/cookiejar"
)

// Engine owns the CAS login state machine and the session predicates every
// repository consults. Build one through [Builder.Build]; a zero Engine is
// not usable.
//
// Engine instances are safe for concurrent use. The re-login mutex in
// [BaseRepository.FetchWithReauth] is the only coordination point: it
// serializes the decision to log in, never the page fetches themselves.
type Engine struct {
	config     Config
	jar        cookiejar.Jar
	creds      CredentialStore
	client     *http.Client // redirects followed
	noRedirect *http.Client // CAS credential POST only
	fetcher    *Fetcher
	metrics    *Metrics
	audit      *auditDispatcher

	casHost    string
	systemHost string

	// reloginMu serializes re-authentication across every repository
	// built on this engine.
	reloginMu sync.Mutex
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// Jar exposes the cookie jar for callers that persist or inspect it.
func (e *Engine) Jar() cookiejar.Jar {
	if e == nil {
		return nil
	}
	return e.jar
}

// Fetcher returns the page fetch client bound to this engine's session.
func (e *Engine) Fetcher() *Fetcher {
	if e == nil {
		return nil
	}
	return e.fetcher
}

// AuditDropped reports how many audit events were shed under
// backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the engine's counters and histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// HasCASTicket reports whether the CAS ticket-granting cookie is present
// and non-blank in the jar. Pure jar inspection, no I/O.
func (e *Engine) HasCASTicket() bool {
	if e == nil || e.jar == nil {
		return false
	}
	return e.jar.Value(e.casHost, e.config.Cookies.CASTicketName) != ""
}

// HasValidSession reports whether both the CAS ticket cookie and the
// downstream session cookie are present and non-blank. The downstream
// cookie alone is never enough: a stale copy can outlive the ticket.
// Pure jar inspection, no I/O.
func (e *Engine) HasValidSession() bool {
	if e == nil || e.jar == nil {
		return false
	}
	return e.jar.Value(e.casHost, e.config.Cookies.CASTicketName) != "" &&
		e.jar.Value(e.systemHost, e.config.Cookies.SessionName) != ""
}

// looksLikeLoginPage is the one place the login-page fingerprint is
// consulted. Content sniffing is fragile; when the portal changes its
// login page only Config.Login.Fingerprint needs updating.
func (e *Engine) looksLikeLoginPage(body string) bool {
	return strings.Contains(body, e.config.Login.Fingerprint)
}

// Login drives the CAS state machine. With force false it first tries the
// cheap paths: a live session is a no-op, and a bare CAS ticket is
// redeemed by the redirect sub-step alone so that a still-good ticket is
// not invalidated by an unnecessary credential POST. With force true the
// jar is cleared and the full five-step sequence runs. The whole call is
// bounded by Config.Login.Timeout.
func (e *Engine) Login(ctx context.Context, force bool) error {
	if e == nil || e.client == nil {
		return ErrEngineNotReady
	}

	creds, err := e.creds.Load(ctx)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}
	if creds.Blank() {
		return ErrMissingCredentials
	}

	lctx, cancel := context.WithTimeout(ctx, e.config.Login.Timeout)
	defer cancel()

	if !force && e.HasValidSession() && e.CheckSessionValidity(lctx) {
		e.metricInc(MetricLoginNoop)
		e.emitAudit(ctx, auditEventLoginNoop, true, creds.StudentID, nil, nil)
		return nil
	}

	if !force && e.HasCASTicket() && !e.HasValidSession() {
		if err := e.redeemTicket(lctx); err == nil && e.HasValidSession() {
			e.metricInc(MetricLoginRedirectOnly)
			e.emitAudit(ctx, auditEventLoginRedirectOnly, true, creds.StudentID, nil, nil)
			return nil
		}
		// Ticket turned out stale; fall through to the full sequence.
	}

	if force {
		if err := e.jar.Clear(lctx); err != nil {
			e.metricInc(MetricLoginFailure)
			return fmt.Errorf("clear cookie jar: %w", err)
		}
	}

	if err := e.loginSequence(lctx, creds); err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, creds.StudentID, err, nil)
		return err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, creds.StudentID, nil, nil)
	return nil
}

// LoginManually runs the forced login sequence with the given credentials
// and persists them only after the whole sequence succeeded. A partial or
// failed login never touches the credential store.
func (e *Engine) LoginManually(ctx context.Context, studentID, password string, isp ISP) error {
	if e == nil || e.client == nil {
		return ErrEngineNotReady
	}

	creds := Credentials{StudentID: studentID, Password: password, ISP: isp}
	if creds.Blank() {
		return ErrMissingCredentials
	}

	lctx, cancel := context.WithTimeout(ctx, e.config.Login.Timeout)
	defer cancel()

	if err := e.jar.Clear(lctx); err != nil {
		e.metricInc(MetricManualLoginFailure)
		return fmt.Errorf("clear cookie jar: %w", err)
	}

	if err := e.loginSequence(lctx, creds); err != nil {
		e.metricInc(MetricManualLoginFailure)
		e.emitAudit(ctx, auditEventManualLoginFailure, false, studentID, err, nil)
		return err
	}

	if err := e.creds.Save(ctx, creds); err != nil {
		e.metricInc(MetricManualLoginFailure)
		e.emitAudit(ctx, auditEventManualLoginFailure, false, studentID, err, nil)
		return fmt.Errorf("persist credentials: %w", err)
	}

	e.metricInc(MetricManualLoginSuccess)
	e.emitAudit(ctx, auditEventManualLoginSuccess, true, studentID, nil, nil)
	return nil
}

// Logout clears the cookie jar unconditionally and the stored credentials
// only when asked. Calling it twice is harmless.
func (e *Engine) Logout(ctx context.Context, clearCredentials bool) error {
	if e == nil || e.jar == nil {
		return ErrEngineNotReady
	}

	err := e.jar.Clear(ctx)
	if clearCredentials {
		if cerr := e.creds.Clear(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, err == nil, "", err, func() map[string]string {
		return map[string]string{
			"clear_credentials": fmt.Sprintf("%t", clearCredentials),
		}
	})
	return err
}

/*
====================================
CAS SEQUENCE
====================================
*/

// loginSequence is the five-step handshake. Each step short-circuits on
// failure; nothing here retries, transport retry belongs to the Fetcher.
func (e *Engine) loginSequence(ctx context.Context, creds Credentials) error {
	encrypted, err := e.encryptPassword(ctx, creds.Password)
	if err != nil {
		return err
	}

	ticket, hidden, err := e.fetchLoginTicket(ctx)
	if err != nil {
		return err
	}

	if err := e.submitCredentials(ctx, creds.StudentID, encrypted, ticket, hidden); err != nil {
		return err
	}

	if err := e.redeemTicket(ctx); err != nil {
		return err
	}

	if !e.HasValidSession() {
		return ErrSessionNotEstablished
	}
	return nil
}

// encryptPassword posts the plaintext to the portal's encryption endpoint
// and extracts the ciphertext field from its JSON response.
func (e *Engine) encryptPassword(ctx context.Context, plaintext string) (string, error) {
	form := url.Values{}
	form.Set(e.config.Login.PasswordField, plaintext)

	resp, err := e.postForm(ctx, e.client, e.config.Endpoints.EncryptURL, form)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrEncryptFailed, resp.StatusCode)
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptFailed, err)
	}

	ciphertext, _ := payload[e.config.Login.CiphertextField].(string)
	if ciphertext == "" {
		return "", fmt.Errorf("%w: response field %q empty", ErrEncryptFailed, e.config.Login.CiphertextField)
	}
	return ciphertext, nil
}

// fetchLoginTicket scrapes the single-use login ticket and the other
// hidden inputs off the CAS login form. The ticket lives only within this
// login attempt and is never persisted.
func (e *Engine) fetchLoginTicket(ctx context.Context) (string, map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.config.Endpoints.CASLoginURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrLoginTicketMissing, err)
	}
	req.Header.Set("User-Agent", e.config.Login.UserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrLoginTicketMissing, err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrLoginTicketMissing, err)
	}

	ticket, _ := doc.Find(`input[name="` + e.config.Login.TicketField + `"]`).First().Attr("value")
	if ticket == "" {
		return "", nil, ErrLoginTicketMissing
	}

	hidden := make(map[string]string)
	doc.Find(`input[type="hidden"]`).Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		if name == "" || name == e.config.Login.TicketField {
			return
		}
		hidden[name], _ = s.Attr("value")
	})
	for k, v := range e.config.Login.ExtraFields {
		hidden[k] = v
	}

	return ticket, hidden, nil
}

// submitCredentials posts the credential form without following
// redirects. The CAS ticket cookie is the success signal: its absence
// after the POST means the credentials were rejected, regardless of what
// status code came back, and is never retried.
func (e *Engine) submitCredentials(ctx context.Context, studentID, encrypted, ticket string, hidden map[string]string) error {
	form := url.Values{}
	form.Set(e.config.Login.UsernameField, studentID)
	form.Set(e.config.Login.PasswordField, encrypted)
	form.Set(e.config.Login.TicketField, ticket)
	for k, v := range hidden {
		if !form.Has(k) {
			form.Set(k, v)
		}
	}

	resp, err := e.postForm(ctx, e.noRedirect, e.config.Endpoints.CASLoginURL, form)
	if err != nil {
		return fmt.Errorf("submit credentials: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	ticketName := e.config.Cookies.CASTicketName
	granted := false
	for _, c := range resp.Cookies() {
		if c.Name == ticketName && c.Value != "" {
			granted = true
			break
		}
	}
	if !granted {
		// The cookie may have been set on an earlier hop; trust the jar
		// before declaring the credentials wrong.
		granted = e.HasCASTicket()
	}
	if !granted {
		e.metricInc(MetricInvalidCredentials)
		return ErrInvalidCredentials
	}

	if resp.StatusCode == http.StatusOK {
		log.Print("jwxt: CAS answered 200 with a ticket cookie, expected a redirect")
	}
	return nil
}

// redeemTicket converts the CAS ticket into a downstream session by two
// redirect-following GETs. Neither body is parsed; the cookies the hops
// set are the entire point. Between the two hops we wait until the
// session cookie has landed in the jar, bounded by config, instead of a
// blind fixed delay.
func (e *Engine) redeemTicket(ctx context.Context) error {
	if err := e.drainGet(ctx, e.config.Endpoints.SystemLoginURL); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionNotEstablished, err)
	}

	e.waitForSessionCookie(ctx)

	if err := e.drainGet(ctx, e.config.Endpoints.CASServiceURL); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionNotEstablished, err)
	}
	return nil
}

func (e *Engine) waitForSessionCookie(ctx context.Context) {
	for i := 0; i < e.config.Login.CookieWaitAttempts; i++ {
		if e.jar.Value(e.systemHost, e.config.Cookies.SessionName) != "" {
			return
		}
		if err := sleepCtx(ctx, e.config.Login.CookieWaitInterval); err != nil {
			return
		}
	}
}

func (e *Engine) drainGet(ctx context.Context, rawURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", e.config.Login.UserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (e *Engine) postForm(ctx context.Context, client *http.Client, rawURL string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", e.config.Login.UserAgent)
	return client.Do(req)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
