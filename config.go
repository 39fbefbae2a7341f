package jwxt

import (
	"errors"
	"net/url"
	"time"
)

// Config groups all Engine settings. Fields not set by the caller keep the
// defaults from [Builder]; endpoint URLs have no defaults because they are
// deployment specific.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable.
type Config struct {
	Endpoints EndpointsConfig
	Cookies   CookiesConfig
	Login     LoginConfig
	Fetch     FetchConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
ENDPOINTS CONFIG
====================================
*/

// EndpointsConfig holds the portal URLs the login sequence touches. All
// six are required.
type EndpointsConfig struct {
	// EncryptURL is the password encryption POST endpoint. It answers a
	// JSON object carrying the ciphertext under Login.CiphertextField.
	EncryptURL string

	// CASLoginURL serves the CAS login form on GET and accepts the
	// credential POST. The POST is issued with redirects disabled.
	CASLoginURL string

	// SystemLoginURL is the downstream academic system's login URL,
	// fetched with redirects followed to redeem the CAS ticket.
	SystemLoginURL string

	// CASServiceURL is the explicit CAS "service=" URL targeting the
	// downstream system, fetched after SystemLoginURL.
	CASServiceURL string

	// ProbeURL is a known authenticated page used by session-validity
	// checks.
	ProbeURL string

	// PasswordChangeURL accepts the old/new password POST and answers a
	// one-character sentinel body.
	PasswordChangeURL string
}

/*
====================================
COOKIES CONFIG
====================================
*/

// CookiesConfig names the two cookies that make up an authenticated
// state.
type CookiesConfig struct {
	// CASTicketName is the CAS ticket-granting cookie.
	CASTicketName string

	// SessionName is the downstream system's session cookie. It is never
	// valid on its own; a stale copy can outlive the CAS ticket.
	SessionName string
}

/*
====================================
LOGIN CONFIG
====================================
*/

// LoginConfig tunes the CAS handshake.
type LoginConfig struct {
	// CiphertextField is the JSON field name holding the encrypted
	// password in the encryption endpoint's response.
	CiphertextField string

	// TicketField is the name of the hidden login-ticket input on the CAS
	// form, and of the matching POST field.
	TicketField string

	// UsernameField and PasswordField are the credential POST field
	// names.
	UsernameField string
	PasswordField string

	// ExtraFields are static hidden form fields the CAS POST must echo
	// back, such as execution state or event IDs.
	ExtraFields map[string]string

	// Fingerprint is the marker string that identifies the portal's login
	// page inside a response body. It is the single point to update if
	// the portal changes its login page.
	Fingerprint string

	// UserAgent is sent on every request.
	UserAgent string

	// Timeout bounds the whole login sequence end to end.
	Timeout time.Duration

	// CookieWaitAttempts and CookieWaitInterval bound the poll loop that
	// waits for the downstream session cookie to land in the jar between
	// the two redirect requests.
	CookieWaitAttempts int
	CookieWaitInterval time.Duration
}

/*
====================================
FETCH CONFIG
====================================
*/

// FetchConfig tunes the transport-level retry applied to page fetches.
type FetchConfig struct {
	// MaxAttempts is the total attempt budget for transient I/O errors.
	MaxAttempts int

	// Backoff is the linear backoff unit; attempt n sleeps n*Backoff.
	Backoff time.Duration

	// RequestTimeout applies per HTTP call, not per logical operation.
	RequestTimeout time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the internal metric registry.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the configuration a fresh Builder starts from.
// Endpoint URLs are left empty and must be filled in by the caller.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Cookies: CookiesConfig{
			CASTicketName: "CASTGC",
			SessionName:   "JSESSIONID",
		},
		Login: LoginConfig{
			CiphertextField:    "passwordEnc",
			TicketField:        "lt",
			UsernameField:      "username",
			PasswordField:      "password",
			Fingerprint:        "统一身份认证",
			UserAgent:          "jwxt-client/1.0",
			Timeout:            45 * time.Second,
			CookieWaitAttempts: 5,
			CookieWaitInterval: 20 * time.Millisecond,
		},
		Fetch: FetchConfig{
			MaxAttempts:    3,
			Backoff:        500 * time.Millisecond,
			RequestTimeout: 10 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if len(cfg.Login.ExtraFields) > 0 {
		out.Login.ExtraFields = make(map[string]string, len(cfg.Login.ExtraFields))
		for k, v := range cfg.Login.ExtraFields {
			out.Login.ExtraFields[k] = v
		}
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for structural errors. Builder.Build
// calls it before any client is constructed.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{
		"EncryptURL":        c.Endpoints.EncryptURL,
		"CASLoginURL":       c.Endpoints.CASLoginURL,
		"SystemLoginURL":    c.Endpoints.SystemLoginURL,
		"CASServiceURL":     c.Endpoints.CASServiceURL,
		"ProbeURL":          c.Endpoints.ProbeURL,
		"PasswordChangeURL": c.Endpoints.PasswordChangeURL,
	} {
		if raw == "" {
			return errors.New("Endpoints " + name + " is required")
		}
		if _, err := url.ParseRequestURI(raw); err != nil {
			return errors.New("Endpoints " + name + " is not a valid URL")
		}
	}

	if c.Cookies.CASTicketName == "" {
		return errors.New("Cookies CASTicketName is required")
	}
	if c.Cookies.SessionName == "" {
		return errors.New("Cookies SessionName is required")
	}

	if c.Login.CiphertextField == "" {
		return errors.New("Login CiphertextField is required")
	}
	if c.Login.TicketField == "" {
		return errors.New("Login TicketField is required")
	}
	if c.Login.UsernameField == "" || c.Login.PasswordField == "" {
		return errors.New("Login credential field names are required")
	}
	if c.Login.Fingerprint == "" {
		return errors.New("Login Fingerprint is required")
	}
	if c.Login.Timeout <= 0 {
		return errors.New("Login Timeout must be > 0")
	}
	if c.Login.CookieWaitAttempts <= 0 {
		return errors.New("Login CookieWaitAttempts must be > 0")
	}
	if c.Login.CookieWaitInterval < 0 {
		return errors.New("Login CookieWaitInterval must be >= 0")
	}

	if c.Fetch.MaxAttempts <= 0 {
		return errors.New("Fetch MaxAttempts must be > 0")
	}
	if c.Fetch.Backoff < 0 {
		return errors.New("Fetch Backoff must be >= 0")
	}
	if c.Fetch.RequestTimeout <= 0 {
		return errors.New("Fetch RequestTimeout must be > 0")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}

	return nil
}
