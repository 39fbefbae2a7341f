package jwxt

import "errors"

var (
	// ErrMissingCredentials is returned when a login is attempted with no
	// stored student ID or password. No network call is made.
	ErrMissingCredentials = errors.New("missing credentials")
	// ErrInvalidCredentials is returned when the CAS server accepts the
	// credential POST but issues no ticket cookie. It is permanent for the
	// attempt and never retried.
	ErrInvalidCredentials = errors.New("wrong username or password")
	// ErrSessionExpired is the in-band signal that a fetched page was the
	// disguised login page. It triggers single-flight re-authentication.
	ErrSessionExpired = errors.New("session expired")
	// ErrEncryptFailed is returned when the password encryption endpoint
	// fails or its response carries no ciphertext field.
	ErrEncryptFailed = errors.New("password encryption failed")
	// ErrLoginTicketMissing is returned when the CAS login form carries no
	// login ticket field.
	ErrLoginTicketMissing = errors.New("missing login ticket")
	// ErrSessionNotEstablished is returned when the redirect chain
	// completed but the downstream session cookie never appeared.
	ErrSessionNotEstablished = errors.New("could not establish downstream session")
	// ErrSessionInvalid is returned by operations that require a live
	// session and found none. Callers decide whether to log in.
	ErrSessionInvalid = errors.New("session invalid")
	// ErrPasswordMismatch is returned by UpdatePassword when the portal
	// rejects the old password.
	ErrPasswordMismatch = errors.New("old password rejected")
	// ErrUnknownResponse is returned when the portal answers a sentinel
	// endpoint with a value outside its documented set.
	ErrUnknownResponse = errors.New("unknown portal response")
	// ErrFetchFailed is returned after the transport retry budget is
	// exhausted.
	ErrFetchFailed = errors.New("network request failed")
	// ErrBadStatus is returned for a non-2xx page response. It is not
	// retried.
	ErrBadStatus = errors.New("unexpected http status")
	// ErrParse is returned when a page's structure no longer matches the
	// parser. Retrying cannot help; the underlying cause is wrapped.
	ErrParse = errors.New("parsing failed")
	// ErrEngineNotReady is returned when an Engine method is called on an
	// engine that was not built through Builder.Build.
	ErrEngineNotReady = errors.New("engine not initialized")
)
