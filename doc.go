// Package jwxt is a client engine for university portals fronted by a CAS
// (Central Authentication Service) single sign-on, where the downstream
// academic system exposes no API beyond its server-rendered HTML pages.
//
// The package owns the multi-step CAS login handshake, session-validity
// detection by content sniffing, single-flight re-authentication on silent
// session expiry, and the fetch-with-retry contract that every page parser
// is built on. Engine methods are safe to call from multiple goroutines
// after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// jwxt is the public surface. It exposes [Engine], [Builder], [Config],
// [Fetcher], [BaseRepository], and value types (MetricsSnapshot,
// AuditEvent, Credentials). The cookie jar and credential store are
// injected behind narrow interfaces; ready-made Redis and in-memory
// implementations live under cookiejar/ and credential/. Page-specific
// parsing lives under schedule/ and pages/ and never calls the Engine
// directly; parsers consume [BaseRepository.FetchWithReauth] only.
//
// # What this package must NOT do
//
//   - Follow redirects on the CAS credential POST (the ticket cookie is
//     the success signal, not the status code).
//   - Treat the downstream session cookie as valid without the CAS ticket
//     cookie also present in the jar.
//   - Run more than one login sequence at a time, no matter how many
//     callers detect expiry concurrently.
//   - Persist credentials on a partial or failed manual login.
//
// # Session contract
//
// Three loosely coupled identifiers make up an authenticated state: the
// CAS ticket-granting cookie, the downstream system's session cookie, and
// the locally stored credentials. The portal never answers 401; an expired
// session is detected by sniffing response bodies for the login-page
// fingerprint, and recovery is serialized through the Engine's re-login
// mutex.
package jwxt
