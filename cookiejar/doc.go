// Package cookiejar provides the persistent cookie jars behind the jwxt
// Engine: an in-memory jar for tests and single-process use, and a
// Redis-backed jar that survives process restarts.
//
// Both implement [Jar], which extends net/http.CookieJar with the
// inspection and lifecycle operations the auth engine needs: reading one
// cookie by host and name, clearing everything on logout or forced
// re-login, and clearing only session-scoped cookies.
package cookiejar
