package cookiejar

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// Jar is a cookie jar with the inspection and lifecycle surface the auth
// engine needs on top of net/http.CookieJar.
type Jar interface {
	http.CookieJar

	// Value returns the named cookie's value for host, or "" when the
	// cookie is absent or expired.
	Value(host, name string) string

	// Clear removes every cookie.
	Clear(ctx context.Context) error

	// ClearSession removes only session-scoped cookies, keeping cookies
	// that carry an expiry.
	ClearSession(ctx context.Context) error
}

// storedCookie is the persisted form shared by the memory and Redis jars.
type storedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HostOnly bool      `json:"host_only,omitempty"`
}

func (c storedCookie) expired(now time.Time) bool {
	return !c.Expires.IsZero() && now.After(c.Expires)
}

func (c storedCookie) sessionScoped() bool {
	return c.Expires.IsZero()
}

func (c storedCookie) matchesHost(host string) bool {
	if c.HostOnly {
		return host == c.Domain
	}
	return host == c.Domain || strings.HasSuffix(host, "."+c.Domain)
}

func (c storedCookie) matchesPath(path string) bool {
	if c.Path == "" || c.Path == "/" {
		return true
	}
	if path == c.Path {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(c.Path, "/")+"/")
}

// fieldKey is the storage key of one cookie inside its group.
func (c storedCookie) fieldKey() string {
	return c.Name + ";" + c.Domain + ";" + c.Path
}

// groupKey buckets cookies by registered domain so that a host and its
// parent domain share one group.
func groupKey(host string) string {
	if etld, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return etld
	}
	return host
}

func canonicalHost(u *url.URL) string {
	return strings.ToLower(u.Hostname())
}

func fromSetCookie(host string, c *http.Cookie, now time.Time) (storedCookie, bool) {
	sc := storedCookie{
		Name:   c.Name,
		Value:  c.Value,
		Path:   c.Path,
		Secure: c.Secure,
	}

	if c.Domain == "" {
		sc.Domain = host
		sc.HostOnly = true
	} else {
		sc.Domain = strings.ToLower(strings.TrimPrefix(c.Domain, "."))
	}

	switch {
	case c.MaxAge < 0:
		return sc, false
	case c.MaxAge > 0:
		sc.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
	default:
		sc.Expires = c.Expires
	}

	if sc.expired(now) {
		return sc, false
	}
	return sc, true
}

// MemoryJar is an in-process Jar guarded by a RWMutex. Reads dominate:
// every request consults the jar, writes happen only on Set-Cookie
// responses and explicit clears.
type MemoryJar struct {
	mu     sync.RWMutex
	groups map[string]map[string]storedCookie
}

// NewMemoryJar creates an empty in-memory jar.
func NewMemoryJar() *MemoryJar {
	return &MemoryJar{
		groups: make(map[string]map[string]storedCookie),
	}
}

// SetCookies implements http.CookieJar.
func (j *MemoryJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	if j == nil || u == nil || len(cookies) == 0 {
		return
	}

	host := canonicalHost(u)
	now := time.Now()

	j.mu.Lock()
	defer j.mu.Unlock()

	for _, c := range cookies {
		sc, keep := fromSetCookie(host, c, now)
		gk := groupKey(sc.Domain)
		group := j.groups[gk]
		if !keep {
			delete(group, sc.fieldKey())
			continue
		}
		if group == nil {
			group = make(map[string]storedCookie)
			j.groups[gk] = group
		}
		group[sc.fieldKey()] = sc
	}
}

// Cookies implements http.CookieJar.
func (j *MemoryJar) Cookies(u *url.URL) []*http.Cookie {
	if j == nil || u == nil {
		return nil
	}

	host := canonicalHost(u)
	now := time.Now()

	j.mu.RLock()
	defer j.mu.RUnlock()

	var out []*http.Cookie
	for _, sc := range j.groups[groupKey(host)] {
		if sc.expired(now) || !sc.matchesHost(host) || !sc.matchesPath(u.Path) {
			continue
		}
		if sc.Secure && u.Scheme != "https" {
			continue
		}
		out = append(out, &http.Cookie{Name: sc.Name, Value: sc.Value})
	}
	return out
}

// Value implements Jar.
func (j *MemoryJar) Value(host, name string) string {
	if j == nil {
		return ""
	}

	host = strings.ToLower(host)
	now := time.Now()

	j.mu.RLock()
	defer j.mu.RUnlock()

	for _, sc := range j.groups[groupKey(host)] {
		if sc.Name == name && sc.matchesHost(host) && !sc.expired(now) {
			return sc.Value
		}
	}
	return ""
}

// Clear implements Jar.
func (j *MemoryJar) Clear(context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.groups = make(map[string]map[string]storedCookie)
	return nil
}

// ClearSession implements Jar.
func (j *MemoryJar) ClearSession(context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	for gk, group := range j.groups {
		for fk, sc := range group {
			if sc.sessionScoped() {
				delete(group, fk)
			}
		}
		if len(group) == 0 {
			delete(j.groups, gk)
		}
	}
	return nil
}
