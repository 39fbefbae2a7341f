package cookiejar

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisJar persists cookies in Redis so a restarted process resumes with
// its CAS ticket and downstream session intact. Cookies of one registered
// domain live in one hash; a companion set tracks the hash keys so Clear
// does not need SCAN.
//
// http.CookieJar gives SetCookies and Cookies no context and no error
// return, so those two operate on a background context with a short
// timeout and log write failures best-effort. The engine-facing
// operations (Value is read-only, Clear and ClearSession) are strict.
type RedisJar struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

// NewRedisJar creates a jar over client. Keys are namespaced under
// prefix; an empty prefix defaults to "jwxt".
func NewRedisJar(client *redis.Client, prefix string) *RedisJar {
	if prefix == "" {
		prefix = "jwxt"
	}
	return &RedisJar{
		client:  client,
		prefix:  prefix,
		timeout: 3 * time.Second,
	}
}

func (j *RedisJar) groupHashKey(gk string) string {
	return j.prefix + ":cookies:" + gk
}

func (j *RedisJar) groupSetKey() string {
	return j.prefix + ":cookie-groups"
}

// SetCookies implements http.CookieJar.
func (j *RedisJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	if j == nil || j.client == nil || u == nil || len(cookies) == 0 {
		return
	}

	host := canonicalHost(u)
	now := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	pipe := j.client.Pipeline()
	for _, c := range cookies {
		sc, keep := fromSetCookie(host, c, now)
		gk := groupKey(sc.Domain)
		if !keep {
			pipe.HDel(ctx, j.groupHashKey(gk), sc.fieldKey())
			continue
		}
		data, err := json.Marshal(sc)
		if err != nil {
			continue
		}
		pipe.HSet(ctx, j.groupHashKey(gk), sc.fieldKey(), data)
		pipe.SAdd(ctx, j.groupSetKey(), gk)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		log.Print("jwxt: cookie jar write failed")
	}
}

// Cookies implements http.CookieJar. Expired entries are dropped lazily.
func (j *RedisJar) Cookies(u *url.URL) []*http.Cookie {
	if j == nil || j.client == nil || u == nil {
		return nil
	}

	host := canonicalHost(u)
	now := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	entries, err := j.client.HGetAll(ctx, j.groupHashKey(groupKey(host))).Result()
	if err != nil {
		return nil
	}

	var out []*http.Cookie
	var stale []string
	for fk, raw := range entries {
		var sc storedCookie
		if err := json.Unmarshal([]byte(raw), &sc); err != nil {
			stale = append(stale, fk)
			continue
		}
		if sc.expired(now) {
			stale = append(stale, fk)
			continue
		}
		if !sc.matchesHost(host) || !sc.matchesPath(u.Path) {
			continue
		}
		if sc.Secure && u.Scheme != "https" {
			continue
		}
		out = append(out, &http.Cookie{Name: sc.Name, Value: sc.Value})
	}

	if len(stale) > 0 {
		_ = j.client.HDel(ctx, j.groupHashKey(groupKey(host)), stale...).Err()
	}
	return out
}

// Value implements Jar.
func (j *RedisJar) Value(host, name string) string {
	if j == nil || j.client == nil {
		return ""
	}

	host = strings.ToLower(host)
	now := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	entries, err := j.client.HGetAll(ctx, j.groupHashKey(groupKey(host))).Result()
	if err != nil {
		return ""
	}

	for _, raw := range entries {
		var sc storedCookie
		if err := json.Unmarshal([]byte(raw), &sc); err != nil {
			continue
		}
		if sc.Name == name && sc.matchesHost(host) && !sc.expired(now) {
			return sc.Value
		}
	}
	return ""
}

// Clear implements Jar.
func (j *RedisJar) Clear(ctx context.Context) error {
	if j == nil || j.client == nil {
		return nil
	}

	groups, err := j.client.SMembers(ctx, j.groupSetKey()).Result()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(groups)+1)
	for _, gk := range groups {
		keys = append(keys, j.groupHashKey(gk))
	}
	keys = append(keys, j.groupSetKey())

	return j.client.Del(ctx, keys...).Err()
}

// ClearSession implements Jar.
func (j *RedisJar) ClearSession(ctx context.Context) error {
	if j == nil || j.client == nil {
		return nil
	}

	groups, err := j.client.SMembers(ctx, j.groupSetKey()).Result()
	if err != nil {
		return err
	}

	for _, gk := range groups {
		entries, err := j.client.HGetAll(ctx, j.groupHashKey(gk)).Result()
		if err != nil {
			return err
		}

		var session []string
		for fk, raw := range entries {
			var sc storedCookie
			if err := json.Unmarshal([]byte(raw), &sc); err != nil {
				session = append(session, fk)
				continue
			}
			if sc.sessionScoped() {
				session = append(session, fk)
			}
		}
		if len(session) > 0 {
			if err := j.client.HDel(ctx, j.groupHashKey(gk), session...).Err(); err != nil {
				return err
			}
		}
	}
	return nil
}
