package jwxt

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/redis/go-redis/v9"

	"github.com/campusbox/jwxt/cookiejar"
)

// Builder assembles an Engine step by step. Zero value is not usable;
// start from [New]. A Builder is single use: Build consumes it.
type Builder struct {
	config    Config
	redis     *redis.Client
	keyPrefix string
	jar       cookiejar.Jar
	creds     CredentialStore
	transport http.RoundTripper
	auditSink AuditSink
	built     bool
}

// New returns a Builder preloaded with defaults. Endpoint URLs and a
// credential store must still be provided.
func New() *Builder {
	return &Builder{
		config:    defaultConfig(),
		keyPrefix: "jwxt",
	}
}

// WithConfig replaces the full configuration. Zero-valued sections fall
// back to defaults at Build time only where a default exists; endpoints
// never default.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis makes both the cookie jar and any Redis-backed state share
// this client. A jar set explicitly via WithCookieJar wins over the
// Redis-derived one.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithKeyPrefix overrides the Redis key namespace. Default "jwxt".
func (b *Builder) WithKeyPrefix(prefix string) *Builder {
	if prefix != "" {
		b.keyPrefix = prefix
	}
	return b
}

// WithCookieJar installs a specific jar implementation.
func (b *Builder) WithCookieJar(jar cookiejar.Jar) *Builder {
	b.jar = jar
	return b
}

// WithCredentialStore installs the credential store. Required.
func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.creds = store
	return b
}

// WithTransport overrides the HTTP transport shared by every client the
// engine constructs.
func (b *Builder) WithTransport(rt http.RoundTripper) *Builder {
	b.transport = rt
	return b
}

// WithAuditSink installs the audit sink and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithMetricsEnabled toggles the internal metric registry.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the fetch latency histogram. Implies
// nothing unless metrics are enabled too.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and constructs the Engine. The
// Builder must not be reused afterwards.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("jwxt: builder already consumed")
	}
	b.built = true

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.creds == nil {
		return nil, errors.New("jwxt: credential store is required")
	}

	casHost, err := hostOf(cfg.Endpoints.CASLoginURL)
	if err != nil {
		return nil, err
	}
	systemHost, err := hostOf(cfg.Endpoints.SystemLoginURL)
	if err != nil {
		return nil, err
	}

	jar := b.jar
	if jar == nil {
		if b.redis != nil {
			jar = cookiejar.NewRedisJar(b.redis, b.keyPrefix)
		} else {
			jar = cookiejar.NewMemoryJar()
		}
	}

	transport := b.transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	e := &Engine{
		config: cfg,
		jar:    jar,
		creds:  b.creds,
		client: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   cfg.Fetch.RequestTimeout,
		},
		noRedirect: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   cfg.Fetch.RequestTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		metrics:    NewMetrics(cfg.Metrics),
		audit:      newAuditDispatcher(cfg.Audit, b.auditSink),
		casHost:    casHost,
		systemHost: systemHost,
	}
	e.fetcher = newFetcher(e, transport)

	return e, nil
}

func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Hostname() == "" {
		return "", errors.New("jwxt: endpoint URL has no host: " + rawURL)
	}
	return u.Hostname(), nil
}
