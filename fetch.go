package jwxt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// errLoginRedirect is returned from the fetch client's CheckRedirect when
// a hop points back at a login page. It only ever travels wrapped inside
// a *url.Error and is unwrapped in fetchOnce.
var errLoginRedirect = errors.New("redirected to login page")

const maxFetchRedirects = 10

// Fetcher retrieves authenticated portal pages with bounded retry.
// Retries cover transient transport failures only; session expiry and bad
// status codes surface immediately because repeating the request cannot
// change the answer.
type Fetcher struct {
	e      *Engine
	client *http.Client
}

func newFetcher(e *Engine, transport http.RoundTripper) *Fetcher {
	return &Fetcher{
		e: e,
		client: &http.Client{
			Transport: transport,
			Jar:       e.jar,
			Timeout:   e.config.Fetch.RequestTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if strings.Contains(strings.ToLower(req.URL.String()), "login") {
					return errLoginRedirect
				}
				if len(via) >= maxFetchRedirects {
					return fmt.Errorf("stopped after %d redirects", maxFetchRedirects)
				}
				return nil
			},
		},
	}
}

// FetchPage GETs the page at rawURL with params encoded into the query
// string and returns the body as a string. Transient failures are retried
// up to Config.Fetch.MaxAttempts times with linearly growing backoff.
// Expired sessions return ErrSessionExpired, non-2xx responses return
// ErrBadStatus, and an exhausted budget returns ErrFetchFailed joined
// with the last attempt's error.
func (f *Fetcher) FetchPage(ctx context.Context, rawURL string, params url.Values) (string, error) {
	if f == nil || f.client == nil {
		return "", ErrEngineNotReady
	}

	target := rawURL
	if len(params) > 0 {
		u, err := url.Parse(rawURL)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
		}
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
		target = u.String()
	}

	var lastErr error
	start := time.Now()
	for attempt := 1; attempt <= f.e.config.Fetch.MaxAttempts; attempt++ {
		if attempt > 1 {
			f.e.metricInc(MetricFetchRetry)
			backoff := time.Duration(attempt-1) * f.e.config.Fetch.Backoff
			if err := sleepCtx(ctx, backoff); err != nil {
				break
			}
		}

		body, err := f.fetchOnce(ctx, target)
		if err == nil {
			f.e.metricInc(MetricFetchSuccess)
			f.e.observeFetchLatency(start)
			return body, nil
		}
		if errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrBadStatus) {
			return "", err
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	f.e.metricInc(MetricFetchFailure)
	f.e.emitAudit(ctx, auditEventFetchExhausted, false, "", lastErr, func() map[string]string {
		return map[string]string{"url": rawURL}
	})
	return "", errors.Join(ErrFetchFailed, lastErr)
}

func (f *Fetcher) fetchOnce(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.e.config.Login.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, errLoginRedirect) {
			f.e.metricInc(MetricSessionExpired)
			f.e.emitAudit(ctx, auditEventSessionExpired, false, "", ErrSessionExpired, func() map[string]string {
				return map[string]string{"url": target, "signal": "login_redirect"}
			})
			return "", ErrSessionExpired
		}
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	body := string(raw)
	if f.e.looksLikeLoginPage(body) {
		f.e.metricInc(MetricSessionExpired)
		f.e.emitAudit(ctx, auditEventSessionExpired, false, "", ErrSessionExpired, func() map[string]string {
			return map[string]string{"url": target, "signal": "login_page_body"}
		})
		return "", ErrSessionExpired
	}
	return body, nil
}

func (e *Engine) observeFetchLatency(start time.Time) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(MetricFetchLatency, time.Since(start))
}
