package jwxt

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"
)

// memCredStore is a hand-rolled CredentialStore with call counters.
type memCredStore struct {
	mu     sync.Mutex
	creds  Credentials
	set    bool
	loads  int
	saves  int
	clears int

	loadErr error
	saveErr error
}

func (s *memCredStore) Load(context.Context) (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.loadErr != nil {
		return Credentials{}, s.loadErr
	}
	if !s.set {
		return Credentials{}, nil
	}
	return s.creds, nil
}

func (s *memCredStore) Save(_ context.Context, creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.creds = creds
	s.set = true
	return nil
}

func (s *memCredStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears++
	s.creds = Credentials{}
	s.set = false
	return nil
}

func (s *memCredStore) Present(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set && !s.creds.Blank(), nil
}

func (s *memCredStore) saved() (Credentials, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds, s.set
}

func (s *memCredStore) loadCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

// loginFormHTML is what the fake CAS serves for an unauthenticated
// request. It carries the fingerprint and the hidden login ticket.
const loginFormHTML = `<html><head><title>统一身份认证</title></head><body>
<form id="loginForm" action="/cas/login" method="post">
<input type="hidden" name="lt" value="LT-20260829-1"/>
<input type="hidden" name="execution" value="e1s1"/>
<input type="text" name="username"/>
<input type="password" name="password"/>
</form></body></html>`

// casPortal is an httptest-backed fake of the CAS server and the
// downstream academic system, with counters for every step of the
// handshake.
type casPortal struct {
	srv *httptest.Server

	mu              sync.Mutex
	encryptCalls    int
	encryptCookies  []int
	formGets        int
	credentialPosts int
	systemGets      int
	serviceGets     int
	probeGets       int
	pageGets        int

	acceptPassword     string
	passwordChangeBody string
	sessionSeq         int
	validSessions      map[string]bool
	pageFailRemaining  int
	pageRedirectsLogin bool
}

func newCASPortal(t *testing.T) *casPortal {
	t.Helper()

	p := &casPortal{
		acceptPassword:     "secret-pass",
		passwordChangeBody: "1",
		validSessions:      map[string]bool{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/cas/encrypt", p.handleEncrypt)
	mux.HandleFunc("/cas/login", p.handleCASLogin)
	mux.HandleFunc("/system/login", p.handleSystemLogin)
	mux.HandleFunc("/cas/service", p.handleService)
	mux.HandleFunc("/probe", p.handleProbe)
	mux.HandleFunc("/page", p.handlePage)
	mux.HandleFunc("/password", p.handlePasswordChange)

	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)
	return p
}

func (p *casPortal) handleEncrypt(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.encryptCalls++
	p.encryptCookies = append(p.encryptCookies, len(r.Cookies()))
	p.mu.Unlock()

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	_ = r.ParseForm()
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"passwordEnc":"enc(%s)"}`, r.PostFormValue("password"))
}

func (p *casPortal) handleCASLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		p.mu.Lock()
		p.formGets++
		p.mu.Unlock()
		fmt.Fprint(w, loginFormHTML)
		return
	}

	p.mu.Lock()
	p.credentialPosts++
	accept := "enc(" + p.acceptPassword + ")"
	p.mu.Unlock()

	_ = r.ParseForm()
	if r.PostFormValue("lt") == "" || r.PostFormValue("password") != accept {
		fmt.Fprint(w, loginFormHTML)
		return
	}

	// The ticket cookie carries an expiry; only JSESSIONID is
	// session-scoped.
	http.SetCookie(w, &http.Cookie{Name: "CASTGC", Value: "TGC-1", Path: "/", MaxAge: 3600})
	http.Redirect(w, r, "/system/login", http.StatusFound)
}

func (p *casPortal) handleSystemLogin(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.systemGets++
	p.mu.Unlock()

	if _, err := r.Cookie("CASTGC"); err != nil {
		fmt.Fprint(w, loginFormHTML)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: p.issueSession(), Path: "/"})
	fmt.Fprint(w, `<html><body>portal home</body></html>`)
}

func (p *casPortal) handleService(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.serviceGets++
	p.mu.Unlock()

	if _, err := r.Cookie("CASTGC"); err != nil {
		fmt.Fprint(w, loginFormHTML)
		return
	}
	fmt.Fprint(w, `<html><body>service ok</body></html>`)
}

func (p *casPortal) handleProbe(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.probeGets++
	p.mu.Unlock()

	if !p.sessionOK(r) {
		fmt.Fprint(w, loginFormHTML)
		return
	}
	fmt.Fprint(w, `<html><body>学生个人中心</body></html>`)
}

func (p *casPortal) handlePage(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.pageGets++
	fail := p.pageFailRemaining > 0
	if fail {
		p.pageFailRemaining--
	}
	redirect := p.pageRedirectsLogin
	p.mu.Unlock()

	if fail {
		// Write a partial response and drop the connection so the
		// failure surfaces as an unexpected EOF mid-body. Closing
		// with no bytes written instead would let the transport
		// transparently replay the idempotent GET on a fresh
		// connection, absorbing the injected failure.
		if hj, ok := w.(http.Hijacker); ok {
			conn, buf, err := hj.Hijack()
			if err == nil {
				_, _ = buf.WriteString("HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\npartial")
				_ = buf.Flush()
				conn.Close()
				return
			}
		}
		w.WriteHeader(http.StatusBadGateway)
		return
	}

	if !p.sessionOK(r) {
		if redirect {
			http.Redirect(w, r, "/cas/login", http.StatusFound)
			return
		}
		fmt.Fprint(w, loginFormHTML)
		return
	}

	fmt.Fprintf(w, `<html><body>data for %s</body></html>`, r.URL.Query().Get("q"))
}

func (p *casPortal) handlePasswordChange(w http.ResponseWriter, r *http.Request) {
	if !p.sessionOK(r) {
		fmt.Fprint(w, loginFormHTML)
		return
	}
	p.mu.Lock()
	body := p.passwordChangeBody
	p.mu.Unlock()
	fmt.Fprint(w, body)
}

func (p *casPortal) issueSession() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessionSeq++
	id := fmt.Sprintf("S-%d", p.sessionSeq)
	p.validSessions[id] = true
	return id
}

// revokeSessions invalidates every issued session server-side while the
// cookies stay in the client's jar.
func (p *casPortal) revokeSessions() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id := range p.validSessions {
		p.validSessions[id] = false
	}
}

func (p *casPortal) sessionOK(r *http.Request) bool {
	if _, err := r.Cookie("CASTGC"); err != nil {
		return false
	}
	c, err := r.Cookie("JSESSIONID")
	if err != nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.validSessions[c.Value]
}

func (p *casPortal) counts() (encrypt, form, posts, system, service int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encryptCalls, p.formGets, p.credentialPosts, p.systemGets, p.serviceGets
}

// encryptCookieCounts reports how many cookies each password-encryption
// request carried, in arrival order.
func (p *casPortal) encryptCookieCounts() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.encryptCookies...)
}

func (p *casPortal) credentialPostCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.credentialPosts
}

func (p *casPortal) pageURL() string {
	return p.srv.URL + "/page"
}

func (p *casPortal) testConfig() Config {
	cfg := defaultConfig()
	cfg.Endpoints = EndpointsConfig{
		EncryptURL:        p.srv.URL + "/cas/encrypt",
		CASLoginURL:       p.srv.URL + "/cas/login",
		SystemLoginURL:    p.srv.URL + "/system/login",
		CASServiceURL:     p.srv.URL + "/cas/service",
		ProbeURL:          p.srv.URL + "/probe",
		PasswordChangeURL: p.srv.URL + "/password",
	}
	cfg.Login.Timeout = 10 * time.Second
	cfg.Login.CookieWaitInterval = time.Millisecond
	cfg.Fetch.Backoff = 5 * time.Millisecond
	cfg.Fetch.RequestTimeout = 5 * time.Second
	return cfg
}

func buildTestEngine(t *testing.T, p *casPortal, creds Credentials) (*Engine, *memCredStore) {
	t.Helper()

	store := &memCredStore{}
	if !creds.Blank() {
		store.creds = creds
		store.set = true
	}

	engine, err := New().
		WithConfig(p.testConfig()).
		WithCredentialStore(store).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, store
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func testCredentials() Credentials {
	return Credentials{StudentID: "2023010101", Password: "secret-pass", ISP: ISPTelecom}
}
