package jwxt

import (
	"strings"
	"testing"
	"time"
)

func validTestConfig() Config {
	cfg := defaultConfig()
	cfg.Endpoints = EndpointsConfig{
		EncryptURL:        "https://cas.example.edu/encrypt",
		CASLoginURL:       "https://cas.example.edu/login",
		SystemLoginURL:    "https://jwxt.example.edu/login",
		CASServiceURL:     "https://cas.example.edu/login?service=jwxt",
		ProbeURL:          "https://jwxt.example.edu/home",
		PasswordChangeURL: "https://cas.example.edu/password",
	}
	return cfg
}

func TestConfigValidateAcceptsDefaultsWithEndpoints(t *testing.T) {
	cfg := validTestConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestConfigValidateRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{
			name:    "missing endpoint",
			mutate:  func(c *Config) { c.Endpoints.ProbeURL = "" },
			wantSub: "ProbeURL",
		},
		{
			name:    "malformed endpoint",
			mutate:  func(c *Config) { c.Endpoints.EncryptURL = "not a url" },
			wantSub: "EncryptURL",
		},
		{
			name:    "missing ticket cookie name",
			mutate:  func(c *Config) { c.Cookies.CASTicketName = "" },
			wantSub: "CASTicketName",
		},
		{
			name:    "missing session cookie name",
			mutate:  func(c *Config) { c.Cookies.SessionName = "" },
			wantSub: "SessionName",
		},
		{
			name:    "missing fingerprint",
			mutate:  func(c *Config) { c.Login.Fingerprint = "" },
			wantSub: "Fingerprint",
		},
		{
			name:    "zero login timeout",
			mutate:  func(c *Config) { c.Login.Timeout = 0 },
			wantSub: "Timeout",
		},
		{
			name:    "zero cookie wait attempts",
			mutate:  func(c *Config) { c.Login.CookieWaitAttempts = 0 },
			wantSub: "CookieWaitAttempts",
		},
		{
			name:    "zero fetch attempts",
			mutate:  func(c *Config) { c.Fetch.MaxAttempts = 0 },
			wantSub: "MaxAttempts",
		},
		{
			name:    "negative backoff",
			mutate:  func(c *Config) { c.Fetch.Backoff = -time.Second },
			wantSub: "Backoff",
		},
		{
			name:    "zero request timeout",
			mutate:  func(c *Config) { c.Fetch.RequestTimeout = 0 },
			wantSub: "RequestTimeout",
		},
		{
			name: "audit enabled with zero buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantSub: "BufferSize",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validTestConfig()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("error %q does not mention %q", err, tc.wantSub)
			}
		})
	}
}

func TestConfigCloneIsolatesExtraFields(t *testing.T) {
	cfg := validTestConfig()
	cfg.Login.ExtraFields = map[string]string{"execution": "e1s1"}

	clone := cloneConfig(cfg)
	clone.Login.ExtraFields["execution"] = "mutated"

	if cfg.Login.ExtraFields["execution"] != "e1s1" {
		t.Fatal("clone shares ExtraFields with the original")
	}
}

func TestBuilderRequiresCredentialStore(t *testing.T) {
	_, err := New().WithConfig(validTestConfig()).Build()
	if err == nil {
		t.Fatal("expected Build to fail without a credential store")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := New().
		WithConfig(validTestConfig()).
		WithCredentialStore(&memCredStore{})

	if _, err := b.Build(); err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestBuilderDefaults(t *testing.T) {
	cfg := defaultConfig()
	if cfg.Cookies.CASTicketName != "CASTGC" || cfg.Cookies.SessionName != "JSESSIONID" {
		t.Fatalf("cookie defaults = %q/%q", cfg.Cookies.CASTicketName, cfg.Cookies.SessionName)
	}
	if cfg.Fetch.MaxAttempts != 3 || cfg.Fetch.Backoff != 500*time.Millisecond {
		t.Fatalf("fetch defaults = %d/%v", cfg.Fetch.MaxAttempts, cfg.Fetch.Backoff)
	}
	if cfg.Login.Timeout != 45*time.Second {
		t.Fatalf("login timeout default = %v", cfg.Login.Timeout)
	}
}
