// Command jwxt-probe logs in to a campus portal from the command line and
// reports session health. It is the operational smoke test for a portal
// deployment: point it at the CAS endpoints, give it an account, and it
// walks the full login handshake, probes the session, optionally fetches
// one page, and prints the metric counters it collected.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	jwxt "github.com/campusbox/jwxt"
	"github.com/campusbox/jwxt/credential"
	"github.com/campusbox/jwxt/metrics/export/internaldefs"
)

func main() {
	var (
		encryptURL     = flag.String("encrypt-url", "", "password encryption endpoint")
		casLoginURL    = flag.String("cas-login-url", "", "CAS login form endpoint")
		systemLoginURL = flag.String("system-login-url", "", "downstream system login endpoint")
		casServiceURL  = flag.String("cas-service-url", "", "CAS service redirect endpoint")
		probeURL       = flag.String("probe-url", "", "authenticated probe page")
		passwordURL    = flag.String("password-url", "", "password change endpoint")
		studentID      = flag.String("student-id", "", "portal account id")
		password       = flag.String("password", "", "portal account password")
		fetchURL       = flag.String("fetch", "", "optional page to fetch after login")
		redisAddr      = flag.String("redis-addr", "", "redis address for persistent session state; empty keeps everything in memory")
		timeout        = flag.Duration("timeout", 60*time.Second, "overall deadline")
		audit          = flag.Bool("audit", false, "write audit events to stderr as JSON lines")
	)
	flag.Parse()

	if *studentID == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "student-id and password are required")
		os.Exit(2)
	}

	cfg := jwxt.DefaultConfig()
	cfg.Endpoints = jwxt.EndpointsConfig{
		EncryptURL:        *encryptURL,
		CASLoginURL:       *casLoginURL,
		SystemLoginURL:    *systemLoginURL,
		CASServiceURL:     *casServiceURL,
		ProbeURL:          *probeURL,
		PasswordChangeURL: *passwordURL,
	}

	builder := jwxt.New().
		WithConfig(cfg).
		WithMetricsEnabled(true)

	if *redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
		defer rdb.Close()
		builder = builder.
			WithRedis(rdb).
			WithCredentialStore(credential.NewRedisStore(rdb, "jwxt-probe")).
			WithKeyPrefix("jwxt-probe")
	} else {
		builder = builder.WithCredentialStore(credential.NewMemoryStore())
	}

	if *audit {
		builder = builder.WithAuditSink(jwxt.NewJSONWriterSink(os.Stderr))
	}

	engine, err := builder.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = jwxt.WithClientTag(ctx, "jwxt-probe")

	start := time.Now()
	if err := engine.LoginManually(ctx, *studentID, *password, jwxt.ISPUnset); err != nil {
		fmt.Fprintf(os.Stderr, "login: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("login ok in %v\n", time.Since(start).Round(time.Millisecond))

	if engine.CheckSessionValidity(ctx) {
		fmt.Println("probe ok: session honored server-side")
	} else {
		fmt.Println("probe FAILED: server does not honor the session")
	}

	if *fetchURL != "" {
		body, err := engine.Fetcher().FetchPage(ctx, *fetchURL, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fetch: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("fetch ok: %d bytes\n", len(body))
	}

	printCounters(engine)
}

func printCounters(engine *jwxt.Engine) {
	snap := engine.MetricsSnapshot()

	names := make([]string, 0, len(internaldefs.CounterDefs))
	byName := make(map[string]uint64, len(internaldefs.CounterDefs))
	for _, def := range internaldefs.CounterDefs {
		if v := snap.Counters[def.ID]; v > 0 {
			names = append(names, def.Name)
			byName[def.Name] = v
		}
	}
	sort.Strings(names)

	fmt.Println("counters:")
	for _, name := range names {
		fmt.Printf("  %s = %d\n", name, byName[name])
	}
}
