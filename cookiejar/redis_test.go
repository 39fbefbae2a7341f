package cookiejar

import (
	"context"
	"net/http"
	"testing"
)

func TestRedisJarSurvivesRestart(t *testing.T) {
	client := newTestRedis(t)

	first := NewRedisJar(client, "jartest")
	u := mustURL(t, "https://jwxt.example.edu/")
	first.SetCookies(u, []*http.Cookie{
		{Name: "CASTGC", Value: "TGC-1", Path: "/", MaxAge: 3600},
		{Name: "JSESSIONID", Value: "S-1", Path: "/"},
	})

	// A fresh jar over the same client stands in for a restarted
	// process.
	second := NewRedisJar(client, "jartest")
	if got := second.Value("jwxt.example.edu", "CASTGC"); got != "TGC-1" {
		t.Fatalf("CASTGC after restart = %q", got)
	}
	if got := second.Value("jwxt.example.edu", "JSESSIONID"); got != "S-1" {
		t.Fatalf("JSESSIONID after restart = %q", got)
	}
}

func TestRedisJarPrefixIsolation(t *testing.T) {
	client := newTestRedis(t)
	u := mustURL(t, "https://jwxt.example.edu/")

	a := NewRedisJar(client, "tenant-a")
	b := NewRedisJar(client, "tenant-b")

	a.SetCookies(u, []*http.Cookie{{Name: "JSESSIONID", Value: "S-a", Path: "/"}})

	if got := b.Value("jwxt.example.edu", "JSESSIONID"); got != "" {
		t.Fatalf("prefix leak: %q", got)
	}

	if err := b.Clear(context.Background()); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if got := a.Value("jwxt.example.edu", "JSESSIONID"); got != "S-a" {
		t.Fatalf("Clear crossed prefixes, got %q", got)
	}
}

func TestRedisJarClearRemovesGroupIndex(t *testing.T) {
	client := newTestRedis(t)
	jar := NewRedisJar(client, "jartest")

	u := mustURL(t, "https://jwxt.example.edu/")
	jar.SetCookies(u, []*http.Cookie{{Name: "JSESSIONID", Value: "S-1", Path: "/"}})

	if err := jar.Clear(context.Background()); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	n, err := client.Exists(context.Background(), "jartest:cookie-groups").Result()
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if n != 0 {
		t.Fatal("expected group index key to be deleted")
	}
}

func TestRedisJarDefaultPrefix(t *testing.T) {
	jar := NewRedisJar(newTestRedis(t), "")
	if jar.prefix != "jwxt" {
		t.Fatalf("prefix = %q, want jwxt", jar.prefix)
	}
}
