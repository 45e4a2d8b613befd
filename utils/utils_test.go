package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/threadbbs/config"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "utils-test-secret")
	config.Load()
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func TestRenderMarkdown(t *testing.T) {
	cases := []struct {
		in       string
		contains []string
		absent   []string
	}{
		{"**bold** and `code`", []string{"<strong>bold</strong>", "<code>code</code>"}, nil},
		{"line one\nline two", []string{"<br"}, nil},
		{"~~gone~~", []string{"<del>gone</del>"}, nil},
		{"<script>alert(1)</script>hi", nil, []string{"<script", "alert(1)</script>"}},
		{"[x](javascript:alert(1))", nil, []string{"javascript:"}},
		{"[site](https://example.com)", []string{`href="https://example.com"`, "nofollow", "noreferrer", `target="_blank"`}, nil},
	}
	for _, tc := range cases {
		out := RenderMarkdown(tc.in)
		for _, s := range tc.contains {
			if !strings.Contains(out, s) {
				t.Errorf("RenderMarkdown(%q)=%q, missing %q", tc.in, out, s)
			}
		}
		for _, s := range tc.absent {
			if strings.Contains(out, s) {
				t.Errorf("RenderMarkdown(%q)=%q, must not contain %q", tc.in, out, s)
			}
		}
	}
}

func TestLocalCache(t *testing.T) {
	c, err := NewLocalCache(2)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	c.Set("cache:comments:post=1:a", []byte("a"), time.Minute)
	c.Set("cache:comments:post=2:b", []byte("b"), time.Minute)
	if b, ok := c.Get("cache:comments:post=1:a"); !ok || string(b) != "a" {
		t.Fatalf("expected hit for a")
	}

	c.Set("cache:comments:post=1:c", []byte("c"), time.Minute)
	if _, ok := c.Get("cache:comments:post=2:b"); ok {
		t.Fatalf("least recently used entry should have been evicted")
	}

	c.DeletePrefix("cache:comments:post=1:")
	if _, ok := c.Get("cache:comments:post=1:a"); ok {
		t.Fatalf("prefix delete left an entry behind")
	}

	c.Set("short", []byte("x"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get("short"); ok {
		t.Fatalf("expired entry must not be served")
	}

	if _, err := NewLocalCache(0); err == nil {
		t.Fatalf("zero size must be rejected")
	}
}

func TestTwoTierCacheWithoutRedis(t *testing.T) {
	key := "cache:test:" + t.Name()
	if _, ok := CacheGetBytes(key); ok {
		t.Fatalf("unexpected hit before set")
	}
	CacheSetJSON(key, map[string]int{"n": 1}, time.Minute)
	b, ok := CacheGetBytes(key)
	if !ok || string(b) != `{"n":1}` {
		t.Fatalf("expected cached json, got %q %v", b, ok)
	}
	InvalidateByPrefix("cache:test:")
	if _, ok := CacheGetBytes(key); ok {
		t.Fatalf("invalidate left the entry behind")
	}
}

func TestResponseEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	Error(ctx, http.StatusNotFound, 40430, "Comment not found")

	var got map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w.Code != http.StatusNotFound || got["error"] != "Comment not found" || got["code"].(float64) != 40430 {
		t.Fatalf("unexpected error envelope %d %v", w.Code, got)
	}
	if _, ok := got["data"]; ok {
		t.Fatalf("error envelope must omit data")
	}

	w = httptest.NewRecorder()
	ctx, _ = gin.CreateTestContext(w)
	Success(ctx, gin.H{"ok": true})
	got = nil
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if _, ok := got["error"]; ok || got["message"] != "success" {
		t.Fatalf("unexpected success envelope %v", got)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	tok, err := GenerateToken(5, "dave", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ParseToken(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 5 || claims.Username != "dave" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	anon, _ := GenerateToken(0, "nobody", time.Hour)
	if _, err := ParseToken(anon); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("user id 0 must be rejected, got %v", err)
	}
	if _, err := ParseToken(tok + "x"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("tampered token must be rejected, got %v", err)
	}
}

func TestRecoveryWithZapReturnsEnvelope(t *testing.T) {
	logger, err := NewRollingFileLogger(filepath.Join(t.TempDir(), "gin.log"), "info", 1, 1, 1, false)
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	r := gin.New()
	r.Use(Ginzap(logger, time.RFC3339, true), RecoveryWithZap(logger, true))
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), `"code":50000`) {
		t.Fatalf("unexpected recovery response %d %s", w.Code, w.Body.String())
	}
}

func TestCacheGenerationWithoutRedis(t *testing.T) {
	key := "cache:gen:test:" + t.Name()
	before, ok := CacheGeneration(key)
	if !ok || before != 0 {
		t.Fatalf("fresh generation = %d %v, want 0 true", before, ok)
	}
	BumpGeneration(key)
	BumpGeneration(key)
	if after, _ := CacheGeneration(key); after != before+2 {
		t.Fatalf("generation = %d, want %d", after, before+2)
	}
	if other, _ := CacheGeneration(key + ":other"); other != 0 {
		t.Fatalf("generations must be per key, got %d", other)
	}
}
