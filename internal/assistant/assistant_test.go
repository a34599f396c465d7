package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestDemoModeAnswersByTopic(t *testing.T) {
	c := New("")
	uc := UserContext{CurrentRole: "Data Analyst", Experience: "Mid Level", Skills: []string{"SQL"}}

	tests := []struct {
		prompt string
		want   string
	}{
		{"How do I transition into engineering?", "transitioning from Data Analyst"},
		{"What skills should I learn?", "key skills to develop"},
		{"How do I negotiate my salary?", "salary negotiation"},
		{"What are the future trends?", "Current trends"},
		{"How do I get into management?", "leadership skills"},
		{"hello", "I'm here to help"},
	}
	for _, tt := range tests {
		got, err := c.Reply(context.Background(), tt.prompt, uc)
		if err != nil {
			t.Fatalf("prompt %q: %v", tt.prompt, err)
		}
		if !strings.Contains(got, tt.want) {
			t.Errorf("prompt %q: expected reply containing %q, got %q", tt.prompt, tt.want, got)
		}
	}
}

func TestReplyUsesCompletionEndpoint(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected messages %+v", req.Messages)
		}
		json.NewEncoder(w).Encode(chatResponse{Choices: []struct {
			Message chatMessage `json:"message"`
		}{{Message: chatMessage{Role: "assistant", Content: "Consider a mentorship."}}}})
	}))
	defer ts.Close()

	c := New("sk-test", WithBaseURL(ts.URL))
	got, err := c.Reply(context.Background(), "advice?", UserContext{CurrentRole: "Engineer"})
	if err != nil {
		t.Fatalf("reply error: %v", err)
	}
	if got != "Consider a mentorship." {
		t.Errorf("unexpected reply %q", got)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
}

func TestReplyUpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer ts.Close()

	c := New("sk-test", WithBaseURL(ts.URL))
	if _, err := c.Reply(context.Background(), "advice?", UserContext{}); !errors.Is(err, ErrUpstream) {
		t.Errorf("expected ErrUpstream, got %v", err)
	}
}

func TestReplyCachedInRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(chatResponse{Choices: []struct {
			Message chatMessage `json:"message"`
		}{{Message: chatMessage{Content: "cached advice"}}}})
	}))
	defer ts.Close()

	c := New("sk-test", WithBaseURL(ts.URL), WithCache(NewRedisCache(rdb, time.Hour)))
	uc := UserContext{CurrentRole: "Engineer"}

	for i := 0; i < 3; i++ {
		got, err := c.Reply(context.Background(), "same question", uc)
		if err != nil {
			t.Fatalf("reply %d: %v", i, err)
		}
		if got != "cached advice" {
			t.Errorf("reply %d: got %q", i, got)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 upstream call, got %d", calls.Load())
	}

	// Different context misses the cache.
	if _, err := c.Reply(context.Background(), "same question", UserContext{CurrentRole: "Designer"}); err != nil {
		t.Fatalf("reply: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected a second upstream call for a new context, got %d", calls.Load())
	}
}

func TestReplySingleflightCollapsesConcurrentCalls(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		json.NewEncoder(w).Encode(chatResponse{Choices: []struct {
			Message chatMessage `json:"message"`
		}{{Message: chatMessage{Content: "one answer"}}}})
	}))
	defer ts.Close()

	c := New("sk-test", WithBaseURL(ts.URL))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.Reply(context.Background(), "burst question", UserContext{})
			if err != nil {
				t.Errorf("reply: %v", err)
				return
			}
			if got != "one answer" {
				t.Errorf("got %q", got)
			}
		}()
	}

	// Let the goroutines pile onto the in-flight request, then release.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("expected 1 collapsed upstream call, got %d", calls.Load())
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(20 * time.Millisecond)
	c.Set(context.Background(), "k", "v")

	if v, ok := c.Get(context.Background(), "k"); !ok || v != "v" {
		t.Fatalf("expected fresh hit, got %q ok=%v", v, ok)
	}

	time.Sleep(40 * time.Millisecond)
	if _, ok := c.Get(context.Background(), "k"); ok {
		t.Error("expected entry to expire")
	}
}

func TestRedisCacheMissAndTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisCache(rdb, time.Minute)

	if _, ok := c.Get(context.Background(), "missing"); ok {
		t.Error("expected miss for unknown key")
	}

	c.Set(context.Background(), "k", "v")
	if v, ok := c.Get(context.Background(), "k"); !ok || v != "v" {
		t.Fatalf("expected hit, got %q ok=%v", v, ok)
	}

	mr.FastForward(2 * time.Minute)
	if _, ok := c.Get(context.Background(), "k"); ok {
		t.Error("expected entry to expire after TTL")
	}
}
