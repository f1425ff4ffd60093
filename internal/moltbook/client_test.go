package moltbook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"moltbot/internal/models"
)

type fakeMoltbook struct {
	authCalls    atomic.Int32
	postCalls    atomic.Int32
	commentCalls atomic.Int32
	authStatus   int
	feedSize     int
	postStatus   int
	lastSubmolt  atomic.Value
	lastBearer   atomic.Value
}

func (f *fakeMoltbook) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/token", func(w http.ResponseWriter, r *http.Request) {
		n := f.authCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if f.authStatus != 0 && f.authStatus != http.StatusOK {
			w.WriteHeader(f.authStatus)
			fmt.Fprint(w, `{"error":"denied"}`)
			return
		}
		var body authRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("bad auth body: %v", err)
		}
		if body.AgentName != "Assistant_Alex" || !body.OwnerVerified {
			t.Errorf("unexpected auth payload: %+v", body)
		}
		fmt.Fprintf(w, `{"token":"tok-%d"}`, n)
	})

	mux.HandleFunc("POST /posts", func(w http.ResponseWriter, r *http.Request) {
		f.postCalls.Add(1)
		f.lastBearer.Store(r.Header.Get("Authorization"))
		if f.postStatus != 0 {
			w.WriteHeader(f.postStatus)
			fmt.Fprint(w, `{"error":"rate limit exceeded"}`)
			return
		}
		var body postRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("bad post body: %v", err)
		}
		f.lastSubmolt.Store(body.Submolt)
		if body.Metadata.Activity != "sharing" || body.Metadata.Mood != "neutral" {
			t.Errorf("unexpected metadata: %+v", body.Metadata)
		}
		fmt.Fprint(w, `{"post_id":"p-42","status":"published"}`)
	})

	mux.HandleFunc("POST /comments", func(w http.ResponseWriter, r *http.Request) {
		f.commentCalls.Add(1)
		fmt.Fprint(w, `{"comment_id":"c-1"}`)
	})

	mux.HandleFunc("GET /posts", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "20" {
			t.Errorf("expected limit=20, got %q", r.URL.Query().Get("limit"))
		}
		posts := make([]models.MoltbookPost, f.feedSize)
		for i := range posts {
			posts[i] = models.MoltbookPost{ID: fmt.Sprintf("p-%d", i), Title: "hello"}
		}
		json.NewEncoder(w).Encode(posts)
	})

	mux.HandleFunc("POST /posts/{id}/upvote", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	return mux
}

func newTestClient(t *testing.T, fake *fakeMoltbook, ttl time.Duration) *Client {
	t.Helper()
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)

	return NewClient(Options{
		BaseURL:       server.URL,
		APIKey:        "test-key",
		Identity:      models.NewBotIdentity("Alex"),
		Timeout:       2 * time.Second,
		TokenTTL:      ttl,
		RatePerSecond: 1000,
	})
}

func TestClient_AuthenticateCachesToken(t *testing.T) {
	fake := &fakeMoltbook{}
	client := newTestClient(t, fake, time.Hour)
	ctx := context.Background()

	if err := client.Authenticate(ctx); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if !client.Authenticated() {
		t.Fatal("expected token to be cached")
	}
	if client.TokenExpiry().Before(time.Now().Add(59 * time.Minute)) {
		t.Errorf("token expiry too early: %v", client.TokenExpiry())
	}

	for i := 0; i < 2; i++ {
		if _, err := client.CreatePost(ctx, "title", "content", ""); err != nil {
			t.Fatalf("CreatePost failed: %v", err)
		}
	}

	if got := fake.authCalls.Load(); got != 1 {
		t.Errorf("expected 1 auth call, got %d", got)
	}
	if got := fake.lastBearer.Load(); got != "Bearer tok-1" {
		t.Errorf("expected cached bearer, got %v", got)
	}
	if got := fake.lastSubmolt.Load(); got != "general" {
		t.Errorf("expected default submolt general, got %v", got)
	}
}

func TestClient_ReauthenticatesAfterExpiry(t *testing.T) {
	fake := &fakeMoltbook{}
	client := newTestClient(t, fake, 50*time.Millisecond)
	ctx := context.Background()

	if _, err := client.CreatePost(ctx, "t", "c", ""); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	time.Sleep(120 * time.Millisecond)
	if client.Authenticated() {
		t.Fatal("token should have expired")
	}
	if _, err := client.CreatePost(ctx, "t", "c", ""); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	if got := fake.authCalls.Load(); got != 2 {
		t.Errorf("expected re-authentication, got %d auth calls", got)
	}
	if got := fake.lastBearer.Load(); got != "Bearer tok-2" {
		t.Errorf("expected fresh token, got %v", got)
	}
}

func TestClient_AuthFailureIsRecoverable(t *testing.T) {
	fake := &fakeMoltbook{authStatus: http.StatusForbidden}
	client := newTestClient(t, fake, time.Hour)

	_, err := client.CreatePost(context.Background(), "t", "c", "")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %d", authErr.StatusCode)
	}
	if fake.postCalls.Load() != 0 {
		t.Error("post must not be attempted without a token")
	}
}

func TestClient_UnreachableServer(t *testing.T) {
	client := NewClient(Options{
		BaseURL:       "http://127.0.0.1:1",
		APIKey:        "test-key",
		Identity:      models.NewBotIdentity("Alex"),
		Timeout:       500 * time.Millisecond,
		RatePerSecond: 1000,
	})

	err := client.Authenticate(context.Background())
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.Err == nil {
		t.Error("expected wrapped network error")
	}
}

func TestClient_APIErrorCarriesStatus(t *testing.T) {
	fake := &fakeMoltbook{postStatus: http.StatusTooManyRequests}
	client := newTestClient(t, fake, time.Hour)

	_, err := client.CreatePost(context.Background(), "t", "c", "")
	if StatusCode(err) != http.StatusTooManyRequests {
		t.Fatalf("expected 429 status, got %v", err)
	}
	if ResponseBody(err) == "" {
		t.Error("expected response body to be kept")
	}
}

func TestClient_BrowseFeedCapsItems(t *testing.T) {
	fake := &fakeMoltbook{feedSize: 25}
	client := newTestClient(t, fake, time.Hour)

	posts, err := client.BrowseFeed(context.Background(), "")
	if err != nil {
		t.Fatalf("BrowseFeed failed: %v", err)
	}
	if len(posts) != FeedLimit {
		t.Errorf("expected %d posts, got %d", FeedLimit, len(posts))
	}
	if posts[0].ID != "p-0" {
		t.Errorf("unexpected first post: %+v", posts[0])
	}
}

func TestClient_CreatePostReturnsID(t *testing.T) {
	fake := &fakeMoltbook{}
	client := newTestClient(t, fake, time.Hour)

	result, err := client.CreatePost(context.Background(), "Daily Update", "hi", "agents")
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	if result.PostID != "p-42" {
		t.Errorf("expected post id p-42, got %q", result.PostID)
	}
	if result.Extra["status"] != "published" {
		t.Errorf("expected extra fields to be kept, got %v", result.Extra)
	}
	if got := fake.lastSubmolt.Load(); got != "agents" {
		t.Errorf("expected submolt agents, got %v", got)
	}
}

func TestClient_CommentAndUpvote(t *testing.T) {
	fake := &fakeMoltbook{}
	client := newTestClient(t, fake, time.Hour)
	ctx := context.Background()

	res, err := client.Comment(ctx, "p-1", "Interesting perspective!")
	if err != nil {
		t.Fatalf("Comment failed: %v", err)
	}
	if res.CommentID != "c-1" || res.PostID != "p-1" {
		t.Errorf("unexpected comment result: %+v", res)
	}

	ok, err := client.Upvote(ctx, "p-1")
	if err != nil || !ok {
		t.Errorf("expected upvote success, got %v / %v", ok, err)
	}

	ok, err = client.Upvote(ctx, "missing")
	if err != nil || ok {
		t.Errorf("expected upvote false without error, got %v / %v", ok, err)
	}
}

func TestDecodeFeed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"array", `[{"id":"a"},{"id":"b"}]`, 2},
		{"wrapped", `{"posts":[{"id":"a"}]}`, 1},
		{"null", `null`, 0},
		{"empty", ``, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posts, err := decodeFeed(json.RawMessage(tt.raw))
			if err != nil {
				t.Fatalf("decodeFeed: %v", err)
			}
			if len(posts) != tt.want {
				t.Errorf("expected %d posts, got %d", tt.want, len(posts))
			}
		})
	}
}

func TestClient_TokenExpiringImmediatelyStillServesCall(t *testing.T) {
	fake := &fakeMoltbook{}
	client := newTestClient(t, fake, time.Nanosecond)

	result, err := client.CreatePost(context.Background(), "t", "c", "")
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	if result.PostID != "p-42" {
		t.Errorf("expected post id p-42, got %q", result.PostID)
	}
	if got := fake.lastBearer.Load(); got != "Bearer tok-1" {
		t.Errorf("expected the freshly issued token, got %v", got)
	}
	if client.Authenticated() {
		t.Error("a 1ns token should not stay cached")
	}
}

func TestBurstFor(t *testing.T) {
	tests := []struct {
		rps  float64
		want int
	}{
		{1, 2},
		{5, 10},
		{0.2, 1},
		{0.5, 1},
	}

	for _, tt := range tests {
		if got := burstFor(tt.rps); got != tt.want {
			t.Errorf("burstFor(%v) = %d, want %d", tt.rps, got, tt.want)
		}
	}
}
