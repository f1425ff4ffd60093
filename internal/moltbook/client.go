package moltbook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"moltbot/internal/models"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// FeedLimit caps how many posts a single browse returns
const FeedLimit = 20

const tokenKey = "bearer"

// Options configures a Client
type Options struct {
	BaseURL       string
	APIKey        string
	Identity      models.BotIdentity
	Timeout       time.Duration // per call
	TokenTTL      time.Duration
	RatePerSecond float64
	HTTPClient    *http.Client
}

// Client talks to the Moltbook API. Every authenticated call makes sure a
// bearer token is cached first and re-authenticates when it has expired.
type Client struct {
	baseURL    string
	apiKey     string
	identity   models.BotIdentity
	httpClient *http.Client
	timeout    time.Duration
	tokenTTL   time.Duration
	tokens     *cache.Cache
	limiter    *rate.Limiter
	authMu     sync.Mutex
	now        func() time.Time
}

// NewClient creates a Moltbook client
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.moltbook.com/v1"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 1
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		transport := &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		}
		httpClient = &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		}
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		identity:   opts.Identity,
		httpClient: httpClient,
		timeout:    opts.Timeout,
		tokenTTL:   opts.TokenTTL,
		// no janitor: a single key is checked for expiry on every Get
		tokens:  cache.New(opts.TokenTTL, 0),
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSecond), burstFor(opts.RatePerSecond)),
		now:     time.Now,
	}
}

// burstFor allows two seconds' worth of calls at once, at least one
func burstFor(rps float64) int {
	return max(1, int(rps*2))
}

type authRequest struct {
	AgentName     string   `json:"agent_name"`
	Capabilities  []string `json:"capabilities"`
	OwnerVerified bool     `json:"owner_verified"`
}

type authResponse struct {
	Token string `json:"token"`
}

// Authenticate exchanges the API key for a bearer token and caches it
func (c *Client) Authenticate(ctx context.Context) error {
	c.authMu.Lock()
	defer c.authMu.Unlock()
	_, err := c.authenticateLocked(ctx)
	return err
}

func (c *Client) authenticateLocked(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return "", &AuthError{Err: err}
	}

	payload, err := json.Marshal(authRequest{
		AgentName:     c.identity.Name,
		Capabilities:  c.identity.Capabilities,
		OwnerVerified: true,
	})
	if err != nil {
		return "", &AuthError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/token", bytes.NewReader(payload))
	if err != nil {
		return "", &AuthError{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &AuthError{Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		return "", &AuthError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var data authResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return "", &AuthError{StatusCode: resp.StatusCode, Body: string(body), Err: fmt.Errorf("decode token: %w", err)}
	}
	if data.Token == "" {
		return "", &AuthError{StatusCode: resp.StatusCode, Body: string(body), Err: fmt.Errorf("empty token in response")}
	}

	c.tokens.Set(tokenKey, data.Token, c.tokenTTL)
	log.Printf("🦞 [MOLTBOOK] Authenticated as %s (token valid %v)", c.identity.Name, c.tokenTTL)
	return data.Token, nil
}

// ensureAuth returns a valid bearer token, authenticating if none is cached.
// A freshly issued token is used for the call even if its TTL already lapsed.
func (c *Client) ensureAuth(ctx context.Context) (string, error) {
	if token, ok := c.cachedToken(); ok {
		return token, nil
	}

	c.authMu.Lock()
	defer c.authMu.Unlock()

	// another caller may have refreshed while we waited
	if token, ok := c.cachedToken(); ok {
		return token, nil
	}
	return c.authenticateLocked(ctx)
}

func (c *Client) cachedToken() (string, bool) {
	v, ok := c.tokens.Get(tokenKey)
	if !ok {
		return "", false
	}
	token, ok := v.(string)
	return token, ok && token != ""
}

// Authenticated reports whether an unexpired token is cached
func (c *Client) Authenticated() bool {
	_, ok := c.tokens.Get(tokenKey)
	return ok
}

// TokenExpiry returns when the cached token lapses, or the zero time
func (c *Client) TokenExpiry() time.Time {
	_, expiry, ok := c.tokens.GetWithExpiration(tokenKey)
	if !ok {
		return time.Time{}
	}
	return expiry
}

type postRequest struct {
	Title     string       `json:"title"`
	Content   string       `json:"content"`
	Submolt   string       `json:"submolt"`
	Timestamp string       `json:"timestamp"`
	Metadata  postMetadata `json:"metadata"`
}

type postMetadata struct {
	Mood     string `json:"mood"`
	Activity string `json:"activity"`
}

// CreatePost publishes a post in submolt (default "general")
func (c *Client) CreatePost(ctx context.Context, title, content, submolt string) (*models.PostResult, error) {
	if submolt == "" {
		submolt = "general"
	}
	mood := c.identity.Mood
	if mood == "" {
		mood = "neutral"
	}

	body := postRequest{
		Title:     title,
		Content:   content,
		Submolt:   submolt,
		Timestamp: c.now().Format(time.RFC3339),
		Metadata:  postMetadata{Mood: mood, Activity: "sharing"},
	}

	var raw map[string]any
	if err := c.do(ctx, http.MethodPost, "/posts", nil, body, &raw); err != nil {
		return nil, err
	}

	result := &models.PostResult{Extra: raw}
	if id, ok := raw["post_id"].(string); ok {
		result.PostID = id
	} else if id, ok := raw["id"].(string); ok {
		result.PostID = id
	}
	return result, nil
}

type commentRequest struct {
	PostID    string `json:"post_id"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// Comment replies to a post
func (c *Client) Comment(ctx context.Context, postID, content string) (*models.CommentResult, error) {
	body := commentRequest{
		PostID:    postID,
		Content:   content,
		Timestamp: c.now().Format(time.RFC3339),
	}

	var result models.CommentResult
	if err := c.do(ctx, http.MethodPost, "/comments", nil, body, &result); err != nil {
		return nil, err
	}
	if result.PostID == "" {
		result.PostID = postID
	}
	return &result, nil
}

// BrowseFeed lists recent posts, optionally within one submolt, capped at FeedLimit
func (c *Client) BrowseFeed(ctx context.Context, submolt string) ([]models.MoltbookPost, error) {
	query := url.Values{}
	query.Set("limit", fmt.Sprintf("%d", FeedLimit))
	if submolt != "" {
		query.Set("submolt", submolt)
	}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/posts", query, nil, &raw); err != nil {
		return nil, err
	}

	posts, err := decodeFeed(raw)
	if err != nil {
		return nil, &TransportError{Op: "decode feed", Err: err}
	}
	if len(posts) > FeedLimit {
		posts = posts[:FeedLimit]
	}
	return posts, nil
}

// decodeFeed accepts either a bare array or an object with a "posts" array
func decodeFeed(raw json.RawMessage) ([]models.MoltbookPost, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var posts []models.MoltbookPost
	if trimmed[0] == '[' {
		err := json.Unmarshal(trimmed, &posts)
		return posts, err
	}

	var wrapped struct {
		Posts []models.MoltbookPost `json:"posts"`
	}
	err := json.Unmarshal(trimmed, &wrapped)
	return wrapped.Posts, err
}

// Upvote upvotes a post. A non-200 answer is reported as false, not as an error.
func (c *Client) Upvote(ctx context.Context, postID string) (bool, error) {
	err := c.do(ctx, http.MethodPost, "/posts/"+url.PathEscape(postID)+"/upvote", nil, nil, nil)
	if err == nil {
		return true, nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return false, nil
	}
	return false, err
}

// do performs an authenticated JSON request. A 401 drops the cached token so
// the next call re-authenticates.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	token, err := c.ensureAuth(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return &TransportError{Op: method + " " + path, Err: err}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &TransportError{Op: "read " + path, Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.tokens.Delete(tokenKey)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(data)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: "decode " + path, Err: err}
	}
	return nil
}
