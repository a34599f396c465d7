package assistant

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-3.5-turbo"
	maxTokens      = 300
	temperature    = 0.7
	requestTimeout = 30 * time.Second
)

// ErrUpstream is returned when the completion endpoint rejects a request.
var ErrUpstream = errors.New("assistant upstream error")

// UserContext is the career profile the advice is tailored to.
type UserContext struct {
	CurrentRole string   `json:"current_role"`
	Experience  string   `json:"experience"`
	Skills      []string `json:"skills"`
}

// Client answers career questions through an OpenAI-compatible chat
// completion endpoint. Without an API key it serves canned guidance
// instead, so the platform works in demo mode. Identical concurrent
// prompts are collapsed with singleflight, and replies are cached
// read-through.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	httpc   *http.Client
	cache   Cache
	group   singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithCache sets the reply cache.
func WithCache(c Cache) Option {
	return func(cl *Client) { cl.cache = c }
}

// WithBaseURL points the client at a different completion endpoint.
func WithBaseURL(u string) Option {
	return func(cl *Client) { cl.baseURL = strings.TrimRight(u, "/") }
}

// WithModel selects the completion model.
func WithModel(m string) Option {
	return func(cl *Client) { cl.model = m }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(cl *Client) { cl.httpc = h }
}

// New creates a Client. An empty apiKey selects demo mode.
func New(apiKey string, opts ...Option) *Client {
	cl := &Client{
		apiKey:  apiKey,
		model:   defaultModel,
		baseURL: defaultBaseURL,
		httpc:   &http.Client{Timeout: requestTimeout},
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

// Reply answers a career question for the given user context.
func (c *Client) Reply(ctx context.Context, prompt string, uc UserContext) (string, error) {
	key := cacheKey(prompt, uc)
	if c.cache != nil {
		if v, ok := c.cache.Get(ctx, key); ok {
			return v, nil
		}
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if c.apiKey == "" {
			return demoReply(prompt, uc), nil
		}
		return c.complete(ctx, prompt, uc)
	})
	if err != nil {
		return "", err
	}

	reply := v.(string)
	if c.cache != nil {
		c.cache.Set(ctx, key, reply)
	}
	return reply, nil
}

func cacheKey(prompt string, uc UserContext) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s", strings.ToLower(strings.TrimSpace(prompt)), uc.CurrentRole, uc.Experience, strings.Join(uc.Skills, ";"))
	return "assistant:" + hex.EncodeToString(h.Sum(nil))
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func systemPrompt(uc UserContext) string {
	skills := "Not specified"
	if len(uc.Skills) > 0 {
		skills = strings.Join(uc.Skills, ", ")
	}
	return fmt.Sprintf(`You are an AI Career Assistant helping professionals with career guidance, skill development, and role transitions.

User Context:
- Current Role: %s
- Experience Level: %s
- Skills: %s

Provide helpful, specific, and actionable career advice. Keep responses concise but informative.`, uc.CurrentRole, uc.Experience, skills)
}

// complete calls the chat completion endpoint once.
func (c *Client) complete(ctx context.Context, prompt string, uc UserContext) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(uc)},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Msg("assistant: completion request failed")
		return "", fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", ErrUpstream)
	}
	return parsed.Choices[0].Message.Content, nil
}
