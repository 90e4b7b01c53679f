// Package llm talks to the vision/language model endpoints: classification,
// dynamic element location, verification, navigation hints and replanning.
// Endpoints are opaque HTTP services; this package owns the request shapes,
// the prompt contracts and tolerant response parsing.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/droidpilot/cli/internal/config"
)

// Client is a chat-completions client for OpenAI-compatible endpoints and
// the Anthropic messages API. Safe for concurrent use.
type Client struct {
	cfg  config.LLM
	http *http.Client
}

// NewClient builds a client from one endpoint config.
func NewClient(cfg config.LLM) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.cfg.Model }

// Chat sends one system+user exchange, optionally with base64 JPEG images
// attached to the user turn, and returns the raw text of the reply.
//
// Parameters:
//   - system: The system prompt
//   - user: The user message
//   - images: Base64-encoded JPEG payloads, in order
//   - jsonMode: Request a JSON-object response where supported
//
// Returns:
//   - string: The model's text reply
//   - error: Transport or API errors
func (c *Client) Chat(ctx context.Context, system, user string, images []string, jsonMode bool) (string, error) {
	if c.cfg.Provider == "claude" {
		return c.chatAnthropic(ctx, system, user, images)
	}
	return c.chatOpenAI(ctx, system, user, images, jsonMode)
}

func (c *Client) chatOpenAI(ctx context.Context, system, user string, images []string, jsonMode bool) (string, error) {
	body := "{}"
	body, _ = sjson.Set(body, "model", c.cfg.Model)
	body, _ = sjson.Set(body, "max_tokens", c.cfg.MaxTokens)
	body, _ = sjson.Set(body, "temperature", c.cfg.Temperature)
	body, _ = sjson.Set(body, "stream", false)
	if jsonMode {
		body, _ = sjson.Set(body, "response_format.type", "json_object")
	}

	body, _ = sjson.Set(body, "messages.0.role", "system")
	body, _ = sjson.Set(body, "messages.0.content", system)
	body, _ = sjson.Set(body, "messages.1.role", "user")
	body, _ = sjson.Set(body, "messages.1.content.0.type", "text")
	body, _ = sjson.Set(body, "messages.1.content.0.text", user)
	for i, img := range images {
		base := fmt.Sprintf("messages.1.content.%d", i+1)
		body, _ = sjson.Set(body, base+".type", "image_url")
		body, _ = sjson.Set(body, base+".image_url.url", "data:image/jpeg;base64,"+img)
		body, _ = sjson.Set(body, base+".image_url.detail", "high")
	}

	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/chat/completions"
	resp, err := c.post(ctx, url, body, map[string]string{
		"Authorization": "Bearer " + c.cfg.APIKey,
	})
	if err != nil {
		return "", err
	}

	text := gjson.Get(resp, "choices.0.message.content").String()
	if text == "" {
		return "", fmt.Errorf("empty completion from %s", c.cfg.Model)
	}
	return text, nil
}

func (c *Client) chatAnthropic(ctx context.Context, system, user string, images []string) (string, error) {
	body := "{}"
	body, _ = sjson.Set(body, "model", c.cfg.Model)
	body, _ = sjson.Set(body, "max_tokens", c.cfg.MaxTokens)
	body, _ = sjson.Set(body, "system", system)
	body, _ = sjson.Set(body, "messages.0.role", "user")
	idx := 0
	for _, img := range images {
		base := fmt.Sprintf("messages.0.content.%d", idx)
		body, _ = sjson.Set(body, base+".type", "image")
		body, _ = sjson.Set(body, base+".source.type", "base64")
		body, _ = sjson.Set(body, base+".source.media_type", "image/jpeg")
		body, _ = sjson.Set(body, base+".source.data", img)
		idx++
	}
	base := fmt.Sprintf("messages.0.content.%d", idx)
	body, _ = sjson.Set(body, base+".type", "text")
	body, _ = sjson.Set(body, base+".text", user)

	baseURL := c.cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	resp, err := c.post(ctx, strings.TrimSuffix(baseURL, "/")+"/v1/messages", body, map[string]string{
		"x-api-key":         c.cfg.APIKey,
		"anthropic-version": "2023-06-01",
	})
	if err != nil {
		return "", err
	}

	text := gjson.Get(resp, "content.0.text").String()
	if text == "" {
		return "", fmt.Errorf("empty completion from %s", c.cfg.Model)
	}
	return text, nil
}

func (c *Client) post(ctx context.Context, url, body string, headers map[string]string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader([]byte(body)))
	if err != nil {
		return "", fmt.Errorf("building model request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling model endpoint: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading model response: %w", err)
	}
	log.Debug("model call", "model", c.cfg.Model, "status", resp.StatusCode,
		"elapsed", time.Since(start).Round(time.Millisecond))

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("model endpoint returned %d: %s", resp.StatusCode, truncate(string(data), 200))
	}
	return string(data), nil
}

// ExtractJSON pulls the first JSON object out of a model reply. Models wrap
// JSON in prose and code fences often enough that strict parsing is not an
// option.
func ExtractJSON(text string) (gjson.Result, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return gjson.Result{}, false
	}
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				candidate := text[start : i+1]
				if gjson.Valid(candidate) {
					return gjson.Parse(candidate), true
				}
				return gjson.Result{}, false
			}
		}
	}
	return gjson.Result{}, false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
