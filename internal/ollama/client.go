package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

// Message is one turn in the conversation sent to the model endpoint.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Mode names the two endpoint shapes the local server may offer.
type Mode string

const (
	ModeChat     Mode = "chat"
	ModeGenerate Mode = "generate"
)

type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger

	mu      sync.Mutex
	epCache map[string]Mode
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
		epCache: make(map[string]Mode),
		http: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			},
		},
	}
}

// Running probes the server with a short deadline. It reports reachability
// only; recovery is the caller's concern.
func (c *Client) Running(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// ListModels returns the names of installed models.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, "/api/tags")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, v := range gjson.GetBytes(body, "models.#.name").Array() {
		if name := strings.TrimSpace(v.String()); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

var modelPreferences = []string{"llama3", "mistral", "gemma", "phi", "qwen"}

// AutoModel picks an installed model by family preference, falling back to
// the first installed one.
func (c *Client) AutoModel(ctx context.Context) (string, error) {
	models, err := c.ListModels(ctx)
	if err != nil {
		return "", err
	}
	if len(models) == 0 {
		return "", fmt.Errorf("no models installed")
	}
	for _, pref := range modelPreferences {
		for _, m := range models {
			if strings.Contains(strings.ToLower(m), pref) {
				return m, nil
			}
		}
	}
	return models[0], nil
}

// DetectEndpoint finds which endpoint shape the model answers on. The
// result is cached per model for the life of the client.
func (c *Client) DetectEndpoint(ctx context.Context, model string) Mode {
	c.mu.Lock()
	if mode, ok := c.epCache[model]; ok {
		c.mu.Unlock()
		return mode
	}
	c.mu.Unlock()

	mode := ModeGenerate
	probe := map[string]any{
		"model":    model,
		"messages": []Message{{Role: RoleUser, Content: "hi"}},
		"stream":   false,
		"options":  map[string]any{"num_predict": 1},
	}
	probeCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	if _, err := c.post(probeCtx, "/api/chat", probe); err == nil {
		mode = ModeChat
	}

	c.mu.Lock()
	c.epCache[model] = mode
	c.mu.Unlock()
	if c.logger != nil {
		c.logger.Debug("endpoint detected", "model", model, "mode", string(mode))
	}
	return mode
}

var generationOptions = map[string]any{
	"temperature": 0.05,
	"num_predict": 400,
}

// Chat sends the ordered message list and returns the model's full reply
// text. The shape of the request follows the detected endpoint mode.
func (c *Client) Chat(ctx context.Context, model string, messages []Message) (string, error) {
	mode := c.DetectEndpoint(ctx, model)
	switch mode {
	case ModeChat:
		body, err := c.post(ctx, "/api/chat", map[string]any{
			"model":    model,
			"messages": messages,
			"stream":   false,
			"options":  generationOptions,
		})
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(gjson.GetBytes(body, "message.content").String()), nil
	default:
		body, err := c.post(ctx, "/api/generate", map[string]any{
			"model":   model,
			"prompt":  flattenMessages(messages),
			"stream":  false,
			"options": generationOptions,
		})
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(gjson.GetBytes(body, "response").String()), nil
	}
}

// flattenMessages renders a chat history as a single role-tagged prompt for
// the generate endpoint.
func flattenMessages(messages []Message) string {
	parts := make([]string, 0, len(messages)+1)
	for _, m := range messages {
		tag := strings.ToUpper(m.Role)
		if m.Role == RoleSystem {
			tag = "SYSTEM"
		}
		parts = append(parts, tag+":\n"+m.Content)
	}
	parts = append(parts, "ASSISTANT:")
	return strings.Join(parts, "\n\n")
}

// PullProgress is one streamed status line during a model pull.
type PullProgress struct {
	Status    string
	Completed int64
	Total     int64
}

// Pull downloads a model, reporting streamed NDJSON progress through the
// callback.
func (c *Client) Pull(ctx context.Context, model string, onProgress func(PullProgress)) error {
	payload, err := json.Marshal(map[string]any{"name": model, "stream": true})
	if err != nil {
		return fmt.Errorf("marshal pull request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/pull", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build pull request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("pull %s: %w", model, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("pull %s: HTTP %d: %s", model, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if errMsg := gjson.GetBytes(line, "error").String(); errMsg != "" {
			return fmt.Errorf("pull %s: %s", model, errMsg)
		}
		if onProgress != nil {
			onProgress(PullProgress{
				Status:    gjson.GetBytes(line, "status").String(),
				Completed: gjson.GetBytes(line, "completed").Int(),
				Total:     gjson.GetBytes(line, "total").Int(),
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("pull %s: read stream: %w", model, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return c.do(req, path)
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path)
}

func (c *Client) do(req *http.Request, path string) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: HTTP %d: %s", path, resp.StatusCode, clip(string(body), 200))
	}
	return body, nil
}

func clip(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
