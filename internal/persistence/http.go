package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rendis/canopy/pkg/schema"
)

const (
	defaultMaxResponseBody = 10 * 1024 * 1024 // 10MB
	defaultHTTPTimeout     = 30 * time.Second
)

// HTTPConfig configures the remote topic backend.
type HTTPConfig struct {
	BaseURL         string
	Token           string
	Timeout         time.Duration
	MaxResponseBody int64
	Retry           RetryPolicy
}

// TopicLink identifies a topic on the remote side.
type TopicLink struct {
	TopicID string `json:"topicId"`
	Title   string `json:"title,omitempty"`
}

// TopicDetail is the body of GET /topics/{id}.
type TopicDetail struct {
	Content *schema.Node `json:"content"`
	Current TopicLink    `json:"current"`
	Next    *TopicLink   `json:"next,omitempty"`
	Prev    *TopicLink   `json:"prev,omitempty"`
}

type topicContent struct {
	TopicID string       `json:"topicId"`
	Content *schema.Node `json:"content"`
}

// HTTPBackend stores documents as topic content behind a bearer-token API.
type HTTPBackend struct {
	config HTTPConfig
	client *http.Client

	mu     sync.Mutex
	topics map[string]string // document id -> topicId reported by the server
}

// NewHTTPBackend creates an HTTPBackend. BaseURL must be an absolute
// http(s) URL.
func NewHTTPBackend(cfg HTTPConfig) (*HTTPBackend, error) {
	u, err := url.ParseRequestURI(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "invalid backend url %q", cfg.BaseURL)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	if cfg.MaxResponseBody <= 0 {
		cfg.MaxResponseBody = defaultMaxResponseBody
	}
	return &HTTPBackend{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		topics: make(map[string]string),
	}, nil
}

// Fetch returns the full topic detail, including its neighbours.
func (b *HTTPBackend) Fetch(ctx context.Context, id string) (*TopicDetail, error) {
	resp, err := b.do(ctx, http.MethodGet, b.topicURL(id), nil)
	if err != nil {
		return nil, persistenceError("load", id, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, b.config.MaxResponseBody))
	if err != nil {
		return nil, persistenceError("load", id, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "document %s not found", id)
	}
	if resp.StatusCode >= 300 {
		return nil, persistenceError("load", id, statusError(resp.StatusCode, body))
	}

	var detail TopicDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, persistenceError("load", id, fmt.Errorf("decode topic: %w", err))
	}
	if detail.Current.TopicID != "" {
		b.mu.Lock()
		b.topics[id] = detail.Current.TopicID
		b.mu.Unlock()
	}
	return &detail, nil
}

// Load returns the topic content. A topic without content loads as nil.
func (b *HTTPBackend) Load(ctx context.Context, id string) (*schema.Node, error) {
	detail, err := b.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	return detail.Content, nil
}

// Save replaces the topic content. The topicId sent is the one the server
// reported on the last load, or id when the document was never loaded.
func (b *HTTPBackend) Save(ctx context.Context, id string, doc *schema.Node) error {
	b.mu.Lock()
	topicID, ok := b.topics[id]
	b.mu.Unlock()
	if !ok {
		topicID = id
	}

	payload, err := json.Marshal(topicContent{TopicID: topicID, Content: doc})
	if err != nil {
		return persistenceError("save", id, fmt.Errorf("encode topic content: %w", err))
	}
	resp, err := b.do(ctx, http.MethodPut, b.topicURL(id)+"/content", payload)
	if err != nil {
		return persistenceError("save", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, b.config.MaxResponseBody))
		return persistenceError("save", id, statusError(resp.StatusCode, body))
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, b.config.MaxResponseBody))
	return nil
}

func (b *HTTPBackend) topicURL(id string) string {
	return b.config.BaseURL + "/topics/" + url.PathEscape(id)
}

// do sends one request, repeating it under the retry policy while the
// transport fails or the server answers with a retryable status. The last
// response or error is returned.
func (b *HTTPBackend) do(ctx context.Context, method, target string, body []byte) (*http.Response, error) {
	policy := b.config.Retry
	for attempt := 0; ; attempt++ {
		resp, err := b.send(ctx, method, target, body)
		last := attempt+1 >= policy.attempts()
		switch {
		case err != nil && (last || !retryableErr(err)):
			return nil, err
		case err == nil && (last || !retryableStatus(resp.StatusCode)):
			return resp, nil
		}
		if resp != nil {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, b.config.MaxResponseBody))
			resp.Body.Close()
		}
		if waitErr := waitBackoff(ctx, policy.backoff(attempt)); waitErr != nil {
			return nil, waitErr
		}
	}
}

func (b *HTTPBackend) send(ctx context.Context, method, target string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if b.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+b.config.Token)
	}
	return b.client.Do(req)
}

func statusError(code int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		return fmt.Errorf("unexpected status %d", code)
	}
	return fmt.Errorf("unexpected status %d: %s", code, msg)
}
