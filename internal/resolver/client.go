package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/clinmatch/internal/model"
)

const (
	matchPath  = "/api/v1/match"
	healthPath = "/api/v1/health"

	maxResponseBytes = 4 << 20

	defaultClarification = "Требуется клиническое уточнение"
)

// retrySleepFunc waits between attempts. Tests replace it.
var retrySleepFunc = func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Client talks to the disease matching HTTP service
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	language   string
	topK       int
	retries    int
	backoff    time.Duration
	logger     *zap.Logger
}

var _ Resolver = (*Client)(nil)

// Option configures a Client
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the logger used for request diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRetries enables retries of transport and 5xx failures
func WithRetries(retries int, backoff time.Duration) Option {
	return func(c *Client) {
		if retries > 0 {
			c.retries = retries
		}
		c.backoff = backoff
	}
}

// NewClient creates a resolver client from configuration
func NewClient(cfg model.ResolverConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		return nil, errors.New("resolver url required")
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = ProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		userAgent: cfg.UserAgent,
		language:  cfg.Language,
		topK:      cfg.TopK,
		retries:   max(cfg.Retries, 0),
		backoff:   cfg.RetryBackoff,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type matchRequest struct {
	Text        string `json:"text"`
	Gene        string `json:"gene,omitempty"`
	Language    string `json:"language,omitempty"`
	TopK        int    `json:"top_k,omitempty"`
	FullContext string `json:"full_context,omitempty"`
}

type matchResult struct {
	Rank                  int      `json:"rank"`
	OMIMID                *string  `json:"omim_id"`
	MONDOID               *string  `json:"mondo_id"`
	Name                  string   `json:"name"`
	Score                 float64  `json:"score"`
	Genes                 []string `json:"genes"`
	RequiresClarification bool     `json:"requires_clarification"`
	ClarificationReason   *string  `json:"clarification_reason"`
}

type matchResponse struct {
	Results  []matchResult     `json:"results"`
	Error    map[string]string `json:"error"`
	Metadata struct {
		ProcessingTimeMS int    `json:"processing_time_ms"`
		Model            string `json:"model"`
		TotalResults     int    `json:"total_results"`
	} `json:"metadata"`
}

// Resolve sends one match request, retrying transport and 5xx failures when configured
func (c *Client) Resolve(ctx context.Context, req Request) ([]model.Candidate, error) {
	payload, err := json.Marshal(matchRequest{
		Text:        req.Diagnosis,
		Gene:        req.Gene,
		Language:    c.language,
		TopK:        c.topK,
		FullContext: req.Context,
	})
	if err != nil {
		return nil, &Failure{Kind: KindTransport, Err: fmt.Errorf("encode request: %w", err)}
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			delay := c.backoff * time.Duration(attempt)
			c.logger.Debug("retrying resolver request",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			if err := retrySleepFunc(ctx, delay); err != nil {
				return nil, classify(err)
			}
		}

		candidates, err := c.match(ctx, payload)
		if err == nil {
			return candidates, nil
		}
		lastErr = err

		var f *Failure
		if !errors.As(err, &f) || !f.Retryable() || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (c *Client) match(ctx context.Context, payload []byte) ([]model.Candidate, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+matchPath, bytes.NewReader(payload))
	if err != nil {
		return nil, &Failure{Kind: KindTransport, Err: fmt.Errorf("create request: %w", err)}
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classify(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, classify(fmt.Errorf("read body: %w", err))
	}

	c.logger.Debug("resolver response",
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Failure{
			Kind:       KindServerError,
			StatusCode: resp.StatusCode,
			Message:    truncate(strings.TrimSpace(string(body)), 200),
		}
	}

	var decoded matchResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &Failure{Kind: KindInvalidResponse, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(decoded.Results) == 0 && len(decoded.Error) > 0 {
		return nil, &Failure{Kind: KindServerError, Message: errorMessage(decoded.Error)}
	}

	candidates := make([]model.Candidate, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		candidates = append(candidates, r.candidate())
	}
	return candidates, nil
}

func (r matchResult) candidate() model.Candidate {
	c := model.Candidate{
		OMIM:  deref(r.OMIMID),
		MONDO: deref(r.MONDOID),
		Name:  strings.TrimSpace(r.Name),
	}
	if r.RequiresClarification {
		c.Note = deref(r.ClarificationReason)
		if c.Note == "" {
			c.Note = defaultClarification
		}
	}
	return c
}

// HealthStatus is the service health payload
type HealthStatus struct {
	Status            string          `json:"status"`
	Version           string          `json:"version"`
	Components        map[string]bool `json:"components"`
	BaselineAPIStatus string          `json:"baseline_api_status,omitempty"`
}

// Health queries the service health endpoint
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &Failure{Kind: KindServerError, StatusCode: resp.StatusCode}
	}

	var status HealthStatus
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&status); err != nil {
		return nil, &Failure{Kind: KindInvalidResponse, Err: fmt.Errorf("decode health: %w", err)}
	}
	return &status, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func errorMessage(fields map[string]string) string {
	for _, key := range []string{"message", "detail", "code"} {
		if v := fields[key]; v != "" {
			return v
		}
	}
	return "error reported by service"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
