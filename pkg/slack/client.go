package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://slack.com/api"

	defaultTimeout  = 30 * time.Second
	defaultAttempts = 5
	defaultDelay    = time.Second
	maxRetryDelay   = 2 * time.Minute
)

var errInvalidResponse = errors.New("invalid response body")

// APIError is returned when the API answers with ok=false.
type APIError struct {
	Method string
	Code   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack %s: %s", e.Method, e.Code)
}

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	Method     string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("slack %s: http %d", e.Method, e.StatusCode)
}

// IsAuthError reports whether err means the token was rejected.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case "invalid_auth", "not_authed", "account_inactive", "token_revoked", "token_expired":
		return true
	}
	return false
}

// ClientOptions configures a Client.
type ClientOptions struct {
	BaseURL       string
	Timeout       time.Duration
	RetryAttempts uint
	RetryDelay    time.Duration
	Logger        *zap.Logger
	HTTPClient    *http.Client
	// OnRequest is invoked once per HTTP attempt.
	OnRequest func(method string, err error)
}

// Client reads workspace data from the Web API.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	attempts   uint
	delay      time.Duration
	onRequest  func(string, error)
}

// NewClient creates a new Web API client.
func NewClient(token string, opts ClientOptions) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	attempts := opts.RetryAttempts
	if attempts == 0 {
		attempts = defaultAttempts
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = defaultDelay
	}

	return &Client{
		token:      token,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
		attempts:   attempts,
		delay:      delay,
		onRequest:  opts.OnRequest,
	}
}

// HistoryRequest bounds one conversations.history call. Oldest and Latest are
// exclusive and may be empty.
type HistoryRequest struct {
	Channel string
	Oldest  string
	Latest  string
	Limit   int
}

// HistoryPage is one page of history, newest first.
type HistoryPage struct {
	Records []Record
	HasMore bool
}

// StarPage is one page of a user's starred items.
type StarPage struct {
	Items []Record
	Pages int
}

// FileInfo is a file together with its comments.
type FileInfo struct {
	File     Record
	Comments []Record
}

// AuthTest verifies the token and returns the identity payload
// (url, team, user, team_id, user_id).
func (c *Client) AuthTest(ctx context.Context) (Record, error) {
	resp, err := c.call(ctx, "auth.test", nil)
	if err != nil {
		return nil, err
	}
	delete(resp, "ok")
	delete(resp, "warning")
	delete(resp, "response_metadata")
	return resp, nil
}

// ListUsers returns every member of the workspace.
func (c *Client) ListUsers(ctx context.Context) ([]Record, error) {
	return c.collect(ctx, "users.list", url.Values{"limit": {"200"}}, "members")
}

// ListChannels returns conversations of the given comma separated types,
// archived ones included.
func (c *Client) ListChannels(ctx context.Context, types string) ([]Record, error) {
	params := url.Values{
		"types":            {types},
		"exclude_archived": {"false"},
		"limit":            {"200"},
	}
	return c.collect(ctx, "conversations.list", params, "channels")
}

// ChannelMembers returns the user ids belonging to a conversation.
func (c *Client) ChannelMembers(ctx context.Context, channelID string) ([]string, error) {
	records, err := c.collectRaw(ctx, "conversations.members", url.Values{"channel": {channelID}, "limit": {"500"}}, "members")
	if err != nil {
		return nil, err
	}
	members := make([]string, 0, len(records))
	for _, item := range records {
		if id, ok := item.(string); ok {
			members = append(members, id)
		}
	}
	return members, nil
}

// ListEmoji returns custom emoji names mapped to their url or alias.
func (c *Client) ListEmoji(ctx context.Context) (map[string]string, error) {
	resp, err := c.call(ctx, "emoji.list", nil)
	if err != nil {
		return nil, err
	}
	emoji, _ := resp.Map("emoji")
	out := make(map[string]string, len(emoji))
	for name := range emoji {
		out[name] = emoji.String(name)
	}
	return out, nil
}

// ChannelHistory fetches one page of a conversation's history.
func (c *Client) ChannelHistory(ctx context.Context, req HistoryRequest) (*HistoryPage, error) {
	params := url.Values{"channel": {req.Channel}, "inclusive": {"false"}}
	if req.Oldest != "" {
		params.Set("oldest", req.Oldest)
	}
	if req.Latest != "" {
		params.Set("latest", req.Latest)
	}
	if req.Limit > 0 {
		params.Set("limit", strconv.Itoa(req.Limit))
	}

	resp, err := c.call(ctx, "conversations.history", params)
	if err != nil {
		return nil, err
	}

	return &HistoryPage{Records: resp.Records("messages"), HasMore: resp.Bool("has_more")}, nil
}

// ListStars fetches one page (1-based) of a user's starred items.
func (c *Client) ListStars(ctx context.Context, userID string, page, count int) (*StarPage, error) {
	params := url.Values{"user": {userID}, "page": {strconv.Itoa(page)}}
	if count > 0 {
		params.Set("count", strconv.Itoa(count))
	}

	resp, err := c.call(ctx, "stars.list", params)
	if err != nil {
		return nil, err
	}

	pages := 1
	if paging, ok := resp.Map("paging"); ok {
		pages = int(paging.Int64("pages"))
	}
	return &StarPage{Items: resp.Records("items"), Pages: pages}, nil
}

// FileInfo fetches a file with its comments.
func (c *Client) FileInfo(ctx context.Context, fileID string) (*FileInfo, error) {
	resp, err := c.call(ctx, "files.info", url.Values{"file": {fileID}, "count": {"1000"}})
	if err != nil {
		return nil, err
	}
	file, _ := resp.Map("file")
	return &FileInfo{File: file, Comments: resp.Records("comments")}, nil
}

func (c *Client) collect(ctx context.Context, method string, params url.Values, key string) ([]Record, error) {
	items, err := c.collectRaw(ctx, method, params, key)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(items))
	for _, item := range items {
		if rec, ok := asRecord(item); ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// collectRaw follows response_metadata.next_cursor until it is empty.
func (c *Client) collectRaw(ctx context.Context, method string, params url.Values, key string) ([]any, error) {
	if params == nil {
		params = url.Values{}
	}

	var out []any
	for {
		resp, err := c.call(ctx, method, params)
		if err != nil {
			return nil, err
		}
		out = append(out, resp.List(key)...)

		meta, _ := resp.Map("response_metadata")
		cursor := meta.String("next_cursor")
		if cursor == "" {
			return out, nil
		}
		params.Set("cursor", cursor)
	}
}

func (c *Client) call(ctx context.Context, method string, params url.Values) (Record, error) {
	var (
		result  Record
		lastErr error
	)

	err := retry.Do(
		func() error {
			resp, err := c.do(ctx, method, params)
			if c.onRequest != nil {
				c.onRequest(method, err)
			}
			if err != nil {
				lastErr = err
				if !isRetryable(err) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			result = resp
			return nil
		},
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.MaxDelay(maxRetryDelay),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("retrying slack request",
				zap.String("method", method),
				zap.Uint("attempt", n+1),
				zap.Error(err))
		}),
	)
	if err != nil {
		if lastErr == nil {
			lastErr = err
		}
		return nil, lastErr
	}

	return result, nil
}

func (c *Client) do(ctx context.Context, method string, params url.Values) (Record, error) {
	endpoint := c.baseURL + "/" + method
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("slack %s: %w", method, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("close response body", zap.Error(closeErr))
		}
	}()

	c.logger.Debug("slack request",
		zap.String("method", method),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode == http.StatusTooManyRequests {
		if wait := retryAfter(resp.Header); wait > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
		return nil, &StatusError{Method: method, StatusCode: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Method: method, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", method, err)
	}

	var out Record
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode %s response: %w: %v", method, errInvalidResponse, err)
	}

	if !out.Bool("ok") {
		code := out.String("error")
		if code == "ratelimited" {
			return nil, &StatusError{Method: method, StatusCode: http.StatusTooManyRequests}
		}
		if code == "" {
			code = "unknown_error"
		}
		return nil, &APIError{Method: method, Code: code}
	}

	return out, nil
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, errInvalidResponse) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	var apiErr *APIError
	return !errors.As(err, &apiErr)
}

func retryAfter(h http.Header) time.Duration {
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	wait := time.Duration(secs) * time.Second
	if wait > maxRetryDelay {
		wait = maxRetryDelay
	}
	return wait
}
