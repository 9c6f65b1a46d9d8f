// Package httpclient talks to the Chronicle Weaver API and implements
// domain.EntryService for remote use.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	httpadapter "github.com/lindalindashu/novel-agent/internal/adapters/http"
	"github.com/lindalindashu/novel-agent/internal/domain"
	"github.com/lindalindashu/novel-agent/internal/observability"
)

// DefaultTimeout covers a full LLM round trip on the server.
const DefaultTimeout = 2 * time.Minute

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ domain.EntryService = (*Client)(nil)

// New creates a client for baseURL. A zero timeout uses DefaultTimeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     observability.Logger().With("component", "httpclient"),
	}
}

func (c *Client) Create(ctx context.Context, in domain.CreateEntryInput) (*domain.Entry, error) {
	var resp httpadapter.EntryResponse
	req := httpadapter.DiaryRequest{Input: in.Input, Username: in.Username}
	if err := c.do(ctx, http.MethodPost, "/api/diary", req, &resp); err != nil {
		return nil, err
	}
	return resp.Entry.ToDomain(), nil
}

func (c *Client) Refine(ctx context.Context, in domain.RefineEntryInput) (*domain.Entry, error) {
	var resp httpadapter.EntryResponse
	req := httpadapter.DiaryRequest{
		Input:    in.Input,
		Feedback: in.Feedback,
		Username: in.Username,
		EntryID:  int64(in.EntryID),
	}
	if err := c.do(ctx, http.MethodPost, "/api/diary", req, &resp); err != nil {
		return nil, err
	}
	return resp.Entry.ToDomain(), nil
}

func (c *Client) List(ctx context.Context, in domain.ListEntriesInput) ([]*domain.Entry, error) {
	q := url.Values{}
	if in.Username != "" {
		q.Set("username", in.Username)
	}
	if in.Limit > 0 {
		q.Set("limit", strconv.Itoa(in.Limit))
	}

	path := "/api/entries"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp httpadapter.EntriesResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	out := make([]*domain.Entry, 0, len(resp.Entries))
	for _, dto := range resp.Entries {
		out = append(out, dto.ToDomain())
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, id domain.EntryID) (*domain.Entry, error) {
	var resp httpadapter.EntryResponse
	if err := c.do(ctx, http.MethodGet, "/api/entries/"+id.String(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Entry.ToDomain(), nil
}

func (c *Client) Delete(ctx context.Context, id domain.EntryID) error {
	return c.do(ctx, http.MethodDelete, "/api/entries/"+id.String(), nil, nil)
}

func (c *Client) Extract(ctx context.Context, text string) (*domain.Extraction, error) {
	var resp httpadapter.ExtractResponse
	if err := c.do(ctx, http.MethodPost, "/api/entities", httpadapter.ExtractRequest{Input: text}, &resp); err != nil {
		return nil, err
	}
	return resp.Entities, nil
}

// Health checks that the server answers /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := observability.RequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	c.logger.Debug("calling entry service", slog.String("method", method), slog.String("path", path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return remoteError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func remoteError(resp *http.Response) error {
	re := &domain.RemoteError{StatusCode: resp.StatusCode}

	var body httpadapter.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil {
		re.Message = body.Error
	}
	return re
}
