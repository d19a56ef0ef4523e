// Package doaj implements the destination port against the DOAJ article
// API: single-article CRUD plus the bulk create and bulk delete endpoints.
// Write operations authenticate with an API key passed as a query
// parameter.
package doaj

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/scieloorg/doaj-exporter/internal/core/domain"
	"github.com/scieloorg/doaj-exporter/internal/core/ports/driven"
	"github.com/scieloorg/doaj-exporter/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.Destination = (*Client)(nil)

// Client talks to the DOAJ article API.
type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
	limiter *rate.Limiter
}

// NewClient creates a DOAJ client from the process settings. The API key is
// required: every verb except get writes to the destination.
func NewClient(settings domain.Settings) (*Client, error) {
	if settings.DOAJAPIURL == "" {
		return nil, fmt.Errorf("%w: DOAJ API URL is not set", domain.ErrConfig)
	}
	if settings.DOAJAPIKey == "" {
		return nil, fmt.Errorf("%w: DOAJ API key is not set", domain.ErrConfig)
	}

	return &Client{
		client:  &http.Client{Timeout: settings.Timeout},
		baseURL: strings.TrimRight(settings.DOAJAPIURL, "/") + "/",
		apiKey:  settings.DOAJAPIKey,
		limiter: rate.NewLimiter(rate.Limit(settings.RequestRate), 1),
	}, nil
}

// createResponse is the API's acknowledgement of a created article.
type createResponse struct {
	ID       string `json:"id"`
	Location string `json:"location"`
}

// Create submits a new article and returns its destination identifier.
func (c *Client) Create(ctx context.Context, article *domain.Article) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "articles", article)
	if err != nil {
		return "", err
	}

	var created createResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("decoding create response: %w", err)
	}
	if created.ID == "" {
		return "", errors.New("create response carries no article id")
	}
	return created.ID, nil
}

// Update replaces the article stored under id.
func (c *Client) Update(ctx context.Context, id string, article *domain.Article) error {
	_, err := c.do(ctx, http.MethodPut, "articles/"+url.PathEscape(id), article)
	return err
}

// Delete removes the article stored under id.
func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "articles/"+url.PathEscape(id), nil)
	return err
}

// Get fetches the article stored under id.
func (c *Client) Get(ctx context.Context, id string) (*domain.Article, error) {
	body, err := c.do(ctx, http.MethodGet, "articles/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var article domain.Article
	if err := json.Unmarshal(body, &article); err != nil {
		return nil, fmt.Errorf("decoding article %s: %w", id, err)
	}
	return &article, nil
}

// CreateBulk submits a batch of articles in one request. The API accepts or
// rejects the batch as a whole; a rejected batch surfaces as an error for
// the caller to decompose.
func (c *Client) CreateBulk(ctx context.Context, articles []*domain.Article) ([]driven.BulkResult, error) {
	body, err := c.do(ctx, http.MethodPost, "bulk/articles", articles)
	if err != nil {
		return nil, err
	}

	var created []createResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("decoding bulk create response: %w", err)
	}
	if len(created) != len(articles) {
		return nil, fmt.Errorf("bulk create returned %d ids for %d articles", len(created), len(articles))
	}

	results := make([]driven.BulkResult, len(created))
	for i, item := range created {
		results[i] = driven.BulkResult{Index: i, DestinationID: item.ID}
	}
	return results, nil
}

// DeleteBulk removes a batch of articles in one request.
func (c *Client) DeleteBulk(ctx context.Context, ids []string) ([]driven.BulkResult, error) {
	if _, err := c.do(ctx, http.MethodDelete, "bulk/articles", ids); err != nil {
		return nil, err
	}

	results := make([]driven.BulkResult, len(ids))
	for i, id := range ids {
		results[i] = driven.BulkResult{Index: i, DestinationID: id}
	}
	return results, nil
}

// errorResponse is the API's error envelope on 4xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// do issues one throttled request and classifies the response.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshalling payload: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	rawURL := c.baseURL + path + "?api_key=" + url.QueryEscape(c.apiKey)
	logger.Debug("%s %s%s", method, c.baseURL, path)

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", domain.ErrTransient, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil

	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrNotFound

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: destination returned status %d", domain.ErrTransient, resp.StatusCode)

	default:
		// 4xx: the payload or credentials were refused.
		detail := strings.TrimSpace(string(body))
		var envelope errorResponse
		if json.Unmarshal(body, &envelope) == nil && envelope.Error != "" {
			detail = envelope.Error
		}
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrRejected, resp.StatusCode, detail)
	}
}

// classifyTransportError folds network-level failures into the retryable
// error class. Context cancellation passes through untouched.
func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	return err
}
