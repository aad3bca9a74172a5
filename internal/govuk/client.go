package govuk

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/grantley-gardens/tribunal-cli/internal/config"
	"github.com/grantley-gardens/tribunal-cli/internal/resilience"
)

const documentType = "residential_property_tribunal_decision"

var searchFields = []string{
	"title",
	"description",
	"link",
	"public_timestamp",
	"tribunal_decision_category",
	"tribunal_decision_sub_category",
	"tribunal_decision_decision_date",
}

// Client talks to the GOV.UK search and content APIs. A single limiter
// paces all requests across workers so total pressure on the host stays
// constant regardless of concurrency.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	retry     resilience.RetryConfig
}

// NewClient creates a GOV.UK API client from configuration.
func NewClient(cfg config.GovUKConfig) *Client {
	delay := cfg.RequestDelay
	limiter := rate.NewLimiter(rate.Inf, 1)
	if delay > 0 {
		limiter = rate.NewLimiter(rate.Every(delay), 1)
	}

	retry := resilience.RetryConfig{
		MaxAttempts:    cfg.MaxRetries,
		InitialBackoff: cfg.RetryDelay,
		OnRetry:        resilience.RetryLogger("govuk", "fetch"),
	}

	return &Client{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				MaxConnsPerHost:     20,
			},
		},
		limiter: limiter,
		retry:   retry,
	}
}

// SearchResponse is one page of search API results.
type SearchResponse struct {
	Total   int            `json:"total"`
	Results []SearchResult `json:"results"`
}

// SearchResult is one raw search API hit.
type SearchResult struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Link         string `json:"link"`
	PublicTime   string `json:"public_timestamp"`
	Category     string `json:"tribunal_decision_category"`
	SubCategory  string `json:"tribunal_decision_sub_category"`
	DecisionDate string `json:"tribunal_decision_decision_date"`
}

const (
	acceptJSON  = "application/json"
	acceptAsset = "application/pdf, */*"
)

// SearchPage fetches one page of the tribunal decision listing.
func (c *Client) SearchPage(ctx context.Context, start, count int) (*SearchResponse, error) {
	q := url.Values{}
	q.Set("filter_document_type", documentType)
	q.Set("count", strconv.Itoa(count))
	q.Set("start", strconv.Itoa(start))
	q.Set("fields", strings.Join(searchFields, ","))
	endpoint := c.baseURL + "/api/search.json?" + q.Encode()

	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*SearchResponse, error) {
		body, err := c.get(ctx, endpoint, acceptJSON)
		if err != nil {
			return nil, err
		}
		var page SearchResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, resilience.NewRetryableError(eris.Wrap(err, "govuk: decode search page"), 0)
		}
		return &page, nil
	})
}

// ContentAttachment is one attachment on a content API document.
type ContentAttachment struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	ContentID   string `json:"content_id"`
}

// ContentDetail is the subset of the content API response the pipeline
// needs: the indexable full text, attachments, and content UUID.
type ContentDetail struct {
	ContentID string `json:"content_id"`
	Details   struct {
		Metadata struct {
			HiddenIndexableContent string `json:"hidden_indexable_content"`
		} `json:"metadata"`
		Attachments []ContentAttachment `json:"attachments"`
	} `json:"details"`
}

// FetchContent fetches the content API document for the given GOV.UK path.
// A 404 means the page is gone; the caller marks the record failed without
// retrying.
func (c *Client) FetchContent(ctx context.Context, path string) (*ContentDetail, error) {
	endpoint := c.baseURL + "/api/content" + path

	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*ContentDetail, error) {
		body, err := c.get(ctx, endpoint, acceptJSON)
		if err != nil {
			return nil, err
		}
		var detail ContentDetail
		if err := json.Unmarshal(body, &detail); err != nil {
			return nil, resilience.NewRetryableError(eris.Wrapf(err, "govuk: decode content %s", path), 0)
		}
		return &detail, nil
	})
}

// Download fetches an attachment and returns its bytes.
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, rawURL, acceptAsset)
	})
}

// get performs a single paced request and classifies the response status.
// 429 and 5xx come back retryable, other non-2xx fatal.
func (c *Client) get(ctx context.Context, endpoint, accept string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "govuk: limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "govuk: create request %s", endpoint)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewRetryableError(eris.Wrapf(err, "govuk: get %s", endpoint), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		httpErr := eris.Errorf("govuk: http %d from %s", resp.StatusCode, endpoint)
		if resilience.IsRetryableHTTPStatus(resp.StatusCode) {
			zap.L().Warn("govuk request failed",
				zap.String("url", endpoint),
				zap.Int("status", resp.StatusCode),
			)
			return nil, resilience.NewRetryableError(httpErr, resp.StatusCode)
		}
		return nil, resilience.NewFatalError(httpErr, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewRetryableError(eris.Wrapf(err, "govuk: read body %s", endpoint), 0)
	}
	return body, nil
}
