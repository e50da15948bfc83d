package imageapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/user/product-image-updater/internal/entity"
	"github.com/user/product-image-updater/pkg/metrics"
	"github.com/user/product-image-updater/pkg/utils"
)

const (
	productImagePath = "product-image"
	healthPath       = "/health"
	maxBodyBytes     = 1 << 20
	maxDetailBytes   = 512
)

// Payload is the JSON body of a product image request.
type Payload struct {
	ProductID   string `json:"productId"`
	ProductType string `json:"productType"`
	Brand       string `json:"brand"`
	Description string `json:"description"`
	UPC         string `json:"upc"`
	ISBN        string `json:"isbn"`
}

// NewPayload copies the record fields verbatim, coercing the id to a string.
func NewPayload(record entity.PendingRecord) Payload {
	return Payload{
		ProductID:   strconv.FormatInt(record.ID, 10),
		ProductType: record.Category,
		Brand:       record.Brand,
		Description: record.Description,
		UPC:         record.UPC,
		ISBN:        record.ISBN,
	}
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	// Transport defaults to http.DefaultTransport.
	Transport http.RoundTripper
	// Sleep defaults to utils.SleepContext.
	Sleep utils.Sleeper
}

// Client calls the Product Image API, one record at a time.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	endpoint   string
	apiKey     string
	policy     retryPolicy
	sleep      utils.Sleeper
	now        func() time.Time
}

// NewClient creates a new Client. The transport is instrumented with the
// outbound API request metrics.
func NewClient(opts Options) (*Client, error) {
	base, err := url.ParseRequestURI(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL: %w", err)
	}
	endpoint, err := utils.JoinURL(opts.BaseURL, productImagePath)
	if err != nil {
		return nil, fmt.Errorf("building product image endpoint: %w", err)
	}

	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	transport = promhttp.InstrumentRoundTripperCounter(metrics.APIRequestsTotal,
		promhttp.InstrumentRoundTripperDuration(metrics.APIRequestDuration, transport))

	sleep := opts.Sleep
	if sleep == nil {
		sleep = utils.SleepContext
	}

	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout, Transport: transport},
		baseURL:    base,
		endpoint:   endpoint,
		apiKey:     opts.APIKey,
		policy:     retryPolicy{maxRetries: opts.MaxRetries, retryDelay: opts.RetryDelay},
		sleep:      sleep,
		now:        time.Now,
	}, nil
}

// Request asks the API for an image for record, retrying rate limits and
// transport failures within the retry budget. It never returns an error; the
// outcome says whether a usable URL came back.
func (c *Client) Request(ctx context.Context, record entity.PendingRecord) entity.RequestOutcome {
	payload := NewPayload(record)
	body, err := json.Marshal(payload)
	if err != nil {
		return entity.Failure(fmt.Sprintf("encoding payload: %v", err), 0, 0)
	}
	slog.Info("Calling image API", "product_id", record.ID, "payload", payload)

	state := retryState{}
	for attempt := 1; ; attempt++ {
		res := c.attempt(ctx, body)
		metrics.APIAttemptsTotal.WithLabelValues(res.outcomeLabel()).Inc()

		if res.kind == kindTransport && ctx.Err() != nil {
			return entity.Failure("request cancelled: "+ctx.Err().Error(), 0, attempt)
		}

		d, next := c.policy.next(state, res)
		switch d.action {
		case actionSucceed:
			slog.Info("API returned image URL", "product_id", record.ID, "image_url", res.imageURL, "attempts", attempt)
			return entity.Success(res.imageURL, attempt)
		case actionFail:
			slog.Error("Image API call failed", "product_id", record.ID, "status", res.statusCode, "reason", d.reason, "attempts", attempt)
			return entity.Failure(d.reason, res.statusCode, attempt)
		}

		slog.Warn("Retrying image API call",
			"product_id", record.ID,
			"reason", d.reason,
			"wait", d.wait,
			"retry", next.retries,
			"max_retries", c.policy.maxRetries,
		)
		if err := c.sleep(ctx, d.wait); err != nil {
			return entity.Failure("request cancelled: "+err.Error(), res.statusCode, attempt)
		}
		state = next
	}
}

func (c *Client) attempt(ctx context.Context, body []byte) attemptResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return attemptResult{kind: kindTransport, detail: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return attemptResult{kind: kindTransport, detail: err.Error()}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return attemptResult{kind: kindTransport, statusCode: resp.StatusCode, detail: err.Error()}
		}
		var created struct {
			ImageURL string `json:"imageUrl"`
		}
		if err := json.Unmarshal(data, &created); err != nil {
			slog.Warn("API response is not valid JSON", "error", err)
		}
		return attemptResult{
			kind:       kindCreated,
			statusCode: resp.StatusCode,
			imageURL:   strings.TrimSpace(created.ImageURL),
		}
	case http.StatusTooManyRequests:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		wait, ok := parseRetryAfter(resp.Header.Get("Retry-After"), c.now())
		return attemptResult{
			kind:          kindRateLimited,
			statusCode:    resp.StatusCode,
			retryAfter:    wait,
			hasRetryAfter: ok,
		}
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxDetailBytes))
		return attemptResult{
			kind:       kindRejected,
			statusCode: resp.StatusCode,
			detail:     strings.TrimSpace(string(detail)),
		}
	}
}

// ErrUnhealthy is returned by Health for a non-2xx health response.
var ErrUnhealthy = errors.New("image API is unhealthy")

// Health calls GET /health at the root of the API host.
func (c *Client) Health(ctx context.Context) (int, error) {
	target, err := utils.ToAbsoluteURL(c.baseURL, healthPath)
	if err != nil {
		return 0, fmt.Errorf("building health URL: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, fmt.Errorf("creating health request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("calling %s: %w", target, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("%w: %s returned status %d", ErrUnhealthy, target, resp.StatusCode)
	}
	return resp.StatusCode, nil
}
