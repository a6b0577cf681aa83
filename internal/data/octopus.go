package data

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"agile-live/internal/model"
)

const (
	DefaultBaseURL  = "https://api.octopus.energy"
	DefaultPageSize = 100
	DefaultMaxPages = 10
)

// OctopusClient fetches public tariff data from the Octopus Energy REST API.
// No API key is needed for product and unit-rate endpoints.
type OctopusClient struct {
	BaseURL  string
	Client   *http.Client
	PageSize int
	MaxPages int
	// Cache is optional. Cache failures are logged and otherwise ignored.
	Cache Cache
}

// NewOctopusClient creates a client. If baseURL is empty, defaults to
// DefaultBaseURL; a zero timeout means 30s.
func NewOctopusClient(baseURL string, timeout time.Duration) *OctopusClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OctopusClient{
		BaseURL:  baseURL,
		PageSize: DefaultPageSize,
		MaxPages: DefaultMaxPages,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

// QueryUnitRatesParams narrows a unit-rate query. Zero times are omitted, in
// which case the API returns the most recent rates first.
type QueryUnitRatesParams struct {
	Tariff     model.Tariff
	PeriodFrom time.Time
	PeriodTo   time.Time
}

// APIError represents a non-2xx answer from the pricing API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter string // For rate limit errors
}

func (e *APIError) Error() string {
	return e.Message
}

// FetchUnitRates returns the latest published rates for the tariff, newest first.
func (c *OctopusClient) FetchUnitRates(ctx context.Context, tariff model.Tariff) ([]model.PriceRecord, error) {
	resp, err := c.QueryUnitRates(ctx, QueryUnitRatesParams{Tariff: tariff})
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// QueryUnitRates fetches standard unit rates, following `next` links until the
// listing ends or MaxPages pages have been read.
func (c *OctopusClient) QueryUnitRates(ctx context.Context, params QueryUnitRatesParams) (*model.UnitRatesResponse, error) {
	if err := params.Tariff.Validate(); err != nil {
		return nil, err
	}
	if !params.PeriodFrom.IsZero() && !params.PeriodTo.IsZero() && !params.PeriodFrom.Before(params.PeriodTo) {
		return nil, fmt.Errorf("period_from must be before period_to")
	}

	key := GenerateCacheKey(params, time.Now())
	if c.Cache != nil {
		cached, found, err := c.Cache.Get(ctx, key)
		if err != nil {
			zap.L().Warn("[Octopus] Cache read failed", zap.String("tariff", params.Tariff.Code()), zap.Error(err))
		} else if found {
			zap.L().Debug("[Octopus] Cache hit",
				zap.String("tariff", params.Tariff.Code()),
				zap.Int("records", len(cached.Results)))
			return cached, nil
		}
	}

	path := fmt.Sprintf("/v1/products/%s/electricity-tariffs/%s/standard-unit-rates/",
		url.PathEscape(params.Tariff.ProductCode), url.PathEscape(params.Tariff.Code()))
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	q := u.Query()
	if c.PageSize > 0 {
		q.Set("page_size", fmt.Sprint(c.PageSize))
	}
	if !params.PeriodFrom.IsZero() {
		q.Set("period_from", params.PeriodFrom.UTC().Format(time.RFC3339))
	}
	if !params.PeriodTo.IsZero() {
		q.Set("period_to", params.PeriodTo.UTC().Format(time.RFC3339))
	}
	u.RawQuery = q.Encode()

	var out model.UnitRatesResponse
	next := u.String()
	for page := 1; next != ""; page++ {
		if c.MaxPages > 0 && page > c.MaxPages {
			zap.L().Warn("[Octopus] Page limit reached, result truncated",
				zap.String("tariff", params.Tariff.Code()), zap.Int("max_pages", c.MaxPages))
			break
		}
		var resp model.UnitRatesResponse
		if err := c.getJSON(ctx, next, &resp); err != nil {
			return nil, err
		}
		if page == 1 {
			out.Count = resp.Count
			out.Previous = resp.Previous
		}
		out.Results = append(out.Results, resp.Results...)
		out.Next = resp.Next

		next = ""
		if resp.Next != nil {
			next = *resp.Next
		}
	}

	zap.L().Info("[Octopus] Success",
		zap.String("tariff", params.Tariff.Code()),
		zap.Int("records", len(out.Results)))

	if c.Cache != nil {
		if err := c.Cache.Set(ctx, key, &out); err != nil {
			zap.L().Warn("[Octopus] Cache write failed", zap.String("tariff", params.Tariff.Code()), zap.Error(err))
		}
	}
	return &out, nil
}

// FetchProducts lists products, following pagination up to MaxPages.
func (c *OctopusClient) FetchProducts(ctx context.Context) ([]model.Product, error) {
	u, err := url.Parse(c.BaseURL + "/v1/products/")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set("brand", "OCTOPUS_ENERGY")
	u.RawQuery = q.Encode()

	var products []model.Product
	next := u.String()
	for page := 1; next != "" && (c.MaxPages <= 0 || page <= c.MaxPages); page++ {
		var resp model.ProductsResponse
		if err := c.getJSON(ctx, next, &resp); err != nil {
			return nil, err
		}
		products = append(products, resp.Results...)
		next = ""
		if resp.Next != nil {
			next = *resp.Next
		}
	}
	return products, nil
}

func (c *OctopusClient) getJSON(ctx context.Context, rawURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	zap.L().Debug("[Octopus] Request", zap.String("url", rawURL))

	start := time.Now()
	resp, err := c.Client.Do(req)
	duration := time.Since(start)
	if err != nil {
		zap.L().Warn("[Octopus] Request failed", zap.Error(err), zap.Duration("duration", duration))
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	zap.L().Debug("[Octopus] Response",
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", duration))

	switch {
	case resp.StatusCode == http.StatusOK:
		// Success, continue
	case resp.StatusCode == http.StatusNotFound:
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       "NOT_FOUND",
			Message:    "Unknown product or tariff",
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := resp.Header.Get("Retry-After")
		zap.L().Warn("[Octopus] Rate limit exceeded", zap.String("retry_after", retryAfter))
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       "RATE_LIMIT_EXCEEDED",
			Message:    fmt.Sprintf("Rate limit exceeded. Retry after: %s", retryAfter),
			RetryAfter: retryAfter,
		}
	case resp.StatusCode >= 500:
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       "UPSTREAM_UNAVAILABLE",
			Message:    fmt.Sprintf("API returned status %d: %s", resp.StatusCode, resp.Status),
		}
	default:
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       "API_ERROR",
			Message:    fmt.Sprintf("API returned status %d: %s", resp.StatusCode, resp.Status),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
