package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/ternarybob/placefinder/internal/models"
)

const (
	// DefaultBaseURL is the Naver Cloud API gateway
	DefaultBaseURL = "https://naveropenapi.apigw.ntruss.com"

	// DefaultTimeout is the default HTTP timeout
	DefaultTimeout = 10 * time.Second

	// DefaultRouteOption is the fastest-route option of the driving API
	DefaultRouteOption = "trafast"

	geocodePath = "/map-geocode/v2/geocode"
	routePath   = "/map-direction/v1/driving"
)

var (
	// ErrNoAddress is returned when a geocode response carries no addresses
	ErrNoAddress = errors.New("no address found")

	// ErrRouteFailed is returned when the directions API answers with a non-zero code
	ErrRouteFailed = errors.New("route failed")
)

// APIError is a non-200 response from the gateway
type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("naver API %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// Client calls the Naver geocode and driving directions APIs
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	limiter      *rate.Limiter
	logger       arbor.ILogger
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithMinInterval spaces requests at least interval apart. Zero disables limiting.
func WithMinInterval(interval time.Duration) ClientOption {
	return func(c *Client) {
		if interval <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
}

// NewClient creates a new Naver maps client
func NewClient(clientID, clientSecret string, logger arbor.ILogger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:      DefaultBaseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
		logger:  logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Geocode resolves an address or place text. Zero addresses is not an error here;
// use FirstAddress when a coordinate is required.
func (c *Client) Geocode(ctx context.Context, query string) (*models.GeocodeResult, error) {
	params := url.Values{}
	params.Set("query", query)

	var result models.GeocodeResult
	if err := c.get(ctx, geocodePath, params, &result); err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("query", query).
		Str("status", result.Status).
		Int("addresses", len(result.Addresses)).
		Msg("Geocode completed")

	return &result, nil
}

// Route computes a driving route between two "lng,lat" coordinates. A non-zero API code
// returns the decoded result together with ErrRouteFailed.
func (c *Client) Route(ctx context.Context, start, goal, option, waypoints string) (*models.RouteResult, error) {
	if option == "" {
		option = DefaultRouteOption
	}

	params := url.Values{}
	params.Set("start", start)
	params.Set("goal", goal)
	params.Set("option", option)
	if waypoints != "" {
		params.Set("waypoints", waypoints)
	}

	var result models.RouteResult
	if err := c.get(ctx, routePath, params, &result); err != nil {
		return nil, err
	}

	if result.Code != 0 {
		c.logger.Warn().
			Int("code", result.Code).
			Str("message", result.Message).
			Msg("Directions API returned an error code")
		return &result, fmt.Errorf("%w: code %d: %s", ErrRouteFailed, result.Code, result.Message)
	}

	if path := result.Primary(option); path != nil {
		c.logger.Info().
			Str("option", option).
			Int("distance_m", path.Summary.Distance).
			Int("duration_min", path.Summary.DurationMinutes()).
			Msg("Route completed")
	}

	return &result, nil
}

// FirstAddress returns the first address of a geocode result or ErrNoAddress
func FirstAddress(result *models.GeocodeResult) (*models.GeocodeAddress, error) {
	if result == nil || len(result.Addresses) == 0 {
		return nil, ErrNoAddress
	}
	return &result.Addresses[0], nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-NCP-APIGW-API-KEY-ID", c.clientID)
	req.Header.Set("X-NCP-APIGW-API-KEY", c.clientSecret)
	req.Header.Set("Accept", "application/json")

	// Credentials travel in headers, so the URL is safe to log
	c.logger.Debug().
		Str("url", reqURL).
		Str("client_id", redact(c.clientID)).
		Msg("Naver API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   path,
			Message:    string(body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func redact(secret string) string {
	if len(secret) <= 4 {
		return "***REDACTED***"
	}
	return secret[:4] + "***REDACTED***"
}
