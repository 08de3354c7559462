package cityapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Querier is the set of queries the loader depends on. Not-found results are
// reported as nil values, never as errors.
type Querier interface {
	FetchAllCities(ctx context.Context) (*CitiesResult, error)
	FetchCity(ctx context.Context, id string) (*City, error)
	FetchCityPlaces(ctx context.Context, id, key string) (*PlacesResult, error)
}

// Ensure Client implements Querier at compile time.
var _ Querier = (*Client)(nil)

const (
	defaultUserAgent = "cityguide/0.1"
	requestTimeout   = 10 * time.Second
	maxErrorBody     = 4 << 10
)

const (
	getCitiesQuery = `query GetCities {
  allCities {
    id
    key
    name
    nativeName
  }
}`
	getCityQuery = `query getCity($id: ID!) {
  City(id: $id) {
    id
    key
    name
    nativeName
    currency
    language
  }
}`
	getCityPlaceQuery = `query getCityPlace($key: String) {
  allPlaces(filter: { key: $key }) {
    key
    place
  }
}`
	pingQuery = `query Ping { __typename }`
)

// Options configure a Client.
type Options struct {
	Endpoint          string
	AuthToken         string
	RequestsPerSecond float64
	HTTPClient        *http.Client
	Logger            *logrus.Entry
}

// Client talks to the city GraphQL API.
type Client struct {
	endpoint  *url.URL
	token     string
	http      *http.Client
	limiter   *rate.Limiter
	log       *logrus.Entry
	userAgent string
}

// NewClient builds a Client for the given GraphQL endpoint.
func NewClient(opts Options) (*Client, error) {
	endpoint, err := parseEndpoint(opts.Endpoint)
	if err != nil {
		return nil, err
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return &Client{
		endpoint:  endpoint,
		token:     strings.TrimSpace(opts.AuthToken),
		http:      httpClient,
		limiter:   limiter,
		log:       logger.WithField("component", "cityapi"),
		userAgent: defaultUserAgent,
	}, nil
}

// FetchAllCities runs GetCities. A null allCities field yields a nil result.
func (c *Client) FetchAllCities(ctx context.Context) (*CitiesResult, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var data citiesData
	if err := c.query(ctx, "GetCities", getCitiesQuery, nil, &data); err != nil {
		return nil, err
	}
	if data.AllCities == nil {
		return nil, nil
	}
	result := &CitiesResult{AllCities: make([]City, 0, len(data.AllCities))}
	for _, city := range data.AllCities {
		if city != nil {
			result.AllCities = append(result.AllCities, *city)
		}
	}
	return result, nil
}

// FetchCity runs getCity. An unknown id yields (nil, nil).
func (c *Client) FetchCity(ctx context.Context, id string) (*City, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("city id required")
	}
	var data cityData
	if err := c.query(ctx, "getCity", getCityQuery, map[string]any{"id": id}, &data); err != nil {
		return nil, err
	}
	return data.City, nil
}

// FetchCityPlaces runs getCityPlace filtered by the city's lookup key. The id
// only scopes the cache entry and is not sent.
func (c *Client) FetchCityPlaces(ctx context.Context, id, key string) (*PlacesResult, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var data placesData
	if err := c.query(ctx, "getCityPlace", getCityPlaceQuery, map[string]any{"key": key}, &data); err != nil {
		return nil, err
	}
	if data.AllPlaces == nil {
		return nil, nil
	}
	result := &PlacesResult{AllPlaces: make([]Place, 0, len(data.AllPlaces))}
	for _, place := range data.AllPlaces {
		if place == nil {
			continue
		}
		place.decodeMetadata()
		result.AllPlaces = append(result.AllPlaces, *place)
	}
	return result, nil
}

// Ping issues a trivial query to check the API is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	return c.query(ctx, "Ping", pingQuery, nil, nil)
}

type graphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage    `json:"data"`
	Errors []graphQLErrorItem `json:"errors"`
}

type graphQLErrorItem struct {
	Message string `json:"message"`
}

func (c *Client) query(ctx context.Context, operation, query string, variables map[string]any, dest any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit %s: %w", operation, err)
		}
	}

	body, err := json.Marshal(graphQLRequest{Query: query, OperationName: operation, Variables: variables})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	log := c.log.WithFields(logrus.Fields{"operation": operation, "request_id": requestID})
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Debug("request failed")
		return fmt.Errorf("execute %s: %w", operation, err)
	}
	defer func() { _ = resp.Body.Close() }()
	log.WithFields(logrus.Fields{"status": resp.StatusCode, "elapsed": time.Since(start)}).Debug("request done")

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Operation: operation, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	var payload graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	if len(payload.Errors) > 0 {
		gqlErr := &GraphQLError{Operation: operation}
		for _, item := range payload.Errors {
			gqlErr.Messages = append(gqlErr.Messages, item.Message)
		}
		return gqlErr
	}
	if dest == nil || len(payload.Data) == 0 || string(payload.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(payload.Data, dest); err != nil {
		return fmt.Errorf("decode %s data: %w", operation, err)
	}
	return nil
}

func parseEndpoint(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("api url is empty")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("api url %q: missing host", raw)
	}
	u.Fragment = ""
	return u, nil
}
