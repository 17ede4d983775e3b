package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the Google Places Text Search endpoint
const DefaultBaseURL = "https://maps.googleapis.com/maps/api/place/textsearch/json"

// Place is a single text search result
type Place struct {
	PlaceID          string `json:"place_id"`
	Name             string `json:"name"`
	FormattedAddress string `json:"formatted_address,omitempty"`
	Geometry         *struct {
		Location *struct {
			Lat *float64 `json:"lat,omitempty"`
			Lng *float64 `json:"lng,omitempty"`
		} `json:"location,omitempty"`
	} `json:"geometry,omitempty"`
}

type textSearchResponse struct {
	Status       string  `json:"status"`
	ErrorMessage string  `json:"error_message"`
	Results      []Place `json:"results"`
}

// Client queries the places text search API
type Client struct {
	apiKey  string
	baseURL string
	client  *resty.Client
	logger  *logrus.Logger
}

// NewClient creates a new places client. An empty baseURL selects DefaultBaseURL.
func NewClient(apiKey, baseURL string, timeout time.Duration, logger *logrus.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		logger: logger,
	}
}

// Enabled reports whether an API key is configured
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// Search returns places matching query. A blank query or a missing API key
// yields no results without issuing a request. A cancelled search returns
// the context error.
func (c *Client) Search(ctx context.Context, query string) ([]Place, error) {
	if !c.Enabled() {
		c.logger.Debug("Places search disabled - missing API key")
		return []Place{}, nil
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return []Place{}, nil
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query": query,
			"key":   c.apiKey,
		}).
		Get(c.baseURL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("places request failed: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("places API returned status %d", resp.StatusCode())
	}

	var body textSearchResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("failed to parse places response: %w", err)
	}

	if body.Status != "" && body.Status != "OK" {
		c.logger.WithFields(logrus.Fields{
			"status": body.Status,
			"error":  body.ErrorMessage,
		}).Warn("Places search returned non-OK status")
	}

	if body.Results == nil {
		return []Place{}, nil
	}
	return body.Results, nil
}

// IsCancelled reports whether err comes from a superseded or aborted search
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}
