package maps

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/shambadirect/storefront/pkg/errors"
)

const (
	defaultBaseURL                 = "https://places.googleapis.com/v1"
	defaultDistanceMatrixURL       = "https://maps.googleapis.com/maps/api/distancematrix/json"
	autocompleteFieldMask          = "suggestions.placePrediction.placeId,suggestions.placePrediction.text"
	statusOK                       = "OK"
	requestBodyReadLimit     int64 = 1024
)

var (
	errAPIKeyRequired = errors.New("google maps api key is required")
)

// Client wraps the Google Maps APIs used for address suggestions and
// delivery distances.
type Client struct {
	httpClient        *http.Client
	baseURL           string
	distanceMatrixURL string
	apiKey            string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured Places base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithDistanceMatrixURL overrides the Distance Matrix endpoint.
func WithDistanceMatrixURL(endpoint string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(endpoint)
		if trimmed != "" {
			c.distanceMatrixURL = trimmed
		}
	}
}

// NewClient builds the Google Maps client given an API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:            trimmedKey,
		baseURL:           defaultBaseURL,
		distanceMatrixURL: defaultDistanceMatrixURL,
		httpClient:        &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// AutocompleteRequest describes the payload sent to the Places autocomplete API.
type AutocompleteRequest struct {
	Input               string   `json:"input"`
	IncludedRegionCodes []string `json:"includedRegionCodes,omitempty"`
	LanguageCode        string   `json:"languageCode,omitempty"`
}

// AutocompleteSuggestion holds the mapped data returned by the autocomplete API.
type AutocompleteSuggestion struct {
	PlaceID     string
	Description string
}

// Autocomplete queries suggested places based on partial input.
func (c *Client) Autocomplete(ctx context.Context, req AutocompleteRequest) ([]AutocompleteSuggestion, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "google maps client not configured")
	}
	if strings.TrimSpace(req.Input) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "autocomplete input is required")
	}

	endpoint := c.buildURL("places:autocomplete")
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal autocomplete request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build autocomplete request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", c.apiKey)
	httpReq.Header.Set("X-Goog-FieldMask", autocompleteFieldMask)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute autocomplete request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "autocomplete request failed")
	}

	var apiResp struct {
		Suggestions []struct {
			Prediction struct {
				PlaceID string `json:"placeId"`
				Text    struct {
					Text string `json:"text"`
				} `json:"text"`
			} `json:"placePrediction"`
		} `json:"suggestions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode autocomplete response")
	}

	suggestions := make([]AutocompleteSuggestion, 0, len(apiResp.Suggestions))
	for _, s := range apiResp.Suggestions {
		suggestions = append(suggestions, AutocompleteSuggestion{
			PlaceID:     s.Prediction.PlaceID,
			Description: s.Prediction.Text.Text,
		})
	}

	return suggestions, nil
}

// DistanceRequest describes a single origin/destination pair for the
// Distance Matrix API.
type DistanceRequest struct {
	Origin      string
	Destination string
	RegionCode  string
}

// Distance is the driving distance and duration between two places.
type Distance struct {
	Meters   int64
	Duration time.Duration
}

// DrivingDistance asks the Distance Matrix API for the driving route length
// between the origin and destination.
func (c *Client) DrivingDistance(ctx context.Context, req DistanceRequest) (Distance, error) {
	if c == nil {
		return Distance{}, pkgerrors.New(pkgerrors.CodeDependency, "google maps client not configured")
	}
	origin := strings.TrimSpace(req.Origin)
	destination := strings.TrimSpace(req.Destination)
	if origin == "" || destination == "" {
		return Distance{}, pkgerrors.New(pkgerrors.CodeValidation, "origin and destination are required")
	}

	query := url.Values{}
	query.Set("origins", origin)
	query.Set("destinations", destination)
	query.Set("mode", "driving")
	query.Set("units", "metric")
	if req.RegionCode != "" {
		query.Set("region", strings.ToLower(req.RegionCode))
	}
	query.Set("key", c.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.distanceMatrixURL+"?"+query.Encode(), nil)
	if err != nil {
		return Distance{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build distance request")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Distance{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute distance request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return Distance{}, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "distance request failed")
	}

	var apiResp struct {
		Status       string `json:"status"`
		ErrorMessage string `json:"error_message"`
		Rows         []struct {
			Elements []struct {
				Status   string `json:"status"`
				Distance struct {
					Value int64 `json:"value"`
				} `json:"distance"`
				Duration struct {
					Value int64 `json:"value"`
				} `json:"duration"`
			} `json:"elements"`
		} `json:"rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return Distance{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode distance response")
	}
	if apiResp.Status != statusOK {
		return Distance{}, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %s: %s", apiResp.Status, apiResp.ErrorMessage), "distance lookup rejected")
	}
	if len(apiResp.Rows) == 0 || len(apiResp.Rows[0].Elements) == 0 {
		return Distance{}, pkgerrors.New(pkgerrors.CodeDependency, "distance response missing elements")
	}

	element := apiResp.Rows[0].Elements[0]
	switch element.Status {
	case statusOK:
	case "NOT_FOUND", "ZERO_RESULTS":
		return Distance{}, pkgerrors.New(pkgerrors.CodeValidation, "address could not be routed").
			WithDetails(map[string]any{"destination": destination, "status": element.Status})
	default:
		return Distance{}, pkgerrors.Newf(pkgerrors.CodeDependency, "distance element status %s", element.Status)
	}

	return Distance{
		Meters:   element.Distance.Value,
		Duration: time.Duration(element.Duration.Value) * time.Second,
	}, nil
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}
