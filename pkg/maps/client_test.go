package maps

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	pkgerrors "github.com/shambadirect/storefront/pkg/errors"
)

func TestClientAutocompleteRequest(t *testing.T) {
	const expectedURL = "http://maps.test/v1/places:autocomplete"
	respBody := `{"suggestions":[{"placePrediction":{"placeId":"place_123","text":{"text":"Karatina, Kenya"}}}]}`

	var capturedURL string
	var capturedHeaders http.Header

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedHeaders = req.Header.Clone()

		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read request body: %v", err)
		}
		var payload map[string]any
		if err := json.Unmarshal(bodyBytes, &payload); err != nil {
			t.Fatalf("unmarshal request body: %v", err)
		}
		if payload["input"] != "Karat" {
			t.Fatalf("unexpected input %q", payload["input"])
		}

		return jsonResponse(http.StatusOK, respBody), nil
	})

	client, err := NewClient("test-key", WithBaseURL("http://maps.test/v1"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	result, err := client.Autocomplete(context.Background(), AutocompleteRequest{
		Input:               "Karat",
		IncludedRegionCodes: []string{"KE"},
		LanguageCode:        "en",
	})
	if err != nil {
		t.Fatalf("autocomplete: %v", err)
	}
	if capturedURL != expectedURL {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if capturedHeaders.Get("X-Goog-Api-Key") != "test-key" {
		t.Fatalf("api key header missing")
	}
	if capturedHeaders.Get("X-Goog-FieldMask") != autocompleteFieldMask {
		t.Fatalf("unexpected field mask %q", capturedHeaders.Get("X-Goog-FieldMask"))
	}
	if len(result) != 1 || result[0].PlaceID != "place_123" || result[0].Description != "Karatina, Kenya" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestClientAutocompleteRejectsBlankInput(t *testing.T) {
	client, err := NewClient("test-key")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.Autocomplete(context.Background(), AutocompleteRequest{Input: "  "})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestClientDrivingDistanceRequest(t *testing.T) {
	respBody := `{"status":"OK","rows":[{"elements":[{"status":"OK","distance":{"value":5200,"text":"5.2 km"},"duration":{"value":660,"text":"11 mins"}}]}]}`

	var capturedQuery map[string]string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodGet {
			t.Fatalf("expected GET, got %s", req.Method)
		}
		if req.URL.Host != "matrix.test" {
			t.Fatalf("unexpected host %q", req.URL.Host)
		}
		capturedQuery = map[string]string{}
		for key := range req.URL.Query() {
			capturedQuery[key] = req.URL.Query().Get(key)
		}
		return jsonResponse(http.StatusOK, respBody), nil
	})

	client, err := NewClient("test-key",
		WithDistanceMatrixURL("http://matrix.test/json"),
		WithHTTPClient(&http.Client{Transport: rt}),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	got, err := client.DrivingDistance(context.Background(), DistanceRequest{
		Origin:      "Nyeri, Kenya",
		Destination: "Karatina, Kenya",
		RegionCode:  "KE",
	})
	if err != nil {
		t.Fatalf("driving distance: %v", err)
	}
	if got.Meters != 5200 {
		t.Fatalf("expected 5200 meters, got %d", got.Meters)
	}
	if got.Duration != 11*time.Minute {
		t.Fatalf("expected 11m duration, got %v", got.Duration)
	}
	want := map[string]string{
		"origins":      "Nyeri, Kenya",
		"destinations": "Karatina, Kenya",
		"mode":         "driving",
		"units":        "metric",
		"region":       "ke",
		"key":          "test-key",
	}
	for key, value := range want {
		if capturedQuery[key] != value {
			t.Fatalf("query %s: expected %q got %q", key, value, capturedQuery[key])
		}
	}
}

func TestClientDrivingDistanceErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode pkgerrors.Code
	}{
		{name: "http failure", status: http.StatusInternalServerError, body: "boom", wantCode: pkgerrors.CodeDependency},
		{name: "request denied", status: http.StatusOK, body: `{"status":"REQUEST_DENIED","error_message":"bad key"}`, wantCode: pkgerrors.CodeDependency},
		{name: "unroutable address", status: http.StatusOK, body: `{"status":"OK","rows":[{"elements":[{"status":"NOT_FOUND"}]}]}`, wantCode: pkgerrors.CodeValidation},
		{name: "empty rows", status: http.StatusOK, body: `{"status":"OK","rows":[]}`, wantCode: pkgerrors.CodeDependency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
				return jsonResponse(tt.status, tt.body), nil
			})
			client, err := NewClient("test-key", WithHTTPClient(&http.Client{Transport: rt}))
			if err != nil {
				t.Fatalf("new client: %v", err)
			}
			_, err = client.DrivingDistance(context.Background(), DistanceRequest{Origin: "a", Destination: "b"})
			if !pkgerrors.HasCode(err, tt.wantCode) {
				t.Fatalf("expected %s, got %v", tt.wantCode, err)
			}
		})
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(" "); err == nil {
		t.Fatal("expected missing api key to fail")
	}
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
