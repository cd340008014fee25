package delivery

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"time"

	pkgerrors "github.com/shambadirect/storefront/pkg/errors"
	"github.com/shambadirect/storefront/pkg/logger"
	"github.com/shambadirect/storefront/pkg/maps"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
)

// Quote is the outcome of a delivery fee lookup.
type Quote struct {
	DistanceKm decimal.Decimal `json:"distance_km"`
	Fee        decimal.Decimal `json:"fee"`
}

// Estimator prices delivery to an address.
type Estimator interface {
	EstimateDelivery(ctx context.Context, address string) (Quote, error)
}

// Suggestion is an address autocomplete candidate.
type Suggestion struct {
	PlaceID     string `json:"place_id"`
	Description string `json:"description"`
}

type mapsClient interface {
	DrivingDistance(ctx context.Context, req maps.DistanceRequest) (maps.Distance, error)
	Autocomplete(ctx context.Context, req maps.AutocompleteRequest) ([]maps.AutocompleteSuggestion, error)
}

type lookupMetrics interface {
	ObserveLookup(outcome string, took time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) ObserveLookup(string, time.Duration) {}

// Settings parameterizes DistanceService.
type Settings struct {
	Origin           string
	RegionCode       string
	BreakerTimeout   time.Duration
	BreakerThreshold uint32
}

// DistanceService prices delivery by the driving distance from the farm
// origin. Calls to the maps API go through a circuit breaker.
type DistanceService struct {
	maps    mapsClient
	fee     FeeStrategy
	origin  string
	region  string
	breaker *gobreaker.CircuitBreaker
	logg    *logger.Logger
	metrics lookupMetrics
	now     func() time.Time
}

// NewDistanceService wires the estimator.
func NewDistanceService(settings Settings, client mapsClient, fee FeeStrategy, logg *logger.Logger, metrics lookupMetrics) (*DistanceService, error) {
	if client == nil {
		return nil, errors.New("maps client required")
	}
	if fee == nil {
		return nil, errors.New("fee strategy required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if strings.TrimSpace(settings.Origin) == "" {
		return nil, errors.New("delivery origin required")
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	threshold := settings.BreakerThreshold
	if threshold == 0 {
		threshold = 5
	}

	svc := &DistanceService{
		maps:    client,
		fee:     fee,
		origin:  settings.Origin,
		region:  settings.RegionCode,
		logg:    logg,
		metrics: metrics,
		now:     time.Now,
	}
	svc.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "delivery-distance",
		MaxRequests: 1,
		Timeout:     settings.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				pkgerrors.HasCode(err, pkgerrors.CodeValidation) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			ctx := logg.WithFields(context.Background(), map[string]any{
				"circuit": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			logg.Warn(ctx, "delivery circuit breaker state changed")
		},
	})
	return svc, nil
}

// EstimateDelivery looks up the driving distance and prices it.
func (s *DistanceService) EstimateDelivery(ctx context.Context, address string) (Quote, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required")
	}

	started := s.now()
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.maps.DrivingDistance(ctx, maps.DistanceRequest{
			Origin:      s.origin,
			Destination: address,
			RegionCode:  s.region,
		})
	})
	took := s.now().Sub(started)

	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			s.metrics.ObserveLookup("rejected", took)
			return Quote{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delivery estimator unavailable")
		case pkgerrors.HasCode(err, pkgerrors.CodeValidation):
			s.metrics.ObserveLookup("invalid", took)
			return Quote{}, err
		case errors.Is(err, context.Canceled):
			s.metrics.ObserveLookup("cancelled", took)
			return Quote{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "estimate delivery cancelled")
		default:
			s.metrics.ObserveLookup("failure", took)
			s.logg.Error(ctx, "delivery distance lookup failed", err)
			return Quote{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "estimate delivery")
		}
	}

	distance := result.(maps.Distance)
	km := decimal.New(distance.Meters, -3)
	s.metrics.ObserveLookup("success", took)
	return Quote{DistanceKm: km, Fee: s.fee.Fee(km)}, nil
}

// Suggest returns address candidates for partial input.
func (s *DistanceService) Suggest(ctx context.Context, input string) ([]Suggestion, error) {
	req := maps.AutocompleteRequest{Input: input, LanguageCode: "en"}
	if s.region != "" {
		req.IncludedRegionCodes = []string{s.region}
	}
	found, err := s.maps.Autocomplete(ctx, req)
	if err != nil {
		return nil, err
	}
	out := make([]Suggestion, 0, len(found))
	for _, f := range found {
		out = append(out, Suggestion{PlaceID: f.PlaceID, Description: f.Description})
	}
	return out, nil
}

// PlaceholderEstimator derives a stable pseudo distance between 2 and 14 km
// from the address text. It stands in when no maps API key is configured.
type PlaceholderEstimator struct {
	Fee FeeStrategy
}

func (p PlaceholderEstimator) EstimateDelivery(_ context.Context, address string) (Quote, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required")
	}
	if p.Fee == nil {
		return Quote{}, pkgerrors.New(pkgerrors.CodeInternal, "fee strategy not configured")
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(address)))
	km := decimal.NewFromInt(int64(2 + h.Sum32()%13))
	return Quote{DistanceKm: km, Fee: p.Fee.Fee(km)}, nil
}
