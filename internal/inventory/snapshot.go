package inventory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/shambadirect/storefront/pkg/logger"
)

// Snapshot holds the last successfully fetched product list. A failed refresh
// keeps the previous list so the storefront stays usable with stale data.
type Snapshot struct {
	source Source
	logg   *logger.Logger
	now    func() time.Time

	mu          sync.RWMutex
	products    []Product
	byID        map[string]int
	refreshedAt time.Time
	lastErr     error
	started     uint64
	applied     uint64
}

// NewSnapshot builds an empty snapshot over source.
func NewSnapshot(source Source, logg *logger.Logger) (*Snapshot, error) {
	if source == nil {
		return nil, errors.New("inventory source required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &Snapshot{
		source: source,
		logg:   logg,
		now:    time.Now,
		byID:   map[string]int{},
	}, nil
}

// Refresh fetches the sellable list and replaces the snapshot on success.
// Completions of refreshes started earlier than the applied one are dropped.
func (s *Snapshot) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.started++
	seq := s.started
	s.mu.Unlock()

	products, err := s.source.FetchSellableProducts(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.applied {
		return err
	}
	if err != nil {
		s.lastErr = err
		s.logg.Error(ctx, "inventory refresh failed, keeping previous snapshot", err)
		return err
	}

	byID := make(map[string]int, len(products))
	for i, p := range products {
		byID[p.ID] = i
	}
	s.products = products
	s.byID = byID
	s.applied = seq
	s.lastErr = nil
	s.refreshedAt = s.now()
	s.logg.Info(s.logg.WithField(ctx, "product_count", len(products)), "inventory snapshot refreshed")
	return nil
}

// Products returns a copy of the current list in source order.
func (s *Snapshot) Products() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, len(s.products))
	copy(out, s.products)
	return out
}

// Lookup finds a product by id in the current snapshot.
func (s *Snapshot) Lookup(id string) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return Product{}, false
	}
	return s.products[idx], true
}

// Search matches term case-insensitively against name or description. A
// blank term returns every product.
func (s *Snapshot) Search(term string) []Product {
	needle := strings.ToLower(strings.TrimSpace(term))
	products := s.Products()
	if needle == "" {
		return products
	}
	matches := make([]Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Description), needle) {
			matches = append(matches, p)
		}
	}
	return matches
}

// Status reports when the snapshot was last replaced and the error of the
// most recent failed refresh, if any.
func (s *Snapshot) Status() (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshedAt, s.lastErr
}
