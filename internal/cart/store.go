package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/shambadirect/storefront/internal/inventory"
	pkgerrors "github.com/shambadirect/storefront/pkg/errors"
	"github.com/shambadirect/storefront/pkg/logger"
)

// MinQty is the smallest quantity a cart line may hold.
const MinQty = 50

// Line is one product in the cart. Product is captured at add time, so its
// price stays fixed for the line.
type Line struct {
	Product  inventory.Product `json:"product"`
	Quantity int               `json:"quantity"`
}

// ProductLookup resolves a product in the current inventory snapshot.
type ProductLookup interface {
	Lookup(id string) (inventory.Product, bool)
}

type storageMetrics interface {
	IncStorageFailure(op string)
}

type noopMetrics struct{}

func (noopMetrics) IncStorageFailure(string) {}

// AddResult reports whether Add created a line.
type AddResult struct {
	AlreadyInCart bool `json:"already_in_cart"`
	Line          Line `json:"line"`
}

type NoticeKind string

const (
	NoticeStockLimitReached NoticeKind = "stock_limit_reached"
	NoticeAlreadyInCart     NoticeKind = "already_in_cart"
)

// Notice is user-facing feedback that accompanies a successful call.
type Notice struct {
	Kind      NoticeKind `json:"kind"`
	ProductID string     `json:"product_id"`
	Available int        `json:"available"`
	Message   string     `json:"message"`
}

func stockLimitNotice(p inventory.Product) *Notice {
	return &Notice{
		Kind:      NoticeStockLimitReached,
		ProductID: p.ID,
		Available: p.Quantity,
		Message:   fmt.Sprintf("Only %d %s of %s available", p.Quantity, p.Unit, p.Name),
	}
}

// Store owns the single cart. All mutations go through it and are persisted
// before they return; persistence failures are logged, never surfaced.
type Store struct {
	storage Storage
	lookup  ProductLookup
	logg    *logger.Logger
	metrics storageMetrics

	mu    sync.Mutex
	lines []Line
}

// NewStore builds the store and hydrates it from storage. Missing or corrupt
// persisted data yields an empty cart.
func NewStore(ctx context.Context, storage Storage, lookup ProductLookup, logg *logger.Logger, metrics storageMetrics) (*Store, error) {
	if storage == nil {
		return nil, errors.New("cart storage required")
	}
	if lookup == nil {
		return nil, errors.New("product lookup required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	s := &Store{storage: storage, lookup: lookup, logg: logg, metrics: metrics}
	s.lines = s.load(ctx)
	return s, nil
}

func (s *Store) load(ctx context.Context) []Line {
	raw, err := s.storage.Read(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoCart) {
			s.metrics.IncStorageFailure("read")
			s.logg.Warn(ctx, fmt.Sprintf("reading persisted cart failed, starting empty: %v", err))
		}
		return nil
	}

	var stored []Line
	if err := json.Unmarshal(raw, &stored); err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("persisted cart is corrupt, starting empty: %v", err))
		return nil
	}

	lines := make([]Line, 0, len(stored))
	seen := make(map[string]struct{}, len(stored))
	for _, line := range stored {
		id := line.Product.ID
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if line.Quantity < MinQty {
			line.Quantity = MinQty
		}
		lines = append(lines, line)
	}
	return lines
}

// Add appends product at MinQty. A product already in the cart is left as is.
func (s *Store) Add(ctx context.Context, product inventory.Product) (AddResult, error) {
	if strings.TrimSpace(product.ID) == "" {
		return AddResult{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := s.indexLocked(product.ID); idx >= 0 {
		return AddResult{AlreadyInCart: true, Line: s.lines[idx]}, nil
	}
	line := Line{Product: product, Quantity: MinQty}
	s.lines = append(s.lines, line)
	s.persistLocked(ctx)
	return AddResult{Line: line}, nil
}

// Increase adds one unit unless the line already holds all available stock.
func (s *Store) Increase(ctx context.Context, productID string) (*Notice, error) {
	product, err := s.snapshotProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(productID)
	if idx < 0 {
		return nil, notInCart(productID)
	}
	if s.lines[idx].Quantity >= product.Quantity {
		return stockLimitNotice(product), nil
	}
	s.lines[idx].Quantity++
	s.persistLocked(ctx)
	return nil, nil
}

// Decrease removes one unit, never going below MinQty. Unknown lines are ignored.
func (s *Store) Decrease(ctx context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(productID)
	if idx < 0 || s.lines[idx].Quantity <= MinQty {
		return nil
	}
	s.lines[idx].Quantity--
	s.persistLocked(ctx)
	return nil
}

// SetQuantity applies a typed quantity. Non-numeric input is ignored; numeric
// input (including decimal, exponent and overflowing forms) is clamped into [MinQty, available stock] with MinQty taking precedence.
func (s *Store) SetQuantity(ctx context.Context, productID, raw string) (*Notice, error) {
	product, err := s.snapshotProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	requested, ok := parseQuantity(raw)
	if !ok {
		return nil, nil
	}

	var notice *Notice
	qty := requested
	if qty > product.Quantity {
		qty = product.Quantity
		notice = stockLimitNotice(product)
	}
	if qty < MinQty {
		qty = MinQty
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(productID)
	if idx < 0 {
		return nil, notInCart(productID)
	}
	if s.lines[idx].Quantity != qty {
		s.lines[idx].Quantity = qty
		s.persistLocked(ctx)
	}
	return notice, nil
}

// parseQuantity reads a typed quantity. Decimal and exponent forms truncate
// toward zero; values outside the int range saturate so they still clamp.
func parseQuantity(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	n, err := strconv.Atoi(raw)
	if err == nil {
		return n, true
	}
	if errors.Is(err, strconv.ErrRange) {
		if strings.HasPrefix(raw, "-") {
			return math.MinInt, true
		}
		return math.MaxInt, true
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	switch {
	case math.IsNaN(f):
		return 0, false
	case f >= math.MaxInt:
		return math.MaxInt, true
	case f <= math.MinInt:
		return math.MinInt, true
	}
	return int(f), true
}

// Remove deletes the line for productID if present.
func (s *Store) Remove(ctx context.Context, productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(productID)
	if idx < 0 {
		return
	}
	s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
	s.persistLocked(ctx)
}

// Clear empties the cart and deletes its persisted entry.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil
	if err := s.storage.Delete(ctx); err != nil {
		s.metrics.IncStorageFailure("delete")
		s.logg.Error(ctx, "deleting persisted cart failed", err)
	}
}

// Lines returns a copy of the cart in insertion order.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *Store) snapshotProduct(ctx context.Context, productID string) (inventory.Product, error) {
	product, ok := s.lookup.Lookup(productID)
	if !ok {
		err := pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
			WithDetails(map[string]any{"product_id": productID})
		s.logg.Warn(s.logg.WithProductID(ctx, productID), "product missing from inventory snapshot")
		return inventory.Product{}, err
	}
	return product, nil
}

func (s *Store) indexLocked(productID string) int {
	for i := range s.lines {
		if s.lines[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) persistLocked(ctx context.Context) {
	raw, err := json.Marshal(s.lines)
	if err == nil {
		err = s.storage.Write(ctx, raw)
	}
	if err != nil {
		s.metrics.IncStorageFailure("write")
		s.logg.Error(ctx, "persisting cart failed", err)
	}
}

func notInCart(productID string) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "product not in cart").
		WithDetails(map[string]any{"product_id": productID})
}
