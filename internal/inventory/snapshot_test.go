package inventory

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/shambadirect/storefront/pkg/logger"
	"github.com/shopspring/decimal"
)

type stubSource struct {
	products []Product
	err      error
	calls    int
}

func (s *stubSource) FetchSellableProducts(context.Context) ([]Product, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.products, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
}

func sampleProducts() []Product {
	return []Product{
		{ID: "p1", Name: "Sukuma Wiki", Description: "Fresh kale from Nyeri", Price: decimal.NewFromInt(30), Unit: "bunch", Quantity: 200, InStock: true},
		{ID: "p2", Name: "Avocado", Description: "Hass variety", Price: decimal.NewFromInt(200), Unit: "kg", Quantity: 80, InStock: true},
	}
}

func TestSnapshotRefreshReplacesList(t *testing.T) {
	src := &stubSource{products: sampleProducts()}
	snap, err := NewSnapshot(src, testLogger())
	if err != nil {
		t.Fatalf("new snapshot: %v", err)
	}

	if got := snap.Products(); len(got) != 0 {
		t.Fatalf("expected empty snapshot before refresh, got %d", len(got))
	}
	if err := snap.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := snap.Products(); len(got) != 2 || got[0].ID != "p1" {
		t.Fatalf("unexpected products %+v", got)
	}
	p, ok := snap.Lookup("p2")
	if !ok || p.Quantity != 80 {
		t.Fatalf("lookup p2 failed: %+v %v", p, ok)
	}
	if _, ok := snap.Lookup("missing"); ok {
		t.Fatal("expected missing product lookup to fail")
	}
	refreshedAt, lastErr := snap.Status()
	if refreshedAt.IsZero() || lastErr != nil {
		t.Fatalf("unexpected status %v %v", refreshedAt, lastErr)
	}
}

func TestSnapshotRefreshFailureKeepsPreviousList(t *testing.T) {
	src := &stubSource{products: sampleProducts()}
	snap, _ := NewSnapshot(src, testLogger())
	if err := snap.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	src.err = errors.New("backend unreachable")
	if err := snap.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	if got := snap.Products(); len(got) != 2 {
		t.Fatalf("expected stale snapshot retained, got %d products", len(got))
	}
	if _, lastErr := snap.Status(); lastErr == nil {
		t.Fatal("expected last error recorded")
	}

	src.err = nil
	src.products = sampleProducts()[:1]
	if err := snap.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, ok := snap.Lookup("p2"); ok {
		t.Fatal("delisted product should disappear after refresh")
	}
	if _, lastErr := snap.Status(); lastErr != nil {
		t.Fatalf("expected last error cleared, got %v", lastErr)
	}
}

func TestSnapshotSearch(t *testing.T) {
	snap, _ := NewSnapshot(&stubSource{products: sampleProducts()}, testLogger())
	_ = snap.Refresh(context.Background())

	tests := []struct {
		term string
		want []string
	}{
		{term: "", want: []string{"p1", "p2"}},
		{term: "AVO", want: []string{"p2"}},
		{term: "nyeri", want: []string{"p1"}},
		{term: "mango", want: nil},
	}
	for _, tt := range tests {
		got := snap.Search(tt.term)
		if len(got) != len(tt.want) {
			t.Fatalf("search %q: expected %v got %+v", tt.term, tt.want, got)
		}
		for i, id := range tt.want {
			if got[i].ID != id {
				t.Fatalf("search %q: expected %s at %d, got %s", tt.term, id, i, got[i].ID)
			}
		}
	}
}

func TestNewSnapshotRequiresDeps(t *testing.T) {
	if _, err := NewSnapshot(nil, testLogger()); err == nil {
		t.Fatal("expected missing source to fail")
	}
	if _, err := NewSnapshot(&stubSource{}, nil); err == nil {
		t.Fatal("expected missing logger to fail")
	}
}
