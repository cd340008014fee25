package checkout

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shambadirect/storefront/internal/cart"
	"github.com/shambadirect/storefront/internal/delivery"
	"github.com/shambadirect/storefront/internal/inventory"
	"github.com/shambadirect/storefront/internal/orders"
	pkgerrors "github.com/shambadirect/storefront/pkg/errors"
	"github.com/shambadirect/storefront/pkg/logger"
	"github.com/shopspring/decimal"
)

type stubCart struct {
	mu      sync.Mutex
	lines   []cart.Line
	cleared int
}

func (s *stubCart) Lines() []cart.Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]cart.Line(nil), s.lines...)
}

func (s *stubCart) Clear(context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	s.cleared++
}

type stubProducts []inventory.Product

func (s stubProducts) Products() []inventory.Product { return s }

type estimatorFunc func(ctx context.Context, address string) (delivery.Quote, error)

func (f estimatorFunc) EstimateDelivery(ctx context.Context, address string) (delivery.Quote, error) {
	return f(ctx, address)
}

func fixedQuote(km, fee int64) estimatorFunc {
	return func(context.Context, string) (delivery.Quote, error) {
		return delivery.Quote{DistanceKm: decimal.NewFromInt(km), Fee: decimal.NewFromInt(fee)}, nil
	}
}

type stubSink struct {
	mu       sync.Mutex
	calls    int
	payloads []orders.Payload
	err      error
	entered  chan struct{}
	release  chan struct{}
}

func (s *stubSink) SubmitOrder(_ context.Context, payload orders.Payload) error {
	s.mu.Lock()
	s.calls++
	s.payloads = append(s.payloads, payload)
	err := s.err
	s.mu.Unlock()
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	return err
}

func (s *stubSink) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
}

func product(id string, price int64, qty int) inventory.Product {
	return inventory.Product{ID: id, Name: "Product " + id, Unit: "kg", Price: decimal.NewFromInt(price), Quantity: qty, InStock: qty > 0}
}

func newTestFlow(t *testing.T, c cartStore, products stubProducts, est delivery.Estimator, sink orderSink) *Flow {
	t.Helper()
	flow, err := NewFlow(c, products, est, sink, testLogger(), time.Second)
	if err != nil {
		t.Fatalf("NewFlow: %v", err)
	}
	flow.newID = func() uuid.UUID { return uuid.MustParse("0b7c3c1e-4d3a-4f43-9a55-1b2f1e7f0c11") }
	flow.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return flow
}

func strPtr(s string) *string { return &s }

func readyForReview(t *testing.T, flow *Flow) {
	t.Helper()
	ctx := context.Background()
	if err := flow.Open(ctx); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := flow.UpdateDetails(ctx, DetailsInput{FullName: strPtr("Wanjiku Kamau"), Phone: strPtr("0712345678")}); err != nil {
		t.Fatalf("UpdateDetails: %v", err)
	}
	if _, err := flow.CheckAddressFee(ctx, "Karatina Market"); err != nil {
		t.Fatalf("CheckAddressFee: %v", err)
	}
	if err := flow.Advance(ctx); err != nil {
		t.Fatalf("Advance: %v", err)
	}
}

func TestNewFlowRequiresCollaborators(t *testing.T) {
	if _, err := NewFlow(nil, stubProducts{}, fixedQuote(1, 1), &stubSink{}, testLogger(), 0); err == nil {
		t.Fatal("expected missing cart error")
	}
	if _, err := NewFlow(&stubCart{}, stubProducts{}, fixedQuote(1, 1), nil, testLogger(), 0); err == nil {
		t.Fatal("expected missing sink error")
	}
}

func TestAdvanceRejectsEmptyPhone(t *testing.T) {
	ctx := context.Background()
	flow := newTestFlow(t, &stubCart{}, nil, fixedQuote(5, 150), &stubSink{})
	_ = flow.Open(ctx)
	_, _ = flow.UpdateDetails(ctx, DetailsInput{FullName: strPtr("Wanjiku")})
	if _, err := flow.CheckAddressFee(ctx, "Othaya"); err != nil {
		t.Fatalf("CheckAddressFee: %v", err)
	}

	err := flow.Advance(ctx)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, _ := pkgerrors.As(err).Details().(map[string]string)
	if details["phone"] != "is required" {
		t.Fatalf("expected phone detail, got %v", details)
	}
	if _, ok := details["full_name"]; ok {
		t.Fatalf("full_name should not be reported, got %v", details)
	}
	if flow.State() != StateCollectingDetails {
		t.Fatalf("expected to stay collecting, got %s", flow.State())
	}
}

func TestAdvanceRequiresDeliveryFee(t *testing.T) {
	ctx := context.Background()
	flow := newTestFlow(t, &stubCart{}, nil, fixedQuote(5, 150), &stubSink{})
	_ = flow.Open(ctx)
	_, _ = flow.UpdateDetails(ctx, DetailsInput{FullName: strPtr("Wanjiku"), Phone: strPtr("0712345678")})

	err := flow.Advance(ctx)
	details, _ := pkgerrors.As(err).Details().(map[string]string)
	if details["delivery_fee"] != "must be calculated" {
		t.Fatalf("expected delivery fee detail, got %v (%v)", details, err)
	}
}

func TestAddressChangeResetsFee(t *testing.T) {
	ctx := context.Background()
	flow := newTestFlow(t, &stubCart{}, nil, fixedQuote(5, 150), &stubSink{})
	_ = flow.Open(ctx)
	if _, err := flow.CheckAddressFee(ctx, "Othaya"); err != nil {
		t.Fatalf("CheckAddressFee: %v", err)
	}
	if flow.Draft().DeliveryFee == nil {
		t.Fatal("expected fee to be set")
	}

	draft, err := flow.UpdateDetails(ctx, DetailsInput{Address: strPtr("Othaya")})
	if err != nil || draft.DeliveryFee == nil {
		t.Fatalf("same address should keep fee, got %+v err=%v", draft, err)
	}
	draft, err = flow.UpdateDetails(ctx, DetailsInput{Address: strPtr("Mukurweini")})
	if err != nil {
		t.Fatalf("UpdateDetails: %v", err)
	}
	if draft.DeliveryFee != nil || draft.DistanceKm != nil {
		t.Fatalf("expected fee reset, got %+v", draft)
	}
}

func TestStaleFeeLookupIsDiscarded(t *testing.T) {
	ctx := context.Background()
	entered := make(chan struct{})
	release := make(chan struct{})
	est := estimatorFunc(func(ctx context.Context, address string) (delivery.Quote, error) {
		if address == "Othaya" {
			entered <- struct{}{}
			<-release
			return delivery.Quote{DistanceKm: decimal.NewFromInt(30), Fee: decimal.NewFromInt(650)}, nil
		}
		return delivery.Quote{DistanceKm: decimal.NewFromInt(5), Fee: decimal.NewFromInt(150)}, nil
	})
	flow := newTestFlow(t, &stubCart{}, nil, est, &stubSink{})
	_ = flow.Open(ctx)

	errCh := make(chan error, 1)
	go func() {
		_, err := flow.CheckAddressFee(ctx, "Othaya")
		errCh <- err
	}()
	<-entered

	if _, err := flow.CheckAddressFee(ctx, "Karatina"); err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	close(release)

	err := <-errCh
	if !errors.Is(err, ErrStaleLookup) || !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected stale lookup conflict, got %v", err)
	}
	draft := flow.Draft()
	if draft.Address != "Karatina" || draft.DeliveryFee == nil || !draft.DeliveryFee.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected newer lookup to win, got %+v", draft)
	}
}

func TestFeeLookupTimeoutIsRetryable(t *testing.T) {
	ctx := context.Background()
	est := estimatorFunc(func(ctx context.Context, _ string) (delivery.Quote, error) {
		<-ctx.Done()
		return delivery.Quote{}, ctx.Err()
	})
	flow, err := NewFlow(&stubCart{}, stubProducts{}, est, &stubSink{}, testLogger(), 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewFlow: %v", err)
	}
	_ = flow.Open(ctx)

	_, err = flow.CheckAddressFee(ctx, "Othaya")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency || !typed.Retryable() {
		t.Fatalf("expected retryable dependency error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline cause, got %v", err)
	}
}

func TestReviewOnlyAcceptsNotesAndPaymentMethod(t *testing.T) {
	ctx := context.Background()
	flow := newTestFlow(t, &stubCart{}, nil, fixedQuote(5, 150), &stubSink{})
	readyForReview(t, flow)

	if _, err := flow.UpdateDetails(ctx, DetailsInput{Phone: strPtr("0700000000")}); !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if _, err := flow.UpdateDetails(ctx, DetailsInput{PaymentMethod: strPtr("barter")}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	draft, err := flow.UpdateDetails(ctx, DetailsInput{PaymentMethod: strPtr("prepay"), Notes: strPtr("  call on arrival ")})
	if err != nil {
		t.Fatalf("UpdateDetails: %v", err)
	}
	if draft.PaymentMethod != orders.PaymentPrepay || draft.Notes != "call on arrival" {
		t.Fatalf("unexpected draft %+v", draft)
	}
}

func TestBackNavigation(t *testing.T) {
	ctx := context.Background()
	flow := newTestFlow(t, &stubCart{}, nil, fixedQuote(5, 150), &stubSink{})
	if err := flow.Back(ctx); !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected conflict from closed, got %v", err)
	}
	readyForReview(t, flow)
	if err := flow.Back(ctx); err != nil {
		t.Fatalf("Back: %v", err)
	}
	if flow.State() != StateCollectingDetails || flow.Draft().FullName != "Wanjiku Kamau" {
		t.Fatalf("expected draft kept on back, got %s %+v", flow.State(), flow.Draft())
	}
}

func TestPlaceOrderEndToEnd(t *testing.T) {
	ctx := context.Background()
	tomatoes := product("p1", 100, 200)
	snapshot, err := inventory.NewSnapshot(stubSource{tomatoes}, testLogger())
	if err != nil {
		t.Fatalf("NewSnapshot: %v", err)
	}
	if err := snapshot.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	store, err := cart.NewStore(ctx, cart.NewMemoryStorage(), snapshot, testLogger(), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, err := store.Add(ctx, tomatoes); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := store.SetQuantity(ctx, "p1", "100"); err != nil {
		t.Fatalf("SetQuantity: %v", err)
	}

	sink := &stubSink{}
	flow, err := NewFlow(store, snapshot, fixedQuote(5, 150), sink, testLogger(), time.Second)
	if err != nil {
		t.Fatalf("NewFlow: %v", err)
	}
	readyForReview(t, flow)

	summary := flow.Summary()
	if !summary.AvailableSubtotal.Equal(decimal.NewFromInt(10000)) || !summary.FinalTotal.Equal(decimal.NewFromInt(10150)) {
		t.Fatalf("unexpected summary %+v", summary)
	}

	receipt, err := flow.PlaceOrder(ctx)
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if !receipt.Total.Equal(decimal.NewFromInt(10150)) || receipt.RedirectTo != "/orders" {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	if !strings.Contains(receipt.Message, "KES 10,150") {
		t.Fatalf("expected total in message, got %q", receipt.Message)
	}
	if flow.State() != StateCompleted {
		t.Fatalf("expected completed, got %s", flow.State())
	}
	if len(store.Lines()) != 0 {
		t.Fatalf("expected cart cleared, got %+v", store.Lines())
	}
	if sink.callCount() != 1 {
		t.Fatalf("expected one submission, got %d", sink.callCount())
	}
	payload := sink.payloads[0]
	if len(payload.Items) != 1 || payload.Items[0].Quantity != 100 || !payload.Subtotal.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.Customer.Address != "Karatina Market" || payload.PaymentMethod != orders.PaymentOnDelivery {
		t.Fatalf("unexpected customer data %+v", payload)
	}
}

type stubSource []inventory.Product

func (s stubSource) FetchSellableProducts(context.Context) ([]inventory.Product, error) {
	return s, nil
}

func TestPlaceOrderSubmitsOnlyAvailableLines(t *testing.T) {
	ctx := context.Background()
	c := &stubCart{lines: []cart.Line{
		{Product: product("p1", 100, 0), Quantity: 60},
		{Product: product("p2", 20, 0), Quantity: 50},
	}}
	sink := &stubSink{}
	flow := newTestFlow(t, c, stubProducts{product("p1", 100, 40), product("p2", 20, 80)}, fixedQuote(5, 150), sink)
	readyForReview(t, flow)

	if _, err := flow.PlaceOrder(ctx); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	payload := sink.payloads[0]
	if len(payload.Items) != 1 || payload.Items[0].ProductID != "p2" {
		t.Fatalf("expected only p2, got %+v", payload.Items)
	}
	if !payload.Total.Equal(decimal.NewFromInt(1150)) {
		t.Fatalf("expected total 1150, got %s", payload.Total)
	}
}

func TestPlaceOrderRequiresAvailableItems(t *testing.T) {
	ctx := context.Background()
	c := &stubCart{lines: []cart.Line{{Product: product("p1", 100, 0), Quantity: 60}}}
	sink := &stubSink{}
	flow := newTestFlow(t, c, stubProducts{product("p1", 100, 40)}, fixedQuote(5, 150), sink)
	readyForReview(t, flow)

	if _, err := flow.PlaceOrder(ctx); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if sink.callCount() != 0 || flow.State() != StateReviewAndPay {
		t.Fatalf("expected no submission, calls=%d state=%s", sink.callCount(), flow.State())
	}
}

func TestConcurrentPlaceOrderSubmitsOnce(t *testing.T) {
	ctx := context.Background()
	c := &stubCart{lines: []cart.Line{{Product: product("p1", 100, 0), Quantity: 50}}}
	sink := &stubSink{entered: make(chan struct{}, 1), release: make(chan struct{})}
	flow := newTestFlow(t, c, stubProducts{product("p1", 100, 80)}, fixedQuote(5, 150), sink)
	readyForReview(t, flow)

	errCh := make(chan error, 1)
	go func() {
		_, err := flow.PlaceOrder(ctx)
		errCh <- err
	}()
	<-sink.entered

	if _, err := flow.PlaceOrder(ctx); !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict while submitting, got %v", err)
	}
	if err := flow.Open(ctx); !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected open to be refused while submitting, got %v", err)
	}
	close(sink.release)

	if err := <-errCh; err != nil {
		t.Fatalf("first PlaceOrder: %v", err)
	}
	if sink.callCount() != 1 {
		t.Fatalf("expected exactly one sink call, got %d", sink.callCount())
	}
}

func TestPlaceOrderFailureKeepsCart(t *testing.T) {
	ctx := context.Background()
	c := &stubCart{lines: []cart.Line{{Product: product("p1", 100, 0), Quantity: 50}}}
	sink := &stubSink{err: errors.New("connection reset")}
	flow := newTestFlow(t, c, stubProducts{product("p1", 100, 80)}, fixedQuote(5, 150), sink)
	readyForReview(t, flow)

	_, err := flow.PlaceOrder(ctx)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency || !typed.Retryable() {
		t.Fatalf("expected retryable dependency error, got %v", err)
	}
	if flow.State() != StateFailed {
		t.Fatalf("expected failed, got %s", flow.State())
	}
	if c.cleared != 0 || len(c.Lines()) != 1 {
		t.Fatalf("cart should be untouched on failure")
	}

	if err := flow.Back(ctx); err != nil {
		t.Fatalf("Back: %v", err)
	}
	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()
	if _, err := flow.PlaceOrder(ctx); err != nil {
		t.Fatalf("retry PlaceOrder: %v", err)
	}
	if c.cleared != 1 {
		t.Fatalf("expected cart cleared after retry")
	}
}

func TestPlaceOrderRetryReusesOrderID(t *testing.T) {
	ctx := context.Background()
	c := &stubCart{lines: []cart.Line{{Product: product("p1", 100, 0), Quantity: 50}}}
	sink := &stubSink{err: errors.New("ack lost")}
	flow := newTestFlow(t, c, stubProducts{product("p1", 100, 80)}, fixedQuote(5, 150), sink)
	flow.newID = uuid.New
	readyForReview(t, flow)

	if _, err := flow.PlaceOrder(ctx); err == nil {
		t.Fatal("expected first submission to fail")
	}
	if err := flow.Back(ctx); err != nil {
		t.Fatalf("Back: %v", err)
	}
	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()

	receipt, err := flow.PlaceOrder(ctx)
	if err != nil {
		t.Fatalf("retry PlaceOrder: %v", err)
	}
	if len(sink.payloads) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(sink.payloads))
	}
	first, retry := sink.payloads[0].OrderID, sink.payloads[1].OrderID
	if first == uuid.Nil || first != retry {
		t.Fatalf("expected retry to reuse order id, first=%s retry=%s", first, retry)
	}
	if receipt.OrderID != first.String() {
		t.Fatalf("receipt order id %s does not match %s", receipt.OrderID, first)
	}
}

func TestOpenStartsNewOrderID(t *testing.T) {
	ctx := context.Background()
	lines := []cart.Line{{Product: product("p1", 100, 0), Quantity: 50}}
	c := &stubCart{lines: lines}
	sink := &stubSink{}
	flow := newTestFlow(t, c, stubProducts{product("p1", 100, 80)}, fixedQuote(5, 150), sink)
	flow.newID = uuid.New
	readyForReview(t, flow)
	if _, err := flow.PlaceOrder(ctx); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	c.mu.Lock()
	c.lines = lines
	c.mu.Unlock()
	readyForReview(t, flow)
	if _, err := flow.PlaceOrder(ctx); err != nil {
		t.Fatalf("second PlaceOrder: %v", err)
	}
	if sink.payloads[0].OrderID == sink.payloads[1].OrderID {
		t.Fatalf("separate checkouts shared order id %s", sink.payloads[0].OrderID)
	}
}

func TestViewIncludesReceiptAfterCompletion(t *testing.T) {
	ctx := context.Background()
	c := &stubCart{lines: []cart.Line{{Product: product("p1", 100, 0), Quantity: 50}}}
	flow := newTestFlow(t, c, stubProducts{product("p1", 100, 80)}, fixedQuote(5, 150), &stubSink{})
	readyForReview(t, flow)

	view := flow.View()
	if view.State != StateReviewAndPay || view.Receipt != nil {
		t.Fatalf("unexpected view %+v", view)
	}
	if !view.Summary.FinalTotal.Equal(decimal.NewFromInt(5150)) || view.Summary.ItemCount != 1 {
		t.Fatalf("unexpected summary %+v", view.Summary)
	}
	if _, err := flow.PlaceOrder(ctx); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	view = flow.View()
	if view.Receipt == nil || view.Receipt.OrderID != "0b7c3c1e-4d3a-4f43-9a55-1b2f1e7f0c11" {
		t.Fatalf("expected receipt in view, got %+v", view.Receipt)
	}
}
