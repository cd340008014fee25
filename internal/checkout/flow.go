package checkout

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shambadirect/storefront/internal/availability"
	"github.com/shambadirect/storefront/internal/cart"
	"github.com/shambadirect/storefront/internal/delivery"
	"github.com/shambadirect/storefront/internal/inventory"
	"github.com/shambadirect/storefront/internal/orders"
	pkgerrors "github.com/shambadirect/storefront/pkg/errors"
	"github.com/shambadirect/storefront/pkg/logger"
	"github.com/shopspring/decimal"
)

const defaultLookupTimeout = 10 * time.Second

// ErrStaleLookup marks a fee lookup that completed after the address changed
// or a newer lookup started.
var ErrStaleLookup = errors.New("fee lookup superseded")

type cartStore interface {
	Lines() []cart.Line
	Clear(ctx context.Context)
}

type productLister interface {
	Products() []inventory.Product
}

type orderSink interface {
	SubmitOrder(ctx context.Context, payload orders.Payload) error
}

// Flow is the two-step checkout state machine over the single cart.
type Flow struct {
	cart          cartStore
	inventory     productLister
	estimator     delivery.Estimator
	sink          orderSink
	logg          *logger.Logger
	validate      *validator.Validate
	lookupTimeout time.Duration
	now           func() time.Time
	newID         func() uuid.UUID

	mu      sync.Mutex
	state   State
	draft   Draft
	feeSeq  uint64
	receipt *Receipt
	// orderID is fixed on the first submission attempt and reused by retries
	// until Open starts a new checkout.
	orderID uuid.UUID
}

// NewFlow wires the checkout collaborators. A zero lookupTimeout uses 10s.
func NewFlow(cartStore cartStore, inventory productLister, estimator delivery.Estimator, sink orderSink, logg *logger.Logger, lookupTimeout time.Duration) (*Flow, error) {
	if cartStore == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if inventory == nil {
		return nil, fmt.Errorf("inventory snapshot required")
	}
	if estimator == nil {
		return nil, fmt.Errorf("delivery estimator required")
	}
	if sink == nil {
		return nil, fmt.Errorf("order sink required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if lookupTimeout <= 0 {
		lookupTimeout = defaultLookupTimeout
	}
	return &Flow{
		cart:          cartStore,
		inventory:     inventory,
		estimator:     estimator,
		sink:          sink,
		logg:          logg,
		validate:      newValidator(),
		lookupTimeout: lookupTimeout,
		now:           time.Now,
		newID:         uuid.New,
		state:         StateClosed,
		draft:         newDraft(),
	}, nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// Open starts a fresh checkout. Any previous draft is discarded.
func (f *Flow) Open(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateSubmitting {
		return submissionInFlight()
	}
	f.transitionLocked(ctx, StateCollectingDetails)
	f.draft = newDraft()
	f.receipt = nil
	f.orderID = uuid.Nil
	f.feeSeq++
	return nil
}

// Close dismisses the checkout.
func (f *Flow) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateSubmitting {
		return submissionInFlight()
	}
	f.transitionLocked(ctx, StateClosed)
	f.feeSeq++
	return nil
}

// UpdateDetails applies a partial draft update. Contact fields are editable
// while collecting details; notes and payment method also on review.
func (f *Flow) UpdateDetails(ctx context.Context, in DetailsInput) (Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case StateCollectingDetails:
	case StateReviewAndPay:
		if in.FullName != nil || in.Phone != nil || in.Address != nil {
			return f.draft, f.stateConflictLocked("contact details can only change while collecting details")
		}
	default:
		return f.draft, f.stateConflictLocked("checkout is not accepting details")
	}

	if in.PaymentMethod != nil {
		method := orders.PaymentMethod(strings.TrimSpace(*in.PaymentMethod))
		if !method.Valid() {
			return f.draft, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method").
				WithDetails(map[string]any{"payment_method": *in.PaymentMethod})
		}
		f.draft.PaymentMethod = method
	}
	if in.FullName != nil {
		f.draft.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.Phone != nil {
		f.draft.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Notes != nil {
		f.draft.Notes = strings.TrimSpace(*in.Notes)
	}
	if in.Address != nil {
		f.setAddressLocked(strings.TrimSpace(*in.Address))
	}
	return f.draft, nil
}

// CheckAddressFee prices delivery to address. The estimator runs without the
// lock held; its result is applied only if no newer lookup or address edit
// happened meanwhile.
func (f *Flow) CheckAddressFee(ctx context.Context, address string) (delivery.Quote, error) {
	address = strings.TrimSpace(address)

	f.mu.Lock()
	if f.state != StateCollectingDetails {
		err := f.stateConflictLocked("delivery fee can only be checked while collecting details")
		f.mu.Unlock()
		return delivery.Quote{}, err
	}
	if address == "" {
		f.mu.Unlock()
		return delivery.Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required").
			WithDetails(map[string]any{"address": "is required"})
	}
	f.setAddressLocked(address)
	f.feeSeq++
	seq := f.feeSeq
	f.mu.Unlock()

	lookupCtx, cancel := context.WithTimeout(ctx, f.lookupTimeout)
	quote, err := f.estimator.EstimateDelivery(lookupCtx, address)
	cancel()

	f.mu.Lock()
	defer f.mu.Unlock()

	if seq != f.feeSeq || f.state != StateCollectingDetails {
		f.logg.Debug(ctx, "discarding superseded delivery fee lookup")
		return delivery.Quote{}, pkgerrors.Wrap(pkgerrors.CodeConflict, ErrStaleLookup, "delivery fee lookup superseded")
	}
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeValidation {
			return delivery.Quote{}, err
		}
		f.logg.Warn(ctx, fmt.Sprintf("delivery fee lookup failed: %v", err))
		return delivery.Quote{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delivery fee lookup failed")
	}

	fee := quote.Fee
	distance := quote.DistanceKm
	f.draft.DeliveryFee = &fee
	f.draft.DistanceKm = &distance
	return quote, nil
}

// Advance moves to review once name, phone and delivery fee are present.
func (f *Flow) Advance(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateCollectingDetails {
		return f.stateConflictLocked("checkout can only advance from collecting details")
	}
	if err := f.validate.Struct(f.draft); err != nil {
		return guardError(err)
	}
	f.transitionLocked(ctx, StateReviewAndPay)
	return nil
}

// Back returns to the previous step, keeping the draft.
func (f *Flow) Back(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case StateReviewAndPay:
		f.transitionLocked(ctx, StateCollectingDetails)
	case StateFailed:
		f.transitionLocked(ctx, StateReviewAndPay)
	default:
		return f.stateConflictLocked("no previous checkout step")
	}
	return nil
}

// Summary computes totals from the current cart and snapshot.
func (f *Flow) Summary() Summary {
	f.mu.Lock()
	fee := f.draft.DeliveryFee
	f.mu.Unlock()
	return f.summarize(f.reconcile(), fee)
}

func (f *Flow) summarize(report availability.Report, fee *decimal.Decimal) Summary {
	s := Summary{
		ItemCount:         report.AvailableCount,
		AvailableSubtotal: report.AvailableSubtotal,
		DeliveryFee:       decimal.Zero,
	}
	if fee != nil {
		s.DeliveryFee = *fee
	}
	s.FinalTotal = s.AvailableSubtotal.Add(s.DeliveryFee)
	return s
}

func (f *Flow) reconcile() availability.Report {
	return availability.Reconcile(f.cart.Lines(), f.inventory.Products())
}

// PlaceOrder submits the available subset of the cart. Only one submission
// may be in flight; concurrent calls get a conflict without reaching the sink.
func (f *Flow) PlaceOrder(ctx context.Context) (Receipt, error) {
	f.mu.Lock()
	switch f.state {
	case StateReviewAndPay:
	case StateSubmitting:
		f.mu.Unlock()
		return Receipt{}, submissionInFlight()
	default:
		err := f.stateConflictLocked("orders can only be placed from review")
		f.mu.Unlock()
		return Receipt{}, err
	}

	report := f.reconcile()
	payload, err := f.buildPayloadLocked(report)
	if err != nil {
		f.mu.Unlock()
		return Receipt{}, err
	}
	f.transitionLocked(ctx, StateSubmitting)
	f.mu.Unlock()

	ctx = f.logg.WithOrderID(ctx, payload.OrderID.String())
	submitErr := f.sink.SubmitOrder(ctx, payload)

	f.mu.Lock()
	defer f.mu.Unlock()

	if submitErr != nil {
		f.transitionLocked(ctx, StateFailed)
		f.logg.Error(ctx, "order submission failed", submitErr)
		return Receipt{}, pkgerrors.Wrap(pkgerrors.CodeDependency, submitErr, "order submission failed")
	}

	f.cart.Clear(ctx)
	f.transitionLocked(ctx, StateCompleted)
	receipt := Receipt{
		OrderID:    payload.OrderID.String(),
		Total:      payload.Total,
		RedirectTo: RedirectAfterOrder,
		Message:    orders.ComposeMessage(payload),
	}
	f.receipt = &receipt
	return receipt, nil
}

func (f *Flow) buildPayloadLocked(report availability.Report) (orders.Payload, error) {
	lines := report.AvailableLines()
	if len(lines) == 0 {
		return orders.Payload{}, pkgerrors.New(pkgerrors.CodeValidation, "no available items to order")
	}
	if f.draft.DeliveryFee == nil {
		return orders.Payload{}, pkgerrors.New(pkgerrors.CodeValidation, "delivery fee has not been calculated").
			WithDetails(map[string]any{"delivery_fee": "must be calculated"})
	}

	items := make([]orders.Item, 0, len(lines))
	for _, line := range lines {
		items = append(items, orders.Item{
			ProductID: line.Product.ID,
			Name:      line.Product.Name,
			Unit:      line.Product.Unit,
			UnitPrice: line.Product.Price,
			Quantity:  line.Quantity,
			LineTotal: line.Product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))),
		})
	}

	if f.orderID == uuid.Nil {
		f.orderID = f.newID()
	}
	summary := f.summarize(report, f.draft.DeliveryFee)
	distance := decimal.Zero
	if f.draft.DistanceKm != nil {
		distance = *f.draft.DistanceKm
	}
	return orders.Payload{
		OrderID: f.orderID,
		Customer: orders.Customer{
			FullName: f.draft.FullName,
			Phone:    f.draft.Phone,
			Address:  f.draft.Address,
		},
		PaymentMethod: f.draft.PaymentMethod,
		Notes:         f.draft.Notes,
		Items:         items,
		Subtotal:      summary.AvailableSubtotal,
		DeliveryFee:   summary.DeliveryFee,
		DistanceKm:    distance,
		Total:         summary.FinalTotal,
		PlacedAt:      f.now().UTC(),
	}, nil
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Draft returns a copy of the current draft.
func (f *Flow) Draft() Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// View returns state, draft, summary and the last receipt together.
func (f *Flow) View() View {
	f.mu.Lock()
	state, draft := f.state, f.draft
	var receipt *Receipt
	if f.receipt != nil {
		r := *f.receipt
		receipt = &r
	}
	f.mu.Unlock()
	return View{
		State:   state,
		Draft:   draft,
		Summary: f.summarize(f.reconcile(), draft.DeliveryFee),
		Receipt: receipt,
	}
}

func (f *Flow) setAddressLocked(address string) {
	if address == f.draft.Address {
		return
	}
	f.draft.Address = address
	f.draft.resetFee()
	f.feeSeq++
}

func (f *Flow) transitionLocked(ctx context.Context, to State) {
	from := f.state
	f.state = to
	if from != to {
		ctx = f.logg.WithCheckoutState(ctx, string(to))
		f.logg.Debug(f.logg.WithField(ctx, "previous_state", string(from)), "checkout state changed")
	}
}

func (f *Flow) stateConflictLocked(msg string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, msg).
		WithDetails(map[string]any{"state": string(f.state)})
}

func submissionInFlight() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "order submission already in progress")
}

func guardError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "checkout details incomplete")
	}
	details := map[string]string{}
	for _, fe := range verrs {
		switch fe.Field() {
		case "delivery_fee":
			details[fe.Field()] = "must be calculated"
		default:
			details[fe.Field()] = "is required"
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "checkout details incomplete").WithDetails(details)
}
