package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/shambadirect/storefront/pkg/db"
	"github.com/shambadirect/storefront/pkg/db/models"
	"github.com/shambadirect/storefront/pkg/enums"
	pkgerrors "github.com/shambadirect/storefront/pkg/errors"
	"github.com/shambadirect/storefront/pkg/logger"
	"github.com/shambadirect/storefront/pkg/pubsub"
	"gorm.io/gorm"
)

const EventOrderPlaced = "order.placed"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventPublisher interface {
	Publish(ctx context.Context, event pubsub.Event) (string, error)
}

type orderMetrics interface {
	IncSubmission(outcome string)
	IncPublish(outcome string)
}

type noopMetrics struct{}

func (noopMetrics) IncSubmission(string) {}
func (noopMetrics) IncPublish(string)    {}

// Service records placed orders.
type Service interface {
	SubmitOrder(ctx context.Context, payload Payload) error
}

type service struct {
	repo      Repository
	tx        txRunner
	publisher eventPublisher
	logg      *logger.Logger
	metrics   orderMetrics
	timeout   time.Duration
}

// NewService builds the order sink. publisher may be nil when event
// publishing is disabled.
func NewService(repo Repository, tx txRunner, publisher eventPublisher, logg *logger.Logger, metrics orderMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &service{
		repo:      repo,
		tx:        tx,
		publisher: publisher,
		logg:      logg,
		metrics:   metrics,
		timeout:   10 * time.Second,
	}, nil
}

// SubmitOrder persists the order and its items in one transaction, then
// announces it. A retry of an already recorded order id succeeds.
func (s *service) SubmitOrder(ctx context.Context, payload Payload) error {
	if err := validatePayload(payload); err != nil {
		s.metrics.IncSubmission("invalid")
		return err
	}
	ctx = s.logg.WithOrderID(ctx, payload.OrderID.String())

	order := toModel(payload)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).CreateOrder(ctx, order)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			s.metrics.IncSubmission("duplicate")
			s.logg.Warn(ctx, "order already recorded")
			return nil
		}
		s.metrics.IncSubmission("failure")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "submit order")
	}
	s.metrics.IncSubmission("success")
	s.logg.Info(s.logg.WithField(ctx, "total", payload.Total.String()), "order placed")

	s.publishPlaced(ctx, payload)
	return nil
}

func (s *service) publishPlaced(ctx context.Context, payload Payload) {
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	msgID, err := s.publisher.Publish(pubCtx, pubsub.Event{
		Type:        EventOrderPlaced,
		AggregateID: payload.OrderID.String(),
		OccurredAt:  payload.PlacedAt,
		Payload:     payload,
	})
	if err != nil {
		s.metrics.IncPublish("failure")
		s.logg.Error(ctx, "publishing order event failed", err)
		return
	}
	s.metrics.IncPublish("success")
	s.logg.Debug(s.logg.WithField(ctx, "message_id", msgID), "order event published")
}

func validatePayload(p Payload) error {
	details := map[string]any{}
	if len(p.Items) == 0 {
		details["items"] = "at least one available item is required"
	}
	if p.Customer.FullName == "" {
		details["full_name"] = "required"
	}
	if p.Customer.Phone == "" {
		details["phone"] = "required"
	}
	if !p.PaymentMethod.Valid() {
		details["payment_method"] = "unsupported"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order payload").WithDetails(details)
	}
	return nil
}

func toModel(p Payload) *models.Order {
	distance, _ := p.DistanceKm.Float64()
	order := &models.Order{
		ID:              p.OrderID.String(),
		CustomerName:    p.Customer.FullName,
		CustomerPhone:   p.Customer.Phone,
		DeliveryAddress: p.Customer.Address,
		PaymentMethod:   string(p.PaymentMethod),
		Notes:           p.Notes,
		Subtotal:        p.Subtotal,
		DeliveryFee:     p.DeliveryFee,
		DistanceKm:      distance,
		Total:           p.Total,
		Status:          enums.OrderStatusPlaced,
		PlacedAt:        p.PlacedAt,
		LineItems:       make([]models.OrderLineItem, 0, len(p.Items)),
	}
	for _, item := range p.Items {
		order.LineItems = append(order.LineItems, models.OrderLineItem{
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			Unit:      item.Unit,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal,
		})
	}
	return order
}
