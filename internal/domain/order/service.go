package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/kart-shop/internal/domain/cart"
	"github.com/xenking/kart-shop/internal/domain/coupon"
	"github.com/xenking/kart-shop/internal/domain/product"
)

// ErrEmptyCart is returned when checking out a cart without items.
var ErrEmptyCart = errors.New("cart empty")

// ProductVanishedError indicates a product in the cart no longer exists in
// the catalog at checkout time.
type ProductVanishedError struct {
	ProductID string
}

func (e *ProductVanishedError) Error() string {
	return fmt.Sprintf("product %s no longer available", e.ProductID)
}

// PersistenceError wraps a storage failure during checkout. The transaction
// has been rolled back when this error is returned.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return "persist order: " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// CheckoutResult holds the output of a successful checkout.
type CheckoutResult struct {
	OrderID         string
	Subtotal        decimal.Decimal
	DiscountPercent int
	// Total is the discounted subtotal rounded to 2 decimal places.
	Total decimal.Decimal
}

// Option configures a Service.
type Option func(*Service)

// WithTracerProvider sets the tracer provider used for checkout spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		s.tracer = tp.Tracer("github.com/xenking/kart-shop/internal/domain/order")
	}
}

// Service converts carts into orders and reads order history.
type Service struct {
	orders Repository
	tracer trace.Tracer
	now    func() time.Time
	newID  func() string
}

// NewService creates an order Service backed by the given repository.
func NewService(orders Repository, opts ...Option) *Service {
	s := &Service{
		orders: orders,
		tracer: noop.NewTracerProvider().Tracer(""),
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Checkout persists the cart as an order with current catalog prices and
// returns the order id and discounted total along with the next cart state.
// On failure the input state is returned unchanged and nothing is persisted.
func (s *Service) Checkout(ctx context.Context, st cart.State) (_ *CheckoutResult, _ cart.State, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.checkout",
		trace.WithAttributes(
			attribute.Int("cart.items", len(st.Items)),
			attribute.Int("cart.discount_percent", st.DiscountPercent),
		),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	if st.IsEmpty() {
		return nil, st, ErrEmptyCart
	}

	o := &Order{
		ID:        s.newID(),
		CreatedAt: s.now().UTC(),
	}
	subtotal := decimal.Zero

	err := s.orders.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.CreateOrder(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}
		for _, id := range st.ProductIDs() {
			p, err := tx.GetByID(ctx, id)
			if err != nil {
				if errors.Is(err, product.ErrNotFound) {
					return &ProductVanishedError{ProductID: id}
				}
				return errors.Wrapf(err, "lookup product %s", id)
			}
			it := Item{
				ProductID: p.ID,
				Name:      p.Name,
				Quantity:  st.Items[id],
				Price:     p.Price,
			}
			if err := tx.AddItem(ctx, o.ID, it); err != nil {
				return errors.Wrapf(err, "add item %s", id)
			}
			o.Items = append(o.Items, it)
			subtotal = subtotal.Add(it.LineTotal())
		}
		return nil
	})
	if err != nil {
		var vanished *ProductVanishedError
		if errors.As(err, &vanished) {
			return nil, st, vanished
		}
		return nil, st, &PersistenceError{Err: err}
	}

	total := subtotal
	if st.HasDiscount() {
		total = coupon.ApplyPercent(subtotal, st.DiscountPercent)
	}
	span.SetAttributes(attribute.String("order.id", o.ID))

	return &CheckoutResult{
		OrderID:         o.ID,
		Subtotal:        subtotal,
		DiscountPercent: st.DiscountPercent,
		Total:           total.Round(2),
	}, cart.New(), nil
}

// List returns all orders with totals recomputed from their items.
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	summaries, err := s.orders.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return summaries, nil
}

// Get returns a single order with its items. Returns ErrNotFound if absent.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %s", id)
	}
	return o, nil
}
