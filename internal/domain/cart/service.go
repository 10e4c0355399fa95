package cart

import (
	"context"
	"fmt"
	"math"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-shop/internal/domain/coupon"
	"github.com/xenking/kart-shop/internal/domain/product"
)

// Sentinel errors for cart mutations.
var (
	ErrInvalidQuantity = errors.New("qty must be > 0")
	ErrItemNotInCart   = errors.New("item not in cart")
	ErrEmptyCode       = errors.New("no code provided")
	ErrCouponNotFound  = errors.New("coupon not found")
)

// MaxQuantity is the largest quantity a single cart line may hold. It matches
// the range of the order_items.qty column.
const MaxQuantity = math.MaxInt32

// ProductNotFoundError indicates the product being added is not in the catalog.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

func (e *ProductNotFoundError) Unwrap() error { return product.ErrNotFound }

// ItemNotInCartError indicates an operation referenced a product absent from the cart.
type ItemNotInCartError struct {
	ProductID string
}

func (e *ItemNotInCartError) Error() string {
	return fmt.Sprintf("item %s not in cart", e.ProductID)
}

func (e *ItemNotInCartError) Unwrap() error { return ErrItemNotInCart }

// AddRequest adds Quantity units of a product. A nil Quantity means 1.
type AddRequest struct {
	ProductID string
	Quantity  *int
}

// SetQuantityRequest overwrites the quantity of a product already in the cart.
type SetQuantityRequest struct {
	ProductID string
	Quantity  int
}

// ApplyCouponRequest applies a coupon code to the cart.
type ApplyCouponRequest struct {
	Code string
}

// Service implements cart mutations. Every operation takes the current state
// and returns the next one; on failure the input state is returned untouched.
type Service struct {
	catalog product.Catalog
	coupons coupon.Registry
}

// NewService creates a cart Service backed by the given catalog and coupon registry.
func NewService(catalog product.Catalog, coupons coupon.Registry) *Service {
	return &Service{
		catalog: catalog,
		coupons: coupons,
	}
}

// Add increments the quantity of a catalog product, creating the entry if needed.
func (s *Service) Add(ctx context.Context, st State, req AddRequest) (State, error) {
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	if qty < 1 || qty > MaxQuantity {
		return st, ErrInvalidQuantity
	}
	if cur, _ := st.Quantity(req.ProductID); cur > MaxQuantity-qty {
		return st, ErrInvalidQuantity
	}

	if _, err := s.catalog.GetByID(ctx, req.ProductID); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return st, &ProductNotFoundError{ProductID: req.ProductID}
		}
		return st, errors.Wrapf(err, "lookup product %s", req.ProductID)
	}

	next := st.Clone()
	next.Items[req.ProductID] += qty
	return next, nil
}

// SetQuantity replaces the quantity of an item already in the cart.
func (s *Service) SetQuantity(st State, req SetQuantityRequest) (State, error) {
	if req.Quantity < 1 || req.Quantity > MaxQuantity {
		return st, ErrInvalidQuantity
	}
	if _, ok := st.Quantity(req.ProductID); !ok {
		return st, &ItemNotInCartError{ProductID: req.ProductID}
	}

	next := st.Clone()
	next.Items[req.ProductID] = req.Quantity
	return next, nil
}

// Remove deletes an item from the cart.
func (s *Service) Remove(st State, productID string) (State, error) {
	if _, ok := st.Quantity(productID); !ok {
		return st, &ItemNotInCartError{ProductID: productID}
	}

	next := st.Clone()
	delete(next.Items, productID)
	return next, nil
}

// ApplyCoupon sets the cart discount to the coupon's percent, replacing any
// previous discount. It does not require the cart to hold items.
func (s *Service) ApplyCoupon(ctx context.Context, st State, req ApplyCouponRequest) (State, error) {
	code := coupon.NormalizeCode(req.Code)
	if code == "" {
		return st, ErrEmptyCode
	}

	percent, err := s.coupons.Percent(ctx, code)
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			return st, ErrCouponNotFound
		}
		return st, errors.Wrap(err, "lookup coupon")
	}
	if !coupon.ValidPercent(percent) {
		return st, errors.Errorf("coupon %q has invalid percent %d", code, percent)
	}

	next := st.Clone()
	next.DiscountPercent = percent
	return next, nil
}
