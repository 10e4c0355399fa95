package cart

import (
	"context"
	"maps"
	"slices"
)

// State is a client's working cart: product id to requested quantity, plus
// an optional discount percent set by a coupon. A zero DiscountPercent means
// no coupon is applied. Items never holds a quantity below 1.
type State struct {
	Items           map[string]int `json:"items"`
	DiscountPercent int            `json:"discount_percent,omitempty"`
}

// New returns an empty cart.
func New() State {
	return State{Items: make(map[string]int)}
}

// Clone returns a deep copy of s. A nil Items map becomes an empty one.
func (s State) Clone() State {
	out := State{
		Items:           make(map[string]int, len(s.Items)),
		DiscountPercent: s.DiscountPercent,
	}
	maps.Copy(out.Items, s.Items)
	return out
}

// IsEmpty reports whether the cart holds no items. A discount alone does not
// count as cart content.
func (s State) IsEmpty() bool {
	return len(s.Items) == 0
}

// HasDiscount reports whether a coupon discount is applied.
func (s State) HasDiscount() bool {
	return s.DiscountPercent > 0
}

// Quantity returns the quantity for productID and whether it is in the cart.
func (s State) Quantity(productID string) (int, bool) {
	q, ok := s.Items[productID]
	return q, ok
}

// ProductIDs returns the ids of all items in ascending order.
func (s State) ProductIDs() []string {
	return slices.Sorted(maps.Keys(s.Items))
}

// Store persists a cart between client requests, keyed by an opaque session id.
type Store interface {
	// Load returns the cart for sessionID, or an empty cart if none is stored.
	Load(ctx context.Context, sessionID string) (State, error)
	// Save replaces the stored cart for sessionID.
	Save(ctx context.Context, sessionID string, s State) error
}
