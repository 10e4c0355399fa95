package coupon

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when no coupon matches a code.
	ErrNotFound = errors.New("coupon not found")
	// ErrInvalidPercent is returned for a percent outside (0, 100].
	ErrInvalidPercent = errors.New("coupon percent must be in (0, 100]")
)

// Coupon maps a code to a percentage discount.
type Coupon struct {
	Code    string
	Percent int
}

// Validate checks the code is non-blank and the percent is within range.
func (c Coupon) Validate() error {
	if NormalizeCode(c.Code) == "" {
		return errors.New("coupon code is required")
	}
	if !ValidPercent(c.Percent) {
		return ErrInvalidPercent
	}
	return nil
}

// NormalizeCode trims surrounding whitespace from a user-supplied code.
func NormalizeCode(code string) string {
	return strings.TrimSpace(code)
}

// Registry resolves a coupon code to its discount percent.
// Implementations return ErrNotFound when the code is unknown.
type Registry interface {
	Percent(ctx context.Context, code string) (int, error)
}

// Repository provides lookup and bulk loading of coupons.
type Repository interface {
	Registry
	Upsert(ctx context.Context, coupons []Coupon) error
}
