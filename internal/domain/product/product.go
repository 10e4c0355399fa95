package product

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrInvalid is returned when a product fails validation on creation.
	ErrInvalid = errors.New("invalid name or price")
)

// Product represents a catalog item available for purchase.
type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

// Validate checks that the product has a name and a non-negative price.
func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrInvalid
	}
	if p.Price.IsNegative() {
		return ErrInvalid
	}
	return nil
}

// Catalog resolves a product identifier to its current catalog entry.
// Implementations return ErrNotFound when no product matches.
type Catalog interface {
	GetByID(ctx context.Context, id string) (*Product, error)
}

// Repository defines read and write operations for the product catalog.
type Repository interface {
	Catalog
	List(ctx context.Context) ([]Product, error)
	// Create assigns an identifier to p and persists it.
	Create(ctx context.Context, p *Product) error
}
