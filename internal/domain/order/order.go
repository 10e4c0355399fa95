package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-shop/internal/domain/product"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Order represents a completed checkout. Orders are immutable once created.
type Order struct {
	ID        string
	CreatedAt time.Time
	Items     []Item
}

// Total sums the snapshotted line totals of the order.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// Item is a single order line. Price is the catalog price at checkout time.
type Item struct {
	ProductID string
	// Name is joined from the catalog for display only.
	Name     string
	Quantity int
	Price    decimal.Decimal
}

// LineTotal returns Price * Quantity.
func (it Item) LineTotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Summary is an order history row with the sum of its items.
type Summary struct {
	ID        string
	CreatedAt time.Time
	Total     decimal.Decimal
}

// Tx is the set of operations available inside a checkout transaction.
// Catalog lookups made through Tx observe committed prices.
type Tx interface {
	product.Catalog
	CreateOrder(ctx context.Context, o *Order) error
	AddItem(ctx context.Context, orderID string, it Item) error
}

// Repository defines persistence operations for orders.
type Repository interface {
	// RunInTx runs fn in a single transaction. The transaction is committed
	// when fn returns nil and rolled back otherwise.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// List returns all orders with their item totals, newest first.
	List(ctx context.Context) ([]Summary, error)
	// Get returns the order with its items. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (*Order, error)
}
