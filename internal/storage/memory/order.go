package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-shop/internal/domain/order"
	"github.com/xenking/kart-shop/internal/domain/product"
)

// Orders is an in-memory order repository. RunInTx holds an exclusive lock
// for the whole callback and publishes staged writes only on success.
type Orders struct {
	mu      sync.Mutex
	catalog product.Catalog
	orders  map[string]*order.Order
}

// NewOrders returns an Orders repository reading prices from catalog.
func NewOrders(catalog product.Catalog) *Orders {
	return &Orders{
		catalog: catalog,
		orders:  make(map[string]*order.Order),
	}
}

// RunInTx runs fn with a staging transaction.
func (r *Orders) RunInTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &stagingTx{catalog: r.catalog, committed: r.orders, staged: make(map[string]*order.Order)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for id, o := range tx.staged {
		r.orders[id] = o
	}
	return nil
}

// List returns all orders with item totals, newest first.
func (r *Orders) List(_ context.Context) ([]order.Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]order.Summary, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, order.Summary{ID: o.ID, CreatedAt: o.CreatedAt, Total: o.Total()})
	}
	slices.SortFunc(out, func(a, b order.Summary) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return out, nil
}

// Get returns a copy of the order or order.ErrNotFound. Item names are
// refreshed from the catalog; prices always come from the snapshot.
func (r *Orders) Get(ctx context.Context, id string) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := &order.Order{ID: o.ID, CreatedAt: o.CreatedAt, Items: slices.Clone(o.Items)}
	for i := range cp.Items {
		cp.Items[i].Name = ""
		if p, err := r.catalog.GetByID(ctx, cp.Items[i].ProductID); err == nil {
			cp.Items[i].Name = p.Name
		}
	}
	return cp, nil
}

type stagingTx struct {
	catalog   product.Catalog
	committed map[string]*order.Order
	staged    map[string]*order.Order
}

func (t *stagingTx) GetByID(ctx context.Context, id string) (*product.Product, error) {
	return t.catalog.GetByID(ctx, id)
}

func (t *stagingTx) CreateOrder(_ context.Context, o *order.Order) error {
	_, dup := t.committed[o.ID]
	if _, ok := t.staged[o.ID]; ok || dup {
		return errors.Errorf("order %q already exists", o.ID)
	}
	t.staged[o.ID] = &order.Order{ID: o.ID, CreatedAt: o.CreatedAt}
	return nil
}

func (t *stagingTx) AddItem(_ context.Context, orderID string, it order.Item) error {
	o, ok := t.staged[orderID]
	if !ok {
		return errors.Errorf("order %q not created in this transaction", orderID)
	}
	if it.Quantity < 1 {
		return errors.Errorf("item %q: quantity must be positive", it.ProductID)
	}
	o.Items = append(o.Items, it)
	return nil
}
