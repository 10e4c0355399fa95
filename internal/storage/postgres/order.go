package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/kart-shop/internal/domain/order"
	"github.com/xenking/kart-shop/internal/domain/product"
)

const (
	insertOrderSQL     = `INSERT INTO orders (id, created_at) VALUES ($1, $2)`
	insertOrderItemSQL = `INSERT INTO order_items (order_id, product_id, qty, price) VALUES ($1, $2, $3, $4)`

	listOrdersSQL = `SELECT o.id, o.created_at, COALESCE(SUM(oi.qty * oi.price), 0)
		FROM orders o
		LEFT JOIN order_items oi ON oi.order_id = o.id
		GROUP BY o.id, o.created_at
		ORDER BY o.created_at DESC, o.id DESC`

	getOrderSQL = `SELECT id, created_at FROM orders WHERE id = $1`

	listOrderItemsSQL = `SELECT oi.product_id, COALESCE(p.name, ''), oi.qty, oi.price
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	db DB
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(db DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// RunInTx runs fn in a READ COMMITTED transaction. Product rows read through
// the transaction are share-locked until commit, so a concurrent price update
// cannot interleave with the snapshot.
func (r *OrderRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return errors.Wrap(err, "begin")
	}

	if err := fn(ctx, &orderTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return errors.Wrapf(err, "rollback failed (%s)", rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit")
	}
	return nil
}

// List returns every order with the sum of its snapshotted line totals.
func (r *OrderRepository) List(ctx context.Context) ([]order.Summary, error) {
	rows, err := r.db.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	summaries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Summary, error) {
		var s order.Summary
		err := row.Scan(&s.ID, &s.CreatedAt, &s.Total)
		return s, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan orders")
	}
	return summaries, nil
}

// Get returns an order with its items, or order.ErrNotFound.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	var o order.Order
	if err := r.db.QueryRow(ctx, getOrderSQL, id).Scan(&o.ID, &o.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}

	rows, err := r.db.Query(ctx, listOrderItemsSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "list items of order %q", id)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Item, error) {
		var it order.Item
		err := row.Scan(&it.ProductID, &it.Name, &it.Quantity, &it.Price)
		return it, err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scan items of order %q", id)
	}
	o.Items = items
	return &o, nil
}

type orderTx struct {
	tx pgx.Tx
}

var _ order.Tx = (*orderTx)(nil)

func (t *orderTx) GetByID(ctx context.Context, id string) (*product.Product, error) {
	return getProduct(ctx, t.tx, lockProductSQL, id)
}

func (t *orderTx) CreateOrder(ctx context.Context, o *order.Order) error {
	if _, err := t.tx.Exec(ctx, insertOrderSQL, o.ID, o.CreatedAt); err != nil {
		return errors.Wrapf(err, "insert order %q", o.ID)
	}
	return nil
}

func (t *orderTx) AddItem(ctx context.Context, orderID string, it order.Item) error {
	if _, err := t.tx.Exec(ctx, insertOrderItemSQL, orderID, it.ProductID, it.Quantity, it.Price); err != nil {
		return errors.Wrapf(err, "insert item %q", it.ProductID)
	}
	return nil
}
