package postgres

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/kart-shop/internal/domain/coupon"
)

const (
	getCouponPercentSQL = `SELECT percent FROM coupons WHERE code = $1`
	upsertCouponSQL     = `INSERT INTO coupons (code, percent) VALUES ($1, $2)
		ON CONFLICT (code) DO UPDATE SET percent = EXCLUDED.percent`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
// Codes are stored upper-cased, so lookups are case-insensitive.
type CouponRepository struct {
	db DB
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(db DB) *CouponRepository {
	return &CouponRepository{db: db}
}

// Percent returns the discount percent for code, or coupon.ErrNotFound.
func (r *CouponRepository) Percent(ctx context.Context, code string) (int, error) {
	var percent int
	err := r.db.QueryRow(ctx, getCouponPercentSQL, storedCode(code)).Scan(&percent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, coupon.ErrNotFound
		}
		return 0, errors.Wrapf(err, "get coupon %q", code)
	}
	return percent, nil
}

// Upsert inserts or updates all coupons in a single transaction.
func (r *CouponRepository) Upsert(ctx context.Context, coupons []coupon.Coupon) (rerr error) {
	if len(coupons) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() {
		if rerr != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	for _, c := range coupons {
		if err := c.Validate(); err != nil {
			return errors.Wrapf(err, "coupon %q", c.Code)
		}
		if _, err := tx.Exec(ctx, upsertCouponSQL, storedCode(c.Code), c.Percent); err != nil {
			return errors.Wrapf(err, "upsert coupon %q", c.Code)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit")
	}
	return nil
}

func storedCode(code string) string {
	return strings.ToUpper(coupon.NormalizeCode(code))
}
