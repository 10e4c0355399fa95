// Command seed-db applies migrations and loads the default catalog and coupons.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-shop/db"
	"github.com/xenking/kart-shop/internal/domain/coupon"
	"github.com/xenking/kart-shop/internal/domain/product"
	"github.com/xenking/kart-shop/internal/storage/postgres"
)

type productJSON struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type couponJSON struct {
	Code    string `json:"code"`
	Percent int    `json:"percent"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		couponsFile  string
		reset        bool
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "", "path to products JSON file (default: embedded catalog)")
	flag.StringVar(&couponsFile, "coupons-file", "", "path to coupons JSON file (default: embedded coupons)")
	flag.BoolVar(&reset, "reset", false, "truncate all tables before seeding")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, couponsFile, reset); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, couponsFile string, reset bool) error {
	productsData, err := readSeed(productsFile, "seed/products.json")
	if err != nil {
		return errors.Wrap(err, "read products")
	}
	couponsData, err := readSeed(couponsFile, "seed/coupons.json")
	if err != nil {
		return errors.Wrap(err, "read coupons")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	version, err := postgres.RunMigrations(pool)
	if err != nil {
		return errors.Wrap(err, "run migrations")
	}
	slog.Info("schema ready", slog.Uint64("version", uint64(version)))

	if reset {
		slog.Warn("truncating all tables")
		if err := postgres.Truncate(ctx, pool); err != nil {
			return errors.Wrap(err, "reset")
		}
	}

	return seed(ctx,
		postgres.NewProductRepository(pool),
		postgres.NewCouponRepository(pool),
		productsData,
		couponsData,
	)
}

// readSeed returns the contents of path, or of the embedded file when path is empty.
func readSeed(path, embedded string) ([]byte, error) {
	if path == "" {
		return fs.ReadFile(db.Seed, embedded)
	}
	return os.ReadFile(path)
}

// seed loads the catalog when it is empty and upserts every coupon.
func seed(ctx context.Context, products product.Repository, coupons coupon.Repository, productsData, couponsData []byte) error {
	if err := seedProducts(ctx, products, productsData); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedCoupons(ctx, coupons, couponsData); err != nil {
		return errors.Wrap(err, "seed coupons")
	}
	return nil
}

func seedProducts(ctx context.Context, repo product.Repository, data []byte) error {
	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	existing, err := repo.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list products")
	}
	if len(existing) > 0 {
		slog.Info("catalog already populated, skipping products", slog.Int("count", len(existing)))
		return nil
	}

	slog.Info("creating products", slog.Int("count", len(products)))

	for _, pj := range products {
		p := product.Product{Name: pj.Name, Price: pj.Price}
		if err := repo.Create(ctx, &p); err != nil {
			return errors.Wrapf(err, "create product %q", pj.Name)
		}

		slog.Info("created product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

func seedCoupons(ctx context.Context, repo coupon.Repository, data []byte) error {
	var raw []couponJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "parse coupons JSON")
	}

	coupons := make([]coupon.Coupon, 0, len(raw))
	for _, c := range raw {
		coupons = append(coupons, coupon.Coupon{Code: c.Code, Percent: c.Percent})
	}

	if err := repo.Upsert(ctx, coupons); err != nil {
		return errors.Wrap(err, "upsert coupons")
	}

	slog.Info("upserted coupons", slog.Int("count", len(coupons)))
	return nil
}
