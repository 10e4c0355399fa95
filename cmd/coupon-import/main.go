// Command coupon-import bulk loads percent coupons from gzip files of
// CODE,PERCENT lines.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/kart-shop/internal/domain/coupon"
	"github.com/xenking/kart-shop/internal/storage/postgres"
)

const (
	bloomFPR      = 0.001
	progressEvery = 1_000_000
)

// fileResult holds the coupons parsed from one file in line order.
type fileResult struct {
	coupons []coupon.Coupon
	skipped int
}

func main() {
	var (
		dataDir     string
		databaseURL string
		batchSize   int
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.gz coupon files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&batchSize, "batch-size", 1000, "coupons per upsert transaction")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if batchSize < 1 {
		slog.Error("batch size must be positive", slog.Int("batch_size", batchSize))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL, batchSize); err != nil {
		slog.Error("coupon import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon import completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string, batchSize int) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.gz"))
	if err != nil {
		return errors.Wrap(err, "list input files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.gz files in %s", dataDir)
	}
	slices.Sort(files)

	slog.Info("scanning files", slog.Int("files", len(files)))

	results, err := scanFiles(ctx, files)
	if err != nil {
		return errors.Wrap(err, "scan files")
	}

	coupons := dedupe(results)
	if len(coupons) == 0 {
		slog.Info("no valid coupons to import")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if _, err := postgres.RunMigrations(pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	return writeCoupons(ctx, postgres.NewCouponRepository(pool), coupons, batchSize)
}

// scanFiles parses every file concurrently. Results keep the order of files.
func scanFiles(ctx context.Context, files []string) ([]fileResult, error) {
	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			res, err := parseFile(ctx, f)
			if err != nil {
				return errors.Wrapf(err, "parse %s", filepath.Base(f))
			}
			slog.Info("scan complete",
				slog.String("file", filepath.Base(f)),
				slog.Int("coupons", len(res.coupons)),
				slog.Int("skipped", res.skipped),
			)
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// parseFile reads CODE,PERCENT lines from a gzip file. Blank lines are
// ignored and malformed lines are counted as skipped.
func parseFile(ctx context.Context, path string) (fileResult, error) {
	var res fileResult

	f, err := os.Open(path)
	if err != nil {
		return res, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return res, errors.Wrap(err, "create gzip reader")
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	var lines int
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		lines++
		if lines%progressEvery == 0 {
			slog.Info("scan progress", slog.String("file", filepath.Base(path)), slog.Int("lines", lines))
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		c, ok := parseLine(line)
		if !ok {
			res.skipped++
			continue
		}
		res.coupons = append(res.coupons, c)
	}
	if err := scanner.Err(); err != nil {
		return res, errors.Wrap(err, "scan")
	}

	return res, nil
}

func parseLine(line string) (coupon.Coupon, bool) {
	code, rawPercent, ok := strings.Cut(line, ",")
	if !ok {
		return coupon.Coupon{}, false
	}
	percent, err := strconv.Atoi(strings.TrimSpace(rawPercent))
	if err != nil {
		return coupon.Coupon{}, false
	}
	c := coupon.Coupon{Code: coupon.NormalizeCode(code), Percent: percent}
	if c.Validate() != nil {
		return coupon.Coupon{}, false
	}
	return c, true
}

// dedupe merges file results in order. The first occurrence of a code, compared
// case-insensitively, wins. A bloom filter answers the common "never seen"
// case without touching the map.
func dedupe(results []fileResult) []coupon.Coupon {
	var total int
	for _, r := range results {
		total += len(r.coupons)
	}
	if total == 0 {
		return nil
	}

	filter := bloom.NewWithEstimates(uint(total), bloomFPR)
	seen := make(map[string]struct{}, total)
	out := make([]coupon.Coupon, 0, total)

	for _, r := range results {
		for _, c := range r.coupons {
			key := strings.ToUpper(c.Code)
			if filter.TestString(key) {
				if _, dup := seen[key]; dup {
					continue
				}
			}
			filter.AddString(key)
			seen[key] = struct{}{}
			out = append(out, c)
		}
	}

	slog.Info("deduplicated coupons", slog.Int("read", total), slog.Int("unique", len(out)))
	return out
}

// writeCoupons upserts coupons in batches of batchSize.
func writeCoupons(ctx context.Context, repo coupon.Repository, coupons []coupon.Coupon, batchSize int) error {
	slog.Info("writing coupons to database", slog.Int("count", len(coupons)))

	var written int
	for batch := range slices.Chunk(coupons, batchSize) {
		if err := repo.Upsert(ctx, batch); err != nil {
			return errors.Wrapf(err, "upsert batch at %d", written)
		}
		written += len(batch)
		slog.Info("write progress", slog.Int("written", written), slog.Int("total", len(coupons)))
	}

	return nil
}
