// Command catalog-import loads supplier catalog dumps into the items table.
// Dumps are gzip-compressed JSONL files, one item per line; dumps from
// different suppliers overlap heavily, so a shared bloom filter skips ids
// that have already been imported. First occurrence wins.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/foodworks-dev/counter-pos/internal/domain/catalog"
	"github.com/foodworks-dev/counter-pos/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	// Kept very low: a false positive silently drops an item from the
	// import.
	bloomFPR      = 1e-6
	progressEvery = 100_000
)

type itemLine struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	PrepTime int             `json:"prepTime"`
	TaxRate  decimal.Decimal `json:"taxRate"`
}

func main() {
	var databaseURL string
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	files := flag.Args()
	if len(files) == 0 {
		slog.Error("no catalog dump files given")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, files); err != nil {
		slog.Error("catalog import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog import completed successfully")
}

func run(ctx context.Context, databaseURL string, files []string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	imp := &importer{
		items: postgres.NewItemRepository(pool),
		seen:  bloom.NewWithEstimates(bloomCapacity, bloomFPR),
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, f := range files {
		g.Go(imp.importFile(ctx, f))
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("import summary",
		slog.Uint64("imported", imp.imported),
		slog.Uint64("duplicates", imp.duplicates),
		slog.Uint64("invalid", imp.invalid),
	)
	return nil
}

type importer struct {
	items catalog.ItemRepository

	mu         sync.Mutex
	seen       *bloom.BloomFilter
	imported   uint64
	duplicates uint64
	invalid    uint64
}

// claim marks id as imported and reports whether this caller won the claim.
func (imp *importer) claim(id string) bool {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	if imp.seen.TestString(id) {
		imp.duplicates++
		return false
	}
	imp.seen.AddString(id)
	return true
}

func (imp *importer) importFile(ctx context.Context, path string) func() error {
	return func() error {
		var count uint64

		err := streamGzLines(ctx, path, func(line []byte) error {
			count++
			if count%progressEvery == 0 {
				slog.Info("import progress", slog.String("file", path), slog.Uint64("lines", count))
			}

			var it itemLine
			if err := json.Unmarshal(line, &it); err != nil || it.ID == "" {
				imp.mu.Lock()
				imp.invalid++
				imp.mu.Unlock()
				return nil
			}
			if !imp.claim(it.ID) {
				return nil
			}

			if err := imp.items.Upsert(ctx, catalog.Item{
				ID:       it.ID,
				Name:     it.Name,
				Price:    it.Price,
				PrepTime: it.PrepTime,
				TaxRate:  it.TaxRate,
			}); err != nil {
				return errors.Wrapf(err, "upsert item %s", it.ID)
			}

			imp.mu.Lock()
			imp.imported++
			imp.mu.Unlock()
			return nil
		})
		if err != nil {
			return errors.Wrapf(err, "import %s", path)
		}

		slog.Info("file complete", slog.String("file", path), slog.Uint64("lines", count))
		return nil
	}
}

// streamGzLines opens a gzip-compressed file and calls fn for each line.
func streamGzLines(ctx context.Context, path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(scanner.Bytes()); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}
