// Command seed-db loads the catalog seed file (items, customers, promotions)
// into PostgreSQL and provisions a default API key.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/foodworks-dev/counter-pos/internal/domain/auth"
	"github.com/foodworks-dev/counter-pos/internal/domain/catalog"
	"github.com/foodworks-dev/counter-pos/internal/domain/promotion"
	"github.com/foodworks-dev/counter-pos/internal/storage/postgres"
)

type seedFile struct {
	Items      []itemJSON      `json:"items"`
	Customers  []customerJSON  `json:"customers"`
	Promotions []promotionJSON `json:"promotions"`
}

type itemJSON struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	PrepTime int             `json:"prepTime"`
	TaxRate  decimal.Decimal `json:"taxRate"`
}

type customerJSON struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type promotionJSON struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Active          bool            `json:"active"`
	ItemsRequired   []string        `json:"itemsRequired"`
	ItemsDiscounted []string        `json:"itemsDiscounted"`
	Amount          decimal.Decimal `json:"amount"`
	Percentage      decimal.Decimal `json:"percentage"`
}

func main() {
	var (
		databaseURL  string
		catalogFile  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to catalog seed JSON file")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or POS_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or POS_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("POS_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or POS_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("POS_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("reading catalog file", slog.String("path", catalogFile))

	data, err := os.ReadFile(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog file")
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return errors.Wrap(err, "parse catalog JSON")
	}

	if err := seedCatalog(ctx, pool, seed); err != nil {
		return err
	}
	if err := seedAPIKey(ctx, postgres.NewAPIKeyRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}
	return nil
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool, seed seedFile) error {
	items := postgres.NewItemRepository(pool)
	customers := postgres.NewCustomerRepository(pool)
	promotions := postgres.NewPromotionRepository(pool)

	slog.Info("upserting items", slog.Int("count", len(seed.Items)))
	for _, it := range seed.Items {
		if err := items.Upsert(ctx, catalog.Item{
			ID:       it.ID,
			Name:     it.Name,
			Price:    it.Price,
			PrepTime: it.PrepTime,
			TaxRate:  it.TaxRate,
		}); err != nil {
			return errors.Wrapf(err, "upsert item %s", it.ID)
		}
	}

	slog.Info("upserting customers", slog.Int("count", len(seed.Customers)))
	for _, c := range seed.Customers {
		if err := customers.Upsert(ctx, catalog.Customer{
			ID:    c.ID,
			Name:  c.Name,
			Email: c.Email,
		}); err != nil {
			return errors.Wrapf(err, "upsert customer %s", c.ID)
		}
	}

	slog.Info("upserting promotions", slog.Int("count", len(seed.Promotions)))
	for _, p := range seed.Promotions {
		if err := promotions.Upsert(ctx, promotion.Promotion{
			ID:              p.ID,
			Name:            p.Name,
			Description:     p.Description,
			Active:          p.Active,
			ItemsRequired:   p.ItemsRequired,
			ItemsDiscounted: p.ItemsDiscounted,
			Amount:          p.Amount,
			Percentage:      p.Percentage,
		}); err != nil {
			return errors.Wrapf(err, "upsert promotion %s", p.ID)
		}
	}

	return nil
}

func seedAPIKey(ctx context.Context, apikeys auth.Repository, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	if err := apikeys.Upsert(ctx, auth.APIKeyInfo{
		ID:      "default",
		KeyHash: keyHash,
		Name:    "Default counter key",
		Scopes:  []string{"orders"},
	}); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", "default"))
	return nil
}
