package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/propnest/propnest-client/internal/backend"
	"github.com/propnest/propnest-client/internal/listing"
	"github.com/propnest/propnest-client/internal/properties"
	"github.com/propnest/propnest-client/internal/reviews"
	"github.com/propnest/propnest-client/pkg/config"
	"github.com/propnest/propnest-client/pkg/enums"
	pkgerrors "github.com/propnest/propnest-client/pkg/errors"
	"github.com/propnest/propnest-client/pkg/logger"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "browse"})

	search := flag.String("search", "", "free-text search")
	city := flag.String("city", "", "city filter")
	propertyType := flag.String("type", "", "property type filter")
	minPrice := flag.String("min-price", "", "minimum nightly price")
	maxPrice := flag.String("max-price", "", "maximum nightly price")
	bedrooms := flag.Int("bedrooms", -1, "exact bedroom count (-1 for any)")
	sort := flag.String("sort", "", "newest|price_asc|price_desc|rating")
	page := flag.Int("page", 1, "page number")
	perPage := flag.Int("per-page", 0, "page size (default 12)")
	reviewsFor := flag.Int64("reviews", 0, "list reviews for this property id instead")
	showFilters := flag.Bool("filters", false, "print the available filter options instead")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logg.Debug(context.Background(), ".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "browse",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client, err := backend.NewFromConfig(cfg.API, cfg.Retry,
		backend.WithTokenSource(backend.StaticToken(cfg.API.Token)),
		backend.WithLogger(logg),
	)
	if err != nil {
		logg.Error(ctx, "failed to create backend client", err)
		os.Exit(1)
	}

	switch {
	case *showFilters:
		catalog := properties.NewFilterCatalog(client, listing.WithLogger(logg))
		defer catalog.Close()
		if !wait(ctx, catalog.Refresh()) {
			os.Exit(130)
		}
		options, ok := catalog.Options()
		if !ok {
			fail(ctx, logg, catalog.Err())
		}
		emit(ctx, logg, options)

	case *reviewsFor > 0:
		loader := reviews.NewLoader(client, listing.WithLogger(logg))
		defer loader.Close()
		if !wait(ctx, loader.Load(reviews.Query{PropertyID: *reviewsFor, Page: *page, PerPage: *perPage})) {
			os.Exit(130)
		}
		state := loader.State()
		if state.Err != "" {
			fail(ctx, logg, state.Err)
		}
		emit(ctx, logg, map[string]any{
			"average": reviews.Average(state.Items),
			"reviews": state,
		})

	default:
		filters := properties.Filters{
			Search:  *search,
			City:    *city,
			Type:    *propertyType,
			Sort:    enums.PropertySort(*sort),
			Page:    *page,
			PerPage: *perPage,
		}
		if filters.MinPrice, err = parsePrice(*minPrice, "min-price"); err != nil {
			fail(ctx, logg, pkgerrors.UserMessage(err, "properties"))
		}
		if filters.MaxPrice, err = parsePrice(*maxPrice, "max-price"); err != nil {
			fail(ctx, logg, pkgerrors.UserMessage(err, "properties"))
		}
		if *bedrooms >= 0 {
			filters.Bedrooms = bedrooms
		}

		loader := properties.NewListLoader(client, listing.WithLogger(logg))
		defer loader.Close()
		if !wait(ctx, loader.Load(filters)) {
			os.Exit(130)
		}
		state := loader.State()
		if state.Err != "" {
			fail(ctx, logg, state.Err)
		}
		emit(ctx, logg, state)
	}
}

func parsePrice(raw, flagName string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, flagName+" must be a number.")
	}
	return &value, nil
}

func wait(ctx context.Context, done <-chan struct{}) bool {
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

func emit(ctx context.Context, logg *logger.Logger, v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logg.Error(ctx, "failed to write output", err)
		os.Exit(1)
	}
}

func fail(ctx context.Context, logg *logger.Logger, msg string) {
	logg.Warn(logg.WithField(ctx, "error", msg), "browse.failed")
	os.Exit(1)
}
