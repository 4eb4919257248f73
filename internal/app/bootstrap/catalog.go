package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/autosales-assistant/internal/catalog"
	appconfig "github.com/wolfman30/autosales-assistant/internal/config"
	"github.com/wolfman30/autosales-assistant/pkg/logging"
)

// BuildCatalog loads the inventory from Postgres when DATABASE_URL is set,
// otherwise from CATALOG_CSV_PATH. With neither, the catalog starts empty and
// brand/model extraction only uses the alias tables.
func BuildCatalog(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*catalog.Catalog, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch {
	case strings.TrimSpace(cfg.DatabaseURL) != "":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: connect catalog database: %w", err)
		}
		defer pool.Close()

		cars, err := catalog.LoadFromPostgres(ctx, pool)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load catalog from postgres: %w", err)
		}
		logger.Info("catalog loaded from postgres", "cars", len(cars))
		return catalog.New(cars), nil

	case strings.TrimSpace(cfg.CatalogCSVPath) != "":
		cars, err := catalog.LoadCSVFile(cfg.CatalogCSVPath)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load catalog csv: %w", err)
		}
		logger.Info("catalog loaded from csv", "path", cfg.CatalogCSVPath, "cars", len(cars))
		return catalog.New(cars), nil

	default:
		logger.Warn("no catalog source configured; starting with an empty catalog")
		return catalog.New(nil), nil
	}
}
