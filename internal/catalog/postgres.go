package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Querier is the slice of pgx used to read inventory. *pgxpool.Pool,
// *pgx.Conn and pgxmock all satisfy it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const selectCarsSQL = `SELECT stock_id, km, price, make, model, year, COALESCE(version, '') FROM cars`

// LoadFromPostgres reads the inventory table.
func LoadFromPostgres(ctx context.Context, db Querier) ([]Car, error) {
	rows, err := db.Query(ctx, selectCarsSQL)
	if err != nil {
		return nil, fmt.Errorf("catalog: query cars: %w", err)
	}
	defer rows.Close()

	var cars []Car
	for rows.Next() {
		var car Car
		if err := rows.Scan(&car.StockID, &car.KM, &car.Price, &car.Make, &car.Model, &car.Year, &car.Version); err != nil {
			return nil, fmt.Errorf("catalog: scan car: %w", err)
		}
		cars = append(cars, car)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterate cars: %w", err)
	}
	return cars, nil
}

// Beginner opens transactions. *pgxpool.Pool and pgxmock pools satisfy it.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

var carColumns = []string{"stock_id", "km", "price", "make", "model", "year", "version"}

// ImportToPostgres replaces the contents of the cars table with cars in one
// transaction and returns the number of rows copied. Rows without a stock id,
// make or model are skipped, as are repeated stock ids after the first.
func ImportToPostgres(ctx context.Context, db Beginner, cars []Car) (int64, error) {
	cars = importableCars(cars)

	tx, err := db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("catalog: begin import: %w", err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM cars"); err != nil {
		_ = tx.Rollback(ctx)
		return 0, fmt.Errorf("catalog: clear cars: %w", err)
	}

	copied, err := tx.CopyFrom(ctx, pgx.Identifier{"cars"}, carColumns,
		pgx.CopyFromSlice(len(cars), func(i int) ([]any, error) {
			c := cars[i]
			return []any{c.StockID, c.KM, c.Price, c.Make, c.Model, c.Year, c.Version}, nil
		}),
	)
	if err != nil {
		_ = tx.Rollback(ctx)
		return 0, fmt.Errorf("catalog: copy cars: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("catalog: commit import: %w", err)
	}
	return copied, nil
}

func importableCars(cars []Car) []Car {
	seen := make(map[string]struct{}, len(cars))
	out := make([]Car, 0, len(cars))
	for _, c := range cars {
		c.StockID = strings.TrimSpace(c.StockID)
		if c.StockID == "" || strings.TrimSpace(c.Make) == "" || strings.TrimSpace(c.Model) == "" {
			continue
		}
		if _, dup := seen[c.StockID]; dup {
			continue
		}
		seen[c.StockID] = struct{}{}
		out = append(out, c)
	}
	return out
}
