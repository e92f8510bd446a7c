package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tripbook/internal/domain"
	"tripbook/internal/domain/models"

	"github.com/shopspring/decimal"
)

type TripRepository struct {
	DB *sql.DB
}

// GetByID loads a trip. A missing row yields domain.NotFoundError.
func (r TripRepository) GetByID(ctx context.Context, id string) (models.Trip, error) {
	db := pickDB(r.DB)
	if db == nil {
		return models.Trip{}, fmt.Errorf("db tidak tersedia")
	}

	var (
		t           models.Trip
		price, goal string
		createdAt   sql.NullTime
	)
	err := db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(destination,''), CAST(price AS CHAR), CAST(goal AS CHAR), created_at
		FROM trips
		WHERE id=? LIMIT 1`, id).Scan(&t.ID, &t.Name, &t.Destination, &price, &goal, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Trip{}, domain.NotFoundError{Resource: "trip", Err: err}
		}
		return models.Trip{}, err
	}

	if t.Price, err = decimal.NewFromString(price); err != nil {
		return models.Trip{}, fmt.Errorf("trip %s price %q: %w", id, price, err)
	}
	if t.Goal, err = decimal.NewFromString(goal); err != nil {
		t.Goal = decimal.Zero
	}
	if createdAt.Valid {
		t.CreatedAt = createdAt.Time
	}
	return t, nil
}
