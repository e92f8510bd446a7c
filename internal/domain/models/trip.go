package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trip is owned by trip management; the payment engine only reads its price.
type Trip struct {
	ID          string
	Name        string
	Destination string
	Price       decimal.Decimal
	Goal        decimal.Decimal
	CreatedAt   time.Time
}
