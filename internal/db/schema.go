package db

import (
	"context"
	"fmt"
)

var tableDDL = []struct {
	name string
	ddl  string
}{
	{"trips", `
CREATE TABLE IF NOT EXISTS trips (
	id CHAR(36) PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	destination VARCHAR(255) NOT NULL DEFAULT '',
	price DECIMAL(10,2) NOT NULL DEFAULT 0,
	goal DECIMAL(12,2) NOT NULL DEFAULT 0,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"passengers", `
CREATE TABLE IF NOT EXISTS passengers (
	id CHAR(36) PRIMARY KEY,
	trip_id CHAR(36) NULL,
	source_id CHAR(36) NULL,
	name VARCHAR(255) NOT NULL,
	document VARCHAR(50) NOT NULL DEFAULT '',
	phone VARCHAR(50) NOT NULL DEFAULT '',
	instrument VARCHAR(100) NOT NULL DEFAULT '',
	congregation VARCHAR(255) NOT NULL DEFAULT '',
	marital_status VARCHAR(50) NOT NULL DEFAULT '',
	age INT NOT NULL DEFAULT 0,
	seat_code VARCHAR(20) NULL,
	payment_status VARCHAR(20) NOT NULL DEFAULT 'Pending',
	amount_paid_cents BIGINT NOT NULL DEFAULT 0,
	paid_by CHAR(36) NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	UNIQUE KEY uniq_source_trip (source_id, trip_id),
	KEY idx_trip (trip_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"payments", `
CREATE TABLE IF NOT EXISTS payments (
	id CHAR(36) PRIMARY KEY,
	trip_id CHAR(36) NOT NULL,
	status VARCHAR(20) NOT NULL DEFAULT 'pending',
	passenger_ids JSON NOT NULL,
	total_amount_cents BIGINT NOT NULL,
	payer_name VARCHAR(255) NULL,
	payer_email VARCHAR(255) NULL,
	payer_id CHAR(36) NULL,
	gateway_id VARCHAR(255) NULL,
	gateway_txid VARCHAR(255) NULL,
	br_code TEXT NULL,
	qr_code_image TEXT NULL,
	expires_at DATETIME NULL,
	paid_at DATETIME NULL,
	fee_cents BIGINT NOT NULL DEFAULT 0,
	provider_payload JSON NULL,
	created_at DATETIME NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	KEY idx_status (status),
	KEY idx_trip (trip_id),
	KEY idx_created (created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"passenger_payments", `
CREATE TABLE IF NOT EXISTS passenger_payments (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	payment_id CHAR(36) NOT NULL,
	passenger_id CHAR(36) NOT NULL,
	amount_cents BIGINT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	KEY idx_payment (payment_id),
	KEY idx_passenger (passenger_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"seat_assignments", `
CREATE TABLE IF NOT EXISTS seat_assignments (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	trip_id CHAR(36) NOT NULL,
	bus_id VARCHAR(64) NOT NULL,
	seat_code VARCHAR(20) NOT NULL,
	passenger_id CHAR(36) NULL,
	status VARCHAR(20) NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	UNIQUE KEY uniq_trip_bus_seat (trip_id, bus_id, seat_code)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
}

// Columns added after the first deployment; older databases get them via ALTER.
var addedColumns = []struct {
	table, column, ddl string
}{
	{"passengers", "source_id", `ALTER TABLE passengers ADD COLUMN source_id CHAR(36) NULL, ADD UNIQUE KEY uniq_source_trip (source_id, trip_id)`},
	{"passengers", "paid_by", `ALTER TABLE passengers ADD COLUMN paid_by CHAR(36) NULL`},
	{"payments", "fee_cents", `ALTER TABLE payments ADD COLUMN fee_cents BIGINT NOT NULL DEFAULT 0`},
}

// EnsureSchema creates missing tables and columns. Existing data is untouched.
func EnsureSchema(ctx context.Context, q Querier) error {
	for _, t := range tableDDL {
		if HasTable(ctx, q, t.name) {
			continue
		}
		if _, err := q.ExecContext(ctx, t.ddl); err != nil {
			return fmt.Errorf("create table %s: %w", t.name, err)
		}
	}
	for _, c := range addedColumns {
		if HasColumn(ctx, q, c.table, c.column) {
			continue
		}
		if _, err := q.ExecContext(ctx, c.ddl); err != nil {
			return fmt.Errorf("add column %s.%s: %w", c.table, c.column, err)
		}
	}
	return nil
}
