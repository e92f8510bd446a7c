package models

import (
	"time"

	"tripbook/internal/domain"
)

// SeatAssignment binds (trip, bus, seat) to a passenger or blocks it.
type SeatAssignment struct {
	TripID      string            `json:"trip_id"`
	BusID       string            `json:"bus_id"`
	SeatCode    string            `json:"seat_code"`
	PassengerID string            `json:"passenger_id,omitempty"`
	Status      domain.SeatStatus `json:"status"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
