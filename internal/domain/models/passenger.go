package models

import "tripbook/internal/domain"

// Passenger is a person record. TripID empty means a master (template) record.
type Passenger struct {
	ID              string
	TripID          string
	SourceID        string
	Name            string
	Document        string
	Phone           string
	Instrument      string
	Congregation    string
	MaritalStatus   string
	Age             int
	SeatCode        string
	PaymentStatus   domain.PassengerPaymentStatus
	AmountPaidCents int64
	PaidBy          string
}

// IsMaster reports whether the record is not scoped to any trip.
func (p Passenger) IsMaster() bool {
	return p.TripID == ""
}

// RootID is the master record a clone descends from, or the record itself.
func (p Passenger) RootID() string {
	if p.SourceID != "" {
		return p.SourceID
	}
	return p.ID
}
