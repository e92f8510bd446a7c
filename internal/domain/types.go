package domain

// PaymentStatus is the lifecycle state of a payment header.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentExpired PaymentStatus = "expired"
	PaymentFailed  PaymentStatus = "failed"
)

// Terminal reports whether no further webhook transition applies.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentPaid || s == PaymentExpired || s == PaymentFailed
}

// PassengerPaymentStatus is the per-passenger payment flag.
type PassengerPaymentStatus string

const (
	PassengerPending PassengerPaymentStatus = "Pending"
	PassengerPaid    PassengerPaymentStatus = "Paid"
)

// SeatStatus of a stored seat row. A seat without a row is free.
type SeatStatus string

const (
	SeatFree     SeatStatus = "free"
	SeatOccupied SeatStatus = "occupied"
	SeatBlocked  SeatStatus = "blocked"
)

// RequestContext carries authenticated admin info when available.
type RequestContext struct {
	Subject string `json:"sub"`
	Role    string `json:"role"`
}
