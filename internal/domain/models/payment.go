package models

import (
	"encoding/json"
	"time"

	"tripbook/internal/domain"
	"tripbook/internal/utils"
)

// Payment is the transaction header. ID doubles as the gateway correlation id.
type Payment struct {
	ID               string               `json:"id"`
	TripID           string               `json:"trip_id"`
	Status           domain.PaymentStatus `json:"status"`
	PassengerIDs     []string             `json:"passenger_ids"`
	TotalAmountCents int64                `json:"total_amount_cents"`
	PayerName        string               `json:"payer_name"`
	PayerEmail       string               `json:"payer_email"`
	PayerID          string               `json:"payer_id"`
	GatewayID        string               `json:"gateway_id"`
	GatewayTxID      string               `json:"gateway_txid"`
	BrCode           string               `json:"br_code"`
	QRCodeImage      string               `json:"qr_code_image"`
	ExpiresAt        *time.Time           `json:"expires_at"`
	PaidAt           *time.Time           `json:"paid_at"`
	FeeCents         int64                `json:"fee_cents"`
	ProviderPayload  json.RawMessage      `json:"-"`
	CreatedAt        time.Time            `json:"created_at"`
}

// PerPassengerCents splits the total evenly across the linked passengers.
func (p Payment) PerPassengerCents() int64 {
	return utils.SplitCents(p.TotalAmountCents, len(p.PassengerIDs))
}

// PassengerPayment is the immutable line item of a payment.
type PassengerPayment struct {
	PaymentID   string
	PassengerID string
	AmountCents int64
}
