package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"tripbook/internal/utils"

	"github.com/shopspring/decimal"
)

// EventKind is the normalized gateway event type.
type EventKind string

const (
	EventUnknown         EventKind = "unknown"
	EventChargeCompleted EventKind = "CHARGE_COMPLETED"
	EventChargeExpired   EventKind = "CHARGE_EXPIRED"
	EventTest            EventKind = "teste_webhook"

	eventNamespace = "OPENPIX:"
)

// ChargeData is the charge object embedded in an event.
type ChargeData struct {
	CorrelationID string
	TxID          string
	Identifier    string
	BrCode        string
	QRCodeImage   string
	ExpiresDate   string
	FeeCents      int64
	Status        string
}

// GatewayEvent is the one internal shape every webhook body is decoded into.
type GatewayEvent struct {
	Kind          EventKind
	RawType       string
	CorrelationID string
	Charge        ChargeData
}

// ParseEventKind matches exactly and case-sensitively, accepting the
// namespaced ("OPENPIX:CHARGE_COMPLETED") and bare forms.
func ParseEventKind(raw string) EventKind {
	name := strings.TrimPrefix(strings.TrimSpace(raw), eventNamespace)
	switch EventKind(name) {
	case EventChargeCompleted, EventChargeExpired, EventTest:
		return EventKind(name)
	default:
		return EventUnknown
	}
}

// DecodeGatewayEvent normalizes a raw webhook body. The envelope keys are
// read first (the gateway has used both English and localized names); charge
// fields are then parsed one by one, so an unexpected type on an optional
// field only blanks that field. A charge that is not an object is an error,
// returned together with whatever the envelope already yielded.
func DecodeGatewayEvent(raw []byte) (GatewayEvent, error) {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(raw, &env); err != nil {
		return GatewayEvent{}, err
	}

	rawType := utils.FirstNonEmpty(lenientString(env["event"]), lenientString(env["evento"]))
	ev := GatewayEvent{
		Kind:          ParseEventKind(rawType),
		RawType:       rawType,
		CorrelationID: lenientString(env["correlationID"]),
	}

	chargeRaw := env["charge"]
	if isAbsent(chargeRaw) {
		chargeRaw = env["cobranca"]
	}
	if isAbsent(chargeRaw) {
		return ev, nil
	}
	var c map[string]json.RawMessage
	if err := json.Unmarshal(chargeRaw, &c); err != nil {
		return ev, fmt.Errorf("charge object: %w", err)
	}
	ev.Charge = ChargeData{
		CorrelationID: lenientString(c["correlationID"]),
		TxID:          utils.FirstNonEmpty(lenientString(c["txid"]), lenientString(c["transactionID"])),
		Identifier:    lenientString(c["identifier"]),
		BrCode:        lenientString(c["brCode"]),
		QRCodeImage:   lenientString(c["qrCodeImage"]),
		ExpiresDate:   lenientString(c["expiresDate"]),
		FeeCents:      lenientCents(c["fee"]),
		Status:        lenientString(c["status"]),
	}
	ev.CorrelationID = utils.FirstNonEmpty(ev.Charge.CorrelationID, ev.CorrelationID)
	return ev, nil
}

func isAbsent(v json.RawMessage) bool {
	t := bytes.TrimSpace(v)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// lenientString accepts a JSON string or number; anything else reads as "".
func lenientString(v json.RawMessage) string {
	if isAbsent(v) {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return n.String()
	}
	return ""
}

// Fees arrive in minor units, as a number or a numeric string, occasionally
// fractional. Blank or malformed values read as zero.
func lenientCents(v json.RawMessage) int64 {
	s := lenientString(v)
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.Round(0).IntPart()
}
