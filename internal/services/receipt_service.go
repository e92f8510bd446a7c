package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"tripbook/internal/domain"
	"tripbook/internal/domain/models"
	"tripbook/internal/repositories"
	"tripbook/internal/utils"

	"github.com/phpdave11/gofpdf"
)

// ReceiptService renders the PDF receipt of a paid payment.
type ReceiptService struct {
	Payments   repositories.PaymentRepository
	Passengers repositories.PassengerRepository
	Trips      repositories.TripRepository
	RequestID  string
}

type receiptData struct {
	Payment    models.Payment
	Trip       models.Trip
	Passengers []models.Passenger
}

func (s ReceiptService) Generate(ctx context.Context, paymentID string) ([]byte, string, error) {
	p, err := s.Payments.GetByID(ctx, paymentID)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, "", err
		}
		return nil, "", domain.InternalError{Msg: "gagal memuat pembayaran", Err: err}
	}
	if p.Status != domain.PaymentPaid {
		return nil, "", domain.ConflictError{Resource: "payment", Msg: "pembayaran belum lunas"}
	}
	trip, err := s.Trips.GetByID(ctx, p.TripID)
	if err != nil && !domain.IsNotFound(err) {
		return nil, "", domain.InternalError{Msg: "gagal memuat trip", Err: err}
	}
	found, err := s.Passengers.ListByIDs(ctx, p.PassengerIDs)
	if err != nil {
		return nil, "", domain.InternalError{Msg: "gagal memuat penumpang", Err: err}
	}

	utils.LogEvent(s.RequestID, "receipt", "generate", "payment_id="+p.ID)
	return buildReceiptPDF(receiptData{Payment: p, Trip: trip, Passengers: orderPassengers(p.PassengerIDs, found)})
}

// orderPassengers returns found in the order of ids, skipping missing ones.
func orderPassengers(ids []string, found []models.Passenger) []models.Passenger {
	byID := make(map[string]models.Passenger, len(found))
	for _, ps := range found {
		byID[ps.ID] = ps
	}
	out := make([]models.Passenger, 0, len(ids))
	for _, id := range ids {
		if ps, ok := byID[id]; ok {
			out = append(out, ps)
		}
	}
	return out
}

func buildReceiptPDF(d receiptData) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Recibo", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "RECIBO DE PAGAMENTO")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, "Pagamento : "+d.Payment.ID)
	pdf.Ln(7)
	if d.Payment.PaidAt != nil {
		pdf.Cell(0, 7, "Pago em   : "+d.Payment.PaidAt.Format("02/01/2006 15:04"))
		pdf.Ln(7)
	}
	if d.Payment.GatewayTxID != "" {
		pdf.Cell(0, 7, "Transacao : "+d.Payment.GatewayTxID)
		pdf.Ln(7)
	}
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Pagador:")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, tr("Nome  : "+safe(d.Payment.PayerName, "-")))
	pdf.Ln(7)
	pdf.Cell(0, 7, "Email : "+safe(d.Payment.PayerEmail, "-"))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, tr("Viagem: "+safe(d.Trip.Name, d.Payment.TripID)))
	pdf.Ln(7)
	if d.Trip.Destination != "" {
		pdf.SetFont("Helvetica", "", 12)
		pdf.Cell(0, 7, tr("Destino: "+d.Trip.Destination))
		pdf.Ln(7)
	}
	pdf.Ln(3)

	per := d.Payment.PerPassengerCents()
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Passageiros:")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	for i, ps := range d.Passengers {
		line := fmt.Sprintf("%d) %s", i+1, safe(ps.Name, ps.ID))
		if ps.SeatCode != "" {
			line += " - assento " + ps.SeatCode
		}
		pdf.CellFormat(140, 6, tr(line), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, utils.FormatMoney(per), "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Total: "+utils.FormatMoney(d.Payment.TotalAmountCents))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, tr("Pagamento via PIX confirmado. Este recibo não substitui documento fiscal."), "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("RECIBO_%s.pdf", safeFilenamePart(d.Payment.ID))
	return buf.Bytes(), filename, nil
}

func safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

func safeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NA"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	s = replacer.Replace(s)
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}
