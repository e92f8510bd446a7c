package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"tripbook/internal/services"

	"github.com/gin-gonic/gin"
)

type createPaymentRequest struct {
	PassengerIDs []string `json:"passengerIds"`
	TripID       string   `json:"tripId"`
	PayerName    string   `json:"payerName"`
	PayerEmail   string   `json:"payerEmail"`
	PayerID      string   `json:"payerId"`
}

// POST /api/payments
func CreatePayment(c *gin.Context) {
	var req createPaymentRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if strings.TrimSpace(req.TripID) == "" || len(req.PassengerIDs) == 0 {
		RespondError(c, http.StatusBadRequest, "passengerIds dan tripId wajib diisi", nil)
		return
	}

	intent, err := paymentIntentService(c).CreatePayment(c.Request.Context(), services.CreatePaymentInput{
		TripID:       req.TripID,
		PassengerIDs: req.PassengerIDs,
		PayerName:    req.PayerName,
		PayerEmail:   req.PayerEmail,
		PayerID:      req.PayerID,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "payment": intent})
}

// GET /api/payments/:id
func GetPaymentStatus(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		RespondError(c, http.StatusBadRequest, "id tidak valid", nil)
		return
	}
	st, err := paymentIntentService(c).GetStatus(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// GET /api/payments/:id/receipt
func GetPaymentReceiptPDF(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		RespondError(c, http.StatusBadRequest, "id tidak valid", nil)
		return
	}
	pdf, filename, err := receiptService(c).Generate(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
