package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 1 << 20

// The gateway has sent the signature under both names.
var signatureHeaders = []string{"x-webhook-signature", "x-openpix-signature"}

// POST /api/webhooks/openpix
//
// The body is read raw before anything parses it; the signature covers the
// exact bytes.
func OpenPixWebhook(c *gin.Context) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondError(c, http.StatusRequestEntityTooLarge, "body terlalu besar", nil)
			return
		}
		RespondError(c, http.StatusBadRequest, "body tidak dapat dibaca", err)
		return
	}

	sig := ""
	for _, h := range signatureHeaders {
		if sig = strings.TrimSpace(c.GetHeader(h)); sig != "" {
			break
		}
	}

	outcome, err := webhookProcessor(c).Process(c.Request.Context(), raw, sig)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": outcome})
}
