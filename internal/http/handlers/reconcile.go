package handlers

import (
	"net/http"
	"strings"

	"tripbook/internal/utils"

	"github.com/gin-gonic/gin"
)

// POST /api/admin/reconcile/sync
func ReconcileSyncAll(c *gin.Context) {
	rep, err := reconciliationService(c).SyncPaidPayments(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// POST /api/admin/reconcile/payments/:id
func ReconcileSyncPayment(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		RespondError(c, http.StatusBadRequest, "id tidak valid", nil)
		return
	}
	n, err := reconciliationService(c).SyncPayment(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paymentId": id, "passengersUpdated": n})
}

// GET /api/admin/reconcile/check
func ReconcileCheckLatest(c *gin.Context) {
	rep, err := reconciliationService(c).CheckLatest(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// POST /api/admin/reconcile/sweep
func ReconcileSweepStale(c *gin.Context) {
	rep, err := reconciliationService(c).SweepStale(c.Request.Context(), utils.NowUTC())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}
