package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type seatRequest struct {
	PassengerID string `json:"passengerId"`
}

// GET /api/trips/:tripId/buses/:busId/seats
func ListSeats(c *gin.Context) {
	seats, err := seatService(c).List(c.Request.Context(), c.Param("tripId"), c.Param("busId"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"seats": seats})
}

// POST /api/trips/:tripId/buses/:busId/seats/:seat/claim
func ClaimSeat(c *gin.Context) {
	var req seatRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	seat, err := seatService(c).Claim(c.Request.Context(), c.Param("tripId"), c.Param("busId"), c.Param("seat"), req.PassengerID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"seat": seat})
}

// PUT /api/trips/:tripId/buses/:busId/seats/:seat (admin)
func AssignSeat(c *gin.Context) {
	var req seatRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	seat, err := seatService(c).Assign(c.Request.Context(), c.Param("tripId"), c.Param("busId"), c.Param("seat"), req.PassengerID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"seat": seat})
}

// POST /api/trips/:tripId/buses/:busId/seats/:seat/block (admin)
func BlockSeat(c *gin.Context) {
	seat, err := seatService(c).Block(c.Request.Context(), c.Param("tripId"), c.Param("busId"), c.Param("seat"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"seat": seat})
}

// DELETE /api/trips/:tripId/buses/:busId/seats/:seat (admin)
func ReleaseSeat(c *gin.Context) {
	if err := seatService(c).Release(c.Request.Context(), c.Param("tripId"), c.Param("busId"), c.Param("seat")); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "kursi dikosongkan"})
}
