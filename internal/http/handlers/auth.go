package handlers

import (
	"net/http"

	"tripbook/internal/http/middleware"
	"tripbook/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/auth/login
func Login(c *gin.Context) {
	var req loginRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	res, err := currentDeps().Auth.Login(req.Email, req.Password)
	if err != nil {
		utils.LogEvent(middleware.GetRequestID(c), "auth", "login_failed", "admin login rejected", zap.String("ip", c.ClientIP()))
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
