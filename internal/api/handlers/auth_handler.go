// server/internal/api/handlers/auth_handler.go
package handlers

import (
	"net/http"

	"rl-express-api-server/config"
	"rl-express-api-server/internal/auth"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	jwtCfg  config.JWTConfig
	courier config.CourierConfig
}

func NewAuthHandler(jwtCfg config.JWTConfig, courier config.CourierConfig) *AuthHandler {
	return &AuthHandler{jwtCfg: jwtCfg, courier: courier}
}

type loginRequest struct {
	PIN string `json:"pin" binding:"required"`
}

// Login exchanges the courier PIN for a session token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.courier.PINHash == "" || !auth.CheckPIN(req.PIN, h.courier.PINHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid PIN"})
		return
	}

	token, err := auth.GenerateJWT([]byte(h.jwtCfg.Secret), h.courier.Name, h.jwtCfg.Expiration)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":       token,
		"courierName": h.courier.Name,
	})
}
