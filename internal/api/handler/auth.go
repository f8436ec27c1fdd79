package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errBadToken = errors.New("invalid or expired token")

// GetAnonID mints an anonymous player identity and a JWT carrying it.
// Remote challenge identities are throwaway; no account is created.
func (h *Handler) GetAnonID(c *gin.Context) {
	anonID := uuid.New().String()

	token, err := h.generateJWT(anonID)
	if err != nil {
		h.Log.Error("minting anon token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "anon_id": anonID})
}

func (h *Handler) generateJWT(anonID string) (string, error) {
	claims := jwt.MapClaims{
		"anon_id": anonID,
		"exp":     time.Now().Add(72 * time.Hour).Unix(),
		"iss":     "whobible-remote",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.jwtSecret)
}

// validateAndGetAnonID parses a bearer token and returns the anon ID.
func (h *Handler) validateAndGetAnonID(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errBadToken
		}
		return h.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", errBadToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errBadToken
	}
	anonID, _ := claims["anon_id"].(string)
	if anonID == "" {
		return "", errBadToken
	}
	return anonID, nil
}

// bearerAnonID pulls the anon ID from the Authorization header, falling
// back to a token query parameter for websocket clients that cannot set
// headers.
func (h *Handler) bearerAnonID(c *gin.Context) (string, error) {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return h.validateAndGetAnonID(strings.TrimPrefix(auth, "Bearer "))
	}
	if token := c.Query("token"); token != "" {
		return h.validateAndGetAnonID(token)
	}
	return "", errBadToken
}
