package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testHandler(secret string) *Handler {
	return &Handler{Log: zap.NewNop(), jwtSecret: []byte(secret)}
}

func TestJWTRoundTrip(t *testing.T) {
	h := testHandler("test-secret")

	token, err := h.generateJWT("anon-123")
	require.NoError(t, err)

	anonID, err := h.validateAndGetAnonID(token)
	require.NoError(t, err)
	assert.Equal(t, "anon-123", anonID)
}

func TestJWTWrongSecretRejected(t *testing.T) {
	token, err := testHandler("secret-a").generateJWT("anon-123")
	require.NoError(t, err)

	_, err = testHandler("secret-b").validateAndGetAnonID(token)
	assert.ErrorIs(t, err, errBadToken)
}

func TestJWTGarbageRejected(t *testing.T) {
	_, err := testHandler("test-secret").validateAndGetAnonID("not.a.jwt")
	assert.ErrorIs(t, err, errBadToken)
}

func TestBearerAnonIDHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := testHandler("test-secret")
	token, err := h.generateJWT("anon-123")
	require.NoError(t, err)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/ws", nil)
	c.Request.Header.Set("Authorization", "Bearer "+token)

	anonID, err := h.bearerAnonID(c)
	require.NoError(t, err)
	assert.Equal(t, "anon-123", anonID)
}

// Browser websocket clients cannot set headers, so the token may ride in
// the query string instead.
func TestBearerAnonIDQueryFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := testHandler("test-secret")
	token, err := h.generateJWT("anon-456")
	require.NoError(t, err)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/ws?token="+token, nil)

	anonID, err := h.bearerAnonID(c)
	require.NoError(t, err)
	assert.Equal(t, "anon-456", anonID)
}

func TestBearerAnonIDMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/ws", nil)

	_, err := testHandler("test-secret").bearerAnonID(c)
	assert.ErrorIs(t, err, errBadToken)
}
