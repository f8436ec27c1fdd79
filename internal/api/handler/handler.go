package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"whobible/backend/internal/quiz"
	"whobible/backend/internal/reports"
	"whobible/backend/internal/store"
)

// Handler wires the HTTP surface: anon identity, the websocket gateway
// into room sessions, and report intake.
type Handler struct {
	Store   store.RemoteStore
	Source  quiz.Source
	Reports *reports.Service
	Log     *zap.Logger

	jwtSecret []byte
}

func NewHandler(st store.RemoteStore, source quiz.Source, rep *reports.Service, log *zap.Logger, jwtSecret []byte) *Handler {
	return &Handler{
		Store:     st,
		Source:    source,
		Reports:   rep,
		Log:       log,
		jwtSecret: jwtSecret,
	}
}

func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RequestLogger logs each request with latency, zap-style.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()
		logger.Info("request",
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
