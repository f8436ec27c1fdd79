package main

import (
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"whobible/backend/internal/api/handler"
	"whobible/backend/internal/cleanup"
	"whobible/backend/internal/models"
	"whobible/backend/internal/notify"
	"whobible/backend/internal/quiz"
	"whobible/backend/internal/reports"
	"whobible/backend/internal/storage"
	"whobible/backend/internal/store"
)

func setupStore(logger *zap.Logger) store.RemoteStore {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		// Single-node mode: rooms live in this process only.
		logger.Info("REDIS_ADDR not set, using in-memory room store")
		return store.NewMemory()
	}

	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	})
	logger.Info("using redis room store", zap.String("addr", addr))
	return store.NewRedis(rdb, logger)
}

func setupReportDB(logger *zap.Logger) *gorm.DB {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		dsn = "host=localhost user=user password=password dbname=whobible port=5432 sslmode=disable"
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Fatal("connecting to PostgreSQL", zap.Error(err))
	}
	if err := db.AutoMigrate(&models.Report{}); err != nil {
		logger.Fatal("running migrations", zap.Error(err))
	}
	return db
}

func setupNotifier(logger *zap.Logger) *notify.Telegram {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		logger.Info("TELEGRAM_BOT_TOKEN not set, report notifications disabled")
		return nil
	}
	chatID, err := strconv.ParseInt(os.Getenv("TELEGRAM_ADMIN_CHAT"), 10, 64)
	if err != nil {
		logger.Fatal("invalid TELEGRAM_ADMIN_CHAT", zap.Error(err))
	}
	notifier, err := notify.NewTelegram(token, chatID, logger)
	if err != nil {
		logger.Fatal("starting telegram notifier", zap.Error(err))
	}
	return notifier
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Warn("no .env file loaded")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET must be set")
	}

	remoteStore := setupStore(logger)
	db := setupReportDB(logger)
	notifier := setupNotifier(logger)

	storageSvc := storage.NewService(db)
	reportSvc := reports.NewService(storageSvc, notifier, logger)
	bank := quiz.NewBank()

	sweeper := cleanup.NewSweeper(remoteStore, logger)
	cronRunner, err := sweeper.Schedule()
	if err != nil {
		logger.Fatal("scheduling room sweeper", zap.Error(err))
	}
	defer cronRunner.Stop()

	h := handler.NewHandler(remoteStore, bank, reportSvc, logger, []byte(jwtSecret))

	r := gin.New()
	r.Use(gin.Recovery(), handler.RequestLogger(logger))

	r.GET("/healthz", h.Healthz)
	r.GET("/anonid", h.GetAnonID)
	r.GET("/ws", h.ServeWebSocket)
	r.POST("/reports", h.PostReport)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	// No read/write timeouts here: /ws holds connections open for the
	// whole match.
	server := &http.Server{
		Addr:           addr,
		Handler:        r,
		MaxHeaderBytes: 1 << 20,
	}

	logger.Info("whobible remote challenge backend listening", zap.String("addr", addr))
	logger.Fatal("server stopped", zap.Error(server.ListenAndServe()))
}
