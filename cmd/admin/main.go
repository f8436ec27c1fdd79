package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"whobible/backend/internal/cleanup"
	"whobible/backend/internal/storage"
	"whobible/backend/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <reports|resolve|sweep> [args]")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "reports":
		listReports(openStorage())
	case "resolve":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin resolve <report_id>")
			os.Exit(1)
		}
		resolveReport(openStorage(), os.Args[2])
	case "sweep":
		sweepRooms()
	default:
		fmt.Println("Unknown command")
		os.Exit(1)
	}
}

func openStorage() storage.Storage {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			os.Getenv("DB_HOST"),
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_NAME"),
			os.Getenv("DB_PORT"),
		)
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	return storage.NewService(db)
}

func listReports(s storage.Storage) {
	reports, err := s.ListOpenReports()
	if err != nil {
		log.Fatalf("Error listing reports: %v", err)
	}
	if len(reports) == 0 {
		fmt.Println("No open reports.")
		return
	}
	for _, r := range reports {
		fmt.Printf("%s  [%s/%s]  target=%s room=%s  %s\n",
			r.ID, r.Status, r.Category, r.TargetName, r.RoomCode, r.CreatedAt.Format(time.RFC3339))
	}
}

func resolveReport(s storage.Storage, id string) {
	report, err := s.GetReportByID(id)
	if err != nil {
		log.Fatalf("Error loading report: %v", err)
	}
	if report == nil {
		log.Fatalf("Report %s not found", id)
	}
	if err := s.ResolveReport(id); err != nil {
		log.Fatalf("Error resolving report: %v", err)
	}
	fmt.Printf("Report %s has been resolved.\n", id)
}

func sweepRooms() {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		log.Fatal("REDIS_ADDR must be set for sweep")
	}
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	sweeper := cleanup.NewSweeper(store.NewRedis(rdb, logger), logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := sweeper.Sweep(ctx); err != nil {
		log.Fatalf("Sweep failed: %v", err)
	}
	fmt.Println("Sweep complete.")
}
