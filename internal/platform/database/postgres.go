package database

import (
	"context"
	"log"
	"time"

	"hackathon_portal/internal/platform/config"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/jmoiron/sqlx"
)

var DB *sqlx.DB

// Connect opens the pool and fails fast when Postgres is unreachable; the
// portal cannot serve anything without it.
func Connect() {
	cfg := config.AppConfig
	pool, err := sqlx.Open("pgx", cfg.DBConnStr)
	if err != nil {
		log.Fatalf("ERROR: opening database %s@%s:%s: %v", cfg.DBName, cfg.DBHost, cfg.DBPort, err)
	}

	pool.SetMaxOpenConns(cfg.DBMaxOpenConns)
	pool.SetMaxIdleConns(cfg.DBMaxIdleConns)
	pool.SetConnMaxLifetime(cfg.DBConnLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		log.Fatalf("ERROR: database %s@%s:%s did not answer: %v", cfg.DBName, cfg.DBHost, cfg.DBPort, err)
	}

	DB = pool
	log.Printf("INFO: Connected to PostgreSQL database %q", cfg.DBName)
}

func Close() {
	if DB == nil {
		return
	}
	if err := DB.Close(); err != nil {
		log.Printf("WARN: closing database: %v", err)
		return
	}
	log.Println("INFO: Database connection closed")
}
