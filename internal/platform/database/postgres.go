package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"
	"vote_zone/internal/platform/config"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
)

var DB *sql.DB

func Connect() {
	var err error
	DB, err = Open(context.Background(), config.AppConfig.DBConnStr)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}

	if err := CreateSchema(context.Background(), DB); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}

	slog.Info("connected to PostgreSQL, schema ready")
}

// Open opens a pooled pgx-backed *sql.DB and verifies it with a ping.
func Open(ctx context.Context, connStr string) (*sql.DB, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	return db, nil
}

func Close() {
	if DB != nil {
		DB.Close()
		slog.Info("database connection closed")
	}
}
