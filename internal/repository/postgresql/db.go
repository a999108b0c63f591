package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"plate_reader/internal/config"
)

const uniqueViolation = "23505"

// driverName maps DB_DRIVER to a registered database/sql driver: "pgx" (jackc/pgx) or "postgres" (lib/pq).
func driverName(driver string) (string, error) {
	switch driver {
	case "", "pgx":
		return "pgx", nil
	case "postgres", "pq":
		return "postgres", nil
	}
	return "", fmt.Errorf("unsupported DB_DRIVER %q", driver)
}

func NewDB(cfg *config.Config) (*sql.DB, error) {
	driver, err := driverName(cfg.DBDriver)
	if err != nil {
		return nil, err
	}
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSslMode)

	db, err := sql.Open(driver, psqlInfo)
	if err != nil {
		return nil, fmt.Errorf("cannot open database connection: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot ping database: %w", err)
	}
	return db, nil
}

// isUniqueViolation understands the error types of both drivers.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Name() == "unique_violation"
	}
	return false
}
