package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrNotEligible          = errors.New("registration not eligible for transition")
	ErrAdminNotFound        = errors.New("admin not found")
	ErrDuplicateAdminEmail  = errors.New("admin email already in use")
	ErrAlreadyCheckedIn     = errors.New("ticket already checked in")
)

type Database struct {
	Pool *pgxpool.Pool
}

func NewDatabase() Database {
	return Database{}
}

func (db *Database) Connect(ctx context.Context, dsn string) error {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("parse database configuration: %w", err)
	}

	db.Pool, err = pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create database pool: %w", err)
	}

	if err := db.Pool.Ping(ctx); err != nil {
		db.Pool.Close()
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

func (db *Database) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

func (db *Database) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// isUniqueViolation reports whether err is a Postgres duplicate-key error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
