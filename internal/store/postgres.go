package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/BTreeMap/LegalDraft/internal/models"
	_ "github.com/lib/pq"
)

// Connection pool settings for Postgres.
const (
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 25
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore keeps the delivery log in Postgres.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to Postgres and ensures the tables exist.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "dsn_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore.NewPostgresStore: DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("PostgresStore.NewPostgresStore: open failed", "error", err)
		return nil, err
	}
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("PostgresStore.NewPostgresStore: ping failed", "error", err)
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("PostgresStore.NewPostgresStore: migrations failed", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgresStore.NewPostgresStore: migrations applied")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) AddReceipt(r models.Receipt) error {
	_, err := s.db.Exec(`INSERT INTO receipts (recipient, status, time) VALUES ($1, $2, $3)`, r.To, string(r.Status), r.Time)
	if err != nil {
		slog.Error("PostgresStore.AddReceipt: insert failed", "error", err, "to", r.To)
		return fmt.Errorf("failed to insert receipt for %s: %w", r.To, err)
	}
	slog.Debug("PostgresStore.AddReceipt: stored", "to", r.To, "status", r.Status)
	return nil
}

func (s *PostgresStore) GetReceipts() ([]models.Receipt, error) {
	rows, err := s.db.Query(`SELECT recipient, status, time FROM receipts ORDER BY id`)
	if err != nil {
		slog.Error("PostgresStore.GetReceipts: query failed", "error", err)
		return nil, err
	}
	defer rows.Close()

	var receipts []models.Receipt
	for rows.Next() {
		var r models.Receipt
		var status string
		if err := rows.Scan(&r.To, &status, &r.Time); err != nil {
			slog.Error("PostgresStore.GetReceipts: scan failed", "error", err)
			return nil, err
		}
		r.Status = models.MessageStatus(status)
		receipts = append(receipts, r)
	}
	return receipts, rows.Err()
}

func (s *PostgresStore) AddDelivery(d models.Delivery) error {
	_, err := s.db.Exec(`INSERT INTO deliveries (id, recipient, document_type, chunks, status, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID, d.Recipient, d.DocumentType, d.Chunks, string(d.Status), d.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore.AddDelivery: insert failed", "error", err, "id", d.ID)
		return fmt.Errorf("failed to insert delivery %s: %w", d.ID, err)
	}
	slog.Debug("PostgresStore.AddDelivery: stored", "id", d.ID, "recipient", d.Recipient, "chunks", d.Chunks)
	return nil
}

func (s *PostgresStore) GetDeliveries() ([]models.Delivery, error) {
	rows, err := s.db.Query(`SELECT id, recipient, document_type, chunks, status, created_at FROM deliveries ORDER BY created_at DESC`)
	if err != nil {
		slog.Error("PostgresStore.GetDeliveries: query failed", "error", err)
		return nil, err
	}
	defer rows.Close()
	return scanDeliveries(rows)
}

func (s *PostgresStore) Close() error {
	slog.Debug("PostgresStore.Close: closing database")
	return s.db.Close()
}
