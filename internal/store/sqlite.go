package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/BTreeMap/LegalDraft/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions is applied to directories created for database files.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore keeps the delivery log in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at the configured path, creating its
// directory and tables when missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("SQLiteStore.NewSQLiteStore: creating SQLite store", "dsn_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore.NewSQLiteStore: DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("SQLiteStore.NewSQLiteStore: failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("SQLiteStore.NewSQLiteStore: open failed", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLiteStore.NewSQLiteStore: ping failed", "error", err)
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("SQLiteStore.NewSQLiteStore: migrations failed", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLiteStore.NewSQLiteStore: migrations applied", "dsn", dsn)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) AddReceipt(r models.Receipt) error {
	_, err := s.db.Exec(`INSERT INTO receipts (recipient, status, time) VALUES (?, ?, ?)`, r.To, string(r.Status), r.Time)
	if err != nil {
		slog.Error("SQLiteStore.AddReceipt: insert failed", "error", err, "to", r.To)
		return fmt.Errorf("failed to insert receipt for %s: %w", r.To, err)
	}
	slog.Debug("SQLiteStore.AddReceipt: stored", "to", r.To, "status", r.Status)
	return nil
}

func (s *SQLiteStore) GetReceipts() ([]models.Receipt, error) {
	rows, err := s.db.Query(`SELECT recipient, status, time FROM receipts ORDER BY id`)
	if err != nil {
		slog.Error("SQLiteStore.GetReceipts: query failed", "error", err)
		return nil, err
	}
	defer rows.Close()

	var receipts []models.Receipt
	for rows.Next() {
		var r models.Receipt
		var status string
		if err := rows.Scan(&r.To, &status, &r.Time); err != nil {
			slog.Error("SQLiteStore.GetReceipts: scan failed", "error", err)
			return nil, err
		}
		r.Status = models.MessageStatus(status)
		receipts = append(receipts, r)
	}
	return receipts, rows.Err()
}

func (s *SQLiteStore) AddDelivery(d models.Delivery) error {
	_, err := s.db.Exec(`INSERT INTO deliveries (id, recipient, document_type, chunks, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.Recipient, d.DocumentType, d.Chunks, string(d.Status), d.CreatedAt.UTC())
	if err != nil {
		slog.Error("SQLiteStore.AddDelivery: insert failed", "error", err, "id", d.ID)
		return fmt.Errorf("failed to insert delivery %s: %w", d.ID, err)
	}
	slog.Debug("SQLiteStore.AddDelivery: stored", "id", d.ID, "recipient", d.Recipient, "chunks", d.Chunks)
	return nil
}

func (s *SQLiteStore) GetDeliveries() ([]models.Delivery, error) {
	rows, err := s.db.Query(`SELECT id, recipient, document_type, chunks, status, created_at FROM deliveries ORDER BY created_at DESC`)
	if err != nil {
		slog.Error("SQLiteStore.GetDeliveries: query failed", "error", err)
		return nil, err
	}
	defer rows.Close()
	return scanDeliveries(rows)
}

func (s *SQLiteStore) Close() error {
	slog.Debug("SQLiteStore.Close: closing database")
	return s.db.Close()
}

// scanDeliveries reads delivery rows in the column order both backends select.
func scanDeliveries(rows *sql.Rows) ([]models.Delivery, error) {
	var deliveries []models.Delivery
	for rows.Next() {
		var d models.Delivery
		var status string
		if err := rows.Scan(&d.ID, &d.Recipient, &d.DocumentType, &d.Chunks, &status, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		d.Status = models.MessageStatus(status)
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}
