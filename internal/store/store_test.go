package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BTreeMap/LegalDraft/internal/models"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()

	r := models.Receipt{To: "+123", Status: models.MessageStatusSent, Time: 1}
	if err := s.AddReceipt(r); err != nil {
		t.Fatalf("AddReceipt: unexpected error: %v", err)
	}
	if err := s.AddReceipt(models.Receipt{To: "+123", Status: models.MessageStatusDelivered, Time: 2}); err != nil {
		t.Fatalf("AddReceipt: unexpected error: %v", err)
	}
	receipts, err := s.GetReceipts()
	if err != nil {
		t.Fatalf("GetReceipts: unexpected error: %v", err)
	}
	if len(receipts) != 2 || receipts[0] != r || receipts[1].Status != models.MessageStatusDelivered {
		t.Errorf("receipts not stored in order: %+v", receipts)
	}

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	older := models.Delivery{ID: "d1", Recipient: "+123", DocumentType: "Lease Agreement", Chunks: 1, Status: models.MessageStatusSent, CreatedAt: base}
	newer := models.Delivery{ID: "d2", Recipient: "+456", DocumentType: "Bail Application", Chunks: 3, Status: models.MessageStatusFailed, CreatedAt: base.Add(time.Minute)}
	for _, d := range []models.Delivery{older, newer} {
		if err := s.AddDelivery(d); err != nil {
			t.Fatalf("AddDelivery: unexpected error: %v", err)
		}
	}
	deliveries, err := s.GetDeliveries()
	if err != nil {
		t.Fatalf("GetDeliveries: unexpected error: %v", err)
	}
	if len(deliveries) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(deliveries))
	}
	if deliveries[0].ID != "d2" || deliveries[1].ID != "d1" {
		t.Errorf("expected newest first, got %s then %s", deliveries[0].ID, deliveries[1].ID)
	}
	got := deliveries[0]
	if got.Recipient != "+456" || got.DocumentType != "Bail Application" || got.Chunks != 3 || got.Status != models.MessageStatusFailed {
		t.Errorf("delivery fields not round-tripped: %+v", got)
	}
	if !got.CreatedAt.Equal(newer.CreatedAt) {
		t.Errorf("expected created_at %v, got %v", newer.CreatedAt, got.CreatedAt)
	}
}

func TestInMemoryStore(t *testing.T) {
	exerciseStore(t, NewInMemoryStore())
}

func TestInMemoryStoreReturnsCopies(t *testing.T) {
	s := NewInMemoryStore()
	_ = s.AddReceipt(models.Receipt{To: "+1", Status: models.MessageStatusSent})
	receipts, _ := s.GetReceipts()
	receipts[0].To = "changed"
	again, _ := s.GetReceipts()
	if again[0].To != "+1" {
		t.Error("caller mutation leaked into the store")
	}
}

func TestSQLiteStore(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "nested", "legaldraft.db")
	s, err := NewSQLiteStore(WithSQLiteDSN(dsn))
	if err != nil {
		t.Fatalf("NewSQLiteStore: unexpected error: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLiteStoreRequiresDSN(t *testing.T) {
	if _, err := NewSQLiteStore(); err == nil {
		t.Error("expected error for empty DSN")
	}
}

func TestSQLiteStoreReopen(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "legaldraft.db")
	s, err := NewSQLiteStore(WithSQLiteDSN(dsn))
	if err != nil {
		t.Fatalf("NewSQLiteStore: unexpected error: %v", err)
	}
	if err := s.AddReceipt(models.Receipt{To: "+1", Status: models.MessageStatusRead, Time: 9}); err != nil {
		t.Fatalf("AddReceipt: unexpected error: %v", err)
	}
	s.Close()

	s, err = NewSQLiteStore(WithSQLiteDSN(dsn))
	if err != nil {
		t.Fatalf("reopen: unexpected error: %v", err)
	}
	defer s.Close()
	receipts, err := s.GetReceipts()
	if err != nil || len(receipts) != 1 || receipts[0].Status != models.MessageStatusRead {
		t.Errorf("expected persisted receipt, got %+v (err %v)", receipts, err)
	}
}

func TestPostgresStore(t *testing.T) {
	connStr := getenvOrSkip(t, "DATABASE_URL")
	pgStore, err := NewPostgresStore(WithPostgresDSN(connStr))
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	defer pgStore.Close()
	pgStore.db.Exec("DELETE FROM receipts")
	pgStore.db.Exec("DELETE FROM deliveries")
	exerciseStore(t, pgStore)
}

func TestDetectDSNType(t *testing.T) {
	tests := map[string]string{
		"postgres://user@localhost/db":   "postgres",
		"postgresql://localhost/db":      "postgres",
		"host=localhost dbname=legal":    "postgres",
		"/var/lib/legaldraft/state.db":   "sqlite",
		"file:state.db?_foreign_keys=on": "sqlite",
	}
	for dsn, want := range tests {
		if got := DetectDSNType(dsn); got != want {
			t.Errorf("DetectDSNType(%q) = %q, want %q", dsn, got, want)
		}
	}
}

func getenvOrSkip(t *testing.T, key string) string {
	v := os.Getenv(key)
	if v == "" {
		t.Skipf("env %s not set", key)
	}
	return v
}
