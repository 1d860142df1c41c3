// Package testutil provides shared helpers for LegalDraft HTTP tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/BTreeMap/LegalDraft/internal/api"
	"github.com/BTreeMap/LegalDraft/internal/genai"
	"github.com/BTreeMap/LegalDraft/internal/messaging"
	"github.com/BTreeMap/LegalDraft/internal/models"
	"github.com/BTreeMap/LegalDraft/internal/store"
	"github.com/BTreeMap/LegalDraft/internal/whatsapp"
)

// FakeGenerator answers every generation request with Reply, or fails with Err.
type FakeGenerator struct {
	mu       sync.Mutex
	Reply    string
	Err      error
	Requests []genai.Request
}

func (f *FakeGenerator) Generate(ctx context.Context, req genai.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Requests = append(f.Requests, req)
	return f.Reply, f.Err
}

// Calls reports how many generation requests were made.
func (f *FakeGenerator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Requests)
}

// TestServer bundles a server with the fakes behind it.
type TestServer struct {
	Server    *api.Server
	Handler   http.Handler
	Generator *FakeGenerator
	Store     *store.InMemoryStore
	WhatsApp  *whatsapp.MockClient
}

// NewTestServer creates a server backed by a fake generator, an in-memory store, and a
// mock WhatsApp delivery channel.
func NewTestServer(reply string) *TestServer {
	gen := &FakeGenerator{Reply: reply}
	st := store.NewInMemoryStore()
	wa := whatsapp.NewMockClient()
	srv := api.NewServer(gen, st, api.WithMessaging(messaging.NewWhatsAppService(wa)))
	return &TestServer{Server: srv, Handler: srv.Handler(), Generator: gen, Store: st, WhatsApp: wa}
}

// Do sends req through the server's handler.
func (ts *TestServer) Do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rr, req)
	return rr
}

// AssertHTTPStatus checks the HTTP status code.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes the body and checks its success flag.
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedSuccess bool) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}
	success, ok := response["success"].(bool)
	if !ok {
		t.Error("response missing or invalid 'success' field")
	} else if success != expectedSuccess {
		t.Errorf("expected success %v, got %v (message %v)", expectedSuccess, success, response["message"])
	}
	return response
}

// CreateHTTPRequest creates a request with body marshaled as JSON, or a raw body when
// body is a string.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	switch b := body.(type) {
	case nil:
		reqBody = bytes.NewBuffer(nil)
	case string:
		reqBody = bytes.NewBufferString(b)
	default:
		reqBody = bytes.NewBuffer(MustMarshalJSON(t, body))
	}
	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req
}

// SeedTestData adds sample receipts and deliveries to st.
func SeedTestData(t *testing.T, st store.Store) {
	t.Helper()
	for _, r := range []models.Receipt{
		{To: "15550000001", Status: models.MessageStatusSent, Time: 1},
		{To: "15550000002", Status: models.MessageStatusDelivered, Time: 2},
	} {
		if err := st.AddReceipt(r); err != nil {
			t.Fatalf("failed to add test receipt: %v", err)
		}
	}
	d := models.Delivery{
		ID:           "seed-delivery",
		Recipient:    "15550000001",
		DocumentType: "Lease Agreement",
		Chunks:       1,
		Status:       models.MessageStatusSent,
		CreatedAt:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := st.AddDelivery(d); err != nil {
		t.Fatalf("failed to add test delivery: %v", err)
	}
}

// MustMarshalJSON marshals v and fails the test on error.
func MustMarshalJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

// MustUnmarshalJSON unmarshals data into target and fails the test on error.
func MustUnmarshalJSON(t *testing.T, data []byte, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v", err)
	}
}
