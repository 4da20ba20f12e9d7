package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// DeltaPage is one canned /transactions/sync response. Amounts in Added and
// Modified must be JSON numbers.
type DeltaPage struct {
	Added      []map[string]any `json:"added"`
	Modified   []map[string]any `json:"modified"`
	Removed    []map[string]any `json:"removed"`
	NextCursor string           `json:"next_cursor"`
	HasMore    bool             `json:"has_more"`
	RequestID  string           `json:"request_id"`
}

// FakePlaid serves a scripted subset of the Plaid API.
type FakePlaid struct {
	*httptest.Server

	mu       sync.Mutex
	accounts []map[string]any
	pages    map[string]DeltaPage // keyed by request cursor
	calls    map[string]int
}

// NewFakePlaid starts a fake Plaid server.
func NewFakePlaid(t *testing.T, accounts []map[string]any, pages map[string]DeltaPage) *FakePlaid {
	t.Helper()

	f := &FakePlaid{accounts: accounts, pages: pages, calls: map[string]int{}}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)

	return f
}

// Calls returns how often path was requested.
func (f *FakePlaid) Calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *FakePlaid) serve(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	f.calls[r.URL.Path]++
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/item/public_token/exchange":
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "access-sandbox", "item_id": "item-1", "request_id": "req"})
	case "/accounts/get":
		_ = json.NewEncoder(w).Encode(map[string]any{"accounts": f.accounts, "request_id": "req"})
	case "/item/remove":
		_ = json.NewEncoder(w).Encode(map[string]any{"request_id": "req"})
	case "/transactions/sync":
		cursor, _ := body["cursor"].(string)
		page, ok := f.pages[cursor]
		if !ok {
			page = DeltaPage{NextCursor: cursor}
		}
		page.RequestID = "req"
		_ = json.NewEncoder(w).Encode(page)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error_type":"INVALID_REQUEST","error_code":"NOT_FOUND","error_message":"unknown path"}`))
	}
}
