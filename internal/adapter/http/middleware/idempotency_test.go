package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeIdempotencyStore struct {
	checkAndSetFn func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	updateFn      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
	released      []string
}

func (f *fakeIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if f.checkAndSetFn != nil {
		return f.checkAndSetFn(ctx, key, response, ttl)
	}
	return false, nil, nil
}

func (f *fakeIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, key, response, ttl)
	}
	return nil
}

func (f *fakeIdempotencyStore) Release(ctx context.Context, key string) error {
	f.released = append(f.released, key)
	return nil
}

func newIdempotencyRequest(key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync", bytes.NewBufferString(`{}`))
	req.Header.Set(IdempotencyKeyHeader, key)
	return req
}

func TestIdempotencyMiddleware_IgnoresStoreErrors(t *testing.T) {
	var called bool
	store := &fakeIdempotencyStore{
		checkAndSetFn: func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
			return false, nil, context.DeadlineExceeded
		},
	}
	mw := NewIdempotencyMiddleware(store, time.Hour, zerolog.Nop())

	rr := httptest.NewRecorder()
	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})).ServeHTTP(rr, newIdempotencyRequest("key-err"))

	if called {
		t.Fatalf("handler should not be called when store errors")
	}
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}
}

func TestIdempotencyMiddleware_ReleasesFailedResponses(t *testing.T) {
	var updated bool
	store := &fakeIdempotencyStore{
		updateFn: func(ctx context.Context, key string, response []byte, ttl time.Duration) error {
			updated = true
			return nil
		},
	}
	mw := NewIdempotencyMiddleware(store, time.Hour, zerolog.Nop())

	rr := httptest.NewRecorder()
	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})).ServeHTTP(rr, newIdempotencyRequest("key-fail"))

	if updated {
		t.Fatalf("expected error responses not to be cached")
	}
	if len(store.released) != 1 || store.released[0] != "POST:/api/v1/sync:key-fail" {
		t.Fatalf("expected key to be released, got %v", store.released)
	}
}

func TestIdempotencyMiddleware_SkipsNonMutatingRequests(t *testing.T) {
	store := &fakeIdempotencyStore{
		checkAndSetFn: func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
			t.Fatal("store must not be consulted for GET")
			return false, nil, nil
		},
	}
	mw := NewIdempotencyMiddleware(store, time.Hour, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/net-worth", nil)
	req.Header.Set(IdempotencyKeyHeader, "key")
	rr := httptest.NewRecorder()

	called := false
	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})).ServeHTTP(rr, req)

	if !called {
		t.Fatalf("expected next handler to be called")
	}
}

func TestIdempotencyMiddleware_ReturnsCachedResponse(t *testing.T) {
	store := &fakeIdempotencyStore{
		checkAndSetFn: func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
			return true, []byte(`{"cached":true}`), nil
		},
	}
	mw := NewIdempotencyMiddleware(store, time.Hour, zerolog.Nop())

	rr := httptest.NewRecorder()
	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not be called when cached response exists")
	})).ServeHTTP(rr, newIdempotencyRequest("key-123"))

	if rr.Header().Get("X-Idempotency-Replay") != "true" {
		t.Fatalf("expected X-Idempotency-Replay header to be set")
	}
	if got := rr.Body.String(); got != `{"cached":true}` {
		t.Fatalf("unexpected cached body: %s", got)
	}
}

func TestIdempotencyMiddleware_InFlightConflict(t *testing.T) {
	store := &fakeIdempotencyStore{
		checkAndSetFn: func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
			return true, []byte(processingMarker), nil
		},
	}
	mw := NewIdempotencyMiddleware(store, time.Hour, zerolog.Nop())

	rr := httptest.NewRecorder()
	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not run while the first request is in flight")
	})).ServeHTTP(rr, newIdempotencyRequest("key-busy"))

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestIdempotencyMiddleware_StoresSuccessfulResponse(t *testing.T) {
	var updatedBody []byte
	var updatedTTL time.Duration
	store := &fakeIdempotencyStore{
		updateFn: func(ctx context.Context, key string, response []byte, ttl time.Duration) error {
			updatedBody = append([]byte(nil), response...)
			updatedTTL = ttl
			return nil
		},
	}
	mw := NewIdempotencyMiddleware(store, 0, zerolog.Nop())

	rr := httptest.NewRecorder()
	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})).ServeHTTP(rr, newIdempotencyRequest("key-456"))

	if rr.Code != http.StatusCreated {
		t.Fatalf("unexpected status code: %d", rr.Code)
	}
	stored := decodeCachedResponse(updatedBody)
	if stored.Status != http.StatusCreated || string(stored.Body) != `{"ok":true}` {
		t.Fatalf("expected status and body to be stored, got %d %s", stored.Status, string(stored.Body))
	}
	if updatedTTL != 24*time.Hour {
		t.Fatalf("expected default ttl, got %s", updatedTTL)
	}
	if len(store.released) != 0 {
		t.Fatalf("successful responses must not be released")
	}
}

// memoryIdempotencyStore keeps entries in a map so a request can be replayed.
type memoryIdempotencyStore struct {
	entries map[string][]byte
}

func (m *memoryIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if v, ok := m.entries[key]; ok {
		return true, v, nil
	}
	m.entries[key] = []byte(processingMarker)
	return false, nil, nil
}

func (m *memoryIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	m.entries[key] = response
	return nil
}

func (m *memoryIdempotencyStore) Release(ctx context.Context, key string) error {
	delete(m.entries, key)
	return nil
}

func TestIdempotencyMiddleware_ReplayKeepsStatus(t *testing.T) {
	store := &memoryIdempotencyStore{entries: map[string][]byte{}}
	mw := NewIdempotencyMiddleware(store, time.Hour, zerolog.Nop())

	calls := 0
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"acc-1"}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, newIdempotencyRequest("key-created"))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, newIdempotencyRequest("key-created"))

	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
	if second.Code != http.StatusCreated {
		t.Fatalf("replayed status = %d, want 201", second.Code)
	}
	if second.Header().Get("X-Idempotency-Replay") != "true" {
		t.Fatalf("expected X-Idempotency-Replay header to be set")
	}
	if second.Body.String() != `{"id":"acc-1"}` {
		t.Fatalf("unexpected replayed body: %s", second.Body.String())
	}
}

func TestIdempotencyMiddleware_PartialOutcomeRunsAgain(t *testing.T) {
	store := &memoryIdempotencyStore{entries: map[string][]byte{}}
	mw := NewIdempotencyMiddleware(store, time.Hour, zerolog.Nop())

	calls := 0
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusMultiStatus)
			_, _ = w.Write([]byte(`{"outcome":"partial"}`))
			return
		}
		_, _ = w.Write([]byte(`{"outcome":"synced"}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, newIdempotencyRequest("key-partial"))
	if first.Code != http.StatusMultiStatus {
		t.Fatalf("first status = %d, want 207", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, newIdempotencyRequest("key-partial"))

	if calls != 2 {
		t.Fatalf("handler ran %d times, want 2", calls)
	}
	if second.Code != http.StatusOK || second.Header().Get("X-Idempotency-Replay") != "" {
		t.Fatalf("expected a fresh 200, got %d replay=%q", second.Code, second.Header().Get("X-Idempotency-Replay"))
	}

	third := httptest.NewRecorder()
	handler.ServeHTTP(third, newIdempotencyRequest("key-partial"))
	if calls != 2 || third.Code != http.StatusOK || third.Body.String() != `{"outcome":"synced"}` {
		t.Fatalf("expected the full outcome to replay, got %d %s after %d calls", third.Code, third.Body.String(), calls)
	}
}
