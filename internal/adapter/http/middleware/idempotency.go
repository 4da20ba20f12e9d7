package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/spareledger/internal/usecase"
)

const (
	// IdempotencyKeyHeader is the header name for idempotency keys.
	IdempotencyKeyHeader = "Idempotency-Key"

	processingMarker = "processing"
)

// cachedResponse is the stored form of a completed request.
type cachedResponse struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// decodeCachedResponse reads a stored response. Entries written before the
// status was recorded replay as 200.
func decodeCachedResponse(raw []byte) cachedResponse {
	var c cachedResponse
	if err := json.Unmarshal(raw, &c); err != nil || c.Status == 0 {
		return cachedResponse{Status: http.StatusOK, Body: raw}
	}
	return c
}

// cacheable reports whether a response may be replayed. Partial outcomes are
// not: a retry with the same key should run the request again.
func cacheable(status int) bool {
	return status >= 200 && status < 300 && status != http.StatusMultiStatus
}

// IdempotencyMiddleware replays the stored response of a mutating request that
// was already served under the same Idempotency-Key.
type IdempotencyMiddleware struct {
	store  usecase.IdempotencyStore
	ttl    time.Duration
	logger zerolog.Logger
}

// NewIdempotencyMiddleware creates a new IdempotencyMiddleware. A non-positive ttl
// falls back to usecase.IdempotencyKeyTTL.
func NewIdempotencyMiddleware(store usecase.IdempotencyStore, ttl time.Duration, logger zerolog.Logger) *IdempotencyMiddleware {
	if ttl <= 0 {
		ttl = usecase.IdempotencyKeyTTL
	}
	return &IdempotencyMiddleware{store: store, ttl: ttl, logger: logger}
}

// Wrap wraps an http.Handler with idempotency checking.
func (m *IdempotencyMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodDelete {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(IdempotencyKeyHeader)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}
		key = r.Method + ":" + r.URL.Path + ":" + key

		exists, cached, err := m.store.CheckAndSet(r.Context(), key, nil, m.ttl)
		if err != nil {
			m.logger.Error().Err(err).Str("key", key).Msg("idempotency check failed")
			http.Error(w, "idempotency check failed", http.StatusInternalServerError)
			return
		}

		if exists {
			if cached == nil || string(cached) == processingMarker {
				http.Error(w, "request with this idempotency key is in progress", http.StatusConflict)
				return
			}
			replay := decodeCachedResponse(cached)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Idempotency-Replay", "true")
			w.WriteHeader(replay.Status)
			w.Write(replay.Body)
			return
		}

		recorder := &responseRecorder{
			ResponseWriter: w,
			body:           &bytes.Buffer{},
			statusCode:     http.StatusOK,
		}
		next.ServeHTTP(recorder, r)

		// The request is finished; keep the store calls alive past client disconnects.
		ctx := context.WithoutCancel(r.Context())
		if cacheable(recorder.statusCode) {
			payload, err := json.Marshal(cachedResponse{Status: recorder.statusCode, Body: recorder.body.Bytes()})
			if err == nil {
				err = m.store.Update(ctx, key, payload, m.ttl)
			}
			if err == nil {
				return
			}
			m.logger.Warn().Err(err).Str("key", key).Msg("failed to store idempotent response")
		}
		if err := m.store.Release(ctx, key); err != nil {
			m.logger.Warn().Err(err).Str("key", key).Msg("failed to release idempotency key")
		}
	})
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
