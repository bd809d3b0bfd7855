package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/aditya/go-dispatch/internal/errors"
	"github.com/aditya/go-dispatch/pkg/utils"
	"github.com/redis/go-redis/v9"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour
	idempotencyLock   = 30 * time.Second
	idempotencyPrefix = "idempotency:"
)

// IdempotencyMiddleware replays the stored response of a successful write
// when a client retries it with the same Idempotency-Key. Failed requests are
// not stored, so a retry after a storage error runs again.
type IdempotencyMiddleware struct {
	redis  *redis.Client
	logger *slog.Logger
}

type cachedResponse struct {
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
	RequestHash string `json:"request_hash"`
}

func NewIdempotencyMiddleware(redisClient *redis.Client, logger *slog.Logger) *IdempotencyMiddleware {
	return &IdempotencyMiddleware{redis: redisClient, logger: logger}
}

// recorder captures the response for storing
type recorder struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (rw *recorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recorder) Write(b []byte) (int, error) {
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

func (m *IdempotencyMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
			next.ServeHTTP(w, r)
			return
		}

		idempotencyKey := r.Header.Get(IdempotencyHeader)
		if idempotencyKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		bodyBytes, err := io.ReadAll(r.Body)
		if err != nil {
			utils.BadRequest(w, "failed to read request body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		requestHash := hashRequest(r, bodyBytes)
		cacheKey := idempotencyPrefix + idempotencyScope(r) + ":" + idempotencyKey
		ctx := r.Context()

		cached, err := m.getCachedResponse(ctx, cacheKey)
		switch {
		case err == nil:
			if cached.RequestHash != requestHash {
				utils.Error(w, apperrors.IdempotencyConflict())
				return
			}
			w.Header().Set("Content-Type", cached.ContentType)
			w.Header().Set("Idempotent-Replay", "true")
			w.WriteHeader(cached.StatusCode)
			w.Write(cached.Body)
			return
		case err != redis.Nil:
			// Redis trouble must not block writes.
			m.logger.Warn("idempotency lookup failed", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		lockKey := cacheKey + ":lock"
		locked, err := m.redis.SetNX(ctx, lockKey, "1", idempotencyLock).Result()
		if err != nil {
			m.logger.Warn("idempotency lock failed", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		if !locked {
			utils.Error(w, apperrors.NewAPIError("request_in_progress", "a request with this idempotency key is already being processed", http.StatusConflict))
			return
		}
		defer m.redis.Del(context.WithoutCancel(ctx), lockKey)

		rw := &recorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		if rw.statusCode < 200 || rw.statusCode >= 300 {
			return
		}

		data, err := json.Marshal(cachedResponse{
			StatusCode:  rw.statusCode,
			ContentType: rw.Header().Get("Content-Type"),
			Body:        rw.body.Bytes(),
			RequestHash: requestHash,
		})
		if err != nil {
			return
		}
		if err := m.redis.Set(context.WithoutCancel(ctx), cacheKey, data, idempotencyTTL).Err(); err != nil {
			m.logger.Warn("failed to store idempotent response", "error", err)
		}
	})
}

func (m *IdempotencyMiddleware) getCachedResponse(ctx context.Context, key string) (*cachedResponse, error) {
	data, err := m.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}

	var cached cachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	return &cached, nil
}

// idempotencyScope keeps keys from different callers apart.
func idempotencyScope(r *http.Request) string {
	if actor, ok := ActorFromContext(r.Context()); ok {
		return actor.ID
	}
	return "anonymous"
}

func hashRequest(r *http.Request, body []byte) string {
	h := sha256.New()
	h.Write([]byte(r.Method + " " + r.URL.Path + "\n"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
