package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nftennis/nftennis-backend/api/responses"
	pkgerrors "github.com/nftennis/nftennis-backend/pkg/errors"
	"github.com/nftennis/nftennis-backend/pkg/logger"
	pkgredis "github.com/nftennis/nftennis-backend/pkg/redis"
)

const (
	IdempotencyHeader      = "Idempotency-Key"
	defaultIdempotencyTTL  = 24 * time.Hour
	idempotencyPendingTTL  = 5 * time.Minute
	maxIdempotencyKeyLen   = 128
	idempotencyStatePend   = "pending"
	idempotencyStateStored = "done"
)

type idempotencyRule struct {
	path string
	// hashBody is false for multipart uploads; their request hash covers
	// the media type and length only.
	hashBody bool
}

var idempotencyRules = []idempotencyRule{
	{path: "/api/nfts/mint", hashBody: true},
	{path: "/api/mint", hashBody: false},
	{path: "/api/nfts/auction/start", hashBody: true},
	{path: "/api/nfts/auction/bid", hashBody: true},
	{path: "/api/nfts/auction/buy", hashBody: true},
	{path: "/api/nfts/auction/end", hashBody: true},
}

type idempotencyRecord struct {
	State       string            `json:"state"`
	Status      int               `json:"status,omitempty"`
	Body        string            `json:"body,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
}

// Idempotency replays the first response for a repeated Idempotency-Key on
// write routes. The key is optional; requests without it pass through. A key
// is reserved before the handler runs so a concurrent duplicate is rejected
// instead of sending a second transaction.
func Idempotency(store pkgredis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rule, ok := matchIdempotencyRule(r)
			idempotencyKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if !ok || idempotencyKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			if len(idempotencyKey) > maxIdempotencyKeyLen {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key too long"))
				return
			}

			requestHash, err := requestHash(r, rule)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}
			key := store.IdempotencyKey(buildScope(r), idempotencyKey)

			pending, _ := json.Marshal(idempotencyRecord{State: idempotencyStatePend, RequestHash: requestHash})
			reserved, err := store.SetNX(ctx, key, string(pending), idempotencyPendingTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
				return
			}
			if !reserved {
				replayIdempotent(ctx, store, key, requestHash, w, logg)
				return
			}

			rec := &responseCapture{ResponseWriter: w}
			completed := false
			defer func() {
				if !completed {
					// handler panicked; free the key for a retry
					_ = store.Del(context.WithoutCancel(ctx), key)
				}
			}()
			next.ServeHTTP(rec, r)
			completed = true

			record := idempotencyRecord{
				State:       idempotencyStateStored,
				Status:      defaultStatus(rec.status),
				Body:        base64.StdEncoding.EncodeToString(rec.body.Bytes()),
				RequestHash: requestHash,
			}
			if ct := rec.Header().Get("Content-Type"); ct != "" {
				record.Headers = map[string]string{"Content-Type": ct}
			}
			payload, err := json.Marshal(record)
			if err != nil {
				logError(ctx, logg, "marshal idempotency record", err)
				return
			}
			if err := store.Set(context.WithoutCancel(ctx), key, string(payload), ttl); err != nil {
				logError(ctx, logg, "persist idempotency record", err)
			}
		})
	}
}

func replayIdempotent(ctx context.Context, store pkgredis.IdempotencyStore, key, requestHash string, w http.ResponseWriter, logg *logger.Logger) {
	stored, err := store.Get(ctx, key)
	if err != nil {
		if pkgredis.IsMiss(err) {
			// reservation expired between SETNX and GET
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotent request still in progress"))
			return
		}
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	}
	var record idempotencyRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	if record.RequestHash != requestHash {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
		return
	}
	if record.State != idempotencyStateStored {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotent request still in progress"))
		return
	}
	w.Header().Set("Idempotent-Replayed", "true")
	if ct, ok := record.Headers["Content-Type"]; ok && ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(record.Status)
	if decoded, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

func matchIdempotencyRule(r *http.Request) (idempotencyRule, bool) {
	if r.Method != http.MethodPost {
		return idempotencyRule{}, false
	}
	path := strings.TrimRight(r.URL.Path, "/")
	for _, rule := range idempotencyRules {
		if rule.path == path {
			return rule, true
		}
	}
	return idempotencyRule{}, false
}

func requestHash(r *http.Request, rule idempotencyRule) (string, error) {
	if !rule.hashBody {
		return hashBytes([]byte(mediaType(r) + "|" + strconv.FormatInt(r.ContentLength, 10))), nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return hashBytes(body), nil
}

// mediaType drops parameters such as the multipart boundary, which a client
// regenerates every time it encodes the same upload.
func mediaType(r *http.Request) string {
	raw := r.Header.Get("Content-Type")
	mt, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	return mt
}

func buildScope(r *http.Request) string {
	caller, _ := CallerFromContext(r.Context())
	return strings.Join([]string{caller.Hex(), r.Method, r.URL.Path}, "|")
}

func hashBytes(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func defaultStatus(value int) int {
	if value == 0 {
		return http.StatusOK
	}
	return value
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
