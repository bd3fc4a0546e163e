package pay

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"time"

	"trendaryo/apperr"
	"trendaryo/repository"
	"trendaryo/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	IdempotencyTTL    = 24 * time.Hour
	maxKeyLength      = 255
	maxBodyBytes      = 1 << 20
)

// Idempotency replays the stored response of a request repeated with the
// same Idempotency-Key. Reusing a key for a different request is a 409.
type Idempotency struct {
	Records repository.IdempotencyRepository
	TTL     time.Duration
	Now     func() time.Time
}

func (m *Idempotency) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now().UTC()
}

func (m *Idempotency) ttl() time.Duration {
	if m.TTL > 0 {
		return m.TTL
	}
	return IdempotencyTTL
}

func computeRequestHash(r *http.Request, body []byte, userID string) string {
	h := sha256.New()
	h.Write([]byte(r.Method + ":" + r.URL.Path + ":" + userID + ":"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// captureWriter tees the response so it can be stored after the handler runs.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (c *captureWriter) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.buf.Write(b)
	return c.ResponseWriter.Write(b)
}

func (m *Idempotency) Wrap(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		key := r.Header.Get(IdempotencyHeader)
		if key == "" {
			next(w, r, ps)
			return
		}
		if len(key) > maxKeyLength {
			utils.RespondWithErr(w, r, apperr.Validation("%s is too long", IdempotencyHeader))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			utils.RespondWithErr(w, r, apperr.Validation("failed to read request body"))
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		userID := utils.GetUserIDFromRequest(r)
		hash := computeRequestHash(r, body, userID)
		scoped := userID + ":" + key

		ctx := r.Context()
		existing, err := m.Records.Get(ctx, scoped)
		switch {
		case err == nil && m.now().Before(existing.ExpiresAt):
			if existing.RequestHash != hash {
				utils.RespondWithErr(w, r, apperr.Conflict("%s was already used for a different request", IdempotencyHeader))
				return
			}
			if existing.ContentType != "" {
				w.Header().Set("Content-Type", existing.ContentType)
			}
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(existing.StatusCode)
			_, _ = w.Write(existing.Body)
			return
		case err != nil && !errors.Is(err, apperr.ErrNotFound):
			utils.RespondWithErr(w, r, err)
			return
		}

		cw := &captureWriter{ResponseWriter: w}
		next(cw, r, ps)

		// Server errors are not stored so the client can retry.
		if cw.status == 0 || cw.status >= http.StatusInternalServerError {
			return
		}
		now := m.now()
		rec := &repository.IdempotencyRecord{
			Key:         scoped,
			RequestHash: hash,
			StatusCode:  cw.status,
			Body:        cw.buf.Bytes(),
			ContentType: cw.Header().Get("Content-Type"),
			CreatedAt:   now,
			ExpiresAt:   now.Add(m.ttl()),
		}
		if err := m.Records.Put(context.WithoutCancel(ctx), rec); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("store idempotent response")
		}
	}
}
