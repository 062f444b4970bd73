package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Overland-East-Bay/trip-wallet-api/internal/domain"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/platform/logging"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/idempotency"
)

// idempotentCall tracks one request carrying an Idempotency-Key.
//
// Two records are kept per key: a meta record (empty BodyHash) holding the hash of
// the body that succeeded, and a response record keyed by that hash. Both are
// written only after a 2xx, so a rejected request leaves the key free for a retry
// with a corrected body. Once recorded, a different body under the same key is a
// conflict and the same body replays the stored response.
type idempotentCall struct {
	meta     idempotency.Fingerprint
	fp       idempotency.Fingerprint
	recorded bool
	active   bool
	conflict bool
	replay   *idempotency.Record
}

func (s *Server) beginIdempotent(r *http.Request, caller domain.UserID, route string, body any) (idempotentCall, error) {
	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if s.Idem == nil || key == "" {
		return idempotentCall{}, nil
	}
	bodyHash, err := hashBody(body)
	if err != nil {
		return idempotentCall{}, err
	}

	ctx := r.Context()
	metaFP := idempotency.Fingerprint{
		Key:    idempotency.Key(key),
		UserID: caller,
		Method: r.Method,
		Route:  route,
	}
	meta, ok, err := s.Idem.Get(ctx, metaFP)
	if err != nil {
		return idempotentCall{}, fmt.Errorf("load idempotency meta: %w", err)
	}
	if ok && string(meta.Body) != bodyHash {
		return idempotentCall{conflict: true}, nil
	}

	respFP := metaFP
	respFP.BodyHash = bodyHash
	call := idempotentCall{meta: metaFP, fp: respFP, recorded: ok, active: true}
	rec, ok, err := s.Idem.Get(ctx, respFP)
	if err != nil {
		return idempotentCall{}, fmt.Errorf("load idempotency record: %w", err)
	}
	if ok && rec.StatusCode == http.StatusCreated && strings.HasPrefix(rec.ContentType, "application/json") {
		call.replay = &rec
	}
	return call, nil
}

// finishIdempotent claims the key for this body and stores the response for
// replay. Only successful responses are recorded. Failures are logged; the request
// itself has already succeeded.
func (s *Server) finishIdempotent(r *http.Request, call idempotentCall, status int, resp any) {
	if !call.active || status < 200 || status > 299 {
		return
	}
	var err error
	if !call.recorded {
		err = s.Idem.Put(r.Context(), call.meta, idempotency.Record{
			ContentType: "text/plain",
			Body:        []byte(call.fp.BodyHash),
			CreatedAt:   s.Clock.Now(),
		})
	}
	var b []byte
	if err == nil {
		b, err = json.Marshal(resp)
	}
	if err == nil {
		// Match writeJSON, which encodes with a trailing newline.
		err = s.Idem.Put(r.Context(), call.fp, idempotency.Record{
			StatusCode:  status,
			ContentType: "application/json",
			Body:        append(b, '\n'),
			CreatedAt:   s.Clock.Now(),
		})
	}
	if err != nil {
		s.log.WarnContext(r.Context(), "store idempotent response",
			logging.FieldUserID, call.fp.UserID,
			logging.FieldError, err,
		)
	}
}

func hashBody(body any) (string, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
