// Package idempotency is a BoltDB-backed idempotency.Store for single-node
// deployments that run without Postgres but need replay records to survive a restart.
package idempotency

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	bolt "github.com/boltdb/bolt"

	"github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/idempotency"
)

const bucketName = "idempotency_keys"

// Store keeps one JSON record per fingerprint in a single bucket.
type Store struct {
	db *bolt.DB
}

type storedRecord struct {
	StatusCode  int       `json:"status_code"`
	ContentType string    `json:"content_type"`
	Body        []byte    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
}

// Open opens (or creates) the database file at path and ensures the bucket exists.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	_ = ctx
	var (
		rec   idempotency.Record
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketName)).Get(key(fp))
		if v == nil {
			return nil
		}
		var sr storedRecord
		if err := json.Unmarshal(v, &sr); err != nil {
			return err
		}
		rec = idempotency.Record{
			StatusCode:  sr.StatusCode,
			ContentType: sr.ContentType,
			Body:        sr.Body,
			CreatedAt:   sr.CreatedAt.UTC(),
		}
		found = true
		return nil
	})
	if err != nil {
		return idempotency.Record{}, false, fmt.Errorf("read idempotency record: %w", err)
	}
	return rec, found, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	_ = ctx
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	data, err := json.Marshal(storedRecord{
		StatusCode:  rec.StatusCode,
		ContentType: rec.ContentType,
		Body:        rec.Body,
		CreatedAt:   createdAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode idempotency record: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put(key(fp), data)
	})
}

// key joins the fingerprint parts with NUL, which cannot appear in any of them.
func key(fp idempotency.Fingerprint) []byte {
	return []byte(strings.Join([]string{
		string(fp.Key),
		string(fp.UserID),
		fp.Method,
		fp.Route,
		fp.BodyHash,
	}, "\x00"))
}
