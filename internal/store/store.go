// Package store is the worker's aggregation back-end: it dedups
// payments by correlation ID and keeps running totals the admin HTTP
// surface can report. The worker reactor writes to it, one
// RecordPayment call per decoded Payment frame; the gateway never
// touches it.
package store

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	paymentsBucket = []byte("payments")
	totalsBucket   = []byte("totals")
)

// record is what gets persisted per correlation ID, for dedup and
// auditing.
type record struct {
	CorrelationID string
	AmountCents   uint64
	ReceivedAt    time.Time
}

// Totals is the running aggregate the admin HTTP surface reports.
type Totals struct {
	TotalRequests int64
	TotalAmount   int64 // cents
}

// Store wraps one bbolt database file.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the bbolt file at path and
// ensures both buckets exist.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(paymentsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(totalsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

const totalsKey = "default"

// RecordPayment dedups by correlationID (a repeat delivery of the same
// frame — e.g. from a dispatcher retry after a partial send — is a
// no-op) and folds amountCents into the running totals in one
// transaction.
func (s *Store) RecordPayment(correlationID string, amountCents uint64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		payments := tx.Bucket(paymentsBucket)
		if payments.Get([]byte(correlationID)) != nil {
			return nil // already recorded
		}

		rec := record{CorrelationID: correlationID, AmountCents: amountCents, ReceivedAt: time.Now()}
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(&rec); err != nil {
			return fmt.Errorf("encode payment: %w", err)
		}
		if err := payments.Put([]byte(correlationID), buf.Bytes()); err != nil {
			return err
		}

		totals := tx.Bucket(totalsBucket)
		cur, err := readTotals(totals)
		if err != nil {
			return err
		}
		cur.TotalRequests++
		cur.TotalAmount += int64(amountCents)
		return writeTotals(totals, cur)
	})
}

// GetSummary returns the current running totals.
func (s *Store) GetSummary() (Totals, error) {
	var out Totals
	err := s.db.View(func(tx *bolt.Tx) error {
		t, err := readTotals(tx.Bucket(totalsBucket))
		out = t
		return err
	})
	return out, err
}

func readTotals(b *bolt.Bucket) (Totals, error) {
	data := b.Get([]byte(totalsKey))
	if data == nil {
		return Totals{}, nil
	}
	var t Totals
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&t); err != nil {
		return Totals{}, fmt.Errorf("decode totals: %w", err)
	}
	return t, nil
}

func writeTotals(b *bolt.Bucket, t Totals) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&t); err != nil {
		return fmt.Errorf("encode totals: %w", err)
	}
	return b.Put([]byte(totalsKey), buf.Bytes())
}
