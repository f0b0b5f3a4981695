package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brojonat/blinkpay/service/db/dbgen"
	"github.com/brojonat/blinkpay/service/links"
	"github.com/brojonat/blinkpay/service/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const kvTable = "kv"

// Store is a Postgres-backed key-value store for payment links.
// It wraps the generated sqlc queries and implements links.Store.
type Store struct {
	pool    *pgxpool.Pool
	q       *dbgen.Queries
	ttl     time.Duration
	metrics *metrics.Metrics
}

// NewStore creates a new Store with the given database connection pool.
// Records never expire unless WithTTL is applied.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
		q:    dbgen.New(pool),
	}
}

// WithTTL sets how long newly written links remain readable. Zero disables expiry.
func (s *Store) WithTTL(ttl time.Duration) *Store {
	s.ttl = ttl
	return s
}

// WithMetrics records query timings on m.
func (s *Store) WithMetrics(m *metrics.Metrics) *Store {
	s.metrics = m
	return s
}

// StoredLink is a link record together with its storage metadata.
type StoredLink struct {
	ID        string        `json:"id"`
	Record    *links.Record `json:"record"`
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt *time.Time    `json:"expires_at,omitempty"`
}

// Get loads the record stored under link:<id>. Expired rows are treated as absent.
func (s *Store) Get(ctx context.Context, id string) (*links.Record, error) {
	start := time.Now()
	row, err := s.q.GetValue(ctx, links.StoreKey(id))
	s.record("get", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, links.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get link %s: %w", id, err)
	}

	var rec links.Record
	if err := json.Unmarshal(row.Value, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode link %s: %w", id, err)
	}
	return &rec, nil
}

// Set writes rec under link:<id>, replacing any previous value.
func (s *Store) Set(ctx context.Context, id string, rec *links.Record) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode link %s: %w", id, err)
	}

	var expiresAt pgtype.Timestamptz
	if s.ttl > 0 {
		expiresAt = pgtype.Timestamptz{Time: time.Now().Add(s.ttl), Valid: true}
	}

	start := time.Now()
	_, err = s.q.SetValue(ctx, dbgen.SetValueParams{
		Key:       links.StoreKey(id),
		Value:     value,
		ExpiresAt: expiresAt,
	})
	s.record("set", start, err)
	if err != nil {
		return fmt.Errorf("failed to store link %s: %w", id, err)
	}
	return nil
}

// ListLinks returns up to limit live links, newest first.
func (s *Store) ListLinks(ctx context.Context, limit int32) ([]*StoredLink, error) {
	start := time.Now()
	rows, err := s.q.ListValuesByPrefix(ctx, dbgen.ListValuesByPrefixParams{
		Prefix:     links.StoreKey(""),
		LimitCount: limit,
	})
	s.record("list", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	out := make([]*StoredLink, 0, len(rows))
	for _, row := range rows {
		stored, err := kvToStoredLink(row)
		if err != nil {
			return nil, err
		}
		out = append(out, stored)
	}
	return out, nil
}

// PurgeExpired deletes expired rows and returns how many were removed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := s.q.DeleteExpired(ctx)
	s.record("purge", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired links: %w", err)
	}
	return n, nil
}

func (s *Store) record(op string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	// A missing row is a normal lookup result.
	if errors.Is(err, pgx.ErrNoRows) {
		err = nil
	}
	s.metrics.RecordDBQuery(op, kvTable, time.Since(start).Seconds(), err)
}

func kvToStoredLink(row dbgen.Kv) (*StoredLink, error) {
	var rec links.Record
	if err := json.Unmarshal(row.Value, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", row.Key, err)
	}

	stored := &StoredLink{
		ID:        strings.TrimPrefix(row.Key, links.StoreKey("")),
		Record:    &rec,
		CreatedAt: row.CreatedAt.Time,
	}
	if row.ExpiresAt.Valid {
		t := row.ExpiresAt.Time
		stored.ExpiresAt = &t
	}
	return stored, nil
}
