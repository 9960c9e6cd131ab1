// Package revocation хранит отозванные при logout токены до истечения их срока.
package revocation

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var bucketRevoked = []byte("revoked_tokens")

// Store - набор отозванных jti в BoltDB. Значение ключа - exp токена (unix seconds).
type Store struct {
	db  *bbolt.DB
	now func() time.Time
}

// Option настраивает Store
type Option func(*Store)

// WithClock подменяет источник времени
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open opens (or creates) the revocation database at dbPath.
func Open(dbPath string, opts ...Option) (*Store, error) {
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketRevoked); err != nil {
			return fmt.Errorf("failed to create revoked bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Revoke помечает jti отозванным до expiresAt
func (s *Store) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return fmt.Errorf("token id cannot be empty")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRevoked)
		if bucket == nil {
			return fmt.Errorf("revoked bucket not found")
		}

		expBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(expBytes, uint64(expiresAt.Unix()))

		if err := bucket.Put([]byte(jti), expBytes); err != nil {
			return fmt.Errorf("failed to revoke token: %w", err)
		}
		return nil
	})
}

// IsRevoked reports whether jti was revoked and the revocation is still in force.
// Записи с истекшим exp не считаются: такой токен и так отклоняется по сроку.
func (s *Store) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}

	var revoked bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRevoked)
		if bucket == nil {
			return fmt.Errorf("revoked bucket not found")
		}

		expBytes := bucket.Get([]byte(jti))
		if expBytes == nil {
			return nil
		}

		exp := int64(binary.BigEndian.Uint64(expBytes))
		revoked = s.now().Unix() < exp
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}

	return revoked, nil
}

// Purge удаляет записи, срок которых истек. Возвращает количество удаленных.
func (s *Store) Purge(ctx context.Context) (int, error) {
	now := s.now().Unix()
	removed := 0

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRevoked)
		if bucket == nil {
			return fmt.Errorf("revoked bucket not found")
		}

		var expired [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			if int64(binary.BigEndian.Uint64(v)) <= now {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range expired {
			if err := bucket.Delete(k); err != nil {
				return fmt.Errorf("failed to delete %q: %w", k, err)
			}
		}
		removed = len(expired)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to purge revoked tokens: %w", err)
	}

	return removed, nil
}
