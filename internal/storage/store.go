// Package storage is the gateway's only persistent dependency: a small
// Redis-backed key-value store used for visit counters and
// identifier-to-token (OPID) mappings, plus the subject-scoped data GDPR's
// data-subject access and erasure endpoints need to read and forget. Nothing
// else in the gateway is durable — everything else is resolved per request
// from config or the incoming HTTP request itself.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// maxAdInteractions bounds the ad_interactions list kept per subject so a
// single long-lived synthetic ID can't grow an unbounded Redis list.
const maxAdInteractions = 200

// Store wraps a Redis client serving both the visit-counter namespace and
// the OPID (identifier-to-token) mapping namespace. A single Redis instance
// backs both; counterPrefix/opidPrefix only need to differ if the two are
// ever split onto separate logical keyspaces by configuration.
type Store struct {
	client        *redis.Client
	counterPrefix string
	opidPrefix    string
}

// New connects to the Redis instance at addr and returns a Store. Visit
// counters are namespaced under counterPrefix, identifier-to-token mappings
// under opidPrefix — both taken from gateway.Synthetic so operators can
// repoint either store independently of the other in configuration.
func New(addr, counterPrefix, opidPrefix string) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("storage: instrument redis tracing: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("storage: connect to redis at %s: %w", addr, err)
	}

	zap.L().Info("storage: connected to redis", zap.String("addr", addr))
	return &Store{client: client, counterPrefix: counterPrefix, opidPrefix: opidPrefix}, nil
}

// NewWithClient wraps an already-constructed redis client, used by tests to
// point a Store at a miniredis instance without going through New's Ping.
func NewWithClient(client *redis.Client, counterPrefix, opidPrefix string) *Store {
	return &Store{client: client, counterPrefix: counterPrefix, opidPrefix: opidPrefix}
}

// Close shuts down the underlying Redis client.
func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *Store) visitKey(subjectID string) string {
	return fmt.Sprintf("%s:visit:%s", s.counterPrefix, subjectID)
}

func (s *Store) interactionsKey(subjectID string) string {
	return fmt.Sprintf("%s:interactions:%s", s.counterPrefix, subjectID)
}

func (s *Store) consentKey(subjectID string) string {
	return fmt.Sprintf("%s:consent:%s", s.counterPrefix, subjectID)
}

func (s *Store) opidKey(subjectID string) string {
	return fmt.Sprintf("%s:%s", s.opidPrefix, subjectID)
}
