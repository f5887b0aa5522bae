package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var isRevokedDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "vaultd_permit_revocation_check_duration_ms",
	Help:    "Latency of permit revocation checks in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const revokedPermitKeyPrefix = "prl:jti:"

// RedisList is a Redis-backed revocation list shared by all instances of a
// distributed deployment.
type RedisList struct {
	client *redis.Client
}

// NewRedisList constructs a Redis-backed permit revocation list.
func NewRedisList(client *redis.Client) *RedisList {
	return &RedisList{client: client}
}

// Revoke adds a permit id to the revocation list with TTL. Uses SET with
// expiry for an atomic set-with-expiry.
func (l *RedisList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	key := revokedPermitKeyPrefix + jti
	// Store "1" as a marker; key existence is what matters.
	if err := l.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke permit: %w", err)
	}
	return nil
}

// IsRevoked checks whether a permit id is on the list.
func (l *RedisList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	start := time.Now()
	defer func() {
		isRevokedDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if jti == "" {
		return false, nil
	}
	err := l.client.Get(ctx, revokedPermitKeyPrefix+jti).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("check permit revocation: %w", err)
	}
	return true, nil
}
