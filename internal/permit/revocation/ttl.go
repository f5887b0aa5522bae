package revocation

import (
	"fmt"
	"time"
)

const (
	// minTTL guards against accidental immediate expiry.
	minTTL = time.Second
	// maxTTL bounds revocation-list growth; permits are short-lived tokens
	// and a revocation only needs to outlive its permit.
	maxTTL = 90 * 24 * time.Hour
)

func validateTTL(ttl time.Duration) error {
	if ttl < minTTL {
		return fmt.Errorf("revocation ttl %s below minimum %s", ttl, minTTL)
	}
	if ttl > maxTTL {
		return fmt.Errorf("revocation ttl %s above maximum %s", ttl, maxTTL)
	}
	return nil
}
