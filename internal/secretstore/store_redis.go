package secretstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"vaultd/internal/domain"
	"vaultd/pkg/secrets"
)

const secretKeyPrefix = "vks:holder:"

// Redis stores hashed viewing secrets in Redis so every instance of a
// distributed deployment checks the same credential state.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (s *Redis) Set(ctx context.Context, holderID, secret string) error {
	hash, err := secrets.Hash(secret)
	if err != nil {
		return err
	}
	// Viewing secrets do not expire; identity entries are never deleted.
	if err := s.client.Set(ctx, secretKeyPrefix+holderID, hash, 0).Err(); err != nil {
		return fmt.Errorf("store viewing secret: %w", err)
	}
	return nil
}

func (s *Redis) Check(ctx context.Context, holderID, secret string) error {
	hash, err := s.client.Get(ctx, secretKeyPrefix+holderID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.InvalidKeyError{}
		}
		return fmt.Errorf("load viewing secret: %w", err)
	}
	if err := secrets.Verify(secret, hash); err != nil {
		return domain.InvalidKeyError{}
	}
	return nil
}
