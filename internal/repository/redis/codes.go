package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/solovyshn/Blockly-for-Dwenguino/internal/core/domain"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/core/port"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/repository"
)

const defaultCodePrefix = "confirmation_code"

// CodeRegistry persists one-time confirmation codes in Redis. Each code is
// its own key, so issuing a new code never invalidates earlier ones for the
// same email; the key TTL reaps stale codes lazily.
type CodeRegistry struct {
	client *red.Client
	prefix string
	now    func() time.Time
}

// NewCodeRegistry constructs a code registry with the provided Redis client
// and key prefix.
func NewCodeRegistry(client *red.Client, keyPrefix string) *CodeRegistry {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultCodePrefix
	}

	return &CodeRegistry{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

// Save persists the code under its (purpose, email, code) key with the TTL
// derived from the record's expiry.
func (r *CodeRegistry) Save(ctx context.Context, code domain.ConfirmationCode) error {
	key := r.key(code.Purpose, code.Email, code.Code)
	if key == "" {
		return errors.New("purpose, email and code are required")
	}

	createdAt := code.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now().UTC()
	}

	ttl := code.ExpiresAt.Sub(createdAt)
	if ttl <= 0 {
		return errors.New("code expiry must be after creation")
	}

	if err := r.client.Set(ctx, key, createdAt.Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("redis store confirmation code: %w", err)
	}

	return nil
}

// Consume reports whether the exact (purpose, email, code) triple is still
// present. It does not delete the key; the consuming flow decides that.
func (r *CodeRegistry) Consume(ctx context.Context, purpose domain.CodePurpose, email, code string) (bool, error) {
	key := r.key(purpose, email, code)
	if key == "" {
		return false, errors.New("purpose, email and code are required")
	}

	if err := r.client.Get(ctx, key).Err(); err != nil {
		if errors.Is(err, red.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis lookup confirmation code: %w", err)
	}

	return true, nil
}

// Delete removes the code, enforcing single-use semantics.
func (r *CodeRegistry) Delete(ctx context.Context, purpose domain.CodePurpose, email, code string) error {
	key := r.key(purpose, email, code)
	if key == "" {
		return errors.New("purpose, email and code are required")
	}

	deleted, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis delete confirmation code: %w", err)
	}
	if deleted == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// WithClock overrides the internal clock, used in tests.
func (r *CodeRegistry) WithClock(clock func() time.Time) {
	if clock != nil {
		r.now = clock
	}
}

func (r *CodeRegistry) key(purpose domain.CodePurpose, email, code string) string {
	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)
	if purpose == "" || email == "" || code == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s:%s:%s", r.prefix, purpose, email, code)
}

var _ port.CodeRegistry = (*CodeRegistry)(nil)
