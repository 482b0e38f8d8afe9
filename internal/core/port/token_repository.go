package port

import (
	"context"

	"github.com/solovyshn/Blockly-for-Dwenguino/internal/core/domain"
)

// RefreshTokenRepository is the sole revocation mechanism for refresh
// tokens: deleting a row invalidates that session instantly regardless of
// signature validity.
type RefreshTokenRepository interface {
	Exists(ctx context.Context, tokenHash string) (bool, error)
	// Save persists the token only if the hash is not already present.
	Save(ctx context.Context, token domain.RefreshToken) error
	DeleteByToken(ctx context.Context, tokenHash string) error
	DeleteByTokenAndEmail(ctx context.Context, tokenHash, email string) error
}
