package port

import (
	"context"

	"github.com/solovyshn/Blockly-for-Dwenguino/internal/core/domain"
)

// CodeRegistry stores one-time confirmation codes. Saving a code never
// invalidates earlier codes for the same email; Consume reports whether the
// exact (purpose, email, code) triple is still present and leaves deletion to
// the caller. Expiry is enforced by the store itself.
type CodeRegistry interface {
	Save(ctx context.Context, code domain.ConfirmationCode) error
	Consume(ctx context.Context, purpose domain.CodePurpose, email, code string) (bool, error)
	Delete(ctx context.Context, purpose domain.CodePurpose, email, code string) error
}
