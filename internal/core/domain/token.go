package domain

import "time"

// CodePurpose scopes a confirmation code to the flow that issued it.
// A password reset code can never satisfy an account verification check.
type CodePurpose string

const (
	CodePurposeActivation    CodePurpose = "activation"
	CodePurposePasswordReset CodePurpose = "password_reset"
)

// ConfirmationCode is a one-time secret bound to an email address,
// delivered out-of-band to prove control of that address.
type ConfirmationCode struct {
	Purpose   CodePurpose
	Email     string
	Code      string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// RefreshToken is a persisted, revocable session handle. Presence in the
// store is the sole authority for validity; the signed token itself carries
// no expiry.
type RefreshToken struct {
	TokenHash string
	Email     string
	CreatedAt time.Time
}

// TokenPair is the transient credential set handed to the client inside the
// session cookie. Never persisted as a unit.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthContext is the per-request identity derived by a guard. UserID is
// empty when the soft guard could not resolve an identity.
type AuthContext struct {
	UserID string
}
