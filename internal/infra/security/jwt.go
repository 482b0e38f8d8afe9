package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid indicates the token is malformed or its signature does not verify.
	ErrTokenInvalid = errors.New("jwt: token invalid")
	// ErrTokenExpired indicates the token's embedded expiry has passed.
	ErrTokenExpired = errors.New("jwt: token expired")
)

// SessionClaims carries the authenticated user identity inside both token kinds.
type SessionClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies the access/refresh token pair. The two kinds
// are signed with distinct secrets so compromise of one cannot forge the
// other. Verification is a pure cryptographic check; refresh-token store
// presence is a separate, explicit step owned by the session service.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	issuer        string
	now           func() time.Time
}

const defaultAccessTokenTTL = 5 * time.Minute

// NewTokenIssuer constructs a TokenIssuer. Both secrets are required and
// must differ.
func NewTokenIssuer(accessSecret, refreshSecret string, accessTTL time.Duration, issuer string) (*TokenIssuer, error) {
	accessSecret = strings.TrimSpace(accessSecret)
	refreshSecret = strings.TrimSpace(refreshSecret)
	if accessSecret == "" || refreshSecret == "" {
		return nil, fmt.Errorf("jwt: both signing secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, fmt.Errorf("jwt: access and refresh secrets must differ")
	}
	if accessTTL <= 0 {
		accessTTL = defaultAccessTokenTTL
	}

	return &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		issuer:        issuer,
		now:           time.Now,
	}, nil
}

// IssueAccessToken signs a short-lived access token for the user.
func (i *TokenIssuer) IssueAccessToken(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("jwt: user id is required")
	}

	now := i.now().UTC()
	claims := SessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.accessTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.accessSecret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign access token: %w", err)
	}

	return signed, nil
}

// IssueRefreshToken signs a refresh token for the user. The claim set
// deliberately carries no expiry: the token's trust derives from its
// presence in the refresh token store, not from signature lifetime.
func (i *TokenIssuer) IssueRefreshToken(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("jwt: user id is required")
	}

	claims := SessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   i.issuer,
			IssuedAt: jwt.NewNumericDate(i.now().UTC()),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign refresh token: %w", err)
	}

	return signed, nil
}

// VerifyAccessToken validates signature and expiry and returns the user id.
func (i *TokenIssuer) VerifyAccessToken(token string) (string, error) {
	return i.verify(token, i.accessSecret)
}

// VerifyRefreshToken validates the refresh token signature and returns the user id.
func (i *TokenIssuer) VerifyRefreshToken(token string) (string, error) {
	return i.verify(token, i.refreshSecret)
}

func (i *TokenIssuer) verify(token string, secret []byte) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrTokenInvalid
	}

	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return i.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}

	if parsed == nil || !parsed.Valid || strings.TrimSpace(claims.UserID) == "" {
		return "", ErrTokenInvalid
	}

	return claims.UserID, nil
}

// WithClock overrides the issuer's clock, used in tests.
func (i *TokenIssuer) WithClock(clock func() time.Time) {
	if clock != nil {
		i.now = clock
	}
}
