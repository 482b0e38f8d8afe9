package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// urlSafeAlphabet matches the characters a confirmation code may contain so
// the code survives embedding in an emailed link without escaping.
const urlSafeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// GenerateURLSafeCode returns a random code of the given length drawn from a
// URL-safe alphabet.
func GenerateURLSafeCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}

	code := make([]byte, length)
	for i, b := range buf {
		code[i] = urlSafeAlphabet[int(b)%len(urlSafeAlphabet)]
	}

	return string(code), nil
}

// HashToken calculates a SHA-256 hash of the provided value, used to store
// refresh tokens without keeping the raw material at rest.
func HashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
