// Package crypto provides random identifier and secret generation for Reelhub.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// Character sets for key generation
const (
	// objectKeyChars contains characters used in object key suffixes (URL-safe, lowercase).
	objectKeyChars = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// Lengths of generated values.
const (
	// ObjectKeySuffixLength is the length of the random part of a media object key.
	ObjectKeySuffixLength = 24

	// SecretSize is the number of random bytes in a generated signing secret.
	SecretSize = 32

	// TokenSize is the number of random bytes in an opaque token.
	TokenSize = 16
)

// GenerateObjectKeySuffix generates a random lowercase alphanumeric string
// used as the unique part of an uploaded object key.
func GenerateObjectKeySuffix() (string, error) {
	return generateRandomString(ObjectKeySuffixLength, objectKeyChars)
}

// GenerateSecret generates a random 32-byte secret encoded as URL-safe base64.
// Used when no JWT signing secret is configured.
func GenerateSecret() (string, error) {
	b := make([]byte, SecretSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateToken generates a random 16-byte token encoded as hex.
// Used as the ownership token of a held lock.
func GenerateToken() (string, error) {
	b := make([]byte, TokenSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// generateRandomString generates a random string of the specified length
// using characters from the provided character set.
func generateRandomString(length int, charset string) (string, error) {
	result := make([]byte, length)
	charsetLen := len(charset)

	randomBytes := make([]byte, length)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	for i := 0; i < length; i++ {
		result[i] = charset[int(randomBytes[i])%charsetLen]
	}

	return string(result), nil
}
