// Package auth provides API key generation, hashing and verification.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// APIKeyPrefix is the prefix for all Clearview API keys.
	APIKeyPrefix = "cvw_"
	// APIKeyLength is the expected length of the hex portion of the API key.
	APIKeyLength = 64 // 32 bytes = 64 hex chars
	// DisplayPrefixLength is the number of leading key characters safe to
	// show in UIs and audit entries.
	DisplayPrefixLength = 8
	// HashCost is the bcrypt cost factor for API key hashes.
	HashCost = 10
)

// GenerateAPIKey produces a new API key from 32 bytes of cryptographically
// secure randomness. Returns the plaintext key and its display prefix. The
// plaintext is returned exactly once; only its hash is ever stored.
func GenerateAPIKey() (key, displayPrefix string, err error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("generate key material: %w", err)
	}
	key = APIKeyPrefix + hex.EncodeToString(raw)
	return key, key[:DisplayPrefixLength], nil
}

// HashAPIKey creates a salted bcrypt hash of an API key for storage.
func HashAPIKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), HashCost)
	if err != nil {
		return "", fmt.Errorf("hash api key: %w", err)
	}
	return string(hash), nil
}

// CompareAPIKeyHash checks a candidate key against a stored bcrypt hash.
// bcrypt comparison is constant-time with respect to the hash contents.
func CompareAPIKeyHash(candidate, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(candidate)) == nil
}

// IsValidAPIKeyFormat checks if the API key has the correct format.
func IsValidAPIKeyFormat(apiKey string) bool {
	if !strings.HasPrefix(apiKey, APIKeyPrefix) {
		return false
	}
	hexPart := strings.TrimPrefix(apiKey, APIKeyPrefix)
	if len(hexPart) != APIKeyLength {
		return false
	}
	// Verify it's valid hex
	_, err := hex.DecodeString(hexPart)
	return err == nil
}

// DisplayPrefix returns the non-secret leading portion of a key.
func DisplayPrefix(apiKey string) string {
	if len(apiKey) < DisplayPrefixLength {
		return apiKey
	}
	return apiKey[:DisplayPrefixLength]
}

// ExtractBearerToken extracts the token from an Authorization header value.
// Returns empty string if the header is not a valid Bearer token.
func ExtractBearerToken(authHeader string) string {
	const prefix = "Bearer "
	if len(authHeader) < len(prefix) {
		return ""
	}
	if !strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(authHeader[len(prefix):])
}
