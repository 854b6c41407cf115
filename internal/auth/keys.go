package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// KeyPrefix marks keys issued by targetctl.
	KeyPrefix = "tgk_"
	// KeyLength is the number of random bytes behind a key.
	KeyLength = 32
	// BCryptCost is the bcrypt cost of stored key hashes.
	BCryptCost = 12
)

// ErrMalformedKeyEntry is returned for an API_KEY_HASHES entry that is not role:hash.
var ErrMalformedKeyEntry = errors.New("malformed api key entry")

// Role is the access level of an API key.
type Role string

const (
	// RoleReadonly may read the catalog and targetings and run validation.
	RoleReadonly Role = "readonly"
	// RoleAdmin may additionally save and delete targetings.
	RoleAdmin Role = "admin"
)

var roleRank = map[Role]int{RoleReadonly: 1, RoleAdmin: 2}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Covers reports whether a caller holding r may act where required is
// needed. Unknown roles cover nothing.
func (r Role) Covers(required Role) bool {
	have, ok := roleRank[r]
	if !ok {
		return false
	}
	return have >= roleRank[required]
}

// KeyEntry is one configured API key: its role and bcrypt hash.
type KeyEntry struct {
	Role Role
	Hash string
}

// GenerateAPIKey returns a new random key carrying KeyPrefix.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, KeyLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return KeyPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashAPIKey returns the bcrypt hash to put in API_KEY_HASHES for key.
func HashAPIKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), BCryptCost)
	if err != nil {
		return "", fmt.Errorf("hash api key: %w", err)
	}
	return string(hash), nil
}

// ParseKeyEntries parses role:hash entries as configured in API_KEY_HASHES.
func ParseKeyEntries(raw []string) ([]KeyEntry, error) {
	entries := make([]KeyEntry, 0, len(raw))
	for i, item := range raw {
		role, hash, ok := strings.Cut(strings.TrimSpace(item), ":")
		if !ok || hash == "" {
			return nil, fmt.Errorf("%w: entry %d must be role:hash", ErrMalformedKeyEntry, i)
		}
		if !Role(role).Valid() {
			return nil, fmt.Errorf("%w: entry %d has unknown role %q", ErrMalformedKeyEntry, i, role)
		}
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("%w: entry %d is not a bcrypt hash: %v", ErrMalformedKeyEntry, i, err)
		}
		entries = append(entries, KeyEntry{Role: Role(role), Hash: hash})
	}
	return entries, nil
}
