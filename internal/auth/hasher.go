package auth

import (
	"crypto/rand"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// MinBcryptCost is the lowest cost accepted for production hashing. Tests
// may construct a hasher with bcrypt.MinCost explicitly.
const MinBcryptCost = 10

// Hasher performs one-way password hashing and verification using bcrypt.
// The zero value is not usable; construct with NewHasher.
type Hasher struct {
	cost int
}

// NewHasher returns a bcrypt-backed hasher. Costs below MinBcryptCost are
// raised to it unless the caller passes bcrypt.MinCost exactly, which is
// allowed for tests where hashing speed matters.
func NewHasher(cost int) *Hasher {
	if cost != bcrypt.MinCost && cost < MinBcryptCost {
		cost = MinBcryptCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

// Encode hashes the raw password with a random salt.
func (h *Hasher) Encode(raw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(raw), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Matches compares a raw password against an encoded hash. bcrypt performs
// the comparison in constant time at the digest level.
func (h *Hasher) Matches(raw, encoded string) bool {
	return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(raw)) == nil
}

// GenerateRandom returns a cryptographically strong random string of the
// requested length (hex alphabet).
func (h *Hasher) GenerateRandom(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	buf := make([]byte, (length+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf)[:length], nil
}

// IsStrong applies the same policy as NewPassword.
func (h *Hasher) IsStrong(raw string) bool {
	_, err := NewPassword(raw)
	return err == nil
}

// IsCompromised checks the password against known breach corpora. The
// reference implementation has no corpus and always reports false.
func (h *Hasher) IsCompromised(raw string) bool {
	return false
}
