package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_EncodeAndMatches(t *testing.T) {
	t.Parallel()

	h := NewHasher(bcrypt.MinCost)
	hash, err := h.Encode("P@ssw0rd!")
	require.NoError(t, err)
	assert.NotEqual(t, "P@ssw0rd!", hash)
	assert.True(t, h.Matches("P@ssw0rd!", hash))
	assert.False(t, h.Matches("p@ssw0rd!", hash))
	assert.False(t, h.Matches("", hash))
}

func TestHasher_EncodeProducesRecognizableHash(t *testing.T) {
	t.Parallel()

	h := NewHasher(bcrypt.MinCost)
	hash, err := h.Encode("P@ssw0rd!")
	require.NoError(t, err)
	p, err := PasswordFromEncoded(hash)
	require.NoError(t, err)
	assert.True(t, p.IsEncoded())
}

func TestHasher_SaltedEncoding(t *testing.T) {
	t.Parallel()

	h := NewHasher(bcrypt.MinCost)
	a, err := h.Encode("P@ssw0rd!")
	require.NoError(t, err)
	b, err := h.Encode("P@ssw0rd!")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "two encodings of the same password must differ by salt")
}

func TestHasher_CostFloor(t *testing.T) {
	t.Parallel()

	// Production costs below the floor are raised; bcrypt.MinCost is an
	// explicit test escape hatch.
	h := NewHasher(5)
	assert.Equal(t, MinBcryptCost, h.cost)
	assert.Equal(t, bcrypt.MinCost, NewHasher(bcrypt.MinCost).cost)
}

func TestHasher_GenerateRandom(t *testing.T) {
	t.Parallel()

	h := NewHasher(bcrypt.MinCost)
	a, err := h.GenerateRandom(24)
	require.NoError(t, err)
	assert.Len(t, a, 24)

	b, err := h.GenerateRandom(24)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	empty, err := h.GenerateRandom(0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestHasher_IsStrong(t *testing.T) {
	t.Parallel()

	h := NewHasher(bcrypt.MinCost)
	assert.True(t, h.IsStrong("P@ssw0rd!"))
	assert.False(t, h.IsStrong("weak"))
	assert.False(t, h.IsCompromised("P@ssw0rd!"))
}
