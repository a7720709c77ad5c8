package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)
	assert.True(t, h.IsHashed(hash))
	assert.False(t, h.IsHashed("s3cret-pass"))

	assert.NoError(t, h.Compare(hash, "s3cret-pass"))
	assert.ErrorIs(t, h.Compare(hash, "wrong-pass"), ErrPasswordMismatch)
}

func TestBcryptHasherRejectsShortPassword(t *testing.T) {
	h := NewBcryptHasher(0)
	_, err := h.Hash("abc")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}
