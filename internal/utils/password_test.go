package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := HashPassword("s3cret!", bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, IsHashed(hash))
	assert.True(t, VerifyPassword(hash, "s3cret!"))
	assert.False(t, VerifyPassword(hash, "S3cret!"))
}

func TestIsHashed(t *testing.T) {
	hash, err := HashPassword("s3cret!", bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, IsHashed(hash))
	assert.False(t, IsHashed("s3cret!"))
	assert.False(t, IsHashed(""))
	assert.False(t, IsHashed("$2a$10$short"))
}

func TestDummyCompareDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() { DummyCompare(bcrypt.MinCost, "anything") })
}

func TestDummyHashFollowsConfiguredCost(t *testing.T) {
	for _, cost := range []int{bcrypt.MinCost, bcrypt.MinCost + 1} {
		got, err := bcrypt.Cost(dummyHashFor(cost))
		require.NoError(t, err)
		assert.Equal(t, cost, got)
	}
	// cached per cost
	assert.Equal(t, dummyHashFor(bcrypt.MinCost), dummyHashFor(bcrypt.MinCost))
}
