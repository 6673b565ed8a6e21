package utils

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// IsHashed reports whether s already is a bcrypt digest.
func IsHashed(s string) bool {
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}

var (
	dummyMu     sync.Mutex
	dummyHashes = map[int][]byte{}
)

// dummyHashFor returns a throwaway digest of the given cost, generated once
// per cost.
func dummyHashFor(cost int) []byte {
	dummyMu.Lock()
	defer dummyMu.Unlock()
	if h, ok := dummyHashes[cost]; ok {
		return h
	}
	h, err := bcrypt.GenerateFromPassword([]byte("dummy-password"), cost)
	if err != nil {
		// out-of-range cost: bcrypt would refuse real hashes too
		h, _ = bcrypt.GenerateFromPassword([]byte("dummy-password"), bcrypt.DefaultCost)
	}
	dummyHashes[cost] = h
	return h
}

// DummyCompare spends the same bcrypt effort as VerifyPassword against a
// throwaway hash of the configured cost.  Login calls it when the email is
// unknown so both failure paths cost the same.
func DummyCompare(cost int, plain string) {
	_ = bcrypt.CompareHashAndPassword(dummyHashFor(cost), []byte(plain))
}
