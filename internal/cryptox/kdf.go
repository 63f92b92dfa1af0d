package cryptox

import (
	"crypto/sha256"

	"github.com/dmitrijs2005/zkvault/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

// KDFIterations is the PBKDF2 work factor.
const KDFIterations = 600_000

// DeriveKey turns (password, salt) into an extractable AES-256-GCM key using
// PBKDF2-HMAC-SHA-256. The salt is used as an opaque string: its UTF-8 bytes
// are the KDF salt. Identical inputs always yield the same key, which is what
// lets two devices reach the same key without transmitting it.
func DeriveKey(password, salt string) (*MasterKey, error) {
	if salt == "" {
		return nil, common.ErrSaltMissing
	}
	raw := pbkdf2.Key([]byte(password), []byte(salt), KDFIterations, KeySize, sha256.New)
	return KeyFromBytes(raw, true)
}
