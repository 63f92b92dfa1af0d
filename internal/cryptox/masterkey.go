package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"

	"github.com/awnumar/memguard"
	"github.com/dmitrijs2005/zkvault/internal/common"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// NonceSize is the AES-GCM IV length in bytes (96 bits).
	NonceSize = 12
	// TagSize is the AES-GCM authentication tag length in bytes (128 bits).
	TagSize = 16
)

// MasterKey is an AES-256-GCM key sealed in a memguard enclave.
// It is immutable and safe for concurrent use.
type MasterKey struct {
	enclave     *memguard.Enclave
	extractable bool
}

// KeySource hands out the active master key.
// Implementations return common.ErrKeyNotDerived when no key is active.
type KeySource interface {
	Key() (*MasterKey, error)
}

// KeyFromBytes seals raw into a new MasterKey. raw is wiped.
func KeyFromBytes(raw []byte, extractable bool) (*MasterKey, error) {
	if len(raw) != KeySize {
		common.WipeByteArray(raw)
		return nil, fmt.Errorf("invalid key length %d, want %d", len(raw), KeySize)
	}
	return &MasterKey{enclave: memguard.NewEnclave(raw), extractable: extractable}, nil
}

// Extractable reports whether the key may be exported with ExportJWK.
func (k *MasterKey) Extractable() bool {
	return k.extractable
}

// Key makes a single MasterKey usable as a KeySource.
func (k *MasterKey) Key() (*MasterKey, error) {
	if k == nil {
		return nil, common.ErrKeyNotDerived
	}
	return k, nil
}

// withAEAD opens the enclave for the duration of fn only.
func (k *MasterKey) withAEAD(fn func(aead cipher.AEAD) error) error {
	buf, err := k.enclave.Open()
	if err != nil {
		return fmt.Errorf("open key enclave: %w", err)
	}
	defer buf.Destroy()

	block, err := aes.NewCipher(buf.Bytes())
	if err != nil {
		return err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return err
	}
	return fn(aead)
}

// withRaw exposes a copy of the raw key bytes to fn and wipes it afterwards.
func (k *MasterKey) withRaw(fn func(raw []byte) error) error {
	buf, err := k.enclave.Open()
	if err != nil {
		return fmt.Errorf("open key enclave: %w", err)
	}
	defer buf.Destroy()

	raw := make([]byte, buf.Size())
	copy(raw, buf.Bytes())
	defer common.WipeByteArray(raw)
	return fn(raw)
}

// MakeVerifier returns a one-way fingerprint of the key, used to recognize
// the key a local store was created with.
func MakeVerifier(k *MasterKey) ([]byte, error) {
	if k == nil {
		return nil, common.ErrKeyNotDerived
	}
	var out []byte
	err := k.withRaw(func(raw []byte) error {
		h := sha256.New()
		h.Write([]byte("zkvault/store-verifier/v1"))
		h.Write(raw)
		out = h.Sum(nil)
		return nil
	})
	return out, err
}
