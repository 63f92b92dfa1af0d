package cryptox

import (
	"crypto/cipher"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/zkvault/internal/common"
)

// WireMarker tags a stored string as FieldCipher output.
const WireMarker = "ZK1:"

// EncryptedScalar is the output of FieldCipher.Encrypt.
type EncryptedScalar struct {
	CipherText string `json:"cipherText"`
	IV         string `json:"iv"`
}

// Packed is the parsed form of a wire-formatted value.
type Packed struct {
	IV         string
	CipherText string
}

// FieldCipher encrypts single scalar values under the active master key.
// It holds no state besides its KeySource and is safe for concurrent use.
type FieldCipher struct {
	keys KeySource
}

// NewFieldCipher returns a FieldCipher reading the key from keys.
func NewFieldCipher(keys KeySource) *FieldCipher {
	return &FieldCipher{keys: keys}
}

// Encrypt authenticated-encrypts plaintext with a fresh random 96-bit IV.
func (c *FieldCipher) Encrypt(plaintext string) (*EncryptedScalar, error) {
	key, err := c.keys.Key()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := randRead(nonce); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	var sealed []byte
	err = key.withAEAD(func(aead cipher.AEAD) error {
		sealed = aead.Seal(nil, nonce, []byte(plaintext), nil)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &EncryptedScalar{
		CipherText: base64.StdEncoding.EncodeToString(sealed),
		IV:         base64.StdEncoding.EncodeToString(nonce),
	}, nil
}

// Decrypt reverses Encrypt. Malformed input and authentication failures
// both return common.ErrDecryptionFailed.
func (c *FieldCipher) Decrypt(cipherText, iv string) (string, error) {
	key, err := c.keys.Key()
	if err != nil {
		return "", err
	}

	nonce, err := base64.StdEncoding.DecodeString(iv)
	if err != nil || len(nonce) != NonceSize {
		return "", common.ErrDecryptionFailed
	}
	sealed, err := base64.StdEncoding.DecodeString(cipherText)
	if err != nil || len(sealed) < TagSize {
		return "", common.ErrDecryptionFailed
	}

	var plaintext []byte
	err = key.withAEAD(func(aead cipher.AEAD) error {
		var openErr error
		plaintext, openErr = aead.Open(nil, nonce, sealed, nil)
		return openErr
	})
	if err != nil {
		return "", common.ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// Seal encrypts plaintext and returns it in wire format.
func (c *FieldCipher) Seal(plaintext string) (string, error) {
	enc, err := c.Encrypt(plaintext)
	if err != nil {
		return "", err
	}
	return Pack(enc.IV, enc.CipherText), nil
}

// Open decrypts a wire-formatted value. Values without the marker are legacy
// cleartext and are returned unchanged; a marked value that cannot be parsed
// or authenticated fails with common.ErrDecryptionFailed.
func (c *FieldCipher) Open(stored string) (string, error) {
	if !IsEncrypted(stored) {
		return stored, nil
	}
	p, ok := Unpack(stored)
	if !ok {
		return "", common.ErrDecryptionFailed
	}
	return c.Decrypt(p.CipherText, p.IV)
}

// Pack builds the wire format WireMarker + iv + ":" + cipherText.
func Pack(iv, cipherText string) string {
	return WireMarker + iv + ":" + cipherText
}

// Unpack parses a wire-formatted value. It reports false for any string
// lacking the marker or either part.
func Unpack(wire string) (Packed, bool) {
	rest, ok := strings.CutPrefix(wire, WireMarker)
	if !ok {
		return Packed{}, false
	}
	iv, ct, ok := strings.Cut(rest, ":")
	if !ok || iv == "" || ct == "" {
		return Packed{}, false
	}
	return Packed{IV: iv, CipherText: ct}, true
}

// IsEncrypted reports whether v is a string carrying the wire marker.
func IsEncrypted(v any) bool {
	s, ok := v.(string)
	return ok && strings.HasPrefix(s, WireMarker)
}
