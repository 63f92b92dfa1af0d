package cryptox

import (
	"crypto/cipher"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/zkvault/internal/common"
)

// EncryptedObject is a whole document sealed for replication. The AES-GCM
// tag is kept apart from the ciphertext.
type EncryptedObject struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	Tag        string `json:"tag"`
}

// ObjectCipher encrypts whole values for sync backends.
type ObjectCipher struct {
	keys KeySource
}

// NewObjectCipher returns an ObjectCipher reading the key from keys.
func NewObjectCipher(keys KeySource) *ObjectCipher {
	return &ObjectCipher{keys: keys}
}

// EncryptObject serializes v to JSON, encrypts it with a fresh IV and splits
// the trailing tag from the ciphertext.
func (c *ObjectCipher) EncryptObject(v any) (*EncryptedObject, error) {
	key, err := c.keys.Key()
	if err != nil {
		return nil, err
	}

	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("serialize object: %w", err)
	}

	nonce := make([]byte, NonceSize)
	if _, err := randRead(nonce); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	var sealed []byte
	err = key.withAEAD(func(aead cipher.AEAD) error {
		sealed = aead.Seal(nil, nonce, plaintext, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}

	split := len(sealed) - TagSize
	return &EncryptedObject{
		Ciphertext: base64.StdEncoding.EncodeToString(sealed[:split]),
		IV:         base64.StdEncoding.EncodeToString(nonce),
		Tag:        base64.StdEncoding.EncodeToString(sealed[split:]),
	}, nil
}

// DecryptObject rejoins ciphertext and tag, authenticates and decrypts the
// bundle, and unmarshals the JSON into out. The error for a bad bundle is
// always common.ErrDecryptionFailed.
func (c *ObjectCipher) DecryptObject(obj EncryptedObject, out any) error {
	key, err := c.keys.Key()
	if err != nil {
		return err
	}

	nonce, err := base64.StdEncoding.DecodeString(obj.IV)
	if err != nil || len(nonce) != NonceSize {
		return common.ErrDecryptionFailed
	}
	ciphertext, err := base64.StdEncoding.DecodeString(obj.Ciphertext)
	if err != nil {
		return common.ErrDecryptionFailed
	}
	tag, err := base64.StdEncoding.DecodeString(obj.Tag)
	if err != nil || len(tag) != TagSize {
		return common.ErrDecryptionFailed
	}

	combined := make([]byte, 0, len(ciphertext)+len(tag))
	combined = append(combined, ciphertext...)
	combined = append(combined, tag...)

	var plaintext []byte
	err = key.withAEAD(func(aead cipher.AEAD) error {
		var openErr error
		plaintext, openErr = aead.Open(nil, nonce, combined, nil)
		return openErr
	})
	if err != nil {
		return common.ErrDecryptionFailed
	}

	if err := json.Unmarshal(plaintext, out); err != nil {
		return fmt.Errorf("decode object: %w", err)
	}
	return nil
}
