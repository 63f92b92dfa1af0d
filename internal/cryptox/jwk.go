package cryptox

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/zkvault/internal/common"
	jose "gopkg.in/square/go-jose.v2"
)

const (
	jwkAlgorithm = "A256GCM"
	jwkUse       = "enc"
)

// ErrInvalidJWK is returned by ImportJWK for keys that are not 256-bit
// symmetric AES-GCM keys.
var ErrInvalidJWK = errors.New("invalid session key")

// ExportJWK serializes k as a JSON Web Key (kty "oct"). The key must be
// extractable.
func ExportJWK(k *MasterKey) (json.RawMessage, error) {
	if k == nil {
		return nil, common.ErrKeyNotDerived
	}
	if !k.extractable {
		return nil, common.ErrKeyNotExtractable
	}

	var out []byte
	err := k.withRaw(func(raw []byte) error {
		jwk := jose.JSONWebKey{Key: raw, Algorithm: jwkAlgorithm, Use: jwkUse}
		var err error
		out, err = jwk.MarshalJSON()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("export key: %w", err)
	}
	return out, nil
}

// ImportJWK reconstructs an extractable MasterKey from ExportJWK output.
func ImportJWK(data json.RawMessage) (*MasterKey, error) {
	var jwk jose.JSONWebKey
	if err := jwk.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJWK, err)
	}
	if jwk.Algorithm != "" && jwk.Algorithm != jwkAlgorithm {
		return nil, fmt.Errorf("%w: algorithm %q", ErrInvalidJWK, jwk.Algorithm)
	}
	raw, ok := jwk.Key.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: not a symmetric key", ErrInvalidJWK)
	}
	if len(raw) != KeySize {
		common.WipeByteArray(raw)
		return nil, fmt.Errorf("%w: key length %d", ErrInvalidJWK, len(raw))
	}
	return KeyFromBytes(raw, true)
}
