// Package common defines shared constants and sentinel errors used across
// client and server layers of zkvault. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorConflict     = errors.New("conflict")
	ErrUnavailable    = errors.New("service unavailable")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Encryption engine errors. Decryption failures are never distinguished
// further than ErrDecryptionFailed.
var (
	// ErrPlatformUnsupported means the host cannot provide the required
	// cryptographic primitives or talks to the auth API over an insecure
	// channel. Fatal, not retryable.
	ErrPlatformUnsupported = errors.New("platform unsupported")

	// ErrKeyNotDerived means an operation needed the master key before any
	// successful login, derivation or session restore.
	ErrKeyNotDerived = errors.New("master key not derived")

	// ErrKeyNotExtractable means an export was attempted on a key that was
	// not created as extractable.
	ErrKeyNotExtractable = errors.New("master key not extractable")

	// ErrDecryptionFailed covers tag mismatch, corruption and wrong key.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrSaltMissing means no salt could be recovered or produced for a user.
	ErrSaltMissing = errors.New("salt missing")

	// ErrStoreKeyMismatch means the local store was created with a different key.
	ErrStoreKeyMismatch = errors.New("store opened with a different key")
)
