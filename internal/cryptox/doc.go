// Package cryptox is the client-side encryption engine.
//
// A MasterKey is derived from the user's password and salt with
// PBKDF2-HMAC-SHA-256 (DeriveKey) and never leaves the process in raw form.
// Two ciphers are built on top of it:
//
//   - FieldCipher encrypts single scalar values and packs them into the
//     self-describing wire format "ZK1:<iv>:<ciphertext>", so encrypted and
//     legacy cleartext values can share a column.
//   - ObjectCipher encrypts whole documents for replication and keeps the
//     AES-GCM authentication tag in its own field.
//
// Both ciphers read the key through a KeySource on every call, so clearing
// the key holder stops new operations immediately. Every authentication or
// decoding failure is reported as common.ErrDecryptionFailed, without saying
// which part of the input was wrong.
//
// ExportJWK and ImportJWK move a key in and out of a JSON Web Key for
// session resume. Storing the exported form is the caller's business.
package cryptox
