// Package client talks to the zkvault auth API over HTTP/JSON.
//
// The API only authenticates users and stores their KDF salt; it never sees
// the derived key. Transport failures and gateway errors map to
// common.ErrUnavailable, 401/403 to common.ErrorUnauthorized, 409 to
// common.ErrorConflict, so callers can match with errors.Is.
package client
