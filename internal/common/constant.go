// Package common contains shared constants and sentinel errors used across
// zkvault components.
package common

// AuthorizationHeaderName is the HTTP header used to carry the access token
// on outbound requests to the auth API.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the access token in AuthorizationHeaderName.
const BearerPrefix = "Bearer "

// SaltSize is the number of random bytes in a freshly generated user salt.
const SaltSize = 16
