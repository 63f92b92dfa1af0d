// Package cli provides the interactive zkvault command-line client.
//
// It wires configuration, the local sealed store, the auth API client and an
// interactive REPL. On start it tries to resume the previous session from
// the volatile session bundle, so a restart within one OS login does not ask
// for the password again.
//
// Key features:
//   - Register / Login / Logout
//   - Add, get, list, update and delete documents in named collections;
//     sensitive fields are sealed before they reach disk
//   - Push / pull collections to an optional encrypted replica
//     (CouchDB or S3)
//   - A one-time notice when the local store had to be reset
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
