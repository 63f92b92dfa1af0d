// Package documents persists schemaless documents in the local SQLite store.
// Fields are stored as a JSON object exactly as handed in: sealing of
// sensitive values happens one layer up, in package store.
package documents
