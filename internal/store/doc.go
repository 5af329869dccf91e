// Package store persists backend request telemetry in SQLite.
//
// Every gateway round trip produces one RequestRecord: which capability was
// invoked, which backend model served it, how long it took, and whether it
// failed. Records never contain message content, and conversation history is
// never persisted; the in-memory history store owns that for the lifetime
// of the process.
package store
