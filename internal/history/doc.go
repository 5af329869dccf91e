// Package history provides the bounded in-memory conversation store.
//
// # Overview
//
// Each user identity owns an ordered sequence of turns capped at a
// configured maximum; the oldest turns are evicted first once the cap is
// exceeded. Histories live only for the lifetime of the process; they are
// deliberately not persisted.
//
// # Concurrency
//
// The store is sharded by a hash of the user ID. Operations for the same
// user are serialized by the shard lock, so a multi-turn Append is atomic
// and concurrent appends never lose or interleave turns. Operations for
// different users land on independent shards and do not block each other.
// No lock is ever held across a backend round trip: callers take a
// Snapshot, talk to the backend, then Append the completed exchange.
package history
