// ABOUTME: Bounded, synchronized per-user conversation history
// ABOUTME: Sharded by user ID so unrelated users never contend on one lock

package history

import (
	"hash/fnv"
	"sync"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Tag annotates how a turn entered the conversation. Tags are stored with
// the history but never shown to the user.
type Tag string

const (
	TagNone           Tag = ""
	TagSearchQuestion Tag = "search_question"
	TagSearchAnswer   Tag = "search_answer"
	TagImageQuestion  Tag = "image_question"
	TagImageAnswer    Tag = "image_answer"
)

// Turn is one message in a conversation. Turns are immutable once appended.
type Turn struct {
	Role    Role
	Content string
	Tag     Tag
}

// shardCount is fixed at a power of two so the hash maps cheaply onto shards.
const shardCount = 32

// Store holds bounded per-user conversation histories. Access is serialized
// per shard, so operations for different users proceed concurrently while
// appends for a single user are atomic. Locks are only held across map
// mutation, never across a backend call.
type Store struct {
	cap    int
	shards [shardCount]shard
}

type shard struct {
	mu    sync.Mutex
	users map[string][]Turn
}

// NewStore creates a store that retains at most limit turns per user,
// evicting the oldest turns first once the cap is exceeded.
func NewStore(limit int) *Store {
	s := &Store{cap: limit}
	for i := range s.shards {
		s.shards[i].users = make(map[string][]Turn)
	}
	return s
}

func (s *Store) shardFor(userID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return &s.shards[h.Sum32()%shardCount]
}

// Snapshot returns an independent copy of the user's history. The copy does
// not track later appends.
func (s *Store) Snapshot(userID string) []Turn {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	turns := sh.users[userID]
	if len(turns) == 0 {
		return nil
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// Append atomically appends the given turns to the user's history, then
// evicts from the front until the history is within the cap. Concurrent
// appends for the same user serialize; their turns are never interleaved
// or lost.
func (s *Store) Append(userID string, turns ...Turn) {
	if len(turns) == 0 {
		return
	}

	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	updated := append(sh.users[userID], turns...)
	if len(updated) > s.cap {
		// Copy into a fresh slice so evicted turns don't pin the old array.
		trimmed := make([]Turn, s.cap)
		copy(trimmed, updated[len(updated)-s.cap:])
		updated = trimmed
	}
	sh.users[userID] = updated
}

// Clear removes all history for the user.
func (s *Store) Clear(userID string) {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.users, userID)
}

// Len returns the number of turns currently stored for the user.
func (s *Store) Len(userID string) int {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return len(sh.users[userID])
}

// Tail returns the trailing min(len(turns), n) turns. The result aliases the
// input and must be treated as read-only.
func Tail(turns []Turn, n int) []Turn {
	if n <= 0 {
		return nil
	}
	if len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}
