// Package memostore keeps the in-memory list of recorded voice memos. Memos
// only live for the duration of the process.
package memostore

import (
	"fmt"
	"sync"
	"time"
)

// Memo is a single recorded voice memo. Memos are immutable once appended to
// a store.
type Memo struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	MimeType    string    `json:"mime_type"`
	DurationMs  int       `json:"duration_ms"`
	EncodedSize int       `json:"encoded_size"`
	CreatedAt   time.Time `json:"created_at"`

	// Frames are the individual opus packets, kept for playback.
	Frames [][]byte `json:"-"`

	// Data is the memo payload rendered as an ogg/opus file.
	Data []byte `json:"-"`
}

// DurationSeconds returns the memo duration in whole seconds.
func (m Memo) DurationSeconds() int {
	return m.DurationMs / 1000
}

// Store holds recorded memos in insertion order. It is safe for concurrent
// use.
type Store struct {
	mtx    sync.Mutex
	memos  []Memo
	latest uint64
	nextID uint64
}

func NewStore() *Store {
	return &Store{}
}

// Append adds a new memo to the store, assigning it an ID and (when not
// already set) an automatic name. The appended memo becomes the latest one.
// Returns the stored memo.
func (s *Store) Append(memo Memo) Memo {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.nextID++
	memo.ID = s.nextID
	if memo.Name == "" {
		memo.Name = fmt.Sprintf("memo-%d", memo.ID)
	}
	if memo.CreatedAt.IsZero() {
		memo.CreatedAt = time.Now()
	}
	s.memos = append(s.memos, memo)
	s.latest = memo.ID
	return memo
}

// Delete removes the memo with the given id. When the deleted memo is the
// latest one, the latest reference is cleared. Returns whether a memo was
// removed.
func (s *Store) Delete(id uint64) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for i := range s.memos {
		if s.memos[i].ID != id {
			continue
		}
		s.memos = append(s.memos[:i], s.memos[i+1:]...)
		if s.latest == id {
			s.latest = 0
		}
		return true
	}
	return false
}

// Memos returns a copy of the stored memos in insertion order.
func (s *Store) Memos() []Memo {
	s.mtx.Lock()
	res := make([]Memo, len(s.memos))
	copy(res, s.memos)
	s.mtx.Unlock()
	return res
}

// ByID returns the memo with the given id.
func (s *Store) ByID(id uint64) (Memo, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for i := range s.memos {
		if s.memos[i].ID == id {
			return s.memos[i], true
		}
	}
	return Memo{}, false
}

// Latest returns the most recently appended memo. The second return value is
// false when no memo was appended yet or the latest one was deleted.
func (s *Store) Latest() (Memo, bool) {
	s.mtx.Lock()
	latest := s.latest
	s.mtx.Unlock()
	if latest == 0 {
		return Memo{}, false
	}
	return s.ByID(latest)
}

// Len returns the number of stored memos.
func (s *Store) Len() int {
	s.mtx.Lock()
	res := len(s.memos)
	s.mtx.Unlock()
	return res
}

// TotalSize returns the sum of the encoded sizes of all stored memos.
func (s *Store) TotalSize() int64 {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	var res int64
	for i := range s.memos {
		res += int64(s.memos[i].EncodedSize)
	}
	return res
}
