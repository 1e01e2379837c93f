package memostore

import (
	"testing"

	"github.com/companyzero/voicememo/internal/assert"
)

// TestAppendAssignsIDsAndNames tests ID and auto name assignment.
func TestAppendAssignsIDsAndNames(t *testing.T) {
	t.Parallel()

	s := NewStore()
	m1 := s.Append(Memo{DurationMs: 2500})
	m2 := s.Append(Memo{Name: "standup notes"})

	assert.DeepEqual(t, m1.ID, 1)
	assert.DeepEqual(t, m1.Name, "memo-1")
	assert.DeepEqual(t, m1.DurationSeconds(), 2)
	assert.BoolIs(t, m1.CreatedAt.IsZero(), false)

	assert.DeepEqual(t, m2.ID, 2)
	assert.DeepEqual(t, m2.Name, "standup notes")

	assert.DeepEqual(t, s.Len(), 2)
	memos := s.Memos()
	assert.DeepEqual(t, memos[0].ID, m1.ID)
	assert.DeepEqual(t, memos[1].ID, m2.ID)
}

// TestDeleteLatestClearsReference tests that deleting the latest memo clears
// the latest reference while deleting others keeps it.
func TestDeleteLatestClearsReference(t *testing.T) {
	t.Parallel()

	s := NewStore()
	m1 := s.Append(Memo{})
	m2 := s.Append(Memo{})

	latest, ok := s.Latest()
	assert.BoolIs(t, ok, true)
	assert.DeepEqual(t, latest.ID, m2.ID)

	// Deleting a non-latest memo keeps the latest reference.
	assert.BoolIs(t, s.Delete(m1.ID), true)
	latest, ok = s.Latest()
	assert.BoolIs(t, ok, true)
	assert.DeepEqual(t, latest.ID, m2.ID)

	// Deleting the latest memo clears the reference.
	assert.BoolIs(t, s.Delete(m2.ID), true)
	_, ok = s.Latest()
	assert.BoolIs(t, ok, false)
	assert.DeepEqual(t, s.Len(), 0)

	// Deleting an unknown id is a no-op.
	assert.BoolIs(t, s.Delete(m2.ID), false)
}

// TestLatestSurvivesOlderAppends tests that appending always moves the
// latest reference forward, including after it was cleared.
func TestLatestSurvivesOlderAppends(t *testing.T) {
	t.Parallel()

	s := NewStore()
	m1 := s.Append(Memo{})
	assert.BoolIs(t, s.Delete(m1.ID), true)
	_, ok := s.Latest()
	assert.BoolIs(t, ok, false)

	m2 := s.Append(Memo{})
	latest, ok := s.Latest()
	assert.BoolIs(t, ok, true)
	assert.DeepEqual(t, latest.ID, m2.ID)

	// IDs are never reused.
	assert.DeepEqual(t, m2.ID, 2)
}

// TestByIDAndTotalSize tests lookup and size accounting.
func TestByIDAndTotalSize(t *testing.T) {
	t.Parallel()

	s := NewStore()
	m1 := s.Append(Memo{EncodedSize: 100})
	s.Append(Memo{EncodedSize: 250})

	got, ok := s.ByID(m1.ID)
	assert.BoolIs(t, ok, true)
	assert.DeepEqual(t, got.EncodedSize, 100)

	_, ok = s.ByID(999)
	assert.BoolIs(t, ok, false)

	assert.DeepEqual(t, s.TotalSize(), int64(350))
}
