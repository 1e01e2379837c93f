package main

import (
	"strings"
	"testing"

	"github.com/companyzero/voicememo/internal/assert"
	"github.com/companyzero/voicememo/internal/memostore"
	"github.com/decred/slog"
)

// TestNowPlayingClearedOnce asserts the playing reference is only cleared by
// the playback that set it, so a stale completion cannot clobber a newer
// playback.
func TestNowPlayingClearedOnce(t *testing.T) {
	as := &appState{}

	seq := as.setNowPlaying(5)
	assert.DeepEqual(t, as.nowPlayingID(), uint64(5))

	// A stale token does not clear the reference.
	assert.BoolIs(t, as.clearNowPlaying(seq+1), false)
	assert.BoolIs(t, as.clearNowPlaying(0), false)
	assert.DeepEqual(t, as.nowPlayingID(), uint64(5))

	// The owning token clears it exactly once.
	assert.BoolIs(t, as.clearNowPlaying(seq), true)
	assert.BoolIs(t, as.clearNowPlaying(seq), false)
	assert.DeepEqual(t, as.nowPlayingID(), uint64(0))

	// Switching playbacks: the old playback's clear is a no-op.
	seq1 := as.setNowPlaying(1)
	seq2 := as.setNowPlaying(2)
	assert.BoolIs(t, as.clearNowPlaying(seq1), false)
	assert.DeepEqual(t, as.nowPlayingID(), uint64(2))
	assert.BoolIs(t, as.clearNowPlaying(seq2), true)
}

// TestNowPlayingReplaySameMemo asserts that replaying the memo that is
// already playing hands the reference to the new playback: the torn down
// playback's clear is a no-op and the new playback still clears exactly
// once.
func TestNowPlayingReplaySameMemo(t *testing.T) {
	as := &appState{}

	// First playback of memo 1 starts, then the user replays the same
	// memo while it is still playing.
	seq1 := as.setNowPlaying(1)
	seq2 := as.setNowPlaying(1)

	// The first playback is torn down and tries to clear. It no longer
	// owns the reference, so nothing is cleared and no completion should
	// be reported for it.
	assert.BoolIs(t, as.clearNowPlaying(seq1), false)
	assert.DeepEqual(t, as.nowPlayingID(), uint64(1))

	// The second playback completes naturally and clears exactly once.
	assert.BoolIs(t, as.clearNowPlaying(seq2), true)
	assert.DeepEqual(t, as.nowPlayingID(), uint64(0))
	assert.BoolIs(t, as.clearNowPlaying(seq2), false)
}

// TestDeleteUnknownMemo asserts deleting a memo that does not exist errors.
func TestDeleteUnknownMemo(t *testing.T) {
	as := &appState{
		memos: memostore.NewStore(),
		log:   slog.Disabled,
	}
	assert.NonNilErr(t, as.deleteMemo(1))
}

// TestFooterViewCaching asserts the footer is only rebuilt after it is
// invalidated.
func TestFooterViewCaching(t *testing.T) {
	styles, err := newTheme(nil)
	assert.NilErr(t, err)

	as := &appState{
		memos: memostore.NewStore(),
		winW:  80,
	}
	as.styles.Store(styles)

	footer := as.footerView(styles, "")
	if !strings.Contains(footer, "0 memos") {
		t.Fatalf("unexpected footer: %q", footer)
	}

	// Appending a memo alone does not regenerate the cached footer.
	as.memos.Append(memostore.Memo{DurationMs: 1000})
	footer = as.footerView(styles, "")
	if !strings.Contains(footer, "0 memos") {
		t.Fatalf("unexpected footer: %q", footer)
	}

	// Invalidating does.
	as.footerInvalidate()
	footer = as.footerView(styles, "")
	if !strings.Contains(footer, "1 memo") {
		t.Fatalf("unexpected footer: %q", footer)
	}
}
