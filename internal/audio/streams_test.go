package audio

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/companyzero/voicememo/internal/assert"
	"github.com/companyzero/voicememo/internal/testutils"
)

// TestCaptureStream tests that captured periods are encoded and accounted
// for in the final record info.
func TestCaptureStream(t *testing.T) {
	t.Parallel()

	audioCtx := newTestAudioContext(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mtx sync.Mutex
	var frames [][]byte
	encodedFunc := func(ctx context.Context, data []byte, timestamp uint32) error {
		mtx.Lock()
		frames = append(frames, append([]byte(nil), data...))
		mtx.Unlock()
		return nil
	}

	cs := streamCaptureOpusFrames(ctx, audioCtx, "", encodedFunc, 0,
		testutils.TestLoggerSys(t, "XXXX"))
	assert.ChanWritten(t, audioCtx.started)

	// Capture three periods worth of data.
	const nbPackets = 3
	for i := 0; i < nbPackets; i++ {
		audioCtx.assertNextCBCompletes()
	}

	cs.Stop()
	assert.ChanClosed(t, cs.CaptureDone())
	assert.NilErr(t, cs.Err())

	info := cs.RecordInfo()
	assert.DeepEqual(t, info.PacketCount, nbPackets)
	assert.DeepEqual(t, info.DurationMs, nbPackets*periodSizeMS)
	assert.DeepEqual(t, cs.ElapsedMs(), nbPackets*periodSizeMS)

	mtx.Lock()
	assert.DeepEqual(t, len(frames), nbPackets)
	mtx.Unlock()
}

// TestCapturePauseResume tests that paused periods are discarded and do not
// count towards the recording duration.
func TestCapturePauseResume(t *testing.T) {
	t.Parallel()

	audioCtx := newTestAudioContext(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	encodedFunc := func(ctx context.Context, data []byte, timestamp uint32) error {
		return nil
	}

	cs := streamCaptureOpusFrames(ctx, audioCtx, "", encodedFunc, 0,
		testutils.TestLoggerSys(t, "XXXX"))
	assert.ChanWritten(t, audioCtx.started)

	// One period before pausing.
	audioCtx.assertNextCBCompletes()

	cs.Pause()
	assert.BoolIs(t, cs.Paused(), true)

	// Periods delivered while paused are dropped.
	audioCtx.assertNextCBCompletes()
	audioCtx.assertNextCBCompletes()

	cs.Resume()
	assert.BoolIs(t, cs.Paused(), false)

	// One period after resuming.
	audioCtx.assertNextCBCompletes()

	cs.Stop()
	assert.ChanClosed(t, cs.CaptureDone())
	assert.NilErr(t, cs.Err())

	info := cs.RecordInfo()
	assert.DeepEqual(t, info.PacketCount, 2)
	assert.DeepEqual(t, info.DurationMs, 2*periodSizeMS)
}

// TestPlaybackStream tests full playback of an in-memory recording.
func TestPlaybackStream(t *testing.T) {
	t.Parallel()

	audioCtx := newTestAudioContext(t)
	frames := newTestFrameGen().genFrames(10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ps := playMemoFrames(ctx, audioCtx, "", 0, frames, nil,
		testutils.TestLoggerSys(t, "XXXX"))
	assert.ChanWritten(t, audioCtx.started)

	// Each callback drains one decoded frame. The final callback picks up
	// the terminator and finishes playback.
	for i := 0; i < len(frames)+1; i++ {
		audioCtx.assertNextCBCompletes()
	}

	assert.ChanClosed(t, ps.PlaybackDone())
	assert.NilErr(t, ps.Err())
	assert.ChanWritten(t, audioCtx.uninited)
}

// TestPlaybackCanceled tests that canceling the context interrupts playback.
func TestPlaybackCanceled(t *testing.T) {
	t.Parallel()

	audioCtx := newTestAudioContext(t)
	frames := newTestFrameGen().genFrames(10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ps := playMemoFrames(ctx, audioCtx, "", 0, frames, nil,
		testutils.TestLoggerSys(t, "XXXX"))
	assert.ChanWritten(t, audioCtx.started)

	// Play a couple of frames, then cancel mid-playback.
	audioCtx.assertNextCBCompletes()
	audioCtx.assertNextCBCompletes()
	cancel()

	assert.ChanClosed(t, ps.PlaybackDone())
	assert.ErrorIs(t, ps.Err(), context.Canceled)
	assert.ChanWritten(t, audioCtx.uninited)
}

// TestPlaybackSoundEvents tests that transitions between sound and silence
// trigger the sound state callback.
func TestPlaybackSoundEvents(t *testing.T) {
	t.Parallel()

	audioCtx := newTestAudioContext(t)
	frames := newTestFrameGen().genFrames(3)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The fake decoder produces all-zero samples, so no sound events are
	// expected during a full playback.
	soundChan := make(chan bool, 10)
	ps := playMemoFrames(ctx, audioCtx, "", 0, frames, func(on bool) {
		soundChan <- on
	}, testutils.TestLoggerSys(t, "XXXX"))
	assert.ChanWritten(t, audioCtx.started)

	for i := 0; i < len(frames)+1; i++ {
		audioCtx.assertNextCBCompletes()
	}
	assert.ChanClosed(t, ps.PlaybackDone())
	assert.ChanNotWritten(t, soundChan, 100*time.Millisecond)
}
