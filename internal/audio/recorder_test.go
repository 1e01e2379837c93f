package audio

import (
	"context"
	"errors"
	"testing"

	"github.com/companyzero/voicememo/internal/assert"
	"github.com/companyzero/voicememo/internal/testutils"
)

func newTestRecorder(t testing.TB, audioCtx audioContext) *MemoRecorder {
	t.Helper()
	return &MemoRecorder{
		log:      testutils.TestLoggerSys(t, "XXXX"),
		audioCtx: audioCtx,
	}
}

// TestRecorderCapture tests a full capture cycle, including the rejection of
// concurrent captures.
func TestRecorderCapture(t *testing.T) {
	t.Parallel()

	audioCtx := newTestAudioContext(t)
	ar := newTestRecorder(t, audioCtx)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	captureErr := make(chan error, 1)
	go func() { captureErr <- ar.Capture(ctx) }()
	assert.ChanWritten(t, audioCtx.started)

	recording, playing := ar.Busy()
	assert.BoolIs(t, recording, true)
	assert.BoolIs(t, playing, false)

	// A second capture is rejected while the first one runs.
	assert.ErrorIs(t, ar.Capture(ctx), ErrAlreadyRecording)

	// Capture a single period, then stop.
	audioCtx.assertNextCBCompletes()
	ar.Stop()
	assert.NilErr(t, assert.ChanWritten(t, captureErr))

	recording, _ = ar.Busy()
	assert.BoolIs(t, recording, false)
	assert.BoolIs(t, ar.HasRecorded(), true)

	// Taking the recording clears it from the recorder.
	frames, info, err := ar.TakeRecording()
	assert.NilErr(t, err)
	assert.DeepEqual(t, len(frames), 1)
	assert.DeepEqual(t, info.PacketCount, 1)
	assert.DeepEqual(t, info.DurationMs, periodSizeMS)
	assert.BoolIs(t, ar.HasRecorded(), false)
	_, _, err = ar.TakeRecording()
	assert.NonNilErr(t, err)
}

// TestRecorderCaptureNoData tests that stopping a capture before any period
// arrives yields an error and no recording.
func TestRecorderCaptureNoData(t *testing.T) {
	t.Parallel()

	audioCtx := newTestAudioContext(t)
	ar := newTestRecorder(t, audioCtx)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	captureErr := make(chan error, 1)
	go func() { captureErr <- ar.Capture(ctx) }()
	assert.ChanWritten(t, audioCtx.started)

	ar.Stop()
	assert.NonNilErr(t, assert.ChanWritten(t, captureErr))
	assert.BoolIs(t, ar.HasRecorded(), false)
}

// TestRecorderPlaySwitch tests that starting a new playback stops the
// running one and waits for its teardown.
func TestRecorderPlaySwitch(t *testing.T) {
	t.Parallel()

	audioCtx := newTestAudioContext(t)
	ar := newTestRecorder(t, audioCtx)
	frameGen := newTestFrameGen()
	framesA := frameGen.genFrames(20)
	framesB := frameGen.genFrames(10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	playErrA := make(chan error, 1)
	go func() { playErrA <- ar.Play(ctx, framesA, nil) }()
	assert.ChanWritten(t, audioCtx.started)
	audioCtx.assertNextCBCompletes()
	audioCtx.assertNextCBCompletes()

	// Starting a second playback cancels the first one.
	playErrB := make(chan error, 1)
	go func() { playErrB <- ar.Play(ctx, framesB, nil) }()
	assert.ErrorIs(t, assert.ChanWritten(t, playErrA), context.Canceled)
	assert.ChanWritten(t, audioCtx.uninited)

	// The second playback runs to completion.
	assert.ChanWritten(t, audioCtx.started)
	for i := 0; i < len(framesB)+1; i++ {
		audioCtx.assertNextCBCompletes()
	}
	assert.NilErr(t, assert.ChanWritten(t, playErrB))
	assert.ChanWritten(t, audioCtx.uninited)

	_, playing := ar.Busy()
	assert.BoolIs(t, playing, false)
}

// TestRecorderPlayFallsBackToDefault tests that a playback failure on a
// configured device is retried once on the default device.
func TestRecorderPlayFallsBackToDefault(t *testing.T) {
	t.Parallel()

	errBadDevice := errors.New("device gone")
	audioCtx := &failingAudioContext{
		testAudioContext: newTestAudioContext(t),
		failIDs:          map[DeviceID]error{"badout": errBadDevice},
	}
	ar := newTestRecorder(t, audioCtx)
	assert.NilErr(t, ar.SetPlaybackDevice("badout"))

	frames := newTestFrameGen().genFrames(5)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	playErr := make(chan error, 1)
	go func() { playErr <- ar.Play(ctx, frames, nil) }()

	// The configured device fails to init, so the retry on the default
	// device is the one that starts.
	assert.ChanWritten(t, audioCtx.started)
	for i := 0; i < len(frames)+1; i++ {
		audioCtx.assertNextCBCompletes()
	}
	assert.NilErr(t, assert.ChanWritten(t, playErr))
}

// TestRecorderPlayWhileRecording tests that playback is rejected while a
// capture is running.
func TestRecorderPlayWhileRecording(t *testing.T) {
	t.Parallel()

	audioCtx := newTestAudioContext(t)
	ar := newTestRecorder(t, audioCtx)
	frames := newTestFrameGen().genFrames(5)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	captureErr := make(chan error, 1)
	go func() { captureErr <- ar.Capture(ctx) }()
	assert.ChanWritten(t, audioCtx.started)

	assert.NonNilErr(t, ar.Play(ctx, frames, nil))
	assert.NonNilErr(t, ar.Capture(ctx))

	audioCtx.assertNextCBCompletes()
	ar.Stop()
	assert.NilErr(t, assert.ChanWritten(t, captureErr))
}

// TestRecorderPauseResume tests pause and resume through the recorder API.
func TestRecorderPauseResume(t *testing.T) {
	t.Parallel()

	audioCtx := newTestAudioContext(t)
	ar := newTestRecorder(t, audioCtx)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Pause and resume outside of a capture are errors.
	assert.ErrorIs(t, ar.Pause(), ErrNotRecording)
	assert.ErrorIs(t, ar.Resume(), ErrNotRecording)
	assert.BoolIs(t, ar.Paused(), false)

	captureErr := make(chan error, 1)
	go func() { captureErr <- ar.Capture(ctx) }()
	assert.ChanWritten(t, audioCtx.started)

	audioCtx.assertNextCBCompletes()

	assert.NilErr(t, ar.Pause())
	assert.BoolIs(t, ar.Paused(), true)
	audioCtx.assertNextCBCompletes()
	audioCtx.assertNextCBCompletes()

	assert.NilErr(t, ar.Resume())
	assert.BoolIs(t, ar.Paused(), false)
	audioCtx.assertNextCBCompletes()

	ar.Stop()
	assert.NilErr(t, assert.ChanWritten(t, captureErr))

	frames, info, err := ar.TakeRecording()
	assert.NilErr(t, err)
	assert.DeepEqual(t, len(frames), 2)
	assert.DeepEqual(t, info.DurationMs, 2*periodSizeMS)
}

// TestEncodeOpusFile tests the ogg rendering of a recording.
func TestEncodeOpusFile(t *testing.T) {
	t.Parallel()

	frames := newTestFrameGen().genFrames(4)
	data, err := EncodeOpusFile(frames)
	assert.NilErr(t, err)

	// The id header payload starts right after the 27 byte page header
	// and its single lacing byte.
	assert.DeepEqual(t, string(data[:4]), oggSig)
	assert.DeepEqual(t, string(data[28:28+8]), opusIdSig)

	_, err = EncodeOpusFile(nil)
	assert.NonNilErr(t, err)
}
