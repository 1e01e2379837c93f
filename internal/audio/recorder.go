package audio

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/decred/slog"
)

// sampleRate must be agreed everywhere
const sampleRate = 48000

// channels must be agreed everywhere
const channels = 1

// periodSizeMS is the captured frame size in milliseconds
const periodSizeMS = 20

// encodeBitRate is the bitrate (in bps) to use as encoder output.
const encodeBitRate = 40000

var (
	// ErrAlreadyRecording is returned when a capture is requested while one
	// is already running.
	ErrAlreadyRecording = errors.New("already recording")

	// ErrAlreadyPlaying is returned when playback is requested while a
	// capture is running.
	ErrAlreadyPlaying = errors.New("already playing")
)

// MemoRecorder captures and plays back voice memos. At most one capture and
// one playback may run at any time.
type MemoRecorder struct {
	audioCtx audioContext
	log      slog.Logger

	mtx              sync.Mutex
	stop             func()
	activeCapture    *CaptureStream
	playbackDone     chan struct{}
	captureDeviceID  DeviceID
	playbackDeviceID DeviceID
	recording        bool
	playing          bool
	opusOutput       [][]byte
	recInfo          RecordInfo
	capGain          float64
	playGain         float64
}

func NewRecorder(log slog.Logger) (*MemoRecorder, error) {
	audioCtx, err := newAudioContext()
	if err != nil {
		return nil, err
	}

	if addDebugTrace {
		log.Infof("Initializing memo recorder with driver %s WITH DEBUG TRACE",
			audioCtx.name())
	} else {
		log.Infof("Initializing memo recorder with driver %s",
			audioCtx.name())
	}

	return &MemoRecorder{
		log:      log,
		audioCtx: audioCtx,
	}, nil
}

// FreeContext releases all resources.
func (ar *MemoRecorder) FreeContext() error {
	return ar.audioCtx.free()
}

// SetCaptureDevice sets the capture device to use for recording. If empty,
// uses the default device.
func (ar *MemoRecorder) SetCaptureDevice(devID DeviceID) error {
	ar.mtx.Lock()
	defer ar.mtx.Unlock()

	if ar.recording {
		return errors.New("cannot change capture device while recording")
	}

	ar.captureDeviceID = devID
	ar.log.Infof("Setting capturing device to %q", devID)

	return nil
}

// CaptureDeviceID returns the ID of the device used for capturing mic data.
// If empty, the system-wide default device is used.
func (ar *MemoRecorder) CaptureDeviceID() DeviceID {
	ar.mtx.Lock()
	res := ar.captureDeviceID
	ar.mtx.Unlock()
	return res
}

// SetPlaybackDevice sets the playback device to use for playing. If empty,
// uses the default device.
func (ar *MemoRecorder) SetPlaybackDevice(devID DeviceID) error {
	ar.mtx.Lock()
	defer ar.mtx.Unlock()

	if ar.playing {
		return errors.New("cannot change playback device while playing")
	}

	ar.playbackDeviceID = devID
	ar.log.Infof("Setting playback device to %q", devID)
	return nil
}

// PlaybackDeviceID returns the ID of the device used for playing back audio
// data. If empty, the system-wide default device is used.
func (ar *MemoRecorder) PlaybackDeviceID() DeviceID {
	ar.mtx.Lock()
	res := ar.playbackDeviceID
	ar.mtx.Unlock()
	return res
}

// SetCaptureGain sets the capture gain. This only applies to new capture
// streams.
func (ar *MemoRecorder) SetCaptureGain(gain float64) {
	ar.mtx.Lock()
	ar.capGain = gain
	ar.mtx.Unlock()
}

// GetCaptureGain returns the currently set capture gain.
func (ar *MemoRecorder) GetCaptureGain() float64 {
	ar.mtx.Lock()
	res := ar.capGain
	ar.mtx.Unlock()
	return res
}

// SetPlaybackGain sets the playback gain. This only applies to new playback
// streams.
func (ar *MemoRecorder) SetPlaybackGain(gain float64) {
	ar.mtx.Lock()
	ar.playGain = gain
	ar.mtx.Unlock()
}

// GetPlaybackGain returns the playback gain.
func (ar *MemoRecorder) GetPlaybackGain() float64 {
	ar.mtx.Lock()
	res := ar.playGain
	ar.mtx.Unlock()
	return res
}

// Busy returns the state of the recorder.
func (ar *MemoRecorder) Busy() (recording bool, playing bool) {
	ar.mtx.Lock()
	recording = ar.recording
	playing = ar.playing
	ar.mtx.Unlock()
	return
}

// Stop the current operation (record or playback).
func (ar *MemoRecorder) Stop() {
	ar.mtx.Lock()
	stop := ar.stop
	ar.stop = nil
	ar.mtx.Unlock()
	if stop != nil {
		ar.log.Infof("Stopping activity")
		stop()
	}
}

// ErrNotRecording is returned by Pause and Resume when no capture is
// running.
var ErrNotRecording = errors.New("not recording")

// Pause pauses the running capture.
func (ar *MemoRecorder) Pause() error {
	ar.mtx.Lock()
	cs := ar.activeCapture
	ar.mtx.Unlock()
	if cs == nil {
		return ErrNotRecording
	}
	cs.Pause()
	return nil
}

// Resume resumes a paused capture.
func (ar *MemoRecorder) Resume() error {
	ar.mtx.Lock()
	cs := ar.activeCapture
	ar.mtx.Unlock()
	if cs == nil {
		return ErrNotRecording
	}
	cs.Resume()
	return nil
}

// Paused returns whether the running capture is paused.
func (ar *MemoRecorder) Paused() bool {
	ar.mtx.Lock()
	cs := ar.activeCapture
	ar.mtx.Unlock()
	return cs != nil && cs.Paused()
}

// ElapsedMs returns how much audio the running capture has accumulated, in
// milliseconds. Paused time is not counted.
func (ar *MemoRecorder) ElapsedMs() int {
	ar.mtx.Lock()
	cs := ar.activeCapture
	ar.mtx.Unlock()
	if cs == nil {
		return 0
	}
	return cs.ElapsedMs()
}

// HasRecorded returns whether there is a finished recording waiting to be
// taken.
func (ar *MemoRecorder) HasRecorded() bool {
	ar.mtx.Lock()
	res := len(ar.opusOutput) > 0
	ar.mtx.Unlock()
	return res
}

// RecordInfo returns information about the latest recording.
func (ar *MemoRecorder) RecordInfo() RecordInfo {
	ar.mtx.Lock()
	res := ar.recInfo
	ar.mtx.Unlock()
	return res
}

// TakeRecording returns the latest finished recording and clears it from the
// recorder.
func (ar *MemoRecorder) TakeRecording() ([][]byte, RecordInfo, error) {
	ar.mtx.Lock()
	defer ar.mtx.Unlock()

	if len(ar.opusOutput) == 0 {
		return nil, RecordInfo{}, errors.New("no recorded memo")
	}

	frames := ar.opusOutput
	info := ar.recInfo
	ar.opusOutput = nil
	ar.recInfo = RecordInfo{}
	return frames, info, nil
}

// EncodeOpusFile encodes a set of recorded frames as an opusfile (a .ogg
// file with opus-encoded audio data).
func EncodeOpusFile(opusFrames [][]byte) ([]byte, error) {
	if len(opusFrames) == 0 {
		return nil, errors.New("no data to encode")
	}

	buf := bytes.NewBuffer(nil)
	w, err := newOpusWriter(buf)
	if err != nil {
		return nil, err
	}

	pcmSamplesPerOpusPkt := sampleRate / 1000 * periodSizeMS
	for i := range opusFrames {
		isLast := i == len(opusFrames)-1
		err := w.WritePacket(opusFrames[i], uint64(pcmSamplesPerOpusPkt), isLast)
		if err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// Capture audio data until the context is canceled or Stop() is called. The
// result is available via TakeRecording after Capture returns.
func (ar *MemoRecorder) Capture(ctx context.Context) error {
	ar.mtx.Lock()
	if ar.recording {
		ar.mtx.Unlock()
		return ErrAlreadyRecording
	}
	if ar.playing {
		ar.mtx.Unlock()
		return errors.New("cannot record while playing back")
	}

	ctx, ar.stop = context.WithCancel(ctx)
	ar.recording = true

	start := time.Now()
	ar.log.Infof("Starting to capture audio")

	// Init a capture stream that stores the full output in memory.
	var opusPackets [][]byte
	encodedFunc := func(ctx context.Context, data []byte, timestamp uint32) error {
		// Store a copy of the encoded data.
		opusPackets = append(opusPackets, append([]byte(nil), data...))
		return nil
	}
	cs := streamCaptureOpusFrames(ctx, ar.audioCtx, ar.captureDeviceID,
		encodedFunc, ar.capGain, ar.log)
	ar.activeCapture = cs
	ar.mtx.Unlock()

	// Wait until capture finishes.
	<-cs.CaptureDone()

	// Store result.
	ar.mtx.Lock()
	ar.recInfo = cs.RecordInfo()
	ar.opusOutput = opusPackets
	ar.recording = false
	ar.activeCapture = nil
	if ar.stop != nil {
		ar.stop = nil
	}
	ar.mtx.Unlock()

	ar.log.Infof("Finished audio capture. Captured for %s", time.Since(start))
	return cs.Err()
}

// Play plays back a set of recorded frames until they end or the context is
// canceled or Stop() is called.
//
// If a previous playback is still running it is stopped first and Play waits
// for its full teardown before starting the new one. When a configured
// non-default playback device fails to play, playback is retried once on the
// default device.
func (ar *MemoRecorder) Play(ctx context.Context, frames [][]byte,
	soundStateChanged func(bool)) error {

	if len(frames) == 0 {
		return errors.New("no frames to play")
	}

	for {
		ar.mtx.Lock()
		if ar.recording {
			ar.mtx.Unlock()
			return errors.New("cannot play while recording")
		}
		if !ar.playing {
			break
		}

		// Stop the running playback and wait for its teardown before
		// retrying.
		stop, done := ar.stop, ar.playbackDone
		ar.stop = nil
		ar.mtx.Unlock()
		if stop != nil {
			ar.log.Infof("Stopping previous playback")
			stop()
		}
		<-done
	}

	// ar.mtx is locked at this point.
	ctx, cancel := context.WithCancel(ctx)
	ar.stop = cancel
	ar.playing = true
	done := make(chan struct{})
	ar.playbackDone = done
	deviceID := ar.playbackDeviceID
	playGain := ar.playGain
	ar.mtx.Unlock()

	ar.log.Infof("Starting playback (%d opus frames to playback)", len(frames))
	start := time.Now()
	ps := playMemoFrames(ctx, ar.audioCtx, deviceID, playGain, frames,
		soundStateChanged, ar.log)
	<-ps.PlaybackDone()
	err := ps.Err()

	// A failure on an explicitly configured device gets one retry on the
	// default device.
	if err != nil && !errors.Is(err, context.Canceled) && deviceID != "" {
		ar.log.Warnf("Playback on device %q failed (%v), retrying on "+
			"default device", deviceID, err)
		ps = playMemoFrames(ctx, ar.audioCtx, "", playGain, frames,
			soundStateChanged, ar.log)
		<-ps.PlaybackDone()
		err = ps.Err()
	}

	ar.log.Infof("Finished playback. Played for %s", time.Since(start))
	ar.mtx.Lock()
	ar.playing = false
	if ar.stop != nil {
		ar.stop = nil
	}
	cancel()
	ar.mtx.Unlock()
	close(done)

	return err
}
