package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/decred/slog"
	"golang.org/x/sync/errgroup"
)

// EncodedCapturedFunc is the signature for the callback function that
// processes captured and opus-encoded packets.
type EncodedCapturedFunc func(ctx context.Context, data []byte, timestamp uint32) error

// CaptureStream captures data from an input device until it is stopped or
// its run context is canceled. While the stream is paused, device frames are
// discarded without being encoded, so paused time contributes neither data
// nor duration.
type CaptureStream struct {
	audioCtx       audioContext
	log            slog.Logger
	deviceID       DeviceID
	int16Buffers   sync.Pool
	encodeChan     chan []int16
	encodeDone     chan struct{}
	volumeGainChan chan float64
	paused         atomic.Bool
	packetCount    atomic.Int64
	recInfo        RecordInfo
	encodedFunc    EncodedCapturedFunc
	captureDone    chan struct{}
	stopChan       chan struct{}
	runErr         error
}

// RecordInfo is the information about the finished recording.
func (cs *CaptureStream) RecordInfo() RecordInfo {
	select {
	case <-cs.captureDone:
		return cs.recInfo
	default:
		return RecordInfo{}
	}
}

// CaptureDone is closed once capturing is completed.
func (cs *CaptureStream) CaptureDone() <-chan struct{} {
	return cs.captureDone
}

// Stop stops the capture stream independently of the run context stopping.
func (cs *CaptureStream) Stop() {
	select {
	case cs.stopChan <- struct{}{}:
	case <-cs.captureDone:
	}
}

// Pause makes the stream discard captured frames until Resume is called.
// Already encoded data is unaffected.
func (cs *CaptureStream) Pause() {
	if cs.paused.CompareAndSwap(false, true) {
		cs.log.Debugf("Pausing capture stream")
	}
}

// Resume restarts the accumulation of captured frames after a Pause.
func (cs *CaptureStream) Resume() {
	if cs.paused.CompareAndSwap(true, false) {
		cs.log.Debugf("Resuming capture stream")
	}
}

// Paused returns whether the stream is currently paused.
func (cs *CaptureStream) Paused() bool {
	return cs.paused.Load()
}

// ElapsedMs returns how much audio has been encoded so far, in
// milliseconds. Paused periods are not counted.
func (cs *CaptureStream) ElapsedMs() int {
	return int(cs.packetCount.Load()) * periodSizeMS
}

// Err is the capturing error. It is only set after capturing is done.
func (cs *CaptureStream) Err() error {
	select {
	case <-cs.captureDone:
		return cs.runErr
	default:
		return nil
	}
}

// captureLoop loops capturing data from an audio context and sends it to be
// encoded in encodeLoop.
func (cs *CaptureStream) captureLoop(ctx context.Context) error {
	sendingDone := make(chan struct{})

	var inFrames, inSize int

	cs.log.Debug("Starting capture loop")

	onRecvFrames := func(_, inSamples []byte, framecount uint32) {
		if cs.paused.Load() {
			return
		}

		readSize := int(framecount * rawFormatSampleSize)
		if len(inSamples) < readSize {
			cs.log.Warnf("inSamples buffer has len %d when expected %d",
				len(inSamples), readSize)
			readSize = len(inSamples)
		}
		buf := cs.int16Buffers.Get().([]int16)
		samples := bytesToLES16Slice(inSamples[:readSize], buf)

		inFrames += 1
		inSize += len(inSamples)

		// Double check sending hasn't finished first.
		select {
		case <-sendingDone:
			return
		default:
		}

		// Send to encode loop.
		select {
		case cs.encodeChan <- samples:
		case <-sendingDone:
		}
	}

	// The encoding loop blocks until it receives a nil terminator, so
	// every return path must send one. The loop may have already errored
	// out, so do not block on a dead receiver.
	terminateEncoding := func() {
		close(sendingDone)
		select {
		case cs.encodeChan <- nil:
		case <-cs.encodeDone:
		}
	}

	device, err := cs.audioCtx.initCapture(cs.deviceID, onRecvFrames)
	if err != nil {
		terminateEncoding()
		return fmt.Errorf("unable to open capture device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		terminateEncoding()
		return fmt.Errorf("unable to start capture device: %w", err)
	}

	<-ctx.Done()
	if err := device.Stop(); err != nil {
		terminateEncoding()
		return err
	}
	device.Uninit()

	// Wait for some time for any outstanding callback to be executed.
	time.Sleep(time.Millisecond * time.Duration(periodSizeMS) * 2)

	// Signal the encoding loop that all data has been captured.
	terminateEncoding()

	if inFrames == 0 {
		return errors.New("captured no data")
	}

	cs.log.Debug("Finished capture loop")
	return nil
}

// encodeLoop opus-encodes raw samples from the capture loop.
func (cs *CaptureStream) encodeLoop(ctx context.Context, initialVolGain float64) error {
	defer close(cs.encodeDone)

	encoder, err := cs.audioCtx.newEncoder(sampleRate, channels)
	if err != nil {
		return fmt.Errorf("newEncoder: %v", err)
	}

	cs.log.Debug("Starting encode loop")

	encoder.SetBitrate(encodeBitRate)
	const samplesPerChannel = sampleRate / 1000 * periodSizeMS

	var encodeBuffer = make([]byte, 1024*1024)
	var encodedSize, inputSize, inputSamples int

	var volumeGain float64 = initialVolGain

	var timestamp uint32

nextPacket:
	for {
		var samples []int16
		select {
		case samples = <-cs.encodeChan:
			if samples == nil {
				break nextPacket
			}

		case newGain := <-cs.volumeGainChan:
			cs.log.Debugf("Changing capture volume gain to %.2f", newGain)
			volumeGain = newGain
			continue nextPacket
		}

		if volumeGain != 0 {
			applyGainDB(samples, volumeGain)
		}

		if len(samples) != samplesPerChannel {
			cs.log.Warnf("Wrong len of samples to encode "+
				"(want %d, got %d)", samplesPerChannel,
				len(samples))
		}
		encoded, err := encoder.Encode(samples, len(samples), encodeBuffer)
		if err != nil {
			return err
		}

		if err := cs.encodedFunc(ctx, encoded, timestamp); err != nil {
			return err
		}

		timestamp += periodSizeMS
		cs.packetCount.Add(1)
		inputSamples += len(samples)
		inputSize += len(samples) * 2
		encodedSize += len(encoded)

		cs.int16Buffers.Put(samples[:0])
	}

	packetCount := int(cs.packetCount.Load())
	cs.log.Debugf("Finished encoding loop: %d samples "+
		"(%d in bytes), %d opus packets (%d out size)",
		inputSamples, inputSize, packetCount,
		encodedSize)

	cs.recInfo = RecordInfo{
		SampleCount: inputSamples,
		DurationMs:  packetCount * periodSizeMS,
		EncodedSize: encodedSize,
		PacketCount: packetCount,
	}
	return nil
}

func (cs *CaptureStream) run(ctx context.Context, initialVolGain float64) {
	ctx, cancel := context.WithCancel(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return cs.encodeLoop(gctx, initialVolGain) })
	g.Go(func() error { return cs.captureLoop(gctx) })
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-cs.stopChan:
		}
		cancel()
		return nil
	})
	cs.runErr = g.Wait()
	close(cs.captureDone)
}

// SetVolumeGain sets the volume gain for captured samples. The new gain is
// specified in dB.
func (cs *CaptureStream) SetVolumeGain(gainDB float64) {
	select {
	case cs.volumeGainChan <- gainDB:
	case <-cs.captureDone:
	}
}

// streamCaptureOpusFrames runs a new capturing stream.
func streamCaptureOpusFrames(ctx context.Context, audioCtx audioContext,
	deviceID DeviceID, f EncodedCapturedFunc, initialVolGain float64, log slog.Logger) *CaptureStream {

	sampleCount := sampleRate / 1000 * periodSizeMS
	cs := &CaptureStream{
		encodeChan:     make(chan []int16),
		encodeDone:     make(chan struct{}),
		captureDone:    make(chan struct{}),
		stopChan:       make(chan struct{}, 1),
		volumeGainChan: make(chan float64, 1),
		log:            log,
		audioCtx:       audioCtx,
		deviceID:       deviceID,
		int16Buffers: sync.Pool{New: func() interface{} {
			return make([]int16, 0, sampleCount)
		}},
		encodedFunc: f,
	}

	go cs.run(ctx, initialVolGain)
	return cs
}

// decodedPacket tracks an individual decoded packet sent to the playback
// loop.
type decodedPacket struct {
	data     []byte
	ts       uint32
	hasSound bool
}

// PlaybackStream plays back a slice of opus-encoded frames. The input is a
// fully in-memory recording, so frames are decoded strictly in order and
// playback finishes once the last frame has been handed to the device.
type PlaybackStream struct {
	log               slog.Logger
	audioCtx          audioContext
	deviceID          DeviceID
	frames            [][]byte
	playbackChan      chan decodedPacket
	volumeGainChan    chan float64
	playbackDone      chan struct{}
	soundStateChanged func(bool)
	bytesBuffers      sync.Pool
	runErr            error
}

// PlaybackDone is closed when playback of this stream is finished or
// canceled.
func (ps *PlaybackStream) PlaybackDone() <-chan struct{} {
	return ps.playbackDone
}

// Err returns the playback error. It is only set after playback is done.
func (ps *PlaybackStream) Err() error {
	select {
	case <-ps.playbackDone:
		return ps.runErr
	default:
		return nil
	}
}

// SetVolumeGain modifies the volume gain of this stream. Gain is expressed
// in dB units.
func (ps *PlaybackStream) SetVolumeGain(gainDB float64) {
	select {
	case ps.volumeGainChan <- gainDB:
	case <-ps.playbackDone:
	}
}

// decodeLoop opus-decodes the input frames and sends the raw samples to the
// playback loop.
func (ps *PlaybackStream) decodeLoop(ctx context.Context, initialVolGain float64) error {
	decoder, err := ps.audioCtx.newDecoder(sampleRate, channels)
	if err != nil {
		return fmt.Errorf("newDecoder: %v", err)
	}

	// Must be agreed upon.
	const frameSize = sampleRate / 1000 * periodSizeMS

	// Stats.
	var inSize, outSize, outSamples int

	// Buffer that receives the results of a decoder.Decode() call.
	var decodeBuffer = make([]int16, frameSize*channels*2)

	var startTime = time.Now()
	var volumeGain = initialVolGain
	var ts uint32

	for _, frame := range ps.frames {
		// Apply any pending gain change before decoding.
		select {
		case newGain := <-ps.volumeGainChan:
			ps.log.Debugf("Changing volume gain to %.2f", newGain)
			volumeGain = newGain
		default:
		}

		decoded, err := decoder.Decode(frame, frameSize, false, decodeBuffer)
		if err != nil {
			return err
		}

		applyGainDB(decoded, volumeGain)
		hasSound := detectSound(decoded, 500, 5)

		samples := ps.bytesBuffers.Get().([]byte)
		samples = leS16SliceToBytes(decoded, samples[:0])

		inSize += len(frame)
		outSize += len(samples)
		outSamples += len(decoded)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case ps.playbackChan <- decodedPacket{
			data:     samples,
			ts:       ts,
			hasSound: hasSound,
		}:
		}
		ts += periodSizeMS

		if addDebugTrace {
			ps.log.Tracef("Decoded frame ts %d (%d in, %d out)",
				ts, len(frame), len(samples))
		}
	}

	// Send an empty packet to signal that decoding is done.
	ps.log.Debugf("Playback decoding ended in %s after decoding %d frames "+
		"(%d in size, %d out size)", time.Since(startTime),
		len(ps.frames), inSize, outSize)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case ps.playbackChan <- decodedPacket{data: nil, ts: math.MaxUint32}:
	}
	return nil
}

// playbackLoop runs a loop that picks up decoded packets and plays them on
// the audio context.
func (ps *PlaybackStream) playbackLoop(ctx context.Context) error {
	// Wait until the first packet has been decoded to init playback.
	for len(ps.playbackChan) == 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(periodSizeMS) * time.Millisecond):
		}
	}
	ps.log.Debugf("Initializing playback after buffering %d decoded packets",
		len(ps.playbackChan))

	finished := make(chan struct{})

	var cbCount, inPackets, inSize int
	var lastTimestamp uint32

	// Track to notify when sound is starting/ending.
	var hasSound bool
	var noSoundCount int

	onSendFrames := func(outSample, _ []byte, framecount uint32) {
		// How many bytes to read in this callback.
		bytesToRead := int(framecount * channels * rawFormatSampleSize)
		if len(outSample) < bytesToRead {
			ps.log.Warnf("Buffer size %d is smaller than read size %d",
				len(outSample), bytesToRead)
			bytesToRead = len(outSample)
		}

		cbCount += 1

		// Fetch next set of samples.
		for {
			var input decodedPacket

			select {
			case <-finished:
				return
			case <-ctx.Done():
				return
			case input = <-ps.playbackChan:
			}

			if input.data == nil || input.ts == math.MaxUint32 {
				// Finished playback.
				close(finished)
				ps.log.Debugf("Finished playback after timestamp %d",
					lastTimestamp)
				return
			}

			// Trigger events when sound is starting/ending.
			switch {
			case !hasSound && input.hasSound:
				hasSound = true
				noSoundCount = 0
				if ps.soundStateChanged != nil {
					ps.soundStateChanged(true)
				}
			case hasSound && !input.hasSound && noSoundCount < 20: // 20 == 400ms
				noSoundCount++
			case hasSound && !input.hasSound:
				hasSound = false
				if ps.soundStateChanged != nil {
					ps.soundStateChanged(false)
				}
			}

			inPackets += 1
			inSize += len(input.data)
			lastTimestamp = input.ts

			if len(input.data) != bytesToRead {
				ps.log.Warnf("Received samples %d is different than read size %d",
					len(input.data), bytesToRead)
				continue
			}

			// Received a valid set of samples.
			copy(outSample, input.data)
			ps.bytesBuffers.Put(input.data[:0])
			return
		}
	}

	device, err := ps.audioCtx.initPlayback(ps.deviceID, onSendFrames)
	if err != nil {
		return fmt.Errorf("unable to open playback device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("unable to start playback device: %w", err)
	}

	select {
	case <-ctx.Done():
		// Stop playback immediately.
		device.Uninit()
		return ctx.Err()
	case <-finished:
		// Give the device time to drain the last period.
		time.Sleep(time.Millisecond * periodSizeMS)
	}

	ps.log.Debugf("Finished playback loop with %d callbacks, %d "+
		"packets, %d bytes", cbCount, inPackets, inSize)

	device.Uninit()
	return nil
}

func (ps *PlaybackStream) run(ctx context.Context, initialVolGain float64) {
	ps.log.Debugf("Running new playback loop")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ps.decodeLoop(gctx, initialVolGain) })
	g.Go(func() error { return ps.playbackLoop(gctx) })
	ps.runErr = g.Wait()
	close(ps.playbackDone)
}

// playMemoFrames creates and runs a playback stream through a set of opus
// frames (a recording).
func playMemoFrames(ctx context.Context, audioCtx audioContext,
	deviceID DeviceID, initialVolGain float64, frames [][]byte,
	soundStateChanged func(bool), log slog.Logger) *PlaybackStream {

	if log == nil {
		log = slog.Disabled
	}

	sampleCount := sampleRate / 1000 * periodSizeMS
	ps := &PlaybackStream{
		log:      log,
		audioCtx: audioCtx,
		deviceID: deviceID,
		frames:   frames,
		bytesBuffers: sync.Pool{New: func() interface{} {
			return make([]byte, 0, sampleCount*2)
		}},
		playbackChan:      make(chan decodedPacket, 1000/periodSizeMS), // Buffer up to 1 second of decoded frames.
		volumeGainChan:    make(chan float64, 1),
		playbackDone:      make(chan struct{}),
		soundStateChanged: soundStateChanged,
	}

	go ps.run(ctx, initialVolGain)
	return ps
}
