// Package audio implements voice memo capture and playback on top of the
// host audio devices. Captured microphone data is opus-encoded in 20ms
// frames; playback decodes a frame slice back into the output device.
package audio

type DeviceType string

const (
	DeviceTypeCapture  DeviceType = "capture"
	DeviceTypePlayback DeviceType = "playback"
)

// DeviceID identifies a specific host audio device. The empty ID means the
// system-wide default device.
type DeviceID string

type Device struct {
	ID        DeviceID `json:"id"`
	Name      string   `json:"name"`
	IsDefault bool     `json:"is_default"`
}

type Devices struct {
	Playback []Device `json:"playback"`
	Capture  []Device `json:"capture"`
}

// RecordInfo is the information about a finished recording.
type RecordInfo struct {
	SampleCount int `json:"sample_count"`
	DurationMs  int `json:"duration_ms"`
	EncodedSize int `json:"encoded_size"`
	PacketCount int `json:"packet_count"`
}

// dataProc is the raw device data callback. outSamples is filled by the
// callback during playback, inSamples carries captured data.
type dataProc func(outSamples, inSamples []byte, frameCount uint32)

type captureDevice interface {
	Start() error
	Stop() error
	Uninit()
}

type playbackDevice interface {
	Start() error
	Stop() error
	Uninit()
}

type streamEncoder interface {
	Encode(pcm []int16, frameSize int, out []byte) ([]byte, error)
	SetBitrate(rate int)
}

type streamDecoder interface {
	Decode(data []byte, frameSize int, fec bool, out []int16) ([]int16, error)
}

// audioContext abstracts the host media API used for capture and playback.
type audioContext interface {
	name() string
	free() error
	initCapture(deviceID DeviceID, cb dataProc) (captureDevice, error)
	initPlayback(deviceID DeviceID, cb dataProc) (playbackDevice, error)
	newEncoder(sampleRate, channels int) (streamEncoder, error)
	newDecoder(sampleRate, channels int) (streamDecoder, error)
}

// newAudioContext is set by the context implementation selected at build
// time (malgo or the null context).
var newAudioContext func() (audioContext, error)

// rawFormatSampleSize needs to be agreed upon between capture and playback
// (S16 samples).
const rawFormatSampleSize = 2
