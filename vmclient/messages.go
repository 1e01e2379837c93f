package main

import (
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/companyzero/voicememo/internal/audio"
)

// logUpdated is sent by the log backend when new log messages are generated.
type logUpdated struct {
	line string
}

// msgRecordMemo starts recording a new memo.
type msgRecordMemo struct{}

// msgStopActivity stops the current recording or playback.
type msgStopActivity struct{}

// msgPauseResumeMemo toggles the pause state of the running recording.
type msgPauseResumeMemo struct{}

// msgPlayMemo plays back the memo with the given id.
type msgPlayMemo struct {
	id uint64
}

// msgDeleteMemo removes the memo with the given id.
type msgDeleteMemo struct {
	id uint64
}

// msgRecordComplete is sent after a finished recording was added to the
// store.
type msgRecordComplete struct{}

// msgPlaybackComplete is sent when playback of the given memo finished
// naturally.
type msgPlaybackComplete struct {
	id uint64
}

// msgAudioError is sent when a capture or playback operation fails.
type msgAudioError error

// msgRefreshUI asks the active window to rebuild its widgets.
type msgRefreshUI struct{}

// msgShowDevices switches to the device selection window.
type msgShowDevices struct{}

// msgDevicesListed is sent with the result of enumerating the host audio
// devices.
type msgDevicesListed struct {
	devices audio.Devices
	err     error
}

// requestShutdown requests a shutdown from the main window.
type requestShutdown struct{}

// currentTimeChanged is sent whenever the current time changes, which needs
// a UI update.
type currentTimeChanged struct{}

// crashApp is sent when we receive a signal to crash the app.
type crashApp struct{}

var errQuitRequested = errors.New("")

func emitMsg(msg tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return msg
	}
}

// emitAfter emits the given msg after the given delay.
func emitAfter(msg tea.Msg, d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return msg
	})
}

// isQuitMsg returns true if the app should quit as a response to the given
// msg. It returns an error with the reason for quitting.
func isQuitMsg(msg tea.Msg) error {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		k := msg.String()
		if k == "ctrl+q" {
			return errQuitRequested
		}
	case requestShutdown:
		return errQuitRequested
	case appStateErr:
		return msg.err
	}
	return nil
}

// isCrashMsg returns true if the app should quit with a full goroutine stack
// trace as a response to the given msg.
func isCrashMsg(msg tea.Msg) bool {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return msg.String() == "ctrl+\\"
	case crashApp:
		return true
	}
	return false
}
