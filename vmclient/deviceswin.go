package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/companyzero/voicememo/internal/audio"
)

// deviceEntry is one selectable row in the devices window.
type deviceEntry struct {
	typ    audio.DeviceType
	device audio.Device
}

// devicesWin lists the host audio devices and lets the user pick which
// capture and playback device the recorder uses.
type devicesWin struct {
	initless
	as *appState

	fetching bool
	entries  []deviceEntry
	idx      int
	errMsg   string
	applied  string
}

// setDevices flattens the enumerated devices into the selectable entry list,
// capture devices first.
func (dw *devicesWin) setDevices(devices audio.Devices) {
	dw.entries = dw.entries[:0]
	for _, d := range devices.Capture {
		dw.entries = append(dw.entries, deviceEntry{
			typ:    audio.DeviceTypeCapture,
			device: d,
		})
	}
	for _, d := range devices.Playback {
		dw.entries = append(dw.entries, deviceEntry{
			typ:    audio.DeviceTypePlayback,
			device: d,
		})
	}
	dw.idx = clamp(dw.idx, 0, max(0, len(dw.entries)-1))
}

// applySelected makes the recorder use the currently selected device.
func (dw *devicesWin) applySelected() {
	if dw.idx < 0 || dw.idx >= len(dw.entries) {
		return
	}

	entry := dw.entries[dw.idx]
	var err error
	if entry.typ == audio.DeviceTypeCapture {
		err = dw.as.rec.SetCaptureDevice(entry.device.ID)
	} else {
		err = dw.as.rec.SetPlaybackDevice(entry.device.ID)
	}
	if err != nil {
		dw.errMsg = err.Error()
		return
	}

	dw.errMsg = ""
	dw.applied = fmt.Sprintf("Using %s device %q", entry.typ,
		entry.device.Name)
	dw.as.log.Infof("Switched %s device to %q (%s)", entry.typ,
		entry.device.Name, entry.device.ID)
}

func (dw devicesWin) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if ss, cmd := maybeShutdown(dw.as, msg); ss != nil {
		return ss, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		dw.as.winW, dw.as.winH = msg.Width, msg.Height
		dw.as.footerInvalidate()
		return dw, nil

	case msgDevicesListed:
		dw.fetching = false
		if msg.err != nil {
			dw.errMsg = msg.err.Error()
			return dw, nil
		}
		dw.setDevices(msg.devices)
		return dw, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			dw.idx = clamp(dw.idx-1, 0, max(0, len(dw.entries)-1))
		case "down", "j":
			dw.idx = clamp(dw.idx+1, 0, max(0, len(dw.entries)-1))
		case "enter":
			dw.applySelected()
		case "esc", "q":
			return newMemoWin(dw.as)
		}
		return dw, nil
	}

	return dw, nil
}

func (dw devicesWin) View() string {
	styles := dw.as.styles.Load()
	var b strings.Builder

	b.WriteString(styles.header.Render(padName(" Audio Devices", dw.as.winW)))
	b.WriteString("\n\n")

	switch {
	case dw.fetching:
		b.WriteString(styles.help.Render("  Listing audio devices..."))
		b.WriteString("\n")
	case len(dw.entries) == 0:
		b.WriteString(styles.help.Render("  No audio devices found"))
		b.WriteString("\n")
	default:
		captureID := dw.as.rec.CaptureDeviceID()
		playbackID := dw.as.rec.PlaybackDeviceID()

		var lastTyp audio.DeviceType
		for i, entry := range dw.entries {
			if entry.typ != lastTyp {
				if lastTyp != "" {
					b.WriteString("\n")
				}
				b.WriteString(fmt.Sprintf(" %s devices:\n", entry.typ))
				lastTyp = entry.typ
			}

			inUse := (entry.typ == audio.DeviceTypeCapture && entry.device.ID == captureID) ||
				(entry.typ == audio.DeviceTypePlayback && entry.device.ID == playbackID)
			marker := " "
			if inUse {
				marker = "*"
			}
			suffix := ""
			if entry.device.IsDefault {
				suffix = " (default)"
			}

			line := fmt.Sprintf("   %s %s%s", marker,
				entry.device.Name, suffix)
			if i == dw.idx {
				line = styles.selected.Render(line)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	if dw.applied != "" {
		b.WriteString(dw.applied)
		b.WriteString("\n")
	}
	if dw.errMsg != "" {
		b.WriteString(styles.err.Render(dw.errMsg))
		b.WriteString("\n")
	}

	footer := dw.as.footerView(styles,
		styles.footer.Render("[enter] use device [esc] back "))
	nbLines := countNewLines(b.String()) + 2
	b.WriteString(blankLines(dw.as.winH - nbLines))
	b.WriteString(footer)

	return b.String()
}

func newDevicesWin(as *appState) (tea.Model, tea.Cmd) {
	as.listAudioDevices()
	dw := devicesWin{
		as:       as,
		fetching: true,
	}
	return dw, nil
}
