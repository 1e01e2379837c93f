package main

const (
	defaultConfigFileContent = `
# root directory for vmclient settings and logs
root = {{ .Root }}

[log]

# logfile = {{ .Root }}/applogs/vmclient.log
# maxlogfiles = 5

# Log level of subsystems. Can be specified multiple times as
# "subsys=level" or once for all subsystems.
# debuglevel = info

[theme]

# Color of the selected memo in the list, as attribute:foreground:background.
# selectedcolor = bold:cyan:na

[audio]

# IDs of the capture and playback devices to use. Empty means the system
# default device. Press "v" in the client to list available devices.
# capturedevice =
# playbackdevice =

# Gains applied to captured and played back audio, in dB.
# capturegain = 0
# playbackgain = 0

# Maximum duration of a single recording ("45s", "5m", ...). 0 means
# unlimited.
# maxrecordduration = 0
`
)
