package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime"
	"text/template"
	"time"

	"github.com/companyzero/voicememo/internal/audio"
	"github.com/companyzero/voicememo/vmclient/internal/version"
	"github.com/jrick/flagfile"
	strduration "github.com/xhit/go-str2duration/v2"
)

const (
	appName = "vmclient"
)

var (
	// Error to signal loadConfig() completed everything the cmd had to do
	// and main() should exit.
	errCmdDone = errors.New("cmd done")
)

type config struct {
	Root        string
	LogFile     string
	MaxLogFiles int
	DebugLevel  string

	CaptureDevice     audio.DeviceID
	PlaybackDevice    audio.DeviceID
	CaptureGain       float64
	PlaybackGain      float64
	MaxRecordDuration time.Duration

	SelectedColor string

	CPUProfile   string
	CPUProfileHz int
	MemProfile   string
}

func defaultAppDataDir(homeDir string) string {
	switch runtime.GOOS {
	// Attempt to use the LOCALAPPDATA or APPDATA environment variable on
	// Windows.
	case "windows":
		// Windows XP and before didn't have a LOCALAPPDATA, so fallback
		// to regular APPDATA when LOCALAPPDATA is not set.
		appData := os.Getenv("LOCALAPPDATA")
		if appData == "" {
			appData = os.Getenv("APPDATA")
		}

		if appData != "" {
			return filepath.Join(appData, appName)
		}

	case "darwin":
		if homeDir != "" {
			return filepath.Join(homeDir, "Library",
				"Application Support", appName)
		}

	case "plan9":
		if homeDir != "" {
			return filepath.Join(homeDir, appName)
		}

	default:
		if homeDir != "" {
			return filepath.Join(homeDir, "."+appName)
		}
	}

	return filepath.Join(".", appName)
}

func expandPath(homeDir, path string) string {
	if len(path) > 0 && path[0] == '~' {
		path = filepath.Join(homeDir, path[1:])
	}

	return path
}

// saveNewConfig writes a fresh config file based on the default template.
func saveNewConfig(cfgFile string, cfg *config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	// Replace the home dir prefix by "~" in the saved config.
	if cfg.Root[0] != '~' && len(cfg.Root) > len(homeDir) &&
		cfg.Root[:len(homeDir)] == homeDir {
		cfg.Root = "~" + cfg.Root[len(homeDir):]
	}

	tmpl, err := template.New("configfile").Parse(defaultConfigFileContent)
	if err != nil {
		return err
	}

	var generated bytes.Buffer
	if err := tmpl.Execute(&generated, cfg); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfgFile), 0o700); err != nil {
		return fmt.Errorf("unable to create data dir: %v", err)
	}

	return os.WriteFile(cfgFile, generated.Bytes(), 0o600)
}

func loadConfig() (*config, error) {
	// Setup defaults.
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	defaultAppDir := defaultAppDataDir(homeDir)
	defaultCfgFile := filepath.Join(defaultAppDir, appName+".conf")
	defaultLogFile := filepath.Join(defaultAppDir, "applogs", appName+".log")
	defaultDebugLevel := "info"

	// Parse CLI arguments.
	fs := flag.NewFlagSet("CLI Arguments", flag.ContinueOnError)
	flagVersion := fs.Bool("version", false, "Display current version and exit")
	flagCfgFile := fs.String("cfg", defaultCfgFile, "Config file to load")
	flagProfile := fs.String("profile", "", "ip:port of where to run the go profiler")
	flagCPUProfile := fs.String("cpuprofile", "", "filename to dump CPU profiling")
	flagCPUProfileHz := fs.Int("cpuprofilehz", 0, "Frequency to sample cpu profiling")
	flagMemProfile := fs.String("memprofile", "", "filename to dump mem profiling")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, errCmdDone
		}
		return nil, err
	}

	if *flagProfile != "" {
		go http.ListenAndServe(*flagProfile, nil)
	}

	if *flagVersion {
		fmt.Println("Version: " + version.String())
		return nil, errCmdDone
	}

	// Make sure cfgFile is not empty.
	cfgFile := *flagCfgFile
	if cfgFile == "" {
		cfgFile = defaultCfgFile
	}
	cfgFile = expandPath(homeDir, cfgFile)

	// Write a default config file on first run.
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		newCfg := &config{Root: filepath.Dir(cfgFile)}
		if err := saveNewConfig(cfgFile, newCfg); err != nil {
			return nil, fmt.Errorf("unable to create config file %q: %v",
				cfgFile, err)
		}
	}

	// Open config file.
	f, err := os.Open(cfgFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Define config file flags.
	fs = flag.NewFlagSet("Config Options", flag.ContinueOnError)
	flagRootDir := fs.String("root", defaultAppDir, "Root of all app data")

	// log
	flagLogFile := fs.String("log.logfile", defaultLogFile, "Log file location")
	flagMaxLogFiles := fs.Int("log.maxlogfiles", 0, "Max log files")
	flagDebugLevel := fs.String("log.debuglevel", defaultDebugLevel, "Debug Level")

	// theme
	flagSelectedColor := fs.String("theme.selectedcolor", "bold:cyan:na", "color of the selected memo")

	// audio
	flagCaptureDevice := fs.String("audio.capturedevice", "", "ID of the mic capture device")
	flagPlaybackDevice := fs.String("audio.playbackdevice", "", "ID of the playback device")
	flagCaptureGain := fs.Float64("audio.capturegain", 0, "Capture gain in dB")
	flagPlaybackGain := fs.Float64("audio.playbackgain", 0, "Playback gain in dB")
	flagMaxRecDuration := fs.String("audio.maxrecordduration", "0", "Max duration of a recording (0 = unlimited)")

	// Load config from file.
	parser := flagfile.Parser{
		ParseSections: true,
	}
	if err := parser.Parse(f, fs); err != nil {
		return nil, err
	}

	// Sanity check loaded flags.
	if *flagRootDir == "" {
		return nil, fmt.Errorf("flag 'root' cannot be empty")
	}
	maxRecDuration, err := strduration.ParseDuration(*flagMaxRecDuration)
	if err != nil {
		return nil, fmt.Errorf("invalid value for flag 'audio.maxrecordduration': %v", err)
	}
	if maxRecDuration < 0 {
		return nil, fmt.Errorf("flag 'audio.maxrecordduration' cannot be negative")
	}

	// Clean paths.
	*flagRootDir = expandPath(homeDir, *flagRootDir)
	*flagLogFile = expandPath(homeDir, *flagLogFile)

	// Return the final cfg object.
	return &config{
		Root:        *flagRootDir,
		LogFile:     *flagLogFile,
		MaxLogFiles: *flagMaxLogFiles,
		DebugLevel:  *flagDebugLevel,

		CaptureDevice:     audio.DeviceID(*flagCaptureDevice),
		PlaybackDevice:    audio.DeviceID(*flagPlaybackDevice),
		CaptureGain:       *flagCaptureGain,
		PlaybackGain:      *flagPlaybackGain,
		MaxRecordDuration: maxRecDuration,

		SelectedColor: *flagSelectedColor,

		CPUProfile:   *flagCPUProfile,
		CPUProfileHz: *flagCPUProfileHz,
		MemProfile:   *flagMemProfile,
	}, nil
}
