package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"

	tea "github.com/charmbracelet/bubbletea"
)

func realMain() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.CPUProfile != "" {
		f, err := os.Create(cfg.CPUProfile)
		if err != nil {
			return err
		}
		if cfg.CPUProfileHz > 0 {
			runtime.SetCPUProfileRate(cfg.CPUProfileHz)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer func() {
			pprof.StopCPUProfile()
			f.Close()
		}()
	}

	var p *tea.Program
	msgSender := func(msg tea.Msg) {
		if p != nil {
			go p.Send(msg)
		}
	}

	as, err := newAppState(msgSender, cfg)
	if err != nil {
		return err
	}

	initialModel, _ := newMemoWin(as)
	p = tea.NewProgram(initialModel, tea.WithAltScreen())

	progDoneChan := make(chan struct{})
	go listenToCrashSignals(p, progDoneChan, as.log)

	_, err = p.Run()
	close(progDoneChan)

	if cfg.MemProfile != "" {
		f, errProf := os.Create(cfg.MemProfile)
		if errProf != nil {
			as.log.Errorf("Unable to create mem profile file: %v", errProf)
		} else {
			pprof.WriteHeapProfile(f)
			f.Close()
		}
	}

	crashStack, runErr := as.getExitState()
	if crashStack != "" {
		fmt.Fprintln(os.Stderr, crashStack)
	}
	if err == nil {
		err = runErr
	}
	if errors.Is(err, errQuitRequested) {
		err = nil
	}
	return err
}

func main() {
	err := realMain()
	if err != nil && !errors.Is(err, errCmdDone) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
