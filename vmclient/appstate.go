package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/companyzero/voicememo/internal/audio"
	"github.com/companyzero/voicememo/internal/memostore"
	"github.com/companyzero/voicememo/vmclient/internal/version"
	"github.com/decred/slog"
	"github.com/muesli/reflow/wordwrap"
)

type appState struct {
	ctx     context.Context
	cancel  func()
	wg      sync.WaitGroup
	sendMsg func(tea.Msg)
	logBknd *logBackend
	log     slog.Logger
	styles  atomic.Pointer[theme]

	rec   *audio.MemoRecorder
	memos *memostore.Store

	winW, winH int

	maxRecordDuration time.Duration

	// nowPlaying is the id of the memo currently being played back (0 ==
	// none). nowPlayingSeq identifies the playback that owns the
	// reference, so a torn down playback of the same memo cannot clear
	// the reference of the one that replaced it.
	nowPlayingMtx sync.Mutex
	nowPlaying    uint64
	nowPlayingSeq uint64
	lastPlaySeq   uint64

	crashStackMtx sync.Mutex
	crashStack    string
	runErr        error

	// Footer data.
	footerMtx        sync.Mutex
	footerValid      bool
	footerLeft       string
	footerExtraRight string
	footerFull       string
}

type appStateErr struct {
	err error
}

func (as *appState) run() error {
	as.wg.Add(1)
	go func() {
		as.log.Infof("Starting %s version %s", appName, version.String())
		<-as.ctx.Done()
		as.wg.Done()
	}()

	// Update the time in footer every minute.
	go func() {
		for {
			now := time.Now().Truncate(time.Second)
			delta := time.Duration(60-now.Second()+1) * time.Second
			nextTick := time.After(delta)
			select {
			case <-as.ctx.Done():
				return
			case <-nextTick:
				as.footerInvalidate()
				as.sendMsg(currentTimeChanged{})
			}
		}
	}()

	as.wg.Wait()

	if err := as.rec.FreeContext(); err != nil {
		as.log.Warnf("Error releasing audio context: %v", err)
	}

	as.log.Infof("App is exiting")
	return nil
}

func (as *appState) runAsCmd() tea.Msg {
	err := as.run()
	if err != nil {
		as.crashStackMtx.Lock()
		as.runErr = err
		as.crashStackMtx.Unlock()
		return appStateErr{err: err}
	}
	return nil
}

// storeCrash logs all currently executing goroutines to the app log and
// stores it as a crash stack. This will be dumped to stderr on program
// close.
func (as *appState) storeCrash() {
	stack := string(allStack())
	as.crashStackMtx.Lock()
	as.crashStack = stack
	as.crashStackMtx.Unlock()
	as.log.Infof("Full goroutine stack trace:\n%s", stack)
}

// getExitState returns the exit state of the app. The first return value is
// the crash stack, the second is the run error.
func (as *appState) getExitState() (crashStack string, runErr error) {
	as.crashStackMtx.Lock()
	crashStack = as.crashStack
	runErr = as.runErr
	as.crashStackMtx.Unlock()
	return crashStack, runErr
}

func (as *appState) lastLogLines(nbLines int) string {
	log := strings.Join(as.logBknd.lastLogLines(nbLines), "")
	log = strings.TrimRight(log, "\n")
	log = wordwrap.String(log, as.winW-5)
	log = as.styles.Load().help.Render(log)
	return log
}

// setNowPlaying marks the given memo as the one being played back. Returns
// the sequence token of the new playback, which is the only one that may
// clear the reference.
func (as *appState) setNowPlaying(id uint64) uint64 {
	as.nowPlayingMtx.Lock()
	as.lastPlaySeq++
	seq := as.lastPlaySeq
	as.nowPlaying = id
	as.nowPlayingSeq = seq
	as.nowPlayingMtx.Unlock()
	return seq
}

// clearNowPlaying clears the playing reference if it is still owned by the
// playback with the given sequence token. Returns whether the reference was
// cleared.
func (as *appState) clearNowPlaying(seq uint64) bool {
	as.nowPlayingMtx.Lock()
	cleared := as.nowPlayingSeq == seq && seq != 0
	if cleared {
		as.nowPlaying = 0
		as.nowPlayingSeq = 0
	}
	as.nowPlayingMtx.Unlock()
	return cleared
}

// nowPlayingID returns the id of the memo being played back (0 == none).
func (as *appState) nowPlayingID() uint64 {
	as.nowPlayingMtx.Lock()
	res := as.nowPlaying
	as.nowPlayingMtx.Unlock()
	return res
}

// startCapture starts recording a new memo on a background goroutine. The
// result is reported back with msgRecordComplete or msgAudioError.
func (as *appState) startCapture() {
	as.wg.Add(1)
	go func() {
		defer as.wg.Done()

		ctx := as.ctx
		if as.maxRecordDuration > 0 {
			var cancel func()
			ctx, cancel = context.WithTimeout(ctx, as.maxRecordDuration)
			defer cancel()
		}

		err := as.rec.Capture(ctx)
		if err != nil && !errors.Is(err, context.Canceled) &&
			!errors.Is(err, context.DeadlineExceeded) {
			as.sendMsg(msgAudioError(err))
			return
		}

		frames, info, err := as.rec.TakeRecording()
		if err != nil {
			as.sendMsg(msgAudioError(err))
			return
		}
		data, err := audio.EncodeOpusFile(frames)
		if err != nil {
			as.sendMsg(msgAudioError(err))
			return
		}

		memo := as.memos.Append(memostore.Memo{
			MimeType:    "audio/ogg",
			Frames:      frames,
			Data:        data,
			DurationMs:  info.DurationMs,
			EncodedSize: info.EncodedSize,
		})
		as.log.Infof("Recorded %s: %s of audio, %s encoded",
			memo.Name, fmtSeconds(memo.DurationSeconds()),
			hbytes(int64(memo.EncodedSize)))
		as.footerInvalidate()
		as.sendMsg(msgRecordComplete{})
	}()
}

// playMemo starts playback of the given memo on a background goroutine. A
// running playback is torn down first. Completion is reported back with
// msgPlaybackComplete (carrying the memo id, so stale completions are
// ignored) or msgAudioError.
func (as *appState) playMemo(id uint64) error {
	memo, ok := as.memos.ByID(id)
	if !ok {
		return fmt.Errorf("unknown memo %d", id)
	}

	seq := as.setNowPlaying(memo.ID)
	as.wg.Add(1)
	go func() {
		defer as.wg.Done()

		err := as.rec.Play(as.ctx, memo.Frames, nil)
		cleared := as.clearNowPlaying(seq)
		switch {
		case err != nil && !errors.Is(err, context.Canceled):
			as.sendMsg(msgAudioError(err))
		case cleared:
			as.sendMsg(msgPlaybackComplete{id: memo.ID})
		}
	}()
	return nil
}

// deleteMemo removes the given memo, stopping its playback first when it is
// the one being played.
func (as *appState) deleteMemo(id uint64) error {
	if as.nowPlayingID() == id {
		as.rec.Stop()
	}
	if !as.memos.Delete(id) {
		return fmt.Errorf("unknown memo %d", id)
	}
	as.log.Infof("Deleted memo %d", id)
	as.footerInvalidate()
	return nil
}

// listAudioDevices enumerates the host audio devices on a background
// goroutine and reports the result with msgDevicesListed.
func (as *appState) listAudioDevices() {
	as.wg.Add(1)
	go func() {
		defer as.wg.Done()
		devices, err := audio.ListAudioDevices(as.log)
		as.sendMsg(msgDevicesListed{devices: devices, err: err})
	}()
}

// footerInvalidate marks the main app footer as invalid, causing the next
// footerView call to regenerate it.
func (as *appState) footerInvalidate() {
	as.footerMtx.Lock()
	as.footerValid = false
	as.footerMtx.Unlock()
}

// footerView returns the main window footer view.
func (as *appState) footerView(styles *theme, extraRight string) string {
	fs := styles.footer

	// Helper that rebuilds and returns the full footer based on the left
	// and right messages.
	getFullFooter := func() string {
		as.footerExtraRight = extraRight

		leftMsg := as.footerLeft
		rightMsg := as.footerExtraRight
		spaces := fs.Render(strings.Repeat(" ",
			max(0, as.winW-lipgloss.Width(leftMsg+rightMsg))))

		as.footerFull = leftMsg + spaces + rightMsg
		as.footerValid = true
		return as.footerFull
	}

	as.footerMtx.Lock()
	defer as.footerMtx.Unlock()

	// A valid footer means none of the footer info changed, so safe to
	// reuse the cached footer.
	if as.footerValid {
		if as.footerExtraRight != extraRight {
			return getFullFooter()
		}
		return as.footerFull
	}

	// Rebuild entire footer.
	nb := as.memos.Len()
	as.footerLeft = fs.Render(fmt.Sprintf(
		" [%s] [%s] [%d %s, %s]",
		time.Now().Format("15:04"),
		appName,
		nb,
		plural(nb, "memo", "memos"),
		hbytes(as.memos.TotalSize()),
	))

	return getFullFooter()
}

func newAppState(sendMsg func(tea.Msg), args *config) (*appState, error) {
	ctx, cancel := context.WithCancel(context.Background())

	as := &appState{
		ctx:     ctx,
		cancel:  cancel,
		sendMsg: sendMsg,
		memos:   memostore.NewStore(),

		maxRecordDuration: args.MaxRecordDuration,
	}

	theme, err := newTheme(args)
	if err != nil {
		cancel()
		return nil, err
	}
	as.styles.Store(theme)

	// Initialize logging.
	logCb := func(line string) { sendMsg(logUpdated{line: line}) }
	errMsgCb := func(string) { sendMsg(msgRefreshUI{}) }
	logBknd, err := newLogBackend(logCb, errMsgCb, args.LogFile,
		args.DebugLevel, args.MaxLogFiles)
	if err != nil {
		cancel()
		return nil, err
	}
	as.logBknd = logBknd
	as.log = logBknd.logger("VMCL")

	// Initialize the recorder.
	rec, err := audio.NewRecorder(logBknd.logger("AUDO"))
	if err != nil {
		cancel()
		return nil, err
	}
	if args.CaptureDevice != "" {
		if audio.FindDevice(audio.DeviceTypeCapture, args.CaptureDevice) == nil {
			as.log.Warnf("Configured capture device %q not found among "+
				"host devices", args.CaptureDevice)
		}
		if err := rec.SetCaptureDevice(args.CaptureDevice); err != nil {
			cancel()
			return nil, err
		}
	}
	if args.PlaybackDevice != "" {
		if audio.FindDevice(audio.DeviceTypePlayback, args.PlaybackDevice) == nil {
			as.log.Warnf("Configured playback device %q not found among "+
				"host devices", args.PlaybackDevice)
		}
		if err := rec.SetPlaybackDevice(args.PlaybackDevice); err != nil {
			cancel()
			return nil, err
		}
	}
	rec.SetCaptureGain(args.CaptureGain)
	rec.SetPlaybackGain(args.PlaybackGain)
	as.rec = rec

	return as, nil
}
