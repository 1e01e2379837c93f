package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/companyzero/voicememo/internal/memostore"
	"github.com/muesli/reflow/wordwrap"
)

// memoWin is the main app window. It lists the recorded memos and offers
// recording, playback and deletion of them.
type memoWin struct {
	as *appState

	idx       int
	indicator spinner.Model
	btns      formHelper
	errMsg    string
}

func (mw *memoWin) selectedMemo() (memostore.Memo, bool) {
	memos := mw.as.memos.Memos()
	if mw.idx < 0 || mw.idx >= len(memos) {
		return memostore.Memo{}, false
	}
	return memos[mw.idx], true
}

// clampIdx ensures the selection index still points at an existing memo.
func (mw *memoWin) clampIdx() {
	mw.idx = clamp(mw.idx, 0, max(0, mw.as.memos.Len()-1))
}

// updateButtons rebuilds the action buttons based on what the recorder is
// currently doing.
func (mw *memoWin) updateButtons() {
	styles := mw.as.styles.Load()
	recording, playing := mw.as.rec.Busy()

	var btns []tea.Model
	switch {
	case recording:
		pauseLabel, pauseMsg := "[ Pause ]", tea.Msg(msgPauseResumeMemo{})
		if mw.as.rec.Paused() {
			pauseLabel = "[ Resume ]"
		}
		btns = []tea.Model{
			newButtonHelper(styles,
				btnWithLabel("[ Stop ]"),
				btnWithTrailing(" "),
				btnWithFixedMsgAction(msgStopActivity{})),
			newButtonHelper(styles,
				btnWithLabel(pauseLabel),
				btnWithTrailing("\n"),
				btnWithFixedMsgAction(pauseMsg)),
		}

	case playing:
		btns = []tea.Model{
			newButtonHelper(styles,
				btnWithLabel("[ Stop ]"),
				btnWithTrailing("\n"),
				btnWithFixedMsgAction(msgStopActivity{})),
		}

	default:
		btns = []tea.Model{
			newButtonHelper(styles,
				btnWithLabel("[ Record ]"),
				btnWithTrailing(" "),
				btnWithFixedMsgAction(msgRecordMemo{})),
		}
		if memo, ok := mw.selectedMemo(); ok {
			btns = append(btns,
				newButtonHelper(styles,
					btnWithLabel("[ Play ]"),
					btnWithTrailing(" "),
					btnWithFixedMsgAction(msgPlayMemo{id: memo.ID})),
				newButtonHelper(styles,
					btnWithLabel("[ Delete ]"),
					btnWithFixedMsgAction(msgDeleteMemo{id: memo.ID})),
			)
		}
		last := btns[len(btns)-1].(*buttonHelper)
		last.trailingTxt = "\n"
	}

	mw.btns = newFormHelper(styles, btns...)
}

// busyTickCmds returns the cmds needed to animate the activity indicator and
// refresh the elapsed time while the recorder is busy.
func (mw *memoWin) busyTickCmds() tea.Cmd {
	return batchCmds(appendCmd(nil, mw.indicator.Tick,
		emitAfter(msgRefreshUI{}, 50*time.Millisecond)))
}

func (mw memoWin) Init() tea.Cmd {
	return batchCmds([]tea.Cmd{
		mw.as.runAsCmd,
	})
}

func (mw memoWin) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if ss, cmd := maybeShutdown(mw.as, msg); ss != nil {
		return ss, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		mw.as.winW, mw.as.winH = msg.Width, msg.Height
		mw.as.footerInvalidate()
		return mw, nil

	case tea.KeyMsg:
		recording, playing := mw.as.rec.Busy()
		switch msg.String() {
		case "up", "k":
			mw.idx = clamp(mw.idx-1, 0, max(0, mw.as.memos.Len()-1))
			mw.updateButtons()
			return mw, nil

		case "down", "j":
			mw.idx = clamp(mw.idx+1, 0, max(0, mw.as.memos.Len()-1))
			mw.updateButtons()
			return mw, nil

		case "r":
			if !recording && !playing {
				return mw, emitMsg(msgRecordMemo{})
			}

		case " ":
			if recording {
				return mw, emitMsg(msgPauseResumeMemo{})
			}

		case "s", "esc":
			if recording || playing {
				return mw, emitMsg(msgStopActivity{})
			}

		case "p":
			if memo, ok := mw.selectedMemo(); ok && !recording {
				return mw, emitMsg(msgPlayMemo{id: memo.ID})
			}

		case "d":
			if memo, ok := mw.selectedMemo(); ok {
				return mw, emitMsg(msgDeleteMemo{id: memo.ID})
			}

		case "v":
			return mw, emitMsg(msgShowDevices{})
		}

		var cmd tea.Cmd
		mw.btns, cmd = mw.btns.Update(msg)
		return mw, cmd

	case msgRecordMemo:
		mw.errMsg = ""
		mw.as.startCapture()
		mw.updateButtons()
		return mw, mw.busyTickCmds()

	case msgStopActivity:
		mw.as.rec.Stop()
		mw.updateButtons()
		return mw, emitAfter(msgRefreshUI{}, 50*time.Millisecond)

	case msgPauseResumeMemo:
		var err error
		if mw.as.rec.Paused() {
			err = mw.as.rec.Resume()
		} else {
			err = mw.as.rec.Pause()
		}
		if err != nil {
			mw.errMsg = err.Error()
		}
		mw.updateButtons()
		return mw, nil

	case msgPlayMemo:
		mw.errMsg = ""
		if err := mw.as.playMemo(msg.id); err != nil {
			mw.errMsg = err.Error()
			return mw, nil
		}
		mw.updateButtons()
		return mw, mw.busyTickCmds()

	case msgDeleteMemo:
		if err := mw.as.deleteMemo(msg.id); err != nil {
			mw.errMsg = err.Error()
			return mw, nil
		}
		mw.clampIdx()
		mw.updateButtons()
		return mw, nil

	case msgRecordComplete:
		// Select the just recorded memo.
		mw.idx = max(0, mw.as.memos.Len()-1)
		mw.updateButtons()
		return mw, nil

	case msgPlaybackComplete:
		mw.updateButtons()
		return mw, nil

	case msgAudioError:
		mw.errMsg = msg.Error()
		mw.updateButtons()
		return mw, nil

	case msgShowDevices:
		return newDevicesWin(mw.as)

	case msgRefreshUI:
		mw.updateButtons()
		if recording, playing := mw.as.rec.Busy(); recording || playing {
			return mw, emitAfter(msgRefreshUI{}, 500*time.Millisecond)
		}
		return mw, nil

	case spinner.TickMsg:
		if recording, playing := mw.as.rec.Busy(); recording || playing {
			var cmd tea.Cmd
			mw.indicator, cmd = mw.indicator.Update(msg)
			return mw, cmd
		}
		return mw, nil

	case logUpdated, currentTimeChanged:
		return mw, nil
	}

	var cmd tea.Cmd
	mw.btns, cmd = mw.btns.Update(msg)
	return mw, cmd
}

func (mw memoWin) View() string {
	styles := mw.as.styles.Load()
	var b strings.Builder

	b.WriteString(styles.header.Render(padName(" Voice Memos", mw.as.winW)))
	b.WriteString("\n\n")

	memos := mw.as.memos.Memos()
	nowPlaying := mw.as.nowPlayingID()
	if len(memos) == 0 {
		b.WriteString(styles.help.Render("  No memos recorded yet"))
		b.WriteString("\n")
	}
	for i, memo := range memos {
		marker := " "
		if memo.ID == nowPlaying {
			marker = "▶"
		}
		ts := memo.CreatedAt.Format(ISO8601DateTime)
		line := fmt.Sprintf(" %s %s %6s %9s",
			marker,
			padName(memo.Name, 20),
			fmtSeconds(memo.DurationSeconds()),
			hbytes(int64(memo.EncodedSize)))
		switch {
		case i == mw.idx:
			line = styles.selected.Render(line + "  " + ts)
		case memo.ID == nowPlaying:
			line = styles.playing.Render(line + "  " + ts)
		default:
			line += "  " + styles.timestamp.Render(ts)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	// Current activity status.
	recording, playing := mw.as.rec.Busy()
	switch {
	case recording:
		status := fmt.Sprintf("%s recording %s", mw.indicator.View(),
			fmtSeconds(mw.as.rec.ElapsedMs()/1000))
		if mw.as.rec.Paused() {
			status += " [paused]"
		}
		b.WriteString(status)
	case playing:
		b.WriteString(fmt.Sprintf("%s playing", mw.indicator.View()))
	}
	b.WriteString("\n\n")

	b.WriteString(mw.btns.View())

	if mw.errMsg != "" {
		b.WriteString(styles.err.Render(wordwrap.String(mw.errMsg,
			max(10, mw.as.winW-5))))
		b.WriteString("\n")
	}

	b.WriteString(mw.as.lastLogLines(1))
	b.WriteString("\n")

	footer := mw.as.footerView(styles,
		styles.footer.Render("[r]ec [p]lay [d]el [s]top [v]devices [ctrl+q]uit "))
	nbLines := countNewLines(b.String()) + 2
	b.WriteString(blankLines(mw.as.winH - nbLines))
	b.WriteString(footer)

	return b.String()
}

func newMemoWin(as *appState) (tea.Model, tea.Cmd) {
	indicator := spinner.New()
	indicator.Spinner = spinner.Points
	indicator.Style = as.styles.Load().playing

	mw := memoWin{
		as:        as,
		indicator: indicator,
	}
	mw.clampIdx()
	mw.updateButtons()
	return mw, nil
}
