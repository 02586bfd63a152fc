// SPDX-License-Identifier: MIT
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"audiobars/internal/transport"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

const refreshInterval = time.Second / 30

// blocks are the eighth-step glyphs used to draw a bar cell.
var blocks = []rune(" ▁▂▃▄▅▆▇█")

var (
	keyMore = key.NewBinding(key.WithKeys("+", "=", "right", "l"))
	keyLess = key.NewBinding(key.WithKeys("-", "_", "left", "h"))
)

// Controller changes the bar count of a running engine.
type Controller interface {
	SetAmountBars(n uint16) error
	AmountBars() uint16
}

type snapshot struct {
	seq  uint64
	bpm  float64
	peak float64
	bars []float64
}

// Live is a transport that shows the first channel of every frame in the
// terminal. Send only copies the frame; drawing happens on the bubbletea
// goroutine at a fixed refresh rate.
type Live struct {
	mu     sync.Mutex
	latest snapshot
}

var _ transport.Transport = (*Live)(nil)

func NewLive() *Live {
	return &Live{}
}

func (l *Live) Send(frame *transport.Frame) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.latest.seq = frame.Sequence
	l.latest.bpm = frame.BPM
	l.latest.peak = frame.Peak
	if len(frame.Bars) > 0 {
		l.latest.bars = append(l.latest.bars[:0], frame.Bars[0]...)
	} else {
		l.latest.bars = l.latest.bars[:0]
	}
	return nil
}

func (l *Live) Close() error {
	return nil
}

// load copies the latest frame into dst.
func (l *Live) load(dst *snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	dst.seq = l.latest.seq
	dst.bpm = l.latest.bpm
	dst.peak = l.latest.peak
	dst.bars = append(dst.bars[:0], l.latest.bars...)
}

// Run shows the view until the user quits or ctx is cancelled.
func (l *Live) Run(ctx context.Context, ctrl Controller) error {
	p := tea.NewProgram(newLiveModel(l, ctrl), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type liveModel struct {
	live *Live
	ctrl Controller

	width, height int
	frame         snapshot
	status        string
}

func newLiveModel(l *Live, ctrl Controller) liveModel {
	return liveModel{live: l, ctrl: ctrl, width: 80, height: 24}
}

func (m liveModel) Init() tea.Cmd {
	return tick()
}

func (m liveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case tickMsg:
		m.live.load(&m.frame)
		return m, tick()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keyQuit):
			return m, tea.Quit
		case key.Matches(msg, keyMore):
			m.resize(+1)
		case key.Matches(msg, keyLess):
			m.resize(-1)
		}
	}
	return m, nil
}

func (m *liveModel) resize(delta int) {
	if m.ctrl == nil {
		return
	}
	n := int(m.ctrl.AmountBars()) + delta
	if n < 1 || n > 0xFFFF {
		return
	}
	if err := m.ctrl.SetAmountBars(uint16(n)); err != nil {
		m.status = err.Error()
		return
	}
	m.status = fmt.Sprintf("%d bars", n)
}

func (m liveModel) View() string {
	header := titleStyle.Render("audiobars") + infoStyle.Render(fmt.Sprintf("  %.0f BPM  %.0f Hz  #%d  %s", m.frame.bpm, m.frame.peak, m.frame.seq, m.status))
	help := infoStyle.Render("+/-: Bars • q: Quit")

	rows := max(m.height-4, 1)
	return fmt.Sprintf("%s\n\n%s\n%s", header, barStyle.Render(renderBars(m.frame.bars, m.width, rows)), help)
}

// renderBars draws values as vertical bars, one column per bar, clamped to
// [0, 1]. Bars beyond width are cut off.
func renderBars(values []float64, width, height int) string {
	if height <= 0 || width <= 0 {
		return ""
	}
	values = values[:min(len(values), width)]
	steps := len(blocks) - 1

	var sb strings.Builder
	for row := height - 1; row >= 0; row-- {
		for _, v := range values {
			v = min(max(v, 0), 1)
			// Number of eighths filled in this row.
			fill := int(v*float64(height*steps)+0.5) - row*steps
			sb.WriteRune(blocks[min(max(fill, 0), steps)])
		}
		if row > 0 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
