package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/EdmondVirelle/cyber-qin/keymap"
	"github.com/EdmondVirelle/cyber-qin/live"
	"github.com/EdmondVirelle/cyber-qin/pipeline"
	"github.com/EdmondVirelle/cyber-qin/player"
	"github.com/EdmondVirelle/cyber-qin/theme"
)

const recentNotes = 12

// Mode selects which surface the model renders.
type Mode int

const (
	ModePlay Mode = iota
	ModeLive
)

type Model struct {
	mode    Mode
	player  *player.Player
	adapter *live.Adapter
	mapper  *keymap.Mapper
	theme   *theme.Theme

	bar      progress.Model
	title    string
	pos      float64
	duration float64
	beat     int
	recent   []string
	quitting bool
}

type ProgressMsg player.Progress

type TickMsg int

type NoteMsg pipeline.Event

func NewPlayModel(p *player.Player, mapper *keymap.Mapper, th *theme.Theme, title string) Model {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 50
	return Model{
		mode:     ModePlay,
		player:   p,
		mapper:   mapper,
		theme:    th,
		bar:      bar,
		title:    title,
		duration: p.Duration(),
	}
}

func NewLiveModel(a *live.Adapter, th *theme.Theme) Model {
	return Model{
		mode:    ModeLive,
		adapter: a,
		mapper:  a.Mapper(),
		theme:   th,
		title:   a.Port(),
	}
}

func listenProgress(p *player.Player) tea.Cmd {
	return func() tea.Msg {
		return ProgressMsg(<-p.Progress())
	}
}

func listenTicks(p *player.Player) tea.Cmd {
	return func() tea.Msg {
		return TickMsg(<-p.Ticks())
	}
}

func listenPlayerNotes(p *player.Player) tea.Cmd {
	return func() tea.Msg {
		return NoteMsg(<-p.Notes())
	}
}

func listenLiveNotes(a *live.Adapter) tea.Cmd {
	return func() tea.Msg {
		return NoteMsg(<-a.Notes())
	}
}

func (m Model) Init() tea.Cmd {
	if m.mode == ModeLive {
		return listenLiveNotes(m.adapter)
	}
	return tea.Batch(
		listenProgress(m.player),
		listenTicks(m.player),
		listenPlayerNotes(m.player),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case ProgressMsg:
		m.pos = msg.Pos
		m.duration = msg.Duration
		m.beat = 0
		return m, listenProgress(m.player)

	case TickMsg:
		m.beat = int(msg)
		return m, listenTicks(m.player)

	case NoteMsg:
		if msg.Kind == pipeline.NoteOn {
			m.recent = append(m.recent, keymap.NoteName(msg.Note))
			if len(m.recent) > recentNotes {
				m.recent = m.recent[len(m.recent)-recentNotes:]
			}
		}
		if m.mode == ModeLive {
			return m, listenLiveNotes(m.adapter)
		}
		return m, listenPlayerNotes(m.player)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		if m.mode == ModePlay {
			m.player.Stop()
		} else {
			m.adapter.Detach()
		}
		return m, tea.Quit

	case " ":
		if m.mode == ModePlay {
			switch m.player.State() {
			case player.Playing:
				m.player.Pause()
			case player.Paused, player.Stopped:
				m.player.Play()
			}
		}

	case "s":
		if m.mode == ModePlay {
			m.player.Stop()
			m.pos = 0
		}

	case "+", "=":
		m.mapper.SetTranspose(m.mapper.Transpose() + 1)

	case "-", "_":
		m.mapper.SetTranspose(m.mapper.Transpose() - 1)

	case "]":
		if m.mode == ModePlay {
			m.player.SetSpeed(m.player.Speed() + 0.25)
		}

	case "[":
		if m.mode == ModePlay {
			m.player.SetSpeed(m.player.Speed() - 0.25)
		}

	case "l":
		if m.mode == ModePlay {
			m.player.SetLoop(!m.player.Loop())
		}
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(m.theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.theme.Muted())
	noteStyle := lipgloss.NewStyle().Foreground(m.theme.Active())

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(headerStyle.Render(m.header()))
	out.WriteString("\n\n")

	if m.mode == ModePlay {
		pct := 0.0
		if m.duration > 0 {
			pct = m.pos / m.duration
			if pct > 1 {
				pct = 1
			}
		}
		out.WriteString(m.bar.ViewAs(pct))
		out.WriteString(dimStyle.Render(fmt.Sprintf("  %s / %s", fmtTime(m.pos), fmtTime(m.duration))))
		out.WriteString("\n\n")
	}

	if len(m.recent) > 0 {
		out.WriteString(noteStyle.Render(strings.Join(m.recent, " ")))
		out.WriteString("\n\n")
	}

	out.WriteString(dimStyle.Render(m.help()))
	return out.String()
}

func (m Model) header() string {
	scheme := m.mapper.Scheme()
	transpose := m.mapper.Transpose()

	if m.mode == ModeLive {
		status := string(m.theme.Symbols.Disconnected) + " waiting"
		if m.adapter.Attached() {
			status = string(m.theme.Symbols.Connected) + " " + m.adapter.Port()
		}
		return fmt.Sprintf("cyber-qin live  %s  scheme:%s  transpose:%+d", status, scheme.ID, transpose)
	}

	sym := m.theme.Symbols.Stopped
	state := m.player.State()
	switch state {
	case player.Playing:
		sym = m.theme.Symbols.Playing
	case player.Paused:
		sym = m.theme.Symbols.Paused
	case player.Countdown:
		sym = m.theme.Symbols.Countdown
	}
	head := fmt.Sprintf("cyber-qin  %c %s  %s  scheme:%s  transpose:%+d  speed:%.2fx",
		sym, state, m.title, scheme.ID, transpose, m.player.Speed())
	if state == player.Countdown && m.beat > 0 {
		head += fmt.Sprintf("  count-in:%d", m.beat)
	}
	if m.player.Loop() {
		head += "  loop"
	}
	return head
}

func (m Model) help() string {
	if m.mode == ModeLive {
		return "+/-:transpose  q:quit"
	}
	return "space:play/pause  s:stop  [/]:speed  +/-:transpose  l:loop  q:quit"
}

func fmtTime(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	s := int(sec)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
