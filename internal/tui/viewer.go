// Package tui provides the interactive round viewer and the new-cases plot.
package tui

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/constants"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/models"
)

const (
	nodesPerRow  = 5
	playInterval = 400 * time.Millisecond
)

type keyMap struct {
	Next     key.Binding
	Prev     key.Binding
	Play     key.Binding
	End      key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Next: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→/l", "next round"),
	),
	Prev: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←/h", "prev round"),
	),
	Play: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "play/pause"),
	),
	End: key.NewBinding(
		key.WithKeys("end", "G"),
		key.WithHelp("G", "last round"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "prev page"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "next page"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.Play, k.End, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.Play, k.End},
		{k.PageUp, k.PageDown},
		{k.Quit},
	}
}

// source pulls rounds on demand. It is shared between copies of the model.
type source struct {
	next func() (models.RoundSnapshot, bool)
	stop func()
	done bool
}

func (s *source) pull() (models.RoundSnapshot, bool) {
	if s.done {
		return models.RoundSnapshot{}, false
	}
	snap, ok := s.next()
	if !ok {
		s.done = true
	}
	return snap, ok
}

// close stops the underlying sequence; safe to call more than once.
func (s *source) close() {
	s.done = true
	s.stop()
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(playInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Model is the bubbletea model of the round viewer. Rounds are pulled from
// the simulation only when the user steps past the last one seen, so
// quitting early stops the simulation.
type Model struct {
	title   string
	src     *source
	history []models.RoundSnapshot
	cursor  int
	page    int
	playing bool
	help    help.Model
	keys    keyMap
	width   int
}

// NewModel creates a viewer over rounds and pulls the initial state.
func NewModel(title string, rounds iter.Seq[models.RoundSnapshot]) Model {
	next, stop := iter.Pull(rounds)
	m := Model{
		title: title,
		src:   &source{next: next, stop: stop},
		help:  help.New(),
		keys:  keys,
	}
	if snap, ok := m.src.pull(); ok {
		m.history = append(m.history, snap)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case tickMsg:
		if !m.playing {
			return m, nil
		}
		if !m.advance() {
			m.playing = false
			return m, nil
		}
		return m, tickCmd()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.src.close()
			return m, tea.Quit

		case key.Matches(msg, m.keys.Next):
			m.playing = false
			m.advance()

		case key.Matches(msg, m.keys.Prev):
			m.playing = false
			if m.cursor > 0 {
				m.cursor--
			}

		case key.Matches(msg, m.keys.End):
			m.playing = false
			for m.advance() {
			}

		case key.Matches(msg, m.keys.Play):
			m.playing = !m.playing
			if m.playing {
				return m, tickCmd()
			}

		case key.Matches(msg, m.keys.PageDown):
			if m.page < m.pages()-1 {
				m.page++
			}

		case key.Matches(msg, m.keys.PageUp):
			if m.page > 0 {
				m.page--
			}
		}
	}
	return m, nil
}

// advance moves to the next round, pulling it if needed. It reports
// whether the cursor moved.
func (m *Model) advance() bool {
	if m.cursor < len(m.history)-1 {
		m.cursor++
		return true
	}
	snap, ok := m.src.pull()
	if !ok {
		return false
	}
	m.history = append(m.history, snap)
	m.cursor = len(m.history) - 1
	return true
}

// Current returns the round under the cursor.
func (m Model) Current() (models.RoundSnapshot, bool) {
	if len(m.history) == 0 {
		return models.RoundSnapshot{}, false
	}
	return m.history[m.cursor], true
}

// Finished reports whether the simulation has produced its last round.
func (m Model) Finished() bool { return m.src.done }

func (m Model) pages() int {
	snap, ok := m.Current()
	if !ok || snap.Len() == 0 {
		return 1
	}
	per := nodesPerRow * constants.ViewerPageSize
	return (snap.Len() + per - 1) / per
}

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("dynpop · " + m.title))
	s.WriteString("\n\n")

	snap, ok := m.Current()
	if !ok {
		s.WriteString(doneStyle.Render("no rounds"))
		s.WriteString("\n")
		return s.String()
	}

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		statsBoxStyle.Render(m.renderStats(snap)),
		nodesBoxStyle.Render(m.renderNodes(snap)),
	))

	if m.src.done && m.cursor == len(m.history)-1 {
		s.WriteString("\n\n")
		s.WriteString(doneStyle.Render(fmt.Sprintf("✓ simulation finished after round %d", snap.Round)))
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))
	return s.String()
}

func (m Model) renderStats(snap models.RoundSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Round       %d\n", snap.Round)
	fmt.Fprintf(&b, "New         %d\n", snap.NewTransitions)
	fmt.Fprintf(&b, "Recoveries  %d\n\n", snap.Recoveries)

	counts := snap.Counts()
	for _, st := range models.AllStatuses {
		if counts[st] == 0 {
			continue
		}
		name := fmt.Sprintf("%-11s", st.String())
		fmt.Fprintf(&b, "%s %d\n", statusStyle(st).Render(name), counts[st])
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderNodes(snap models.RoundSnapshot) string {
	per := nodesPerRow * constants.ViewerPageSize
	start := min(m.page*per, snap.Len())
	end := min(start+per, snap.Len())

	var b strings.Builder
	for i := start; i < end; i++ {
		id, st := snap.At(i)
		cell := fmt.Sprintf("%-8s", truncate(id, 5)+":"+st.String())
		b.WriteString(statusStyle(st.Status).Render(cell))
		if (i-start)%nodesPerRow == nodesPerRow-1 {
			b.WriteString("\n")
		} else {
			b.WriteString(" ")
		}
	}
	fmt.Fprintf(&b, "\npage %d/%d", m.page+1, m.pages())
	return strings.TrimLeft(b.String(), "\n")
}

// truncate shortens a string to maxLen, adding "…" if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-1]) + "…"
}

// Run shows the viewer until the user quits or ctx is cancelled.
func Run(ctx context.Context, m Model) error {
	defer m.src.close()
	_, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
	return err
}
