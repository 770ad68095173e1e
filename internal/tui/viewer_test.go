package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/models"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/simulation"
)

func newTestSimulator(t *testing.T) *simulation.Simulator {
	t.Helper()
	cfg := simulation.DefaultConfig()
	cfg.Initiators = []string{"0"}
	cfg.Threshold = 0.5
	sc := simulation.Scenario{Edges: simulation.Ring("0", "1", "2", "3"), Config: cfg}

	g, err := sc.Graph()
	require.NoError(t, err)
	sim, err := simulation.New(g, cfg)
	require.NoError(t, err)
	return sim
}

func press(t *testing.T, m Model, k tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(k)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

var (
	keyNext = tea.KeyMsg{Type: tea.KeyRight}
	keyPrev = tea.KeyMsg{Type: tea.KeyLeft}
	keyEnd  = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("G")}
	keyPlay = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	keyQuit = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}
)

func TestViewerStepsThroughRounds(t *testing.T) {
	sim := newTestSimulator(t)
	m := NewModel("four-cycle", sim.Rounds())

	snap, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, 0, snap.Round)

	m, _ = press(t, m, keyNext)
	snap, _ = m.Current()
	assert.Equal(t, 1, snap.Round)
	assert.Equal(t, 2, snap.NewTransitions)

	m, _ = press(t, m, keyPrev)
	snap, _ = m.Current()
	assert.Equal(t, 0, snap.Round)

	// Stepping back does not pull new rounds.
	assert.Len(t, m.history, 2)
	assert.False(t, m.Finished())
}

func TestViewerEndDrainsSimulation(t *testing.T) {
	sim := newTestSimulator(t)
	m := NewModel("four-cycle", sim.Rounds())

	m, _ = press(t, m, keyEnd)
	snap, _ := m.Current()
	assert.Equal(t, 2, snap.Round)
	assert.True(t, m.Finished())
	assert.Equal(t, simulation.ReasonFixedPoint, sim.Summary().Reason)

	m, _ = press(t, m, keyNext)
	snap, _ = m.Current()
	assert.Equal(t, 2, snap.Round, "next past the end stays on the last round")
	assert.Contains(t, m.View(), "simulation finished after round 2")
}

func TestViewerQuitStopsSimulation(t *testing.T) {
	sim := newTestSimulator(t)
	m := NewModel("four-cycle", sim.Rounds())

	m, cmd := press(t, m, keyQuit)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, m.Finished())
	assert.Equal(t, simulation.ReasonStopped, sim.Summary().Reason)
}

func TestViewerPlayback(t *testing.T) {
	sim := newTestSimulator(t)
	m := NewModel("four-cycle", sim.Rounds())

	m, cmd := press(t, m, keyPlay)
	assert.True(t, m.playing)
	require.NotNil(t, cmd)

	for i := 0; i < 5 && m.playing; i++ {
		next, _ := m.Update(tickMsg{})
		m = next.(Model)
	}
	assert.False(t, m.playing, "playback stops at the last round")
	snap, _ := m.Current()
	assert.Equal(t, 2, snap.Round)
}

func TestViewerView(t *testing.T) {
	sim := newTestSimulator(t)
	m := NewModel("four-cycle", sim.Rounds())

	view := m.View()
	assert.Contains(t, view, "dynpop · four-cycle")
	assert.Contains(t, view, "Round       0")
	assert.Contains(t, view, "adopted")
	assert.Contains(t, view, "0:A")
	assert.Contains(t, view, "page 1/1")
	assert.True(t, strings.Contains(view, "quit"))
}

func TestViewerEmptySequence(t *testing.T) {
	m := NewModel("empty", func(yield func(models.RoundSnapshot) bool) {})
	_, ok := m.Current()
	assert.False(t, ok)
	assert.True(t, m.Finished())
	assert.Contains(t, m.View(), "no rounds")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
