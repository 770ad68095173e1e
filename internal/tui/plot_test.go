package tui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderPlot(t *testing.T) {
	out := RenderPlot("new infections per day", []int{1, 4, 2, 0}, 8)

	assert.Contains(t, out, "new infections per day")
	assert.Contains(t, out, strings.Repeat("█", 8)+" 4")
	assert.Contains(t, out, strings.Repeat("█", 4)+" 2")
	assert.Contains(t, out, "peak 4")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	var bars int
	for _, l := range lines {
		if strings.Contains(l, "│") {
			bars++
		}
	}
	assert.Equal(t, 4, bars, "one row per round")
}

func TestRenderPlotSmallValuesVisible(t *testing.T) {
	out := RenderPlot("t", []int{100, 1}, 10)
	assert.Contains(t, out, "█ 1", "non-zero values get at least one cell")
}

func TestRenderPlotEmpty(t *testing.T) {
	out := RenderPlot("t", nil, 0)
	assert.Contains(t, out, "no rounds after the initial state")
}
