package tui

import (
	"fmt"
	"strings"

	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/constants"
)

// RenderPlot draws values as a horizontal bar chart, one row per round
// starting at round 1. Bars are scaled so the largest value spans width
// cells; width <= 0 uses constants.PlotWidth.
func RenderPlot(title string, values []int, width int) string {
	if width <= 0 {
		width = constants.PlotWidth
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	if len(values) == 0 {
		b.WriteString(axisStyle.Render("  (no rounds after the initial state)"))
		b.WriteString("\n")
		return b.String()
	}

	peak := 0
	for _, v := range values {
		peak = max(peak, v)
	}
	labelWidth := len(fmt.Sprint(len(values)))

	for i, v := range values {
		n := 0
		if peak > 0 {
			n = v * width / peak
		}
		if v > 0 && n == 0 {
			n = 1
		}
		label := fmt.Sprintf("  %*d │", labelWidth, i+1)
		b.WriteString(axisStyle.Render(label))
		b.WriteString(barStyle.Render(strings.Repeat("█", n)))
		fmt.Fprintf(&b, " %d\n", v)
	}

	b.WriteString(axisStyle.Render(fmt.Sprintf("  %s └ round, peak %d", strings.Repeat(" ", labelWidth), peak)))
	b.WriteString("\n")
	return b.String()
}
