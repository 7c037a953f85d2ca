package terminal

import (
	"fmt"
	"log/slog"

	"github.com/gdamore/tcell/v2"

	"github.com/valerio/go-frameperf/frameperf/backend/terminal/render"
)

var (
	borderStyle = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	titleStyle  = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	textStyle   = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	hiddenStyle = tcell.StyleDefault.Foreground(tcell.ColorGray)

	healthStyles = map[render.Health]tcell.Style{
		render.HealthUnknown:  tcell.StyleDefault.Foreground(tcell.ColorGray),
		render.HealthGood:     tcell.StyleDefault.Foreground(tcell.ColorGreen),
		render.HealthDegraded: tcell.StyleDefault.Foreground(tcell.ColorYellow),
		render.HealthPoor:     tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true),
	}
)

// render paints the whole screen. Callers hold t.mu.
func (t *Backend) render() {
	termWidth, termHeight := t.screen.Size()
	t.screen.Clear()

	if termWidth < minTermWidth || termHeight < minTermHeight {
		msg := fmt.Sprintf("Terminal too small! Need at least %dx%d", minTermWidth, minTermHeight)
		t.drawText(0, termHeight/2, termWidth, msg, tcell.StyleDefault.Foreground(tcell.ColorRed))
		return
	}

	t.drawStatus(termWidth)
	for x := 0; x < termWidth; x++ {
		t.screen.SetContent(x, statusHeight, '─', nil, borderStyle)
	}
	t.drawLogs(0, statusHeight+1, termWidth, termHeight)
}

func (t *Backend) drawStatus(width int) {
	title := "frameperf"
	if t.config.Title != "" {
		title += " - " + t.config.Title
	}
	t.drawText(0, 0, width, title, titleStyle)

	frame := t.last
	if !t.toggle.Visible() {
		t.drawText(0, 1, width, "hidden: ticks suspended, focus the terminal or press v", hiddenStyle)
	} else if !t.drawn {
		t.drawText(0, 1, width, "waiting for the first tick", hiddenStyle)
	} else {
		ratio := "n/a"
		if frame.HasRatio {
			ratio = fmt.Sprintf("%.2f", frame.Ratio)
		}
		status := fmt.Sprintf("tick %d  target %.1fms  delta %.1fms  ratio %s  units %d/%d",
			frame.Tick,
			float64(frame.Target.Microseconds())/1000,
			float64(frame.Delta.Microseconds())/1000,
			ratio,
			frame.Units,
			frame.MaxUnits)
		t.drawText(0, 1, width, status, textStyle)
	}

	style := healthStyles[render.RatioHealth(frame.Ratio, frame.HasRatio)]
	filled := render.BarWidth(frame.Units, frame.MaxUnits, width)
	for x := 0; x < width; x++ {
		ch := '░'
		if x < filled {
			ch = '█'
		}
		t.screen.SetContent(x, 2, ch, nil, style)
	}

	t.drawText(0, 3, width, "q quit  v visibility  +/- load", borderStyle)
}

func (t *Backend) drawLogs(startX, startY, width, termHeight int) {
	availableHeight := termHeight - startY
	if width <= 0 || availableHeight <= 0 {
		return
	}

	debugStyle := tcell.StyleDefault.Foreground(tcell.ColorGray)
	infoStyle := tcell.StyleDefault.Foreground(tcell.ColorBlue)
	warnStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)
	errStyle := tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)

	for i, logEntry := range t.logBuffer.GetRecent(availableHeight) {
		style := infoStyle
		switch logEntry.Level {
		case slog.LevelDebug:
			style = debugStyle
		case slog.LevelWarn:
			style = warnStyle
		case slog.LevelError:
			style = errStyle
		}

		t.drawText(startX, startY+i, width, render.FormatLogEntry(logEntry), style)
	}
}

func (t *Backend) drawText(x, y, width int, text string, style tcell.Style) {
	for _, ch := range render.Truncate(text, width) {
		t.screen.SetContent(x, y, ch, nil, style)
		x++
	}
}
