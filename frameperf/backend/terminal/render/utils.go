package render

// Shared layout helpers for the terminal panels

// Health classifies a performance ratio for display.
type Health int

const (
	HealthUnknown Health = iota // no window closed yet
	HealthGood
	HealthDegraded
	HealthPoor
)

// RatioHealth maps a ratio to a display class. Ratios at or above 0.9 keep up
// with the target rate.
func RatioHealth(ratio float64, ok bool) Health {
	switch {
	case !ok || ratio <= 0:
		return HealthUnknown
	case ratio >= 0.9:
		return HealthGood
	case ratio >= 0.6:
		return HealthDegraded
	default:
		return HealthPoor
	}
}

// BarWidth returns how many of width cells represent value out of max.
func BarWidth(value, max, width int) int {
	if max <= 0 || width <= 0 || value <= 0 {
		return 0
	}
	if value >= max {
		return width
	}
	return value * width / max
}

// Truncate shortens text to width runes, marking the cut with an ellipsis
// when there is room for one.
func Truncate(text string, width int) string {
	runes := []rune(text)
	if width <= 0 {
		return ""
	}
	if len(runes) <= width {
		return text
	}
	if width > 3 {
		return string(runes[:width-3]) + "..."
	}
	return string(runes[:width])
}
