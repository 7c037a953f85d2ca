package input

import "github.com/valerio/go-frameperf/frameperf/input/action"

// DefaultKeyMap provides default key mappings that work across backends.
// Backends can use these mappings as a base and override/extend as needed.
var DefaultKeyMap = map[string]action.Action{
	"q":      action.Quit,
	"Escape": action.Quit,
	"v":      action.ToggleVisibility,
	"+":      action.LoadIncrease,
	"=":      action.LoadIncrease, // same key without shift
	"-":      action.LoadDecrease,
}
