package action

// Action represents input actions that can be performed on the running demo
type Action int

const (
	Quit Action = iota
	ToggleVisibility
	LoadIncrease
	LoadDecrease
)

var names = map[Action]string{
	Quit:             "quit",
	ToggleVisibility: "toggle visibility",
	LoadIncrease:     "load increase",
	LoadDecrease:     "load decrease",
}

func (a Action) String() string {
	if name, ok := names[a]; ok {
		return name
	}
	return "unknown"
}
