package terminal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gdamore/tcell/v2"

	"github.com/valerio/go-frameperf/frameperf/backend"
	"github.com/valerio/go-frameperf/frameperf/backend/terminal/render"
	"github.com/valerio/go-frameperf/frameperf/input"
	"github.com/valerio/go-frameperf/frameperf/input/action"
	"github.com/valerio/go-frameperf/frameperf/timing"
	"github.com/valerio/go-frameperf/frameperf/visibility"
	"github.com/valerio/go-frameperf/frameperf/workload"
)

const (
	minTermWidth  = 40
	minTermHeight = 8
	statusHeight  = 4
	logCapacity   = 200
)

// Pacing selects how refreshes are generated.
type Pacing int

const (
	PacingAdaptive Pacing = iota // sleep + spin with drift correction
	PacingTicker                 // plain ticker, cheaper and less accurate
)

// runnableSource is a frame source driven by its own loop.
type runnableSource interface {
	timing.FrameSource
	Run(ctx context.Context) error
}

// Backend implements the Backend interface using tcell for terminal rendering.
// Terminal focus drives host visibility.
type Backend struct {
	screen    tcell.Screen
	pacing    Pacing
	logBuffer *render.LogBuffer
	logLevel  *slog.LevelVar
	config    backend.Config
	clock     clock.Clock
	source    runnableSource
	toggle    *visibility.Toggle

	mu    sync.Mutex // serializes drawing and guards last
	last  backend.Frame
	drawn bool
}

// New creates a new terminal backend. A nil screen opens the real terminal.
func New(screen tcell.Screen, pacing Pacing) *Backend {
	return &Backend{
		screen:   screen,
		pacing:   pacing,
		logLevel: new(slog.LevelVar),
	}
}

// Init initializes the terminal backend
func (t *Backend) Init(config backend.Config) (backend.Host, error) {
	if config.RefreshRate <= 0 {
		return backend.Host{}, errors.New("terminal: refresh rate must be positive")
	}
	if config.Input == nil {
		return backend.Host{}, errors.New("terminal: input manager is required")
	}
	t.config = config

	if t.screen == nil {
		screen, err := tcell.NewScreen()
		if err != nil {
			return backend.Host{}, fmt.Errorf("failed to initialize terminal: %v", err)
		}
		t.screen = screen
	}
	if err := t.screen.Init(); err != nil {
		return backend.Host{}, fmt.Errorf("failed to initialize terminal: %v", err)
	}
	t.screen.EnableFocus()
	t.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	t.screen.Clear()

	// Logs go to the log pane from now on
	t.logBuffer = render.NewLogBuffer(logCapacity)
	t.logLevel.Set(config.LogLevel)
	slog.SetDefault(slog.New(render.NewLogBufferHandler(t.logBuffer, t.logLevel)))

	t.clock = clock.New()
	switch t.pacing {
	case PacingTicker:
		t.source = timing.NewTickerSource(t.clock, config.RefreshRate)
	default:
		t.source = timing.NewAdaptiveSource(t.clock, config.RefreshRate)
	}
	t.toggle = visibility.NewToggle(true)

	slog.Info("Terminal backend initialized", "refresh_rate", config.RefreshRate, "pacing", t.pacing)

	return backend.Host{
		Clock:      t.clock,
		Source:     t.source,
		Visibility: t.toggle,
	}, nil
}

// Update renders the workload of a tick and the status panel
func (t *Backend) Update(frame backend.Frame) ([]backend.InputEvent, error) {
	workload.Burn(t.clock, time.Duration(frame.Units)*t.config.UnitCost)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = frame
	t.drawn = true
	t.render()
	t.screen.Show()

	// Input is delivered straight to the manager from Run
	return nil, nil
}

// Run drives the frame source and dispatches terminal events until ctx is done.
func (t *Backend) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	defer close(quit)
	go t.screen.ChannelEvents(events, quit)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)
	defer signal.Stop(signals)

	sourceErr := make(chan error, 1)
	go func() {
		sourceErr <- t.source.Run(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			<-sourceErr
			return nil
		case err := <-sourceErr:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			t.handleEvent(ev)
		case sig := <-signals:
			slog.Info("Received signal", "signal", sig)
			t.config.Input.Trigger(action.Quit)
		}
	}
}

// Cleanup cleans up terminal resources
func (t *Backend) Cleanup() error {
	if t.screen != nil {
		slog.Info("Cleaning up terminal backend")
		t.screen.Fini()
	}
	return nil
}

func (t *Backend) handleEvent(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		t.processKeyEvent(ev)
	case *tcell.EventFocus:
		slog.Debug("Focus event", "focused", ev.Focused)
		t.toggle.Set(ev.Focused)
		t.redraw()
	case *tcell.EventResize:
		t.screen.Sync()
		t.redraw()
	}
}

func (t *Backend) processKeyEvent(ev *tcell.EventKey) {
	act, ok := keyMapping[ev.Key()]
	if !ok && ev.Key() == tcell.KeyRune {
		act, ok = runeMapping[ev.Rune()]
	}
	if !ok {
		return
	}

	slog.Debug("Key event", "key", ev.Name(), "action", act)
	t.config.Input.Trigger(act)
	if act == action.ToggleVisibility {
		t.redraw()
	}
}

// redraw repaints the last frame, used when no tick is coming to do it.
func (t *Backend) redraw() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.render()
	t.screen.Show()
}

// tcellKeyNameMap converts tcell keys to key names used in default mappings
var tcellKeyNameMap = map[tcell.Key]string{
	tcell.KeyEscape: "Escape",
}

func buildKeyMapping() map[tcell.Key]action.Action {
	mapping := make(map[tcell.Key]action.Action)
	for key, keyName := range tcellKeyNameMap {
		if act, ok := input.DefaultKeyMap[keyName]; ok {
			mapping[key] = act
		}
	}
	mapping[tcell.KeyCtrlC] = action.Quit
	return mapping
}

func buildRuneMapping() map[rune]action.Action {
	mapping := make(map[rune]action.Action)
	for keyName, act := range input.DefaultKeyMap {
		if r := []rune(keyName); len(r) == 1 {
			mapping[r[0]] = act
		}
	}
	return mapping
}

var (
	keyMapping  = buildKeyMapping()
	runeMapping = buildRuneMapping()
)

func (p Pacing) String() string {
	if p == PacingTicker {
		return "ticker"
	}
	return "adaptive"
}
