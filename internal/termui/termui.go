// Package termui is the terminal shell: the volume bar is drawn in a block
// of character cells and keys drive the record and stop controls.
package termui

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/petems/capture-tray/internal/app"
	"github.com/petems/capture-tray/internal/visualizer"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	disabledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))

	recordingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E0443E")).
			Bold(true)
)

type keyMap struct {
	Record key.Binding
	Stop   key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Record: key.NewBinding(key.WithKeys("r", "s"), key.WithHelp("r", "record")),
	Stop:   key.NewBinding(key.WithKeys("x", "enter"), key.WithHelp("x", "stop")),
	Quit:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

// Options configure the screen. Cols and Rows size the grid only when the
// terminal never reports its size.
type Options struct {
	Cols       int
	Rows       int
	FrameRate  int
	Background color.Color // cells of this colour are drawn blank
}

// UI implements app.UI in a terminal. Each pixel of its surface is one
// character cell. The surface is sized once, from the first window size,
// before the coordinator takes it.
type UI struct {
	opts Options

	mu       sync.Mutex
	surface  *visualizer.ImageSurface
	frame    *image.RGBA
	controls app.Controls
	handlers app.Handlers
}

var _ app.UI = (*UI)(nil)

func New(opts Options) *UI {
	if opts.Cols <= 0 {
		opts.Cols = 16
	}
	if opts.Rows <= 0 {
		opts.Rows = 12
	}
	if opts.FrameRate <= 0 {
		opts.FrameRate = 30
	}
	if opts.Background == nil {
		opts.Background = color.White
	}
	u := &UI{opts: opts, controls: app.Controls{RecordVisible: true}}
	u.resize(opts.Cols, opts.Rows)
	return u
}

func (u *UI) Surface() visualizer.Surface {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.surface
}

func (u *UI) resize(cols, rows int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.surface = visualizer.NewImageSurface(cols, rows, u.present)
	u.frame = nil
}

// gridSize fits the grid into a width x height terminal around the title
// and help lines.
func gridSize(width, height int) (cols, rows int) {
	cols = max(width/2, 1)
	rows = max(height-chromeLines, 1)
	return cols, rows
}

func (u *UI) SetControls(c app.Controls) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.controls = c
}

func (u *UI) Bind(h app.Handlers) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.handlers = h
}

func (u *UI) present(frame *image.RGBA) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.frame = frame
	return nil
}

func (u *UI) snapshot() (*image.RGBA, image.Rectangle, app.Controls, app.Handlers) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.frame, u.surface.Bounds(), u.controls, u.handlers
}

// Run shows the screen until the user quits or ctx is cancelled. onLoad runs
// once the terminal has reported its size, onExit after the program is gone.
func (u *UI) Run(ctx context.Context, onLoad, onExit func()) error {
	p := tea.NewProgram(
		newModel(u, onLoad),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if onExit != nil {
		onExit()
	}
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

type tickMsg time.Time

// title, blank line and help line
const chromeLines = 3

type model struct {
	ui     *UI
	onLoad func()
	every  time.Duration
	loaded bool
}

func newModel(u *UI, onLoad func()) model {
	return model{ui: u, onLoad: onLoad, every: time.Second / time.Duration(u.opts.FrameRate)}
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.every, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd {
	return m.tick()
}

// load hands the screen to the coordinator. It runs once, after the
// surface has its final size.
func (m model) load() (model, tea.Cmd) {
	m.loaded = true
	if m.onLoad == nil {
		return m, nil
	}
	return m, press(m.onLoad)
}

// Update never calls into the coordinator directly; presses run as
// commands off the event loop.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if m.loaded {
			return m, nil
		}
		m.ui.resize(gridSize(msg.Width, msg.Height))
		return m.load()

	case tickMsg:
		if !m.loaded {
			// no size reported, keep the default grid
			next, load := m.load()
			return next, tea.Batch(m.tick(), load)
		}
		return m, m.tick()

	case tea.KeyMsg:
		_, _, controls, handlers := m.ui.snapshot()
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Record):
			if controls.RecordVisible && controls.StartEnabled && handlers.Start != nil {
				return m, press(handlers.Start)
			}
		case key.Matches(msg, keys.Stop):
			if controls.StopVisible && handlers.Stop != nil {
				return m, press(handlers.Stop)
			}
		}
	}
	return m, nil
}

func press(fn func()) tea.Cmd {
	return func() tea.Msg {
		fn()
		return nil
	}
}

func (m model) View() string {
	frame, bounds, controls, _ := m.ui.snapshot()

	title := titleStyle.Render("Capture")
	if controls.StopVisible {
		title += " " + recordingStyle.Render("● REC")
	}
	return fmt.Sprintf("%s\n\n%s%s", title, renderFrame(frame, bounds, m.ui.opts.Background), helpLine(controls))
}

// renderFrame draws two terminal columns per cell so the bar looks square
func renderFrame(frame *image.RGBA, bounds image.Rectangle, background color.Color) string {
	var sb strings.Builder
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if frame == nil || !frame.Bounds().Eq(bounds) {
				sb.WriteString("  ")
				continue
			}
			c := frame.RGBAAt(x, y)
			if sameColor(c, background) {
				sb.WriteString("  ")
				continue
			}
			sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(hex(c))).Render("██"))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func helpLine(c app.Controls) string {
	var parts []string
	if c.RecordVisible {
		record := fmt.Sprintf("%s: %s", keys.Record.Help().Key, keys.Record.Help().Desc)
		if c.StartEnabled {
			parts = append(parts, infoStyle.Render(record))
		} else {
			parts = append(parts, disabledStyle.Render(record+" (waiting for microphone)"))
		}
	}
	if c.StopVisible {
		parts = append(parts, infoStyle.Render(fmt.Sprintf("%s: %s", keys.Stop.Help().Key, keys.Stop.Help().Desc)))
	}
	parts = append(parts, infoStyle.Render(fmt.Sprintf("%s: %s", keys.Quit.Help().Key, keys.Quit.Help().Desc)))
	return strings.Join(parts, " • ")
}

func sameColor(a, b color.Color) bool {
	ar, ag, ab, aa := a.RGBA()
	br, bg, bb, ba := b.RGBA()
	return ar == br && ag == bg && ab == bb && aa == ba
}

func hex(c color.RGBA) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}
