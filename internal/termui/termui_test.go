package termui

import (
	"image"
	"image/color"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petems/capture-tray/internal/app"
)

var green = color.RGBA{G: 0x80, A: 0xff}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func boundUI() (*UI, *atomic.Int32, *atomic.Int32) {
	u := New(Options{Cols: 4, Rows: 5})
	var starts, stops atomic.Int32
	u.Bind(app.Handlers{
		Start: func() { starts.Add(1) },
		Stop:  func() { stops.Add(1) },
	})
	return u, &starts, &stops
}

func run(cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}
	return cmd()
}

func TestRecordKeyIgnoredUntilArmed(t *testing.T) {
	u, starts, _ := boundUI()
	m := newModel(u, nil)

	_, cmd := m.Update(keyPress("r"))
	assert.Nil(t, cmd)

	u.SetControls(app.Controls{StartEnabled: true, RecordVisible: true})
	_, cmd = m.Update(keyPress("r"))
	require.NotNil(t, cmd)
	run(cmd)
	assert.Equal(t, int32(1), starts.Load())
}

func TestStopKeyOnlyWhileRecording(t *testing.T) {
	u, _, stops := boundUI()
	m := newModel(u, nil)

	u.SetControls(app.Controls{StartEnabled: true, RecordVisible: true})
	_, cmd := m.Update(keyPress("x"))
	assert.Nil(t, cmd)

	u.SetControls(app.Controls{StartEnabled: true, StopVisible: true})
	_, cmd = m.Update(keyPress("x"))
	run(cmd)
	assert.Equal(t, int32(1), stops.Load())

	// record is hidden while recording
	_, cmd = m.Update(keyPress("r"))
	assert.Nil(t, cmd)
}

func TestQuitKey(t *testing.T) {
	u, _, _ := boundUI()
	m := newModel(u, nil)

	_, cmd := m.Update(keyPress("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestWindowSizeSizesSurfaceBeforeLoad(t *testing.T) {
	u, _, _ := boundUI()
	var loads atomic.Int32
	var boundsAtLoad image.Rectangle
	m := newModel(u, func() {
		boundsAtLoad = u.Surface().Bounds()
		loads.Add(1)
	})

	next, cmd := m.Update(tea.WindowSizeMsg{Width: 41, Height: 15})
	require.NotNil(t, cmd)
	run(cmd)
	assert.Equal(t, int32(1), loads.Load())
	assert.Equal(t, image.Rect(0, 0, 20, 12), boundsAtLoad)

	// later resizes keep the surface the coordinator already holds
	next, cmd = next.Update(tea.WindowSizeMsg{Width: 100, Height: 50})
	assert.Nil(t, cmd)
	assert.Equal(t, int32(1), loads.Load())
	assert.Equal(t, image.Rect(0, 0, 20, 12), u.Surface().Bounds())

	view := next.View()
	// title, blank line, 12 grid rows, help line
	assert.Len(t, strings.Split(view, "\n"), 15)
}

func TestFirstTickLoadsWithDefaultGrid(t *testing.T) {
	u, _, _ := boundUI()
	var loads atomic.Int32
	m := newModel(u, func() { loads.Add(1) })
	m.every = time.Millisecond

	require.NotNil(t, m.Init())

	next, cmd := m.Update(tickMsg(time.Now()))
	require.NotNil(t, cmd)
	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)
	for _, c := range batch {
		run(c)
	}
	assert.Equal(t, int32(1), loads.Load())
	assert.Equal(t, image.Rect(0, 0, 4, 5), u.Surface().Bounds())

	// a size arriving after the load is ignored
	_, cmd = next.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	assert.Nil(t, cmd)
	assert.Equal(t, int32(1), loads.Load())
}

func TestGridSize(t *testing.T) {
	tests := []struct {
		width, height int
		cols, rows    int
	}{
		{80, 24, 40, 21},
		{41, 15, 20, 12},
		{1, 2, 1, 1},
		{0, 0, 1, 1},
	}
	for _, tt := range tests {
		cols, rows := gridSize(tt.width, tt.height)
		assert.Equal(t, tt.cols, cols, "cols for %dx%d", tt.width, tt.height)
		assert.Equal(t, tt.rows, rows, "rows for %dx%d", tt.width, tt.height)
	}
}

func TestSurfaceDrawsBarIntoFrame(t *testing.T) {
	u, _, _ := boundUI()
	s := u.Surface()
	assert.Equal(t, image.Rect(0, 0, 4, 5), s.Bounds())

	s.Fill(s.Bounds(), color.White)
	s.Fill(image.Rect(0, 3, 4, 5), green)
	require.NoError(t, s.Flush())

	frame, bounds, _, _ := u.snapshot()
	require.NotNil(t, frame)
	lines := strings.Split(strings.TrimSuffix(renderFrame(frame, bounds, u.opts.Background), "\n"), "\n")
	require.Len(t, lines, 5)
	for i, line := range lines {
		if i < 3 {
			assert.Equal(t, strings.Repeat(" ", 8), line, "row %d", i)
		} else {
			assert.Equal(t, 4, strings.Count(line, "██"), "row %d", i)
		}
	}
}

func TestRenderFrameBeforeFirstFlush(t *testing.T) {
	out := renderFrame(nil, image.Rect(0, 0, 2, 2), color.White)
	assert.Equal(t, "    \n    \n", out)
}

func TestViewShowsControls(t *testing.T) {
	u, _, _ := boundUI()
	m := newModel(u, nil)

	assert.Contains(t, m.View(), "waiting for microphone")

	u.SetControls(app.Controls{StartEnabled: true, RecordVisible: true})
	view := m.View()
	assert.Contains(t, view, "r: record")
	assert.NotContains(t, view, "x: stop")

	u.SetControls(app.Controls{StartEnabled: true, StopVisible: true})
	view = m.View()
	assert.Contains(t, view, "x: stop")
	assert.Contains(t, view, "REC")
	assert.NotContains(t, view, "r: record")
}

func TestHex(t *testing.T) {
	assert.Equal(t, "#008000", hex(green))
	assert.True(t, sameColor(color.White, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}))
	assert.False(t, sameColor(color.White, green))
}
