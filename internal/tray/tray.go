package tray

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/getlantern/systray"
	"github.com/rs/zerolog"

	"github.com/petems/capture-tray/internal/app"
	"github.com/petems/capture-tray/internal/audio"
	"github.com/petems/capture-tray/internal/config"
	"github.com/petems/capture-tray/internal/visualizer"
)

// UI is the system tray shell. The tray icon is the drawing surface and
// the menu carries the record and stop controls.
type UI struct {
	cfg     *config.Config
	devices func() ([]audio.AudioDevice, error)
	version string
	commit  string
	log     zerolog.Logger

	surface *visualizer.ImageSurface

	mu       sync.Mutex
	handlers app.Handlers
	controls app.Controls
	lastIcon []byte

	// Menu items
	mStart   *systray.MenuItem
	mStop    *systray.MenuItem
	mDevices *systray.MenuItem
	mCopyRef *systray.MenuItem
}

var _ app.UI = (*UI)(nil)

func New(cfg *config.Config, devices func() ([]audio.AudioDevice, error), version, commit string, log zerolog.Logger) *UI {
	u := &UI{
		cfg:     cfg,
		devices: devices,
		version: version,
		commit:  commit,
		log:     log,
	}
	size := cfg.Visualizer.IconSize
	u.surface = visualizer.NewImageSurface(size, size, u.present)
	return u
}

func (u *UI) Surface() visualizer.Surface {
	return u.surface
}

func (u *UI) Bind(h app.Handlers) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.handlers = h
}

// SetControls maps the coordinator controls onto the menu items
func (u *UI) SetControls(c app.Controls) {
	u.mu.Lock()
	u.controls = c
	start, stop := u.mStart, u.mStop
	u.mu.Unlock()

	systray.SetTitle(titleFor(c))
	if start == nil || stop == nil {
		return
	}
	if c.StartEnabled {
		start.Enable()
	} else {
		start.Disable()
	}
	if c.RecordVisible {
		start.Show()
	} else {
		start.Hide()
	}
	if c.StopVisible {
		stop.Show()
	} else {
		stop.Hide()
	}
}

// Run blocks in the tray event loop. onLoad runs once the menu exists,
// onExit when the tray goes away. Cancelling ctx quits the tray.
func (u *UI) Run(ctx context.Context, onLoad, onExit func()) {
	go func() {
		<-ctx.Done()
		systray.Quit()
	}()
	systray.Run(func() {
		u.onReady()
		if onLoad != nil {
			onLoad()
		}
	}, func() {
		if onExit != nil {
			onExit()
		}
	})
}

func (u *UI) onReady() {
	systray.SetTitle(titleFor(app.Controls{RecordVisible: true}))
	systray.SetTooltip("Microphone capture")

	// Build menu
	mStart := systray.AddMenuItem("Start Recording", "Record from the microphone")
	mStart.Disable()
	mStop := systray.AddMenuItem("Stop Recording", "Stop and save the recording")
	mStop.Hide()
	systray.AddSeparator()

	u.mDevices = systray.AddMenuItem("Microphone", "Select audio device")
	u.buildDeviceMenu()

	systray.AddSeparator()
	u.mCopyRef = systray.AddMenuItemCheckbox("Copy Saved Path", "Copy each saved recording's location", u.cfg.CopyReference)

	systray.AddSeparator()
	mAbout := systray.AddMenuItem("About", "About CaptureTray")
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	u.mu.Lock()
	u.mStart, u.mStop = mStart, mStop
	u.mu.Unlock()

	// Event loop
	go u.handleEvents(mAbout, mQuit)
}

func (u *UI) handleEvents(mAbout, mQuit *systray.MenuItem) {
	for {
		select {
		case <-u.mStart.ClickedCh:
			u.dispatch(func(h app.Handlers) func() { return h.Start })
		case <-u.mStop.ClickedCh:
			u.dispatch(func(h app.Handlers) func() { return h.Stop })
		case <-u.mCopyRef.ClickedCh:
			u.toggleCopyReference()
		case <-mAbout.ClickedCh:
			u.showAbout()
		case <-mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

func (u *UI) dispatch(pick func(app.Handlers) func()) {
	u.mu.Lock()
	fn := pick(u.handlers)
	u.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (u *UI) buildDeviceMenu() {
	if u.devices == nil {
		return
	}
	devices, err := u.devices()
	if err != nil {
		u.log.Error().Err(err).Msg("Failed to list audio devices")
		return
	}

	deviceItems := make(map[string]*systray.MenuItem)

	for _, dev := range devices {
		item := u.mDevices.AddSubMenuItem(dev.Name, "")
		if dev.ID == u.cfg.Audio.DeviceID || (u.cfg.Audio.DeviceID == "" && dev.Default) {
			item.Check()
		}
		deviceItems[dev.ID] = item

		go func(deviceID, deviceName string, menuItem *systray.MenuItem) {
			for {
				<-menuItem.ClickedCh
				// Uncheck all other items
				for id, itm := range deviceItems {
					if id != deviceID {
						itm.Uncheck()
					}
				}
				menuItem.Check()
				u.cfg.Audio.DeviceID = deviceID
				if err := u.cfg.Save(); err != nil {
					u.log.Error().Err(err).Msg("Failed to save config")
				}
				u.log.Info().Str("device", deviceName).Msg("Changed audio device, applies on next launch")
			}
		}(dev.ID, dev.Name, item)
	}
}

func (u *UI) toggleCopyReference() {
	u.cfg.CopyReference = !u.cfg.CopyReference
	if u.cfg.CopyReference {
		u.mCopyRef.Check()
		u.log.Info().Msg("Enabled copying saved paths, applies on next launch")
	} else {
		u.mCopyRef.Uncheck()
		u.log.Info().Msg("Disabled copying saved paths, applies on next launch")
	}
	if err := u.cfg.Save(); err != nil {
		u.log.Error().Err(err).Msg("Failed to save config")
	}
}

func (u *UI) showAbout() {
	u.log.Info().Str("version", u.version).Str("commit", u.commit).Msg("CaptureTray")
}

// present turns a rendered frame into the tray icon. Unchanged frames are
// skipped.
func (u *UI) present(frame *image.RGBA) error {
	icon, err := encodeIcon(frame)
	if err != nil {
		return err
	}

	u.mu.Lock()
	same := bytes.Equal(icon, u.lastIcon)
	u.lastIcon = icon
	u.mu.Unlock()

	if !same {
		systray.SetIcon(icon)
	}
	return nil
}

func encodeIcon(frame image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		return nil, fmt.Errorf("failed to encode icon: %w", err)
	}
	return buf.Bytes(), nil
}

// titleFor sets the tray title with microphone emoji and status indicator
func titleFor(c app.Controls) string {
	return fmt.Sprintf("🎤 %s", emojiForStatus(statusFor(c)))
}

func statusFor(c app.Controls) string {
	switch {
	case c.StopVisible:
		return "recording"
	case c.StartEnabled:
		return "idle"
	default:
		return "unarmed"
	}
}

// emojiForStatus returns the appropriate status emoji
func emojiForStatus(status string) string {
	switch status {
	case "recording":
		return "🔴" // Red - recording
	case "idle":
		return "🟢" // Green - armed
	case "unarmed":
		return "⚪️" // White - no microphone yet
	default:
		return "⚪️"
	}
}
