// Package ui is the system tray: a live recording indicator and a stop
// control for when the editor window is out of reach.
package ui

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/getlantern/systray"

	"github.com/clipdesk/clipdesk-agent/internal/capture"
)

// StatusProvider reports the current capture session.
type StatusProvider interface {
	Status() capture.Status
}

type Tray struct {
	capture StatusProvider
	logger  *slog.Logger

	statusItem *systray.MenuItem
	stopItem   *systray.MenuItem

	onStop func()
	onQuit func()
}

type TrayConfig struct {
	Capture StatusProvider
	Logger  *slog.Logger
	OnStop  func()
	OnQuit  func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		capture: cfg.Capture,
		logger:  cfg.Logger,
		onStop:  cfg.OnStop,
		onQuit:  cfg.OnQuit,
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Clipdesk")
	systray.SetTooltip("Clipdesk Agent")

	t.statusItem = systray.AddMenuItem("Idle", "Recording status")
	t.statusItem.Disable()

	systray.AddSeparator()

	t.stopItem = systray.AddMenuItem("Stop Recording", "Stop the active recording")
	t.stopItem.Disable()

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Clipdesk Agent")

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				t.refresh()
			case <-t.stopItem.ClickedCh:
				t.logger.Info("stop requested from tray")
				if t.onStop != nil {
					t.onStop()
				}
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

func (t *Tray) refresh() {
	st := t.capture.Status()
	if st.Active {
		t.statusItem.SetTitle("Recording " + formatElapsed(st.ElapsedS))
		t.stopItem.Enable()
	} else {
		t.statusItem.SetTitle("Idle")
		t.stopItem.Disable()
	}
}

func formatElapsed(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
