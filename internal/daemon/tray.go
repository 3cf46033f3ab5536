//go:build windows

package daemon

import (
	_ "embed"
	"sync"
	"syscall"
	"unsafe"

	"fyne.io/systray"
	"go.uber.org/zap"
)

var (
	user32      = syscall.NewLazyDLL("user32.dll")
	messageBoxW = user32.NewProc("MessageBoxW")
)

// MessageBoxW flags
const (
	mbOK              = 0x00000000
	mbIconInformation = 0x00000040
)

//go:embed icon.ico
var calendarIcon []byte

// TrayApp puts the daemon behind a tray icon with refresh and status actions
type TrayApp struct {
	daemon   *Daemon
	logger   *zap.Logger
	quit     chan struct{}
	stopOnce sync.Once
}

// NewTrayApp creates a new system tray application
func NewTrayApp(daemon *Daemon, logger *zap.Logger) (*TrayApp, error) {
	return &TrayApp{
		daemon: daemon,
		logger: logger,
		quit:   make(chan struct{}),
	}, nil
}

// Run blocks until the tray is closed
func (t *TrayApp) Run() {
	systray.Run(t.onReady, func() {
		t.logger.Info("System tray exited")
	})
}

func (t *TrayApp) onReady() {
	systray.SetIcon(calendarIcon)
	systray.SetTitle("WD")
	systray.SetTooltip("Working-day calculator")

	refresh := systray.AddMenuItem("Refresh holidays", "Download public holidays now")
	status := systray.AddMenuItem("Calendar status", "Show the holiday calendar summary")
	systray.AddSeparator()
	quit := systray.AddMenuItem("Quit", "Stop the calculator daemon")

	go t.daemon.runScheduledLogic()
	go t.loop(refresh.ClickedCh, status.ClickedCh, quit.ClickedCh)
}

func (t *TrayApp) loop(refresh, status, quit <-chan struct{}) {
	defer systray.Quit()

	for {
		select {
		case <-refresh:
			go func() {
				if err := t.daemon.RefreshNow(); err != nil {
					t.logger.Warn("Tray refresh failed", zap.Error(err))
				}
			}()
		case <-status:
			text := t.daemon.StatusText()
			t.logger.Info("Calendar status", zap.String("status", text))
			showMessageBox("Working-Day Calculator", text)
		case <-quit:
			t.logger.Info("Quit selected from tray")
			t.daemon.Stop()
			return
		case <-t.quit:
			return
		}
	}
}

// Stop closes the tray
func (t *TrayApp) Stop() {
	t.stopOnce.Do(func() { close(t.quit) })
}

// ShowNotification puts the message in the tooltip; systray has no balloons
func (t *TrayApp) ShowNotification(title, message string) {
	systray.SetTooltip(title + ": " + message)
	t.logger.Info("Notification", zap.String("title", title), zap.String("message", message))
}

func showMessageBox(title, message string) {
	titlePtr, _ := syscall.UTF16PtrFromString(title)
	messagePtr, _ := syscall.UTF16PtrFromString(message)
	messageBoxW.Call(0,
		uintptr(unsafe.Pointer(messagePtr)),
		uintptr(unsafe.Pointer(titlePtr)),
		uintptr(mbOK|mbIconInformation))
}
