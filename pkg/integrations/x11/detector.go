package x11

import (
	"context"
	"encoding/binary"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"

	"focusmon/pkg/integrations/common"
	"focusmon/pkg/window"
)

var atomNames = []string{
	"_NET_ACTIVE_WINDOW",
	"_NET_WM_NAME",
	"_NET_WM_PID",
	"WM_NAME",
	"WM_CLASS",
	"UTF8_STRING",
}

// activeWindowAttempts bounds the retries while a window manager is mid-switch
const activeWindowAttempts = 5

// Detector implements window.Detector for X11 using the native protocol
type Detector struct {
	mu    sync.Mutex
	conn  *xgb.Conn
	root  xproto.Window
	atoms map[string]xproto.Atom
}

// NewDetector creates a new X11 detector. The connection is opened lazily
func NewDetector() *Detector {
	return &Detector{}
}

// IsAvailable checks if an X11 display is configured
func (d *Detector) IsAvailable() bool {
	return os.Getenv("DISPLAY") != ""
}

// GetDisplayServer returns "x11"
func (d *Detector) GetDisplayServer() string {
	return common.DisplayX11
}

// GetFocusedWindow returns information about the currently focused window
func (d *Detector) GetFocusedWindow(ctx context.Context) (*window.WindowInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.connect(); err != nil {
		return nil, err
	}

	windowID, err := d.getActiveWindow(ctx)
	if err != nil {
		// A dead connection only shows up as failing requests; start over next time.
		d.disconnect()
		return nil, err
	}

	instance, class := d.getWindowClass(windowID)
	pid := d.getWindowPID(windowID)

	processName := common.ProcessName(ctx, pid)
	if processName == "" {
		processName = instance
	}
	if processName == "" {
		processName = common.UnknownProcess
	}

	className := class
	if className == "" {
		className = instance
	}

	return &window.WindowInfo{
		Handle:        uint64(windowID),
		Title:         d.getWindowName(windowID),
		ClassName:     className,
		ProcessID:     pid,
		ProcessName:   processName,
		DisplayServer: common.DisplayX11,
		CapturedAt:    time.Now(),
	}, nil
}

func (d *Detector) connect() error {
	if d.conn != nil {
		return nil
	}

	conn, err := xgb.NewConn()
	if err != nil {
		return errors.Wrap(err, "failed to connect to X server")
	}

	setup := xproto.Setup(conn)
	atoms := make(map[string]xproto.Atom, len(atomNames))
	for _, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return errors.Wrapf(err, "failed to intern atom %s", name)
		}
		atoms[name] = reply.Atom
	}

	d.conn = conn
	d.root = setup.DefaultScreen(conn).Root
	d.atoms = atoms
	return nil
}

func (d *Detector) disconnect() {
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
}

func (d *Detector) getProperty(win xproto.Window, atom, atomType xproto.Atom, length uint32) ([]byte, error) {
	reply, err := xproto.GetProperty(d.conn, false, win, atom, atomType, 0, length).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}

func (d *Detector) getActiveWindowFromProperty() (xproto.Window, error) {
	data, err := d.getProperty(d.root, d.atoms["_NET_ACTIVE_WINDOW"], xproto.AtomWindow, 1)
	if err != nil {
		return 0, err
	}
	return xproto.Window(decodeCardinal(data)), nil
}

func (d *Detector) getActiveWindowFromInputFocus() xproto.Window {
	reply, err := xproto.GetInputFocus(d.conn).Reply()
	if err != nil {
		return 0
	}
	return reply.Focus
}

func (d *Detector) getTopLevelParent(win xproto.Window) xproto.Window {
	for {
		reply, err := xproto.QueryTree(d.conn, win).Reply()
		if err != nil || reply.Parent == d.root || reply.Parent == 0 {
			return win
		}
		win = reply.Parent
	}
}

func (d *Detector) hasValidName(win xproto.Window) bool {
	data, _ := d.getProperty(win, d.atoms["_NET_WM_NAME"], d.atoms["UTF8_STRING"], 1)
	if len(data) > 0 {
		return true
	}
	data, _ = d.getProperty(win, d.atoms["WM_NAME"], xproto.AtomString, 1)
	return len(data) > 0
}

func (d *Detector) getActiveWindow(ctx context.Context) (xproto.Window, error) {
	for i := 0; i < activeWindowAttempts; i++ {
		windowID, err := d.getActiveWindowFromProperty()
		if err != nil {
			return 0, errors.Wrap(err, "failed to read _NET_ACTIVE_WINDOW")
		}
		if windowID != 0 && d.hasValidName(windowID) {
			return windowID, nil
		}

		windowID = d.getActiveWindowFromInputFocus()
		if windowID != 0 && windowID != d.root {
			topLevel := d.getTopLevelParent(windowID)
			if topLevel != 0 && d.hasValidName(topLevel) {
				return topLevel, nil
			}
		}

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
	}

	return 0, errors.New("no active x11 window found")
}

func (d *Detector) getWindowName(win xproto.Window) string {
	data, err := d.getProperty(win, d.atoms["_NET_WM_NAME"], d.atoms["UTF8_STRING"], 256)
	if err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}

	data, err = d.getProperty(win, d.atoms["WM_NAME"], xproto.AtomString, 256)
	if err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}

	return ""
}

func (d *Detector) getWindowClass(win xproto.Window) (instance, class string) {
	data, err := d.getProperty(win, d.atoms["WM_CLASS"], xproto.AtomString, 256)
	if err != nil {
		return "", ""
	}
	return parseWMClass(data)
}

func (d *Detector) getWindowPID(win xproto.Window) uint32 {
	data, err := d.getProperty(win, d.atoms["_NET_WM_PID"], xproto.AtomCardinal, 1)
	if err != nil {
		return 0
	}
	return decodeCardinal(data)
}

// parseWMClass splits the raw WM_CLASS property ("instance\x00class\x00")
func parseWMClass(data []byte) (instance, class string) {
	if len(data) == 0 {
		return "", ""
	}

	parts := strings.Split(strings.TrimRight(string(data), "\x00"), "\x00")
	if len(parts) >= 1 {
		instance = parts[0]
	}
	if len(parts) >= 2 {
		class = parts[1]
	}
	return instance, class
}

// decodeCardinal reads a 32-bit property value in the client's byte order
func decodeCardinal(data []byte) uint32 {
	if len(data) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(data)
}

// Close cleans up resources
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.disconnect()
	return nil
}
