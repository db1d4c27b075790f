package wayland

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"

	"focusmon/pkg/integrations/common"
	"focusmon/pkg/window"
)

const (
	compositorSway     = "sway"
	compositorHyprland = "hyprland"
	compositorGnome    = "gnome"
	compositorUnknown  = "unknown"
)

const gnomeFocusScript = `
(function () {
	let fw = global.display.get_focus_window();
	if (!fw) {
		return 'null';
	}
	return JSON.stringify({
		id: fw.get_id(),
		wm_class: fw.get_wm_class() || '',
		wm_class_instance: fw.get_wm_class_instance() || '',
		title: fw.get_title() || '',
		pid: fw.get_pid() || 0
	});
})()
`

// Detector implements window.Detector for Wayland compositors
type Detector struct {
	compositor   string
	hasSwaymsg   bool
	hasHyprctl   bool
	mu           sync.Mutex
	sessionBus   *dbus.Conn
	runCommand   func(ctx context.Context, name string, args ...string) ([]byte, error)
	processNamer func(ctx context.Context, pid uint32) string
}

// NewDetector creates a new Wayland detector
func NewDetector() *Detector {
	d := &Detector{
		hasSwaymsg:   common.CommandExists("swaymsg"),
		hasHyprctl:   common.CommandExists("hyprctl"),
		runCommand:   runCommand,
		processNamer: common.ProcessName,
	}
	d.compositor = detectCompositor()
	return d
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// detectCompositor identifies the running compositor from the session
// environment, falling back to looking for its process
func detectCompositor() string {
	if os.Getenv("SWAYSOCK") != "" {
		return compositorSway
	}
	if os.Getenv("HYPRLAND_INSTANCE_SIGNATURE") != "" {
		return compositorHyprland
	}

	desktop := strings.ToLower(os.Getenv("XDG_CURRENT_DESKTOP"))
	if strings.Contains(desktop, "gnome") || strings.Contains(desktop, "ubuntu") {
		return compositorGnome
	}

	compositors := map[string]string{
		"sway":        compositorSway,
		"Hyprland":    compositorHyprland,
		"gnome-shell": compositorGnome,
	}
	for process, name := range compositors {
		if err := exec.Command("pgrep", "-x", process).Run(); err == nil {
			return name
		}
	}

	return compositorUnknown
}

// IsAvailable checks if Wayland detection is available
func (d *Detector) IsAvailable() bool {
	switch d.compositor {
	case compositorSway:
		return d.hasSwaymsg
	case compositorHyprland:
		return d.hasHyprctl
	case compositorGnome:
		return os.Getenv("DBUS_SESSION_BUS_ADDRESS") != "" || os.Getenv("XDG_RUNTIME_DIR") != ""
	default:
		return false
	}
}

// GetDisplayServer returns "wayland"
func (d *Detector) GetDisplayServer() string {
	return common.DisplayWayland
}

// GetFocusedWindow returns information about the currently focused window
func (d *Detector) GetFocusedWindow(ctx context.Context) (*window.WindowInfo, error) {
	var (
		info *window.WindowInfo
		err  error
	)

	switch d.compositor {
	case compositorSway:
		info, err = d.getFocusedWindowSway(ctx)
	case compositorHyprland:
		info, err = d.getFocusedWindowHyprland(ctx)
	case compositorGnome:
		info, err = d.getFocusedWindowGnome(ctx)
	default:
		return nil, fmt.Errorf("unsupported wayland compositor: %s", d.compositor)
	}
	if err != nil {
		return nil, err
	}

	if info.ProcessID != 0 {
		if name := d.processNamer(ctx, info.ProcessID); name != "" {
			info.ProcessName = name
		}
	}
	if info.ProcessName == "" {
		info.ProcessName = common.UnknownProcess
	}
	info.DisplayServer = common.DisplayWayland
	info.CapturedAt = time.Now()
	return info, nil
}

func (d *Detector) getFocusedWindowSway(ctx context.Context) (*window.WindowInfo, error) {
	output, err := d.runCommand(ctx, "swaymsg", "-t", "get_tree", "-r")
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute swaymsg")
	}
	return parseSwayTree(output)
}

type swayNode struct {
	ID               int64      `json:"id"`
	Name             *string    `json:"name"`
	Focused          bool       `json:"focused"`
	AppID            *string    `json:"app_id"`
	PID              uint32     `json:"pid"`
	Nodes            []swayNode `json:"nodes"`
	FloatingNodes    []swayNode `json:"floating_nodes"`
	WindowProperties *struct {
		Class    string `json:"class"`
		Instance string `json:"instance"`
	} `json:"window_properties"`
}

func (n *swayNode) findFocused() *swayNode {
	if n.Focused {
		return n
	}
	for i := range n.Nodes {
		if found := n.Nodes[i].findFocused(); found != nil {
			return found
		}
	}
	for i := range n.FloatingNodes {
		if found := n.FloatingNodes[i].findFocused(); found != nil {
			return found
		}
	}
	return nil
}

// parseSwayTree finds the focused container in swaymsg get_tree output
func parseSwayTree(data []byte) (*window.WindowInfo, error) {
	var root swayNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, errors.Wrap(err, "failed to decode sway tree")
	}

	node := root.findFocused()
	if node == nil {
		return nil, errors.New("no focused sway container")
	}

	info := &window.WindowInfo{
		Handle:    uint64(node.ID),
		ProcessID: node.PID,
	}
	if node.Name != nil {
		info.Title = *node.Name
	}

	// Native Wayland clients carry app_id, XWayland clients carry WM_CLASS.
	switch {
	case node.AppID != nil && *node.AppID != "":
		info.ClassName = *node.AppID
		info.ProcessName = *node.AppID
	case node.WindowProperties != nil:
		info.ClassName = node.WindowProperties.Class
		info.ProcessName = node.WindowProperties.Instance
	}

	return info, nil
}

func (d *Detector) getFocusedWindowHyprland(ctx context.Context) (*window.WindowInfo, error) {
	output, err := d.runCommand(ctx, "hyprctl", "activewindow", "-j")
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute hyprctl")
	}
	return parseHyprlandWindow(output)
}

type hyprlandWindow struct {
	Address      string `json:"address"`
	Class        string `json:"class"`
	InitialClass string `json:"initialClass"`
	Title        string `json:"title"`
	PID          int64  `json:"pid"`
}

// parseHyprlandWindow decodes hyprctl activewindow -j output
func parseHyprlandWindow(data []byte) (*window.WindowInfo, error) {
	var hw hyprlandWindow
	if err := json.Unmarshal(data, &hw); err != nil {
		return nil, errors.Wrap(err, "failed to decode hyprland window")
	}
	if hw.Address == "" && hw.Class == "" {
		return nil, errors.New("no focused hyprland window")
	}

	handle, _ := strconv.ParseUint(strings.TrimPrefix(hw.Address, "0x"), 16, 64)
	className := hw.Class
	if className == "" {
		className = hw.InitialClass
	}

	info := &window.WindowInfo{
		Handle:      handle,
		Title:       hw.Title,
		ClassName:   className,
		ProcessName: className,
	}
	if hw.PID > 0 {
		info.ProcessID = uint32(hw.PID)
	}
	return info, nil
}

func (d *Detector) getFocusedWindowGnome(ctx context.Context) (*window.WindowInfo, error) {
	conn, err := d.bus()
	if err != nil {
		return nil, err
	}

	var (
		ok     bool
		result string
	)
	call := conn.Object("org.gnome.Shell", dbus.ObjectPath("/org/gnome/Shell")).
		CallWithContext(ctx, "org.gnome.Shell.Eval", 0, gnomeFocusScript)
	if err := call.Store(&ok, &result); err != nil {
		d.resetBus()
		return nil, errors.Wrap(err, "org.gnome.Shell.Eval failed")
	}
	if !ok {
		return nil, errors.New("org.gnome.Shell.Eval rejected (unsafe mode disabled)")
	}

	return parseGnomeEval(result)
}

func (d *Detector) bus() (*dbus.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sessionBus != nil && d.sessionBus.Connected() {
		return d.sessionBus, nil
	}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to session bus")
	}
	d.sessionBus = conn
	return conn, nil
}

func (d *Detector) resetBus() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sessionBus != nil {
		d.sessionBus.Close()
		d.sessionBus = nil
	}
}

type gnomeWindow struct {
	ID              uint64 `json:"id"`
	WMClass         string `json:"wm_class"`
	WMClassInstance string `json:"wm_class_instance"`
	Title           string `json:"title"`
	PID             int64  `json:"pid"`
}

// parseGnomeEval decodes the JSON produced by gnomeFocusScript
func parseGnomeEval(result string) (*window.WindowInfo, error) {
	if result == "" || result == "null" {
		return nil, errors.New("no focused gnome window")
	}

	// Eval returns the string value itself JSON-encoded.
	if unquoted, err := strconv.Unquote(result); err == nil {
		result = unquoted
	}

	var gw gnomeWindow
	if err := json.Unmarshal([]byte(result), &gw); err != nil {
		return nil, errors.Wrap(err, "failed to decode gnome window")
	}

	processName := gw.WMClassInstance
	if processName == "" {
		processName = gw.WMClass
	}

	info := &window.WindowInfo{
		Handle:      gw.ID,
		Title:       gw.Title,
		ClassName:   gw.WMClass,
		ProcessName: processName,
	}
	if gw.PID > 0 {
		info.ProcessID = uint32(gw.PID)
	}
	return info, nil
}

// Close cleans up resources
func (d *Detector) Close() error {
	d.resetBus()
	return nil
}
