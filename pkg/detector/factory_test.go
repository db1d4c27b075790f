package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setSession(t *testing.T, sessionType, waylandDisplay, x11Display string) {
	t.Helper()
	t.Setenv("XDG_SESSION_TYPE", sessionType)
	t.Setenv("WAYLAND_DISPLAY", waylandDisplay)
	t.Setenv("DISPLAY", x11Display)
}

func TestNewAuto(t *testing.T) {
	det, err := New(ProviderAuto, nil)
	if err != nil {
		t.Logf("no window provider on this machine: %v", err)
		return
	}
	require.NotNil(t, det)
	defer det.Close()

	t.Logf("answering display server: %s", det.GetDisplayServer())
	assert.Contains(t, []string{"x11", "wayland", "windows"}, det.GetDisplayServer())
}

func TestNewUnknownProvider(t *testing.T) {
	det, err := New("quartz", nil)
	assert.Nil(t, det)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quartz")
}

func TestNewNamedProviderUnavailable(t *testing.T) {
	setSession(t, "", "", "")

	det, err := New(ProviderX11, nil)
	if err == nil {
		det.Close()
		t.Fatal("New(x11) succeeded without DISPLAY")
	}
	t.Logf("x11 without DISPLAY: %v", err)
}

func TestDetectDisplayServer(t *testing.T) {
	tests := []struct {
		name           string
		sessionType    string
		waylandDisplay string
		x11Display     string
		want           string
	}{
		{"wayland session", "wayland", "wayland-0", "", "wayland"},
		{"x11 session", "x11", "", ":0", "x11"},
		{"nothing set", "", "", "", "unknown"},
		{"wayland socket only", "", "wayland-1", "", "wayland"},
		{"x11 display only", "", "", ":1", "x11"},
		{"xwayland prefers wayland", "", "wayland-0", ":0", "wayland"},
		{"tty session", "tty", "", "", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setSession(t, tt.sessionType, tt.waylandDisplay, tt.x11Display)
			assert.Equal(t, tt.want, DetectDisplayServer())
		})
	}
}
