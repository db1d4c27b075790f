package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"notepad.exe", "NOTEPAD.EXE"},
		{"  POWERPNT.EXE ", "POWERPNT.EXE"},
		{"firefox", "FIREFOX"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := CanonicalName(tt.input); got != tt.want {
			t.Errorf("CanonicalName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestTargetSetCaseInsensitive(t *testing.T) {
	s := NewTargetSet("notepad.exe")

	assert.True(t, s.Contains("NOTEPAD.EXE"))
	assert.True(t, s.Contains("Notepad.exe"))
	assert.False(t, s.Add("NOTEPAD.EXE"))
	assert.Equal(t, 1, s.Len())

	assert.True(t, s.Remove("NotePad.EXE"))
	assert.False(t, s.Remove("notepad.exe"))
	assert.Equal(t, 0, s.Len())
}

func TestTargetSetIgnoresBlankNames(t *testing.T) {
	s := NewTargetSet("", "   ")
	assert.Equal(t, 0, s.Len())
}

func TestTargetSetSnapshotIsFrozen(t *testing.T) {
	s := NewTargetSet("winword.exe")
	snap := s.Snapshot()

	s.Add("powerpnt.exe")
	s.Remove("winword.exe")

	assert.Equal(t, []string{"WINWORD.EXE"}, snap.Names())
	assert.True(t, snap.Contains("WINWORD.EXE"))
	assert.False(t, snap.Contains("POWERPNT.EXE"))
	assert.Equal(t, []string{"POWERPNT.EXE"}, s.Names())
}

func TestTargetSetNamesSorted(t *testing.T) {
	s := NewTargetSet("zoom", "Code", "acrobat")
	assert.Equal(t, []string{"ACROBAT", "CODE", "ZOOM"}, s.Names())
}
