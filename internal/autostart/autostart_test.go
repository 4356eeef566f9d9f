package autostart

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))

	orig := executable
	executable = func() (string, error) { return "/opt/wootrat/wootrat", nil }
	t.Cleanup(func() { executable = orig })
	return home
}

func TestLinuxDesktopEntry(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG config dir only resolves from XDG_CONFIG_HOME on linux")
	}
	home := fakeEnv(t)
	assert.False(t, isEnabledLinux())

	require.NoError(t, enableLinux())
	assert.True(t, isEnabledLinux())

	data, err := os.ReadFile(filepath.Join(home, ".config", "autostart", "WootRat.desktop"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `Exec="/opt/wootrat/wootrat"`)
	assert.Contains(t, string(data), "Name=WootRat")

	require.NoError(t, disableLinux())
	assert.False(t, isEnabledLinux())
	assert.NoError(t, disableLinux(), "disabling twice is not an error")
}

func TestMacLaunchAgent(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("home directory is not taken from HOME on windows")
	}
	home := fakeEnv(t)

	require.NoError(t, enableMac())
	assert.True(t, isEnabledMac())

	data, err := os.ReadFile(filepath.Join(home, "Library", "LaunchAgents", "com.wootrat.agent.plist"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "<string>com.wootrat.agent</string>")
	assert.Contains(t, string(data), "<string>/opt/wootrat/wootrat</string>")

	require.NoError(t, disableMac())
	assert.False(t, isEnabledMac())
}
