// Package autostart registers WootRat to start on login.
package autostart

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"text/template"
)

// AppName identifies the login item on every platform.
const AppName = "WootRat"

const macLabel = "com.wootrat.agent"

const macLaunchAgentPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.ExecutablePath}}</string>
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <false/>
</dict>
</plist>
`

const linuxDesktopEntry = `[Desktop Entry]
Type=Application
Exec="{{.ExecutablePath}}"
Hidden=false
NoDisplay=false
X-GNOME-Autostart-enabled=true
Name={{.Name}}
Comment=Analog keyboard mouse control
`

type entry struct {
	Label          string
	Name           string
	ExecutablePath string
}

var executable = os.Executable

// Enable enables auto-start on login
func Enable() error {
	switch runtime.GOOS {
	case "darwin":
		return enableMac()
	case "windows":
		return enableWindows()
	case "linux", "freebsd", "openbsd", "netbsd":
		return enableLinux()
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// Disable disables auto-start on login
func Disable() error {
	switch runtime.GOOS {
	case "darwin":
		return disableMac()
	case "windows":
		return disableWindows()
	case "linux", "freebsd", "openbsd", "netbsd":
		return disableLinux()
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// IsEnabled checks if auto-start is enabled
func IsEnabled() bool {
	switch runtime.GOOS {
	case "darwin":
		return isEnabledMac()
	case "windows":
		return isEnabledWindows()
	case "linux", "freebsd", "openbsd", "netbsd":
		return isEnabledLinux()
	default:
		return false
	}
}

// Sync makes the login item match want.
func Sync(want bool) error {
	if IsEnabled() == want {
		return nil
	}
	if want {
		return Enable()
	}
	return Disable()
}

func currentEntry() (entry, error) {
	execPath, err := executable()
	if err != nil {
		return entry{}, fmt.Errorf("failed to get executable path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
		execPath = resolved
	}
	return entry{Label: macLabel, Name: AppName, ExecutablePath: execPath}, nil
}

func writeTemplate(path, text string, mode os.FileMode) error {
	e, err := currentEntry()
	if err != nil {
		return err
	}
	tmpl, err := template.New(filepath.Base(path)).Parse(text)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if err := tmpl.Execute(f, e); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// macOS implementation
func macPlistPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Library", "LaunchAgents", macLabel+".plist"), nil
}

func enableMac() error {
	p, err := macPlistPath()
	if err != nil {
		return err
	}
	return writeTemplate(p, macLaunchAgentPlist, 0644)
}

func disableMac() error {
	p, err := macPlistPath()
	if err != nil {
		return err
	}
	return removeFile(p)
}

func isEnabledMac() bool {
	p, err := macPlistPath()
	return err == nil && exists(p)
}

// Linux (XDG) implementation
func desktopEntryPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "autostart", AppName+".desktop"), nil
}

func enableLinux() error {
	p, err := desktopEntryPath()
	if err != nil {
		return err
	}
	return writeTemplate(p, linuxDesktopEntry, 0755)
}

func disableLinux() error {
	p, err := desktopEntryPath()
	if err != nil {
		return err
	}
	return removeFile(p)
}

func isEnabledLinux() bool {
	p, err := desktopEntryPath()
	return err == nil && exists(p)
}
