// Package config loads, stores and watches the WootRat settings file.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const appDir = "wootrat"

var defaultLogger = zerolog.New(os.Stderr).With().Timestamp().Str("subsystem", "config").Logger()

// Manager handles loading and saving settings.
type Manager struct {
	mu        sync.Mutex
	path      string
	settings  Settings
	onChanged func()
	log       *zerolog.Logger
}

// NewManager creates a manager for path, or for the per-user default
// location when path is empty.
func NewManager(path string, logger *zerolog.Logger) (*Manager, error) {
	if logger == nil {
		l := defaultLogger
		logger = &l
	}
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return &Manager{
		path:     path,
		settings: Defaults(),
		log:      logger,
	}, nil
}

// DefaultPath returns the per-user settings file, creating its directory.
func DefaultPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", appDir)
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, appDir)
	default:
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(dir, appDir)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// Path returns the settings file location.
func (m *Manager) Path() string { return m.path }

func (m *Manager) isYAML() bool {
	ext := strings.ToLower(filepath.Ext(m.path))
	return ext == ".yaml" || ext == ".yml"
}

// Load reads the settings file. A missing file yields defaults; keys absent
// from the file keep their default values. The file is rewritten when it
// differs from the normalized settings, so newly added keys become visible
// to users editing it by hand.
func (m *Manager) Load() error {
	m.mu.Lock()
	data, err := os.ReadFile(m.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		m.mu.Unlock()
		return fmt.Errorf("read settings: %w", err)
	}

	s := Defaults()
	if len(bytes.TrimSpace(data)) > 0 {
		if err := m.decode(data, &s); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("parse %s: %w", m.path, err)
		}
	}

	changed := s != m.settings
	m.settings = s

	out, err := m.encode(s)
	if err == nil && !bytes.Equal(out, data) {
		m.log.Info().Str("path", m.path).Msg("writing normalized settings")
		err = m.write(out)
	}
	fn := m.onChanged
	m.mu.Unlock()

	if changed && fn != nil {
		fn()
	}
	return err
}

// Save writes the settings to disk.
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := m.encode(m.settings)
	if err != nil {
		return err
	}
	m.log.Debug().Str("path", m.path).Int("bytes", len(data)).Msg("saving settings")
	return m.write(data)
}

// Get returns a copy of the current settings.
func (m *Manager) Get() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

// Set replaces the settings in memory and fires the change callback.
func (m *Manager) Set(s Settings) {
	m.mu.Lock()
	m.settings = s
	fn := m.onChanged
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Update validates s, stores it, saves it and fires the change callback.
// Invalid settings are rejected without touching the current ones.
func (m *Manager) Update(s Settings) error {
	if _, _, _, err := s.Build(); err != nil {
		return err
	}
	m.mu.Lock()
	m.settings = s
	data, err := m.encode(s)
	if err == nil {
		err = m.write(data)
	}
	fn := m.onChanged
	m.mu.Unlock()

	if fn != nil {
		fn()
	}
	return err
}

// RegisterChangeCallback registers a function to be called when settings
// change.
func (m *Manager) RegisterChangeCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = fn
}

func (m *Manager) decode(data []byte, s *Settings) error {
	if m.isYAML() {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		return dec.Decode(s)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(s)
}

func (m *Manager) encode(s Settings) ([]byte, error) {
	if m.isYAML() {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// write replaces the file atomically so watchers never see a partial file.
func (m *Manager) write(data []byte) error {
	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(m.path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), m.path)
}
