package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/google/renameio/v2"

	"mediafetch/internal/domain"
)

// Settings is the on-disk shape of the service settings file.
type Settings struct {
	NamingTemplates domain.NamingTemplates `json:"namingTemplates"`
}

// SettingsManager caches the service settings in memory and persists
// updates atomically, so concurrent readers never observe a partially
// written file.
//
// A missing or unreadable settings file is not fatal: the manager falls
// back to the built-in defaults and the next update recreates the file.
type SettingsManager struct {
	path   string
	logger *slog.Logger

	mu       sync.RWMutex
	settings Settings
}

func NewSettingsManager(path string, logger *slog.Logger) *SettingsManager {
	m := &SettingsManager{path: path, logger: logger}
	m.settings = m.load()
	return m
}

func (m *SettingsManager) load() Settings {
	defaults := Settings{NamingTemplates: domain.DefaultNamingTemplates()}

	data, err := os.ReadFile(m.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			m.logger.Warn("settings read failed, using defaults",
				slog.String("path", m.path),
				slog.String("error", err.Error()),
			)
		}
		return defaults
	}

	var loaded Settings
	if err := json.Unmarshal(data, &loaded); err != nil {
		m.logger.Warn("settings parse failed, using defaults",
			slog.String("path", m.path),
			slog.String("error", err.Error()),
		)
		return defaults
	}

	// Keys absent from the file keep their default values.
	loaded.NamingTemplates = loaded.NamingTemplates.Merge(defaults.NamingTemplates)
	return loaded
}

// NamingTemplates returns the current template set.
func (m *SettingsManager) NamingTemplates() domain.NamingTemplates {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings.NamingTemplates
}

// UpdateNamingTemplates persists the given template set and returns the
// stored result. Empty slots in the update keep their current values,
// so a partial PUT never blanks a template. The in-memory cache is only
// replaced after the file write succeeds.
func (m *SettingsManager) UpdateNamingTemplates(templates domain.NamingTemplates) (domain.NamingTemplates, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.settings
	next.NamingTemplates = templates.Merge(m.settings.NamingTemplates)

	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return domain.NamingTemplates{}, fmt.Errorf("encode settings: %w", err)
	}
	if err := renameio.WriteFile(m.path, data, 0o644); err != nil {
		return domain.NamingTemplates{}, fmt.Errorf("write settings: %w", err)
	}

	m.settings = next
	return next.NamingTemplates, nil
}
