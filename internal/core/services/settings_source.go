package services

import "github.com/tkrief1/doc-detective/internal/core/domain"

// SettingsSource supplies the current settings. Services read it on every
// operation so configuration reloads apply to the next call.
type SettingsSource interface {
	Get() (*domain.AppSettings, error)
}

// StaticSettings is a SettingsSource that never changes.
type StaticSettings domain.AppSettings

// Get returns a copy of the settings.
func (s StaticSettings) Get() (*domain.AppSettings, error) {
	settings := domain.AppSettings(s)
	return &settings, nil
}
