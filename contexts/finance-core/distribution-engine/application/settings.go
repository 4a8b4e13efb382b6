package application

import (
	"context"
	"errors"

	"profitshare/contexts/finance-core/distribution-engine/domain/entities"
	domainerrors "profitshare/contexts/finance-core/distribution-engine/domain/errors"
	"profitshare/contexts/finance-core/distribution-engine/ports"
)

// LoadSettings returns the stored settings snapshot, or the defaults at
// version 0 when nothing was saved yet.
func LoadSettings(ctx context.Context, store ports.SettingsStore, clock ports.Clock) (entities.Settings, error) {
	settings, err := store.GetSettings(ctx)
	if err == nil {
		return settings.Clone(), nil
	}
	if !errors.Is(err, domainerrors.ErrSettingsNotFound) {
		return entities.Settings{}, err
	}
	defaults := entities.DefaultSettings(Now(clock))
	defaults.Version = 0
	return defaults, nil
}
