package queries

import (
	"context"

	application "profitshare/contexts/finance-core/distribution-engine/application"
	"profitshare/contexts/finance-core/distribution-engine/domain/entities"
	"profitshare/contexts/finance-core/distribution-engine/ports"
)

type GetSettingsUseCase struct {
	Settings ports.SettingsStore
	Clock    ports.Clock
}

func (u GetSettingsUseCase) Execute(ctx context.Context) (entities.Settings, error) {
	return application.LoadSettings(ctx, u.Settings, u.Clock)
}
