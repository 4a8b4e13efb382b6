package commands

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	application "profitshare/contexts/finance-core/distribution-engine/application"
	"profitshare/contexts/finance-core/distribution-engine/domain/entities"
	domainerrors "profitshare/contexts/finance-core/distribution-engine/domain/errors"
	"profitshare/contexts/finance-core/distribution-engine/domain/services"
	"profitshare/contexts/finance-core/distribution-engine/ports"
)

var (
	sectionValidatorOnce sync.Once
	sectionValidator     *validator.Validate
)

// sectionValidate compares decimals as float64. Tier bounds are far inside
// the exactly representable range.
func sectionValidate() *validator.Validate {
	sectionValidatorOnce.Do(func() {
		sectionValidator = validator.New()
		sectionValidator.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if value, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := value.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})
	})
	return sectionValidator
}

type UpdateSettingsCommand struct {
	Section         entities.SettingsSection
	ExpectedVersion *int64
	ActorID         string
}

type UpdateSettingsResult struct {
	Settings entities.Settings
	Changes  []entities.FieldChange
}

// UpdateSettingsUseCase applies one typed section and stores the next version.
// Runs already in progress keep the snapshot they started with.
type UpdateSettingsUseCase struct {
	Settings    ports.SettingsStore
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func (u UpdateSettingsUseCase) Execute(ctx context.Context, cmd UpdateSettingsCommand) (UpdateSettingsResult, error) {
	logger := application.ResolveLogger(u.Logger)
	actorID := strings.TrimSpace(cmd.ActorID)
	if actorID == "" || cmd.Section == nil {
		return UpdateSettingsResult{}, domainerrors.ErrInvalidRequest
	}
	if err := validateSection(cmd.Section); err != nil {
		logger.Warn("settings section rejected",
			"event", "settings_update_invalid",
			"module", application.ModuleName,
			"layer", "application",
			"section", cmd.Section.SectionName(),
			"actor_id", actorID,
			"error", err.Error(),
		)
		return UpdateSettingsResult{}, err
	}

	current, err := application.LoadSettings(ctx, u.Settings, u.Clock)
	if err != nil {
		return UpdateSettingsResult{}, err
	}
	if cmd.ExpectedVersion != nil && *cmd.ExpectedVersion != current.Version {
		return UpdateSettingsResult{}, domainerrors.ErrSettingsConflict
	}

	now := application.Now(u.Clock)
	next, changes := current.Apply(cmd.Section, actorID, now)

	auditID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return UpdateSettingsResult{}, err
	}
	changeDetails := make([]map[string]any, 0, len(changes))
	for _, change := range changes {
		changeDetails = append(changeDetails, map[string]any{
			"field":         change.Field,
			"previousValue": change.PreviousValue,
			"newValue":      change.NewValue,
		})
	}
	audit := entities.AuditRecord{
		AuditID:    auditID,
		Action:     entities.AuditSettingsUpdated,
		ActorID:    actorID,
		EntityType: "SystemSettings",
		EntityID:   cmd.Section.SectionName(),
		Details: map[string]any{
			"section": cmd.Section.SectionName(),
			"version": next.Version,
			"changes": changeDetails,
		},
		CreatedAt: now,
	}

	if err := u.Settings.SaveSettings(ctx, next, current.Version, audit); err != nil {
		logger.Error("settings save failed",
			"event", "settings_update_failed",
			"module", application.ModuleName,
			"layer", "application",
			"section", cmd.Section.SectionName(),
			"error", err.Error(),
		)
		return UpdateSettingsResult{}, err
	}

	logger.Info("settings updated",
		"event", "settings_updated",
		"module", application.ModuleName,
		"layer", "application",
		"section", cmd.Section.SectionName(),
		"version", next.Version,
		"actor_id", actorID,
		"changes", len(changes),
	)
	return UpdateSettingsResult{Settings: next, Changes: changes}, nil
}

func validateSection(section entities.SettingsSection) error {
	if err := sectionValidate().Struct(section); err != nil {
		return fmt.Errorf("%w: %v", domainerrors.ErrInvalidRequest, err)
	}
	switch typed := section.(type) {
	case entities.ProfitTiersSection:
		return services.ValidateProfitTiers(typed.Tiers)
	case entities.ReferralTiersSection:
		return services.ValidateReferralTiers(typed.Tiers)
	case entities.PlatformTogglesSection:
		return nil
	default:
		return domainerrors.ErrUnknownSection
	}
}
