package httpadapter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	application "profitshare/contexts/finance-core/distribution-engine/application"
	"profitshare/contexts/finance-core/distribution-engine/application/commands"
	"profitshare/contexts/finance-core/distribution-engine/application/queries"
	"profitshare/contexts/finance-core/distribution-engine/domain/entities"
	domainerrors "profitshare/contexts/finance-core/distribution-engine/domain/errors"
	httptransport "profitshare/contexts/finance-core/distribution-engine/transport/http"
)

const timestampLayout = "2006-01-02T15:04:05Z"

type Handler struct {
	RunDistribution    commands.RunDistributionUseCase
	CustomDistribution commands.CustomDistributionUseCase
	CreditReferral     commands.CreditReferralUseCase
	UpdateSettings     commands.UpdateSettingsUseCase
	ReleaseHold        commands.ReleaseHoldUseCase
	ListLedger         queries.ListLedgerUseCase
	Stats              queries.DistributionStatsUseCase
	ListReferrals      queries.ListReferralsUseCase
	ListAudit          queries.ListAuditUseCase
	GetSettings        queries.GetSettingsUseCase
	Logger             *slog.Logger
}

// RunDistributionHandler godoc
// @Summary Run the daily profit share
// @Description Credits every eligible account once for the period. Re-running a period credits nobody twice.
// @Tags distribution-engine
// @Accept json
// @Produce json
// @Param X-Actor-Id header string true "Administrator id"
// @Param request body httptransport.RunDistributionRequest false "Run payload"
// @Success 200 {object} httptransport.RunDistributionResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/profit-share/runs [post]
func (h Handler) RunDistributionHandler(
	ctx context.Context,
	actorID string,
	req httptransport.RunDistributionRequest,
) (httptransport.RunDistributionResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Info("distribution run requested",
		"event", "http_distribution_run_received",
		"module", application.ModuleName,
		"layer", "transport",
		"actor_id", actorID,
		"period_key", req.PeriodKey,
	)

	result, err := h.RunDistribution.Execute(ctx, commands.RunDistributionCommand{
		PeriodKey: req.PeriodKey,
		ActorID:   actorID,
	})
	if err != nil {
		logger.Error("distribution run request failed",
			"event", "http_distribution_run_failed",
			"module", application.ModuleName,
			"layer", "transport",
			"error", err.Error(),
		)
		return httptransport.RunDistributionResponse{}, err
	}

	errs := make([]httptransport.SubjectErrorDTO, 0, len(result.Errors))
	for _, item := range result.Errors {
		errs = append(errs, httptransport.SubjectErrorDTO{SubjectID: item.SubjectID, Reason: item.Reason})
	}
	return httptransport.RunDistributionResponse{
		RunID:                result.RunID,
		PeriodKey:            result.PeriodKey,
		SettingsVersion:      result.SettingsVersion,
		Enabled:              result.Enabled,
		UsersProcessed:       result.UsersProcessed,
		UsersSkipped:         result.UsersSkipped,
		UsersAlreadyCredited: result.UsersAlreadyCredited,
		TotalAmountCredited:  formatMoney(result.TotalAmountCredited),
		Errors:               errs,
		Cancelled:            result.Cancelled,
		StartedAt:            formatTime(result.StartedAt),
		FinishedAt:           formatTime(result.FinishedAt),
	}, nil
}

// CustomDistributionHandler godoc
// @Summary Credit one account at a custom rate
// @Description Applies an administrator-chosen rate to the account deposit balance. Rejected when the account was already credited today.
// @Tags distribution-engine
// @Accept json
// @Produce json
// @Param X-Actor-Id header string true "Administrator id"
// @Param request body httptransport.CustomDistributionRequest true "Custom credit payload"
// @Success 200 {object} httptransport.CustomDistributionResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/profit-share/custom [post]
func (h Handler) CustomDistributionHandler(
	ctx context.Context,
	actorID string,
	req httptransport.CustomDistributionRequest,
) (httptransport.CustomDistributionResponse, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(req.RatePercent))
	if err != nil {
		return httptransport.CustomDistributionResponse{}, domainerrors.ErrInvalidRate
	}
	result, err := h.CustomDistribution.Execute(ctx, commands.CustomDistributionCommand{
		SubjectID:   req.SubjectID,
		RatePercent: rate,
		ActorID:     actorID,
	})
	if err != nil {
		return httptransport.CustomDistributionResponse{}, err
	}
	return httptransport.CustomDistributionResponse{
		Entry:           mapLedgerEntry(result.Entry),
		PreviousBalance: formatMoney(result.PreviousBalance),
		NewBalance:      formatMoney(result.NewBalance),
	}, nil
}

// ListLedgerHandler godoc
// @Summary List profit share ledger entries
// @Tags distribution-engine
// @Produce json
// @Param subject_id query string false "Subject filter"
// @Param period_key query string false "Period filter (YYYY-MM-DD)"
// @Param page query int false "Page number"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} httptransport.ListLedgerResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/profit-share/ledger [get]
func (h Handler) ListLedgerHandler(
	ctx context.Context,
	subjectID string,
	periodKey string,
	page int,
	limit int,
) (httptransport.ListLedgerResponse, error) {
	result, err := h.ListLedger.Execute(ctx, queries.ListLedgerQuery{
		SubjectID: subjectID,
		PeriodKey: periodKey,
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		return httptransport.ListLedgerResponse{}, err
	}
	items := make([]httptransport.LedgerEntryDTO, 0, len(result.Items))
	for _, entry := range result.Items {
		items = append(items, mapLedgerEntry(entry))
	}
	return httptransport.ListLedgerResponse{Items: items, Page: mapPage(result.Page)}, nil
}

// StatsHandler godoc
// @Summary Profit share statistics
// @Description Ledger totals plus the estimate a run would credit now.
// @Tags distribution-engine
// @Produce json
// @Success 200 {object} httptransport.DistributionStatsResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/profit-share/stats [get]
func (h Handler) StatsHandler(ctx context.Context) (httptransport.DistributionStatsResponse, error) {
	stats, err := h.Stats.Execute(ctx)
	if err != nil {
		return httptransport.DistributionStatsResponse{}, err
	}
	response := httptransport.DistributionStatsResponse{
		TotalDistributed:     formatMoney(stats.TotalDistributed),
		TotalRecords:         stats.TotalRecords,
		TotalRecipients:      stats.TotalRecipients,
		AverageShare:         formatMoney(stats.AverageShare),
		IsEnabled:            stats.IsEnabled,
		SettingsVersion:      stats.SettingsVersion,
		TodayEstimatedProfit: formatMoney(stats.TodayEstimatedProfit),
		EligibleUserCount:    stats.EligibleUserCount,
	}
	if stats.LastRunAt != nil {
		response.LastRunAt = formatTime(*stats.LastRunAt)
	}
	return response, nil
}

// ReferralEventHandler godoc
// @Summary Report a referral trigger
// @Description Credits the referrer once per referred user when the trigger qualifies.
// @Tags distribution-engine
// @Accept json
// @Produce json
// @Param X-Actor-Id header string false "Actor id"
// @Param request body httptransport.ReferralEventRequest true "Referral trigger"
// @Success 200 {object} httptransport.ReferralEventResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 422 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/referrals/events [post]
func (h Handler) ReferralEventHandler(
	ctx context.Context,
	actorID string,
	req httptransport.ReferralEventRequest,
) (httptransport.ReferralEventResponse, error) {
	result, err := h.CreditReferral.Execute(ctx, commands.CreditReferralCommand{
		ReferrerID:   req.ReferrerID,
		ReferredID:   req.ReferredID,
		TriggerEvent: req.TriggerEvent,
		ActorID:      actorID,
	})
	if err != nil {
		return httptransport.ReferralEventResponse{}, err
	}
	response := httptransport.ReferralEventResponse{Outcome: string(result.Outcome)}
	if result.Outcome == commands.ReferralCredited {
		credit := mapReferralCredit(result.Credit)
		response.Credit = &credit
		response.NewBalance = formatMoney(result.NewBalance)
	}
	return response, nil
}

// ListReferralsHandler godoc
// @Summary List referral credits of a referrer
// @Tags distribution-engine
// @Produce json
// @Param referrer_id path string true "Referrer id"
// @Param page query int false "Page number"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} httptransport.ListReferralsResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/referrals/{referrer_id} [get]
func (h Handler) ListReferralsHandler(
	ctx context.Context,
	referrerID string,
	page int,
	limit int,
) (httptransport.ListReferralsResponse, error) {
	result, err := h.ListReferrals.Execute(ctx, queries.ListReferralsQuery{
		ReferrerID: referrerID,
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		return httptransport.ListReferralsResponse{}, err
	}
	items := make([]httptransport.ReferralCreditDTO, 0, len(result.Items))
	for _, credit := range result.Items {
		items = append(items, mapReferralCredit(credit))
	}
	return httptransport.ListReferralsResponse{
		Items: items,
		Stats: httptransport.ReferralStatsDTO{
			TotalReferrals:  result.Totals.TotalReferrals,
			ActiveReferrals: result.Totals.ActiveReferrals,
			TotalEarned:     formatMoney(result.Totals.TotalEarned),
		},
		Page: mapPage(result.Page),
	}, nil
}

// ListAuditHandler godoc
// @Summary List audit records
// @Tags distribution-engine
// @Produce json
// @Param action query string false "Action filter, ALL for every action"
// @Param page query int false "Page number"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} httptransport.ListAuditResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/audit-logs [get]
func (h Handler) ListAuditHandler(
	ctx context.Context,
	action string,
	page int,
	limit int,
) (httptransport.ListAuditResponse, error) {
	result, err := h.ListAudit.Execute(ctx, queries.ListAuditQuery{
		Action: action,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return httptransport.ListAuditResponse{}, err
	}
	items := make([]httptransport.AuditRecordDTO, 0, len(result.Items))
	for _, record := range result.Items {
		items = append(items, httptransport.AuditRecordDTO{
			AuditID:    record.AuditID,
			Action:     string(record.Action),
			ActorID:    record.ActorID,
			TargetID:   record.TargetID,
			EntityType: record.EntityType,
			EntityID:   record.EntityID,
			Details:    record.Details,
			CreatedAt:  formatTime(record.CreatedAt),
		})
	}
	return httptransport.ListAuditResponse{Items: items, Page: mapPage(result.Page)}, nil
}

// GetSettingsHandler godoc
// @Summary Current distribution settings
// @Tags distribution-engine
// @Produce json
// @Success 200 {object} httptransport.SettingsResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/settings [get]
func (h Handler) GetSettingsHandler(ctx context.Context) (httptransport.SettingsResponse, error) {
	settings, err := h.GetSettings.Execute(ctx)
	if err != nil {
		return httptransport.SettingsResponse{}, err
	}
	return mapSettings(settings), nil
}

// UpdateSettingsHandler godoc
// @Summary Update one settings section
// @Description Sections: profit-tiers, referral-tiers, platform-toggles. Runs already started keep their snapshot.
// @Tags distribution-engine
// @Accept json
// @Produce json
// @Param X-Actor-Id header string true "Administrator id"
// @Param section path string true "Settings section"
// @Param request body httptransport.UpdateSettingsRequest true "Section payload"
// @Success 200 {object} httptransport.UpdateSettingsResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/settings/{section} [put]
func (h Handler) UpdateSettingsHandler(
	ctx context.Context,
	actorID string,
	section string,
	req httptransport.UpdateSettingsRequest,
) (httptransport.UpdateSettingsResponse, error) {
	typed, err := sectionFromRequest(section, req)
	if err != nil {
		return httptransport.UpdateSettingsResponse{}, err
	}
	result, err := h.UpdateSettings.Execute(ctx, commands.UpdateSettingsCommand{
		Section:         typed,
		ExpectedVersion: req.ExpectedVersion,
		ActorID:         actorID,
	})
	if err != nil {
		return httptransport.UpdateSettingsResponse{}, err
	}
	changes := make([]httptransport.FieldChangeDTO, 0, len(result.Changes))
	for _, change := range result.Changes {
		changes = append(changes, httptransport.FieldChangeDTO{
			Field:         change.Field,
			PreviousValue: mapChangeValue(change.PreviousValue),
			NewValue:      mapChangeValue(change.NewValue),
		})
	}
	return httptransport.UpdateSettingsResponse{
		Settings: mapSettings(result.Settings),
		Changes:  changes,
	}, nil
}

// ReleaseHoldHandler godoc
// @Summary Release a credit hold
// @Description Re-enables crediting for a subject after its ledger was reconciled by hand.
// @Tags distribution-engine
// @Accept json
// @Produce json
// @Param X-Actor-Id header string true "Administrator id"
// @Param subject_id path string true "Subject id"
// @Param request body httptransport.ReleaseHoldRequest false "Release note"
// @Success 200 {object} httptransport.ReleaseHoldResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/credit-holds/{subject_id}/release [post]
func (h Handler) ReleaseHoldHandler(
	ctx context.Context,
	actorID string,
	subjectID string,
	req httptransport.ReleaseHoldRequest,
) (httptransport.ReleaseHoldResponse, error) {
	if err := h.ReleaseHold.Execute(ctx, commands.ReleaseHoldCommand{
		SubjectID: subjectID,
		ActorID:   actorID,
		Note:      req.Note,
	}); err != nil {
		return httptransport.ReleaseHoldResponse{}, err
	}
	return httptransport.ReleaseHoldResponse{SubjectID: subjectID, Released: true}, nil
}

func sectionFromRequest(section string, req httptransport.UpdateSettingsRequest) (entities.SettingsSection, error) {
	switch strings.TrimSpace(section) {
	case entities.SectionProfitTiers:
		tiers := make([]entities.ProfitTier, 0, len(req.ProfitTiers))
		for _, item := range req.ProfitTiers {
			tier, err := parseProfitTier(item)
			if err != nil {
				return nil, err
			}
			tiers = append(tiers, tier)
		}
		return entities.ProfitTiersSection{Tiers: tiers}, nil
	case entities.SectionReferralTiers:
		tiers := make([]entities.ReferralTier, 0, len(req.ReferralTiers))
		for _, item := range req.ReferralTiers {
			reward, err := parseDecimal("reward_amount", item.RewardAmount)
			if err != nil {
				return nil, err
			}
			tiers = append(tiers, entities.ReferralTier{
				MinReferrals: item.MinReferrals,
				MaxReferrals: item.MaxReferrals,
				RewardAmount: reward,
			})
		}
		return entities.ReferralTiersSection{Tiers: tiers}, nil
	case entities.SectionPlatformToggles:
		return entities.PlatformTogglesSection{ProfitSharingEnabled: req.ProfitSharingEnabled}, nil
	default:
		return nil, domainerrors.ErrUnknownSection
	}
}

func parseProfitTier(item httptransport.ProfitTierDTO) (entities.ProfitTier, error) {
	minAmount, err := parseDecimal("min_amount", item.MinAmount)
	if err != nil {
		return entities.ProfitTier{}, err
	}
	maxAmount, err := parseDecimal("max_amount", item.MaxAmount)
	if err != nil {
		return entities.ProfitTier{}, err
	}
	rate, err := parseDecimal("daily_rate_percent", item.DailyRatePercent)
	if err != nil {
		return entities.ProfitTier{}, err
	}
	return entities.ProfitTier{
		ID:               strings.TrimSpace(item.ID),
		Name:             strings.TrimSpace(item.Name),
		MinAmount:        minAmount,
		MaxAmount:        maxAmount,
		DailyRatePercent: rate,
	}, nil
}

func parseDecimal(field string, raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %s %q", domainerrors.ErrInvalidRequest, field, raw)
	}
	return value, nil
}

func mapSettings(settings entities.Settings) httptransport.SettingsResponse {
	return httptransport.SettingsResponse{
		ProfitTiers:          mapProfitTiers(settings.ProfitTiers),
		ReferralTiers:        mapReferralTiers(settings.ReferralTiers),
		ProfitSharingEnabled: settings.Toggles.ProfitSharingEnabled,
		Version:              settings.Version,
		LastModifiedBy:       settings.LastModifiedBy,
		UpdatedAt:            formatTime(settings.UpdatedAt),
	}
}

func mapProfitTiers(tiers []entities.ProfitTier) []httptransport.ProfitTierDTO {
	items := make([]httptransport.ProfitTierDTO, 0, len(tiers))
	for _, tier := range tiers {
		items = append(items, httptransport.ProfitTierDTO{
			ID:               tier.ID,
			Name:             tier.Name,
			MinAmount:        formatMoney(tier.MinAmount),
			MaxAmount:        formatMoney(tier.MaxAmount),
			DailyRatePercent: tier.DailyRatePercent.String(),
		})
	}
	return items
}

func mapReferralTiers(tiers []entities.ReferralTier) []httptransport.ReferralTierDTO {
	items := make([]httptransport.ReferralTierDTO, 0, len(tiers))
	for _, tier := range tiers {
		items = append(items, httptransport.ReferralTierDTO{
			MinReferrals: tier.MinReferrals,
			MaxReferrals: tier.MaxReferrals,
			RewardAmount: formatMoney(tier.RewardAmount),
		})
	}
	return items
}

func mapChangeValue(value any) any {
	switch typed := value.(type) {
	case []entities.ProfitTier:
		return mapProfitTiers(typed)
	case []entities.ReferralTier:
		return mapReferralTiers(typed)
	default:
		return value
	}
}

func mapLedgerEntry(entry entities.LedgerEntry) httptransport.LedgerEntryDTO {
	return httptransport.LedgerEntryDTO{
		EntryID:         entry.EntryID,
		SubjectID:       entry.SubjectID,
		PeriodKey:       entry.PeriodKey,
		BalanceSnapshot: formatMoney(entry.BalanceSnapshot),
		TierID:          entry.TierID,
		TierName:        entry.TierName,
		RatePercent:     entry.RatePercent.String(),
		Amount:          formatMoney(entry.Amount),
		IsCustom:        entry.IsCustom,
		CreatedBy:       entry.CreatedBy,
		CreatedAt:       formatTime(entry.CreatedAt),
	}
}

func mapReferralCredit(credit entities.ReferralCredit) httptransport.ReferralCreditDTO {
	return httptransport.ReferralCreditDTO{
		CreditID:     credit.CreditID,
		ReferrerID:   credit.ReferrerID,
		ReferredID:   credit.ReferredID,
		Amount:       formatMoney(credit.Amount),
		Status:       string(credit.Status),
		TriggerEvent: string(credit.TriggerEvent),
		TierAtTime:   credit.TierAtTime,
		CreatedAt:    formatTime(credit.CreatedAt),
	}
}

func mapPage(page queries.Page) httptransport.PageDTO {
	return httptransport.PageDTO{
		Page:  page.Page,
		Limit: page.Limit,
		Total: page.Total,
		Pages: page.Pages,
	}
}

func formatMoney(value decimal.Decimal) string {
	return value.StringFixed(2)
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(timestampLayout)
}
