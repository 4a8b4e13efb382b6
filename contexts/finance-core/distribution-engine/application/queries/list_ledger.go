package queries

import (
	"context"
	"log/slog"
	"strings"

	application "profitshare/contexts/finance-core/distribution-engine/application"
	"profitshare/contexts/finance-core/distribution-engine/domain/entities"
	"profitshare/contexts/finance-core/distribution-engine/ports"
)

type ListLedgerQuery struct {
	SubjectID string
	PeriodKey string
	Page      int
	Limit     int
}

type ListLedgerResult struct {
	Items []entities.LedgerEntry
	Page  Page
}

type ListLedgerUseCase struct {
	Ledger ports.LedgerReader
	Logger *slog.Logger
}

func (u ListLedgerUseCase) Execute(ctx context.Context, query ListLedgerQuery) (ListLedgerResult, error) {
	logger := application.ResolveLogger(u.Logger)
	page, limit := normalizePage(query.Page, query.Limit)

	periodKey := strings.TrimSpace(query.PeriodKey)
	if periodKey != "" {
		parsed, err := entities.ParsePeriodKey(periodKey)
		if err != nil {
			return ListLedgerResult{}, err
		}
		periodKey = parsed
	}

	items, total, err := u.Ledger.ListLedgerEntries(ctx, ports.LedgerFilter{
		SubjectID: strings.TrimSpace(query.SubjectID),
		PeriodKey: periodKey,
		Offset:    (page - 1) * limit,
		Limit:     limit,
	})
	if err != nil {
		logger.Error("list ledger failed",
			"event", "list_ledger_failed",
			"module", application.ModuleName,
			"layer", "application",
			"subject_id", query.SubjectID,
			"error", err.Error(),
		)
		return ListLedgerResult{}, err
	}

	return ListLedgerResult{
		Items: items,
		Page:  newPage(page, limit, total),
	}, nil
}
