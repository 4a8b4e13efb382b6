package queries

import (
	"context"
	"log/slog"
	"strings"

	application "profitshare/contexts/finance-core/distribution-engine/application"
	"profitshare/contexts/finance-core/distribution-engine/domain/entities"
	domainerrors "profitshare/contexts/finance-core/distribution-engine/domain/errors"
	"profitshare/contexts/finance-core/distribution-engine/ports"
)

type ListReferralsQuery struct {
	ReferrerID string
	Page       int
	Limit      int
}

type ListReferralsResult struct {
	Items  []entities.ReferralCredit
	Totals ports.ReferralTotals
	Page   Page
}

type ListReferralsUseCase struct {
	Ledger ports.LedgerReader
	Logger *slog.Logger
}

func (u ListReferralsUseCase) Execute(ctx context.Context, query ListReferralsQuery) (ListReferralsResult, error) {
	logger := application.ResolveLogger(u.Logger)
	referrerID := strings.TrimSpace(query.ReferrerID)
	if referrerID == "" {
		return ListReferralsResult{}, domainerrors.ErrInvalidRequest
	}
	page, limit := normalizePage(query.Page, query.Limit)

	items, total, err := u.Ledger.ListReferralCredits(ctx, referrerID, (page-1)*limit, limit)
	if err != nil {
		logger.Error("list referral credits failed",
			"event", "list_referrals_failed",
			"module", application.ModuleName,
			"layer", "application",
			"referrer_id", referrerID,
			"error", err.Error(),
		)
		return ListReferralsResult{}, err
	}
	totals, err := u.Ledger.ReferralTotals(ctx, referrerID)
	if err != nil {
		return ListReferralsResult{}, err
	}

	return ListReferralsResult{
		Items:  items,
		Totals: totals,
		Page:   newPage(page, limit, total),
	}, nil
}
