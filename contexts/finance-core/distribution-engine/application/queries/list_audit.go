package queries

import (
	"context"
	"log/slog"
	"strings"

	application "profitshare/contexts/finance-core/distribution-engine/application"
	"profitshare/contexts/finance-core/distribution-engine/domain/entities"
	"profitshare/contexts/finance-core/distribution-engine/ports"
)

type ListAuditQuery struct {
	Action string
	Page   int
	Limit  int
}

type ListAuditResult struct {
	Items []entities.AuditRecord
	Page  Page
}

type ListAuditUseCase struct {
	Audit  ports.AuditSink
	Logger *slog.Logger
}

func (u ListAuditUseCase) Execute(ctx context.Context, query ListAuditQuery) (ListAuditResult, error) {
	logger := application.ResolveLogger(u.Logger)
	page, limit := normalizePage(query.Page, query.Limit)
	action := strings.ToUpper(strings.TrimSpace(query.Action))
	if action == "ALL" {
		action = ""
	}

	items, total, err := u.Audit.ListAuditRecords(ctx, ports.AuditFilter{
		Action: entities.AuditAction(action),
		Offset: (page - 1) * limit,
		Limit:  limit,
	})
	if err != nil {
		logger.Error("list audit records failed",
			"event", "list_audit_failed",
			"module", application.ModuleName,
			"layer", "application",
			"action", action,
			"error", err.Error(),
		)
		return ListAuditResult{}, err
	}
	return ListAuditResult{Items: items, Page: newPage(page, limit, total)}, nil
}
