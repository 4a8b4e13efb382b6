// Package docs registers the OpenAPI document served under /swagger/.
// Regenerate with: swag init -g internal/platform/httpserver/server.go -o internal/platform/httpserver/docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/v1/profit-share/runs": {
            "post": {
                "description": "Credits every eligible account once for the period. Re-running a period credits nobody twice.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["distribution-engine"],
                "summary": "Run the daily profit share",
                "parameters": [
                    {"type": "string", "description": "Administrator id", "name": "X-Actor-Id", "in": "header", "required": true},
                    {"description": "Run payload", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/httptransport.RunDistributionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.RunDistributionResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}}
                }
            }
        },
        "/v1/profit-share/custom": {
            "post": {
                "description": "Applies an administrator-chosen rate to the account deposit balance. Rejected when the account was already credited today.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["distribution-engine"],
                "summary": "Credit one account at a custom rate",
                "parameters": [
                    {"type": "string", "description": "Administrator id", "name": "X-Actor-Id", "in": "header", "required": true},
                    {"description": "Custom credit payload", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httptransport.CustomDistributionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.CustomDistributionResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}}
                }
            }
        },
        "/v1/profit-share/ledger": {
            "get": {
                "produces": ["application/json"],
                "tags": ["distribution-engine"],
                "summary": "List profit share ledger entries",
                "parameters": [
                    {"type": "string", "description": "Subject filter", "name": "subject_id", "in": "query"},
                    {"type": "string", "description": "Period filter (YYYY-MM-DD)", "name": "period_key", "in": "query"},
                    {"type": "integer", "description": "Page number", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Page size (max 100)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.ListLedgerResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}}
                }
            }
        },
        "/v1/profit-share/stats": {
            "get": {
                "description": "Ledger totals plus the estimate a run would credit now.",
                "produces": ["application/json"],
                "tags": ["distribution-engine"],
                "summary": "Profit share statistics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.DistributionStatsResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}}
                }
            }
        },
        "/v1/referrals/events": {
            "post": {
                "description": "Credits the referrer once per referred user when the trigger qualifies.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["distribution-engine"],
                "summary": "Report a referral trigger",
                "parameters": [
                    {"type": "string", "description": "Actor id", "name": "X-Actor-Id", "in": "header"},
                    {"description": "Referral trigger", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httptransport.ReferralEventRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.ReferralEventResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}}
                }
            }
        },
        "/v1/referrals/{referrer_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["distribution-engine"],
                "summary": "List referral credits of a referrer",
                "parameters": [
                    {"type": "string", "description": "Referrer id", "name": "referrer_id", "in": "path", "required": true},
                    {"type": "integer", "description": "Page number", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Page size (max 100)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.ListReferralsResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}}
                }
            }
        },
        "/v1/audit-logs": {
            "get": {
                "produces": ["application/json"],
                "tags": ["distribution-engine"],
                "summary": "List audit records",
                "parameters": [
                    {"type": "string", "description": "Action filter, ALL for every action", "name": "action", "in": "query"},
                    {"type": "integer", "description": "Page number", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Page size (max 100)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.ListAuditResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}}
                }
            }
        },
        "/v1/settings": {
            "get": {
                "produces": ["application/json"],
                "tags": ["distribution-engine"],
                "summary": "Current distribution settings",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.SettingsResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}}
                }
            }
        },
        "/v1/settings/{section}": {
            "put": {
                "description": "Sections: profit-tiers, referral-tiers, platform-toggles. Runs already started keep their snapshot.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["distribution-engine"],
                "summary": "Update one settings section",
                "parameters": [
                    {"type": "string", "description": "Administrator id", "name": "X-Actor-Id", "in": "header", "required": true},
                    {"type": "string", "description": "Settings section", "name": "section", "in": "path", "required": true},
                    {"description": "Section payload", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httptransport.UpdateSettingsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.UpdateSettingsResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}}
                }
            }
        },
        "/v1/credit-holds/{subject_id}/release": {
            "post": {
                "description": "Re-enables crediting for a subject after its ledger was reconciled by hand.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["distribution-engine"],
                "summary": "Release a credit hold",
                "parameters": [
                    {"type": "string", "description": "Administrator id", "name": "X-Actor-Id", "in": "header", "required": true},
                    {"type": "string", "description": "Subject id", "name": "subject_id", "in": "path", "required": true},
                    {"description": "Release note", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/httptransport.ReleaseHoldRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.ReleaseHoldResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "httptransport.ErrorResponse": {
            "type": "object",
            "properties": {"code": {"type": "string"}, "message": {"type": "string"}}
        },
        "httptransport.PageDTO": {
            "type": "object",
            "properties": {"page": {"type": "integer"}, "limit": {"type": "integer"}, "total": {"type": "integer"}, "pages": {"type": "integer"}}
        },
        "httptransport.RunDistributionRequest": {
            "type": "object",
            "properties": {"period_key": {"type": "string"}}
        },
        "httptransport.SubjectErrorDTO": {
            "type": "object",
            "properties": {"subject_id": {"type": "string"}, "reason": {"type": "string"}}
        },
        "httptransport.RunDistributionResponse": {
            "type": "object",
            "properties": {
                "run_id": {"type": "string"},
                "period_key": {"type": "string"},
                "settings_version": {"type": "integer"},
                "enabled": {"type": "boolean"},
                "users_processed": {"type": "integer"},
                "users_skipped": {"type": "integer"},
                "users_already_credited": {"type": "integer"},
                "total_amount_credited": {"type": "string"},
                "errors": {"type": "array", "items": {"$ref": "#/definitions/httptransport.SubjectErrorDTO"}},
                "cancelled": {"type": "boolean"},
                "started_at": {"type": "string"},
                "finished_at": {"type": "string"}
            }
        },
        "httptransport.CustomDistributionRequest": {
            "type": "object",
            "properties": {"subject_id": {"type": "string"}, "rate_percent": {"type": "string"}}
        },
        "httptransport.LedgerEntryDTO": {
            "type": "object",
            "properties": {
                "entry_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "period_key": {"type": "string"},
                "balance_snapshot": {"type": "string"},
                "tier_id": {"type": "string"},
                "tier_name": {"type": "string"},
                "rate_percent": {"type": "string"},
                "amount": {"type": "string"},
                "is_custom": {"type": "boolean"},
                "created_by": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "httptransport.CustomDistributionResponse": {
            "type": "object",
            "properties": {
                "entry": {"$ref": "#/definitions/httptransport.LedgerEntryDTO"},
                "previous_balance": {"type": "string"},
                "new_balance": {"type": "string"}
            }
        },
        "httptransport.ListLedgerResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/httptransport.LedgerEntryDTO"}},
                "page": {"$ref": "#/definitions/httptransport.PageDTO"}
            }
        },
        "httptransport.DistributionStatsResponse": {
            "type": "object",
            "properties": {
                "total_distributed": {"type": "string"},
                "total_records": {"type": "integer"},
                "total_recipients": {"type": "integer"},
                "average_share": {"type": "string"},
                "last_run_at": {"type": "string"},
                "is_enabled": {"type": "boolean"},
                "settings_version": {"type": "integer"},
                "today_estimated_profit": {"type": "string"},
                "eligible_user_count": {"type": "integer"}
            }
        },
        "httptransport.ReferralEventRequest": {
            "type": "object",
            "properties": {"referrer_id": {"type": "string"}, "referred_id": {"type": "string"}, "trigger_event": {"type": "string"}}
        },
        "httptransport.ReferralCreditDTO": {
            "type": "object",
            "properties": {
                "credit_id": {"type": "string"},
                "referrer_id": {"type": "string"},
                "referred_id": {"type": "string"},
                "amount": {"type": "string"},
                "status": {"type": "string"},
                "trigger_event": {"type": "string"},
                "tier_at_time": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "httptransport.ReferralEventResponse": {
            "type": "object",
            "properties": {
                "outcome": {"type": "string"},
                "credit": {"$ref": "#/definitions/httptransport.ReferralCreditDTO"},
                "new_balance": {"type": "string"}
            }
        },
        "httptransport.ReferralStatsDTO": {
            "type": "object",
            "properties": {"total_referrals": {"type": "integer"}, "active_referrals": {"type": "integer"}, "total_earned": {"type": "string"}}
        },
        "httptransport.ListReferralsResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/httptransport.ReferralCreditDTO"}},
                "stats": {"$ref": "#/definitions/httptransport.ReferralStatsDTO"},
                "page": {"$ref": "#/definitions/httptransport.PageDTO"}
            }
        },
        "httptransport.AuditRecordDTO": {
            "type": "object",
            "properties": {
                "audit_id": {"type": "string"},
                "action": {"type": "string"},
                "actor_id": {"type": "string"},
                "target_id": {"type": "string"},
                "entity_type": {"type": "string"},
                "entity_id": {"type": "string"},
                "details": {"type": "object"},
                "created_at": {"type": "string"}
            }
        },
        "httptransport.ListAuditResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/httptransport.AuditRecordDTO"}},
                "page": {"$ref": "#/definitions/httptransport.PageDTO"}
            }
        },
        "httptransport.ProfitTierDTO": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "min_amount": {"type": "string"},
                "max_amount": {"type": "string"},
                "daily_rate_percent": {"type": "string"}
            }
        },
        "httptransport.ReferralTierDTO": {
            "type": "object",
            "properties": {"min_referrals": {"type": "integer"}, "max_referrals": {"type": "integer"}, "reward_amount": {"type": "string"}}
        },
        "httptransport.SettingsResponse": {
            "type": "object",
            "properties": {
                "profit_tiers": {"type": "array", "items": {"$ref": "#/definitions/httptransport.ProfitTierDTO"}},
                "referral_tiers": {"type": "array", "items": {"$ref": "#/definitions/httptransport.ReferralTierDTO"}},
                "profit_sharing_enabled": {"type": "boolean"},
                "version": {"type": "integer"},
                "last_modified_by": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "httptransport.UpdateSettingsRequest": {
            "type": "object",
            "properties": {
                "expected_version": {"type": "integer"},
                "profit_tiers": {"type": "array", "items": {"$ref": "#/definitions/httptransport.ProfitTierDTO"}},
                "referral_tiers": {"type": "array", "items": {"$ref": "#/definitions/httptransport.ReferralTierDTO"}},
                "profit_sharing_enabled": {"type": "boolean"}
            }
        },
        "httptransport.FieldChangeDTO": {
            "type": "object",
            "properties": {"field": {"type": "string"}, "previous_value": {}, "new_value": {}}
        },
        "httptransport.UpdateSettingsResponse": {
            "type": "object",
            "properties": {
                "settings": {"$ref": "#/definitions/httptransport.SettingsResponse"},
                "changes": {"type": "array", "items": {"$ref": "#/definitions/httptransport.FieldChangeDTO"}}
            }
        },
        "httptransport.ReleaseHoldRequest": {
            "type": "object",
            "properties": {"note": {"type": "string"}}
        },
        "httptransport.ReleaseHoldResponse": {
            "type": "object",
            "properties": {"subject_id": {"type": "string"}, "released": {"type": "boolean"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Profit Share Distribution API",
	Description:      "Administrative API for daily profit share runs, custom credits, referral rewards and distribution settings.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
