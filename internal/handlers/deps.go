package handlers

import (
	"log/slog"

	"firebase.google.com/go/v4/auth"

	"github.com/GregMSThompson/receipts-backend/internal/response"
)

type Deps struct {
	Log             *slog.Logger
	ResponseHandler response.ResponseHandler
	Firebase        *auth.Client
	ConnectionSvc   ConnectionService
	PublishSvc      PublishService
	RuleSvc         RuleService
	ReceiptSvc      ReceiptService
}
