package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/GregMSThompson/receipts-backend/internal/bootstrap"
	imageclient "github.com/GregMSThompson/receipts-backend/internal/client/image"
	qboclient "github.com/GregMSThompson/receipts-backend/internal/client/qbo"
	vertexclient "github.com/GregMSThompson/receipts-backend/internal/client/vertex"
	"github.com/GregMSThompson/receipts-backend/internal/config"
	"github.com/GregMSThompson/receipts-backend/internal/crypto"
	"github.com/GregMSThompson/receipts-backend/internal/handlers"
	"github.com/GregMSThompson/receipts-backend/internal/response"
	"github.com/GregMSThompson/receipts-backend/internal/router"
	"github.com/GregMSThompson/receipts-backend/internal/services"
	"github.com/GregMSThompson/receipts-backend/internal/store"
)

func exitOnError(message string, err error, log *slog.Logger) {
	if err != nil {
		log.Error(message, "error", err)
		os.Exit(1)
	}
}

func main() {
	// bootstrap
	cfg := config.New()
	bs, err := bootstrap.Run(cfg)
	exitOnError("bootstrap failed", err, bs.Log)
	defer bs.Close()

	applicationCtx := context.Background()

	// helpers
	kmsHelper := crypto.NewKMS(bs.KMS, cfg.KMSKeyName)

	// secrets
	secrets := store.NewSecretsStore(bs.Secrets, cfg.ProjectID)
	ledgerSecret, err := secrets.GetLedgerClientSecret(applicationCtx, cfg.LedgerSecretName)
	exitOnError("ledger client secret load failed", err, bs.Log)

	// clients
	ledger := qboclient.NewAdapter(cfg.LedgerClientID, ledgerSecret, cfg.LedgerRedirectURI, cfg.LedgerEnvironment)
	ocr, err := vertexclient.NewAdapter(applicationCtx, bs.Log, cfg.ProjectID, cfg.Region, cfg.VertexModel)
	exitOnError("vertex adapter init failed", err, bs.Log)
	defer ocr.Close()
	images := imageclient.NewFetcher()

	// stores
	cstore := store.NewConnectionStore(bs.Firestore, kmsHelper)
	rstore := store.NewRuleStore(bs.Firestore)
	recstore := store.NewReceiptStore(bs.Firestore)

	// services
	cserv := services.NewConnectionService(cstore, ledger, services.RefreshPolicy{
		AccessTokenBuffer:  cfg.AccessTokenBuffer,
		ProactiveThreshold: cfg.ProactiveThreshold,
		SweepThreshold:     cfg.SweepThreshold,
		SweepMinSpacing:    cfg.SweepMinSpacing,
		SweepTenantDelay:   cfg.SweepTenantDelay,
	})
	pserv := services.NewPublishService(ledger, cserv, images)
	rserv := services.NewRuleService(rstore)
	recserv := services.NewReceiptService(ocr, recstore, rserv)

	// response handler
	rh := response.New(bs.Log)

	// dependancies
	deps := new(handlers.Deps)
	deps.Log = bs.Log
	deps.ResponseHandler = rh
	deps.Firebase = bs.Firebase
	deps.ConnectionSvc = cserv
	deps.PublishSvc = pserv
	deps.RuleSvc = rserv
	deps.ReceiptSvc = recserv

	// router
	r := router.NewRouter(deps)
	err = http.ListenAndServe(":8080", r)
	exitOnError("server start failed", err, bs.Log)
}
