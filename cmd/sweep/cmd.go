// Sweep is invoked on a schedule (Cloud Run job) to renew aging refresh
// tokens before the ledger expires them.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/GregMSThompson/receipts-backend/internal/bootstrap"
	qboclient "github.com/GregMSThompson/receipts-backend/internal/client/qbo"
	"github.com/GregMSThompson/receipts-backend/internal/config"
	"github.com/GregMSThompson/receipts-backend/internal/crypto"
	"github.com/GregMSThompson/receipts-backend/internal/services"
	"github.com/GregMSThompson/receipts-backend/internal/store"
	"github.com/GregMSThompson/receipts-backend/pkg/logger"
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

	applicationCtx := logger.ToContext(context.Background(), bs.Log)

	// helpers
	kmsHelper := crypto.NewKMS(bs.KMS, cfg.KMSKeyName)

	// secrets
	secrets := store.NewSecretsStore(bs.Secrets, cfg.ProjectID)
	ledgerSecret, err := secrets.GetLedgerClientSecret(applicationCtx, cfg.LedgerSecretName)
	exitOnError("ledger client secret load failed", err, bs.Log)

	// clients
	ledger := qboclient.NewAdapter(cfg.LedgerClientID, ledgerSecret, cfg.LedgerRedirectURI, cfg.LedgerEnvironment)

	// stores
	cstore := store.NewConnectionStore(bs.Firestore, kmsHelper)

	// services
	cserv := services.NewConnectionService(cstore, ledger, services.RefreshPolicy{
		AccessTokenBuffer:  cfg.AccessTokenBuffer,
		ProactiveThreshold: cfg.ProactiveThreshold,
		SweepThreshold:     cfg.SweepThreshold,
		SweepMinSpacing:    cfg.SweepMinSpacing,
		SweepTenantDelay:   cfg.SweepTenantDelay,
	})

	result, err := cserv.RunBackgroundRefreshSweep(applicationCtx)
	exitOnError("refresh sweep failed", err, bs.Log)

	bs.Log.Info("refresh sweep finished",
		"scanned", result.Scanned,
		"refreshed", result.Refreshed,
		"skipped", result.Skipped,
		"failed", len(result.Failures))
	for _, f := range result.Failures {
		bs.Log.Warn("refresh sweep tenant failure", "tenantId", f.TenantID, "fatal", f.Fatal, "error", f.Error)
	}
}
