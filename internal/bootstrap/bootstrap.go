package bootstrap

import (
	"context"
	"log/slog"

	"cloud.google.com/go/firestore"
	gcpkms "cloud.google.com/go/kms/apiv1"
	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"firebase.google.com/go/v4/auth"

	"github.com/GregMSThompson/receipts-backend/internal/config"
	"github.com/GregMSThompson/receipts-backend/pkg/logger"
)

type Bootstrap struct {
	Log       *slog.Logger
	Firestore *firestore.Client
	Firebase  *auth.Client
	KMS       *gcpkms.KeyManagementClient
	Secrets   *secretmanager.Client
}

func Run(cfg *config.Config) (*Bootstrap, error) {
	var err error
	applicationCtx := context.Background()
	bs := new(Bootstrap)

	bs.Log = logger.New(cfg.LogLevel, logger.NewCloudRunHandler)
	bs.Firestore, err = InitFirestore(applicationCtx, cfg.ProjectID)
	if err != nil {
		return bs, err
	}
	bs.Firebase, err = InitFirebase(applicationCtx)
	if err != nil {
		return bs, err
	}
	bs.KMS, err = gcpkms.NewKeyManagementClient(applicationCtx)
	if err != nil {
		return bs, err
	}
	bs.Secrets, err = secretmanager.NewClient(applicationCtx)
	if err != nil {
		return bs, err
	}

	return bs, nil
}

func (bs *Bootstrap) Close() {
	if bs.Firestore != nil {
		bs.Firestore.Close()
	}
	if bs.KMS != nil {
		bs.KMS.Close()
	}
	if bs.Secrets != nil {
		bs.Secrets.Close()
	}
}
