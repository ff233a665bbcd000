package main

import (
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/GregMSThompson/receipts-backend/infra/cloudrun"
	"github.com/GregMSThompson/receipts-backend/infra/docker"
	"github.com/GregMSThompson/receipts-backend/infra/firestore"
	"github.com/GregMSThompson/receipts-backend/infra/identity"
	"github.com/GregMSThompson/receipts-backend/infra/kms"
	"github.com/GregMSThompson/receipts-backend/infra/provider"
	"github.com/GregMSThompson/receipts-backend/infra/vertex"
)

func main() {
	pulumi.Run(func(ctx *pulumi.Context) error {
		// set default provider with the correct project
		prov, err := provider.SetupDefaultProvider(ctx)
		if err != nil {
			return err
		}

		// enable identity service to allow using firebase
		ident, err := identity.SetupIdentity(ctx)
		if err != nil {
			return err
		}

		// enable firestore and create a database for the project
		err = firestore.SetupFirestore(ctx, prov)
		if err != nil {
			return err
		}

		// enable KMS and create the key that encrypts stored tokens
		_, err = kms.SetupKMS(ctx, prov)
		if err != nil {
			return err
		}
		tokenKey, err := kms.CreateKey(ctx, prov, "receipts", "connection-tokens")
		if err != nil {
			return err
		}

		// enable Vertex AI for receipt extraction
		err = vertex.SetupVertex(ctx, prov)
		if err != nil {
			return err
		}

		// create docker repo
		repo, err := docker.CreateCloudrunRepo(ctx)
		if err != nil {
			return err
		}

		err = cloudrun.SetupCloudRun(ctx, prov, tokenKey, ident, repo)
		if err != nil {
			return err
		}

		return nil
	})
}
