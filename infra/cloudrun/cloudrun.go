package cloudrun

import (
	"fmt"
	"strconv"

	"github.com/pulumi/pulumi-docker/sdk/v4/go/docker"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/cloudrun"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/cloudrunv2"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/cloudscheduler"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/projects"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/serviceaccount"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"

	"github.com/GregMSThompson/receipts-backend/infra/common"
	"github.com/GregMSThompson/receipts-backend/infra/secret"
)

type secretRefs struct {
	ledgerSecretName pulumi.StringOutput
}

func SetupCloudRun(ctx *pulumi.Context, prov *gcp.Provider, tokenKey pulumi.StringOutput, res ...pulumi.Resource) error {
	apiImg, err := buildImage(ctx, "apiImage", "../cmd/api/Dockerfile", "receipts-api", res...)
	if err != nil {
		return err
	}
	sweepImg, err := buildImage(ctx, "sweepImage", "../cmd/sweep/Dockerfile", "receipts-sweep", res...)
	if err != nil {
		return err
	}

	srv, err := enableCloudRun(ctx, prov)
	if err != nil {
		return err
	}

	apiSA, err := createServiceAccount(ctx, prov, tokenKey)
	if err != nil {
		return err
	}

	_, err = secret.SetupSecretManager(ctx, prov, apiSA)
	if err != nil {
		return err
	}

	sr, err := createSecrets(ctx)
	if err != nil {
		return err
	}

	svc, err := createCloudRunService(ctx, apiImg, apiSA, sr, tokenKey, prov, srv)
	if err != nil {
		return err
	}

	err = setIAMAccessPolicy(ctx, svc, prov)
	if err != nil {
		return err
	}

	return createSweepJob(ctx, sweepImg, apiSA, sr, tokenKey, prov, srv)
}

func buildImage(ctx *pulumi.Context, resourceName, dockerfile, imageName string, res ...pulumi.Resource) (*docker.Image, error) {
	gcpCfg := config.New(ctx, "gcp")
	projectID := gcpCfg.Require("project")
	region := gcpCfg.Require("region")

	hash, err := common.GenerateHash("../")
	if err != nil {
		return nil, err
	}

	return docker.NewImage(ctx, resourceName, &docker.ImageArgs{
		Build: docker.DockerBuildArgs{
			Platform:   pulumi.String("linux/amd64"),
			Context:    pulumi.String(".."),         // build from repo root
			Dockerfile: pulumi.String(dockerfile),   // Dockerfile path relative to repo root
		},
		ImageName: pulumi.String(fmt.Sprintf("%s-docker.pkg.dev/%s/receipts/%s:%s", region, projectID, imageName, hash)),
	},
		pulumi.DependsOn(res),
	)
}

func enableCloudRun(ctx *pulumi.Context, prov *gcp.Provider) (*projects.Service, error) {
	return projects.NewService(ctx, "cloudRunService", &projects.ServiceArgs{
		Service: pulumi.String("run.googleapis.com"),
	},
		pulumi.Provider(prov),
	)
}

func createServiceAccount(ctx *pulumi.Context, prov *gcp.Provider, tokenKey pulumi.StringOutput) (*serviceaccount.Account, error) {
	gcpCfg := config.New(ctx, "gcp")
	projectID := gcpCfg.Require("project")

	apiSA, err := serviceaccount.NewAccount(ctx, "apiServiceAccount", &serviceaccount.AccountArgs{
		AccountId:   pulumi.String("receipts-api"),
		DisplayName: pulumi.String("Receipts API Service Account"),
	},
		pulumi.Provider(prov),
	)
	if err != nil {
		return nil, err
	}

	member := apiSA.Email.ApplyT(func(email string) string {
		return fmt.Sprintf("serviceAccount:%s", email)
	}).(pulumi.StringOutput)

	_, err = projects.NewIAMMember(ctx, "firestoreAccess", &projects.IAMMemberArgs{
		Role:    pulumi.String("roles/datastore.user"), // Firestore read/write
		Member:  member,
		Project: pulumi.String(projectID),
	},
		pulumi.Provider(prov),
	)
	if err != nil {
		return nil, err
	}

	// Encrypt/decrypt stored ledger tokens
	_, err = projects.NewIAMMember(ctx, "kmsAccess", &projects.IAMMemberArgs{
		Role:    pulumi.String("roles/cloudkms.cryptoKeyEncrypterDecrypter"),
		Member:  member,
		Project: pulumi.String(projectID),
	},
		pulumi.Provider(prov),
	)
	if err != nil {
		return nil, err
	}

	// Receipt extraction via Vertex
	_, err = projects.NewIAMMember(ctx, "vertexAccess", &projects.IAMMemberArgs{
		Role:    pulumi.String("roles/aiplatform.user"),
		Member:  member,
		Project: pulumi.String(projectID),
	},
		pulumi.Provider(prov),
	)
	if err != nil {
		return nil, err
	}

	return apiSA, nil
}

func runtimeEnv(ctx *pulumi.Context, sr *secretRefs, tokenKey pulumi.StringOutput) map[string]pulumi.StringInput {
	gcpCfg := config.New(ctx, "gcp")
	crCfg := config.New(ctx, "cloudrun")
	ledgerCfg := config.New(ctx, "ledger")

	return map[string]pulumi.StringInput{
		"PROJECTID":         pulumi.String(gcpCfg.Require("project")),
		"REGION":            pulumi.String(gcpCfg.Require("region")),
		"LOGLEVEL":          pulumi.String(crCfg.Require("logLevel")),
		"KMSKEYNAME":        tokenKey,
		"VERTEXMODEL":       pulumi.String(crCfg.Require("vertexModel")),
		"LEDGERCLIENTID":    pulumi.String(ledgerCfg.Require("clientId")),
		"LEDGERSECRETNAME":  sr.ledgerSecretName,
		"LEDGERENVIRONMENT": pulumi.String(ledgerCfg.Require("environment")),
		"LEDGERREDIRECTURI": pulumi.String(ledgerCfg.Require("redirectUri")),
	}
}

func createCloudRunService(ctx *pulumi.Context,
	img *docker.Image,
	apiSA *serviceaccount.Account,
	sr *secretRefs,
	tokenKey pulumi.StringOutput,
	prov *gcp.Provider,
	res ...pulumi.Resource) (*cloudrun.Service, error) {
	gcpCfg := config.New(ctx, "gcp")
	crCfg := config.New(ctx, "cloudrun")

	region := gcpCfg.Require("region")
	minScale := crCfg.Require("minScale")
	maxScale := crCfg.Require("maxScale")
	cpu := crCfg.Require("cpu")
	memory := crCfg.Require("memory")
	concurrency := crCfg.Require("concurrency")
	timeout, _ := strconv.Atoi(crCfg.Require("timeout"))

	envs := cloudrun.ServiceTemplateSpecContainerEnvArray{}
	for name, value := range runtimeEnv(ctx, sr, tokenKey) {
		envs = append(envs, &cloudrun.ServiceTemplateSpecContainerEnvArgs{
			Name:  pulumi.String(name),
			Value: value,
		})
	}

	return cloudrun.NewService(ctx, "receiptsApiService", &cloudrun.ServiceArgs{
		Location: pulumi.String(region),

		Template: &cloudrun.ServiceTemplateArgs{

			Metadata: &cloudrun.ServiceTemplateMetadataArgs{
				// ---- AUTOSCALING + INSTANCE SIZE ----
				Annotations: pulumi.StringMap{
					// Enable Identity Platform (Firebase) authentication
					"run.googleapis.com/launch-stage":      pulumi.String("BETA"),
					"run.googleapis.com/identity-provider": pulumi.String("firebase"),

					// Autoscaling bounds
					"autoscaling.knative.dev/minScale": pulumi.String(minScale),
					"autoscaling.knative.dev/maxScale": pulumi.String(maxScale),

					// Instance sizing
					"run.googleapis.com/cpu":    pulumi.String(cpu),
					"run.googleapis.com/memory": pulumi.String(memory),

					// Allow throttling when idle (reduces cost)
					"run.googleapis.com/cpu-throttling": pulumi.String("true"),

					// Set the number of concurrent requests per container
					"run.googleapis.com/container-concurrency": pulumi.String(concurrency),
				},
			},

			Spec: &cloudrun.ServiceTemplateSpecArgs{
				ServiceAccountName: apiSA.Email,
				TimeoutSeconds:     pulumi.Int(timeout),

				Containers: cloudrun.ServiceTemplateSpecContainerArray{
					&cloudrun.ServiceTemplateSpecContainerArgs{
						Image: img.ImageName,
						Ports: cloudrun.ServiceTemplateSpecContainerPortArray{
							&cloudrun.ServiceTemplateSpecContainerPortArgs{
								ContainerPort: pulumi.Int(8080),
							},
						},
						Envs: envs,
					},
				},
			},
		},
	},
		pulumi.Provider(prov),
		pulumi.DependsOn(res),
	)
}

// createSweepJob deploys the refresh sweep as a Cloud Run job triggered
// daily by Cloud Scheduler.
func createSweepJob(ctx *pulumi.Context,
	img *docker.Image,
	apiSA *serviceaccount.Account,
	sr *secretRefs,
	tokenKey pulumi.StringOutput,
	prov *gcp.Provider,
	res ...pulumi.Resource) error {
	gcpCfg := config.New(ctx, "gcp")
	crCfg := config.New(ctx, "cloudrun")

	projectID := gcpCfg.Require("project")
	region := gcpCfg.Require("region")
	schedule := crCfg.Require("sweepSchedule")

	envs := cloudrunv2.JobTemplateTemplateContainerEnvArray{}
	for name, value := range runtimeEnv(ctx, sr, tokenKey) {
		envs = append(envs, &cloudrunv2.JobTemplateTemplateContainerEnvArgs{
			Name:  pulumi.String(name),
			Value: value,
		})
	}

	job, err := cloudrunv2.NewJob(ctx, "sweepJob", &cloudrunv2.JobArgs{
		Name:     pulumi.String("receipts-sweep"),
		Location: pulumi.String(region),
		Template: &cloudrunv2.JobTemplateArgs{
			Template: &cloudrunv2.JobTemplateTemplateArgs{
				ServiceAccount: apiSA.Email,
				Containers: cloudrunv2.JobTemplateTemplateContainerArray{
					&cloudrunv2.JobTemplateTemplateContainerArgs{
						Image: img.ImageName,
						Envs:  envs,
					},
				},
			},
		},
	},
		pulumi.Provider(prov),
		pulumi.DependsOn(res),
	)
	if err != nil {
		return err
	}

	_, err = cloudscheduler.NewJob(ctx, "sweepSchedule", &cloudscheduler.JobArgs{
		Schedule: pulumi.String(schedule),
		Region:   pulumi.String(region),
		HttpTarget: &cloudscheduler.JobHttpTargetArgs{
			HttpMethod: pulumi.String("POST"),
			Uri: job.Name.ApplyT(func(name string) string {
				return fmt.Sprintf("https://%s-run.googleapis.com/apis/run.googleapis.com/v1/namespaces/%s/jobs/%s:run",
					region, projectID, name)
			}).(pulumi.StringOutput),
			OauthToken: &cloudscheduler.JobHttpTargetOauthTokenArgs{
				ServiceAccountEmail: apiSA.Email,
			},
		},
	},
		pulumi.Provider(prov),
	)
	return err
}

func setIAMAccessPolicy(ctx *pulumi.Context, svc *cloudrun.Service, prov *gcp.Provider) error {
	gcpCfg := config.New(ctx, "gcp")
	region := gcpCfg.Require("region")

	_, err := cloudrun.NewIamMember(ctx, "denyUnauthenticated", &cloudrun.IamMemberArgs{
		Service:  svc.Name,
		Location: pulumi.String(region),
		Role:     pulumi.String("roles/run.invoker"),

		// Allow requests to reach Identity Platform (Firebase) auth
		Member: pulumi.String("allUsers"),
	},
		pulumi.Provider(prov),
	)
	return err
}

func createSecrets(ctx *pulumi.Context) (*secretRefs, error) {
	var err error
	sr := new(secretRefs)

	ledgerCfg := config.New(ctx, "ledger")
	ledgerSecret := ledgerCfg.RequireSecret("clientSecret")

	sr.ledgerSecretName, err = secret.AddSecret(ctx, "ledgerClientSecret", "ledgerClientSecret", ledgerSecret)
	if err != nil {
		return nil, err
	}

	return sr, nil
}
