package config

import (
	"os"
	"time"

	"github.com/GregMSThompson/receipts-backend/internal/dto"
)

type Config struct {
	ProjectID   string
	Region      string
	LogLevel    string
	KMSKeyName  string
	VertexModel string

	LedgerClientID    string
	LedgerSecretName  string // Secret Manager secret holding the OAuth client secret
	LedgerEnvironment dto.LedgerEnvironment
	LedgerRedirectURI string

	// Refresh policy. The sweep threshold must stay above the proactive
	// one; the defaults keep that ordering when env vars are unset.
	AccessTokenBuffer  time.Duration
	ProactiveThreshold time.Duration
	SweepThreshold     time.Duration
	SweepMinSpacing    time.Duration
	SweepTenantDelay   time.Duration
}

func New() *Config {
	return &Config{
		ProjectID:   os.Getenv("PROJECTID"),
		Region:      os.Getenv("REGION"),
		LogLevel:    os.Getenv("LOGLEVEL"),
		KMSKeyName:  os.Getenv("KMSKEYNAME"),
		VertexModel: os.Getenv("VERTEXMODEL"),

		LedgerClientID:    os.Getenv("LEDGERCLIENTID"),
		LedgerSecretName:  os.Getenv("LEDGERSECRETNAME"),
		LedgerEnvironment: getLedgerEnvironment(os.Getenv("LEDGERENVIRONMENT")),
		LedgerRedirectURI: os.Getenv("LEDGERREDIRECTURI"),

		AccessTokenBuffer:  getDuration("ACCESSTOKENBUFFER", 5*time.Minute),
		ProactiveThreshold: getDuration("PROACTIVETHRESHOLD", 14*24*time.Hour),
		SweepThreshold:     getDuration("SWEEPTHRESHOLD", 30*24*time.Hour),
		SweepMinSpacing:    getDuration("SWEEPMINSPACING", 24*time.Hour),
		SweepTenantDelay:   getDuration("SWEEPTENANTDELAY", 500*time.Millisecond),
	}
}

func getLedgerEnvironment(env string) dto.LedgerEnvironment {
	switch env {
	case "sandbox":
		return dto.LedgerSandbox
	default: // "production"
		return dto.LedgerProduction
	}
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
