package config

import (
	"fmt"
	"os"
)

const (
	portEnvVar    = "PORT"
	appNameVar    = "APP_NAME"
	issuerVar     = "ISSUER_URL"
	recordsVar    = "DISCOVERY_RECORDS_FILE"
	policyModeVar = "POLICY_MODE"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "OpenAPE IdP")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetIssuer returns the public base URL of the IdP. It is stamped into every
// assertion's iss claim and must match the URL SPs discover.
func (EnvVars) GetIssuer() string {
	return GetEnv(issuerVar, "http://localhost:8080")
}

// GetRecordsFile returns the path of the YAML discovery-records file used by
// the static resolver.
func (EnvVars) GetRecordsFile() string {
	return GetEnv(recordsVar, "./data/records.yaml")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
