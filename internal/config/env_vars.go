package config

import (
	"fmt"
	"os"
	"time"
)

const (
	portEnvVar         = "PORT"
	appNameVar         = "APP_NAME"
	dsnEnvVar          = "DATABASE_DSN"
	apiBaseVar         = "FREEAGENT_API_BASE"
	authorizeVar       = "FREEAGENT_AUTHORIZE_ENDPOINT"
	tokenVar           = "FREEAGENT_TOKEN_ENDPOINT"
	redirectVar        = "OAUTH_REDIRECT_URI"
	appRedirect        = "APP_REDIRECT_URL"
	glideBaseVar       = "GLIDE_API_BASE"
	resourceTimeoutVar = "FREEAGENT_RESOURCE_TIMEOUT"
	tokenTimeoutVar    = "FREEAGENT_TOKEN_TIMEOUT"
)

type EnvVars struct{}

var _ Config = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "FreeAgent Bridge")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func (EnvVars) GetDatabaseDSN() string {
	return GetEnv(dsnEnvVar, "")
}

func (EnvVars) GetAPIBaseURL() string {
	return GetEnv(apiBaseVar, "https://api.freeagent.com/v2")
}

func (EnvVars) GetAuthorizeEndpoint() string {
	return GetEnv(authorizeVar, "https://api.freeagent.com/v2/approve_app")
}

func (EnvVars) GetTokenEndpoint() string {
	return GetEnv(tokenVar, "https://api.freeagent.com/v2/token_endpoint")
}

// GetRedirectURI returns the callback URL registered with FreeAgent for
// this deployment. It must match the registered value exactly.
func (EnvVars) GetRedirectURI() string {
	return GetEnv(redirectVar, "")
}

// GetAppRedirectURL is where the browser is sent after a successful
// authorization (the receipts app itself).
func (EnvVars) GetAppRedirectURL() string {
	return GetEnv(appRedirect, "https://receipts.flair.london")
}

func (EnvVars) GetResourceTimeout() time.Duration {
	return GetDurationEnv(resourceTimeoutVar, 30*time.Second)
}

func (EnvVars) GetTokenTimeout() time.Duration {
	return GetDurationEnv(tokenTimeoutVar, 15*time.Second)
}

func (EnvVars) GetGlideBaseURL() string {
	return GetEnv(glideBaseVar, "https://api.glideapps.com")
}

func (EnvVars) GetAPIKeySecretName() string {
	return GetEnv("API_KEY_SECRET_NAME", "flair-receipts-api-key")
}

func (EnvVars) GetClientIDSecretName() string {
	return GetEnv("CLIENT_ID_SECRET_NAME", "freeagent-client-id")
}

func (EnvVars) GetClientSecretSecretName() string {
	return GetEnv("CLIENT_SECRET_SECRET_NAME", "freeagent-client-secret")
}

func (EnvVars) GetGlideTokenSecretName() string {
	return GetEnv("GLIDE_TOKEN_SECRET_NAME", "glide-api-token")
}

func (EnvVars) GetGlideAppIDSecretName() string {
	return GetEnv("GLIDE_APP_ID_SECRET_NAME", "glide-app-id")
}

func (EnvVars) GetGlideTableSecretName() string {
	return GetEnv("GLIDE_TABLE_SECRET_NAME", "glide-table-name")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetDurationEnv(envVar string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(envVar))
	if err != nil {
		return defaultValue
	}
	return value
}
