package config

import "time"

type Config interface {
	EnvConfig
	UpstreamConfig
	GlideConfig
	DatabaseConfig
	SecretNames
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
}

// UpstreamConfig describes the FreeAgent endpoints this bridge talks to
// and the per-call deadlines for reaching them.
type UpstreamConfig interface {
	GetAPIBaseURL() string
	GetAuthorizeEndpoint() string
	GetTokenEndpoint() string
	GetRedirectURI() string
	GetAppRedirectURL() string
	GetResourceTimeout() time.Duration
	GetTokenTimeout() time.Duration
}

type GlideConfig interface {
	GetGlideBaseURL() string
}

type DatabaseConfig interface {
	GetDatabaseDSN() string
}

// SecretNames resolves which named credential each concern is stored under.
type SecretNames interface {
	GetAPIKeySecretName() string
	GetClientIDSecretName() string
	GetClientSecretSecretName() string
	GetGlideTokenSecretName() string
	GetGlideAppIDSecretName() string
	GetGlideTableSecretName() string
}

type mainConfig struct {
	EnvVars
}

func New() Config {
	return mainConfig{}
}
