package config

type Config interface {
	EnvConfig
	CorsConfig
	ProtocolConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetIssuer() string
	GetRecordsFile() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Protocol
}

func New() Config {
	return mainConfig{}
}
