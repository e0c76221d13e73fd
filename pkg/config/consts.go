package config

// EnvPrefix is the namespace applied to every environment variable.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "COURSECAST_DB_DSN"
	EnvDBHost = "COURSECAST_DB_HOST"
	EnvDBUser = "COURSECAST_DB_USER"
	EnvDBName = "COURSECAST_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
