package config

// EnvPrefix is applied by envconfig when processing the environment.
// Variables already carry the full TUTORPAY_ prefix in their tags, so the
// processing prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "TUTORPAY_DB_DSN"
	EnvDBHost = "TUTORPAY_DB_HOST"
	EnvDBUser = "TUTORPAY_DB_USER"
	EnvDBName = "TUTORPAY_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
