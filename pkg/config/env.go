package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	CartStorageBolt   = "bolt"
	CartStorageRedis  = "redis"
	CartStorageMemory = "memory"

	EnvAppEnv      = "STOREFRONT_APP_ENV"
	EnvPort        = "STOREFRONT_APP_PORT"
	EnvDBDSN       = "STOREFRONT_DB_DSN"
	EnvDBHost      = "STOREFRONT_DB_HOST"
	EnvDBUser      = "STOREFRONT_DB_USER"
	EnvDBName      = "STOREFRONT_DB_NAME"
	EnvUseSQLite   = "STOREFRONT_USE_SQLITE"
	EnvRedisURL    = "STOREFRONT_REDIS_URL"
	EnvCartStorage = "STOREFRONT_CART_STORAGE"
	EnvBaseFee     = "STOREFRONT_DELIVERY_BASE_FEE"
	EnvPerKmFee    = "STOREFRONT_DELIVERY_PER_KM_FEE"
	EnvFeeTimeout  = "STOREFRONT_FEE_LOOKUP_TIMEOUT"
	EnvMapsAPIKey  = "STOREFRONT_GOOGLE_MAPS_API_KEY"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
