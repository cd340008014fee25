package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Cart         CartConfig
	Delivery     DeliveryConfig
	GoogleMaps   GoogleMapsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Orders       OrdersConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
	}
	if err := cfg.Cart.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string   `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"STOREFRONT_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"STOREFRONT_DB_HOST"`
	Port     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	User     string `envconfig:"STOREFRONT_DB_USER"`
	Password string `envconfig:"STOREFRONT_DB_PASSWORD"`
	Name     string `envconfig:"STOREFRONT_DB_NAME"`
	SSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"require"`

	SQLitePath string `envconfig:"STOREFRONT_SQLITE_PATH" default:"storefront.db"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"5"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"30m"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"5m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"4"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"3s"`
}

// CartConfig selects the durable storage backing the single cart.
type CartConfig struct {
	Storage  string `envconfig:"STOREFRONT_CART_STORAGE" default:"bolt"`
	BoltPath string `envconfig:"STOREFRONT_CART_BOLT_PATH" default:"cart.bolt"`
}

func (c CartConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Storage)) {
	case CartStorageBolt, CartStorageRedis, CartStorageMemory:
		return nil
	}
	return fmt.Errorf("%s must be one of %s, %s, %s", EnvCartStorage, CartStorageBolt, CartStorageRedis, CartStorageMemory)
}

// Backend returns the normalized storage backend name.
func (c CartConfig) Backend() string {
	return strings.ToLower(strings.TrimSpace(c.Storage))
}

// DeliveryConfig parameterizes the delivery fee estimator.
type DeliveryConfig struct {
	Origin           string        `envconfig:"STOREFRONT_DELIVERY_ORIGIN" default:"Nyeri, Kenya"`
	RegionCode       string        `envconfig:"STOREFRONT_DELIVERY_REGION_CODE" default:"KE"`
	BaseFee          string        `envconfig:"STOREFRONT_DELIVERY_BASE_FEE" default:"50"`
	PerKmFee         string        `envconfig:"STOREFRONT_DELIVERY_PER_KM_FEE" default:"20"`
	LookupTimeout    time.Duration `envconfig:"STOREFRONT_FEE_LOOKUP_TIMEOUT" default:"10s"`
	BreakerTimeout   time.Duration `envconfig:"STOREFRONT_FEE_BREAKER_TIMEOUT" default:"30s"`
	BreakerThreshold uint32        `envconfig:"STOREFRONT_FEE_BREAKER_THRESHOLD" default:"5"`
}

type GoogleMapsConfig struct {
	APIKey string `envconfig:"STOREFRONT_GOOGLE_MAPS_API_KEY"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"STOREFRONT_PUBSUB_ORDERS_TOPIC" default:"storefront-orders"`
}

// OrdersConfig holds the farmer contact that placed orders are forwarded to.
type OrdersConfig struct {
	WhatsAppNumber string `envconfig:"STOREFRONT_ORDERS_WHATSAPP_NUMBER"`
}

type FeatureFlagsConfig struct {
	UseSQLite    bool `envconfig:"STOREFRONT_USE_SQLITE" default:"false"`
	AutoMigrate  bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
	PublishOrder bool `envconfig:"STOREFRONT_PUBLISH_ORDERS" default:"false"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
