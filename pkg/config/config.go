package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "PACKFINDERZ"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv             = "PACKFINDERZ_APP_ENV"
	EnvPort               = "PACKFINDERZ_APP_PORT"
	EnvMarketplaceBaseURL = "PACKFINDERZ_MARKETPLACE_BASE_URL"
	EnvMarketplaceTimeout = "PACKFINDERZ_MARKETPLACE_TIMEOUT"
	EnvSnapshotDriver     = "PACKFINDERZ_SNAPSHOT_DRIVER"
	EnvSnapshotBoltPath   = "PACKFINDERZ_SNAPSHOT_BOLT_PATH"
	EnvRedisURL           = "PACKFINDERZ_REDIS_URL"
	EnvDBDSN              = "PACKFINDERZ_DB_DSN"
	EnvDBDriver           = "PACKFINDERZ_DB_DRIVER"
	EnvDBHost             = "PACKFINDERZ_DB_HOST"
	EnvDBUser             = "PACKFINDERZ_DB_USER"
	EnvDBName             = "PACKFINDERZ_DB_NAME"
	EnvJWTSecret          = "PACKFINDERZ_JWT_SECRET"
	EnvJWTIssuer          = "PACKFINDERZ_JWT_ISSUER"
	EnvCartMirrorQueue    = "PACKFINDERZ_CART_MIRROR_QUEUE_SIZE"
	EnvCartIdleTTL        = "PACKFINDERZ_CART_IDLE_TTL"
	EnvCORSOrigins        = "PACKFINDERZ_CORS_ALLOWED_ORIGINS"
)

// Snapshot drivers understood by pkg/snapshot.
const (
	SnapshotDriverMemory   = "memory"
	SnapshotDriverRedis    = "redis"
	SnapshotDriverPostgres = "postgres"
	SnapshotDriverSQLite   = "sqlite"
	SnapshotDriverBolt     = "bolt"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App         AppConfig
	Marketplace MarketplaceConfig
	Snapshot    SnapshotConfig
	Redis       RedisConfig
	DB          DBConfig
	JWT         JWTConfig
	Cart        CartConfig
	CORS        CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Snapshot.validate(); err != nil {
		return nil, err
	}
	if cfg.Snapshot.UsesSQL() {
		if err := cfg.DB.ensureDSN(cfg.Snapshot.Driver); err != nil {
			return nil, err
		}
	}
	if cfg.Snapshot.Driver == SnapshotDriverRedis && !cfg.Redis.Enabled() {
		return nil, fmt.Errorf("%s is required when snapshot driver is redis", EnvRedisURL)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PACKFINDERZ_APP_ENV" required:"true"`
	Port         string `envconfig:"PACKFINDERZ_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"PACKFINDERZ_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PACKFINDERZ_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"PACKFINDERZ_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// MarketplaceConfig points at the marketplace REST backend (products, variants, carts).
type MarketplaceConfig struct {
	BaseURL string        `envconfig:"PACKFINDERZ_MARKETPLACE_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"PACKFINDERZ_MARKETPLACE_TIMEOUT" default:"10s"`
}

type SnapshotConfig struct {
	Driver string `envconfig:"PACKFINDERZ_SNAPSHOT_DRIVER" default:"memory"`
	// BoltPath is the snapshot file used by the bolt driver.
	BoltPath string `envconfig:"PACKFINDERZ_SNAPSHOT_BOLT_PATH" default:"storefront-carts.db"`
}

// UsesSQL reports whether snapshots go through the gorm-backed table.
func (s SnapshotConfig) UsesSQL() bool {
	return s.Driver == SnapshotDriverPostgres || s.Driver == SnapshotDriverSQLite
}

func (s *SnapshotConfig) validate() error {
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
	switch s.Driver {
	case SnapshotDriverMemory, SnapshotDriverRedis, SnapshotDriverPostgres, SnapshotDriverSQLite, SnapshotDriverBolt:
		return nil
	}
	return fmt.Errorf("unsupported snapshot driver %q", s.Driver)
}

type DBConfig struct {
	DSN string `envconfig:"PACKFINDERZ_DB_DSN"`

	LegacyHost     string `envconfig:"PACKFINDERZ_DB_HOST"`
	LegacyPort     int    `envconfig:"PACKFINDERZ_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PACKFINDERZ_DB_USER"`
	LegacyPassword string `envconfig:"PACKFINDERZ_DB_PASSWORD"`
	LegacyName     string `envconfig:"PACKFINDERZ_DB_NAME"`
	LegacySSLMode  string `envconfig:"PACKFINDERZ_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PACKFINDERZ_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"PACKFINDERZ_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"PACKFINDERZ_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PACKFINDERZ_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PACKFINDERZ_REDIS_URL"`
	Address      string        `envconfig:"PACKFINDERZ_REDIS_ADDR"`
	Password     string        `envconfig:"PACKFINDERZ_REDIS_PASSWORD"`
	DB           int           `envconfig:"PACKFINDERZ_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PACKFINDERZ_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PACKFINDERZ_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PACKFINDERZ_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PACKFINDERZ_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PACKFINDERZ_REDIS_WRITE_TIMEOUT" default:"5s"`
	SnapshotTTL  time.Duration `envconfig:"PACKFINDERZ_REDIS_SNAPSHOT_TTL" default:"720h"`
}

// Enabled reports whether a redis endpoint was configured. Idempotency keys are only
// honoured when it is.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

// JWTConfig verifies the access tokens minted by the marketplace auth service.
type JWTConfig struct {
	Secret string `envconfig:"PACKFINDERZ_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"PACKFINDERZ_JWT_ISSUER" required:"true"`
}

type CartConfig struct {
	MirrorQueueSize int           `envconfig:"PACKFINDERZ_CART_MIRROR_QUEUE_SIZE" default:"64"`
	IdleTTL         time.Duration `envconfig:"PACKFINDERZ_CART_IDLE_TTL" default:"24h"`
	SweepInterval   time.Duration `envconfig:"PACKFINDERZ_CART_SWEEP_INTERVAL" default:"10m"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"PACKFINDERZ_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (db *DBConfig) ensureDSN(driver string) error {
	if db.DSN != "" {
		return nil
	}
	if driver == SnapshotDriverSQLite {
		db.DSN = "file:storefront.db?cache=shared"
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
