package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Chain        ChainConfig
	Pinata       PinataConfig
	Sweeper      SweeperConfig
	Media        MediaConfig
	Metadata     MetadataConfig
	RateLimit    WriteRateLimitConfig
	JWT          JWTConfig
	SignIn       SignInConfig
}

// Load parses the environment. A missing required value is fatal for every
// binary, so callers exit on error.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Chain.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Pinata.validate(); err != nil {
		return nil, err
	}
	if err := cfg.JWT.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env           string        `envconfig:"NFTENNIS_APP_ENV" required:"true"`
	Port          string        `envconfig:"NFTENNIS_APP_PORT" required:"true"`
	LogLevel      string        `envconfig:"NFTENNIS_LOG_LEVEL" default:"info"`
	LogWarnStack  bool          `envconfig:"NFTENNIS_LOG_WARN_STACK" default:"false"`
	CORSOrigins   []string      `envconfig:"NFTENNIS_CORS_ORIGINS" default:"*"`
	ShutdownGrace time.Duration `envconfig:"NFTENNIS_SHUTDOWN_GRACE" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"NFTENNIS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"NFTENNIS_DB_DSN" required:"true"`
	Driver string `envconfig:"NFTENNIS_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"NFTENNIS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"NFTENNIS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"NFTENNIS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"NFTENNIS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the local sqlite driver was selected.
func (d DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(d.Driver), "sqlite")
}

type RedisConfig struct {
	URL          string        `envconfig:"NFTENNIS_REDIS_URL" required:"true"`
	PoolSize     int           `envconfig:"NFTENNIS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"NFTENNIS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"NFTENNIS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"NFTENNIS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"NFTENNIS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate     bool `envconfig:"NFTENNIS_AUTO_MIGRATE" default:"false"`
	EmbeddedSweeper bool `envconfig:"NFTENNIS_EMBEDDED_SWEEPER" default:"true"`
}

type ChainConfig struct {
	RPCURL           string        `envconfig:"NFTENNIS_RPC_URL" required:"true"`
	ContractAddress  string        `envconfig:"NFTENNIS_CONTRACT_ADDRESS" required:"true"`
	OperatorAddress  string        `envconfig:"NFTENNIS_OPERATOR_ADDRESS" required:"true"`
	OperatorKey      string        `envconfig:"NFTENNIS_OPERATOR_KEY"`
	KeystoreDir      string        `envconfig:"NFTENNIS_KEYSTORE_DIR"`
	KeystorePassword string        `envconfig:"NFTENNIS_KEYSTORE_PASSWORD"`
	ChainID          int64         `envconfig:"NFTENNIS_CHAIN_ID" default:"0"`
	GasLimit         uint64        `envconfig:"NFTENNIS_GAS_LIMIT" default:"3000000"`
	ReceiptTimeout   time.Duration `envconfig:"NFTENNIS_RECEIPT_TIMEOUT" default:"2m"`
}

func (c ChainConfig) validate() error {
	if !common.IsHexAddress(c.ContractAddress) {
		return fmt.Errorf("%s is not a hex address", EnvContractAddress)
	}
	if !common.IsHexAddress(c.OperatorAddress) {
		return fmt.Errorf("%s is not a hex address", EnvOperatorAddress)
	}
	return nil
}

// Contract returns the parsed contract address.
func (c ChainConfig) Contract() common.Address {
	return common.HexToAddress(c.ContractAddress)
}

// Operator returns the parsed operator address.
func (c ChainConfig) Operator() common.Address {
	return common.HexToAddress(c.OperatorAddress)
}

type PinataConfig struct {
	JWT        string `envconfig:"NFTENNIS_PINATA_JWT"`
	APIKey     string `envconfig:"NFTENNIS_PINATA_API_KEY"`
	APISecret  string `envconfig:"NFTENNIS_PINATA_API_SECRET"`
	APIURL     string `envconfig:"NFTENNIS_PINATA_API_URL" default:"https://api.pinata.cloud"`
	GatewayURL string `envconfig:"NFTENNIS_IPFS_GATEWAY_URL" default:"https://gateway.pinata.cloud/ipfs"`
}

func (p PinataConfig) validate() error {
	if p.JWT != "" {
		return nil
	}
	if p.APIKey == "" || p.APISecret == "" {
		return fmt.Errorf("either %s or %s and %s are required", EnvPinataJWT, EnvPinataAPIKey, EnvPinataAPISecret)
	}
	return nil
}

type SweeperConfig struct {
	Interval        time.Duration `envconfig:"NFTENNIS_SWEEP_INTERVAL" default:"30s"`
	LockTTL         time.Duration `envconfig:"NFTENNIS_SWEEP_LOCK_TTL" default:"5m"`
	MaxEndsPerCycle int           `envconfig:"NFTENNIS_SWEEP_MAX_ENDS" default:"10"`
	OrphanRetention time.Duration `envconfig:"NFTENNIS_ORPHAN_PIN_RETENTION" default:"24h"`
}

type MediaConfig struct {
	MaxUploadMB int `envconfig:"NFTENNIS_MAX_UPLOAD_MB" default:"100"`
}

// MaxUploadBytes converts the configured limit to bytes.
func (m MediaConfig) MaxUploadBytes() int64 {
	if m.MaxUploadMB <= 0 {
		return 100 << 20
	}
	return int64(m.MaxUploadMB) << 20
}

type MetadataConfig struct {
	FetchTimeout time.Duration `envconfig:"NFTENNIS_METADATA_FETCH_TIMEOUT" default:"10s"`
	CacheTTL     time.Duration `envconfig:"NFTENNIS_METADATA_CACHE_TTL" default:"24h"`
	MaxBytes     int64         `envconfig:"NFTENNIS_METADATA_MAX_BYTES" default:"1048576"`
	Concurrency  int           `envconfig:"NFTENNIS_METADATA_CONCURRENCY" default:"8"`
}

type WriteRateLimitConfig struct {
	Window         time.Duration `envconfig:"NFTENNIS_WRITE_RATE_LIMIT_WINDOW" default:"1m"`
	Limit          int           `envconfig:"NFTENNIS_WRITE_RATE_LIMIT" default:"30"`
	IdempotencyTTL time.Duration `envconfig:"NFTENNIS_IDEMPOTENCY_TTL" default:"24h"`
}

// JWTConfig signs the access tokens issued after wallet sign-in.
type JWTConfig struct {
	Secret            string `envconfig:"NFTENNIS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"NFTENNIS_JWT_ISSUER" default:"nftennis"`
	ExpirationMinutes int    `envconfig:"NFTENNIS_JWT_EXPIRATION_MINUTES" default:"60"`
}

func (j JWTConfig) validate() error {
	if len(j.Secret) < 32 {
		return fmt.Errorf("%s must be at least 32 bytes", EnvJWTSecret)
	}
	if j.ExpirationMinutes <= 0 {
		return fmt.Errorf("%s must be positive", EnvJWTExpirationMinutes)
	}
	return nil
}

// TokenTTL is the lifetime of an access token.
func (j JWTConfig) TokenTTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type SignInConfig struct {
	NonceTTL time.Duration `envconfig:"NFTENNIS_SIGNIN_NONCE_TTL" default:"5m"`
	Domain   string        `envconfig:"NFTENNIS_SIGNIN_DOMAIN" default:"nftennis"`
}
