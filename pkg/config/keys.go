package config

// EnvPrefix is handed to envconfig; every field carries an explicit key.
const EnvPrefix = "NFTENNIS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv       = "NFTENNIS_APP_ENV"
	EnvPort         = "NFTENNIS_APP_PORT"
	EnvLogLevel     = "NFTENNIS_LOG_LEVEL"
	EnvLogWarnStack = "NFTENNIS_LOG_WARN_STACK"
	EnvCORSOrigins  = "NFTENNIS_CORS_ORIGINS"

	EnvDBDSN    = "NFTENNIS_DB_DSN"
	EnvDBDriver = "NFTENNIS_DB_DRIVER"

	EnvRedisURL = "NFTENNIS_REDIS_URL"

	EnvRPCURL           = "NFTENNIS_RPC_URL"
	EnvContractAddress  = "NFTENNIS_CONTRACT_ADDRESS"
	EnvOperatorAddress  = "NFTENNIS_OPERATOR_ADDRESS"
	EnvOperatorKey      = "NFTENNIS_OPERATOR_KEY"
	EnvKeystoreDir      = "NFTENNIS_KEYSTORE_DIR"
	EnvKeystorePassword = "NFTENNIS_KEYSTORE_PASSWORD"
	EnvChainID          = "NFTENNIS_CHAIN_ID"
	EnvGasLimit         = "NFTENNIS_GAS_LIMIT"

	EnvJWTSecret            = "NFTENNIS_JWT_SECRET"
	EnvJWTExpirationMinutes = "NFTENNIS_JWT_EXPIRATION_MINUTES"
	EnvSignInNonceTTL       = "NFTENNIS_SIGNIN_NONCE_TTL"

	EnvPinataJWT       = "NFTENNIS_PINATA_JWT"
	EnvPinataAPIKey    = "NFTENNIS_PINATA_API_KEY"
	EnvPinataAPISecret = "NFTENNIS_PINATA_API_SECRET"
	EnvIPFSGatewayURL  = "NFTENNIS_IPFS_GATEWAY_URL"

	EnvSweepInterval   = "NFTENNIS_SWEEP_INTERVAL"
	EnvEmbeddedSweeper = "NFTENNIS_EMBEDDED_SWEEPER"
	EnvMaxUploadMB     = "NFTENNIS_MAX_UPLOAD_MB"
	EnvAutoMigrate     = "NFTENNIS_AUTO_MIGRATE"
)
