package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int

	// Empty means in-memory stores.
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32
	DBMigrate   bool

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// Security policy:
	// If true, CQ_TOKEN_HMAC_KEY MUST be set (>= 32 bytes) and token hashing must be HMAC-based.
	RequireTokenHMAC bool

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int

	// Empty means no broker; auth events stay local.
	NATSURL           string
	NATSSubjectPrefix string
	NATSTimeout       time.Duration
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("CQ_HTTP_ADDR", "0.0.0.0:5000"),
		LogLevel:  EnvString("CQ_LOG_LEVEL", "info"),
		LogFormat: EnvString("CQ_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("CQ_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("CQ_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("CQ_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("CQ_HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   EnvDuration("CQ_HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),

		MaxHeaderBytes: EnvInt("CQ_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("CQ_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("CQ_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("CQ_DB_MIN_CONNS", 0),
		DBMigrate:   EnvBool("CQ_DB_MIGRATE", true),

		ReadinessRequireDB: EnvBool("CQ_READINESS_REQUIRE_DB", false),

		RequireTokenHMAC: EnvBool("CQ_REQUIRE_TOKEN_HMAC", false),

		CORSAllowedOrigins:   EnvList("CQ_CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		CORSAllowCredentials: EnvBool("CQ_CORS_ALLOW_CREDENTIALS", true),
		CORSMaxAgeSeconds:    EnvInt("CQ_CORS_MAX_AGE_SECONDS", 600),

		NATSURL:           EnvString("CQ_NATS_URL", ""),
		NATSSubjectPrefix: EnvString("CQ_NATS_SUBJECT_PREFIX", "careerquest"),
		NATSTimeout:       EnvDuration("CQ_NATS_TIMEOUT", 2*time.Second),
	}
}
