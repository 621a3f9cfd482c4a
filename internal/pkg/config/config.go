package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port         string `env:"PORT,          default=8080"`
	Env          string `env:"ENV,           default=development"`
	LogLevel     string `env:"LOG_LEVEL,     default=info"`
	AuditWorkers int    `env:"AUDIT_WORKERS, default=4"`

	Mongo        MongoConfig
	Redis        RedisConfig
	Security     SecurityConfig
	Admin        AdminConfig
	ServiceToken ServiceTokenConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=authd"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// SecurityConfig selects the authentication mode and token settings. It is
// read once at startup.
type SecurityConfig struct {
	UseDatabase      bool          `env:"SECURITY_USE_DATABASE,       default=true"`
	TokenValidity    time.Duration `env:"SECURITY_TOKEN_VALIDITY,     default=1h"`
	Secret           string        `env:"SECURITY_SECRET,             required"`
	LoginMaxAttempts int           `env:"SECURITY_LOGIN_MAX_ATTEMPTS, default=5"`
	LoginLockout     time.Duration `env:"SECURITY_LOGIN_LOCKOUT,      default=15m"`
	BcryptCost       int           `env:"SECURITY_BCRYPT_COST,        default=10"`
}

// AdminConfig is the account seeded at bootstrap. An empty email disables it.
type AdminConfig struct {
	Email     string `env:"ADMIN_EMAIL"`
	Password  string `env:"ADMIN_PASSWORD"`
	Firstname string `env:"ADMIN_FIRSTNAME, default=Admin"`
	Lastname  string `env:"ADMIN_LASTNAME,  default=User"`
}

type ServiceTokenConfig struct {
	ID          string        `env:"SERVICE_TOKEN_ID"`
	Issuer      string        `env:"SERVICE_TOKEN_ISSUER,   default=authd"`
	Subject     string        `env:"SERVICE_TOKEN_SUBJECT"`
	Validity    time.Duration `env:"SERVICE_TOKEN_VALIDITY, default=5m"`
	Secret      string        `env:"SERVICE_TOKEN_SECRET"`
	Permissions []string      `env:"SERVICE_TOKEN_PERMISSIONS"`
}

// IsDevelopment reports whether the service runs in a local environment.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "local"
}

// Validate checks settings go-envconfig cannot express.
func (c *Config) Validate() error {
	if c.Security.TokenValidity <= 0 {
		return fmt.Errorf("SECURITY_TOKEN_VALIDITY must be positive, got %s", c.Security.TokenValidity)
	}
	if c.Admin.Email != "" && len(c.Admin.Password) < 10 {
		return fmt.Errorf("ADMIN_PASSWORD must be at least 10 characters")
	}
	return nil
}

// LoadWith reads configuration through lookuper: envconfig.OsLookuper in
// the binary, an envconfig.MapLookuper in tests.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
