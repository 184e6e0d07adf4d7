package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

const (
	StoreMongo  = "mongo"
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

type Config struct {
	Env string `env:"ENV" envDefault:"local"`

	HTTPAddr        string        `env:"HTTP_ADDR"         envDefault:":8000"`
	HTTPTimeout     time.Duration `env:"HTTP_TIMEOUT"      envDefault:"10s"`
	HTTPIdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`

	JWTSecret  string        `env:"JWT_SECRET,required,notEmpty"`
	TokenTTL   time.Duration `env:"TOKEN_TTL"   envDefault:"24h"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"10"`

	Store    string `env:"STORE"     envDefault:"mongo"`
	MongoURI string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDB  string `env:"MONGO_DB"  envDefault:"keep_notes"`
	DSN      string `env:"DSN"`

	// AllowSelfAssignedRole lets /register honour a client supplied role.
	// Enabling it means anyone can register as admin.
	AllowSelfAssignedRole bool `env:"ALLOW_SELF_ASSIGNED_ROLE" envDefault:"false"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

// Load reads the given .env files (all optional) and then the process
// environment.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config.Load: %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return fmt.Errorf("unknown ENV %q", c.Env)
	}
	switch c.Store {
	case StoreMongo, StoreMemory:
	case StoreMySQL:
		if c.DSN == "" {
			return errors.New("DSN is required when STORE=mysql")
		}
	default:
		return fmt.Errorf("unknown STORE %q", c.Store)
	}
	return nil
}
