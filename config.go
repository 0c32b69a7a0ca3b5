package membership

import (
	"fmt"
	"os"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration. Values come from the
// defaults, then the YAML file, then MEMBERD_* environment overrides,
// in that order.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Auth         AuthConfig         `yaml:"auth"`
	Mail         MailConfig         `yaml:"mail"`
	Registration RegistrationConfig `yaml:"registration"`
	Bootstrap    BootstrapConfig    `yaml:"bootstrap"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	SigningKey string        `yaml:"signing_key"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	Issuer     string        `yaml:"issuer"`
}

type MailConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Host       string `yaml:"host"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	From       string `yaml:"from"`
	SkipVerify bool   `yaml:"skip_verify"`
}

type RegistrationConfig struct {
	PendingTTL time.Duration `yaml:"pending_ttl"`
	ClientURL  string        `yaml:"client_url"`
}

type BootstrapConfig struct {
	Email     string `yaml:"email"`
	Password  string `yaml:"password"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
}

// LoadConfig reads the optional YAML file at path, expanding ${VAR}
// references before parsing.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "reading config file")
		}

		expanded := os.ExpandEnv(string(data))

		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "parsing config file")
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// ValidateForServe checks the settings the HTTP server cannot run
// without.
func (c *Config) ValidateForServe() error {
	if c.Auth.SigningKey == "" {
		return goerrors.New("auth.signing_key is required", goerrors.CategoryOperation)
	}
	return nil
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8087,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "file:membership.db?cache=shared&_pragma=foreign_keys(1)",
		},
		Auth: AuthConfig{
			TokenTTL: DefaultTokenTTL,
			Issuer:   "memberd",
		},
		Registration: RegistrationConfig{
			PendingTTL: PendingTTL,
			ClientURL:  "http://localhost:5173",
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MEMBERD_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("MEMBERD_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("MEMBERD_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("MEMBERD_SIGNING_KEY"); v != "" {
		cfg.Auth.SigningKey = v
	}
	if v := os.Getenv("MEMBERD_CLIENT_URL"); v != "" {
		cfg.Registration.ClientURL = v
	}
	if v := os.Getenv("MEMBERD_MAIL_HOST"); v != "" {
		cfg.Mail.Host = v
		cfg.Mail.Enabled = true
	}
	if v := os.Getenv("MEMBERD_MAIL_USERNAME"); v != "" {
		cfg.Mail.Username = v
	}
	if v := os.Getenv("MEMBERD_MAIL_PASSWORD"); v != "" {
		cfg.Mail.Password = v
	}
	if v := os.Getenv("MEMBERD_MAIL_FROM"); v != "" {
		cfg.Mail.From = v
	}
	if v := os.Getenv("MEMBERD_BOOTSTRAP_EMAIL"); v != "" {
		cfg.Bootstrap.Email = v
	}
	if v := os.Getenv("MEMBERD_BOOTSTRAP_PASSWORD"); v != "" {
		cfg.Bootstrap.Password = v
	}
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
