package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del proceso. Se construye una vez en main
// (Load) y se pasa explícitamente a cada constructor.
type Config struct {
	App struct {
		// dev | prod
		Env      string `yaml:"env" env:"APP_ENV"`
		LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
		Version  string `yaml:"version" env:"APP_VERSION"`
	} `yaml:"app"`

	Server struct {
		Addr            string        `yaml:"addr" env:"SERVER_ADDR"`
		ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
		WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
		// Host público del servicio, usado por el CLI y en links de fallback.
		BaseURL string `yaml:"base_url" env:"SERVER_BASE_URL"`
	} `yaml:"server"`

	Storage struct {
		// postgres | memory
		Driver   string `yaml:"driver" env:"STORAGE_DRIVER"`
		DSN      string `yaml:"dsn" env:"STORAGE_DSN"`
		MaxConns int32  `yaml:"max_conns" env:"STORAGE_MAX_CONNS"`
		MinConns int32  `yaml:"min_conns" env:"STORAGE_MIN_CONNS"`
		// Nodo snowflake para IDs de tenant (0-1023).
		NodeID int64 `yaml:"node_id" env:"STORAGE_NODE_ID"`
		// Aplica migraciones pendientes al arrancar (solo postgres).
		AutoMigrate bool `yaml:"auto_migrate" env:"STORAGE_AUTO_MIGRATE"`
	} `yaml:"storage"`

	Auth struct {
		// Secreto de proceso; la clave HS256 de sesiones se deriva de él.
		SecretKey  string        `yaml:"secret_key" env:"WEASL_SECRET"`
		Issuer     string        `yaml:"issuer" env:"JWT_ISSUER"`
		SessionTTL time.Duration `yaml:"session_ttl" env:"SESSION_TTL"`
		// TTL del cache de tenants resueltos por client_id.
		TenantCacheTTL time.Duration `yaml:"tenant_cache_ttl" env:"TENANT_CACHE_TTL"`
	} `yaml:"auth"`

	Delivery struct {
		Timeout time.Duration `yaml:"timeout" env:"DELIVERY_TIMEOUT"`
		// Required=true hace que un fallo del notifier falle el request.
		Required bool `yaml:"required" env:"DELIVERY_REQUIRED"`
	} `yaml:"delivery"`

	Email struct {
		Host               string `yaml:"host" env:"SMTP_HOST"`
		Port               int    `yaml:"port" env:"SMTP_PORT"`
		Username           string `yaml:"username" env:"SMTP_USERNAME"`
		Password           string `yaml:"password" env:"SMTP_PASSWORD"`
		From               string `yaml:"from" env:"SMTP_FROM"`
		TLS                string `yaml:"tls" env:"SMTP_TLS"` // auto | starttls | ssl | none
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify" env:"SMTP_INSECURE_SKIP_VERIFY"`
		// Destino del magic link cuando el tenant no configura email_magiclink.
		BaseSiteURL string `yaml:"base_site_url" env:"BASE_SITE_HOST"`
	} `yaml:"email"`

	SMS struct {
		// Endpoint REST estilo Twilio; vacío deshabilita el envío (se loguea).
		APIBase    string        `yaml:"api_base" env:"SMS_API_BASE"`
		AccountSID string        `yaml:"account_sid" env:"TWILIO_ACCOUNT_SID"`
		AuthToken  string        `yaml:"auth_token" env:"TWILIO_AUTH_TOKEN"`
		FromNumber string        `yaml:"from_number" env:"TWILIO_FROM_NUMBER"`
		Timeout    time.Duration `yaml:"timeout" env:"SMS_TIMEOUT"`
	} `yaml:"sms"`

	Google struct {
		UserInfoURL string        `yaml:"userinfo_url" env:"GOOGLE_USERINFO_URL"`
		Timeout     time.Duration `yaml:"timeout" env:"GOOGLE_TIMEOUT"`
	} `yaml:"google"`

	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
	} `yaml:"redis"`

	Rate struct {
		Enabled bool          `yaml:"enabled" env:"RATE_ENABLED"`
		Limit   int           `yaml:"limit" env:"RATE_LIMIT"`
		Window  time.Duration `yaml:"window" env:"RATE_WINDOW"`
		Prefix  string        `yaml:"prefix" env:"RATE_PREFIX"`
	} `yaml:"rate"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	} `yaml:"cors"`

	Events struct {
		Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" envSeparator:","`
		Topic   string   `yaml:"topic" env:"KAFKA_TOPIC"`
	} `yaml:"events"`

	Platform struct {
		// Tenant cuyos principals administran tenants (weasl sobre weasl).
		ClientID string `yaml:"client_id" env:"PLATFORM_CLIENT_ID"`
		// Clave para la superficie de operador (/admin) y el CLI.
		AdminAPIKey string `yaml:"admin_api_key" env:"ADMIN_API_KEY"`
	} `yaml:"platform"`
}

// Load lee el YAML (si path no es vacío), aplica overrides de entorno,
// completa defaults y valida.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.MaxConns == 0 {
		c.Storage.MaxConns = 10
	}
	if c.Storage.MinConns == 0 {
		c.Storage.MinConns = 2
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "weasl"
	}
	if c.Auth.SessionTTL == 0 {
		c.Auth.SessionTTL = 7 * 24 * time.Hour
	}
	if c.Auth.TenantCacheTTL == 0 {
		c.Auth.TenantCacheTTL = 30 * time.Second
	}
	if c.Delivery.Timeout == 0 {
		c.Delivery.Timeout = 10 * time.Second
	}
	if c.Email.Port == 0 {
		c.Email.Port = 587
	}
	if c.Email.TLS == "" {
		c.Email.TLS = "auto"
	}
	if c.Email.BaseSiteURL == "" && !c.isProd() {
		c.Email.BaseSiteURL = DevBaseSiteURL
	}
	if c.SMS.Timeout == 0 {
		c.SMS.Timeout = 10 * time.Second
	}
	if c.Google.UserInfoURL == "" {
		c.Google.UserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	}
	if c.Google.Timeout == 0 {
		c.Google.Timeout = 10 * time.Second
	}
	if c.Rate.Limit == 0 {
		c.Rate.Limit = 10
	}
	if c.Rate.Window == 0 {
		c.Rate.Window = time.Minute
	}
	if c.Rate.Prefix == "" {
		c.Rate.Prefix = "weasl:rate:"
	}
	if c.Events.Topic == "" {
		c.Events.Topic = "weasl.auth"
	}
}

// DevBaseSiteURL es el destino del magic link fuera de prod.
const DevBaseSiteURL = "http://localhost:5000"

func (c *Config) isProd() bool { return strings.EqualFold(c.App.Env, "prod") }

// Validate chequea los valores críticos.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Auth.SecretKey) == "" {
		errs = append(errs, errors.New("auth.secret_key (WEASL_SECRET) is required"))
	} else if c.isProd() && len(c.Auth.SecretKey) < 32 {
		errs = append(errs, errors.New("auth.secret_key must be at least 32 bytes in prod"))
	}
	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q not supported", c.Storage.Driver))
	}
	if c.Storage.NodeID < 0 || c.Storage.NodeID > 1023 {
		errs = append(errs, errors.New("storage.node_id must be in [0,1023]"))
	}
	if strings.TrimSpace(c.Email.BaseSiteURL) == "" {
		errs = append(errs, errors.New("email.base_site_url (BASE_SITE_HOST) is required"))
	} else if u, err := url.Parse(c.Email.BaseSiteURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("email.base_site_url %q must be an absolute url", c.Email.BaseSiteURL))
	}
	switch strings.ToLower(c.Email.TLS) {
	case "auto", "starttls", "ssl", "none":
	default:
		errs = append(errs, fmt.Errorf("email.tls %q not supported", c.Email.TLS))
	}
	if c.Auth.SessionTTL < 0 || c.Delivery.Timeout < 0 {
		errs = append(errs, errors.New("durations must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
