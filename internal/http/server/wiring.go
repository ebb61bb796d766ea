// Package server construye el servicio completo a partir de config.Config y lo
// sirve por HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/weasl/internal/config"
	"github.com/dropDatabas3/weasl/internal/email"
	"github.com/dropDatabas3/weasl/internal/events"
	adminctl "github.com/dropDatabas3/weasl/internal/http/controllers/admin"
	"github.com/dropDatabas3/weasl/internal/http/controllers/health"
	orgsctl "github.com/dropDatabas3/weasl/internal/http/controllers/orgs"
	"github.com/dropDatabas3/weasl/internal/http/controllers/widget"
	"github.com/dropDatabas3/weasl/internal/http/router"
	authsvc "github.com/dropDatabas3/weasl/internal/http/services/auth"
	orgsvc "github.com/dropDatabas3/weasl/internal/http/services/orgs"
	jwtx "github.com/dropDatabas3/weasl/internal/jwt"
	"github.com/dropDatabas3/weasl/internal/metrics"
	"github.com/dropDatabas3/weasl/internal/oauth/google"
	"github.com/dropDatabas3/weasl/internal/observability/logger"
	"github.com/dropDatabas3/weasl/internal/principal"
	"github.com/dropDatabas3/weasl/internal/rate"
	"github.com/dropDatabas3/weasl/internal/security/token"
	"github.com/dropDatabas3/weasl/internal/sms"
	"github.com/dropDatabas3/weasl/internal/store"
	_ "github.com/dropDatabas3/weasl/internal/store/adapters/dal"
	"github.com/dropDatabas3/weasl/internal/tenant"
	"github.com/dropDatabas3/weasl/internal/tokens"
	migrations "github.com/dropDatabas3/weasl/migrations/postgres"
)

// Overrides reemplaza piezas externas en tests. Los campos nil se construyen
// desde la config.
type Overrides struct {
	Store    store.Connection
	Mailer   email.Notifier
	Texter   sms.Notifier
	Google   authsvc.UserInfoProvider
	Events   events.Publisher
	Limiter  rate.Limiter
	Registry prometheus.Registerer
}

// App es el servicio armado.
type App struct {
	Handler http.Handler
	Store   store.Connection
	Auth    *authsvc.Service
	Tenants *tenant.Registry

	closers []io.Closer
}

// Close espera los envíos en curso y libera conexiones.
func (a *App) Close() error {
	a.Auth.Wait()
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Build arma el servicio.
func Build(ctx context.Context, cfg *config.Config, ov Overrides) (*App, error) {
	log := logger.From(ctx).With(logger.Layer("server"), logger.Op("Build"))
	app := &App{}
	fail := func(err error) (*App, error) {
		_ = app.Close()
		return nil, err
	}
	// Close necesita un Auth aunque Build falle antes de crearlo.
	app.Auth = authsvc.NewService(authsvc.Deps{})

	// Store
	conn := ov.Store
	if conn == nil {
		c, err := store.Open(ctx, store.AdapterConfig{
			Driver:   cfg.Storage.Driver,
			DSN:      cfg.Storage.DSN,
			MaxConns: cfg.Storage.MaxConns,
			MinConns: cfg.Storage.MinConns,
		})
		if err != nil {
			return fail(err)
		}
		conn = c
	}
	app.Store = conn
	app.closers = append(app.closers, conn)

	reg := ov.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if err := metrics.Register(reg); err != nil {
		return fail(fmt.Errorf("server: register metrics: %w", err))
	}
	if pooled, ok := conn.(interface{ Pool() *pgxpool.Pool }); ok {
		if cfg.Storage.AutoMigrate {
			res, err := store.NewMigrator(migrations.FS, migrations.Dir).Up(ctx, pooled.Pool())
			if err != nil {
				return fail(fmt.Errorf("server: migrate: %w", err))
			}
			log.Info("migrations applied", logger.Int("count", len(res.Applied)))
		}
		if err := metrics.RegisterPool(reg, pooled.Pool()); err != nil {
			return fail(fmt.Errorf("server: register pool metrics: %w", err))
		}
	}

	// Componentes de dominio
	tenants, err := tenant.New(conn.Tenants(), tenant.Options{
		NodeID:   cfg.Storage.NodeID,
		CacheTTL: cfg.Auth.TenantCacheTTL,
	})
	if err != nil {
		return fail(err)
	}
	app.Tenants = tenants
	principals := principal.New(conn.Principals(), nil)
	tokenDeps := tokens.Deps{Tokens: conn.AuthTokens(), Principals: conn.Principals()}
	emailTokens := tokens.NewEngine(token.Email{}, tokenDeps)
	smsTokens := tokens.NewEngine(token.SMS{}, tokenDeps)

	sessions, err := jwtx.NewIssuer(cfg.Auth.Issuer, []byte(cfg.Auth.SecretKey), jwtx.WithTTL(cfg.Auth.SessionTTL))
	if err != nil {
		return fail(err)
	}
	templates, err := email.LoadTemplates()
	if err != nil {
		return fail(err)
	}

	// Dependencias externas
	mailer := ov.Mailer
	if mailer == nil {
		mailer = buildMailer(cfg)
	}
	texter := ov.Texter
	if texter == nil {
		texter = buildTexter(cfg)
	}
	var userinfo authsvc.UserInfoProvider = ov.Google
	if userinfo == nil {
		userinfo = google.New(cfg.Google.UserInfoURL, cfg.Google.Timeout)
	}
	publisher := ov.Events
	if publisher == nil {
		p, err := buildPublisher(cfg)
		if err != nil {
			return fail(err)
		}
		publisher = p
	}
	app.closers = append(app.closers, publisher)

	limiter := ov.Limiter
	if limiter == nil && cfg.Rate.Enabled {
		l, closer := buildLimiter(ctx, cfg)
		limiter = l
		if closer != nil {
			app.closers = append(app.closers, closer)
		}
	}

	// Servicios y controllers
	app.Auth = authsvc.NewService(authsvc.Deps{
		Tenants:     tenants,
		Principals:  principals,
		EmailToken:  emailTokens,
		SMSToken:    smsTokens,
		Sessions:    sessions,
		Mailer:      mailer,
		Templates:   templates,
		Texter:      texter,
		Google:      userinfo,
		Events:      publisher,
		Delivery:    authsvc.DeliveryConfig{Timeout: cfg.Delivery.Timeout, Required: cfg.Delivery.Required},
		BaseSiteURL: cfg.Email.BaseSiteURL,
		SMSFrom:     cfg.SMS.FromNumber,
	})
	orgs := orgsvc.NewService(orgsvc.Deps{
		Tenants:    tenants,
		Principals: principals,
		EmailToken: emailTokens,
		SMSToken:   smsTokens,
		Events:     publisher,
	})

	var metricsHandler http.Handler
	if g, ok := reg.(prometheus.Gatherer); ok {
		metricsHandler = promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	}

	app.Handler = router.New(router.Deps{
		Widget:           widget.NewController(app.Auth, orgs),
		Orgs:             orgsctl.NewController(orgs),
		Admin:            adminctl.NewController(orgs),
		Health:           health.NewController(conn, cfg.App.Version),
		Tenants:          tenants,
		Sessions:         sessions,
		Principals:       principals,
		Limiter:          limiter,
		CORSOrigins:      cfg.CORS.AllowedOrigins,
		PlatformClientID: cfg.Platform.ClientID,
		AdminKey:         cfg.Platform.AdminAPIKey,
		Metrics:          metricsHandler,
	})

	log.Info("service built",
		logger.String("storage", conn.Name()),
		logger.Bool("rate_limit", limiter != nil),
		logger.Bool("delivery_required", cfg.Delivery.Required),
	)
	return app, nil
}

func buildMailer(cfg *config.Config) email.Notifier {
	if cfg.Email.Host == "" {
		logger.L().Warn("smtp host not configured, emails will only be logged")
		return email.LogSender{}
	}
	return email.NewSMTPSender(email.SMTPConfig{
		Host:               cfg.Email.Host,
		Port:               cfg.Email.Port,
		From:               cfg.Email.From,
		Username:           cfg.Email.Username,
		Password:           cfg.Email.Password,
		TLSMode:            cfg.Email.TLS,
		InsecureSkipVerify: cfg.Email.InsecureSkipVerify,
	})
}

func buildTexter(cfg *config.Config) sms.Notifier {
	if cfg.SMS.APIBase == "" || cfg.SMS.AccountSID == "" {
		logger.L().Warn("sms provider not configured, texts will only be logged")
		return sms.LogSender{}
	}
	return sms.NewTwilioSender(sms.Config{
		APIBase:    cfg.SMS.APIBase,
		AccountSID: cfg.SMS.AccountSID,
		AuthToken:  cfg.SMS.AuthToken,
		Timeout:    cfg.SMS.Timeout,
	})
}

func buildPublisher(cfg *config.Config) (events.Publisher, error) {
	if len(cfg.Events.Brokers) == 0 {
		return events.LogPublisher{}, nil
	}
	p, err := events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic)
	if err != nil {
		return nil, fmt.Errorf("server: kafka publisher: %w", err)
	}
	return p, nil
}

// buildLimiter usa Redis si está configurado y responde; si no, buckets en memoria.
func buildLimiter(ctx context.Context, cfg *config.Config) (rate.Limiter, io.Closer) {
	if cfg.Redis.Addr != "" {
		client := rdb.NewClient(&rdb.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		err := client.Ping(ctx).Err()
		if err == nil {
			return rate.NewRedisLimiter(client, cfg.Rate.Prefix, cfg.Rate.Limit, cfg.Rate.Window), closerFunc(client.Close)
		}
		logger.L().Warn("redis unavailable, using in-memory rate limiter", logger.Err(err))
		_ = client.Close()
	}
	return rate.NewMemoryLimiter(cfg.Rate.Limit, cfg.Rate.Window), nil
}
