// Package logger expone un logger Zap de proceso con scoping por contexto.
//
// Inicialización (una vez en main):
//
//	logger.Init(logger.Config{Env: cfg.Log.Env, Level: cfg.Log.Level, ServiceName: "weasl"})
//	defer logger.Sync()
//
// En handlers y servicios:
//
//	log := logger.From(ctx).With(logger.Component("tokens"), logger.Op("Consume"))
//	log.Debug("token rejected", logger.Channel("sms"))
package logger

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config configura el logger.
type Config struct {
	// Env: "dev" (consola) o "prod" (JSON). Default "dev".
	Env string
	// Level: debug, info, warn, error. Default "info".
	Level       string
	ServiceName string
	Version     string
}

var (
	mu       sync.RWMutex
	instance *zap.Logger
	once     sync.Once
)

// Init construye el logger de proceso. Solo la primera llamada tiene efecto.
func Init(cfg Config) {
	once.Do(func() {
		l := build(cfg)
		mu.Lock()
		instance = l
		mu.Unlock()
	})
}

// Replace reemplaza el logger de proceso y retorna una función que restaura el anterior.
// Pensado para tests que necesitan capturar logs (zaptest/observer).
func Replace(l *zap.Logger) func() {
	mu.Lock()
	prev := instance
	instance = l
	mu.Unlock()
	return func() {
		mu.Lock()
		instance = prev
		mu.Unlock()
	}
}

// L retorna el logger de proceso; si Init no fue llamado usa dev/info.
func L() *zap.Logger {
	mu.RLock()
	l := instance
	mu.RUnlock()
	if l != nil {
		return l
	}
	Init(Config{Env: "dev", Level: "info"})
	mu.RLock()
	defer mu.RUnlock()
	return instance
}

// Named retorna un logger hijo con nombre de componente.
func Named(name string) *zap.Logger { return L().Named(name) }

// With retorna un logger con campos persistentes.
func With(fields ...zap.Field) *zap.Logger { return L().With(fields...) }

// S retorna el SugaredLogger de proceso (printf-style, usado por los comandos CLI).
func S() *zap.SugaredLogger { return L().Sugar() }

// Sync flushea buffers pendientes.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	if instance == nil {
		return nil
	}
	return instance.Sync()
}

type ctxKey struct{}

// ToContext inyecta un logger scoped en el contexto.
func ToContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From extrae el logger del contexto; sin logger en el contexto retorna L().
func From(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return L()
}

func build(cfg Config) *zap.Logger {
	var zcfg zap.Config
	if strings.EqualFold(cfg.Env, "prod") {
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zcfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		zcfg.DisableStacktrace = true
	}
	zcfg.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Level))
	zcfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	l, err := zcfg.Build(zap.AddCaller())
	if err != nil {
		l, _ = zap.NewProduction()
	}
	if cfg.ServiceName != "" {
		l = l.With(zap.String("service", cfg.ServiceName))
	}
	if cfg.Version != "" {
		l = l.With(zap.String("version", cfg.Version))
	}
	return l
}

func parseLevel(lvl string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
