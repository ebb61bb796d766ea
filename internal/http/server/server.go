package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dropDatabas3/weasl/internal/config"
	"github.com/dropDatabas3/weasl/internal/observability/logger"
)

// Run arma el servicio y lo sirve hasta que ctx se cancele. El shutdown espera
// los requests activos y los envíos asíncronos pendientes.
func Run(ctx context.Context, cfg *config.Config) error {
	log := logger.From(ctx).With(logger.Layer("server"))

	app, err := Build(ctx, cfg, Overrides{})
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn("close failed", logger.Err(err))
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           app.Handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", logger.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", logger.Err(err))
		return err
	}
	return nil
}
