package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/presence-hub/internal/auth"
	"github.com/vovakirdan/presence-hub/internal/config"
	"github.com/vovakirdan/presence-hub/internal/core"
	"github.com/vovakirdan/presence-hub/internal/store"
	"github.com/vovakirdan/presence-hub/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/presence-hub/internal/transport/http"
)

const verificationIssuer = "presence-hub"

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	redirect        *stdhttp.Server
	tls             config.TLSConfig
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Initialize database store
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	// Verification codes are signed JWTs
	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.Accounts.VerificationSecret),
		Issuer:   verificationIssuer,
		Audience: verificationIssuer,
		TTL:      cfg.Accounts.VerificationTTL,
	}

	var mailer auth.Mailer = auth.NewLogMailer(logger)
	if cfg.Email.SMTPAddr != "" {
		smtpMailer, err := auth.NewSMTPMailer(cfg.Email.SMTPAddr, cfg.Email.From, cfg.Email.Username, cfg.Email.Password, cfg.Email.Timeout)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("init mailer: %w", err)
		}
		mailer = smtpMailer
	}

	accounts := auth.NewService(auth.Options{
		JWT:               jwtConfig,
		Mailer:            mailer,
		MailTimeout:       cfg.Email.Timeout,
		VerifyEnabled:     cfg.VerifyEnabled(),
		MinPasswordLength: cfg.Accounts.MinPasswordLength,
	})

	hub, err := core.NewHub(st, accounts, core.Settings{
		NickLimit:          cfg.Limits.Nick,
		MessageLimit:       cfg.Limits.Message,
		DefaultAccessLevel: cfg.Accounts.DefaultAccessLevel,
		MaxNickAttempts:    cfg.Accounts.MaxNickAttempts,
	}, logger)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("init hub: %w", err)
	}

	server, err := transporthttp.NewServer(hub, cfg, logger)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("init http server: %w", err)
	}

	a := &App{
		server:          server,
		tls:             cfg.TLS,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		log:             logger,
	}
	if cfg.TLS.Enabled {
		a.redirect = transporthttp.NewRedirectServer(cfg, logger)
	}
	return a, nil
}

// Run starts the HTTP server(s) and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 2)
	servers := []*stdhttp.Server{a.server}

	go func() {
		var err error
		if a.tls.Enabled {
			a.log.Info().Str("addr", a.server.Addr).Msg("https listening")
			err = a.server.ListenAndServeTLS(a.tls.CertFile, a.tls.KeyFile)
		} else {
			a.log.Info().Str("addr", a.server.Addr).Msg("http listening")
			err = a.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	if a.redirect != nil {
		servers = append(servers, a.redirect)
		go func() {
			a.log.Info().Str("addr", a.redirect.Addr).Msg("http (for redirecting) listening")
			if err := a.redirect.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
				serverErr <- err
				return
			}
			serverErr <- nil
		}()
	}

	select {
	case err := <-serverErr:
		a.shutdown(servers)
		a.cleanup()
		return err
	case <-ctx.Done():
		a.log.Info().Msg("shutting down http server")
		err := a.shutdown(servers)
		a.cleanup()
		return err
	}
}

func (a *App) shutdown(servers []*stdhttp.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	var errs []error
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
