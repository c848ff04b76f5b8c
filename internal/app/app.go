package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/avolkova/chatline-server/internal/activity"
	"github.com/avolkova/chatline-server/internal/config"
	"github.com/avolkova/chatline-server/internal/core"
	"github.com/avolkova/chatline-server/internal/presence"
	"github.com/avolkova/chatline-server/internal/store"
	"github.com/avolkova/chatline-server/internal/store/sqlite"
	transporthttp "github.com/avolkova/chatline-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.MessageStore
	presence        *presence.RedisDirectory
	publisher       activity.Publisher
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("message store initialized")

	dir, err := presence.NewRedis(cfg.RedisAddr)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("init presence: %w", err)
	}
	logger.Info().Str("redis_addr", cfg.RedisAddr).Msg("presence directory connected")

	var publisher activity.Publisher = activity.NopPublisher{}
	if cfg.NATSURL != "" {
		pub, err := activity.NewNATS(cfg.NATSURL)
		if err != nil {
			// Activity is best-effort by contract; a missing broker must
			// not keep the chat server down.
			logger.Warn().Err(err).Str("nats_url", cfg.NATSURL).Msg("activity publisher unavailable, events will be dropped")
		} else {
			publisher = pub
			logger.Info().Str("nats_url", cfg.NATSURL).Msg("activity publisher connected")
		}
	}

	hub := core.NewHub(st, dir, publisher, logger, core.Options{
		HistoryLimit:     cfg.RoomHistoryLimit,
		RoomTypingExpiry: cfg.RoomTypingExpiry,
		DMTypingExpiry:   cfg.DMTypingExpiry,
	})
	server := transporthttp.NewServer(hub, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		presence:        dir,
		publisher:       publisher,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go a.hub.Run(ctx)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes external collaborators.
func (a *App) cleanup() {
	a.publisher.Close()

	if err := a.presence.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close presence directory")
	}

	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close store")
	} else {
		a.log.Info().Msg("store closed")
	}
}
