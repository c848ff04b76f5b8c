// Command indexer consumes activity events from NATS and indexes them into
// a local bluge index for later analysis.
package main

import (
	"context"
	"encoding/json"
	"flag"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/avolkova/chatline-server/internal/activity"
	"github.com/avolkova/chatline-server/internal/config"
	"github.com/avolkova/chatline-server/internal/index"
	"github.com/avolkova/chatline-server/internal/log"
)

func main() {
	_ = godotenv.Load()

	var (
		natsURL   = flag.String("nats-url", nats.DefaultURL, "NATS server URL")
		indexPath = flag.String("index-path", config.Default().IndexPath, "path to the bluge index")
		logLevel  = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	logger := log.New(*logLevel, true)

	idx, err := index.Open(*indexPath)
	if err != nil {
		stdlog.Fatalf("open index: %v", err)
	}
	defer idx.Close()

	conn, err := nats.Connect(*natsURL, nats.Name("chatline-indexer"))
	if err != nil {
		stdlog.Fatalf("connect nats: %v", err)
	}
	defer conn.Drain()

	sub, err := conn.Subscribe(activity.Subject, func(msg *nats.Msg) {
		var ev activity.Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			logger.Warn().Err(err).Msg("skipping malformed activity event")
			return
		}
		if err := idx.Index(ev); err != nil {
			logger.Error().Err(err).Str("type", ev.Type).Msg("failed to index activity event")
			return
		}
		logger.Debug().Str("type", ev.Type).Str("user", ev.UserID).Msg("activity event indexed")
	})
	if err != nil {
		stdlog.Fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	logger.Info().Str("nats_url", *natsURL).Str("index_path", *indexPath).Msg("indexer running")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info().Msg("indexer stopped")
}
