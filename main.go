package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sentry "github.com/getsentry/sentry-go"
	telego "github.com/mymmrac/telego"
	"go.uber.org/ratelimit"

	telegoBot "quotecast-bot/bot"
	"quotecast-bot/internal/auth"
	"quotecast-bot/internal/broadcast"
	"quotecast-bot/internal/chats"
	"quotecast-bot/internal/config"
	"quotecast-bot/internal/content"
	"quotecast-bot/internal/database"
	"quotecast-bot/internal/delivery"
	"quotecast-bot/internal/engagement"
	"quotecast-bot/internal/handlers"
	"quotecast-bot/internal/jobs"
	"quotecast-bot/internal/leaderboard"
	"quotecast-bot/internal/locales"
	"quotecast-bot/internal/reactions"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	locales.Init(cfg.DefaultLanguage)

	err = sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.AppEnv,
		Release:          cfg.Version,
		EnableTracing:    true,
		TracesSampleRate: 1.0,
		Debug:            cfg.Debug,
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Flush(2 * time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal(err)
	}

	var bot *telego.Bot
	if cfg.Debug {
		bot, err = telego.NewBot(cfg.BotToken, telego.WithDefaultDebugLogger())
	} else {
		bot, err = telego.NewBot(cfg.BotToken, telego.WithDefaultLogger(false, false))
	}
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to create telego bot: %v", err)
	}

	registry := chats.NewRegistry()
	board := leaderboard.NewAggregator(cfg.Location)
	quotes := content.NewClient(&http.Client{}, cfg.QuoteAPIURL, cfg.ContentTimeout)
	deliverer := delivery.NewDeliverer(bot, ratelimit.New(cfg.RateLimit), nil)

	svc, err := engagement.New(engagement.Deps{
		Registry: registry,
		Ledger:   reactions.NewLedger(),
		Board:    board,
		Store:    store,
		Content:  quotes,
		Sender:   deliverer,
		Renderer: deliverer,
	})
	if err != nil {
		log.Fatalf("Failed to create engagement service: %v", err)
	}
	if err := svc.Load(ctx); err != nil {
		log.Printf("Starting with empty state: %v", err)
	}

	scheduler := broadcast.NewScheduler(registry, board, quotes, deliverer,
		broadcast.WithConcurrency(cfg.DeliveryConcurrency),
		broadcast.WithDeliveredHook(svc.OnBroadcastDelivered),
	)

	runner := jobs.NewRunner(ctx, cfg.Location)
	mustAdd := func(spec, name string, job jobs.Job) {
		if err := runner.Add(spec, name, job); err != nil {
			log.Fatalf("Failed to schedule %s: %v", name, err)
		}
	}
	mustAdd(cfg.TickSchedule, "broadcast", func(ctx context.Context) {
		if _, ran := scheduler.Tick(ctx); !ran {
			log.Println("[Jobs] Previous broadcast still running, tick skipped")
		}
	})
	mustAdd(cfg.SnapshotSchedule, "snapshot", func(ctx context.Context) {
		if err := svc.Flush(ctx); err != nil {
			log.Printf("[Jobs] Snapshot failed: %v", err)
		}
	})
	mustAdd(cfg.PruneSchedule, "prune", func(ctx context.Context) {
		svc.Prune(ctx)
	})

	adminChecker, err := auth.NewAdminChecker(bot)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to create admin checker: %v", err)
	}

	messageHandler, err := handlers.NewMessageHandler(svc, adminChecker)
	if err != nil {
		log.Fatalf("Failed to create message handler: %v", err)
	}

	updates, err := bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		AllowedUpdates: []string{"message", "callback_query", "my_chat_member"},
	})
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to start long polling: %v", err)
	}

	appBot, err := telegoBot.New(telegoBot.BotDeps{
		Bot:         bot,
		UpdatesChan: updates,
		Debug:       cfg.Debug,
		Handler:     messageHandler,
		RateLimit:   cfg.RateLimit,
	})
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal(err)
	}

	runner.Start()
	log.Printf("Bot started (env=%s, version=%s)", cfg.AppEnv, cfg.Version)

	// Start returns once ctx is cancelled and in-flight updates are done.
	appBot.Start(ctx)

	log.Println("Shutting down bot...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := runner.Stop(shutdownCtx); err != nil {
		log.Printf("Background jobs did not stop in time: %v", err)
	}
	if err := svc.Flush(shutdownCtx); err != nil {
		log.Printf("Final snapshot failed: %v", err)
	}
	if err := store.Close(shutdownCtx); err != nil {
		log.Printf("Error closing store: %v", err)
		sentry.CaptureException(err)
	}

	log.Println("Bot shutdown complete.")
}

// openStore picks MongoDB when a URI is configured and the JSON data file otherwise.
func openStore(ctx context.Context, cfg *config.Config) (database.SnapshotStore, error) {
	if !cfg.UseMongo() {
		log.Printf("Persisting state to %s", cfg.DataFile)
		return database.NewFileStore(cfg.DataFile), nil
	}
	client, db, err := database.ConnectDB(ctx, cfg.MongoDBURI, cfg.MongoDBDatabase)
	if err != nil {
		return nil, err
	}
	log.Printf("Persisting state to MongoDB database %s", cfg.MongoDBDatabase)
	return database.NewMongoStore(client, db), nil
}
