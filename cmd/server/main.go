package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/faeln1/clan-notifier/internal/app/controllers"
	"github.com/faeln1/clan-notifier/internal/app/repositories"
	"github.com/faeln1/clan-notifier/internal/app/services"
	"github.com/faeln1/clan-notifier/internal/config"
	"github.com/faeln1/clan-notifier/internal/domain/notification"
	"github.com/faeln1/clan-notifier/internal/platform/database"
	"github.com/faeln1/clan-notifier/internal/platform/feed"
	httpPlatform "github.com/faeln1/clan-notifier/internal/platform/http"
	"github.com/faeln1/clan-notifier/internal/platform/session"
	"github.com/faeln1/clan-notifier/pkg/eventlog"
	"github.com/faeln1/clan-notifier/pkg/logger"
	minioStorage "github.com/faeln1/clan-notifier/pkg/storage/minio"
	"github.com/joho/godotenv"
	waLog "go.mau.fi/whatsmeow/util/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := config.MustLoad()
	loggers := logger.New(cfg.LogLevel)

	log.Printf("configuration: env=%s store=%s", cfg.Env, cfg.StoreDriver)

	store, closeStore, err := openStore(context.Background(), cfg, loggers.App.Sub("Store"))
	if err != nil {
		log.Fatalf("store initialization error: %v", err)
	}
	if closeStore != nil {
		defer func() {
			if err := closeStore.Close(); err != nil {
				log.Printf("error closing store: %v", err)
			}
		}()
	}

	httpClient := &http.Client{Timeout: 15 * time.Second}

	var fetcher services.ClanFetcher
	if cfg.ClanAPI.Enabled() {
		fetcher = services.NewHTTPClanFetcher(cfg.ClanAPI.URL, cfg.ClanAPI.Token, httpClient)
	} else {
		loggers.App.Warnf("CLAN_API_URL não configurada; sessões sem detalhes do clã")
	}

	eventLogger := eventlog.NewWriter(cfg.EventLogDir, loggers.App.Sub("EventLog"))
	sink := services.NewMultiActionSink(
		services.NewWebhookActionSink(cfg.ActionsHook.URL, cfg.ActionsHook.Token, httpClient, loggers.App.Sub("ActionsWebhook")),
		services.NewAuditActionSink(eventLogger, loggers.App.Sub("Audit")),
	)

	sessions := session.NewManager(loggers.App.Sub("Sessions"))
	defer sessions.CloseAll()

	sessionSvc := services.NewSessionService(sessions, store, fetcher, sink, services.SessionOptions{
		Filter: services.FilterConfig{
			StaleAfter:        cfg.Reconcile.StaleAfter,
			WelcomeStaleAfter: cfg.Reconcile.WelcomeStaleAfter,
		},
		PruneInterval: cfg.Reconcile.PruneInterval,
		ReloadTimeout: cfg.Reconcile.ReloadTimeout,
	}, loggers.App.Sub("Clan"))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	feedDone := make(chan struct{})
	go func() {
		defer close(feedDone)
		client := feed.NewClient(cfg.Feed.URL, cfg.Feed.Token, func(ctx context.Context, batch []notification.Notification) {
			if n := sessionSvc.Broadcast(ctx, batch); n > 0 {
				loggers.Feed.Debugf("%d ação(ões) emitidas para %d notificação(ões)", n, len(batch))
			}
		}, loggers.Feed)
		if err := client.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			if errors.Is(err, feed.ErrFeedDisabled) {
				loggers.Feed.Infof("FEED_URL não configurada; notificações apenas via HTTP")
				return
			}
			loggers.Feed.Errorf("feed encerrado: %v", err)
		}
	}()

	router := httpPlatform.NewRouter(httpPlatform.RouterConfig{
		SessionCtrl:   controllers.NewSessionController(sessionSvc),
		Sessions:      sessions,
		Logger:        loggers.HTTP,
		SwaggerEnable: cfg.SwaggerEnable,
		MasterToken:   cfg.MasterToken,
	})

	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Printf("HTTP server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	<-feedDone
}

// openStore builds the key-value store that backs the processed-notification ledgers.
func openStore(ctx context.Context, cfg *config.AppConfig, log waLog.Logger) (repositories.KeyValueStore, io.Closer, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		log.Infof("ledger em sqlite (%s)", cfg.SQLitePath)
		store, err := repositories.NewSQLiteKeyValueStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case config.StorePostgres:
		log.Infof("ledger em postgres (lib/pq)")
		db, err := database.OpenSQL(cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		store, err := repositories.NewPostgresKeyValueStore(db, "")
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, db, nil
	case config.StoreGorm:
		log.Infof("ledger em postgres (GORM)")
		db, err := database.Open(cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		store, err := repositories.NewGormKeyValueStore(db)
		if err != nil {
			sqlDB.Close()
			return nil, nil, err
		}
		return store, sqlDB, nil
	case config.StoreMinio:
		log.Infof("ledger em object storage bucket=%s endpoint=%s", cfg.Storage.Bucket, cfg.Storage.Endpoint)
		objects, err := minioStorage.New(ctx, minioStorage.Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			UseSSL:    cfg.Storage.UseSSL,
		})
		if err != nil {
			return nil, nil, err
		}
		return repositories.NewObjectKeyValueStore(objects, cfg.Storage.Prefix), nil, nil
	default:
		log.Warnf("ledger em memória; ids processados se perdem ao reiniciar")
		return repositories.NewInMemoryKeyValueStore(), nil, nil
	}
}
