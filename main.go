package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"story-syndication/domain/repository"
	"story-syndication/infrastructure/cache"
	"story-syndication/infrastructure/configuration"
	"story-syndication/infrastructure/logger"
	"story-syndication/infrastructure/persistence"
	"story-syndication/infrastructure/pubsub"
	"story-syndication/infrastructure/realtime"
	"story-syndication/infrastructure/servicebus"
	"story-syndication/infrastructure/token"
	"story-syndication/infrastructure/webhook"
	httpHandler "story-syndication/interfaces/http"
	"story-syndication/server"
	"story-syndication/usecase"

	"golang.org/x/sync/errgroup"
)

var httpServer *http.Server

// stores groups the repositories backed by the selected database.
type stores struct {
	db      *sql.DB
	ledger  repository.IDistribution
	stories repository.IStory
	audit   repository.IAudit
}

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	cfg := configuration.C
	app := cfg.App

	st, err := InitiateDatabase(cfg.Database.Driver)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Database initialization failed")
		os.Exit(1)
	}
	defer st.db.Close()
	logger.GetLogger().WithField("driver", cfg.Database.Driver).Info("Database connected.")

	queue := initiateQueue(ctx, cfg)
	publishers, closePublishers := initiatePublishers(ctx, cfg)
	defer closePublishers()

	hub := realtime.NewDistributionHub()
	notifier := webhook.NewNotifier(webhook.Config{
		MaxAttempts:    cfg.Webhook.MaxAttempts,
		InitialBackoff: cfg.Webhook.InitialBackoff,
		MaxBackoff:     cfg.Webhook.MaxBackoff,
		AttemptTimeout: cfg.Webhook.AttemptTimeout,
	}, st.audit)
	tokens := token.NewEmbedTokenIssuer(cfg.Syndication.EmbedSecret)

	notificationUsecase := usecase.NewNotificationUsecase(queue, st.ledger, notifier, publishers...)
	engagementRecorder := usecase.NewEngagementRecorder(st.ledger, cfg.Engagement.Workers, cfg.Engagement.Buffer)
	distributionUsecase := usecase.NewDistributionUsecase(st.ledger, st.stories, st.audit, notificationUsecase, tokens,
		cfg.Syndication.BaseURL, hub.BroadcastStatus)
	accessUsecase := usecase.NewAccessUsecase(st.ledger, st.stories, tokens, engagementRecorder,
		cfg.Syndication.BaseURL, cfg.Syndication.AttributionMessage)
	expiryUsecase := usecase.NewExpiryUsecase(st.ledger, st.stories, st.audit, notificationUsecase, cfg.Expiry.BatchSize, hub.BroadcastStatus)

	router := server.InitiateRouter(
		server.RouterConfig{SecretKey: app.SecretKey, AllowedOrigins: cfg.Syndication.AllowedOrigins},
		httpHandler.NewDistributionHandler(distributionUsecase),
		httpHandler.NewSyndicationHandler(accessUsecase, cfg.Syndication.BaseURL),
		httpHandler.NewHealthHandler(st.db),
		hub.Serve,
	)

	g.Go(func() error {
		return notificationUsecase.Run(ctx, cfg.Webhook.Workers)
	})
	g.Go(func() error {
		return engagementRecorder.Run(ctx)
	})
	g.Go(func() error {
		return expiryUsecase.Run(ctx, cfg.Expiry.SweepInterval)
	})

	port := app.Port
	logger.GetLogger().WithFields(map[string]interface{}{"port": port, "tls": app.TLSEnabled}).Info("Starting application")
	httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		if app.TLSEnabled {
			cert := app.TLSCertFile
			key := app.TLSKeyFile
			if cert != "" && key != "" {
				logger.GetLogger().WithFields(map[string]interface{}{"cert": cert, "key": key}).Info("Serving HTTPS")
				if err := httpServer.ListenAndServeTLS(cert, key); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			}
			logger.GetLogger().Error("TLS enabled but cert or key path empty; falling back to HTTP")
		}
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)

	if err := g.Wait(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

// InitiateDatabase opens the configured ledger backend and ensures its schema.
// PostgreSQL keeps the audit trail through gorm on the same pool; SQL Server
// uses the raw SQL audit repository.
func InitiateDatabase(driver string) (*stores, error) {
	switch driver {
	case "mssql", "sqlserver":
		db, err := persistence.NewMSSQLDB()
		if err != nil {
			return nil, fmt.Errorf("connect mssql: %w", err)
		}
		if err := persistence.EnsureDistributionSchemaMSSQL(db); err != nil {
			return nil, fmt.Errorf("ensure distribution schema: %w", err)
		}
		if err := persistence.EnsureAuditSchemaMSSQL(db); err != nil {
			return nil, fmt.Errorf("ensure audit schema: %w", err)
		}
		return &stores{
			db:      db,
			ledger:  persistence.NewDistributionRepositoryMSSQL(db),
			stories: persistence.NewStoryRepositoryMSSQL(db),
			audit:   persistence.NewAuditRepositoryMSSQL(db),
		}, nil
	case "", "postgres", "postgresql":
		db, err := persistence.NewPostgreSQLDB()
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := persistence.EnsureDistributionSchema(db); err != nil {
			return nil, fmt.Errorf("ensure distribution schema: %w", err)
		}
		gormDB, err := persistence.NewGormDB(db)
		if err != nil {
			return nil, fmt.Errorf("open gorm: %w", err)
		}
		if err := persistence.MigrateAudit(gormDB); err != nil {
			return nil, fmt.Errorf("migrate audit: %w", err)
		}
		return &stores{
			db:      db,
			ledger:  persistence.NewDistributionRepository(db),
			stories: persistence.NewStoryRepository(db),
			audit:   persistence.NewAuditRepository(gormDB),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// initiateQueue prefers Redis so queued notices survive a restart, and falls
// back to an in-process queue when Redis is not reachable.
func initiateQueue(ctx context.Context, cfg configuration.Config) repository.IRevocationQueue {
	if cfg.RedisClient.Host != "" {
		redisClient, err := cache.NewCache(
			ctx,
			fmt.Sprintf("%s:%s", cfg.RedisClient.Host, cfg.RedisClient.Port),
			cfg.RedisClient.Username,
			cfg.RedisClient.Password,
		)
		if err == nil {
			logger.GetLogger().WithField("queue", cfg.Webhook.QueueName).Info("Redis revocation queue initialized")
			return cache.NewRedisRevocationQueue(redisClient, cfg.Webhook.QueueName)
		}
		logger.GetLogger().WithField("error", err).Warn("Redis not available - using in-process revocation queue")
	}
	return cache.NewMemoryRevocationQueue(1024)
}

// initiatePublishers wires the optional broker fan-out. Each broker is skipped
// when it is not configured or cannot be reached.
func initiatePublishers(ctx context.Context, cfg configuration.Config) ([]repository.IEventPublisher, func()) {
	var publishers []repository.IEventPublisher
	var closers []func()

	if cfg.Pubsub.ProjectID != "" {
		client, err := pubsub.NewPubSub(ctx, cfg.Pubsub.ProjectID)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Pub/Sub not available - continuing without Pub/Sub fan-out")
		} else {
			p := pubsub.NewEventPublisher(client, cfg.Pubsub.Topic)
			if err := p.EnsureTopic(ctx); err != nil {
				logger.GetLogger().WithField("error", err).Warn("Pub/Sub topic check failed")
			}
			publishers = append(publishers, p)
			closers = append(closers, func() {
				p.Stop()
				_ = client.Close()
			})
		}
	}

	if cfg.ServiceBus.Namespace != "" {
		client, err := servicebus.NewServiceBus(ctx, cfg.ServiceBus.Namespace)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - continuing without Service Bus fan-out")
		} else if p, err := servicebus.NewEventPublisher(client, cfg.ServiceBus.Queue); err != nil {
			logger.GetLogger().WithField("error", err).Warn("Azure Service Bus sender could not be created")
		} else {
			publishers = append(publishers, p)
			closers = append(closers, func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = p.Close(closeCtx)
				_ = client.Close(closeCtx)
			})
		}
	}

	return publishers, func() {
		for _, c := range closers {
			c()
		}
	}
}
