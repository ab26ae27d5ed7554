package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"brandhub/domain/repository"
	"brandhub/infrastructure/bugsink"
	"brandhub/infrastructure/cache"
	"brandhub/infrastructure/clients/platform"
	"brandhub/infrastructure/configuration"
	"brandhub/infrastructure/logger"
	"brandhub/infrastructure/persistence"
	"brandhub/infrastructure/pubsub"
	"brandhub/infrastructure/realtime"
	"brandhub/infrastructure/servicebus"
	"brandhub/infrastructure/vault"
	httpHandler "brandhub/interfaces/http"
	"brandhub/server"
	"brandhub/usecase"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"golang.org/x/sync/errgroup"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		bugsink.CapturePanic(err, map[string]string{"scope": "main"})
		bugsink.Flush(2 * time.Second)
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

	app := configuration.C.App
	if err := bugsink.Init(configuration.C.Sentry.DSN, configuration.C.Sentry.Environment); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Error reporting disabled")
	}
	defer bugsink.Flush(2 * time.Second)

	repos, err := InitiateDatabase()
	if err != nil {
		logger.GetLogger().WithField("error", err).Fatal("Database initialization failed")
	}

	tokenVault := vault.Default()
	if !tokenVault.HasKey() {
		logger.GetLogger().Warn("Token encryption key not set; stored credentials cannot be read or written")
	}

	factory := platform.NewFactory(platform.SettingsFromConfig(configuration.C))
	hub := realtime.NewPublishHub()
	notifiers := []repository.IPublishNotifier{hub}

	var events httpHandler.IPublishEventReader
	if configuration.C.Events.Audit {
		if mongoDb := initiateMongo(ctx); mongoDb != nil {
			audit := persistence.NewPublishAuditRepository(mongoDb, configuration.C.Database.Mongo.Name)
			notifiers = append(notifiers, audit)
			events = audit
			defer func() { _ = mongoDb.Disconnect(context.Background()) }()
		}
	}
	if broker := initiateBroker(ctx); broker != nil {
		notifiers = append(notifiers, broker)
		if closer, ok := broker.(interface{ Close() }); ok {
			defer closer.Close()
		}
	}

	publishUsecase := usecase.NewPublishUsecase(
		repos.Content,
		repos.Accounts,
		repos.Results,
		factory,
		tokenVault,
		usecase.PublisherConfig{
			MaxConcurrentPlatforms: configuration.C.Publisher.MaxConcurrentPlatforms,
			AttemptTimeout:         configuration.C.Publisher.AttemptTimeout(),
		},
	).WithNotifiers(notifiers...)

	redisClient, err := cache.NewCache(
		ctx,
		fmt.Sprintf("%s:%s", configuration.C.RedisClient.Host, configuration.C.RedisClient.Port),
		configuration.C.RedisClient.Username,
		configuration.C.RedisClient.Password,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not available - publishing without a content lock")
	} else {
		publishUsecase.WithLock(cache.NewPublishLock(redisClient, configuration.C.Publisher.LockTTL()))
		defer func() { _ = redisClient.Close() }()
	}

	scheduledUsecase := usecase.NewScheduledPublishUsecase(repos.Content, publishUsecase, usecase.SchedulerConfig{
		BatchSize:   configuration.C.Scheduler.BatchSize,
		BatchBudget: configuration.C.Scheduler.BatchBudget(),
	})
	accountUsecase := usecase.NewSocialAccountUsecase(repos.Accounts, factory, tokenVault)

	router := server.InitiateRouter(
		app.SecretKey,
		app.AllowedOrigins,
		httpHandler.NewHealthHandler(),
		httpHandler.NewPublishHandler(publishUsecase, scheduledUsecase, events),
		httpHandler.NewSocialAccountHandler(accountUsecase),
		hub.Serve,
	)

	if configuration.C.Scheduler.Enabled {
		g.Go(func() error {
			return runScheduler(ctx, scheduledUsecase, configuration.C.Scheduler.Interval())
		})
	} else {
		logger.GetLogger().Info("Scheduler disabled; scheduled content is published through POST /api/publish/scheduled")
	}

	port := app.Port
	logger.GetLogger().WithFields(map[string]interface{}{"port": port, "tls": app.TLSEnabled}).Info("Starting application")
	g.Go(func() error {
		httpServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		if app.TLSEnabled {
			cert := app.TLSCertFile
			key := app.TLSKeyFile
			if cert == "" || key == "" {
				logger.GetLogger().Error("TLS enabled but cert or key path empty; falling back to HTTP")
			} else {
				logger.GetLogger().WithFields(map[string]interface{}{"cert": cert, "key": key}).Info("Serving HTTPS")
				if err := httpServer.ListenAndServeTLS(cert, key); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			}
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
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

// InitiateDatabase opens the relational store selected by Database.Vendor.
func InitiateDatabase() (persistence.Repositories, error) {
	switch configuration.C.Database.Vendor {
	case "mysql":
		db, err := persistence.NewRepositories()
		if err != nil {
			return persistence.Repositories{}, fmt.Errorf("connect mysql: %w", err)
		}
		if err := persistence.MigrateGorm(db); err != nil {
			return persistence.Repositories{}, fmt.Errorf("migrate mysql: %w", err)
		}
		logger.GetLogger().Info("MySQL connected")
		return persistence.NewGormRepositories(db), nil
	case "postgres":
		db, err := persistence.NewPostgreSQLDB()
		if err != nil {
			return persistence.Repositories{}, fmt.Errorf("connect postgres: %w", err)
		}
		if err := persistence.EnsureSchema(db); err != nil {
			return persistence.Repositories{}, fmt.Errorf("ensure schema: %w", err)
		}
		logger.GetLogger().Info("PostgreSQL connected")
		return persistence.NewSQLRepositories(db), nil
	}
	return persistence.Repositories{}, fmt.Errorf("unsupported database vendor %q", configuration.C.Database.Vendor)
}

func initiateMongo(ctx context.Context) *mongo.Client {
	mongoDb, err := persistence.NewMongoDb(
		configuration.C.Database.Mongo.Host,
		configuration.C.Database.Mongo.Port,
		configuration.C.Database.Mongo.User,
		configuration.C.Database.Mongo.Password,
		configuration.C.Database.Mongo.Name,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB not available - continuing without publish audit log")
		return nil
	}
	if err := mongoDb.Ping(ctx, nil); err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB ping failed - continuing without publish audit log")
		_ = mongoDb.Disconnect(context.Background())
		return nil
	}
	logger.GetLogger().Info("MongoDB connected successfully")
	return mongoDb
}

func initiateBroker(ctx context.Context) repository.IPublishNotifier {
	switch configuration.C.Events.Broker {
	case "pubsub":
		client, err := pubsub.NewPubSub(ctx, configuration.C.Pubsub.ProjectID)
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while instantiate PubSub")
			return nil
		}
		return pubsub.NewPublishNotifier(client, configuration.C.Pubsub.TopicID)
	case "servicebus":
		client, err := servicebus.NewServiceBus(ctx, configuration.C.ServiceBus.Namespace)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - publish events stay local")
			return nil
		}
		return servicebus.NewPublishNotifier(client, configuration.C.ServiceBus.QueueName)
	case "":
		return nil
	}
	logger.GetLogger().WithField("broker", configuration.C.Events.Broker).Warn("Unknown events broker; publish events stay local")
	return nil
}

// runScheduler publishes due content of every brand on each tick until ctx ends.
func runScheduler(ctx context.Context, uc usecase.IScheduledPublishUsecase, interval time.Duration) error {
	logger.GetLogger().WithField("interval", interval.String()).Info("Scheduler started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := uc.PublishAllScheduled(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.GetLogger().WithField("error", err).Error("Scheduled run failed")
				continue
			}
			if n > 0 {
				logger.GetLogger().WithField("published", n).Info("Scheduled run published content")
			}
		}
	}
}
