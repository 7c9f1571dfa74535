package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"depositrent/internal/app/commands"
	bookingapp "depositrent/internal/app/handlers/booking"
	depositapp "depositrent/internal/app/handlers/deposits"
	"depositrent/internal/app/handlers/notifications"
	reportapp "depositrent/internal/app/handlers/reports"
	"depositrent/internal/app/middleware"
	appoutbox "depositrent/internal/app/outbox"
	"depositrent/internal/app/policies"
	"depositrent/internal/app/queries"
	authsvc "depositrent/internal/app/services/auth"
	"depositrent/internal/app/uow"
	"depositrent/internal/clock"
	domainauth "depositrent/internal/domain/auth"
	domainpricing "depositrent/internal/domain/pricing"
	"depositrent/internal/infra/broker/kafka"
	"depositrent/internal/infra/config"
	mongostore "depositrent/internal/infra/db/mongo"
	ginserver "depositrent/internal/infra/http/gin"
	"depositrent/internal/infra/inbox"
	"depositrent/internal/infra/lock/redislock"
	"depositrent/internal/infra/notify"
	"depositrent/internal/infra/obs"
	infraoutbox "depositrent/internal/infra/outbox"
	"depositrent/internal/infra/security"
	"depositrent/internal/infra/storage/memory"
	"depositrent/internal/infra/storage/s3"
	"depositrent/internal/infra/validation"
)

const (
	eventSource        = "app://depositrent"
	notificationsGroup = "depositrent-notifications"
)

type application struct {
	handlers ginserver.Handlers
	commands commands.Bus
	queries  queries.Bus
	worker   *infraoutbox.Worker
	consumer *kafka.Consumer
	topics   []string
	metrics  *obs.Metrics
	ready    func() error
	closers  []func(context.Context) error
}

func (a *application) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i](ctx)
	}
}

// relayOutbox is an outbox that handlers write to and the relay worker drains.
type relayOutbox interface {
	appoutbox.Outbox
	infraoutbox.Source
	Wakeup() <-chan struct{}
}

// storage is the persistence chosen by STORAGE_MODE.
type storage struct {
	factory     uow.UoWFactory
	outbox      relayOutbox
	idempotency middleware.IdempotencyStore
	sessions    domainauth.SessionStore
	inbox       notifications.Inbox
	pings       []obs.Pinger
	closers     []func(context.Context) error
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{}
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, store.closers...)
	pings := append([]obs.Pinger(nil), store.pings...)

	locker, lockPing, err := buildLocker(cfg, logger)
	if err != nil {
		app.close(ctx)
		return nil, err
	}
	if lockPing != nil {
		pings = append(pings, lockPing)
	}

	uploader, uploadPing, err := buildUploader(cfg, logger)
	if err != nil {
		app.close(ctx)
		return nil, err
	}
	if uploadPing != nil {
		pings = append(pings, uploadPing)
	}

	producer, err := buildProducer(cfg, logger)
	if err != nil {
		app.close(ctx)
		return nil, err
	}
	if closer, ok := producer.(*kafka.Producer); ok {
		app.closers = append(app.closers, func(context.Context) error { return closer.Close() })
	}

	if cfg.MetricsEnabled {
		app.metrics = obs.NewMetrics()
	}

	clk := clock.NewSystem()
	encoder := appoutbox.JSONEventEncoder{}
	pricing := policies.CalculatorPricing{Calculator: domainpricing.NewCalculator()}

	// With a broker, decisions are announced from the relayed events instead
	// of inline.
	var notifier policies.Notifier = notify.LogNotifier{Logger: logger}
	inlineNotifier := notifier
	if len(cfg.KafkaBrokers) > 0 {
		events := &notifications.BookingEvents{Inbox: store.inbox, Notifier: notifier, Logger: logger}
		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, notificationsGroup, kafka.NewConsumerConfig(notificationsGroup), bookingEventsHandler(events, logger), logger)
		if err != nil {
			app.close(ctx)
			return nil, err
		}
		app.consumer = consumer
		app.topics = []string{cfg.KafkaTopicPrefix + "booking.events.v1"}
		app.closers = append(app.closers, func(context.Context) error { return consumer.Close() })
		inlineNotifier = nil
	}

	commandRegistry := commands.NewRegistry()
	depositapp.RegisterCommands(commandRegistry, &depositapp.CommandHandlers{
		Clock:   clk,
		Outbox:  store.outbox,
		Encoder: encoder,
		Logger:  logger,
	})
	bookingapp.RegisterCommands(commandRegistry,
		&bookingapp.RequestBookingHandler{
			Clock:   clk,
			Pricing: pricing,
			Outbox:  store.outbox,
			Encoder: encoder,
			Logger:  logger,
		},
		&bookingapp.DecisionHandlers{
			Clock:    clk,
			Outbox:   store.outbox,
			Encoder:  encoder,
			Notifier: inlineNotifier,
			Logger:   logger,
		},
	)
	reportapp.Register(commandRegistry, &reportapp.GenerateBookingReportHandler{
		Clock:    clk,
		Uploader: uploader,
		Prefix:   "reports/",
		Logger:   logger,
	})

	queryRegistry := queries.NewRegistry()
	depositapp.RegisterQueries(queryRegistry, &depositapp.QueryHandlers{
		UoWFactory: store.factory,
		Pricing:    pricing,
		Logger:     logger,
	})
	bookingapp.RegisterQueries(queryRegistry, &bookingapp.QueryHandlers{
		UoWFactory: store.factory,
		Logger:     logger,
	})

	validator := validation.New()
	authorizer := policies.RoleAuthorizer{}

	var commandMetrics middleware.CommandMiddleware
	var queryMetrics middleware.QueryMiddleware
	if app.metrics != nil {
		commandMetrics = middleware.Metrics(app.metrics)
		queryMetrics = middleware.QueryMetrics(app.metrics)
	}

	app.commands = middleware.ChainCommands(
		commandRegistry,
		middleware.Logging(logger),
		commandMetrics,
		middleware.Validation(validator),
		middleware.Authorization(authorizer),
		middleware.DepositLock(locker),
		middleware.Idempotency(store.idempotency, nil),
		middleware.OutboxFlush(store.outbox, logger),
		middleware.Transaction(store.factory, nil),
	)
	app.queries = middleware.ChainQueries(
		queryRegistry,
		middleware.QueryLogging(logger),
		queryMetrics,
		middleware.QueryValidation(validator),
		middleware.QueryAuthorization(authorizer),
	)

	auth := &authsvc.Service{
		UoWFactory: store.factory,
		Sessions:   store.sessions,
		Passwords:  security.BcryptHasher{},
		Tokens:     security.RandomTokenGenerator{},
		Locker:     locker,
		Clock:      clk,
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}

	app.worker = &infraoutbox.Worker{
		Source:      store.outbox,
		Producer:    producer,
		Wakeup:      store.outbox.Wakeup(),
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		EventSource: eventSource,
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
	}
	if app.metrics != nil {
		app.worker.OnPublish = app.metrics.ObservePublish
	}

	app.handlers = ginserver.Handlers{
		Auth:           ginserver.AuthHandler{Service: auth, Logger: logger},
		Deposits:       ginserver.DepositHandler{Commands: app.commands, Queries: app.queries, Logger: logger},
		Bookings:       ginserver.BookingHandler{Commands: app.commands, Queries: app.queries, Logger: logger},
		Reports:        ginserver.ReportHandler{Commands: app.commands, Logger: logger},
		AuthMiddleware: ginserver.AuthMiddleware{Service: auth, Logger: logger}.Handle,
	}
	if app.metrics != nil {
		app.handlers.Metrics = app.metrics.Handler()
	}
	app.ready = obs.ReadyCheck(2*time.Second, pings...)
	return app, nil
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (*storage, error) {
	switch cfg.StorageMode {
	case config.StorageMongo:
		client, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		closeClient := func(ctx context.Context) error { return client.Close(ctx) }
		if err := client.Ping(ctx); err != nil {
			_ = closeClient(ctx)
			return nil, err
		}
		if err := client.EnsureIndexes(ctx); err != nil {
			_ = closeClient(ctx)
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		box, err := infraoutbox.NewStore(ctx, client.DB)
		if err != nil {
			_ = closeClient(ctx)
			return nil, fmt.Errorf("outbox store: %w", err)
		}
		idem, err := mongostore.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL)
		if err != nil {
			_ = closeClient(ctx)
			return nil, fmt.Errorf("idempotency store: %w", err)
		}
		events, err := inbox.NewStore(ctx, client.DB, notificationsGroup, cfg.InboxTTL)
		if err != nil {
			_ = closeClient(ctx)
			return nil, err
		}
		logger.Info("storage ready", "mode", cfg.StorageMode, "database", cfg.MongoDB)
		return &storage{
			factory:     mongostore.Factory{DB: client.DB},
			outbox:      box,
			idempotency: idem,
			sessions:    mongostore.NewSessionStore(client.DB),
			inbox:       events,
			pings:       []obs.Pinger{client.Ping},
			closers:     []func(context.Context) error{closeClient},
		}, nil
	case config.StorageMemory, "":
		box := memory.NewOutbox()
		logger.Info("storage ready", "mode", config.StorageMemory)
		return &storage{
			factory:     memory.Factory{Store: memory.NewStore(), Outbox: box},
			outbox:      box,
			idempotency: memory.NewIdempotencyStore(),
			sessions:    memory.NewSessionStore(),
			inbox:       memory.NewInbox(),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported storage mode %q", cfg.StorageMode)
	}
}

// buildLocker returns the redis locker when REDIS_ADDR is set. A single
// process falls back to in-memory locks.
func buildLocker(cfg config.Config, logger *slog.Logger) (middleware.Locker, obs.Pinger, error) {
	if cfg.RedisAddr == "" {
		return memory.NewKeyedLocker(), nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	locker := redislock.New(client, redislock.Options{
		TTL:    cfg.LockTTL,
		Wait:   cfg.LockWait,
		Logger: logger,
	})
	ping := func(ctx context.Context) error { return client.Ping(ctx).Err() }
	return locker, ping, nil
}

func buildUploader(cfg config.Config, logger *slog.Logger) (reportapp.Uploader, obs.Pinger, error) {
	if cfg.S3Endpoint == "" {
		return memory.NewReportBucket(), nil, nil
	}
	store, err := s3.NewReportStore(s3.Options{
		Endpoint:  cfg.S3Endpoint,
		UseSSL:    cfg.S3UseSSL,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		Logger:    logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return store, store.Ping, nil
}

func buildProducer(cfg config.Config, logger *slog.Logger) (infraoutbox.Producer, error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("no kafka brokers configured, events are logged only")
		return infraoutbox.LogProducer{Logger: logger}, nil
	}
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, kafka.NewConfig("depositrent"))
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// bookingEventsHandler unwraps the CloudEvents envelope. Payloads that are not
// envelopes are skipped so they do not block the partition.
func bookingEventsHandler(events *notifications.BookingEvents, logger *slog.Logger) kafka.HandlerFunc {
	return func(ctx context.Context, msg kafka.Message) error {
		ev, err := infraoutbox.ParseCloudEvent(msg.Value)
		if err != nil {
			logger.WarnContext(ctx, "skipping unreadable event", "topic", msg.Topic, "offset", msg.Offset, "error", err)
			return nil
		}
		return events.Handle(ctx, notifications.Event{ID: ev.ID, Type: ev.Type, Data: ev.Data})
	}
}
