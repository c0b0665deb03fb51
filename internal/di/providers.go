package di

import (
	"context"
	"fmt"

	"TradeDesk/internal/domain/repository"
	"TradeDesk/internal/handler/api"
	"TradeDesk/internal/middleware"
	internalrepo "TradeDesk/internal/repository"
	"TradeDesk/internal/service/backend"
	"TradeDesk/internal/service/notify"
	"TradeDesk/internal/service/ratelimit"
	"TradeDesk/internal/usecase"
	"TradeDesk/pkg/cache"
	"TradeDesk/pkg/config"
	xhttp "TradeDesk/pkg/http"
	pkgkafka "TradeDesk/pkg/kafka"
	applogger "TradeDesk/pkg/logger"
	"TradeDesk/pkg/metrics"
	"TradeDesk/pkg/server"
)

// ProvideLogger creates the application logger from config. With
// log.digest enabled, warn and error entries are also folded into periodic
// digests shipped to Kafka.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, func(), error) {
	lc := &applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	l, err := applogger.New(lc)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	l = l.With(applogger.String("env", cfg.Environment))
	if !cfg.Log.Digest.Enabled {
		return l, func() {}, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Audit.Brokers),
		pkgkafka.WithCompression(cfg.Audit.Compression),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("digest producer: %w", err)
	}
	// failures go to a logger outside the digest so they cannot feed it
	fallback, _ := applogger.New(lc)
	collector := applogger.NewLogCollector(applogger.CollectionConfig{
		Interval:  cfg.Log.Digest.Interval,
		Threshold: cfg.Log.Digest.Threshold,
		Topic:     cfg.Log.Digest.Topic,
		Publisher: producer,
		OnError: func(err error) {
			fallback.Warn("log digest dropped", applogger.Error(err))
		},
	})
	l.Collect(collector)
	return l, func() {
		l.Collect(nil)
		collector.Close()
		_ = producer.Close()
	}, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache selects the state backend: in-process memory, redis, or
// memory layered over redis.
func ProvideCache(cfg *config.Config, log *applogger.Logger) (cache.Service, func(), error) {
	st := cfg.State
	if st.Backend == "memory" {
		c := cache.NewMemoryCache()
		return c, func() { _ = c.Close() }, nil
	}

	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(st.Redis.Host),
		cache.WithRedisPort(st.Redis.Port),
		cache.WithRedisPassword(st.Redis.Password),
		cache.WithRedisDB(st.Redis.DB),
		cache.WithRedisPrefix(st.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis state store: %w", err)
	}
	log.Info("state store connected",
		applogger.String("backend", st.Backend),
		applogger.String("addr", fmt.Sprintf("%s:%d", st.Redis.Host, st.Redis.Port)),
	)

	var svc cache.Service = rc
	if st.Backend == "layered" {
		svc = cache.NewLayeredCache(rc)
	}
	return svc, func() {
		if err := svc.Close(); err != nil {
			log.Warn("state store close error", applogger.Error(err))
		}
	}, nil
}

// ProvideStateStore persists session state in the selected cache.
func ProvideStateStore(c cache.Service) repository.StateStore {
	return internalrepo.NewCacheStateStore(c)
}

// ProvideBackend creates the trading backend client.
func ProvideBackend(cfg *config.Config, log *applogger.Logger, m repository.Metrics) repository.TradingBackend {
	return backend.New(backend.Config{
		BaseURL:           cfg.Backend.BaseURL,
		Timeout:           cfg.Backend.Timeout,
		ManualTriggerPath: cfg.Backend.ManualTriggerPath,
	}, log.With(applogger.String("component", "backend")), m)
}

// ProvideNotifyHub creates the notification hub.
func ProvideNotifyHub(cfg *config.Config, log *applogger.Logger, m repository.Metrics) *notify.Hub {
	return notify.NewHub(cfg.Notify.FeedSize, log, m)
}

// ProvideChangePublisher publishes ticker changes to Kafka when auditing is
// enabled. Kafka deliveries go through an audit pipeline that retries
// rejected changes in the background.
func ProvideChangePublisher(cfg *config.Config, m repository.Metrics, log *applogger.Logger) (repository.ChangePublisher, func(), error) {
	if !cfg.Audit.Enabled {
		return internalrepo.NoopChangePublisher{}, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Audit.Brokers),
		pkgkafka.WithCompression(cfg.Audit.Compression),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	pipeline := middleware.NewAuditPipeline(
		internalrepo.NewKafkaChangePublisher(producer, cfg.Audit.Topic),
		m,
		log.With(applogger.String("component", "audit")),
		middleware.WithBufferSize(cfg.Audit.BufferSize),
	)
	ctx, cancel := context.WithCancel(context.Background())
	pipeline.Start(ctx)
	return pipeline, func() {
		cancel()
		_ = pipeline.Close()
	}, nil
}

// ProvideLoginLimiter throttles login attempts per client address.
func ProvideLoginLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.LoginCapacity, cfg.RateLimit.LoginRefill)
}

func ProvideConnectionTracker(state repository.StateStore, log *applogger.Logger) *usecase.ConnectionTracker {
	return usecase.NewConnectionTracker(state, log)
}

func ProvideSessionStore(
	b repository.TradingBackend,
	state repository.StateStore,
	conns *usecase.ConnectionTracker,
	n repository.Notifier,
	log *applogger.Logger,
) *usecase.SessionStore {
	return usecase.NewSessionStore(b, state, conns, n, log.With(applogger.String("component", "session")))
}

// ProvideTickerSync creates the parameter synchronisation service.
func ProvideTickerSync(
	cfg *config.Config,
	b repository.TradingBackend,
	sessions *usecase.SessionStore,
	params *usecase.ParamStore,
	n repository.Notifier,
	pub repository.ChangePublisher,
	m repository.Metrics,
	log *applogger.Logger,
) *usecase.TickerSync {
	return usecase.NewTickerSync(b, sessions, params, n, pub, m,
		log.With(applogger.String("component", "sync")),
		usecase.SyncOptions{StaleCheck: cfg.Sync.StaleCheck},
	)
}

func ProvideBrokerService(
	b repository.TradingBackend,
	sessions *usecase.SessionStore,
	conns *usecase.ConnectionTracker,
	state repository.StateStore,
	n repository.Notifier,
	log *applogger.Logger,
) *usecase.BrokerService {
	return usecase.NewBrokerService(b, sessions, conns, state, n, log)
}

// ProvideRouter assembles the dashboard API handlers.
func ProvideRouter(
	cfg *config.Config,
	log *applogger.Logger,
	sessions *usecase.SessionStore,
	conns *usecase.ConnectionTracker,
	params *usecase.ParamStore,
	sync *usecase.TickerSync,
	editor *usecase.TickerEditor,
	trading *usecase.TradingControl,
	brokers *usecase.BrokerService,
	account *usecase.AccountService,
	hub *notify.Hub,
	limiter *ratelimit.Limiter,
) *api.Router {
	return api.NewRouter(
		sessions,
		api.NewSessionHandler(sessions, conns, params, editor, limiter, log),
		api.NewTickersHandler(sync, editor, trading, log),
		api.NewBrokersHandler(brokers, log),
		api.NewAccountHandler(account, sessions, log),
		api.NewNotificationsHandler(hub, cfg.Server.AllowOrigins, log),
	)
}

// ProvideHTTPServer creates the echo server for the dashboard API.
func ProvideHTTPServer(cfg *config.Config, router *api.Router, log *applogger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS, cfg.Server.AllowOrigins...),
		xhttp.WithLogger(log.With(applogger.String("component", "http"))),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, cfg.Metrics.SlowThreshold))
	} else {
		opts = append(opts, xhttp.WithMetrics("", 0))
	}
	return xhttp.NewServer(router, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	sessions *usecase.SessionStore,
) *server.App {
	return server.New(cfg, log, httpServer, sessions)
}
