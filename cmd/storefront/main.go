package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/fjod/go_travel/internal/cache"
	"github.com/fjod/go_travel/internal/cart"
	"github.com/fjod/go_travel/internal/checkout"
	"github.com/fjod/go_travel/internal/commerce"
	h "github.com/fjod/go_travel/internal/http"
	"github.com/fjod/go_travel/internal/metrics"
	"github.com/fjod/go_travel/internal/publisher"
	"github.com/fjod/go_travel/internal/repository"
	"github.com/fjod/go_travel/internal/service"
	"github.com/fjod/go_travel/pkg/circuitbreaker"
	"github.com/fjod/go_travel/pkg/logger"
)

type Config struct {
	HTTPPort           string
	CommerceBaseURL    string
	CommerceAPIKey     string
	RemoteTimeout      time.Duration
	RemoteRPS          float64
	RedisAddr          string
	RedisPassword      string
	SessionTTL         time.Duration
	DraftTTL           time.Duration
	ReferenceTTL       time.Duration
	CheckoutIdleTTL    time.Duration
	BackPolicy         string
	PromoValidation    string
	DBHost             string
	DBPort             string
	DBUser             string
	DBPassword         string
	DBName             string
	MigrationsPath     string
	JournalSweepSpec   string
	JournalMaxAge      time.Duration
	KafkaBrokers       string
	KafkaTopic         string
	RateLimitRPS       float64
	RateLimitBurst     int
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		CommerceBaseURL:    getEnv("COMMERCE_BASE_URL", "http://localhost:9000/api/v1"),
		CommerceAPIKey:     getEnv("COMMERCE_API_KEY", ""),
		RemoteTimeout:      getDuration("REMOTE_TIMEOUT", 15*time.Second),
		RemoteRPS:          getFloat("REMOTE_RPS", 20),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		SessionTTL:         getDuration("SESSION_TTL", 24*time.Hour),
		DraftTTL:           getDuration("DRAFT_TTL", time.Hour),
		ReferenceTTL:       getDuration("REFERENCE_TTL", 5*time.Minute),
		CheckoutIdleTTL:    getDuration("CHECKOUT_IDLE_TTL", 30*time.Minute),
		BackPolicy:         getEnv("BACK_POLICY", "recreate"),
		PromoValidation:    getEnv("PROMO_VALIDATION", "flat"),
		DBHost:             getEnv("DB_HOST", ""),
		DBPort:             getEnv("DB_PORT", "5432"),
		DBUser:             getEnv("DB_USER", "postgres"),
		DBPassword:         getEnv("DB_PASSWORD", "postgres"),
		DBName:             getEnv("DB_NAME", "storefront"),
		MigrationsPath:     getEnv("MIGRATIONS_PATH", "./internal/repository/migrations"),
		JournalSweepSpec:   getEnv("JOURNAL_SWEEP_SPEC", "@every 10m"),
		JournalMaxAge:      getDuration("JOURNAL_MAX_AGE", 24*time.Hour),
		KafkaBrokers:       getEnv("KAFKA_BROKERS", ""),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "checkout-events"),
		RateLimitRPS:       getFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:     getInt("RATE_LIMIT_BURST", 20),
		RequestTimeout:     30 * time.Second,
		ShutdownTimeout:    10 * time.Second,
		MaxRequestBodySize: 1 << 20, // 1MB
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func main() {
	log := logger.New("storefront")
	cfg := loadConfig()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	var wg sync.WaitGroup

	// W3C trace context in and out, so remote calls join the visitor's trace
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	m := metrics.New("storefront")

	// Redis holds sessions, drafts and cached reference data
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.WithError(err).Fatal("failed to connect to redis")
	}

	// Remote commerce API
	breakerCfg := commerce.BreakerConfig()
	breakerCfg.OnStateChange = func(name, from, to string) {
		log.With(logrus.Fields{"breaker": name, "from": from, "to": to}).Warn("circuit breaker state changed")
		m.BreakerStateChanged(name, from, to)
	}
	client, err := commerce.New(commerce.Config{
		BaseURL:           cfg.CommerceBaseURL,
		APIKey:            cfg.CommerceAPIKey,
		Timeout:           cfg.RemoteTimeout,
		RequestsPerSecond: cfg.RemoteRPS,
		Burst:             int(cfg.RemoteRPS),
		Breaker:           circuitbreaker.New("commerce", breakerCfg),
	})
	if err != nil {
		log.WithError(err).Fatal("invalid commerce api config")
	}

	catalog := service.NewReferenceService(client, cache.NewReferenceCache(rdb, cfg.ReferenceTTL), log)

	var aggOpts []cart.Option
	if cfg.PromoValidation == "remote" {
		aggOpts = append(aggOpts, cart.WithDiscounter(cart.NewRemotePromoValidator(catalog)))
	}
	aggregator := cart.NewAggregator(aggOpts...)

	policy, err := checkout.ParseBackPolicy(cfg.BackPolicy)
	if err != nil {
		log.WithError(err).Fatal("invalid BACK_POLICY")
	}

	observers := checkout.Observers{checkout.LogObserver(log), m}

	// Optional checkout journal
	var sweeper *repository.Sweeper
	if cfg.DBHost != "" {
		port, err := strconv.Atoi(cfg.DBPort)
		if err != nil {
			log.WithError(err).Fatal("invalid DB_PORT")
		}
		creds := &repository.Credentials{
			Host:              cfg.DBHost,
			Port:              port,
			User:              cfg.DBUser,
			Password:          cfg.DBPassword,
			DBName:            cfg.DBName,
			MigrationsDirPath: cfg.MigrationsPath,
		}

		repo, err := repository.NewRepository(creds)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to database")
		}
		defer repo.Close()

		if err := repo.RunMigrations(creds); err != nil {
			log.WithError(err).Fatal("failed to run migrations")
		}
		log.Info("database migrations completed")

		observers = append(observers, repository.NewJournal(repo, log, 5*time.Second))

		sweeper, err = repository.NewSweeper(repo, cfg.JournalSweepSpec, cfg.JournalMaxAge, log)
		if err != nil {
			log.WithError(err).Fatal("invalid JOURNAL_SWEEP_SPEC")
		}
		sweeper.Start()
	}

	// Optional event stream
	var pub *publisher.Publisher
	if brokers := publisher.ParseBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		pub = publisher.NewPublisher(log, cfg.KafkaTopic, brokers...)
		observers = append(observers, pub)
		wg.Add(1)
		go func() {
			defer wg.Done()
			pub.Run(ctx)
		}()
	}

	checkouts := checkout.NewRegistry(cfg.CheckoutIdleTTL, log)
	checkouts.Start(ctx, time.Minute)

	limiter := h.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	wg.Add(1)
	go func() {
		defer wg.Done()
		limiter.Run(ctx, time.Minute)
	}()

	router := h.NewRouter(h.Deps{
		Remote:         func(token string) h.Remote { return client.WithToken(token) },
		Sessions:       cache.NewSessionCache(rdb),
		Drafts:         cache.NewDraftCache(rdb, cfg.DraftTTL),
		Catalog:        catalog,
		Aggregator:     aggregator,
		Checkouts:      checkouts,
		Observer:       observers,
		BackPolicy:     policy,
		Metrics:        m,
		Limiter:        limiter,
		Log:            log,
		RequestTimeout: cfg.RequestTimeout,
		RemoteTimeout:  cfg.RemoteTimeout,
		SessionTTL:     cfg.SessionTTL,
		MaxBodySize:    cfg.MaxRequestBodySize,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.HTTPPort).Info("storefront starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}

	checkouts.Close()
	if sweeper != nil {
		sweeper.Stop()
	}
	stop()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warn("background workers didn't stop in time")
	}

	if pub != nil {
		if err := pub.Close(); err != nil {
			log.WithError(err).Error("close publisher")
		}
	}
	log.Info("server exited")
}
