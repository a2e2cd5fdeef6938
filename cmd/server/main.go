package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"entregas/internal/auth"
	"entregas/internal/delivery/handler"
	deliverymetrics "entregas/internal/delivery/metrics"
	"entregas/internal/delivery/service"
	"entregas/internal/delivery/store"
	"entregas/internal/events"
	"entregas/internal/platform/config"
	"entregas/internal/platform/httpserver"
	"entregas/internal/platform/kafka/consumer"
	"entregas/internal/platform/kafka/producer"
	"entregas/internal/platform/logger"
	platformmw "entregas/internal/platform/middleware"
	platformredis "entregas/internal/platform/redis"
	"entregas/internal/users"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := deliverymetrics.New()

	deliveryStore, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		log.Error("store initialization failed", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis initialization failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var usersClient users.Client = users.NewHTTPClient(cfg.UsersServiceURL, cfg.UsersTimeout)
	usersClient = users.NewBreakerClient(usersClient, log)
	if redisClient != nil {
		usersClient = users.NewCachingClient(usersClient, redisClient.Client, log)
	}
	usersClient = users.NewLoggingClient(usersClient, log)

	kafkaProducer, err := producer.New(cfg.Kafka.Brokers, log)
	if err != nil {
		log.Error("kafka producer initialization failed", "error", err)
		os.Exit(1)
	}

	var publisher service.EventPublisher = events.NopPublisher{}
	if kafkaProducer != nil {
		publisher = events.NewPublisher(kafkaProducer, log, events.WithMetrics(metrics))
	} else {
		log.Warn("no kafka brokers configured, delivery events disabled")
	}

	deliveries := service.New(deliveryStore, usersClient, publisher, log,
		service.WithMetrics(metrics),
		service.WithFallbackCourier(cfg.FallbackCourierID, cfg.SystemCredential),
	)

	orderConsumer, err := consumer.New(
		cfg.Kafka.Brokers,
		cfg.Kafka.GroupID,
		[]string{events.TopicOrderCreated},
		events.NewOrderHandler(deliveries, log),
		log,
	)
	if err != nil {
		log.Error("kafka consumer initialization failed", "error", err)
		os.Exit(1)
	}

	verifier := auth.NewTokenVerifier(cfg.JWTSigningKey)

	router := chi.NewRouter()
	router.Use(platformmw.RequestMeta)
	router.Use(auth.Authenticate(verifier, log))
	handler.New(deliveries, log).Register(router)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting entregas service", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		err := orderConsumer.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		orderConsumer.Close()
		if kafkaProducer != nil {
			kafkaProducer.Close(shutdownCtx)
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// newStore selects the delivery store: Postgres when DATABASE_URL is set,
// in-memory otherwise.
func newStore(ctx context.Context, cfg config.Server) (store.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		return store.NewInMemory(), func() {}, nil
	}
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if _, err := db.ExecContext(ctx, store.Schema); err != nil {
		db.Close()
		return nil, nil, err
	}
	return store.NewPostgres(db), func() { db.Close() }, nil
}
