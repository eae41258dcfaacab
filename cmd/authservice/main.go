// Command authservice validates credentials, issues bearer tokens and reports
// dependency health for the parcel tracking app.
//
//	@title						Parcel Tracking Auth API
//	@version					1.0
//	@BasePath					/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
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

	amqp "github.com/rabbitmq/amqp091-go"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/parcelpoint/parcel-tracking/internal/api"
	"github.com/parcelpoint/parcel-tracking/internal/core/ports"
	"github.com/parcelpoint/parcel-tracking/internal/core/service"
	mongodb "github.com/parcelpoint/parcel-tracking/internal/infrastructure/db/mongo"
	"github.com/parcelpoint/parcel-tracking/internal/infrastructure/db/postgres"
	redisdb "github.com/parcelpoint/parcel-tracking/internal/infrastructure/db/redis"
	"github.com/parcelpoint/parcel-tracking/internal/infrastructure/queue"
	"github.com/parcelpoint/parcel-tracking/internal/infrastructure/tracing"
	"github.com/parcelpoint/parcel-tracking/internal/pkg/config"
	"github.com/parcelpoint/parcel-tracking/pkg/logger"
)

const serviceName = "authservice"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadService(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: serviceName,
	})
	log.Info().Str("env", cfg.Env).Str("port", cfg.Port).Msg("service starting")

	if cfg.Tracing.Enabled {
		tp, err := tracing.Init(ctx, tracing.Config{
			ServiceName: serviceName,
			Endpoint:    cfg.Tracing.Endpoint,
			Insecure:    cfg.Tracing.Insecure,
			SampleRate:  cfg.Tracing.SampleRate,
		})
		if err != nil {
			log.Warn().Err(err).Msg("tracing disabled")
		} else {
			defer shutdownWith(log, cfg, "tracer", tp.Shutdown)
		}
	}

	// Postgres holds the credentials; without it the service is useless.
	pool, err := postgres.Connect(ctx, postgres.Config{DSN: cfg.Postgres.DSN, MaxConns: cfg.Postgres.MaxConns})
	if err != nil {
		return err
	}
	defer pool.Close()

	credentials := postgres.NewCredentialRepository(pool)
	if err := credentials.EnsureSchema(ctx); err != nil {
		return err
	}

	// The remaining dependencies degrade: they show up as false on /v1/health.
	rdb := connectRedis(ctx, cfg, log)
	if rdb != nil {
		defer rdb.Close()
	}

	rabbit := connectRabbit(cfg, log)
	if rabbit != nil {
		defer rabbit.Close()
	}

	sinks := eventSinks(ctx, cfg, rabbit, log)
	for _, s := range sinks {
		if c, ok := s.(interface{ Close() error }); ok {
			defer c.Close()
		}
	}

	// Stops after HTTP shutdown and before the sinks close.
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	dispatcher := queue.NewDispatcher(cfg.EventWorkers, log, sinks...)
	dispatcher.Start(dispatchCtx)
	defer func() {
		stopDispatch()
		dispatcher.Wait()
		log.Info().Msg("auth event dispatcher drained")
	}()

	opts := []service.AuthOption{
		service.WithLogger(log),
		service.WithEventPublisher(dispatcher),
	}
	if rdb != nil {
		opts = append(opts, service.WithLoginThrottle(redisdb.NewLoginThrottle(rdb, cfg.Throttle.MaxFailures, cfg.Throttle.Window)))
	}
	authService := service.NewAuthService(credentials, cfg.JWTSecret, cfg.TokenTTL, opts...)

	healthService := service.NewHealthService(service.HealthProbes{
		Database: ports.ProbeFunc(postgres.Probe(pool)),
		Cache:    ports.ProbeFunc(redisdb.Probe(rdb)),
		RabbitMQ: ports.ProbeFunc(queue.RabbitProbe(rabbit)),
	}, cfg.HealthTimeout, log)

	e := api.NewRouter(api.Dependencies{
		Auth:      authService,
		Health:    healthService,
		JWTSecret: cfg.JWTSecret,
		Log:       log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownWith(log, cfg, "http server", e.Shutdown)
	log.Info().Msg("graceful shutdown complete")
	return nil
}

func connectRedis(ctx context.Context, cfg *config.ServiceConfig, log zerolog.Logger) *goredis.Client {
	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, login throttling disabled")
		return nil
	}
	return rdb
}

func connectRabbit(cfg *config.ServiceConfig, log zerolog.Logger) *amqp.Connection {
	conn, err := queue.DialRabbit(queue.RabbitConfig{URL: cfg.RabbitMQ.URL, Queue: cfg.RabbitMQ.Queue})
	if err != nil {
		log.Warn().Err(err).Msg("rabbitmq unavailable, auth events will not be published")
		return nil
	}
	return conn
}

func eventSinks(ctx context.Context, cfg *config.ServiceConfig, rabbit *amqp.Connection, log zerolog.Logger) []ports.AuthEventSink {
	var sinks []ports.AuthEventSink

	if rabbit != nil {
		pub, err := queue.NewRabbitPublisher(rabbit, cfg.RabbitMQ.Queue)
		if err != nil {
			log.Warn().Err(err).Msg("rabbitmq publisher unavailable")
		} else {
			sinks = append(sinks, pub)
		}
	}

	if cfg.Mongo.URI != "" {
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database, AppName: serviceName})
		if err != nil {
			log.Warn().Err(err).Msg("audit store unavailable")
			return sinks
		}
		audit := mongodb.NewAuditRepository(db)
		if err := audit.EnsureIndexes(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to ensure audit indexes")
		}
		sinks = append(sinks, auditSink{AuditRepository: audit, disconnect: client.Disconnect})
	}

	return sinks
}

// auditSink ties the Mongo client's lifetime to the audit sink.
type auditSink struct {
	*mongodb.AuditRepository
	disconnect func(context.Context) error
}

func (a auditSink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultCloseTimeout)
	defer cancel()
	return a.disconnect(ctx)
}

func shutdownWith(log zerolog.Logger, cfg *config.ServiceConfig, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Error().Err(err).Str("component", name).Msg("shutdown error")
		return
	}
	log.Info().Str("component", name).Msg("shutdown complete")
}

const defaultCloseTimeout = 5 * time.Second
