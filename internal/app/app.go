package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchparty/internal/auth"
	"github.com/sharetube/watchparty/internal/controller"
	"github.com/sharetube/watchparty/internal/metric"
	"github.com/sharetube/watchparty/internal/repository/connection/inmemory"
	roomRedis "github.com/sharetube/watchparty/internal/repository/room/redis"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/pkg/ctxlogger"
	"github.com/sharetube/watchparty/pkg/redisclient"
	"golang.org/x/sync/errgroup"
)

type AppConfig struct {
	Secret                 string        `json:"-"`
	Host                   string        `json:"host"`
	Port                   int           `json:"port"`
	LogLevel               string        `json:"log_level"`
	RedisHost              string        `json:"redis_host"`
	RedisPort              int           `json:"redis_port"`
	RedisPassword          string        `json:"-"`
	RedisDB                int           `json:"redis_db"`
	RoomTTL                time.Duration `json:"room_ttl"`
	DefaultMaxParticipants int           `json:"default_max_participants"`
	PingPeriod             time.Duration `json:"ping_period"`
	PongWait               time.Duration `json:"pong_wait"`
	ReadLimit              int64         `json:"read_limit"`
	ShutdownTimeout        time.Duration `json:"shutdown_timeout"`
}

func (cfg *AppConfig) Validate() error {
	return validation.ValidateStruct(cfg,
		validation.Field(&cfg.Secret, validation.Required),
		validation.Field(&cfg.Host, validation.Required, is.Host),
		validation.Field(&cfg.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&cfg.LogLevel, validation.Required, validation.In("DEBUG", "INFO", "WARN", "ERROR")),
		validation.Field(&cfg.RedisHost, validation.Required, is.Host),
		validation.Field(&cfg.RedisPort, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&cfg.RedisDB, validation.Min(0)),
		validation.Field(&cfg.RoomTTL, validation.Min(time.Duration(0))),
		validation.Field(&cfg.DefaultMaxParticipants, validation.Required, validation.Min(2), validation.Max(50)),
		validation.Field(&cfg.PingPeriod, validation.Required, validation.Min(time.Second)),
		validation.Field(&cfg.PongWait, validation.Required, validation.Min(cfg.PingPeriod+1)),
		validation.Field(&cfg.ReadLimit, validation.Required, validation.Min(int64(512))),
		validation.Field(&cfg.ShutdownTimeout, validation.Required),
	)
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	return slog.New(h), nil
}

// build wires the application on top of rc and returns the root handler
// together with the function closing all websocket sessions.
func build(rc *redis.Client, cfg *AppConfig, logger *slog.Logger) (http.Handler, func(context.Context) error) {
	roomRepo := roomRedis.NewRepo(rc, cfg.RoomTTL, logger)
	connectionRepo := inmemory.NewRepo(logger)
	roomService := room.NewService(roomRepo, cfg.DefaultMaxParticipants, logger)

	metrics := metric.New()
	metrics.RegisterActiveRooms(roomRepo.CountActiveRooms)
	metrics.RegisterWSConnections(connectionRepo.Len)

	ctrl := controller.NewController(
		roomService,
		connectionRepo,
		auth.NewVerifier(cfg.Secret),
		metrics,
		controller.Config{
			PingPeriod:        cfg.PingPeriod,
			PongWait:          cfg.PongWait,
			ReadLimit:         cfg.ReadLimit,
			DisconnectTimeout: cfg.ShutdownTimeout,
		},
		logger,
	)

	return ctrl.GetMux(), ctrl.Shutdown
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := newLogger(os.Stdout, cfg.LogLevel)
	if err != nil {
		return err
	}

	rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
		Host:        cfg.RedisHost,
		Port:        cfg.RedisPort,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	handler, closeSessions := build(rc, cfg, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(gCtx, "starting server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}

		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}

		// hijacked websocket connections are not tracked by http.Server
		if err := closeSessions(shutdownCtx); err != nil {
			return fmt.Errorf("failed to close websocket sessions: %w", err)
		}

		return nil
	})

	return g.Wait()
}
