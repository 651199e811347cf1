package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sharetube/watchparty/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
	usage        string
}

var (
	secret = configVar[string]{
		envKey:       "SERVER_SECRET",
		flagKey:      "secret",
		defaultValue: "",
		usage:        "Secret used to verify auth tokens",
	}
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
		usage:        "Server host",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 80,
		usage:        "Server port",
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
		usage:        "Logging level",
	}
	roomTTL = configVar[time.Duration]{
		envKey:       "SERVER_ROOM_TTL",
		flagKey:      "room-ttl",
		defaultValue: 24 * time.Hour,
		usage:        "Idle time after which a room expires",
	}
	defaultMaxParticipants = configVar[int]{
		envKey:       "SERVER_DEFAULT_MAX_PARTICIPANTS",
		flagKey:      "default-max-participants",
		defaultValue: 10,
		usage:        "Participant limit for rooms created without one",
	}
	pingPeriod = configVar[time.Duration]{
		envKey:       "SERVER_PING_PERIOD",
		flagKey:      "ping-period",
		defaultValue: 30 * time.Second,
		usage:        "Interval between websocket pings",
	}
	pongWait = configVar[time.Duration]{
		envKey:       "SERVER_PONG_WAIT",
		flagKey:      "pong-wait",
		defaultValue: 60 * time.Second,
		usage:        "Time to wait for a websocket pong",
	}
	readLimit = configVar[int64]{
		envKey:       "SERVER_READ_LIMIT",
		flagKey:      "read-limit",
		defaultValue: 64 * 1024,
		usage:        "Maximum size of an inbound websocket message in bytes",
	}
	shutdownTimeout = configVar[time.Duration]{
		envKey:       "SERVER_SHUTDOWN_TIMEOUT",
		flagKey:      "shutdown-timeout",
		defaultValue: 10 * time.Second,
		usage:        "Graceful shutdown timeout",
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
		usage:        "Redis host",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
		usage:        "Redis port",
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
		usage:        "Redis password",
	}
	redisDB = configVar[int]{
		envKey:       "REDIS_DB",
		flagKey:      "redis-db",
		defaultValue: 0,
		usage:        "Redis database number",
	}
)

func bind[T any](v configVar[T]) {
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

func loadAppConfig() *app.AppConfig {
	pflag.String(secret.flagKey, secret.defaultValue, secret.usage)
	pflag.String(host.flagKey, host.defaultValue, host.usage)
	pflag.Int(port.flagKey, port.defaultValue, port.usage)
	pflag.String(logLevel.flagKey, logLevel.defaultValue, logLevel.usage)
	pflag.Duration(roomTTL.flagKey, roomTTL.defaultValue, roomTTL.usage)
	pflag.Int(defaultMaxParticipants.flagKey, defaultMaxParticipants.defaultValue, defaultMaxParticipants.usage)
	pflag.Duration(pingPeriod.flagKey, pingPeriod.defaultValue, pingPeriod.usage)
	pflag.Duration(pongWait.flagKey, pongWait.defaultValue, pongWait.usage)
	pflag.Int64(readLimit.flagKey, readLimit.defaultValue, readLimit.usage)
	pflag.Duration(shutdownTimeout.flagKey, shutdownTimeout.defaultValue, shutdownTimeout.usage)
	pflag.String(redisHost.flagKey, redisHost.defaultValue, redisHost.usage)
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, redisPort.usage)
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, redisPassword.usage)
	pflag.Int(redisDB.flagKey, redisDB.defaultValue, redisDB.usage)
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	bind(secret)
	bind(host)
	bind(port)
	bind(logLevel)
	bind(roomTTL)
	bind(defaultMaxParticipants)
	bind(pingPeriod)
	bind(pongWait)
	bind(readLimit)
	bind(shutdownTimeout)
	bind(redisHost)
	bind(redisPort)
	bind(redisPassword)
	bind(redisDB)

	return &app.AppConfig{
		Secret:                 viper.GetString(secret.flagKey),
		Host:                   viper.GetString(host.flagKey),
		Port:                   viper.GetInt(port.flagKey),
		LogLevel:               viper.GetString(logLevel.flagKey),
		RoomTTL:                viper.GetDuration(roomTTL.flagKey),
		DefaultMaxParticipants: viper.GetInt(defaultMaxParticipants.flagKey),
		PingPeriod:             viper.GetDuration(pingPeriod.flagKey),
		PongWait:               viper.GetDuration(pongWait.flagKey),
		ReadLimit:              viper.GetInt64(readLimit.flagKey),
		ShutdownTimeout:        viper.GetDuration(shutdownTimeout.flagKey),
		RedisHost:              viper.GetString(redisHost.flagKey),
		RedisPort:              viper.GetInt(redisPort.flagKey),
		RedisPassword:          viper.GetString(redisPassword.flagKey),
		RedisDB:                viper.GetInt(redisDB.flagKey),
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	if err := app.Run(ctx, appConfig); err != nil {
		log.Fatal(err)
	}
}
