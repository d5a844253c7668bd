// Command weatherd runs the weather assistant backend: the HTTP API and the
// periodic meeting-notification scan.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/guided-app/weatherd/internal/api"
	"github.com/guided-app/weatherd/internal/calendar"
	"github.com/guided-app/weatherd/internal/genai"
	"github.com/guided-app/weatherd/internal/location"
	"github.com/guided-app/weatherd/internal/messaging"
	"github.com/guided-app/weatherd/internal/notify"
	"github.com/guided-app/weatherd/internal/scheduler"
	"github.com/guided-app/weatherd/internal/store"
	"github.com/guided-app/weatherd/internal/tokens"
	"github.com/guided-app/weatherd/internal/util"
	"github.com/guided-app/weatherd/internal/weather"
)

// Default configuration constants
const (
	DefaultAPIAddr         = ":8080"
	DefaultNotifyInterval  = 5 * time.Minute
	DefaultCleanupSchedule = "0 3 * * *"
	ShutdownTimeout        = 10 * time.Second
)

// Config holds environment configuration
type Config struct {
	APIAddr         string
	DBDriver        string
	DBDSN           string
	NotifyInterval  time.Duration
	NotifyEnabled   bool
	CleanupSchedule string
}

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	parseCommandLineFlags(&config)

	if err := run(config); err != nil {
		slog.Error("weatherd failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("weatherd exited successfully")
}

// initializeLogger sets up structured logging; LOG_LEVEL selects the level.
func initializeLogger() {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	return Config{
		APIAddr:         util.GetenvDefault("API_ADDR", DefaultAPIAddr),
		DBDriver:        util.GetenvDefault("DB_DRIVER", "memory"),
		DBDSN:           os.Getenv("DB_DSN"),
		NotifyInterval:  util.ParseDurationEnv("NOTIFY_INTERVAL", DefaultNotifyInterval),
		NotifyEnabled:   util.ParseBoolEnv("NOTIFY_ENABLED", true),
		CleanupSchedule: util.GetenvDefault("CLEANUP_SCHEDULE", DefaultCleanupSchedule),
	}
}

// parseCommandLineFlags lets flags override environment configuration.
func parseCommandLineFlags(config *Config) {
	flag.StringVar(&config.APIAddr, "addr", config.APIAddr, "HTTP listen address")
	flag.StringVar(&config.DBDriver, "db-driver", config.DBDriver, "store driver: memory, sqlite3 or postgres")
	flag.StringVar(&config.DBDSN, "db-dsn", config.DBDSN, "store DSN (file path for sqlite3, URL for postgres)")
	flag.DurationVar(&config.NotifyInterval, "notify-interval", config.NotifyInterval, "meeting notification scan interval")
	flag.BoolVar(&config.NotifyEnabled, "notify", config.NotifyEnabled, "enable the meeting notification scan")
	flag.Parse()
}

func run(config Config) error {
	st, err := store.New(config.DBDriver, config.DBDSN)
	if err != nil {
		return err
	}
	defer st.Close()

	llm, err := genai.NewClient()
	if err != nil {
		return err
	}
	forecaster, err := weather.NewClient()
	if err != nil {
		return err
	}
	geo, err := location.NewClient()
	if err != nil {
		return err
	}
	creds := tokens.NewService(st.Tokens, "")

	srv := api.NewServer(api.Deps{
		LLM:         llm,
		Weather:     forecaster,
		Geo:         geo,
		Users:       st.Users,
		Credentials: creds,
		Calendars:   calendar.NewGoogleAPI,
	})

	sched := scheduler.NewScheduler()
	defer sched.Stop()

	if config.NotifyEnabled {
		sms, err := messaging.NewTwilioClient()
		if err != nil {
			return err
		}
		notifier := notify.NewService(notify.Deps{
			Users:         st.Users,
			Notifications: st.Notifications,
			Credentials:   creds,
			LLM:           llm,
			Weather:       forecaster,
			Calendars:     calendar.NewGoogleAPI,
			SMS:           sms,
		})
		sched.AddEvery(config.NotifyInterval, func() {
			if err := notifier.ProcessAll(context.Background()); err != nil {
				slog.Error("notification scan failed", "error", err)
			}
		})
		if err := sched.AddJob(config.CleanupSchedule, func() {
			if err := notifier.CleanupOld(context.Background()); err != nil {
				slog.Error("notification cleanup failed", "error", err)
			}
		}); err != nil {
			return err
		}
		slog.Info("meeting notifications enabled", "interval", config.NotifyInterval)
	} else {
		slog.Info("meeting notifications disabled")
	}

	httpServer := &http.Server{
		Addr:    config.APIAddr,
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting", "addr", config.APIAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		slog.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(ctx)
}
