package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"sharptimer/internal/logger"
	"sharptimer/internal/timer"
)

// Config is the composed application handed to the router.
type Config struct {
	Controller *timer.Controller
	Log        *logger.Logger
}

func main() {
	loadConfig()
	log := logger.Get(viper.GetString("log_level"))

	states, err := timer.NewStateManager(viper.GetString("data_dir"), log)
	if err != nil {
		log.Fatalw("failed to initialize state storage", "err", err)
	}

	app := &Config{
		Controller: timer.NewController(
			states,
			timer.LogNotifier{Log: log},
			timer.CommandPlayer{Command: viper.GetString("audio_player"), Log: log},
			log,
		),
		Log: log,
	}

	// context for background loops
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app.Controller.Launch(ctx)

	port := viper.GetString("port")
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: app.routes(),
	}

	go func() {
		log.Infow("starting sharp timer control server", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("error starting server", "err", err)
		}
	}()

	waitForShutdown(cancel, srv, app, log)
}

// loadConfig sets launch configuration from defaults, an optional config
// file, and SHARP_TIMER_* environment variables.
func loadConfig() {
	viper.SetDefault("port", "7340")
	viper.SetDefault("log_level", logger.InfoLevel)
	viper.SetDefault("data_dir", defaultDataDir())
	viper.SetDefault("audio_player", "afplay")

	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	_ = viper.ReadInConfig() // config file is optional

	viper.SetEnvPrefix("SHARP_TIMER")
	viper.AutomaticEnv()
}

// defaultDataDir picks the per-user application support directory, falling
// back to a local data directory when no home is available.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "data"
	}
	return filepath.Join(home, "Library", "Application Support", "Sharp Timer")
}

// waitForShutdown listens for termination signals and performs graceful
// shutdown: background loops first, then in-flight requests.
func waitForShutdown(cancel context.CancelFunc, srv *http.Server, app *Config, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down...")

	cancel()
	app.Controller.Shutdown()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
