package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"evohome_gateway/internal/config"
	"evohome_gateway/internal/evohome"
	"evohome_gateway/internal/handlers"
	"evohome_gateway/internal/logger"
	"evohome_gateway/internal/models"
	"evohome_gateway/internal/notify"
	"evohome_gateway/internal/repository"
	"evohome_gateway/internal/repository/db"
	"evohome_gateway/internal/server"
	"evohome_gateway/internal/service"

	"github.com/google/uuid"
)

const shutdownTimeout = 10 * time.Second

// @title        evohome gateway API
// @version      1.0
// @description  Cached view and control of evohome heating systems.
// @BasePath     /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	// load configs/config.yml and GATEWAY_* overrides
	cfg, err := config.Load("configs")
	if err != nil {
		logger.Get(logger.ErrorLevel, logger.ConsoleFormat).Fatalw("error reading config", "err", err)
	}

	// init logger
	log := logger.Get(cfg.Log.Level, cfg.Log.Format)

	// open DB
	sqlDB, err := openDB(cfg.DB.Path, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	loc, err := cfg.Evohome.Location()
	if err != nil {
		log.Fatalw("invalid timezone", "err", err)
	}

	// wire dependencies
	api := evohome.NewClient(evohome.Config{
		BaseURL:       cfg.Evohome.BaseURL,
		AuthURL:       cfg.Evohome.AuthURL,
		ApplicationID: cfg.Evohome.ApplicationID,
		Timeout:       cfg.Evohome.RequestTimeout,
	})
	repos := repository.NewRepository(sqlDB)
	services := service.NewService(repos, service.Deps{
		API: api,
		Gateway: service.GatewayConfig{
			Credentials: models.Credentials{
				Username:      cfg.Evohome.Username,
				Password:      cfg.Evohome.Password,
				ApplicationID: cfg.Evohome.ApplicationID,
			},
			PollInterval: cfg.Evohome.PollInterval(),
			Location:     loc,
		},
		SigningKey: signingKey(cfg.Auth, log),
		TokenTTL:   cfg.Auth.TokenTTL,
		Log:        log,
	})

	observer := connectMQTT(cfg.MQTT, services, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// start polling (login, then one cycle per refresh interval)
	go services.Gateway.Run(ctx)

	// start HTTP server
	apiHandler := handlers.NewHandler(services, log.Named("http"))
	srv := &server.Server{}
	runHTTPServer(srv, cfg.Port, server.WithCORS(apiHandler.InitRoutes(), cfg.CORS.AllowedOrigins), log)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)

	logoutCtx, logoutCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer logoutCancel()
	services.Gateway.Logout(logoutCtx)
	if observer != nil {
		observer.Close()
	}
}

// openDB initializes the SQLite database using configuration.
func openDB(path string, log *logger.Logger) (*sql.DB, error) {
	if path == "" {
		log.Infow("db.path not set in config; using default file", "default", "gateway.db")
		path = "gateway.db"
	}
	return db.InitDB(path)
}

// signingKey returns the configured JWT key or a per-process one, which
// invalidates issued tokens on restart.
func signingKey(cfg config.AuthConfig, log *logger.Logger) string {
	if cfg.SigningKey != "" {
		return cfg.SigningKey
	}
	log.Warnw("auth.signing_key not set; using an ephemeral key")
	return uuid.NewString()
}

// connectMQTT registers the MQTT observer when enabled. A broker failure is logged, not fatal.
func connectMQTT(cfg config.MQTTConfig, services *service.Service, log *logger.Logger) *notify.MQTTObserver {
	if !cfg.Enabled {
		return nil
	}
	observer, err := notify.Connect(cfg, log.Named("mqtt"))
	if err != nil {
		log.Errorw("mqtt_connect_failed", "broker", cfg.Broker, "err", err)
		return nil
	}
	services.Gateway.AddObserver(observer)
	return observer
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler http.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
