package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/sync/errgroup"

	"github.com/openmonitor/alertd/pkg/api"
	"github.com/openmonitor/alertd/pkg/config"
	"github.com/openmonitor/alertd/pkg/mongodb"
	"github.com/openmonitor/alertd/pkg/services"
)

// @title Alert Lifecycle Engine API
// @version 1.0
// @description API for submitting alert events and managing alert lifecycle
// @BasePath /api

func main() {
	// Configure Log Level from Environment Variable
	logLevelStr := os.Getenv("LOG_LEVEL")
	switch strings.ToLower(logLevelStr) {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	case "fatal":
		logrus.SetLevel(logrus.FatalLevel)
	case "panic":
		logrus.SetLevel(logrus.PanicLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
	logrus.Infof("Log level set to: %s", logrus.GetLevel().String())

	// Parse command line flags
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Set up the MongoDB-backed record store
	store, err := mongodb.NewClient(&cfg.Mongo)
	if err != nil {
		logrus.Fatalf("Failed to create MongoDB client: %v", err)
	}

	bootCtx := context.Background()
	if err := store.EnsureIndexes(bootCtx); err != nil {
		logrus.Fatalf("Failed to create indexes: %v", err)
	}
	if err := store.Migrate(bootCtx); err != nil {
		logrus.Fatalf("Failed to run schema migration: %v", err)
	}

	// Initialize services
	alertService := services.NewAlertService(store, cfg.Engine.DefaultTimeoutSeconds)
	heartbeatService := services.NewHeartbeatService(store.Heartbeats(), cfg.Engine.DefaultHeartbeatTimeoutSeconds)

	// Set up the Echo server
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: strings.Split(cfg.Server.AllowedOrigins, ","),
	}))

	// API routes
	apiHandler := api.NewAPIHandler(alertService, heartbeatService)
	apiHandler.SetupRoutes(e)

	// Swagger documentation
	e.GET("/swagger/*", echo.WrapHandler(httpSwagger.Handler()))

	// Use PORT environment variable if available, otherwise use config
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Server.Port
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Background housekeeping sweeper
	sweeper := services.NewSweeper(store, &cfg.Sweeper)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper.Start(ctx)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logrus.Infof("Starting server on port %s", port)
		if err := e.StartServer(server); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logrus.Info("Shutting down server...")

		sweeper.Shutdown()
		logrus.Info("Sweeper shutdown complete")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
		defer cancel()

		if err := e.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return store.Close(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logrus.Fatalf("Server exited with error: %v", err)
	}
	logrus.Info("Server exited properly")
}
