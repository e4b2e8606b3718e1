package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"socialmatch/api/handlers"
	"socialmatch/api/middleware"
	"socialmatch/api/routes"
	"socialmatch/app"
	"socialmatch/config"
	"socialmatch/db"
	"socialmatch/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	conf, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}
	log, err := logger.New(conf.Logs.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	log.Info("Starting server...", zap.String("config", configPath))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orm, err := db.ConnectDB(conf)
	if err != nil {
		log.Fatal("Failed to connect to the database", zap.Error(err))
	}
	a, err := app.New(ctx, conf, orm, log)
	if err != nil {
		log.Fatal("Failed to build services", zap.Error(err))
	}
	defer a.Close()

	if a.Broker != nil {
		if err := a.Broker.StartConsumer(ctx, conf.RabbitMQ.Queue, a.WS); err != nil {
			log.Fatal("Failed to start RabbitMQ consumer", zap.Error(err))
		}
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.PrometheusMiddleware("match"))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	routes.PublicApi(router, routes.Handlers{
		Users:   handlers.NewUserHandlers(a.Users, log.Named("http")),
		Match:   handlers.NewMatchHandlers(a.Coordinator, log.Named("http")),
		Friends: handlers.NewFriendHandlers(a.Friends, log.Named("http")),
		Dialogs: handlers.NewDialogHandlers(a.Dialogs, a.Notifications, log.Named("http")),
		WS:      handlers.NewWSHandler(a.WS, log.Named("ws")),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", conf.Backend.Host, conf.Backend.Port),
		Handler: router,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()
	log.Info("HTTP server listening", zap.String("addr", srv.Addr))

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
	log.Info("Server stopped")
}
