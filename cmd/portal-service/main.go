package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hypernova-labs/portal-capacitaciones/internal/api"
	"github.com/hypernova-labs/portal-capacitaciones/internal/config"
	"github.com/hypernova-labs/portal-capacitaciones/internal/normalizer"
	"github.com/hypernova-labs/portal-capacitaciones/internal/services"
	"github.com/hypernova-labs/portal-capacitaciones/internal/session"
	"github.com/hypernova-labs/portal-capacitaciones/internal/upstream"
	"github.com/sirupsen/logrus"
)

func main() {
	// Cargar configuración
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	// Configurar logging
	logger := setupLogger(cfg)
	logger.Info("Starting portal service...")

	// Configurar modo de Gin
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Cliente del backend institucional
	backend := upstream.NewClient(cfg.Backend.URL, cfg.Backend.Timeout, logger)
	logger.WithFields(logrus.Fields{
		"backend": cfg.Backend.URL,
		"timeout": cfg.Backend.Timeout.String(),
		"mode":    cfg.Normalizer.Mode,
	}).Info("Backend client initialized")

	var opts []normalizer.Option
	if cfg.Normalizer.PlaceholderMail != "" {
		opts = append(opts, normalizer.WithPlaceholderMail(cfg.Normalizer.PlaceholderMail))
	}
	norm := normalizer.New(opts...)

	// Inicializar servicios
	directorService := services.NewDirectorService(backend, logger)
	supportService := services.NewSupportService(backend, norm, cfg, logger)
	sessions := session.NewJWTAccessor(cfg.Session.Secret, cfg.Session.CookieName)

	// Inicializar API
	apiHandler := api.NewAPI(directorService, supportService, sessions, logger)

	// Configurar router
	router := setupRouter(apiHandler, cfg)

	// Crear servidor HTTP
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Backend.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Canal para señales de terminación
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Infof("Server starting on %s:%s", cfg.Server.Host, cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

// setupLogger configura el logger según la configuración
func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

// setupRouter configura el router principal
func setupRouter(apiHandler *api.API, cfg *config.Config) *gin.Engine {
	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CORS para desarrollo, el front corre en otro puerto
	if cfg.IsDevelopment() {
		router.Use(func(c *gin.Context) {
			c.Header("Access-Control-Allow-Origin", "http://localhost:3000")
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Request-Id")

			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}

			c.Next()
		})
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   "portal-capacitaciones",
			"version":   "1.0.0",
		})
	})

	apiHandler.Register(router)

	return router
}
