/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the supply ledger server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse flags
  2. Open the SQLite document store
  3. Wire the purge engine (store + audit trail)
  4. Configure the HTTP router
  5. Start the server with graceful shutdown

CONFIGURATION:
  Flags override environment variables:
    -port     HTTP server port            (PORT, default 8080)
    -db       SQLite database path        (DB_PATH, default supply.db)
              Use ":memory:" for an in-memory database
    -secret   JWT signing secret          (JWT_SECRET, required)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the database connection

SEE ALSO:
  - api/server.go: router configuration
  - store/sqlite/sqlite.go: persistence
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/stockroom/supply-engine/api"
	"github.com/stockroom/supply-engine/ledger"
	"github.com/stockroom/supply-engine/store/sqlite"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	port := flag.String("port", envOr("PORT", "8080"), "HTTP server port")
	dbPath := flag.String("db", envOr("DB_PATH", "supply.db"), "SQLite database path")
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "JWT signing secret")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	if *secret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	engine := ledger.NewEngine(store, ledger.NewStoreAudit(store), log)
	handler := api.NewHandler(store, engine, log)
	router := api.NewRouter(handler, api.NewAuth([]byte(*secret)))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server stopped")
}
