package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/pollwave/pollwave/internal/app"
	"github.com/pollwave/pollwave/internal/logger"
)

var version = "dev"

// envOr reads an environment variable with a fallback
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", envOr("POLLWAVE_DB", "pollwave.db"), "SQLite database path")
	baseURL := flag.String("baseurl", envOr("POLLWAVE_BASE_URL", ""), "Public base URL for share links and QR codes")
	logLevel := flag.String("loglevel", envOr("POLLWAVE_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	httpLog := flag.Bool("httplog", false, "Log every HTTP request")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("pollwave %s\n", version)
		return
	}

	log := logger.NewWithLevel(logger.ParseLevel(*logLevel))
	if *httpLog {
		log.EnableHTTPLogging()
	}

	addr := fmt.Sprintf(":%d", *port)
	if *baseURL == "" {
		*baseURL = fmt.Sprintf("http://localhost%s", addr)
	}

	a, err := app.New(log, app.Config{DBPath: *dbPath, BaseURL: *baseURL})
	if err != nil {
		log.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.Run(addr); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
