// Package main provides the climate indices HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"go.ngs.io/climate-indices/internal/app"
	"go.ngs.io/climate-indices/internal/config"
	httpHandler "go.ngs.io/climate-indices/internal/http"
)

const version = "0.1.0"

const shutdownTimeout = 30 * time.Second

func main() {
	// Parse command-line flags.
	flags := pflag.NewFlagSet("climate-indices-server", pflag.ExitOnError)
	showHelp := flags.BoolP("help", "h", false, "Show usage information")
	showVersion := flags.Bool("version", false, "Show version information")
	configFile := flags.String("config", "", "Configuration file (yaml, json or toml)")
	_ = flags.Parse(os.Args[1:])

	if *showHelp {
		printUsage(flags)
		return
	}
	if *showVersion {
		fmt.Printf("climate-indices-server version %s\n", version)
		return
	}

	cfg, err := config.Load(config.New(), *configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	defer func() { _ = a.Close() }()
	log := a.Log

	log.Info("Starting climate indices server...")
	log.Infof("Port: %s", cfg.Port)
	log.Infof("Data directory: %s", cfg.DataDir)
	log.Infof("Reader: %s, engine: %s", cfg.Reader, cfg.Engine)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpHandler.SetupRouter(a.Compute, cfg.DataDir, cfg.CORSAllowedOrigins, log)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Server listening on %s", srv.Addr)
		log.Infof("Health check: http://localhost:%s/health", cfg.Port)
		log.Info("API endpoints:")
		log.Info("  - GET  /v1/indices")
		log.Info("  - GET  /v1/indices/:name")
		log.Info("  - POST /v1/indices/:name")
		log.Info("  - GET  /v1/regions")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	case <-ctx.Done():
		log.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Graceful shutdown failed")
		}
	}
}

// printUsage prints usage information.
func printUsage(flags *pflag.FlagSet) {
	fmt.Printf("Climate Indices Server v%s\n\n", version)
	fmt.Println("USAGE:")
	fmt.Println("  climate-indices-server [flags]")
	fmt.Println()
	fmt.Println("FLAGS:")
	fmt.Print(flags.FlagUsages())
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES:")
	fmt.Println("  PORT                      Server port (default: 8080)")
	fmt.Println("  DATA_DIR                  Directory holding input and output files (default: ./data)")
	fmt.Println("  CORS_ALLOWED_ORIGINS      Comma-separated list of allowed origins (default: all origins)")
	fmt.Println("  CLIMIDX_READER            NetCDF reader: netcdf or native (default: netcdf)")
	fmt.Println("  CLIMIDX_ENGINE            Climatology engine: native or collaborator (default: native)")
	fmt.Println("  CLIMIDX_CDO_COMMAND       Batch operator executable (default: cdo)")
	fmt.Println("  CLIMIDX_LOG_LEVEL         Log level (default: info)")
	fmt.Println("  CLIMIDX_CLICKHOUSE_ENABLED  Publish results to ClickHouse (default: false)")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start server with default settings")
	fmt.Println("  climate-indices-server")
	fmt.Println()
	fmt.Println("  # Compute NINO3.4 from a file under DATA_DIR")
	fmt.Println(`  curl -X POST localhost:8080/v1/indices/NINO34 \`)
	fmt.Println(`    -d '{"infile":"tos.nc","variable":"tos","outfile":"nino34.csv"}'`)
	fmt.Println()
}
