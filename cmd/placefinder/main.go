package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/placefinder/internal/app"
	"github.com/ternarybob/placefinder/internal/common"
	"github.com/ternarybob/placefinder/internal/server"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths // Multiple -config flags supported
	serverPort   = flag.Int("port", 0, "Server port (overrides config)")
	serverPortP  = flag.Int("p", 0, "Server port (shorthand, overrides config)")
	serverHost   = flag.String("host", "", "Server host (overrides config)")
	envFile      = flag.String("env", ".env", "Environment file loaded before the configuration")
	rebuild      = flag.Bool("rebuild", false, "Rebuild every category index from the catalog, then exit")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Placefinder version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	finalPort := *serverPort
	if *serverPortP != 0 {
		finalPort = *serverPortP
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load .env so NAVER_* / OPENAI_API_KEY reach the env overrides
	// 2. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 3. Apply CLI overrides (highest priority)
	// 4. Initialize logger, print banner
	envLoaded := godotenv.Load(*envFile) == nil

	if len(configFiles) == 0 {
		if _, err := os.Stat("placefinder.toml"); err == nil {
			configFiles = append(configFiles, "placefinder.toml")
		} else if _, err := os.Stat("deployments/local/placefinder.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/placefinder.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		arbor.NewLogger().Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration files")
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, finalPort, *serverHost)

	logger := common.InitLogger(config)

	if err := config.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
		os.Exit(1)
	}

	common.PrintBanner(config, logger)

	logger.Info().
		Strs("config_files", configFiles).
		Bool("env_file_loaded", envLoaded).
		Str("log_level", config.Logging.Level).
		Int("port", config.Server.Port).
		Str("host", config.Server.Host).
		Msg("Application configuration loaded")

	if *rebuild {
		runRebuild(config, logger)
		return
	}

	// A catalog failure during the startup rebuild is fatal
	application, err := app.New(config, logger, app.ModeServe)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}
	defer application.Close()

	srv := server.New(application)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Fatal().Str("panic", fmt.Sprintf("%v", r)).Msg("Server goroutine panicked")
			}
		}()

		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)).
		Msg("Server ready - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info().Msg("Interrupt signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}

	logger.Info().Msg("Server stopped")
}

// runRebuild rebuilds all category indices and records the new generation
func runRebuild(config *common.Config, logger arbor.ILogger) {
	start := time.Now()

	application, err := app.New(config, logger, app.ModeRebuild)
	if err != nil {
		logger.Fatal().Err(err).Msg("Index rebuild failed")
		os.Exit(1)
	}
	defer application.Close()

	manifest := application.IndexStore.Manifest()
	for _, c := range manifest.Categories {
		logger.Info().
			Str("category", c.Category.String()).
			Int("fetched", c.Fetched).
			Int("indexed", c.Indexed).
			Int("skipped", c.Skipped).
			Msg("Category rebuilt")
	}

	logger.Info().
		Str("generation", manifest.Generation).
		Int("records", manifest.Total()).
		Dur("duration", time.Since(start)).
		Msg("Index rebuild complete")
}
