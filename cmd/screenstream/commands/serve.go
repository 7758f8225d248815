package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"screenstream"
	"screenstream/internal/api"
	"screenstream/internal/config"
	"screenstream/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ScreenStream server",
	Long: `Start the ScreenStream HTTP server.

The server exposes capture control, performance statistics, window and
application enumeration, thumbnails and live frame streams over a REST
API and websockets.`,
	Example: `  # Start server on default port (8080)
  screenstream serve

  # Start server on custom port
  screenstream serve --port 9090

  # Start with specific config file
  screenstream serve --config /path/to/config.yaml

  # Start with debug logging
  screenstream serve --log-level debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to initialize config manager: %w", err)
	}

	// Override port from flag if provided
	if viper.IsSet("server_port") {
		port := viper.GetInt("server_port")
		if port > 0 {
			configMgr.SetPort(port)
		}
	}

	// Override log level from flag if provided
	if viper.IsSet("log_level") {
		logLevel := viper.GetString("log_level")
		if logLevel != "" {
			configMgr.SetLogLevel(logLevel)
		}
	}

	cfg := configMgr.Get()
	logger.Init(cfg.LogLevel, true)
	log := logger.WithComponent("serve")

	log.Info().Str("path", configMgr.GetConfigPath()).Msg("Configuration loaded")

	service, err := screenstream.NewService(configMgr)
	if err != nil {
		return fmt.Errorf("failed to initialize capture service: %w", err)
	}
	defer service.Close()

	screenstream.SetDefault(service)

	server := api.NewServer(service, configMgr)

	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := server.Start(cfg.ServerPort); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	log.Info().Msgf("ScreenStream is running on http://localhost:%d", cfg.ServerPort)
	<-sigChan

	log.Info().Msg("Shutting down")
	service.StopCapture()
	return nil
}
