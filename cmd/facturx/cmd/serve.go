package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/facturx-fr/internal/server"
)

var (
	serveAddr    string
	serveDebug   bool
	readTimeout  time.Duration
	writeTimeout time.Duration
	certsDir     string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP API server exposing the document operations.

The API provides endpoints for:
  - POST /api/v1/generate/cii            - Render an invoice as CII XML
  - POST /api/v1/generate/ubl            - Render an invoice as UBL XML
  - POST /api/v1/generate/facturx        - Build the hybrid PDF
  - POST /api/v1/validate                - Validate a document
  - POST /api/v1/parse                   - Parse a document
  - POST /api/v1/verify                  - Verify a signature
  - POST /api/v1/ereporting/transaction  - Build e-reporting data
  - GET  /api/v1/lifecycle/statuses      - List lifecycle statuses
  - GET  /api/v1/lifecycle/transitions/:code
  - GET  /health                         - Health check

Configuration comes from FACTURX_* environment variables; flags set
here override them.

Examples:
  # Start server on the default port
  facturx serve

  # Start on a custom port with trusted platform certificates
  facturx serve --address :9090 --certs-dir /etc/facturx/cas

  # Start in debug mode
  facturx serve --debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "address", ":8080", "Server listen address")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug mode")
	serveCmd.Flags().DurationVar(&readTimeout, "read-timeout", 15*time.Second, "HTTP read timeout")
	serveCmd.Flags().DurationVar(&writeTimeout, "write-timeout", 30*time.Second, "HTTP write timeout")
	serveCmd.Flags().StringVar(&certsDir, "certs-dir", "", "Directory of trusted platform CA certificates")
}

func runServe(cmd *cobra.Command, args []string) error {
	config, err := server.LoadConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if cmd.Flags().Changed("address") {
		config.Address = serveAddr
	}
	if cmd.Flags().Changed("debug") {
		config.Debug = serveDebug
	}
	if cmd.Flags().Changed("read-timeout") {
		config.ReadTimeout = readTimeout
	}
	if cmd.Flags().Changed("write-timeout") {
		config.WriteTimeout = writeTimeout
	}
	if cmd.Flags().Changed("certs-dir") {
		config.TrustedCertsDir = certsDir
	}

	srv := server.NewServer(config)

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		fmt.Println("\nShutting down server...")
		os.Exit(0)
	}()

	fmt.Printf("Starting server on %s\n", config.Address)
	return srv.Run()
}
