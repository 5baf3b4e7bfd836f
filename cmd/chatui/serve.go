package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/chatui/internal/config"
	"github.com/vango-dev/chatui/pkg/chatserver"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		port      int
		host      string
		backend   string
		ollamaURL string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat server",
		Long: `Start the chat server.

The server renders the chat page on /, lists models on /models and
streams replies on /ws. Metrics are exported on /metrics.

Examples:
  chatui serve
  chatui serve --port=8080 --backend=ollama
  chatui serve --host=0.0.0.0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}

			// Apply command-line overrides
			if port > 0 {
				cfg.Server.Port = port
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if backend != "" {
				cfg.Server.Backend = backend
			}
			if ollamaURL != "" {
				cfg.Server.OllamaURL = ollamaURL
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			srv, err := newServer(cfg)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			success(cmd.OutOrStdout(), "Serving on http://%s (backend: %s)", cfg.Server.Address(), cfg.Server.Backend)
			return srv.Run(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from chatui.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from chatui.json)")
	cmd.Flags().StringVar(&backend, "backend", "", "Model backend: echo or ollama")
	cmd.Flags().StringVar(&ollamaURL, "ollama-url", "", "Ollama API address")

	return cmd
}

func newServer(cfg *config.Config) (*chatserver.Server, error) {
	writeTimeout, err := cfg.Server.WriteTimeoutDuration()
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := cfg.Server.ShutdownTimeoutDuration()
	if err != nil {
		return nil, err
	}

	var backend chatserver.Backend = chatserver.EchoBackend{}
	if cfg.Server.Backend == config.BackendOllama {
		backend = chatserver.OllamaBackend{BaseURL: cfg.Server.OllamaURL}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return chatserver.New(chatserver.Config{
		Address:         cfg.Server.Address(),
		WriteTimeout:    writeTimeout,
		ShutdownTimeout: shutdownTimeout,
		MaxHistory:      cfg.Server.MaxHistory,
	}, backend, chatserver.WithRegistry(reg)), nil
}
