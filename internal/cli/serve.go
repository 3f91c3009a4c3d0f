package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ppiankov/tabsort/internal/api"
	"github.com/ppiankov/tabsort/internal/fetch"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API used by the browser extension",
	Long: `Serve exposes classification and dataset collection over HTTP:

  POST   /analyze               {text}
  POST   /collect               {title, url, content?, category?, fetch?}
  GET    /health
  GET    /stats
  GET    /training-data
  GET    /observations
  PATCH  /observations/{index}
  DELETE /observations/{index}
  DELETE /observations

/health classifies a canary text that no keyword rule matches, so it
reports unhealthy with model_status "disabled" until model.provider is set.

Example:
  tabsort serve --addr 127.0.0.1:5000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the classifier answers a canary request",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		p, err := newPipeline(cfg)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Model.Timeout+5*time.Second)
		defer cancel()

		status := p.Health(ctx)
		if err := printJSON(os.Stdout, status); err != nil {
			return err
		}
		if status.Error != "" {
			return fmt.Errorf("unhealthy: %s", status.Error)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, healthCmd)

	serveCmd.Flags().String("addr", "", "listen address (default: server.addr)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}

	c, s, err := openCollector(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	server := api.New(p, c, cfg.Server.Addr,
		api.WithFetcher(fetch.NewFetcher(cfg.Fetch)),
		api.WithLogger(stderrLogger),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Starting server on %s\n", cfg.Server.Addr)
	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Server stopped\n")
	return nil
}
