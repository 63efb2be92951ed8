package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/linkedin-connector/internal/logger"
	"github.com/yourusername/linkedin-connector/internal/webui"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web dashboard",
		Long: `Start the web dashboard: upload a CSV, preview it, choose how many
requests to send, follow the progress and download the report.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if addr != "" {
				a.cfg.Server.Addr = addr
			}

			runner, err := a.runner()
			if err != nil {
				return err
			}

			server := webui.NewServer(a.cfg.Server, a.cfg.Run, runner, a.registry)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info("Shutting down web UI...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr)")
	return cmd
}
