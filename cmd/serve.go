package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KaramelBytes/shipsight/internal/chat"
	"github.com/KaramelBytes/shipsight/internal/dashboard"
	"github.com/KaramelBytes/shipsight/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard and chat API",
	Example: `  shipsight serve
  shipsight serve --addr :8080 --profile interactive`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, logger, err := newService()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck
		sessions := chat.NewStore(time.Duration(cfg.SessionIdleSec)*time.Second, logger)
		defer func() {
			if err := sessions.Close(); err != nil {
				logger.Warn("closing session connections", zap.Error(err))
			}
			if err := svc.Close(); err != nil {
				logger.Warn("closing warehouse connection", zap.Error(err))
			}
		}()

		addr := cfg.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(cmd.OutOrStdout(), "⚙ Serving ShipSight on http://%s (profile=%s, ai=%s/%s)\n", addr, svc.Profile(), cfg.AIProvider, svc.Model())
		return server.New(svc, sessions, logger).Run(ctx, addr)
	},
}

// newService loads the configuration and builds the data service shared by
// the commands.
func newService() (*dashboard.Service, *zap.Logger, error) {
	c, err := requireConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(c)
	if err != nil {
		return nil, nil, err
	}
	return dashboard.New(c, logger), logger, nil
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute (tests).
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides listen_addr)")
}
