package cmd

import (
	"context"
	"fmt"
	"net"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/eykd/mcaddon-go/internal/history"
	"github.com/eykd/mcaddon-go/internal/ident"
	"github.com/eykd/mcaddon-go/internal/server"
)

// ServeIO handles I/O for the serve command.
type ServeIO interface {
	ConfigLoader
	HistoryOpener
	GeneratorFactory
	Serve(ctx context.Context, addr string, h *server.Handler, logger *log.Logger, ready func(net.Addr)) error
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd(io ServeIO) *cobra.Command {
	return newServeCmdWithIDs(io, ident.V4)
}

func newServeCmdWithIDs(io ServeIO, ids ident.Generator) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the editor HTTP and WebSocket API",
		Long: "Serves in-memory editing sessions. Each session holds one project; changes are\n" +
			"pushed to WebSocket subscribers at /ws/{id}. Idle sessions are discarded after\n" +
			"server.session_timeout.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd, io, "")
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			logger := newLogger(cmd, cfg, "serve")

			gen, err := io.NewGenerator(cfg, newLogger(cmd, cfg, "scriptgen"))
			if err != nil {
				logger.Warn("script generation disabled", "err", err)
			}

			var store *history.Store
			if cfg.History.Path != "" {
				store, err = io.OpenHistory(cfg.History.Path)
				if err != nil {
					return fmt.Errorf("opening history: %w", err)
				}
				defer store.Close()
			}

			h := server.NewHandler(server.Options{
				Sessions:  server.NewManager(ids, cfg.Server.SessionTimeout.Std()),
				IDs:       ids,
				Generator: gen,
				History:   store,
				Logger:    logger,
			})
			return io.Serve(cmd.Context(), addr, h, logger, func(a net.Addr) {
				fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", ValueStyle.Render("http://"+a.String()))
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr from config)")

	return cmd
}
