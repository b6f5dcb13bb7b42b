package cmd

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/eykd/mcaddon-go/internal/history"
	"github.com/eykd/mcaddon-go/internal/ident"
	"github.com/eykd/mcaddon-go/internal/mcptools"
)

// MCPIO handles I/O for the mcp command.
type MCPIO interface {
	ConfigLoader
	HistoryOpener
	GeneratorFactory
	ServeMCP(ctx context.Context, t *mcptools.Tools, version string, in io.Reader, out io.Writer) error
}

// NewMCPCmd creates the mcp subcommand.
func NewMCPCmd(mio MCPIO) *cobra.Command {
	return newMCPCmdWithGetCWD(mio, os.Getwd)
}

func newMCPCmdWithGetCWD(mio MCPIO, getwd func() (string, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the project to an MCP client over stdio",
		Long: "Exposes the project in the working directory (or --project) as MCP tools:\n" +
			"get_project, validate_project, update_metadata, regenerate_identifiers,\n" +
			"set_script, generate_script and export_addon. Logs go to stderr.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveProjectDir(cmd, getwd)
			if err != nil {
				return err
			}
			cfg, _, err := loadConfig(cmd, mio, dir)
			if err != nil {
				return err
			}
			logger := newLogger(cmd, cfg, "mcp")

			gen, err := mio.NewGenerator(cfg, newLogger(cmd, cfg, "scriptgen"))
			if err != nil {
				logger.Warn("script generation disabled", "err", err)
			}

			var store *history.Store
			if cfg.History.Path != "" {
				store, err = mio.OpenHistory(cfg.History.Path)
				if err != nil {
					logger.Warn("export history disabled", "err", err)
				} else {
					defer store.Close()
				}
			}

			tools := &mcptools.Tools{
				Dir:       dir,
				IDs:       ident.V4,
				Generator: gen,
				History:   store,
				Logger:    logger,
			}
			return mio.ServeMCP(cmd.Context(), tools, cmd.Root().Version, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	addProjectFlag(cmd)

	return cmd
}
