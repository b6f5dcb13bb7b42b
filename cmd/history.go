package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/eykd/mcaddon-go/internal/config"
	"github.com/eykd/mcaddon-go/internal/history"
)

// HistoryIO handles I/O for the history command.
type HistoryIO interface {
	ConfigLoader
	HistoryOpener
}

var errHistoryDisabled = errors.New("export history is disabled: set history.path in " + config.FileName)

// NewHistoryCmd creates the history subcommand.
func NewHistoryCmd(io HistoryIO) *cobra.Command {
	return newHistoryCmdWithGetCWD(io, os.Getwd)
}

func newHistoryCmdWithGetCWD(io HistoryIO, getwd func() (string, error)) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:          "history",
		Short:        "List recorded exports, newest first",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonMode, _ := cmd.Flags().GetBool("json")

			dir, err := resolveProjectDir(cmd, getwd)
			if err != nil {
				return err
			}
			cfg, _, err := loadConfig(cmd, io, dir)
			if err != nil {
				return err
			}
			if cfg.History.Path == "" {
				return errHistoryDisabled
			}
			store, err := io.OpenHistory(cfg.History.Path)
			if err != nil {
				return fmt.Errorf("opening history: %w", err)
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("listing history: %w", err)
			}

			if jsonMode {
				if entries == nil {
					entries = []history.Entry{}
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), SubtitleStyle.Render("No exports recorded"))
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s %s  %s  %d bytes\n",
					SubtitleStyle.Render(e.ExportedAt.Local().Format(time.DateTime)),
					sanitizeText(e.Name),
					e.Version,
					ValueStyle.Render(sanitizeText(e.FileName)),
					e.SizeBytes,
				)
			}
			return nil
		},
	}

	addProjectFlag(cmd)
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum entries to show (0 for all)")
	cmd.Flags().Bool("json", false, "output entries as JSON")

	return cmd
}
