package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eykd/mcaddon-go/internal/ident"
)

// NewRegenIDsCmd creates the regen-ids subcommand.
func NewRegenIDsCmd(io ProjectIO) *cobra.Command {
	return newRegenIDsCmdWithGetCWD(io, os.Getwd, ident.V4)
}

func newRegenIDsCmdWithGetCWD(io ProjectIO, getwd func() (string, error), ids ident.Generator) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regen-ids",
		Short: "Replace the behavior pack header and module identifiers",
		Long: "Draws a fresh header/module UUID pair. Worlds that already use the addon treat the\n" +
			"result as a different pack.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonMode, _ := cmd.Flags().GetBool("json")
			dir, err := resolveProjectDir(cmd, getwd)
			if err != nil {
				return err
			}
			p, err := io.LoadProject(dir)
			if err != nil {
				return wrapLoadError(err)
			}
			p.RegenerateIdentifiers(ids)
			if err := io.SaveProject(dir, p); err != nil {
				return fmt.Errorf("saving project: %w", err)
			}

			if jsonMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(p.Identifiers)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", LabelStyle.Render("header"), ValueStyle.Render(p.Identifiers.Header))
			fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", LabelStyle.Render("module"), ValueStyle.Render(p.Identifiers.Module))
			return nil
		},
	}

	addProjectFlag(cmd)
	cmd.Flags().Bool("json", false, "output the new identifiers as JSON")

	return cmd
}
