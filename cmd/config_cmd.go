package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eykd/mcaddon-go/internal/config"
)

// NewConfigCmd creates the config subcommand.
func NewConfigCmd(io ConfigLoader) *cobra.Command {
	return newConfigCmdWithGetCWD(io, os.Getwd)
}

func newConfigCmdWithGetCWD(io ConfigLoader, getwd func() (string, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Long: "Prints the merged result of defaults, " + config.FileName + " and MCA_* environment\n" +
			"variables. The API key is never printed.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveProjectDir(cmd, getwd)
			if err != nil {
				return err
			}
			cfg, path, err := loadConfig(cmd, io, dir)
			if err != nil {
				return err
			}
			if path != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# loaded from %s\n", path)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "# defaults and environment only")
			}
			return config.Render(cmd.OutOrStdout(), cfg)
		},
	}

	addProjectFlag(cmd)

	return cmd
}
