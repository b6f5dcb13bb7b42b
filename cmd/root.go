// Package cmd implements the mca CLI commands.
package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/eykd/mcaddon-go/internal/config"
	"github.com/eykd/mcaddon-go/internal/project"
	"github.com/eykd/mcaddon-go/internal/workspace"
)

// NewRootCmd creates the root mca command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mca",
		Short:         "mca - Minecraft Bedrock addon project tool",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE:          rootRunE,
	}
	root.PersistentFlags().String("config", "", "config file (default: ./mca.toml, then the user config directory)")

	io := newOSIO()
	root.AddCommand(NewInitCmd(io))
	root.AddCommand(NewShowCmd(io))
	root.AddCommand(NewSetCmd(io))
	root.AddCommand(NewRegenIDsCmd(io))
	root.AddCommand(NewScriptCmd(io))
	root.AddCommand(NewGenerateCmd(io))
	root.AddCommand(NewExportCmd(io))
	root.AddCommand(NewDoctorCmd(io))
	root.AddCommand(NewHistoryCmd(io))
	root.AddCommand(NewServeCmd(io))
	root.AddCommand(NewMCPCmd(io))
	root.AddCommand(NewConfigCmd(io))
	return root
}

func rootRunE(cmd *cobra.Command, _ []string) error {
	return cmd.Help()
}

// addProjectFlag registers the --project flag shared by project commands.
func addProjectFlag(cmd *cobra.Command) {
	cmd.Flags().String("project", "", "project directory (default: current directory)")
}

// resolveProjectDir returns --project, or the working directory when it is unset.
func resolveProjectDir(cmd *cobra.Command, getwd func() (string, error)) (string, error) {
	dir, _ := cmd.Flags().GetString("project")
	if dir != "" {
		return dir, nil
	}
	cwd, err := getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return cwd, nil
}

// wrapLoadError adds context to a project load failure. ErrNotInitialized passes
// through unwrapped so its hint reaches the user verbatim.
func wrapLoadError(err error) error {
	if errors.Is(err, workspace.ErrNotInitialized) {
		return err
	}
	return fmt.Errorf("loading project: %w", err)
}

// loadConfig resolves configuration honoring the root --config flag. workDir is
// searched for mca.toml.
func loadConfig(cmd *cobra.Command, io ConfigLoader, workDir string) (*config.Config, string, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, resolved, err := io.LoadConfig(config.LoadOptions{ConfigFile: path, WorkDir: workDir})
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	return cfg, resolved, nil
}

// newLogger builds the command logger on stderr. stdout stays reserved for command
// output and, for mca mcp, the protocol stream.
func newLogger(cmd *cobra.Command, cfg *config.Config, component string) *log.Logger {
	return config.NewLogger(cmd.ErrOrStderr(), cfg.Log).WithPrefix(component)
}

// printDiagnostics writes each diagnostic in human-readable form.
func printDiagnostics(cmd *cobra.Command, diags []project.Diagnostic) {
	for _, d := range diags {
		style := WarningStyle
		if d.Severity == project.SeverityError {
			style = ErrorStyle
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n",
			string(d.Code),
			style.Render(string(d.Severity)),
			sanitizeText(d.Message),
		)
	}
}
