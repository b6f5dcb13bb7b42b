package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/eykd/mcaddon-go/internal/ident"
	"github.com/eykd/mcaddon-go/internal/project"
	"github.com/eykd/mcaddon-go/internal/workspace"
)

// InitIO handles I/O for the init command.
type InitIO interface {
	StatFile(path string) (bool, error)
	ReadFile(path string) ([]byte, error)
	SaveProject(dir string, p *project.Project) error
}

// NewInitCmd creates the init subcommand.
func NewInitCmd(io InitIO) *cobra.Command {
	return newInitCmdWithGetCWD(io, os.Getwd, ident.V4)
}

func newInitCmdWithGetCWD(io InitIO, getwd func() (string, error), ids ident.Generator) *cobra.Command {
	var force bool
	var name string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize an addon project in the current directory",
		Long: "Creates addon.yml with default metadata and a fresh pair of pack identifiers.\n" +
			"An existing scripts/main.js is kept unless --force is given; otherwise the sample script is written.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveProjectDir(cmd, getwd)
			if err != nil {
				return err
			}

			projectPath := filepath.Join(dir, workspace.ProjectFile)
			scriptPath := filepath.Join(dir, filepath.FromSlash(workspace.ScriptFile))

			projectExists, err := io.StatFile(projectPath)
			if err != nil {
				return fmt.Errorf("checking %s: %w", projectPath, err)
			}
			if projectExists && !force {
				return fmt.Errorf("%s already exists in %s; use --force to overwrite", workspace.ProjectFile, dir)
			}

			p := project.New(ids)
			if name != "" {
				p.UpdateMetadata(project.SetName(name))
			}

			scriptExists, err := io.StatFile(scriptPath)
			if err != nil {
				return fmt.Errorf("checking %s: %w", scriptPath, err)
			}
			if scriptExists && !force {
				existing, err := io.ReadFile(scriptPath)
				if err != nil {
					return fmt.Errorf("reading %s: %w", workspace.ScriptFile, err)
				}
				p.SetScriptContent(string(existing))
			}

			if err := io.SaveProject(dir, p); err != nil {
				return fmt.Errorf("writing project: %w", err)
			}

			if force && (projectExists || scriptExists) {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: overwriting existing files")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Initialized "+dir)
			return nil
		},
	}

	addProjectFlag(cmd)
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files")
	cmd.Flags().StringVar(&name, "name", "", "addon name (default: "+project.DefaultMetadata().Name+")")

	return cmd
}
