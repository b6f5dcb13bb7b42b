package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eykd/mcaddon-go/internal/project"
)

// DoctorIO handles I/O for the doctor command.
type DoctorIO interface {
	LoadProject(dir string) (*project.Project, error)
}

// NewDoctorCmd creates the doctor subcommand using os.Getwd for the working directory.
func NewDoctorCmd(io DoctorIO) *cobra.Command {
	return newDoctorCmdWithGetCWD(io, os.Getwd)
}

// newDoctorCmdWithGetCWD creates the doctor subcommand with an injectable getwd function.
func newDoctorCmdWithGetCWD(io DoctorIO, getwd func() (string, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the project for problems that would break the exported addon",
		Long: "Reports invalid or colliding pack identifiers and negative version components as\n" +
			"errors, and an empty name or script as warnings. Exits non-zero when any error is found.\n" +
			"Export never depends on this check.",
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

			diags := p.Validate()
			if jsonMode {
				if diags == nil {
					diags = []project.Diagnostic{}
				}
				_ = json.NewEncoder(cmd.OutOrStdout()).Encode(diags)
			} else if len(diags) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("No problems found"))
			} else {
				printDiagnostics(cmd, diags)
			}

			if project.HasErrors(diags) {
				return fmt.Errorf("project has errors")
			}
			return nil
		},
	}

	addProjectFlag(cmd)
	cmd.Flags().Bool("json", false, "output diagnostics as JSON array")

	return cmd
}
