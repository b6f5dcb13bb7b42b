package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/eykd/mcaddon-go/internal/project"
)

// ScriptIO handles I/O for the script command.
type ScriptIO interface {
	ProjectIO
	ReadFile(path string) ([]byte, error)
}

// NewScriptCmd creates the script subcommand.
func NewScriptCmd(sio ScriptIO) *cobra.Command {
	return newScriptCmdWithGetCWD(sio, os.Getwd)
}

func newScriptCmdWithGetCWD(sio ScriptIO, getwd func() (string, error)) *cobra.Command {
	var file string
	var fromStdin bool

	cmd := &cobra.Command{
		Use:   "script",
		Short: "Print or replace scripts/main.js",
		Long: "Without flags, prints the script exactly as stored. With --file or --stdin, replaces\n" +
			"it with the given text byte for byte.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file != "" && fromStdin {
				return errors.New("--file and --stdin are mutually exclusive")
			}
			dir, err := resolveProjectDir(cmd, getwd)
			if err != nil {
				return err
			}
			p, err := sio.LoadProject(dir)
			if err != nil {
				return wrapLoadError(err)
			}

			var text []byte
			switch {
			case file != "":
				text, err = sio.ReadFile(file)
				if err != nil {
					return fmt.Errorf("reading %s: %w", file, err)
				}
			case fromStdin:
				text, err = io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
			default:
				_, err := io.WriteString(cmd.OutOrStdout(), p.ScriptContent)
				return err
			}

			return replaceScript(cmd, sio, dir, p, string(text))
		},
	}

	addProjectFlag(cmd)
	cmd.Flags().StringVar(&file, "file", "", "replace the script with the contents of this file")
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "replace the script with standard input")

	return cmd
}

func replaceScript(cmd *cobra.Command, sio ProjectIO, dir string, p *project.Project, text string) error {
	p.SetScriptContent(text)
	if err := sio.SaveProject(dir, p); err != nil {
		return fmt.Errorf("saving project: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated scripts/main.js (%d bytes)\n", len(text))
	return nil
}
