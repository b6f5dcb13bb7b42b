package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eykd/mcaddon-go/internal/scriptgen"
)

// GenerateIO handles I/O for the generate command.
type GenerateIO interface {
	ProjectIO
	ConfigLoader
	GeneratorFactory
}

// NewGenerateCmd creates the generate subcommand.
func NewGenerateCmd(io GenerateIO) *cobra.Command {
	return newGenerateCmdWithGetCWD(io, os.Getwd)
}

func newGenerateCmdWithGetCWD(io GenerateIO, getwd func() (string, error)) *cobra.Command {
	var printScript bool

	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Write scripts/main.js from a prompt using the configured AI provider",
		Long: "Sends the prompt to the configured provider and replaces scripts/main.js with the\n" +
			"returned code. If the provider fails or times out, the script is replaced by a\n" +
			"placeholder comment and a warning is printed.",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")
			if strings.TrimSpace(prompt) == "" {
				return scriptgen.ErrEmptyPrompt
			}
			dir, err := resolveProjectDir(cmd, getwd)
			if err != nil {
				return err
			}
			p, err := io.LoadProject(dir)
			if err != nil {
				return wrapLoadError(err)
			}
			cfg, _, err := loadConfig(cmd, io, dir)
			if err != nil {
				return err
			}
			gen, err := io.NewGenerator(cfg, newLogger(cmd, cfg, "scriptgen"))
			if err != nil {
				return err
			}

			if err := gen.Apply(cmd.Context(), p, prompt); err != nil {
				if errors.Is(err, scriptgen.ErrEmptyPrompt) {
					return err
				}
				return fmt.Errorf("generating script: %w", err)
			}
			if err := io.SaveProject(dir, p); err != nil {
				return fmt.Errorf("saving project: %w", err)
			}

			if p.ScriptContent == scriptgen.Placeholder {
				fmt.Fprintln(cmd.ErrOrStderr(), WarningStyle.Render("warning: generation failed; scripts/main.js now holds a placeholder"))
			}
			if printScript {
				fmt.Fprintln(cmd.OutOrStdout(), p.ScriptContent)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated scripts/main.js (%d bytes)\n", len(p.ScriptContent))
			return nil
		},
	}

	addProjectFlag(cmd)
	cmd.Flags().BoolVar(&printScript, "print", false, "print the generated script")

	return cmd
}
