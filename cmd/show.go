package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eykd/mcaddon-go/internal/pack"
	"github.com/eykd/mcaddon-go/internal/project"
)

// ShowIO handles I/O for the show command.
type ShowIO interface {
	LoadProject(dir string) (*project.Project, error)
}

// NewShowCmd creates the show subcommand.
func NewShowCmd(io ShowIO) *cobra.Command {
	return newShowCmdWithGetCWD(io, os.Getwd)
}

func newShowCmdWithGetCWD(io ShowIO, getwd func() (string, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "show",
		Short:        "Show the addon metadata and pack identifiers",
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

			if jsonMode {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(p)
			}
			writeProjectSummary(cmd, p)
			return nil
		},
	}

	addProjectFlag(cmd)
	cmd.Flags().Bool("json", false, "output the project as JSON")

	return cmd
}

func writeProjectSummary(cmd *cobra.Command, p *project.Project) {
	out := cmd.OutOrStdout()
	m := p.Metadata
	fmt.Fprintf(out, "%s %s\n", TitleStyle.Render(sanitizeText(m.Name)), SubtitleStyle.Render("v"+m.Version.String()))
	if m.Description != "" {
		fmt.Fprintln(out, SubtitleStyle.Render(sanitizeText(m.Description)))
	}
	fmt.Fprintln(out)

	row := func(label, value string) {
		fmt.Fprintf(out, "%s%s\n", LabelStyle.Render(label), value)
	}
	row("author", sanitizeText(m.Author))
	row("namespace", sanitizeText(m.Namespace))
	row("header", ValueStyle.Render(p.Identifiers.Header))
	row("module", ValueStyle.Render(p.Identifiers.Module))
	row("script", scriptSummary(p.ScriptContent))
	row("archive", ValueStyle.Render(pack.BaseName(m.Name)+pack.Extension))
}

func scriptSummary(script string) string {
	if script == "" {
		return "empty"
	}
	lines := strings.Count(script, "\n")
	if !strings.HasSuffix(script, "\n") {
		lines++
	}
	unit := "lines"
	if lines == 1 {
		unit = "line"
	}
	return fmt.Sprintf("%d %s, %d bytes", lines, unit, len(script))
}
