package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eykd/mcaddon-go/internal/project"
)

// NewSetCmd creates the set subcommand.
func NewSetCmd(io ProjectIO) *cobra.Command {
	return newSetCmdWithGetCWD(io, os.Getwd)
}

func newSetCmdWithGetCWD(io ProjectIO, getwd func() (string, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <field> <value>",
		Short: "Set one metadata field",
		Long: "Sets name, description, author, namespace or version. Versions are written as\n" +
			"major.minor.patch, e.g. mca set version 1.2.0. Any value is accepted for the text fields.",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		ValidArgs: []string{
			string(project.FieldName), string(project.FieldDescription), string(project.FieldVersion),
			string(project.FieldAuthor), string(project.FieldNamespace),
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonMode, _ := cmd.Flags().GetBool("json")
			field := strings.ToLower(strings.TrimSpace(args[0]))
			raw, err := json.Marshal(args[1])
			if err != nil {
				return err
			}
			u, err := project.DecodeUpdate(field, raw)
			if err != nil {
				return err
			}

			dir, err := resolveProjectDir(cmd, getwd)
			if err != nil {
				return err
			}
			p, err := io.LoadProject(dir)
			if err != nil {
				return wrapLoadError(err)
			}
			p.UpdateMetadata(u)
			if err := io.SaveProject(dir, p); err != nil {
				return fmt.Errorf("saving project: %w", err)
			}

			if jsonMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(p.Metadata)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", u.Field(), sanitizeText(fieldValue(p.Metadata, u.Field())))
			return nil
		},
	}

	addProjectFlag(cmd)
	cmd.Flags().Bool("json", false, "output the resulting metadata as JSON")

	return cmd
}

func fieldValue(m project.Metadata, f project.Field) string {
	switch f {
	case project.FieldName:
		return m.Name
	case project.FieldDescription:
		return m.Description
	case project.FieldVersion:
		return m.Version.String()
	case project.FieldAuthor:
		return m.Author
	case project.FieldNamespace:
		return m.Namespace
	}
	return ""
}
