package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/eykd/mcaddon-go/internal/history"
	"github.com/eykd/mcaddon-go/internal/ident"
	"github.com/eykd/mcaddon-go/internal/pack"
)

// ExportIO handles I/O for the export command.
type ExportIO interface {
	ProjectIO
	ConfigLoader
	HistoryOpener
	WriteArchive(path string, data []byte) error
}

// ExportResult is the --json output of export.
type ExportResult struct {
	Path             string `json:"path"`
	Bytes            int    `json:"bytes"`
	BehaviorHeaderID string `json:"behavior_header_id"`
	BehaviorModuleID string `json:"behavior_module_id"`
	ResourceHeaderID string `json:"resource_header_id"`
	ResourceModuleID string `json:"resource_module_id"`
}

// NewExportCmd creates the export subcommand.
func NewExportCmd(io ExportIO) *cobra.Command {
	return newExportCmdWithGetCWD(io, os.Getwd, ident.V4, time.Now)
}

func newExportCmdWithGetCWD(io ExportIO, getwd func() (string, error), ids ident.Generator, now func() time.Time) *cobra.Command {
	var output, timestamp string
	var verify bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Package the project as a .mcaddon archive",
		Long: "Writes <name>.mcaddon holding a behavior pack with the script and a resource pack.\n" +
			"The resource pack gets fresh identifiers on every export. Entry timestamps are\n" +
			"1980-01-01 UTC unless --timestamp is given (an RFC 3339 time, or \"now\").",
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

			var opts []pack.Option
			if timestamp != "" {
				t, err := parseTimestamp(timestamp, now)
				if err != nil {
					return err
				}
				opts = append(opts, pack.WithTimestamp(t))
			}
			archive, err := pack.NewBuilder(ids, opts...).Build(p.Snapshot())
			if err != nil {
				return fmt.Errorf("building archive: %w", err)
			}
			if verify {
				if err := pack.Verify(archive.Data); err != nil {
					return fmt.Errorf("verifying archive: %w", err)
				}
			}

			path := exportPath(dir, output, archive.FileName)
			if err := io.WriteArchive(path, archive.Data); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}

			recordExport(cmd, io, dir, archive)

			if jsonMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(ExportResult{
					Path:             path,
					Bytes:            len(archive.Data),
					BehaviorHeaderID: archive.BehaviorPack.Header.UUID,
					BehaviorModuleID: archive.BehaviorPack.Modules[0].UUID,
					ResourceHeaderID: archive.ResourcePack.Header.UUID,
					ResourceModuleID: archive.ResourcePack.Modules[0].UUID,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s (%d bytes)\n", sanitizeText(path), len(archive.Data))
			return nil
		},
	}

	addProjectFlag(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file or directory (default: <name>.mcaddon in the project directory)")
	cmd.Flags().BoolVar(&verify, "verify", false, "check the archive layout before writing it")
	cmd.Flags().StringVar(&timestamp, "timestamp", "", "entry modification time (RFC 3339 or \"now\")")
	cmd.Flags().Bool("json", false, "output the export result as JSON")

	return cmd
}

// exportPath resolves --output. An empty value or an existing directory (or a path
// ending in a separator) receives the archive's own file name.
func exportPath(dir, output, fileName string) string {
	if output == "" {
		return filepath.Join(dir, fileName)
	}
	if strings.HasSuffix(output, "/") || strings.HasSuffix(output, string(filepath.Separator)) {
		return filepath.Join(output, fileName)
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return filepath.Join(output, fileName)
	}
	return output
}

func parseTimestamp(s string, now func() time.Time) (time.Time, error) {
	if strings.EqualFold(s, "now") {
		return now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --timestamp %q: want RFC 3339 or \"now\"", s)
	}
	return t, nil
}

// recordExport appends the export to the history log when one is configured. The
// archive is already written, so failures only warn.
func recordExport(cmd *cobra.Command, io ExportIO, dir string, archive *pack.Archive) {
	cfg, _, err := loadConfig(cmd, io, dir)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), WarningStyle.Render("warning: export not recorded: "+err.Error()))
		return
	}
	if cfg.History.Path == "" {
		return
	}
	store, err := io.OpenHistory(cfg.History.Path)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), WarningStyle.Render("warning: export not recorded: "+err.Error()))
		return
	}
	defer store.Close()
	if _, err := store.Record(cmd.Context(), history.EntryFor(archive)); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), WarningStyle.Render("warning: export not recorded: "+err.Error()))
	}
}
