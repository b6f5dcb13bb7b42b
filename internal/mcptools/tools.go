// Package mcptools serves project operations as Model Context Protocol tools.
package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/eykd/mcaddon-go/internal/history"
	"github.com/eykd/mcaddon-go/internal/ident"
	"github.com/eykd/mcaddon-go/internal/pack"
	"github.com/eykd/mcaddon-go/internal/project"
	"github.com/eykd/mcaddon-go/internal/scriptgen"
	"github.com/eykd/mcaddon-go/internal/workspace"
)

// ServerName identifies mca to MCP clients.
const ServerName = "mca"

// Tools operates on the addon project in one directory.
type Tools struct {
	Dir       string
	IDs       ident.Generator
	Builder   *pack.Builder
	Generator *scriptgen.Generator
	History   *history.Store
	Logger    *log.Logger

	// mu serializes load-modify-save cycles.
	mu sync.Mutex
	// generation admits one outstanding generate_script call.
	generation scriptgen.Guard
}

func (t *Tools) ids() ident.Generator {
	if t.IDs == nil {
		return ident.V4
	}
	return t.IDs
}

func (t *Tools) builder() *pack.Builder {
	if t.Builder == nil {
		t.Builder = pack.NewBuilder(t.ids())
	}
	return t.Builder
}

func (t *Tools) logger() *log.Logger {
	if t.Logger == nil {
		return log.Default()
	}
	return t.Logger
}

// NewServer returns an MCP server exposing t's tools.
func NewServer(t *Tools, version string) *server.MCPServer {
	s := server.NewMCPServer(ServerName, version, server.WithToolCapabilities(false))
	t.Register(s)
	return s
}

// Register adds every tool to s.
func (t *Tools) Register(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("get_project",
		mcp.WithDescription("Return the addon project: metadata, pack identifiers and script."),
	), t.handleGetProject)

	s.AddTool(mcp.NewTool("validate_project",
		mcp.WithDescription("Check the project for problems that would make the exported addon unloadable."),
	), t.handleValidate)

	s.AddTool(mcp.NewTool("update_metadata",
		mcp.WithDescription("Set one metadata field. Versions are written as major.minor.patch."),
		mcp.WithString("field",
			mcp.Required(),
			mcp.Enum(string(project.FieldName), string(project.FieldDescription), string(project.FieldVersion),
				string(project.FieldAuthor), string(project.FieldNamespace)),
			mcp.Description("Metadata field to change"),
		),
		mcp.WithString("value", mcp.Required(), mcp.Description("New value")),
	), t.handleUpdateMetadata)

	s.AddTool(mcp.NewTool("regenerate_identifiers",
		mcp.WithDescription("Replace the behavior pack header and module UUIDs with a fresh pair."),
	), t.handleRegenerateIdentifiers)

	s.AddTool(mcp.NewTool("set_script",
		mcp.WithDescription("Replace scripts/main.js with the given JavaScript, verbatim."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Complete script source")),
	), t.handleSetScript)

	s.AddTool(mcp.NewTool("generate_script",
		mcp.WithDescription("Ask the configured text-generation provider to write scripts/main.js from a prompt."),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("What the script should do")),
	), t.handleGenerateScript)

	s.AddTool(mcp.NewTool("export_addon",
		mcp.WithDescription("Build the .mcaddon archive and write it to disk."),
		mcp.WithString("output", mcp.Description("Destination path; defaults to {name}.mcaddon in the project directory")),
	), t.handleExport)
}

func (t *Tools) handleGetProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := workspace.Load(t.Dir)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("loading project", err), nil
	}
	return jsonResult(p)
}

func (t *Tools) handleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := workspace.Load(t.Dir)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("loading project", err), nil
	}
	diags := p.Validate()
	if diags == nil {
		diags = []project.Diagnostic{}
	}
	return jsonResult(diags)
}

func (t *Tools) handleUpdateMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	field, err := req.RequireString("field")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := req.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	u, err := project.DecodeUpdate(field, raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return t.mutate(func(p *project.Project) { p.UpdateMetadata(u) })
}

func (t *Tools) handleRegenerateIdentifiers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return t.mutate(func(p *project.Project) { p.RegenerateIdentifiers(t.ids()) })
}

func (t *Tools) handleSetScript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return t.mutate(func(p *project.Project) { p.SetScriptContent(content) })
}

func (t *Tools) handleGenerateScript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.Generator == nil {
		return mcp.NewToolResultError("script generation is not configured; set MCA_AI_API_KEY"), nil
	}
	prompt, err := req.RequireString("prompt")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := t.generation.TryAcquire(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer t.generation.Release()

	text, err := t.Generator.Generate(ctx, prompt)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return t.mutate(func(p *project.Project) { p.SetScriptContent(text) })
}

// ExportResult describes a written archive.
type ExportResult struct {
	Path             string `json:"path"`
	Bytes            int    `json:"bytes"`
	ResourceHeaderID string `json:"resource_header_id"`
	ResourceModuleID string `json:"resource_module_id"`
}

func (t *Tools) handleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t.mu.Lock()
	p, err := workspace.Load(t.Dir)
	t.mu.Unlock()
	if err != nil {
		return mcp.NewToolResultErrorFromErr("loading project", err), nil
	}
	a, err := t.builder().Build(p.Snapshot())
	if err != nil {
		return mcp.NewToolResultErrorFromErr("building archive", err), nil
	}

	out := req.GetString("output", "")
	if out == "" {
		out = filepath.Join(t.Dir, a.FileName)
	} else if !filepath.IsAbs(out) {
		out = filepath.Join(t.Dir, out)
	}
	if err := workspace.WriteFileAtomic(out, a.Data, 0o644); err != nil {
		return mcp.NewToolResultErrorFromErr("writing archive", err), nil
	}
	if t.History != nil {
		if _, err := t.History.Record(ctx, history.EntryFor(a)); err != nil {
			t.logger().Warn("recording export failed", "err", err)
		}
	}

	return jsonResult(ExportResult{
		Path:             out,
		Bytes:            len(a.Data),
		ResourceHeaderID: a.ResourcePack.Header.UUID,
		ResourceModuleID: a.ResourcePack.Modules[0].UUID,
	})
}

func (t *Tools) mutate(fn func(p *project.Project)) (*mcp.CallToolResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, err := workspace.Load(t.Dir)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("loading project", err), nil
	}
	fn(p)
	if err := workspace.Save(t.Dir, p); err != nil {
		return mcp.NewToolResultErrorFromErr("saving project", err), nil
	}
	return jsonResult(p)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// Serve runs the MCP server over stdio until ctx is done or stdin closes.
func Serve(ctx context.Context, t *Tools, version string, stdin io.Reader, stdout io.Writer) error {
	if t.Dir == "" {
		return errors.New("no project directory")
	}
	return server.NewStdioServer(NewServer(t, version)).Listen(ctx, stdin, stdout)
}
