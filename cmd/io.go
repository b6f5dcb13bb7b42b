package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/charmbracelet/log"

	"github.com/eykd/mcaddon-go/internal/config"
	"github.com/eykd/mcaddon-go/internal/history"
	"github.com/eykd/mcaddon-go/internal/mcptools"
	"github.com/eykd/mcaddon-go/internal/project"
	"github.com/eykd/mcaddon-go/internal/scriptgen"
	"github.com/eykd/mcaddon-go/internal/server"
	"github.com/eykd/mcaddon-go/internal/workspace"
)

// ProjectIO loads and saves the addon project in a directory.
type ProjectIO interface {
	LoadProject(dir string) (*project.Project, error)
	SaveProject(dir string, p *project.Project) error
}

// ConfigLoader resolves the effective configuration.
type ConfigLoader interface {
	LoadConfig(opts config.LoadOptions) (*config.Config, string, error)
}

// HistoryOpener opens the export log.
type HistoryOpener interface {
	OpenHistory(path string) (*history.Store, error)
}

// GeneratorFactory builds the script generator described by the configuration.
type GeneratorFactory interface {
	NewGenerator(cfg *config.Config, logger *log.Logger) (*scriptgen.Generator, error)
}

// errNoAPIKey explains how to enable generation.
var errNoAPIKey = fmt.Errorf("script generation needs an API key: set %s", config.EnvAPIKey)

// osIO implements every command IO interface against the real filesystem, network
// and provider SDKs.
type osIO struct{}

func newOSIO() *osIO {
	return &osIO{}
}

// StatFile returns true if the file at path exists, false if it does not.
// Returns an error only for unexpected OS errors.
func (f *osIO) StatFile(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// ReadFile reads the file at path.
func (f *osIO) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// LoadProject reads addon.yml and scripts/main.js from dir.
func (f *osIO) LoadProject(dir string) (*project.Project, error) {
	return workspace.Load(dir)
}

// SaveProject writes p into dir atomically.
func (f *osIO) SaveProject(dir string, p *project.Project) error {
	return workspace.Save(dir, p)
}

// WriteArchive writes archive bytes to path atomically.
func (f *osIO) WriteArchive(path string, data []byte) error {
	return workspace.WriteFileAtomic(path, data, 0o644)
}

// LoadConfig delegates to config.Load.
func (f *osIO) LoadConfig(opts config.LoadOptions) (*config.Config, string, error) {
	return config.Load(opts)
}

// OpenHistory opens the SQLite export log at path.
func (f *osIO) OpenHistory(path string) (*history.Store, error) {
	return history.Open(path)
}

// NewGenerator builds a generator for the configured provider.
func (f *osIO) NewGenerator(cfg *config.Config, logger *log.Logger) (*scriptgen.Generator, error) {
	provider, err := scriptgen.NewProvider(cfg.AI.Provider, cfg.AI.BaseURL, cfg.AI.APIKey)
	if err != nil {
		if errors.Is(err, scriptgen.ErrMissingAPIKey) {
			return nil, errNoAPIKey
		}
		return nil, err
	}
	return scriptgen.NewGenerator(provider,
		scriptgen.WithModel(cfg.AI.Model),
		scriptgen.WithTemperature(cfg.AI.Temperature),
		scriptgen.WithTimeout(cfg.AI.Timeout.Std()),
		scriptgen.WithLogger(logger),
	), nil
}

// Serve runs the editor server until ctx is done.
func (f *osIO) Serve(ctx context.Context, addr string, h *server.Handler, logger *log.Logger, ready func(net.Addr)) error {
	return server.Serve(ctx, addr, h, logger, ready)
}

// ServeMCP runs the MCP server over the given streams.
func (f *osIO) ServeMCP(ctx context.Context, t *mcptools.Tools, version string, in io.Reader, out io.Writer) error {
	return mcptools.Serve(ctx, t, version, in, out)
}
