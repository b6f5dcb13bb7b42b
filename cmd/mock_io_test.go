package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/eykd/mcaddon-go/internal/config"
	"github.com/eykd/mcaddon-go/internal/history"
	"github.com/eykd/mcaddon-go/internal/ident"
	"github.com/eykd/mcaddon-go/internal/mcptools"
	"github.com/eykd/mcaddon-go/internal/project"
	"github.com/eykd/mcaddon-go/internal/scriptgen"
	"github.com/eykd/mcaddon-go/internal/server"
	"github.com/eykd/mcaddon-go/internal/workspace"
)

// ─── Test fixtures ──────────────────────────────────────────────────────────

const testDir = "/work/addon"

func fixedCWD() (string, error) { return testDir, nil }

// counter yields canonical v4-shaped identifiers ending in 1, 2, 3, ...
func counter() ident.Generator {
	n := 0
	return ident.GeneratorFunc(func() string {
		n++
		return fmt.Sprintf("00000000-0000-4000-8000-%012d", n)
	})
}

func testProject() *project.Project {
	return &project.Project{
		Metadata: project.Metadata{
			Name:        "Test Addon",
			Description: "For testing",
			Version:     project.Version{2, 1, 0},
			Author:      "Crafter",
			Namespace:   "test",
		},
		Identifiers: project.Identifiers{
			Header: "11111111-1111-4111-8111-111111111111",
			Module: "22222222-2222-4222-8222-222222222222",
		},
		ScriptContent: "console.warn(\"hi\");\n",
	}
}

// fakeProvider returns canned text or an error and records requests.
type fakeProvider struct {
	text     string
	err      error
	requests []scriptgen.Request
}

func (f *fakeProvider) Complete(_ context.Context, req scriptgen.Request) (string, error) {
	f.requests = append(f.requests, req)
	return f.text, f.err
}

// mockIO is a test double for every command IO interface. Projects live in memory
// keyed by directory; history uses a real SQLite store under a temp directory.
type mockIO struct {
	projects map[string]*project.Project
	loadErr  error
	saveErr  error
	saves    int

	files   map[string][]byte
	statErr error

	cfg      *config.Config
	cfgPath  string
	cfgErr   error
	cfgCalls []config.LoadOptions

	openErr error

	provider *fakeProvider
	genErr   error

	archives map[string][]byte
	writeErr error

	serve    func(ctx context.Context, addr string, h *server.Handler, ready func(net.Addr)) error
	serveMCP func(ctx context.Context, t *mcptools.Tools, version string, in io.Reader, out io.Writer) error
}

func newMockIO() *mockIO {
	return &mockIO{
		projects: map[string]*project.Project{},
		files:    map[string][]byte{},
		cfg:      config.DefaultConfig(),
		provider: &fakeProvider{text: "```javascript\nworld.sendMessage(\"hi\");\n```"},
		archives: map[string][]byte{},
	}
}

// withProject stores a copy of p at testDir.
func (m *mockIO) withProject(p *project.Project) *mockIO {
	cp := *p
	m.projects[testDir] = &cp
	return m
}

// withHistory points the configuration at a fresh history database.
func (m *mockIO) withHistory(t *testing.T) *mockIO {
	t.Helper()
	m.cfg.History.Path = filepath.Join(t.TempDir(), "history.db")
	return m
}

func (m *mockIO) project(t *testing.T) *project.Project {
	t.Helper()
	p, ok := m.projects[testDir]
	if !ok {
		t.Fatalf("no project saved at %s", testDir)
	}
	return p
}

func (m *mockIO) LoadProject(dir string) (*project.Project, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	p, ok := m.projects[dir]
	if !ok {
		return nil, workspace.ErrNotInitialized
	}
	cp := *p
	return &cp, nil
}

func (m *mockIO) SaveProject(dir string, p *project.Project) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := *p
	m.projects[dir] = &cp
	m.saves++
	return nil
}

func (m *mockIO) StatFile(path string) (bool, error) {
	if m.statErr != nil {
		return false, m.statErr
	}
	if _, ok := m.files[path]; ok {
		return true, nil
	}
	if filepath.Base(path) == workspace.ProjectFile {
		_, ok := m.projects[filepath.Dir(path)]
		return ok, nil
	}
	return false, nil
}

func (m *mockIO) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("open %s: file does not exist", path)
	}
	return data, nil
}

func (m *mockIO) LoadConfig(opts config.LoadOptions) (*config.Config, string, error) {
	m.cfgCalls = append(m.cfgCalls, opts)
	if m.cfgErr != nil {
		return nil, "", m.cfgErr
	}
	return m.cfg, m.cfgPath, nil
}

func (m *mockIO) OpenHistory(path string) (*history.Store, error) {
	if m.openErr != nil {
		return nil, m.openErr
	}
	return history.Open(path)
}

func (m *mockIO) NewGenerator(cfg *config.Config, logger *log.Logger) (*scriptgen.Generator, error) {
	if m.genErr != nil {
		return nil, m.genErr
	}
	return scriptgen.NewGenerator(m.provider, scriptgen.WithModel(cfg.AI.Model), scriptgen.WithLogger(logger)), nil
}

func (m *mockIO) WriteArchive(path string, data []byte) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.archives[path] = data
	return nil
}

func (m *mockIO) Serve(ctx context.Context, addr string, h *server.Handler, _ *log.Logger, ready func(net.Addr)) error {
	if m.serve == nil {
		return nil
	}
	return m.serve(ctx, addr, h, ready)
}

func (m *mockIO) ServeMCP(ctx context.Context, t *mcptools.Tools, version string, in io.Reader, out io.Writer) error {
	if m.serveMCP == nil {
		return nil
	}
	return m.serveMCP(ctx, t, version, in, out)
}

// execute runs c with args and returns stdout, stderr and the error.
func execute(c *cobra.Command, args ...string) (string, string, error) {
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	c.SetOut(out)
	c.SetErr(errOut)
	c.SetArgs(args)
	err := c.Execute()
	return out.String(), errOut.String(), err
}
