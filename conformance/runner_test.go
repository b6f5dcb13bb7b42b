// Package conformance_test drives the mca binary end to end: it builds mca once in
// TestMain and runs each scenario in a fresh project directory with an isolated
// configuration home.
package conformance_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eykd/mcaddon-go/internal/manifest"
	"github.com/eykd/mcaddon-go/internal/pack"
	"github.com/eykd/mcaddon-go/internal/project"
)

// mcaBinary is the absolute path to the compiled mca binary, set by TestMain.
var mcaBinary string

// TestMain builds the mca binary to a temporary directory and runs all tests. It
// removes the temporary directory on exit regardless of test outcome.
func TestMain(m *testing.M) {
	repoRoot, err := filepath.Abs("..")
	if err != nil {
		fmt.Fprintf(os.Stderr, "filepath.Abs: %v\n", err)
		os.Exit(1)
	}

	tmpDir, err := os.MkdirTemp("", "conformance-mca-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "os.MkdirTemp: %v\n", err)
		os.Exit(1)
	}

	mcaBinary = filepath.Join(tmpDir, "mca")
	build := exec.Command("go", "build", "-o", mcaBinary, ".")
	build.Dir = repoRoot
	if out, err := build.CombinedOutput(); err != nil {
		fmt.Fprintf(os.Stderr, "go build failed: %v\n%s\n", err, out)
		os.RemoveAll(tmpDir)
		os.Exit(1)
	}

	code := m.Run()
	os.RemoveAll(tmpDir)
	os.Exit(code)
}

// ---------------------------------------------------------------------------
// Harness
// ---------------------------------------------------------------------------

type result struct {
	stdout string
	stderr string
	code   int
}

// sandbox is a project directory plus a private HOME so no user configuration or
// API key leaks into a run.
type sandbox struct {
	dir  string
	home string
	env  []string
}

func newSandbox(t *testing.T) *sandbox {
	t.Helper()
	home := t.TempDir()
	env := []string{
		"HOME=" + home,
		"XDG_CONFIG_HOME=" + filepath.Join(home, ".config"),
		"PATH=" + os.Getenv("PATH"),
		"NO_COLOR=1",
	}
	return &sandbox{dir: t.TempDir(), home: home, env: env}
}

func (s *sandbox) run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	cmd := exec.Command(mcaBinary, args...)
	cmd.Dir = s.dir
	cmd.Env = s.env
	cmd.Stdin = strings.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := result{stdout: stdout.String(), stderr: stderr.String()}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.code = exitErr.ExitCode()
	default:
		t.Fatalf("mca %s: %v", strings.Join(args, " "), err)
	}
	return res
}

// mustRun runs mca and fails the test on a non-zero exit.
func (s *sandbox) mustRun(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	res := s.run(t, stdin, args...)
	if res.code != 0 {
		t.Fatalf("mca %s: exit %d\nstdout: %s\nstderr: %s", strings.Join(args, " "), res.code, res.stdout, res.stderr)
	}
	return res
}

func (s *sandbox) writeConfig(t *testing.T, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(s.dir, "mca.toml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write mca.toml: %v", err)
	}
}

type exportResult struct {
	Path             string `json:"path"`
	Bytes            int    `json:"bytes"`
	BehaviorHeaderID string `json:"behavior_header_id"`
	BehaviorModuleID string `json:"behavior_module_id"`
	ResourceHeaderID string `json:"resource_header_id"`
	ResourceModuleID string `json:"resource_module_id"`
}

func decodeJSON[T any](t *testing.T, raw string) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("unmarshal %q: %v", raw, err)
	}
	return v
}

// ---------------------------------------------------------------------------
// Scenarios
// ---------------------------------------------------------------------------

func TestConformance_InitCreatesProjectFiles(t *testing.T) {
	s := newSandbox(t)
	s.mustRun(t, "", "init")

	for _, name := range []string{"addon.yml", filepath.Join("scripts", "main.js")} {
		if _, err := os.Stat(filepath.Join(s.dir, name)); err != nil {
			t.Errorf("expected %s after init: %v", name, err)
		}
	}

	res := s.run(t, "", "init")
	if res.code == 0 {
		t.Error("second init without --force should fail")
	}
}

func TestConformance_ExportTestAddonWithEmptyScript(t *testing.T) {
	s := newSandbox(t)
	s.mustRun(t, "", "init")
	s.mustRun(t, "", "set", "name", "Test Addon")
	s.mustRun(t, "", "set", "version", "2.1.0")
	s.mustRun(t, "", "script", "--stdin")

	res := s.mustRun(t, "", "export", "--verify", "--json")
	out := decodeJSON[exportResult](t, res.stdout)

	if filepath.Base(out.Path) != "Test_Addon.mcaddon" {
		t.Errorf("archive name = %q, want Test_Addon.mcaddon", filepath.Base(out.Path))
	}
	data, err := os.ReadFile(out.Path)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	if len(data) != out.Bytes {
		t.Errorf("reported %d bytes, file has %d", out.Bytes, len(data))
	}
	if err := pack.Verify(data); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	entries, err := pack.ReadEntries(data)
	if err != nil {
		t.Fatalf("ReadEntries: %v", err)
	}
	files := map[string][]byte{}
	for _, e := range entries {
		if !e.IsDir {
			files[e.Name] = e.Data
		}
	}
	script, ok := files["Test_Addon_BP/scripts/main.js"]
	if !ok {
		t.Fatal("missing Test_Addon_BP/scripts/main.js")
	}
	if len(script) != 0 {
		t.Errorf("script = %q, want empty", script)
	}

	bp, err := manifest.Decode(files["Test_Addon_BP/manifest.json"])
	if err != nil {
		t.Fatalf("decode BP manifest: %v", err)
	}
	if bp.Header.Name != "Test Addon" {
		t.Errorf("BP name = %q", bp.Header.Name)
	}
	if bp.Header.Version != (project.Version{2, 1, 0}) {
		t.Errorf("BP version = %v, want [2 1 0]", bp.Header.Version)
	}
	if bp.Header.UUID != out.BehaviorHeaderID {
		t.Errorf("BP header %q, reported %q", bp.Header.UUID, out.BehaviorHeaderID)
	}

	rp, err := manifest.Decode(files["Test_Addon_RP/manifest.json"])
	if err != nil {
		t.Fatalf("decode RP manifest: %v", err)
	}
	if rp.Header.Name != "Test Addon RP" {
		t.Errorf("RP name = %q", rp.Header.Name)
	}
}

func TestConformance_ResourcePackIdentifiersFreshPerExport(t *testing.T) {
	s := newSandbox(t)
	s.mustRun(t, "", "init")

	first := decodeJSON[exportResult](t, s.mustRun(t, "", "export", "--json").stdout)
	second := decodeJSON[exportResult](t, s.mustRun(t, "", "export", "--json").stdout)

	if first.BehaviorHeaderID != second.BehaviorHeaderID {
		t.Error("behavior pack header changed between exports")
	}
	if first.ResourceHeaderID == second.ResourceHeaderID {
		t.Error("resource pack header reused between exports")
	}
}

func TestConformance_RegenIDsChangesBehaviorPack(t *testing.T) {
	s := newSandbox(t)
	s.mustRun(t, "", "init")
	before := decodeJSON[exportResult](t, s.mustRun(t, "", "export", "--json").stdout)
	s.mustRun(t, "", "regen-ids")
	after := decodeJSON[exportResult](t, s.mustRun(t, "", "export", "--json").stdout)

	if before.BehaviorHeaderID == after.BehaviorHeaderID || before.BehaviorModuleID == after.BehaviorModuleID {
		t.Error("regen-ids did not replace the behavior pack identifiers")
	}
}

func TestConformance_ScriptRoundTripsVerbatim(t *testing.T) {
	s := newSandbox(t)
	s.mustRun(t, "", "init")
	src := "import { world } from \"@minecraft/server\";\r\n\tworld.sendMessage(\"héllo\");\n\n"
	s.mustRun(t, src, "script", "--stdin")

	res := s.mustRun(t, "", "script")
	if res.stdout != src {
		t.Errorf("script = %q, want %q", res.stdout, src)
	}
}

func TestConformance_SetRejectsMalformedVersion(t *testing.T) {
	s := newSandbox(t)
	s.mustRun(t, "", "init")
	res := s.run(t, "", "set", "version", "1.x.0")
	if res.code == 0 {
		t.Fatal("expected non-zero exit for malformed version")
	}
	show := decodeJSON[map[string]any](t, s.mustRun(t, "", "show", "--json").stdout)
	meta := show["metadata"].(map[string]any)
	if v := fmt.Sprint(meta["version"]); v != "[1 0 0]" {
		t.Errorf("version changed to %s after rejected set", v)
	}
}

func TestConformance_DoctorReportsEmptyScriptAsWarning(t *testing.T) {
	s := newSandbox(t)
	s.mustRun(t, "", "init")
	res := s.mustRun(t, "", "doctor")
	if !strings.Contains(res.stdout, "No problems found") {
		t.Errorf("doctor on fresh project: %q", res.stdout)
	}

	s.mustRun(t, "   \n", "script", "--stdin")
	res = s.mustRun(t, "", "doctor")
	if !strings.Contains(res.stdout, "PRJW002") {
		t.Errorf("doctor output missing PRJW002: %q", res.stdout)
	}
}

func TestConformance_UninitializedDirectory(t *testing.T) {
	s := newSandbox(t)
	for _, args := range [][]string{{"show"}, {"export"}, {"doctor"}, {"set", "name", "x"}} {
		res := s.run(t, "", args...)
		if res.code == 0 {
			t.Errorf("mca %s succeeded without a project", strings.Join(args, " "))
		}
		if !strings.Contains(res.stderr, "mca init") {
			t.Errorf("mca %s stderr = %q, want hint to run mca init", strings.Join(args, " "), res.stderr)
		}
	}
}

func TestConformance_HistoryRecordsExports(t *testing.T) {
	s := newSandbox(t)
	s.mustRun(t, "", "init")
	s.writeConfig(t, fmt.Sprintf("[history]\npath = %q\n", filepath.Join(s.home, "history.db")))

	s.mustRun(t, "", "export")
	s.mustRun(t, "", "set", "version", "1.1.0")
	s.mustRun(t, "", "export")

	entries := decodeJSON[[]map[string]any](t, s.mustRun(t, "", "history", "--json").stdout)
	if len(entries) != 2 {
		t.Fatalf("history has %d entries, want 2", len(entries))
	}
	if entries[0]["version"] != "1.1.0" {
		t.Errorf("newest entry version = %v, want 1.1.0", entries[0]["version"])
	}
	if entries[0]["resource_header_id"] == entries[1]["resource_header_id"] {
		t.Error("history shows the same resource pack header twice")
	}
}

func TestConformance_HistoryDisabledByDefault(t *testing.T) {
	s := newSandbox(t)
	res := s.run(t, "", "history")
	if res.code == 0 {
		t.Error("history without history.path should fail")
	}
}

func TestConformance_ConfigNeverPrintsAPIKey(t *testing.T) {
	s := newSandbox(t)
	s.env = append(s.env, "MCA_AI_API_KEY=sk-conformance-secret", "MCA_AI_PROVIDER=anthropic")
	res := s.mustRun(t, "", "config")
	if strings.Contains(res.stdout, "sk-conformance-secret") {
		t.Error("config output contains the API key")
	}
	if !strings.Contains(res.stdout, `provider = "anthropic"`) {
		t.Errorf("config output missing env override:\n%s", res.stdout)
	}
}

func TestConformance_ConfigRejectsKeyInFile(t *testing.T) {
	s := newSandbox(t)
	s.writeConfig(t, "[ai]\napi_key = \"sk-in-file\"\n")
	res := s.run(t, "", "config")
	if res.code == 0 {
		t.Error("config with ai.api_key in file should fail")
	}
}

func TestConformance_GenerateWithoutKeyFails(t *testing.T) {
	s := newSandbox(t)
	s.mustRun(t, "", "init")
	before := s.mustRun(t, "", "script").stdout

	res := s.run(t, "", "generate", "make a sword")
	if res.code == 0 {
		t.Fatal("generate without an API key should fail")
	}
	if !strings.Contains(res.stderr, "MCA_AI_API_KEY") {
		t.Errorf("stderr = %q, want MCA_AI_API_KEY hint", res.stderr)
	}
	if after := s.mustRun(t, "", "script").stdout; after != before {
		t.Error("failed generate modified the script")
	}
}
