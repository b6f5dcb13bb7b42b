package manifest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/eykd/mcaddon-go/internal/ident"
	"github.com/eykd/mcaddon-go/internal/project"
)

func testProject() project.Project {
	return project.Project{
		Metadata: project.Metadata{
			Name:        "Test Addon",
			Description: "A <test> & more",
			Version:     project.Version{2, 1, 0},
			Author:      "Crafter",
			Namespace:   "test",
		},
		Identifiers: project.Identifiers{
			Header: "11111111-1111-4111-8111-111111111111",
			Module: "22222222-2222-4222-8222-222222222222",
		},
		ScriptContent: "world;",
	}
}

func counter() ident.Generator {
	n := 0
	return ident.GeneratorFunc(func() string {
		n++
		return fmt.Sprintf("rp-%d", n)
	})
}

func TestBehaviorPack_UsesProjectIdentifiers(t *testing.T) {
	p := testProject()
	d := BehaviorPack(p)

	if d.FormatVersion != 2 {
		t.Errorf("FormatVersion = %d, want 2", d.FormatVersion)
	}
	if d.Header.UUID != p.Identifiers.Header {
		t.Errorf("Header.UUID = %q, want %q", d.Header.UUID, p.Identifiers.Header)
	}
	if d.Header.Name != "Test Addon" || d.Header.Description != p.Metadata.Description {
		t.Errorf("Header = %+v", d.Header)
	}
	if d.Header.Version != (project.Version{2, 1, 0}) || d.Header.MinEngineVersion != (project.Version{1, 20, 0}) {
		t.Errorf("Header versions = %v / %v", d.Header.Version, d.Header.MinEngineVersion)
	}
	if len(d.Modules) != 1 {
		t.Fatalf("len(Modules) = %d, want 1", len(d.Modules))
	}
	m := d.Modules[0]
	want := Module{
		Description: "Scripting Module",
		Type:        "script",
		Language:    "javascript",
		UUID:        p.Identifiers.Module,
		Version:     project.Version{1, 0, 0},
		Entry:       "scripts/main.js",
	}
	if m != want {
		t.Errorf("Modules[0] = %+v, want %+v", m, want)
	}
	wantDeps := []Dependency{
		{ModuleName: "@minecraft/server", Version: "1.7.0"},
		{ModuleName: "@minecraft/server-ui", Version: "1.2.0"},
	}
	if len(d.Dependencies) != len(wantDeps) {
		t.Fatalf("Dependencies = %+v", d.Dependencies)
	}
	for i := range wantDeps {
		if d.Dependencies[i] != wantDeps[i] {
			t.Errorf("Dependencies[%d] = %+v, want %+v", i, d.Dependencies[i], wantDeps[i])
		}
	}
}

func TestResourcePack_FreshIdentifiers(t *testing.T) {
	p := testProject()
	gen := counter()

	first := ResourcePack(p, gen)
	second := ResourcePack(p, gen)

	if first.Header.Name != "Test Addon RP" {
		t.Errorf("Header.Name = %q, want %q", first.Header.Name, "Test Addon RP")
	}
	if first.Header.Version != p.Metadata.Version || first.Header.Description != p.Metadata.Description {
		t.Errorf("Header = %+v", first.Header)
	}
	if first.Dependencies != nil {
		t.Errorf("Dependencies = %+v, want none", first.Dependencies)
	}
	if len(first.Modules) != 1 || first.Modules[0].Type != "resources" || first.Modules[0].Entry != "" || first.Modules[0].Language != "" {
		t.Fatalf("Modules = %+v", first.Modules)
	}
	if first.Header.UUID != "rp-1" || first.Modules[0].UUID != "rp-2" {
		t.Errorf("first ids = %s/%s, want rp-1/rp-2", first.Header.UUID, first.Modules[0].UUID)
	}
	if second.Header.UUID == first.Header.UUID || second.Modules[0].UUID == first.Modules[0].UUID {
		t.Error("successive calls reused resource-pack identifiers")
	}
}

func TestResourcePack_NeverReusesProjectIdentifiers(t *testing.T) {
	p := testProject()
	ids := []string{p.Identifiers.Header, p.Identifiers.Module, "fresh-1", "fresh-1", "fresh-2"}
	i := 0
	gen := ident.GeneratorFunc(func() string {
		id := ids[i]
		i++
		return id
	})

	d := ResourcePack(p, gen)
	if d.Header.UUID != "fresh-1" || d.Modules[0].UUID != "fresh-2" {
		t.Errorf("ids = %s/%s, want fresh-1/fresh-2", d.Header.UUID, d.Modules[0].UUID)
	}
}

func TestResourcePack_WithV4(t *testing.T) {
	p := testProject()
	d := ResourcePack(p, ident.V4)
	for _, id := range []string{d.Header.UUID, d.Modules[0].UUID} {
		if !ident.IsV4(id) {
			t.Errorf("id %q is not a UUID v4", id)
		}
		if id == p.Identifiers.Header || id == p.Identifiers.Module {
			t.Errorf("id %q reuses a project identifier", id)
		}
	}
}

func TestEncode_BehaviorPackLayout(t *testing.T) {
	b, err := BehaviorPack(testProject()).Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	want := `{
  "format_version": 2,
  "header": {
    "name": "Test Addon",
    "description": "A <test> & more",
    "uuid": "11111111-1111-4111-8111-111111111111",
    "version": [
      2,
      1,
      0
    ],
    "min_engine_version": [
      1,
      20,
      0
    ]
  },
  "modules": [
    {
      "description": "Scripting Module",
      "type": "script",
      "language": "javascript",
      "uuid": "22222222-2222-4222-8222-222222222222",
      "version": [
        1,
        0,
        0
      ],
      "entry": "scripts/main.js"
    }
  ],
  "dependencies": [
    {
      "module_name": "@minecraft/server",
      "version": "1.7.0"
    },
    {
      "module_name": "@minecraft/server-ui",
      "version": "1.2.0"
    }
  ]
}`
	if string(b) != want {
		t.Errorf("Encode() =\n%s\nwant\n%s", b, want)
	}
}

func TestEncode_ResourcePackOmitsScriptFields(t *testing.T) {
	b, err := ResourcePack(testProject(), counter()).Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	s := string(b)
	for _, absent := range []string{"dependencies", "entry", "language"} {
		if strings.Contains(s, absent) {
			t.Errorf("resource pack manifest contains %q:\n%s", absent, s)
		}
	}
}

func TestDecode_RoundTripsEncode(t *testing.T) {
	d := BehaviorPack(testProject())
	b, err := d.Encode()
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.Header != d.Header || got.Modules[0] != d.Modules[0] || len(got.Dependencies) != 2 {
		t.Errorf("Decode() = %+v, want %+v", got, d)
	}
}

func TestDecode_Invalid(t *testing.T) {
	if _, err := Decode([]byte("{")); err == nil {
		t.Error("expected error for truncated JSON")
	}
}
