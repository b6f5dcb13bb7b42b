// Package manifest derives the Bedrock pack manifests for an addon project.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/eykd/mcaddon-go/internal/ident"
	"github.com/eykd/mcaddon-go/internal/project"
)

const (
	// FormatVersion is the manifest schema version written into every manifest.
	FormatVersion = 2
	// ScriptEntry is the behavior-pack path of the script, relative to the pack root.
	ScriptEntry = "scripts/main.js"

	// ModuleTypeScript is the module type of the behavior pack's script module.
	ModuleTypeScript = "script"
	// ModuleTypeResources is the module type of the resource pack's module.
	ModuleTypeResources = "resources"
)

var (
	// MinEngineVersion is the lowest game version the packs declare support for.
	MinEngineVersion = project.Version{1, 20, 0}
	// ModuleVersion is the version of every module descriptor.
	ModuleVersion = project.Version{1, 0, 0}
)

// ScriptDependencies pins the script API modules the behavior pack imports.
func ScriptDependencies() []Dependency {
	return []Dependency{
		{ModuleName: "@minecraft/server", Version: "1.7.0"},
		{ModuleName: "@minecraft/server-ui", Version: "1.2.0"},
	}
}

// Document is a pack manifest. Field names and nesting follow Bedrock's schema.
type Document struct {
	FormatVersion int          `json:"format_version"`
	Header        Header       `json:"header"`
	Modules       []Module     `json:"modules"`
	Dependencies  []Dependency `json:"dependencies,omitempty"`
}

// Header identifies the pack.
type Header struct {
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	UUID             string          `json:"uuid"`
	Version          project.Version `json:"version"`
	MinEngineVersion project.Version `json:"min_engine_version"`
}

// Module describes one module of a pack.
type Module struct {
	Description string          `json:"description"`
	Type        string          `json:"type"`
	Language    string          `json:"language,omitempty"`
	UUID        string          `json:"uuid"`
	Version     project.Version `json:"version"`
	Entry       string          `json:"entry,omitempty"`
}

// Dependency pins a module the pack depends on.
type Dependency struct {
	ModuleName string `json:"module_name"`
	Version    string `json:"version"`
}

// BehaviorPack derives the behavior-pack manifest. Its identifiers are the project's
// stored pair.
func BehaviorPack(p project.Project) Document {
	return Document{
		FormatVersion: FormatVersion,
		Header: Header{
			Name:             p.Metadata.Name,
			Description:      p.Metadata.Description,
			UUID:             p.Identifiers.Header,
			Version:          p.Metadata.Version,
			MinEngineVersion: MinEngineVersion,
		},
		Modules: []Module{{
			Description: "Scripting Module",
			Type:        ModuleTypeScript,
			Language:    "javascript",
			UUID:        p.Identifiers.Module,
			Version:     ModuleVersion,
			Entry:       ScriptEntry,
		}},
		Dependencies: ScriptDependencies(),
	}
}

// ResourcePack derives the resource-pack manifest. Both of its identifiers are drawn
// fresh from gen on every call and never equal the project's pair or each other,
// provided gen produces distinct values.
func ResourcePack(p project.Project, gen ident.Generator) Document {
	taken := map[string]bool{p.Identifiers.Header: true, p.Identifiers.Module: true}
	fresh := func() string {
		id := gen.NewID()
		for i := 0; taken[id] && i < 8; i++ {
			id = gen.NewID()
		}
		taken[id] = true
		return id
	}
	header := fresh()
	module := fresh()

	return Document{
		FormatVersion: FormatVersion,
		Header: Header{
			Name:             p.Metadata.Name + " RP",
			Description:      p.Metadata.Description,
			UUID:             header,
			Version:          p.Metadata.Version,
			MinEngineVersion: MinEngineVersion,
		},
		Modules: []Module{{
			Description: "Resource Pack Module",
			Type:        ModuleTypeResources,
			UUID:        module,
			Version:     ModuleVersion,
		}},
	}
}

// Encode renders d as UTF-8 JSON with two-space indentation. Characters such as <, >
// and & are written literally and there is no trailing newline.
func (d Document) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Decode parses a manifest produced by Encode or by another tool.
func Decode(data []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return Document{}, fmt.Errorf("decode manifest: %w", err)
	}
	return d, nil
}
