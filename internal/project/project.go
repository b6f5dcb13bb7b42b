package project

import (
	"fmt"
	"strings"

	"github.com/eykd/mcaddon-go/internal/ident"
)

// DefaultScript is the sample script a new project starts with.
const DefaultScript = `import { world, system } from "@minecraft/server";

// Welcome to Minecraft Bedrock Scripting!
// This script runs on the server side of your addon.

world.afterEvents.worldInitialize.subscribe(() => {
    console.warn("Addon Loaded Successfully!");
});

world.beforeEvents.chatSend.subscribe((event) => {
    const { sender, message } = event;
    
    if (message === "!ping") {
        system.run(() => {
            sender.sendMessage("Pong! §aAddon is active.");
        });
    }
});`

// DefaultMetadata returns the metadata a new project starts with.
func DefaultMetadata() Metadata {
	return Metadata{
		Name:        "My Awesome Addon",
		Description: "Created with Addon Creator Pro",
		Version:     Version{1, 0, 0},
		Author:      "Crafter",
		Namespace:   "my_addon",
	}
}

// New creates a project with default metadata, a fresh identifier pair drawn from gen,
// and the default sample script.
func New(gen ident.Generator) *Project {
	p := &Project{
		Metadata:      DefaultMetadata(),
		ScriptContent: DefaultScript,
	}
	p.Identifiers = freshPair(gen, Identifiers{})
	return p
}

// UpdateMetadata applies a single typed field update.
func (p *Project) UpdateMetadata(u Update) {
	u.apply(&p.Metadata)
}

// RegenerateIdentifiers replaces both identifiers with two fresh values from gen.
func (p *Project) RegenerateIdentifiers(gen ident.Generator) {
	p.Identifiers = freshPair(gen, p.Identifiers)
}

// SetScriptContent replaces the script verbatim. Any text is accepted.
func (p *Project) SetScriptContent(text string) {
	p.ScriptContent = text
}

// maxRedraws bounds how often freshPair re-draws when a generator repeats itself.
const maxRedraws = 8

// freshPair draws a header/module pair whose members differ from each other and from
// both members of prev. A generator that keeps repeating gets maxRedraws attempts per
// member, after which its last value is kept.
func freshPair(gen ident.Generator, prev Identifiers) Identifiers {
	used := map[string]bool{}
	if prev.Header != "" {
		used[prev.Header] = true
	}
	if prev.Module != "" {
		used[prev.Module] = true
	}
	draw := func() string {
		var id string
		for i := 0; i < maxRedraws; i++ {
			id = gen.NewID()
			if !used[id] {
				break
			}
		}
		used[id] = true
		return id
	}
	header := draw()
	return Identifiers{Header: header, Module: draw()}
}

// Validate checks p for conditions that would make an export unloadable (errors) or
// worth reviewing (warnings). It returns nil when nothing is found. Building never
// depends on the result.
func (p *Project) Validate() []Diagnostic {
	var diags []Diagnostic

	if !ident.IsValid(p.Identifiers.Header) {
		diags = append(diags, Diagnostic{
			Code:     PRJ001,
			Severity: SeverityError,
			Message:  fmt.Sprintf("header identifier %q is not a UUID", p.Identifiers.Header),
		})
	}
	if !ident.IsValid(p.Identifiers.Module) {
		diags = append(diags, Diagnostic{
			Code:     PRJ002,
			Severity: SeverityError,
			Message:  fmt.Sprintf("module identifier %q is not a UUID", p.Identifiers.Module),
		})
	}
	if p.Identifiers.Header != "" && strings.EqualFold(p.Identifiers.Header, p.Identifiers.Module) {
		diags = append(diags, Diagnostic{
			Code:     PRJ003,
			Severity: SeverityError,
			Message:  "header and module identifiers are equal",
		})
	}
	for i, n := range p.Metadata.Version {
		if n < 0 {
			diags = append(diags, Diagnostic{
				Code:     PRJ004,
				Severity: SeverityError,
				Message:  fmt.Sprintf("version component %d is negative (%d)", i+1, n),
			})
		}
	}
	if strings.TrimSpace(p.Metadata.Name) == "" {
		diags = append(diags, Diagnostic{
			Code:     PRJW001,
			Severity: SeverityWarning,
			Message:  "addon name is empty",
		})
	}
	if strings.TrimSpace(p.ScriptContent) == "" {
		diags = append(diags, Diagnostic{
			Code:     PRJW002,
			Severity: SeverityWarning,
			Message:  "script is empty or whitespace-only",
		})
	}

	return diags
}

// HasErrors reports whether any diagnostic has error severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
