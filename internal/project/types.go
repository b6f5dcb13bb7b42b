// Package project defines the addon project aggregate and the operations that mutate it.
package project

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a major.minor.patch triple as Bedrock manifests write it: [1, 0, 0].
type Version [3]int

// String formats v as "major.minor.patch".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2])
}

// ParseVersion parses "major.minor.patch" into a Version. Each component must be a
// non-negative decimal integer.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("version %q must have exactly three components", s)
	}
	var v Version
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Version{}, fmt.Errorf("version %q: component %d is not an integer", s, i+1)
		}
		if n < 0 {
			return Version{}, fmt.Errorf("version %q: component %d is negative", s, i+1)
		}
		v[i] = n
	}
	return v, nil
}

// Metadata holds the user-facing descriptive fields of an addon.
type Metadata struct {
	// Name is the display name; it also derives the archive folder and file names.
	Name string `json:"name" yaml:"name"`
	// Description is free text copied into both manifests.
	Description string `json:"description" yaml:"description"`
	// Version is the addon version written into both manifest headers.
	Version Version `json:"version" yaml:"version,flow"`
	// Author is free text; it is not written into the manifests.
	Author string `json:"author" yaml:"author"`
	// Namespace is a free text identifier reserved for future manifest fields.
	Namespace string `json:"namespace" yaml:"namespace"`
}

// Identifiers is the header/module UUID pair identifying the behavior pack and its
// script module. The two are always replaced together.
type Identifiers struct {
	Header string `json:"header" yaml:"header"`
	Module string `json:"module" yaml:"module"`
}

// Project is the addon being edited.
type Project struct {
	Metadata      Metadata    `json:"metadata"`
	Identifiers   Identifiers `json:"identifiers"`
	ScriptContent string      `json:"scriptContent"`
}

// Snapshot returns a copy of p that later mutations of p do not affect.
func (p *Project) Snapshot() Project {
	return *p
}

// DiagnosticCode identifies a specific project check.
type DiagnosticCode string

const (
	// PRJ001 indicates the header identifier is not a canonical UUID.
	PRJ001 DiagnosticCode = "PRJ001"
	// PRJ002 indicates the module identifier is not a canonical UUID.
	PRJ002 DiagnosticCode = "PRJ002"
	// PRJ003 indicates the header and module identifiers are equal.
	PRJ003 DiagnosticCode = "PRJ003"
	// PRJ004 indicates a version component is negative.
	PRJ004 DiagnosticCode = "PRJ004"
	// PRJW001 is a warning that the addon name is empty.
	PRJW001 DiagnosticCode = "PRJW001"
	// PRJW002 is a warning that the script is empty or whitespace-only.
	PRJW002 DiagnosticCode = "PRJW002"
)

// Severity classifies the impact level of a diagnostic.
type Severity string

const (
	// SeverityError indicates a condition that would make the exported addon unloadable.
	SeverityError Severity = "error"
	// SeverityWarning indicates a condition that should be reviewed.
	SeverityWarning Severity = "warning"
)

// Diagnostic is a single finding produced by Validate.
type Diagnostic struct {
	Code     DiagnosticCode `json:"code"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message"`
}
