// Package ident mints the textual UUIDs Bedrock uses to identify packs and modules.
package ident

import (
	"regexp"

	"github.com/google/uuid"
)

// Generator produces identifier strings.
type Generator interface {
	NewID() string
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func() string

// NewID calls f.
func (f GeneratorFunc) NewID() string {
	return f()
}

// V4 is the default generator: random UUID v4 strings.
var V4 Generator = GeneratorFunc(NewV4)

// NewV4 returns a fresh random UUID v4 in canonical lowercase 8-4-4-4-12 form.
func NewV4() string {
	return uuid.NewString()
}

// canonicalRE matches the canonical 36-character hyphenated UUID form.
// uuid.Parse alone also accepts urn:, braced and unhyphenated forms.
var canonicalRE = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsValid reports whether s is a UUID in canonical textual form.
func IsValid(s string) bool {
	if !canonicalRE.MatchString(s) {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// IsV4 reports whether s is a canonical UUID with version 4 and the RFC 4122 variant.
func IsV4(s string) bool {
	if !IsValid(s) {
		return false
	}
	u := uuid.MustParse(s)
	return u.Version() == 4 && u.Variant() == uuid.RFC4122
}
