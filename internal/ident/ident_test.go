package ident

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewV4_IsVersion4(t *testing.T) {
	for i := 0; i < 50; i++ {
		id := NewV4()
		if !IsV4(id) {
			t.Fatalf("NewV4() = %q, want a canonical UUID v4", id)
		}
		if id != strings.ToLower(id) {
			t.Errorf("NewV4() = %q, want lowercase", id)
		}
	}
}

func TestNewV4_Distinct(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := V4.NewID()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q after %d calls", id, i)
		}
		seen[id] = struct{}{}
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"canonical v4", "3f2504e0-4f89-41d3-9a0c-0305e82c3301", true},
		{"uppercase", "3F2504E0-4F89-41D3-9A0C-0305E82C3301", true},
		{"v7", "01234567-89ab-7def-8123-456789abcdef", true},
		{"empty", "", false},
		{"braced", "{3f2504e0-4f89-41d3-9a0c-0305e82c3301}", false},
		{"urn", "urn:uuid:3f2504e0-4f89-41d3-9a0c-0305e82c3301", false},
		{"no hyphens", "3f2504e04f8941d39a0c0305e82c3301", false},
		{"not hex", "zf2504e0-4f89-41d3-9a0c-0305e82c3301", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValid(tt.in); got != tt.want {
				t.Errorf("IsValid(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsV4_RejectsOtherVersions(t *testing.T) {
	v7, err := uuid.NewV7()
	if err != nil {
		t.Fatalf("uuid.NewV7() error = %v", err)
	}
	if IsV4(v7.String()) {
		t.Errorf("IsV4(%q) = true for a v7 UUID", v7)
	}
}

func TestGeneratorFunc(t *testing.T) {
	g := GeneratorFunc(func() string { return "fixed" })
	if got := g.NewID(); got != "fixed" {
		t.Errorf("NewID() = %q, want %q", got, "fixed")
	}
}
