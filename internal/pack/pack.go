// Package pack assembles the .mcaddon archive for an addon project.
package pack

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/eykd/mcaddon-go/internal/ident"
	"github.com/eykd/mcaddon-go/internal/manifest"
	"github.com/eykd/mcaddon-go/internal/project"
)

// Extension is the file extension Bedrock launchers associate with bundled packs.
const Extension = ".mcaddon"

const (
	behaviorSuffix = "_BP"
	resourceSuffix = "_RP"
	manifestFile   = "manifest.json"
)

// Archive is a finished addon archive.
type Archive struct {
	// FileName is the suggested download name, "{base}.mcaddon".
	FileName string
	// Data holds the complete ZIP bytes.
	Data []byte
	// BehaviorPack and ResourcePack are the manifests written into the archive.
	BehaviorPack manifest.Document
	ResourcePack manifest.Document
}

// Builder turns project snapshots into archives.
type Builder struct {
	gen      ident.Generator
	modified time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// Epoch is the entry modification time used without WithTimestamp: the earliest
// valid MS-DOS date, so identical inputs produce identical bytes.
var Epoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// WithTimestamp stamps every entry with t. A zero t keeps Epoch.
func WithTimestamp(t time.Time) Option {
	return func(b *Builder) {
		if !t.IsZero() {
			b.modified = t
		}
	}
}

// NewBuilder returns a Builder that draws resource-pack identifiers from gen.
// A nil gen means ident.V4.
func NewBuilder(gen ident.Generator, opts ...Option) *Builder {
	if gen == nil {
		gen = ident.V4
	}
	b := &Builder{gen: gen, modified: Epoch}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build assembles the archive for p in memory. The behavior pack carries p's
// identifiers and script; the resource pack gets freshly minted identifiers.
func (b *Builder) Build(p project.Project) (*Archive, error) {
	var buf bytes.Buffer
	bp, rp, err := b.write(&buf, p)
	if err != nil {
		return nil, err
	}
	return &Archive{
		FileName:     BaseName(p.Metadata.Name) + Extension,
		Data:         buf.Bytes(),
		BehaviorPack: bp,
		ResourcePack: rp,
	}, nil
}

type entry struct {
	name string
	data []byte
}

func (b *Builder) write(w io.Writer, p project.Project) (bp, rp manifest.Document, err error) {
	bp = manifest.BehaviorPack(p)
	rp = manifest.ResourcePack(p, b.gen)

	bpJSON, err := bp.Encode()
	if err != nil {
		return bp, rp, fmt.Errorf("behavior pack manifest: %w", err)
	}
	rpJSON, err := rp.Encode()
	if err != nil {
		return bp, rp, fmt.Errorf("resource pack manifest: %w", err)
	}

	base := BaseName(p.Metadata.Name)
	bpDir := base + behaviorSuffix + "/"
	rpDir := base + resourceSuffix + "/"
	entries := []entry{
		{name: bpDir},
		{name: bpDir + manifestFile, data: bpJSON},
		{name: bpDir + "scripts/"},
		{name: bpDir + manifest.ScriptEntry, data: []byte(p.ScriptContent)},
		{name: rpDir},
		{name: rpDir + manifestFile, data: rpJSON},
	}

	zw := zip.NewWriter(w)
	for _, e := range entries {
		if err := b.writeEntry(zw, e); err != nil {
			_ = zw.Close()
			return bp, rp, err
		}
	}
	if err := zw.Close(); err != nil {
		return bp, rp, fmt.Errorf("finalizing archive: %w", err)
	}
	return bp, rp, nil
}

func (b *Builder) writeEntry(zw *zip.Writer, e entry) error {
	header := &zip.FileHeader{
		Name:     e.name,
		Method:   zip.Deflate,
		Modified: b.modified,
	}
	if isDir(e.name) {
		header.Method = zip.Store
		header.SetMode(0o755 | fs.ModeDir)
	} else {
		header.SetMode(0o644)
	}
	fw, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("creating archive entry %s: %w", e.name, err)
	}
	if len(e.data) == 0 {
		return nil
	}
	if _, err := fw.Write(e.data); err != nil {
		return fmt.Errorf("writing archive entry %s: %w", e.name, err)
	}
	return nil
}

// Entry is one member of an archive as read back by ReadEntries.
type Entry struct {
	Name  string
	IsDir bool
	Data  []byte
}

// ReadEntries lists the members of a ZIP archive in stored order with their contents.
func ReadEntries(data []byte) ([]Entry, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}
	entries := make([]Entry, 0, len(zr.File))
	for _, f := range zr.File {
		e := Entry{Name: f.Name, IsDir: isDir(f.Name)}
		if !e.IsDir {
			rc, err := f.Open()
			if err != nil {
				return nil, fmt.Errorf("opening %s: %w", f.Name, err)
			}
			e.Data, err = io.ReadAll(rc)
			_ = rc.Close()
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", f.Name, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ErrMalformed reports an archive that does not have the layout Build produces.
var ErrMalformed = errors.New("malformed addon archive")

// Verify checks that data holds exactly one behavior pack and one resource pack folder,
// each with a parseable manifest, and a script at the behavior pack's manifest entry.
func Verify(data []byte) error {
	entries, err := ReadEntries(data)
	if err != nil {
		return err
	}
	files := make(map[string][]byte)
	tops := make(map[string]bool)
	for _, e := range entries {
		top, _, _ := strings.Cut(e.Name, "/")
		tops[top] = true
		if !e.IsDir {
			files[e.Name] = e.Data
		}
	}
	if len(tops) != 2 {
		return fmt.Errorf("%w: %d top-level folders, want 2", ErrMalformed, len(tops))
	}

	var bpDir, rpDir string
	for top := range tops {
		switch {
		case strings.HasSuffix(top, behaviorSuffix):
			bpDir = top
		case strings.HasSuffix(top, resourceSuffix):
			rpDir = top
		}
	}
	if bpDir == "" || rpDir == "" {
		return fmt.Errorf("%w: want one %s and one %s folder", ErrMalformed, behaviorSuffix, resourceSuffix)
	}

	bp, err := readManifest(files, bpDir)
	if err != nil {
		return err
	}
	if _, err := readManifest(files, rpDir); err != nil {
		return err
	}
	if len(bp.Modules) == 0 || bp.Modules[0].Entry == "" {
		return fmt.Errorf("%w: behavior pack has no script entry", ErrMalformed)
	}
	if _, ok := files[bpDir+"/"+bp.Modules[0].Entry]; !ok {
		return fmt.Errorf("%w: missing %s/%s", ErrMalformed, bpDir, bp.Modules[0].Entry)
	}
	return nil
}

func readManifest(files map[string][]byte, dir string) (manifest.Document, error) {
	data, ok := files[dir+"/"+manifestFile]
	if !ok {
		return manifest.Document{}, fmt.Errorf("%w: missing %s/%s", ErrMalformed, dir, manifestFile)
	}
	doc, err := manifest.Decode(data)
	if err != nil {
		return manifest.Document{}, fmt.Errorf("%w: %s: %w", ErrMalformed, dir, err)
	}
	return doc, nil
}

func isDir(name string) bool {
	return strings.HasSuffix(name, "/")
}
