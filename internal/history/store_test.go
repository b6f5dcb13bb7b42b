package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/eykd/mcaddon-go/internal/ident"
	"github.com/eykd/mcaddon-go/internal/pack"
	"github.com/eykd/mcaddon-go/internal/project"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_MissingPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for blank path")
	}
}

func TestStore_RecordAndList(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := s.Record(ctx, Entry{
			ExportedAt:       base.Add(time.Duration(i) * time.Minute),
			Name:             fmt.Sprintf("Addon %d", i),
			Version:          "1.0.0",
			FileName:         fmt.Sprintf("Addon_%d.mcaddon", i),
			SizeBytes:        int64(100 + i),
			BehaviorHeaderID: "bh",
			BehaviorModuleID: "bm",
			ResourceHeaderID: fmt.Sprintf("rh-%d", i),
			ResourceModuleID: fmt.Sprintf("rm-%d", i),
		})
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	all, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[0].Name != "Addon 2" || all[2].Name != "Addon 0" {
		t.Errorf("order = %q, %q, %q; want newest first", all[0].Name, all[1].Name, all[2].Name)
	}
	if !all[0].ExportedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("ExportedAt = %v", all[0].ExportedAt)
	}
	if all[0].ResourceHeaderID != "rh-2" || all[0].SizeBytes != 102 {
		t.Errorf("entry = %+v", all[0])
	}

	limited, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("List(2): %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("List(2) returned %d entries", len(limited))
	}
}

func TestStore_RecordAssignsIDAndTime(t *testing.T) {
	s := openStore(t)
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	e, err := s.Record(context.Background(), Entry{Name: "x"})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if e.ID == 0 {
		t.Error("ID not assigned")
	}
	if !e.ExportedAt.Equal(fixed) {
		t.Errorf("ExportedAt = %v, want %v", e.ExportedAt, fixed)
	}
}

func TestStore_EmptyList(t *testing.T) {
	s := openStore(t)
	got, err := s.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("List = %+v, want empty", got)
	}
}

func TestStore_ReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.sqlite")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Record(context.Background(), Entry{Name: "persisted"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = s.Close() }()
	got, err := s.List(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "persisted" {
		t.Errorf("List after reopen = %+v", got)
	}
}

func TestEntryFor(t *testing.T) {
	p := project.New(ident.V4)
	p.UpdateMetadata(project.SetName("Ores Plus"))
	p.UpdateMetadata(project.SetVersion{1, 4, 2})

	a, err := pack.NewBuilder(ident.V4).Build(p.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	e := EntryFor(a)
	if e.Name != "Ores Plus" || e.Version != "1.4.2" || e.FileName != "Ores_Plus.mcaddon" {
		t.Errorf("EntryFor = %+v", e)
	}
	if e.SizeBytes != int64(len(a.Data)) {
		t.Errorf("SizeBytes = %d, want %d", e.SizeBytes, len(a.Data))
	}
	if e.BehaviorHeaderID != p.Identifiers.Header || e.BehaviorModuleID != p.Identifiers.Module {
		t.Errorf("behavior ids = %s/%s", e.BehaviorHeaderID, e.BehaviorModuleID)
	}
	if e.ResourceHeaderID != a.ResourcePack.Header.UUID || e.ResourceModuleID != a.ResourcePack.Modules[0].UUID {
		t.Errorf("resource ids = %s/%s", e.ResourceHeaderID, e.ResourceModuleID)
	}
}
