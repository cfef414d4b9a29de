// internal/storage/storage_test.go
package storage

import (
	"errors"
	"os"
	"testing"

	"github.com/spf13/afero"
)

func newFS(t *testing.T) *FS {
	t.Helper()
	mem := afero.NewMemMapFs()
	if err := mem.MkdirAll("/PROGS", 0o755); err != nil {
		t.Fatalf("MkdirAll err=%v", err)
	}
	if err := afero.WriteFile(mem, "/PROGS/GAME.BAS", []byte("10 PRINT"), 0o644); err != nil {
		t.Fatalf("WriteFile err=%v", err)
	}
	return New(mem)
}

func TestResolve_RelativeToCwd(t *testing.T) {
	s := newFS(t)

	if err := s.Chdir("PROGS"); err != nil {
		t.Fatalf("Chdir err=%v", err)
	}
	p, err := s.Resolve("GAME.BAS")
	if err != nil {
		t.Fatalf("Resolve err=%v", err)
	}
	if p != "/PROGS/GAME.BAS" {
		t.Fatalf("expected /PROGS/GAME.BAS, got %s", p)
	}

	p, _ = s.Resolve("../X")
	if p != "/X" {
		t.Fatalf("expected /X, got %s", p)
	}
	p, _ = s.Resolve("../../..")
	if p != "/" {
		t.Fatalf("escape above root must clamp, got %s", p)
	}
}

func TestResolve_RejectsControlChars(t *testing.T) {
	s := newFS(t)
	if _, err := s.Resolve("A\x01B"); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestChdir_NotADirectory(t *testing.T) {
	s := newFS(t)
	if err := s.Chdir("/PROGS/GAME.BAS"); !errors.Is(err, ErrNotDir) {
		t.Fatalf("expected ErrNotDir, got %v", err)
	}
	if s.Cwd() != "/" {
		t.Fatalf("cwd changed on failure: %s", s.Cwd())
	}
}

func TestOpenFile_DirectoryRejected(t *testing.T) {
	s := newFS(t)
	if _, err := s.OpenFile("/PROGS", os.O_RDONLY); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestOpenFile_Missing(t *testing.T) {
	s := newFS(t)
	if _, err := s.OpenFile("NOPE", os.O_RDONLY); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist, got %v", err)
	}
}

func TestRename_TargetExists(t *testing.T) {
	s := newFS(t)
	if err := afero.WriteFile(s.Afero(), "/PROGS/B", nil, 0o644); err != nil {
		t.Fatalf("WriteFile err=%v", err)
	}
	if err := s.Rename("/PROGS/GAME.BAS", "/PROGS/B"); !errors.Is(err, os.ErrExist) {
		t.Fatalf("expected exist error, got %v", err)
	}
	if err := s.Rename("/PROGS/GAME.BAS", "/PROGS/C"); err != nil {
		t.Fatalf("Rename err=%v", err)
	}
	if _, err := s.Stat("/PROGS/C"); err != nil {
		t.Fatalf("renamed file missing: %v", err)
	}
}

func TestOpenDir_File(t *testing.T) {
	s := newFS(t)
	if _, err := s.OpenDir("/PROGS/GAME.BAS"); !errors.Is(err, ErrNotDir) {
		t.Fatalf("expected ErrNotDir, got %v", err)
	}
	d, err := s.OpenDir("/PROGS")
	if err != nil {
		t.Fatalf("OpenDir err=%v", err)
	}
	d.Close()
}
