// internal/storage/storage.go
package storage

import (
	"errors"
	"io"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"
)

// MaxNameLen bounds a single resolved path.
const MaxNameLen = 255

var (
	ErrInvalidName = errors.New("storage: invalid name")
	ErrNotDir      = errors.New("storage: not a directory")
)

// FS is the drive's file and directory collaborator.
// Paths are slash separated; relative names resolve against the working directory.
type FS struct {
	fs  afero.Fs
	cwd string
}

func New(fs afero.Fs) *FS {
	return &FS{fs: fs, cwd: "/"}
}

// Afero exposes the underlying filesystem.
func (s *FS) Afero() afero.Fs { return s.fs }

// Cwd returns the working directory.
func (s *FS) Cwd() string { return s.cwd }

// IsRoot reports whether a resolved directory is the volume root.
func IsRoot(dir string) bool { return dir == "/" }

// Resolve turns a host-supplied name into a clean absolute path.
func (s *FS) Resolve(name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	p := name
	if !strings.HasPrefix(p, "/") {
		p = path.Join(s.cwd, p)
	}
	p = path.Clean("/" + p)
	if len(p) > MaxNameLen {
		return "", ErrInvalidName
	}
	return p, nil
}

func checkName(name string) error {
	if len(name) > MaxNameLen {
		return ErrInvalidName
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c < 0x20 || c == 0x7F || c == '\\' {
			return ErrInvalidName
		}
	}
	return nil
}

// ---- files ----

// OpenFile opens a file with os.O_* flags.
func (s *FS) OpenFile(name string, flag int) (afero.File, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	p, err := s.Resolve(name)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.OpenFile(p, flag, 0o644)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err == nil && fi.IsDir() {
		f.Close()
		return nil, ErrInvalidName
	}
	return f, nil
}

func (s *FS) Stat(name string) (os.FileInfo, error) {
	p, err := s.Resolve(name)
	if err != nil {
		return nil, err
	}
	return s.fs.Stat(p)
}

func (s *FS) Remove(name string) error {
	p, err := s.Resolve(name)
	if err != nil {
		return err
	}
	return s.fs.Remove(p)
}

func (s *FS) Rename(oldName, newName string) error {
	op, err := s.Resolve(oldName)
	if err != nil {
		return err
	}
	np, err := s.Resolve(newName)
	if err != nil {
		return err
	}
	if _, err := s.fs.Stat(np); err == nil {
		return os.ErrExist
	}
	return s.fs.Rename(op, np)
}

// ---- directories ----

// OpenDir opens a directory for enumeration.
func (s *FS) OpenDir(name string) (afero.File, error) {
	p, err := s.Resolve(name)
	if err != nil {
		return nil, err
	}
	fi, err := s.fs.Stat(p)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, ErrNotDir
	}
	return s.fs.Open(p)
}

func (s *FS) Mkdir(name string) error {
	p, err := s.Resolve(name)
	if err != nil {
		return err
	}
	return s.fs.Mkdir(p, 0o755)
}

// Chdir moves the working directory.
func (s *FS) Chdir(name string) error {
	p, err := s.Resolve(name)
	if err != nil {
		return err
	}
	fi, err := s.fs.Stat(p)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return ErrNotDir
	}
	s.cwd = p
	return nil
}

// Size returns the size of an open file.
func Size(f afero.File) (int64, error) {
	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// Pos returns the current offset of an open file.
func Pos(f afero.File) (int64, error) {
	return f.Seek(0, io.SeekCurrent)
}
