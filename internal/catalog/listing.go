// internal/catalog/listing.go
package catalog

import (
	"io"
	"os"

	"github.com/spf13/afero"

	"github.com/tamzrod/hexbus-drive/internal/storage"
)

// Entry types.
const (
	TypeFile   byte = 'F'
	TypeDir    byte = 'D'
	TypeVolume byte = 'V'
)

// Entry is one catalog line.
type Entry struct {
	Name string
	Size int64
	Type byte
}

// Listing is an open catalog over one directory.
//
// The matching entries are counted once at Open; enumeration is lazy and
// never yields more than that count. Remaining reaches zero at the end.
type Listing struct {
	fs      *storage.FS
	dir     string
	pattern string
	volume  string

	total   int
	textLen int

	cur     afero.File
	left    int
	volNext bool
}

// Open resolves dir, counts its entries matching pattern and readies the
// listing for enumeration. volume, when set, is listed first for an
// unfiltered root listing.
func Open(fs *storage.FS, dir, pattern, volume string) (*Listing, error) {
	p, err := fs.Resolve(dir)
	if err != nil {
		return nil, err
	}
	l := &Listing{fs: fs, dir: p, pattern: pattern}
	if volume != "" && pattern == "" && storage.IsRoot(p) {
		l.volume = volume
	}

	f, err := fs.OpenDir(p)
	if err != nil {
		return nil, err
	}
	if l.volume != "" {
		l.count(l.volumeEntry())
	}
	for {
		e, ok, err := l.scan(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		if !ok {
			break
		}
		l.count(e)
	}
	f.Close()

	if err := l.Rewind(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Listing) count(e Entry) {
	l.total++
	l.textLen += len(FormatText(e))
}

func (l *Listing) volumeEntry() Entry {
	return Entry{Name: l.volume, Type: TypeVolume}
}

// Dir is the resolved directory being listed.
func (l *Listing) Dir() string { return l.dir }

// Total is the number of entries counted at Open.
func (l *Listing) Total() int { return l.total }

// Remaining is the number of entries not yet returned by Next.
func (l *Listing) Remaining() int { return l.left }

// TextLen bounds the bytes of all text records.
func (l *Listing) TextLen() int { return l.textLen }

// Next returns the next matching entry. ok is false at the end.
func (l *Listing) Next() (e Entry, ok bool, err error) {
	if l.left <= 0 {
		return Entry{}, false, nil
	}
	if l.volNext {
		l.volNext = false
		l.left--
		return l.volumeEntry(), true, nil
	}
	if l.cur == nil {
		l.left = 0
		return Entry{}, false, nil
	}
	e, ok, err = l.scan(l.cur)
	if err != nil || !ok {
		l.left = 0
		return Entry{}, false, err
	}
	l.left--
	return e, true, nil
}

// Rewind restarts enumeration from the first entry.
func (l *Listing) Rewind() error {
	l.Close()
	f, err := l.fs.OpenDir(l.dir)
	if err != nil {
		return err
	}
	l.cur = f
	l.left = l.total
	l.volNext = l.volume != ""
	return nil
}

func (l *Listing) Close() error {
	if l.cur == nil {
		return nil
	}
	err := l.cur.Close()
	l.cur = nil
	return err
}

func (l *Listing) scan(f afero.File) (Entry, bool, error) {
	for {
		fis, err := f.Readdir(1)
		if err == io.EOF || (err == nil && len(fis) == 0) {
			return Entry{}, false, nil
		}
		if err != nil {
			return Entry{}, false, err
		}
		fi := fis[0]
		name := fi.Name()
		if name == "." || name == ".." {
			continue
		}
		if l.pattern != "" && !Match(l.pattern, name) {
			continue
		}
		return entryOf(fi), true, nil
	}
}

func entryOf(fi os.FileInfo) Entry {
	if fi.IsDir() {
		return Entry{Name: fi.Name(), Type: TypeDir}
	}
	return Entry{Name: fi.Name(), Size: fi.Size(), Type: TypeFile}
}
