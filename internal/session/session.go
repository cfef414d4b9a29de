// internal/session/session.go
package session

import (
	"errors"

	"github.com/spf13/afero"

	"github.com/tamzrod/hexbus-drive/internal/catalog"
	"github.com/tamzrod/hexbus-drive/internal/led"
)

// DefaultMaxOpen is the session bound when none is configured.
const DefaultMaxOpen = 4

var (
	ErrMaxLUNs = errors.New("session: too many open sessions")
	ErrInUse   = errors.New("session: lun already open")
)

// Kind is what backs a session.
type Kind uint8

const (
	KindFile Kind = iota
	KindCatalog
	KindCommand
)

// Attr is the session's access attributes, fixed at OPEN.
type Attr struct {
	Read     bool
	Write    bool
	Protect  bool
	Display  bool
	Relative bool
	Internal bool
}

// Session is one open LUN.
type Session struct {
	LUN  uint8
	Kind Kind
	Attr Attr
	Path string

	File afero.File
	// RecordLen is the fixed record size of RELATIVE files.
	RecordLen int

	Catalog *catalog.Listing
	// Data holds a rendered image (program catalogs) served from Offset.
	Data   []byte
	Offset int
}

// Table maps LUNs to live sessions under a fixed bound.
// It is not safe for concurrent use; the bus engine serializes access.
type Table struct {
	max      int
	sessions map[uint8]*Session
	ind      led.Indicator
}

func NewTable(capacity int, ind led.Indicator) *Table {
	if capacity <= 0 {
		capacity = DefaultMaxOpen
	}
	if ind == nil {
		ind = led.Nop{}
	}
	return &Table{
		max:      capacity,
		sessions: make(map[uint8]*Session, capacity),
		ind:      ind,
	}
}

// Reserve claims lun. The returned session is blank apart from LUN.
func (t *Table) Reserve(lun uint8) (*Session, error) {
	if _, ok := t.sessions[lun]; ok {
		return nil, ErrInUse
	}
	if len(t.sessions) >= t.max {
		return nil, ErrMaxLUNs
	}
	s := &Session{LUN: lun}
	t.sessions[lun] = s
	if len(t.sessions) == 1 {
		t.ind.Set(true)
	}
	return s, nil
}

// Find returns the live session for lun, or nil.
func (t *Table) Find(lun uint8) *Session {
	return t.sessions[lun]
}

// Release frees lun and anything the session owns besides its file.
// It reports whether lun was live.
func (t *Table) Release(lun uint8) bool {
	s, ok := t.sessions[lun]
	if !ok {
		return false
	}
	if s.Catalog != nil {
		s.Catalog.Close()
		s.Catalog = nil
	}
	s.Data = nil
	delete(t.sessions, lun)
	if len(t.sessions) == 0 {
		t.ind.Set(false)
	}
	return true
}

// Reset force-closes every session. closeFn, if set, runs first for each.
func (t *Table) Reset(closeFn func(*Session)) {
	for lun, s := range t.sessions {
		if closeFn != nil {
			closeFn(s)
		}
		t.Release(lun)
	}
}

// Count is the number of live sessions.
func (t *Table) Count() int { return len(t.sessions) }
