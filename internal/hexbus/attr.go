// internal/hexbus/attr.go
package hexbus

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// OpenMode is the access mode requested by OPEN.
type OpenMode uint8

const (
	ModeAppend OpenMode = iota
	ModeRead
	ModeWrite
	ModeUpdate
)

func (m OpenMode) String() string {
	switch m {
	case ModeAppend:
		return "append"
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	case ModeUpdate:
		return "update"
	}
	return "?"
}

// Attribute byte layout.
const (
	attrModeMask   = 0xC0
	attrModeAppend = 0x00
	attrModeRead   = 0x40
	attrModeWrite  = 0x80
	attrModeUpdate = 0xC0
	attrRelative   = 0x10
	attrInternal   = 0x08
)

// OpenAttr is the decoded OPEN attribute byte.
type OpenAttr struct {
	Mode     OpenMode
	Relative bool
	Internal bool // false means DISPLAY
}

// DecodeOpenAttr splits the attribute byte into its orthogonal parts.
func DecodeOpenAttr(b byte) OpenAttr {
	a := OpenAttr{
		Relative: b&attrRelative != 0,
		Internal: b&attrInternal != 0,
	}
	switch b & attrModeMask {
	case attrModeAppend:
		a.Mode = ModeAppend
	case attrModeWrite:
		a.Mode = ModeWrite
	case attrModeUpdate:
		a.Mode = ModeUpdate
	default:
		a.Mode = ModeRead
	}
	return a
}

// Byte re-encodes the attribute.
func (a OpenAttr) Byte() byte {
	var b byte
	switch a.Mode {
	case ModeRead:
		b = attrModeRead
	case ModeWrite:
		b = attrModeWrite
	case ModeUpdate:
		b = attrModeUpdate
	default:
		b = attrModeAppend
	}
	if a.Relative {
		b |= attrRelative
	}
	if a.Internal {
		b |= attrInternal
	}
	return b
}

// Readable reports whether the mode permits READ.
func (a OpenAttr) Readable() bool { return a.Mode == ModeRead || a.Mode == ModeUpdate }

// Writable reports whether the mode permits WRITE.
func (a OpenAttr) Writable() bool { return a.Mode != ModeRead }

// OpenRequest is the decoded OPEN payload:
// length(2 LE), attribute(1), then the name.
type OpenRequest struct {
	Length uint16
	Attr   OpenAttr
	Name   string
}

// DecodeOpenRequest parses an OPEN payload. Trailing spaces and NULs are
// trimmed from the name.
func DecodeOpenRequest(b []byte) (OpenRequest, error) {
	if len(b) < 3 {
		return OpenRequest{}, fmt.Errorf("hexbus: open payload too short (%d bytes)", len(b))
	}
	return OpenRequest{
		Length: binary.LittleEndian.Uint16(b[0:2]),
		Attr:   DecodeOpenAttr(b[2]),
		Name:   strings.TrimRight(string(b[3:]), " \x00"),
	}, nil
}

// OpenReply is the OPEN response data: a size word, clamped to 0xFFFF,
// then the record word.
func OpenReply(size int) []byte {
	if size > 0xFFFF {
		size = 0xFFFF
	}
	if size < 0 {
		size = 0
	}
	return []byte{byte(size), byte(size >> 8), 0, 0}
}
