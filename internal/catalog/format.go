// internal/catalog/format.go
package catalog

import (
	"encoding/binary"
	"strings"
)

// ---- PGM (tokenized program) layout ----

const (
	PGMHeaderLen  = 4
	PGMEntryLen   = 31
	PGMTrailerLen = 5

	// PGMNameWidth is the quoted name column.
	PGMNameWidth = 16

	// MaxPGMEntries keeps the declared length within one word.
	MaxPGMEntries = (0xFFFF - PGMHeaderLen - PGMTrailerLen) / PGMEntryLen
)

const tokRemark = 0x83

var (
	pgmMagic   = [2]byte{0x80, 0x03}
	pgmTrailer = [PGMTrailerLen]byte{0xFF, 0x7F, 0x03, 0x86, 0x00}
)

// PGMLength is the exact program size for n entries.
func PGMLength(n int) int {
	return PGMHeaderLen + n*PGMEntryLen + PGMTrailerLen
}

// pgmEntries is the entry count a PGM rendering of l carries.
func pgmEntries(l *Listing) int {
	if l.Total() > MaxPGMEntries {
		return MaxPGMEntries
	}
	return l.Total()
}

// PGMSize is the declared length of l rendered as a program.
func PGMSize(l *Listing) int { return PGMLength(pgmEntries(l)) }

// RenderPGM enumerates l from its current position into a program image.
// The image always carries exactly the entries counted at Open: blank lines
// fill in for entries that vanished since.
func RenderPGM(l *Listing) ([]byte, error) {
	n := pgmEntries(l)
	b := make([]byte, 0, PGMLength(n))

	b = append(b, pgmMagic[:]...)
	b = binary.LittleEndian.AppendUint16(b, uint16(PGMLength(n)))

	for i := 0; i < n; i++ {
		e, ok, err := l.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			e = Entry{Type: ' '}
		}
		b = AppendPGMEntry(b, uint16(i+1), e)
	}
	return append(b, pgmTrailer[:]...), nil
}

// AppendPGMEntry appends one listing line numbered line.
func AppendPGMEntry(b []byte, line uint16, e Entry) []byte {
	b = binary.LittleEndian.AppendUint16(b, line)
	b = append(b, PGMEntryLen-3, tokRemark)
	b = append(b, FormatSize(e.Size, SizeWidth)...)
	b = append(b, ' ', '"')

	name := e.Name
	if len(name) > PGMNameWidth {
		name = name[:PGMNameWidth]
	}
	b = append(b, name...)
	for i := len(name); i < PGMNameWidth; i++ {
		b = append(b, ' ')
	}
	return append(b, '"', ' ', e.Type, 0)
}

// ---- text ----

// FormatText renders one text catalog record: size,name,type.
func FormatText(e Entry) string {
	size := strings.TrimLeft(FormatSize(e.Size, SizeWidth), " ")
	return size + "," + e.Name + "," + string(e.Type)
}
