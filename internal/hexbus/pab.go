// internal/hexbus/pab.go
package hexbus

import (
	"encoding/binary"
	"fmt"
)

// PABSize is the fixed wire size of a Peripheral Access Block.
const PABSize = 9

// LUN values with special meaning.
const (
	LUNProgram uint8 = 0   // raw program transfer (OLD/SAVE/VERIFY)
	LUNCommand uint8 = 255 // command channel
)

// DeviceBroadcast addresses every peripheral. Only RESET is honoured.
const DeviceBroadcast uint8 = 0

// PAB is the command header received at the start of every transaction.
//
// Wire layout (little-endian):
//
//	0    device
//	1    command
//	2    lun
//	3-4  record
//	5-6  buflen
//	7-8  datalen
type PAB struct {
	Device  uint8
	Command Command
	LUN     uint8
	Record  uint16
	BufLen  uint16
	DataLen uint16
}

// DecodePAB parses a 9-byte header.
func DecodePAB(b []byte) (PAB, error) {
	if len(b) != PABSize {
		return PAB{}, fmt.Errorf("hexbus: pab must be %d bytes, got %d", PABSize, len(b))
	}
	return PAB{
		Device:  b[0],
		Command: Command(b[1]),
		LUN:     b[2],
		Record:  binary.LittleEndian.Uint16(b[3:5]),
		BufLen:  binary.LittleEndian.Uint16(b[5:7]),
		DataLen: binary.LittleEndian.Uint16(b[7:9]),
	}, nil
}

// Encode renders the PAB in wire order. Used by host-side tooling and tests.
func (p PAB) Encode() []byte {
	b := make([]byte, PABSize)
	b[0] = p.Device
	b[1] = byte(p.Command)
	b[2] = p.LUN
	binary.LittleEndian.PutUint16(b[3:5], p.Record)
	binary.LittleEndian.PutUint16(b[5:7], p.BufLen)
	binary.LittleEndian.PutUint16(b[7:9], p.DataLen)
	return b
}
