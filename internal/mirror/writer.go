// internal/mirror/writer.go
package mirror

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/hexbus-drive/internal/status"
)

// registerClient is the delivery surface; EndpointClient implements it.
type registerClient interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}

// StatusWriter is the delivery-only contract for drive status.
// It receives a snapshot and writes it verbatim.
type StatusWriter interface {
	WriteStatus(s status.Snapshot) error
}

type WriterConfig struct {
	UnitID     uint8
	BaseSlot   uint16
	DeviceName string
}

// blockWriter writes the status block at BaseSlot * SlotsPerDevice.
type blockWriter struct {
	cfg WriterConfig
	cli registerClient

	needFull bool
	last     []uint16
	nameRegs []uint16
}

func NewStatusWriter(cfg WriterConfig, cli registerClient) (StatusWriter, error) {
	if cli == nil {
		return nil, errors.New("mirror: client required")
	}
	return &blockWriter{
		cfg:      cfg,
		cli:      cli,
		needFull: true, // full re-assert on first successful write
		nameRegs: status.EncodeName(cfg.DeviceName),
	}, nil
}

// WriteStatus delivers a snapshot into status memory.
// On any write failure, the next successful call will re-assert the full block.
func (w *blockWriter) WriteStatus(s status.Snapshot) error {
	regs := status.Encode(s)
	base := w.baseAddr()

	// ------------------------------------------------------------
	// Full block write (identity re-assert)
	// ------------------------------------------------------------
	if w.needFull {
		copy(regs[status.SlotDeviceNameStart:], w.nameRegs)

		if err := w.cli.WriteRegisters(w.cfg.UnitID, base, regs); err != nil {
			return fmt.Errorf("mirror: full block write failed: %w", err)
		}

		w.needFull = false
		w.last = regs
		return nil
	}

	// ------------------------------------------------------------
	// Incremental: one write per run of changed live slots
	// ------------------------------------------------------------
	var errs []string

	for i := 0; i < status.SlotLiveEnd; {
		if regs[i] == w.last[i] {
			i++
			continue
		}
		j := i + 1
		for j < status.SlotLiveEnd && regs[j] != w.last[j] {
			j++
		}

		if err := w.cli.WriteRegisters(w.cfg.UnitID, base+uint16(i), regs[i:j]); err != nil {
			errs = append(errs, fmt.Sprintf("slots %d-%d write failed: %v", i, j-1, err))
		} else {
			copy(w.last[i:j], regs[i:j])
		}
		i = j
	}

	if len(errs) > 0 {
		// Any partial failure introduces doubt; re-assert on next success.
		w.needFull = true
		return errors.New("mirror: " + strings.Join(errs, " | "))
	}
	return nil
}

func (w *blockWriter) baseAddr() uint16 {
	// Each device owns a fixed SlotsPerDevice block.
	return w.cfg.BaseSlot * status.SlotsPerDevice
}
