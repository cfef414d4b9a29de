// internal/hexbus/registry.go
package hexbus

import (
	"errors"
	"fmt"
)

// Handler serves one command. It must deliver its own status byte through
// the Txn. A returned error is transport-level and aborts the transaction.
type Handler func(tx *Txn) error

// Entry is one device subsystem on the bus.
type Entry struct {
	Name string

	// Low and High bound the device codes this subsystem may answer to.
	Low  uint8
	High uint8

	Handlers map[Command]Handler

	// Reset is invoked for a broadcast bus reset. Optional.
	Reset func()

	cur uint8
}

// Current returns the device code the subsystem answers to right now.
func (e *Entry) Current() uint8 { return e.cur }

// Registry maps device codes to subsystems. It is populated at startup;
// only the current device codes change afterwards.
type Registry struct {
	entries []*Entry
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a subsystem answering to device code cur.
func (r *Registry) Register(e *Entry, cur uint8) error {
	if e == nil || e.Name == "" {
		return errors.New("hexbus: entry name required")
	}
	if e.Low == DeviceBroadcast || e.Low > e.High {
		return fmt.Errorf("hexbus: entry %q: invalid range %d-%d", e.Name, e.Low, e.High)
	}
	for _, o := range r.entries {
		if o.Name == e.Name {
			return fmt.Errorf("hexbus: entry %q already registered", e.Name)
		}
	}
	e.cur = 0
	if err := r.checkCode(e, cur); err != nil {
		return err
	}
	e.cur = cur
	r.entries = append(r.entries, e)
	return nil
}

// Lookup returns the subsystem whose current code is dev, or nil.
// The broadcast code never matches an entry.
func (r *Registry) Lookup(dev uint8) *Entry {
	if dev == DeviceBroadcast {
		return nil
	}
	for _, e := range r.entries {
		if e.cur == dev {
			return e
		}
	}
	return nil
}

// Find returns the subsystem by name, or nil.
func (r *Registry) Find(name string) *Entry {
	for _, e := range r.entries {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// SetCurrent moves a subsystem to a new device code within its range.
func (r *Registry) SetCurrent(name string, dev uint8) error {
	e := r.Find(name)
	if e == nil {
		return fmt.Errorf("hexbus: unknown entry %q", name)
	}
	if err := r.checkCode(e, dev); err != nil {
		return err
	}
	e.cur = dev
	return nil
}

// Entries returns the subsystems in registration order.
func (r *Registry) Entries() []*Entry {
	out := make([]*Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// ResetAll runs every reset hook.
func (r *Registry) ResetAll() {
	for _, e := range r.entries {
		if e.Reset != nil {
			e.Reset()
		}
	}
}

func (r *Registry) checkCode(e *Entry, dev uint8) error {
	if dev < e.Low || dev > e.High {
		return fmt.Errorf("hexbus: entry %q: device %d outside %d-%d", e.Name, dev, e.Low, e.High)
	}
	for _, o := range r.entries {
		if o != e && o.cur == dev {
			return fmt.Errorf("hexbus: device %d already used by %q", dev, o.Name)
		}
	}
	return nil
}
