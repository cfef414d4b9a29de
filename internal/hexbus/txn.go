// internal/hexbus/txn.go
package hexbus

import "context"

// Port is the byte-level bus the engine runs on. bus.Transport implements it.
type Port interface {
	WaitStart(ctx context.Context) error
	WaitIdle(ctx context.Context) error
	Finish()
	RecvByte() (byte, error)
	SendByte(b byte) error
	SendWord(v uint16) error
}

// Txn is one in-flight transaction as seen by a handler.
// Buf is the shared I/O buffer; it belongs to the handler until it returns.
type Txn struct {
	PAB PAB
	Buf []byte

	port    Port
	entry   *Entry
	reg     *Registry
	status  Status
	replied bool
}

// Entry returns the subsystem the transaction was dispatched to.
func (tx *Txn) Entry() *Entry { return tx.entry }

// Registry returns the device registry, for commands that move device codes.
func (tx *Txn) Registry() *Registry { return tx.reg }

// Recv fills p with payload bytes from the host.
func (tx *Txn) Recv(p []byte) error {
	for i := range p {
		b, err := tx.port.RecvByte()
		if err != nil {
			return err
		}
		p[i] = b
	}
	return nil
}

// Eat drains n payload bytes and discards them.
func (tx *Txn) Eat(n int) error {
	for i := 0; i < n; i++ {
		if _, err := tx.port.RecvByte(); err != nil {
			return err
		}
	}
	return nil
}

// EatPayload drains the whole declared payload.
func (tx *Txn) EatPayload() error {
	return tx.Eat(int(tx.PAB.DataLen))
}

// Fail drains remaining payload bytes, then answers s.
func (tx *Txn) Fail(remaining int, s Status) error {
	if err := tx.Eat(remaining); err != nil {
		return err
	}
	return tx.SendStatus(s)
}

// SendStatus answers with no data.
func (tx *Txn) SendStatus(s Status) error {
	if err := tx.port.SendWord(0); err != nil {
		return err
	}
	return tx.End(s)
}

// SendData answers with data followed by s.
func (tx *Txn) SendData(data []byte, s Status) error {
	if err := tx.Begin(uint16(len(data))); err != nil {
		return err
	}
	if err := tx.SendBytes(data); err != nil {
		return err
	}
	return tx.End(s)
}

// Begin starts a streamed response of n data bytes.
func (tx *Txn) Begin(n uint16) error {
	return tx.port.SendWord(n)
}

// SendBytes streams data bytes after Begin.
func (tx *Txn) SendBytes(p []byte) error {
	for _, b := range p {
		if err := tx.port.SendByte(b); err != nil {
			return err
		}
	}
	return nil
}

// End sends the final status byte.
func (tx *Txn) End(s Status) error {
	tx.status = s
	tx.replied = true
	return tx.port.SendByte(byte(s))
}
