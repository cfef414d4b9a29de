// internal/bus/gpio.go
package bus

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// Pins names the GPIO lines wired to the HEX-BUS connector.
type Pins struct {
	BAV  string
	HSK  string
	Data [4]string // D0..D3
}

// GPIOLines drives the bus through periph GPIO pins. Open collector
// behaviour is emulated: a released line is an input with pull-up.
type GPIOLines struct {
	bav  gpio.PinIO
	hsk  gpio.PinIO
	data [4]gpio.PinIO
}

// OpenGPIO looks the pins up in the periph registry and releases them all.
// periph host drivers must be initialised first.
func OpenGPIO(p Pins) (*GPIOLines, error) {
	bav, err := lookup(p.BAV)
	if err != nil {
		return nil, err
	}
	hsk, err := lookup(p.HSK)
	if err != nil {
		return nil, err
	}
	var data [4]gpio.PinIO
	for i, name := range p.Data {
		if data[i], err = lookup(name); err != nil {
			return nil, err
		}
	}
	return NewGPIOLines(bav, hsk, data)
}

// NewGPIOLines wraps already resolved pins.
func NewGPIOLines(bav, hsk gpio.PinIO, data [4]gpio.PinIO) (*GPIOLines, error) {
	g := &GPIOLines{bav: bav, hsk: hsk, data: data}

	if err := bav.In(gpio.PullUp, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("bus: bav %s: %w", bav, err)
	}
	if err := g.DriveHSK(gpio.High); err != nil {
		return nil, err
	}
	if err := g.DriveData(0x0F); err != nil {
		return nil, err
	}
	return g, nil
}

func lookup(name string) (gpio.PinIO, error) {
	if name == "" {
		return nil, fmt.Errorf("bus: pin name required")
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("bus: unknown pin %q", name)
	}
	return p, nil
}

func (g *GPIOLines) BAV() gpio.Level { return g.bav.Read() }
func (g *GPIOLines) HSK() gpio.Level { return g.hsk.Read() }

func (g *GPIOLines) DriveHSK(l gpio.Level) error {
	if l == gpio.Low {
		return g.hsk.Out(gpio.Low)
	}
	return g.hsk.In(gpio.PullUp, gpio.BothEdges)
}

func (g *GPIOLines) Data() uint8 {
	var n uint8
	for i, p := range g.data {
		if p.Read() == gpio.High {
			n |= 1 << uint(i)
		}
	}
	return n
}

func (g *GPIOLines) DriveData(nibble uint8) error {
	for i, p := range g.data {
		var err error
		if nibble&(1<<uint(i)) == 0 {
			err = p.Out(gpio.Low)
		} else {
			err = p.In(gpio.PullUp, gpio.NoEdge)
		}
		if err != nil {
			return fmt.Errorf("bus: data D%d: %w", i, err)
		}
	}
	return nil
}

func (g *GPIOLines) WaitHSK(timeout time.Duration) bool { return g.hsk.WaitForEdge(timeout) }
func (g *GPIOLines) WaitBAV(timeout time.Duration) bool { return g.bav.WaitForEdge(timeout) }
