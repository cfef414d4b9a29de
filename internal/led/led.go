// internal/led/led.go
package led

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// Indicator shows drive activity.
type Indicator interface {
	Set(on bool)
}

// Nop is used when no LED is wired.
type Nop struct{}

func (Nop) Set(bool) {}

// GPIO drives an LED on a single output pin.
type GPIO struct {
	pin       gpio.PinOut
	activeLow bool
}

// Open looks the pin up by name and switches the LED off.
func Open(name string, activeLow bool) (*GPIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("led: unknown pin %q", name)
	}
	g := NewGPIO(p, activeLow)
	g.Set(false)
	return g, nil
}

func NewGPIO(pin gpio.PinOut, activeLow bool) *GPIO {
	return &GPIO{pin: pin, activeLow: activeLow}
}

func (g *GPIO) Set(on bool) {
	l := gpio.Level(on != g.activeLow)
	if err := g.pin.Out(l); err != nil {
		log.Warnf("led: %s: %v", g.pin, err)
	}
}
