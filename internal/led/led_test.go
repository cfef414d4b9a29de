// internal/led/led_test.go
package led

import (
	"testing"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func TestGPIO_ActiveHigh(t *testing.T) {
	p := &gpiotest.Pin{N: "LED"}
	g := NewGPIO(p, false)

	g.Set(true)
	if p.L != gpio.High {
		t.Fatalf("expected High, got %v", p.L)
	}
	g.Set(false)
	if p.L != gpio.Low {
		t.Fatalf("expected Low, got %v", p.L)
	}
}

func TestGPIO_ActiveLow(t *testing.T) {
	p := &gpiotest.Pin{N: "LED", L: gpio.High}
	g := NewGPIO(p, true)

	g.Set(true)
	if p.L != gpio.Low {
		t.Fatalf("expected Low, got %v", p.L)
	}
}
