// internal/bus/gpio_test.go
package bus

import (
	"testing"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func testPin(name string) *gpiotest.Pin {
	return &gpiotest.Pin{N: name, L: gpio.High, EdgesChan: make(chan gpio.Level, 4)}
}

func newTestGPIO(t *testing.T) (*GPIOLines, *gpiotest.Pin, [4]*gpiotest.Pin) {
	t.Helper()
	hsk := testPin("HSK")
	var raw [4]*gpiotest.Pin
	var data [4]gpio.PinIO
	for i := range raw {
		raw[i] = testPin("D" + string(rune('0'+i)))
		data[i] = raw[i]
	}
	g, err := NewGPIOLines(testPin("BAV"), hsk, data)
	if err != nil {
		t.Fatalf("NewGPIOLines err=%v", err)
	}
	return g, hsk, raw
}

func TestGPIOLines_ReleasedOnOpen(t *testing.T) {
	g, _, _ := newTestGPIO(t)

	if g.HSK() != gpio.High {
		t.Fatalf("HSK should be released on open")
	}
	if g.Data() != 0x0F {
		t.Fatalf("data lines should be released on open, got 0x%x", g.Data())
	}
}

func TestGPIOLines_DriveDataPullsZeroBitsLow(t *testing.T) {
	g, _, raw := newTestGPIO(t)

	if err := g.DriveData(0x05); err != nil {
		t.Fatalf("DriveData err=%v", err)
	}
	want := []gpio.Level{gpio.High, gpio.Low, gpio.High, gpio.Low}
	for i, p := range raw {
		if p.Read() != want[i] {
			t.Fatalf("D%d: got=%v want=%v", i, p.Read(), want[i])
		}
	}
	if g.Data() != 0x05 {
		t.Fatalf("Data readback: got=0x%x want=0x5", g.Data())
	}
}

func TestGPIOLines_DriveHSK(t *testing.T) {
	g, hsk, _ := newTestGPIO(t)

	if err := g.DriveHSK(gpio.Low); err != nil {
		t.Fatalf("DriveHSK(Low) err=%v", err)
	}
	if hsk.Read() != gpio.Low {
		t.Fatalf("HSK should be pulled low")
	}
	if err := g.DriveHSK(gpio.High); err != nil {
		t.Fatalf("DriveHSK(High) err=%v", err)
	}
	if hsk.Read() != gpio.High {
		t.Fatalf("HSK should be released")
	}
}
