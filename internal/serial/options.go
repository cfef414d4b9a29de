// internal/serial/options.go
package serial

import (
	"fmt"
	"strconv"
	"strings"

	goserial "github.com/goburrow/serial"
)

var baudRates = map[int]bool{
	110: true, 300: true, 600: true, 1200: true, 2400: true,
	4800: true, 9600: true, 19200: true, 38400: true, 57600: true, 115200: true,
}

// ParseOptions applies an OPEN option string such as ".BA=1200.DA=7.PA=E.ST=2"
// on top of base.
func ParseOptions(opts string, base goserial.Config) (goserial.Config, error) {
	c := base
	for _, tok := range strings.Split(opts, ".") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		key, val, ok := strings.Cut(tok, "=")
		if !ok {
			return c, fmt.Errorf("serial: malformed option %q", tok)
		}
		key = strings.ToUpper(key)
		val = strings.ToUpper(val)

		switch key {
		case "BA":
			n, err := strconv.Atoi(val)
			if err != nil || !baudRates[n] {
				return c, fmt.Errorf("serial: unsupported baud rate %q", val)
			}
			c.BaudRate = n
		case "DA":
			if val != "7" && val != "8" {
				return c, fmt.Errorf("serial: unsupported data bits %q", val)
			}
			c.DataBits = int(val[0] - '0')
		case "PA":
			if val != "N" && val != "E" && val != "O" {
				return c, fmt.Errorf("serial: unsupported parity %q", val)
			}
			c.Parity = val
		case "ST":
			if val != "1" && val != "2" {
				return c, fmt.Errorf("serial: unsupported stop bits %q", val)
			}
			c.StopBits = int(val[0] - '0')
		default:
			return c, fmt.Errorf("serial: unknown option %q", key)
		}
	}
	return c, nil
}
