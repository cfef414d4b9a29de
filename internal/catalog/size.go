// internal/catalog/size.go
package catalog

import (
	"strconv"
	"strings"
)

// SizeWidth is the size column width in both catalog formats.
const SizeWidth = 5

// FormatSize renders n right-justified in width columns: bytes when they
// fit, else KiB with one decimal, else a '?' fill.
func FormatSize(n int64, width int) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= width {
		return pad(s, width)
	}
	kib := n / 1024
	tenth := (n % 1024) * 10 / 1024
	s = strconv.FormatInt(kib, 10) + "." + strconv.FormatInt(tenth, 10)
	if len(s) <= width {
		return pad(s, width)
	}
	return strings.Repeat("?", width)
}

func pad(s string, width int) string {
	return strings.Repeat(" ", width-len(s)) + s
}
