// internal/catalog/path.go
package catalog

import "strings"

// SplitPath splits a catalog path (without the leading '$') into the
// directory part and the wildcard fragment after the last '/'.
func SplitPath(p string) (dir, pattern string) {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return "", p
	}
	dir = p[:i]
	if dir == "" {
		dir = "/"
	}
	return dir, p[i+1:]
}
