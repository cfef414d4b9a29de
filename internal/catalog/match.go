// internal/catalog/match.go
package catalog

// Match reports whether name matches pattern in full.
// '?' matches exactly one character, '*' matches any run including none.
// Letters compare without case.
func Match(pattern, name string) bool {
	if pattern == "" {
		return name == ""
	}
	switch pattern[0] {
	case '*':
		if Match(pattern[1:], name) {
			return true
		}
		return name != "" && Match(pattern, name[1:])
	case '?':
		return name != "" && Match(pattern[1:], name[1:])
	}
	return name != "" && fold(pattern[0]) == fold(name[0]) && Match(pattern[1:], name[1:])
}

func fold(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}
