package utils

import (
	"strconv"
	"strings"
)

// ParseBool converts a build argument to a bool. Integers are true when
// non-zero, anything else is true unless it spells "false" in any case.
func ParseBool(arg string) bool {
	if n, err := strconv.Atoi(strings.TrimSpace(arg)); err == nil {
		return n != 0
	}

	return strings.ToLower(arg) != "false"
}

// ParseModes splits a mode argument such as "debug,release" into profile
// names, dropping empties and repeats while keeping order.
func ParseModes(m string) []string {
	modes := make([]string, 0)
	seen := make(map[string]bool)

	fields := strings.FieldsFunc(m, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})

	for _, f := range fields {
		f = strings.ToLower(f)
		if seen[f] {
			continue
		}

		seen[f] = true
		modes = append(modes, f)
	}

	return modes
}

// SplitAssignment splits a "key=value" build argument. ok is false when the
// argument has no '=' or an empty key.
func SplitAssignment(arg string) (key, value string, ok bool) {
	pos := strings.Index(arg, "=")
	if pos < 1 {
		return "", "", false
	}

	return strings.TrimSpace(arg[:pos]), arg[pos+1:], true
}
