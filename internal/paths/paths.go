// Package paths locates executables on the search path.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// IsExecutable reports whether path names an existing, executable regular file
func IsExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}

	if runtime.GOOS == "windows" {
		return true
	}

	return info.Mode().Perm()&0o111 != 0
}

// Which looks for program on PATH, trying each PATHEXT suffix, and returns
// the first executable candidate.
func Which(program string) (string, bool) {
	return Lookup(program, os.Getenv("PATH"), os.Getenv("PATHEXT"))
}

// Lookup is Which with explicit search path and extension lists, both
// separated by os.PathListSeparator. A program containing a directory
// separator is checked as given and never searched for.
func Lookup(program, pathList, pathExt string) (string, bool) {
	if program == "" {
		return "", false
	}

	if strings.ContainsRune(program, '/') || strings.ContainsRune(program, filepath.Separator) {
		if IsExecutable(program) {
			return program, true
		}

		return "", false
	}

	exts := []string{""}
	if pathExt != "" {
		exts = append(exts, filepath.SplitList(pathExt)...)
	}

	for _, dir := range filepath.SplitList(pathList) {
		exe := filepath.Join(dir, program)

		for _, ext := range exts {
			candidate := exe + ext
			if IsExecutable(candidate) {
				return candidate, true
			}
		}
	}

	return "", false
}

// First returns the first of names found on PATH. found is false when none
// is, in which case the first name is returned so a later invocation fails
// with the launcher's "command not found".
func First(which func(string) (string, bool), names ...string) (name string, found bool) {
	for _, n := range names {
		if n == "" {
			continue
		}

		if _, ok := which(n); ok {
			return n, true
		}
	}

	if len(names) > 0 {
		return names[0], false
	}

	return "", false
}
